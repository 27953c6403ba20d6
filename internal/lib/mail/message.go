// Package mail собирает MIME-сообщения для уведомлений.
//
// BuildMessage формирует multipart/alternative письмо с plain-text и
// HTML частями, корректными заголовками From/To/Date и уникальным
// Message-ID.
package mail

import (
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Address пара «отображаемое имя — адрес».
type Address struct {
	Name  string
	Email string
}

// String форматирует адрес для заголовка письма, кодируя имя по RFC 2047.
func (a Address) String() string {
	if a.Name == "" {
		return a.Email
	}
	return fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", a.Name), a.Email)
}

// BuildMessage собирает multipart/alternative сообщение: plain-text часть
// идёт первой, HTML — последней (клиенты показывают последнюю понятную
// альтернативу).
func BuildMessage(from, to Address, subject, textBody, htmlBody string) []byte {
	boundary := strings.ReplaceAll(uuid.NewString(), "-", "")
	msgID := fmt.Sprintf("<%s@%s>", uuid.NewString(), domainOf(from.Email))

	var b strings.Builder
	writeHeader := func(key, value string) {
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\r\n")
	}

	writeHeader("From", from.String())
	writeHeader("To", to.String())
	writeHeader("Subject", mime.QEncoding.Encode("utf-8", subject))
	writeHeader("Date", time.Now().Format(time.RFC1123Z))
	writeHeader("Message-ID", msgID)
	writeHeader("MIME-Version", "1.0")
	writeHeader("Content-Type", fmt.Sprintf(`multipart/alternative; boundary="%s"`, boundary))
	b.WriteString("\r\n")

	writePart := func(contentType, body string) {
		b.WriteString("--" + boundary + "\r\n")
		b.WriteString("Content-Type: " + contentType + "; charset=\"UTF-8\"\r\n")
		b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
		b.WriteString("\r\n")
		b.WriteString(body)
		b.WriteString("\r\n")
	}

	writePart("text/plain", textBody)
	writePart("text/html", htmlBody)
	b.WriteString("--" + boundary + "--\r\n")

	return []byte(b.String())
}

func domainOf(email string) string {
	if i := strings.LastIndex(email, "@"); i >= 0 && i < len(email)-1 {
		return email[i+1:]
	}
	return "localhost"
}
