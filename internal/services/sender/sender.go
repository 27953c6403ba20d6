// Package services реализует сервис рассылки уведомлений: потребляет
// события из брокера, подбирает адресатов и отправляет письма по SMTP.
package services

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	"net/url"
	"strings"
	texttemplate "text/template"

	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/config"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/events"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/labels"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/lib/mail"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/lib/sl"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/lib/smtp"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/metrics"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/models"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

var templateFuncs = map[string]any{
	"join": strings.Join,
}

// Matcher подбирает адресатов рассылки о новом объявлении.
type Matcher interface {
	FindUsersInterestedIn(ctx context.Context, labelIDs []int) ([]*models.User, error)
}

// SenderService обрабатывает события уведомлений и отправляет письма.
type SenderService struct {
	transport smtp.TransportInterface
	matcher   Matcher
	catalog   *labels.Catalog
	cfg       *config.Config
	log       *slog.Logger

	textTmpl *texttemplate.Template
	htmlTmpl *htmltemplate.Template
}

// NewSenderService создает новый экземпляр SenderService.
// Шаблоны писем встроены в бинарник и разбираются один раз при создании.
func NewSenderService(cfg *config.Config, log *slog.Logger, transport smtp.TransportInterface,
	matcher Matcher, catalog *labels.Catalog) (*SenderService, error) {
	const op = "services.NewSenderService"

	textTmpl, err := texttemplate.New("").Funcs(templateFuncs).ParseFS(templatesFS, "templates/*.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	htmlTmpl, err := htmltemplate.New("").Funcs(templateFuncs).ParseFS(templatesFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &SenderService{
		transport: transport,
		matcher:   matcher,
		catalog:   catalog,
		cfg:       cfg,
		log:       log,
		textTmpl:  textTmpl,
		htmlTmpl:  htmlTmpl,
	}, nil
}

type confirmData struct {
	Name       string
	ConfirmURL string
}

type newArrivalData struct {
	Name        string
	GoodName    string
	Value       float64
	Description string
	LabelNames  []string
	GoodURL     string
}

// HandleUserRegistered обрабатывает событие регистрации: рендерит письмо
// с ссылкой подтверждения и отправляет его единственному адресату.
// Возвращает nil и при неудачной доставке: повторная отправка не
// предусмотрена, пользователь может запросить письмо заново.
func (s *SenderService) HandleUserRegistered(body []byte) error {
	var event events.UserRegistered
	if err := json.Unmarshal(body, &event); err != nil {
		s.log.Error("failed to unmarshal registration event", sl.Err(err))
		return nil
	}

	confirmURL := s.cfg.PublicBaseURL + "/user/confirm?token=" + url.QueryEscape(event.ConfirmationToken)
	data := confirmData{Name: event.Name, ConfirmURL: confirmURL}

	textBody, htmlBody, err := s.render("confirm", data)
	if err != nil {
		s.log.Error("failed to render confirmation email",
			slog.Int64("user_id", event.UserID), sl.Err(err))
		return nil
	}

	subject := "Подтверждение почты на BUPT Toolman"
	to := mail.Address{Name: event.Name, Email: event.Email}
	if err := s.sendEmail(to, subject, textBody, htmlBody); err != nil {
		metrics.EmailsFailedTotal.WithLabelValues("registration").Inc()
		s.log.Error("failed to send confirmation email",
			slog.Int64("user_id", event.UserID), sl.Err(err))
		return nil
	}
	metrics.EmailsSentTotal.WithLabelValues("registration").Inc()
	return nil
}

// HandleListingCreated обрабатывает событие о новом объявлении: матчер
// находит верифицированных пользователей с пересекающимися подписками,
// каждому отправляется отдельное письмо. Неудачная доставка одному
// адресату логируется и не прерывает рассылку остальным.
func (s *SenderService) HandleListingCreated(body []byte) error {
	var event events.ListingCreated
	if err := json.Unmarshal(body, &event); err != nil {
		s.log.Error("failed to unmarshal listing event", sl.Err(err))
		return nil
	}

	recipients, err := s.matcher.FindUsersInterestedIn(context.Background(), event.Labels)
	if err != nil {
		s.log.Error("failed to match recipients",
			slog.Int64("good_id", event.GoodID), sl.Err(err))
		return nil
	}
	if len(recipients) == 0 {
		return nil
	}

	var labelNames []string
	for _, id := range event.Labels {
		if name, ok := s.catalog.Name(id); ok {
			labelNames = append(labelNames, name)
		}
	}
	goodURL := fmt.Sprintf("%s/goods/%d", s.cfg.FrontendBaseURL, event.GoodID)
	subject := fmt.Sprintf("Новое объявление: %s", event.Name)

	sent := 0
	for _, user := range recipients {
		data := newArrivalData{
			Name:        user.Name,
			GoodName:    event.Name,
			Value:       event.Value,
			Description: event.Description,
			LabelNames:  labelNames,
			GoodURL:     goodURL,
		}
		textBody, htmlBody, err := s.render("new_arrival", data)
		if err != nil {
			s.log.Error("failed to render listing email",
				slog.Int64("good_id", event.GoodID), sl.Err(err))
			return nil
		}
		to := mail.Address{Name: user.Name, Email: user.Email}
		if err := s.sendEmail(to, subject, textBody, htmlBody); err != nil {
			metrics.EmailsFailedTotal.WithLabelValues("listing").Inc()
			s.log.Error("failed to send listing email",
				slog.Int64("good_id", event.GoodID),
				slog.Int64("user_id", user.ID), sl.Err(err))
			continue
		}
		metrics.EmailsSentTotal.WithLabelValues("listing").Inc()
		sent++
	}

	s.log.Info("listing notification dispatched",
		slog.Int64("good_id", event.GoodID),
		slog.Int("matched", len(recipients)),
		slog.Int("sent", sent))
	return nil
}

// render исполняет пару шаблонов name.txt.tmpl / name.html.tmpl.
// Любая ошибка рендеринга означает, что письмо не отправляется вовсе.
func (s *SenderService) render(name string, data any) (textBody, htmlBody string, err error) {
	var text strings.Builder
	if err := s.textTmpl.ExecuteTemplate(&text, name+".txt.tmpl", data); err != nil {
		return "", "", fmt.Errorf("render %s text: %w", name, err)
	}
	var html strings.Builder
	if err := s.htmlTmpl.ExecuteTemplate(&html, name+".html.tmpl", data); err != nil {
		return "", "", fmt.Errorf("render %s html: %w", name, err)
	}
	return text.String(), html.String(), nil
}

func (s *SenderService) sendEmail(to mail.Address, subject, textBody, htmlBody string) error {
	from := mail.Address{Name: s.cfg.SMTPSenderName, Email: s.transport.GetSMTPUser()}
	msg := mail.BuildMessage(from, to, subject, textBody, htmlBody)

	client, err := s.transport.Connect()
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(from.Email); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := client.Rcpt(to.Email); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}
	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err = wc.Write(msg); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	if err = wc.Close(); err != nil {
		return fmt.Errorf("close body: %w", err)
	}
	if err = client.Quit(); err != nil {
		return fmt.Errorf("quit: %w", err)
	}

	s.log.Info("email sent successfully", slog.String("to", to.Email))
	return nil
}
