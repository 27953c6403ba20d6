// Package token генерирует одноразовые токены подтверждения регистрации.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// New возвращает криптографически случайный URL-безопасный токен
// из 32 байт энтропии. Токен неугадываем и используется ровно один раз:
// хранилище обнуляет его при верификации.
func New() (string, error) {
	const op = "token.New"

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
