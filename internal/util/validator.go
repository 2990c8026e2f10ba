package util

import (
	"errors"
	"net/mail"
	"strings"
	"unicode"
)

// ValidateEmail retorna erro para e-mails inválidos.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("email obrigatório")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return errors.New("email inválido")
	}
	return nil
}

// ValidatePassword verifica requisitos mínimos de senha.
func ValidatePassword(password string) error {
	if len(password) < 6 {
		return errors.New("senha deve ter pelo menos 6 caracteres")
	}
	return nil
}

// ValidateCNPJ aceita vazio (opcional) ou 14 dígitos após remover pontuação.
func ValidateCNPJ(cnpj string) error {
	cnpj = strings.TrimSpace(cnpj)
	if cnpj == "" {
		return nil
	}
	digits := 0
	for _, r := range cnpj {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if digits != 14 {
		return errors.New("cnpj inválido")
	}
	return nil
}

// RequireString garante string não vazia.
func RequireString(value, field string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New(field + " obrigatório")
	}
	return nil
}
