package util

import "testing"

func TestValidateEmail(t *testing.T) {
	validos := []string{"contato@alveseco.com.br", "a@b.co", "nome.sobrenome@empresa.com"}
	for _, email := range validos {
		if err := ValidateEmail(email); err != nil {
			t.Errorf("ValidateEmail(%q) = %v, esperado nil", email, err)
		}
	}

	invalidos := []string{"", "   ", "sem-arroba", "@dominio.com"}
	for _, email := range invalidos {
		if err := ValidateEmail(email); err == nil {
			t.Errorf("ValidateEmail(%q) deveria falhar", email)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("123456"); err != nil {
		t.Errorf("senha com 6 caracteres deveria passar: %v", err)
	}
	if err := ValidatePassword("12345"); err == nil {
		t.Error("senha com 5 caracteres deveria falhar")
	}
}

func TestValidateCNPJ(t *testing.T) {
	if err := ValidateCNPJ(""); err != nil {
		t.Errorf("cnpj vazio é opcional: %v", err)
	}
	if err := ValidateCNPJ("12.345.678/0001-95"); err != nil {
		t.Errorf("cnpj formatado com 14 dígitos deveria passar: %v", err)
	}
	if err := ValidateCNPJ("12345678000195"); err != nil {
		t.Errorf("cnpj sem pontuação deveria passar: %v", err)
	}
	if err := ValidateCNPJ("123"); err == nil {
		t.Error("cnpj curto deveria falhar")
	}
}
