package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// NovoRefreshToken sorteia um token opaco de 256 bits e devolve também o hash
// que vai para o armazenamento; o valor cru só viaja até o chamador.
func NovoRefreshToken() (cru string, hash string, err error) {
	buf := make([]byte, 32)
	if _, err = rand.Read(buf); err != nil {
		return "", "", err
	}
	cru = base64.RawURLEncoding.EncodeToString(buf)
	return cru, HashRefresh(cru), nil
}

// HashRefresh reduz o token cru ao SHA-256 em base64 URL-safe.
func HashRefresh(cru string) string {
	soma := sha256.Sum256([]byte(cru))
	return base64.RawURLEncoding.EncodeToString(soma[:])
}

// ChaveRefresh monta a chave Redis da sessão: refresh:<audiência>:<hash>.
func ChaveRefresh(audience, hash string) string {
	return fmt.Sprintf("refresh:%s:%s", audience, hash)
}
