package auth

import "github.com/alexedwards/argon2id"

// Os parâmetros ficam embutidos no próprio hash, então podem evoluir sem
// invalidar senhas já gravadas.
var parametrosSenha = &argon2id.Params{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// HashSenha gera o hash Argon2id da senha em texto claro.
func HashSenha(senha string) (string, error) {
	return argon2id.CreateHash(senha, parametrosSenha)
}

// VerificarSenha compara a senha informada com o hash armazenado.
func VerificarSenha(senha, hash string) (bool, error) {
	return argon2id.ComparePasswordAndHash(senha, hash)
}
