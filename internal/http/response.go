package http

import (
	"encoding/json"
	"net/http"
)

// envelope é o formato único de resposta da API: exatamente um entre data e
// error vem preenchido.
type envelope struct {
	Data  any        `json:"data"`
	Error *erroCorpo `json:"error"`
}

type erroCorpo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// WriteJSON responde sucesso com o dado no envelope padrão.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	responder(w, status, envelope{Data: data})
}

// WriteError responde uma falha normalizada; details é opcional.
func WriteError(w http.ResponseWriter, status int, code, message string, details any) {
	responder(w, status, envelope{Error: &erroCorpo{Code: code, Message: message, Details: details}})
}

func responder(w http.ResponseWriter, status int, corpo envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(corpo)
}
