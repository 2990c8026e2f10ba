package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

const (
	SeveridadeAviso   = "warning"
	SeveridadeCritica = "critical"
)

// Alerta é a notificação emitida quando o consumo de um cliente cruza o limiar.
type Alerta struct {
	Titulo     string
	Texto      string
	Severidade string
}

// Notifier entrega alertas em um canal externo.
type Notifier interface {
	Notificar(ctx context.Context, alerta Alerta) error
}

// SlackNotifier publica alertas em um webhook de entrada do Slack.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewSlackNotifier devolve nil quando não há webhook configurado; o monitor
// trata notifier ausente como "somente log".
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	if webhookURL == "" {
		return nil
	}
	return &SlackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

// Notificar envia o alerta formatado para o webhook.
func (s *SlackNotifier) Notificar(ctx context.Context, alerta Alerta) error {
	if s == nil || s.webhookURL == "" {
		return errors.New("webhook do slack não configurado")
	}

	corpo, err := json.Marshal(map[string]any{"text": formatarAlerta(alerta)})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(corpo))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return errors.New("slack recusou a notificação")
	}
	return nil
}

func formatarAlerta(alerta Alerta) string {
	emoji := ":information_source:"
	switch alerta.Severidade {
	case SeveridadeAviso:
		emoji = ":warning:"
	case SeveridadeCritica:
		emoji = ":rotating_light:"
	}
	if alerta.Titulo != "" {
		return emoji + " *" + alerta.Titulo + "*\n" + alerta.Texto
	}
	return emoji + " " + alerta.Texto
}
