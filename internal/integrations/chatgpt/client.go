package chatgpt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultAPIBase = "https://api.openai.com/v1"

// Client encapsula chamadas à API da OpenAI com a chave de um cliente.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

// Config descreve as credenciais da integração.
type Config struct {
	APIKey  string
	APIBase string
}

// New cria o cliente da API.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("chatgpt: api key obrigatória")
	}

	base := strings.TrimSpace(cfg.APIBase)
	if base == "" {
		base = defaultAPIBase
	}

	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(base, "/"),
	}, nil
}

// TestarConexao valida a chave consultando o modelo informado.
func (c *Client) TestarConexao(ctx context.Context, model string) error {
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o-mini"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models/"+model, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized:
		return errors.New("chatgpt: chave recusada")
	case http.StatusNotFound:
		return fmt.Errorf("chatgpt: modelo %q não disponível", model)
	default:
		return fmt.Errorf("chatgpt: status %d", resp.StatusCode)
	}
}

// Mensagem compõe o histórico de uma chamada de chat.
type Mensagem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completar executa uma chamada de chat completion simples.
func (c *Client) Completar(ctx context.Context, model string, mensagens []Mensagem) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model":    model,
		"messages": mensagens,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chatgpt: status %d", resp.StatusCode)
	}

	var payload struct {
		Choices []struct {
			Message Mensagem `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if len(payload.Choices) == 0 {
		return "", errors.New("chatgpt: resposta sem choices")
	}
	return payload.Choices[0].Message.Content, nil
}
