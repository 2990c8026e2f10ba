package n8n

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

// Caminhos dos webhooks de workflow publicados na instância n8n.
const (
	WorkflowSDR       = "webhook/sdr-webhook"
	WorkflowMudaEtapa = "webhook/muda-etapa-webhook"
)

// Client encapsula chamadas à instância n8n da plataforma.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Config descreve o endpoint do motor de workflows.
type Config struct {
	BaseURL string
	APIKey  string
}

// New cria o cliente. A API key é opcional: instâncias abertas só validam URL.
func New(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, errors.New("n8n: base url obrigatória")
	}

	return &Client{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		baseURL:    strings.TrimRight(base, "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
	}, nil
}

// Ping verifica se a instância responde.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("n8n: status %d", resp.StatusCode)
	}
	return nil
}

// DispararWorkflow envia um payload para um webhook de workflow do n8n.
func (c *Client) DispararWorkflow(ctx context.Context, path string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := c.baseURL + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-N8N-API-KEY", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("n8n: status %d", resp.StatusCode)
	}
	return nil
}
