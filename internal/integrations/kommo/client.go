package kommo

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

// Client encapsula chamadas à API do Kommo CRM de um cliente específico.
type Client struct {
	httpClient *http.Client
	token      string
	baseURL    string
}

// Config descreve as credenciais do CRM.
type Config struct {
	Token  string
	Domain string
}

// New cria um cliente para o subdomínio Kommo informado.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("kommo: token obrigatório")
	}
	domain := strings.TrimSpace(cfg.Domain)
	if domain == "" {
		return nil, errors.New("kommo: domínio obrigatório")
	}
	if !strings.Contains(domain, ".") {
		domain += ".kommo.com"
	}

	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		token:      cfg.Token,
		baseURL:    "https://" + strings.TrimRight(domain, "/"),
	}, nil
}

// Conta é o retorno mínimo de /api/v4/account.
type Conta struct {
	ID        int64  `json:"id"`
	Nome      string `json:"name"`
	Subdomain string `json:"subdomain"`
}

// TestarConexao consulta a conta para validar token e domínio.
func (c *Client) TestarConexao(ctx context.Context) (*Conta, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v4/account", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, errors.New("kommo: credenciais recusadas")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kommo: status %d", resp.StatusCode)
	}

	var conta Conta
	if err := json.NewDecoder(resp.Body).Decode(&conta); err != nil {
		return nil, err
	}
	return &conta, nil
}

// Pipeline representa um funil do CRM.
type Pipeline struct {
	ID   int64  `json:"id"`
	Nome string `json:"name"`
}

// ListarPipelines devolve os funis da conta, usados no portal para montar o
// mapeamento de tags.
func (c *Client) ListarPipelines(ctx context.Context) ([]Pipeline, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v4/leads/pipelines", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kommo: status %d", resp.StatusCode)
	}

	var payload struct {
		Embedded struct {
			Pipelines []Pipeline `json:"pipelines"`
		} `json:"_embedded"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	return payload.Embedded.Pipelines, nil
}

// Etapa representa um status dentro de um funil.
type Etapa struct {
	ID   int64  `json:"id"`
	Nome string `json:"name"`
}

// ListarEtapas devolve os statuses de um funil específico.
func (c *Client) ListarEtapas(ctx context.Context, pipelineID string) ([]Etapa, error) {
	url := fmt.Sprintf("%s/api/v4/leads/pipelines/%s/statuses", c.baseURL, pipelineID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("kommo: funil %s não encontrado", pipelineID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kommo: status %d", resp.StatusCode)
	}

	var payload struct {
		Embedded struct {
			Statuses []Etapa `json:"statuses"`
		} `json:"_embedded"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	return payload.Embedded.Statuses, nil
}

// AtualizarEtapaLead move um lead para outra etapa do funil.
func (c *Client) AtualizarEtapaLead(ctx context.Context, leadID, statusID, pipelineID int64) error {
	body, err := json.Marshal(map[string]any{
		"status_id":   statusID,
		"pipeline_id": pipelineID,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/v4/leads/%d", c.baseURL, leadID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("kommo: lead %d não encontrado", leadID)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("kommo: status %d", resp.StatusCode)
	}
	return nil
}
