package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/audit"
	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/cliente"
	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/quota"
)

type clienteStub struct {
	clientes map[uuid.UUID]*cliente.Cliente
	configs  map[uuid.UUID]*cliente.Configuracao
	tags     map[uuid.UUID][]cliente.Tag
}

func (s *clienteStub) Buscar(_ context.Context, id uuid.UUID) (*cliente.Cliente, error) {
	c, ok := s.clientes[id]
	if !ok {
		return nil, cliente.ErrNotFound
	}
	return c, nil
}

func (s *clienteStub) BuscarConfiguracao(_ context.Context, id uuid.UUID) (*cliente.Configuracao, error) {
	c, ok := s.configs[id]
	if !ok {
		return nil, cliente.ErrConfigNotFound
	}
	return c, nil
}

func (s *clienteStub) ListarTagsAtivas(_ context.Context, id uuid.UUID) ([]cliente.Tag, error) {
	return s.tags[id], nil
}

// ledgerStub simula o controle de cota com a mesma semântica atômica do
// banco: admissão e incremento sob o mesmo lock.
type ledgerStub struct {
	mu       sync.Mutex
	controle *quota.Controle
}

func (l *ledgerStub) Status(context.Context, uuid.UUID) (*quota.Controle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.controle == nil {
		return nil, quota.ErrNotFound
	}
	c := *l.controle
	return &c, nil
}

func (l *ledgerStub) Consumir(context.Context, uuid.UUID) (*quota.Controle, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.controle == nil {
		return nil, false, quota.ErrNotFound
	}
	admitido := l.controle.UsarEvento()
	c := *l.controle
	return &c, admitido, nil
}

type auditStub struct {
	mu    sync.Mutex
	acoes []string
}

func (a *auditStub) Registrar(_ context.Context, _ audit.Ator, acao string, _ *string, _ audit.Origem) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acoes = append(a.acoes, acao)
}

func (a *auditStub) registrado(acao string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, registrada := range a.acoes {
		if registrada == acao {
			return true
		}
	}
	return false
}

func str(s string) *string { return &s }

func novoAmbiente(limite, utilizados int) (uuid.UUID, *clienteStub, *ledgerStub, *auditStub, *Service) {
	id := uuid.New()
	clientes := &clienteStub{
		clientes: map[uuid.UUID]*cliente.Cliente{
			id: {ID: id, Nome: "Alves Eco", Email: "contato@alveseco.com.br", Ativo: true, Aprovado: true},
		},
		configs: map[uuid.UUID]*cliente.Configuracao{
			id: {
				ClienteID:    id,
				KommoToken:   str("tok-123"),
				KommoDomain:  str("alveseco.kommo.com"),
				ChatGPTModel: "gpt-4o-mini",
				FunilIDs:     []string{"11", "22"},
			},
		},
		tags: map[uuid.UUID][]cliente.Tag{
			id: {
				{ClienteID: id, Nome: "lead-quente", FunilID: "11", PipelineID: "77", Ativa: true},
			},
		},
	}
	cotas := &ledgerStub{controle: &quota.Controle{ClienteID: id, LimiteEventos: limite, EventosUtilizados: utilizados, Ativo: true}}
	auditor := &auditStub{}
	svc := NewService(clientes, cotas, auditor, zerolog.Nop())
	return id, clientes, cotas, auditor, svc
}

func TestResolverClienteObrigatorio(t *testing.T) {
	_, _, _, _, svc := novoAmbiente(900, 0)

	_, err := svc.Resolver(context.Background(), Entrada{ClienteID: "   "})
	if err != ErrClienteObrigatorio {
		t.Fatalf("esperado ErrClienteObrigatorio, veio %v", err)
	}
}

func TestResolverClienteInvalido(t *testing.T) {
	id, clientes, _, auditor, svc := novoAmbiente(900, 0)

	t.Run("id não parseável", func(t *testing.T) {
		_, err := svc.Resolver(context.Background(), Entrada{ClienteID: "nao-e-uuid"})
		if err != ErrClienteInvalido {
			t.Fatalf("esperado ErrClienteInvalido, veio %v", err)
		}
	})

	t.Run("inexistente", func(t *testing.T) {
		_, err := svc.Resolver(context.Background(), Entrada{ClienteID: uuid.NewString()})
		if err != ErrClienteInvalido {
			t.Fatalf("esperado ErrClienteInvalido, veio %v", err)
		}
	})

	t.Run("não aprovado", func(t *testing.T) {
		clientes.clientes[id].Aprovado = false
		defer func() { clientes.clientes[id].Aprovado = true }()

		_, err := svc.Resolver(context.Background(), Entrada{ClienteID: id.String()})
		if err != ErrClienteInvalido {
			t.Fatalf("esperado ErrClienteInvalido, veio %v", err)
		}
	})

	t.Run("inativo", func(t *testing.T) {
		clientes.clientes[id].Ativo = false
		defer func() { clientes.clientes[id].Ativo = true }()

		_, err := svc.Resolver(context.Background(), Entrada{ClienteID: id.String()})
		if err != ErrClienteInvalido {
			t.Fatalf("esperado ErrClienteInvalido, veio %v", err)
		}
	})

	if auditor.registrado("webhook_executado") {
		t.Error("recusa não pode gerar registro de execução")
	}
}

func TestResolverAuditaRecusas(t *testing.T) {
	id, _, _, auditor, svc := novoAmbiente(10, 10)

	if _, err := svc.Resolver(context.Background(), Entrada{ClienteID: ""}); err != ErrClienteObrigatorio {
		t.Fatalf("esperado ErrClienteObrigatorio, veio %v", err)
	}
	if !auditor.registrado("webhook_sem_cliente_id") {
		t.Error("requisição sem clienteId deveria registrar webhook_sem_cliente_id")
	}

	if _, err := svc.Resolver(context.Background(), Entrada{ClienteID: uuid.NewString()}); err != ErrClienteInvalido {
		t.Fatalf("esperado ErrClienteInvalido, veio %v", err)
	}
	if !auditor.registrado("webhook_cliente_invalido") {
		t.Error("cliente desconhecido deveria registrar webhook_cliente_invalido")
	}

	if _, err := svc.Resolver(context.Background(), Entrada{ClienteID: id.String()}); err != ErrLimiteExcedido {
		t.Fatalf("esperado ErrLimiteExcedido, veio %v", err)
	}
	if !auditor.registrado("webhook_limite_excedido") {
		t.Error("cota esgotada deveria registrar webhook_limite_excedido")
	}

	if auditor.registrado("webhook_executado") {
		t.Error("nenhuma recusa pode gerar registro de execução")
	}
}

func TestResolverConfiguracaoAusente(t *testing.T) {
	id, clientes, cotas, _, svc := novoAmbiente(900, 0)
	delete(clientes.configs, id)

	_, err := svc.Resolver(context.Background(), Entrada{ClienteID: id.String()})
	if err != ErrConfiguracaoAusente {
		t.Fatalf("esperado ErrConfiguracaoAusente, veio %v", err)
	}
	if cotas.controle.EventosUtilizados != 0 {
		t.Errorf("falha de configuração não pode consumir cota: got %d", cotas.controle.EventosUtilizados)
	}
}

func TestResolverLimiteExcedido(t *testing.T) {
	id, _, cotas, auditor, svc := novoAmbiente(10, 10)

	_, err := svc.Resolver(context.Background(), Entrada{ClienteID: id.String()})
	if err != ErrLimiteExcedido {
		t.Fatalf("esperado ErrLimiteExcedido, veio %v", err)
	}
	if cotas.controle.EventosUtilizados != 10 {
		t.Errorf("recusa não pode alterar o contador: got %d", cotas.controle.EventosUtilizados)
	}
	if auditor.registrado("webhook_executado") {
		t.Error("recusa não pode gerar registro de execução")
	}
}

func TestResolverSemControleAtivo(t *testing.T) {
	id, _, cotas, auditor, svc := novoAmbiente(900, 0)
	cotas.controle = nil

	resolucao, err := svc.Resolver(context.Background(), Entrada{ClienteID: id.String()})
	if err != nil {
		t.Fatalf("cliente sem controle ativo opera sem restrição: %v", err)
	}
	if resolucao.EventosRestantes != quota.LimiteIlimitado {
		t.Errorf("eventos_restantes = %d, esperado %d", resolucao.EventosRestantes, quota.LimiteIlimitado)
	}
	if cotas.controle != nil {
		t.Error("resolução sem controle não pode criar um controle")
	}
	if !auditor.registrado("webhook_executado") {
		t.Error("sucesso deveria registrar webhook_executado")
	}
}

func TestResolverSucesso(t *testing.T) {
	id, _, cotas, auditor, svc := novoAmbiente(900, 10)

	dados := map[string]any{"mensagem": "olá", "telefone": "+5511999999999"}
	resolucao, err := svc.Resolver(context.Background(), Entrada{ClienteID: id.String(), Dados: dados})
	if err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}

	if resolucao.ClienteID != id {
		t.Errorf("cliente_id = %s, esperado %s", resolucao.ClienteID, id)
	}
	if resolucao.Configuracoes.KommoToken != "tok-123" {
		t.Errorf("kommo_token = %q", resolucao.Configuracoes.KommoToken)
	}
	if resolucao.Configuracoes.ChatGPTModel != "gpt-4o-mini" {
		t.Errorf("chatgpt_model = %q", resolucao.Configuracoes.ChatGPTModel)
	}
	if len(resolucao.TagsPermitidas) != 1 || resolucao.TagsPermitidas[0].Nome != "lead-quente" {
		t.Errorf("tags_permitidas inesperadas: %+v", resolucao.TagsPermitidas)
	}
	if resolucao.EventosRestantes != 889 {
		t.Errorf("eventos_restantes = %d, esperado 889", resolucao.EventosRestantes)
	}
	if got := resolucao.WebhookData["mensagem"]; got != "olá" {
		t.Errorf("webhook_data não ecoado: %v", got)
	}

	if cotas.controle.EventosUtilizados != 11 {
		t.Errorf("consumo deveria incrementar o contador: got %d", cotas.controle.EventosUtilizados)
	}
	if !auditor.registrado("webhook_executado") {
		t.Error("sucesso deveria registrar webhook_executado")
	}
}

func TestResolverIlimitado(t *testing.T) {
	id, _, cotas, _, svc := novoAmbiente(quota.LimiteIlimitado, 0)

	for i := 0; i < 5; i++ {
		if _, err := svc.Resolver(context.Background(), Entrada{ClienteID: id.String()}); err != nil {
			t.Fatalf("erro inesperado: %v", err)
		}
	}
	if cotas.controle.EventosUtilizados != 0 {
		t.Errorf("controle ilimitado não incrementa: got %d", cotas.controle.EventosUtilizados)
	}
}

func TestResolverConcorrente(t *testing.T) {
	const limite = 5
	const tentativas = 20

	id, _, cotas, _, svc := novoAmbiente(limite, 0)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		admitidos int
		recusados int
	)

	for i := 0; i < tentativas; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Resolver(context.Background(), Entrada{ClienteID: id.String()})
			mu.Lock()
			defer mu.Unlock()
			switch err {
			case nil:
				admitidos++
			case ErrLimiteExcedido:
				recusados++
			default:
				t.Errorf("erro inesperado: %v", err)
			}
		}()
	}
	wg.Wait()

	if admitidos != limite {
		t.Errorf("admitidos = %d, esperado %d", admitidos, limite)
	}
	if recusados != tentativas-limite {
		t.Errorf("recusados = %d, esperado %d", recusados, tentativas-limite)
	}
	if cotas.controle.EventosUtilizados != limite {
		t.Errorf("contador final = %d, esperado %d", cotas.controle.EventosUtilizados, limite)
	}
}

func TestVerificarNaoExpoeCredenciaisNemConsome(t *testing.T) {
	id, _, cotas, auditor, svc := novoAmbiente(900, 10)

	visao, err := svc.Verificar(context.Background(), id.String())
	if err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}

	if visao.ClienteNome != "Alves Eco" {
		t.Errorf("cliente_nome = %q, esperado Alves Eco", visao.ClienteNome)
	}
	if visao.Configuracoes.KommoDomain != "alveseco.kommo.com" {
		t.Errorf("kommo_domain = %q", visao.Configuracoes.KommoDomain)
	}
	if visao.EventosRestantes != 890 {
		t.Errorf("eventos_restantes = %d, esperado 890", visao.EventosRestantes)
	}
	if len(visao.TagsPermitidas) != 1 {
		t.Errorf("tags_permitidas inesperadas: %+v", visao.TagsPermitidas)
	}

	raw, err := json.Marshal(visao)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, campo := range []string{"kommo_token", "chatgpt_api_key"} {
		if bytes.Contains(raw, []byte(campo)) {
			t.Errorf("consulta de configuração não pode expor %s", campo)
		}
	}

	if cotas.controle.EventosUtilizados != 10 {
		t.Errorf("consulta não pode consumir cota: got %d", cotas.controle.EventosUtilizados)
	}
	if auditor.registrado("webhook_executado") {
		t.Error("consulta não pode gerar registro de execução")
	}
}

func TestVerificarSemControleAtivoInformaIlimitado(t *testing.T) {
	id, _, cotas, _, svc := novoAmbiente(900, 0)
	cotas.controle = nil

	visao, err := svc.Verificar(context.Background(), id.String())
	if err != nil {
		t.Fatalf("cota ausente não é erro na consulta: %v", err)
	}
	if visao.EventosRestantes != quota.LimiteIlimitado {
		t.Errorf("eventos_restantes = %d, esperado %d", visao.EventosRestantes, quota.LimiteIlimitado)
	}
}

func TestTestarNaoConsome(t *testing.T) {
	id, _, cotas, _, svc := novoAmbiente(10, 3)

	diagnostico, err := svc.Testar(context.Background(), id.String())
	if err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}
	if !diagnostico.Elegivel {
		t.Error("cliente elegível deveria passar no teste")
	}
	if diagnostico.EventosRestantes != 7 {
		t.Errorf("eventos_restantes = %d, esperado 7", diagnostico.EventosRestantes)
	}
	// O stub tem kommo mas não tem chave do ChatGPT.
	if diagnostico.ConfiguracaoCompleta {
		t.Error("configuração sem chave ChatGPT não é completa")
	}
	if cotas.controle.EventosUtilizados != 3 {
		t.Errorf("teste não pode consumir cota: got %d", cotas.controle.EventosUtilizados)
	}
}

func TestTestarComCotaEsgotada(t *testing.T) {
	id, _, _, _, svc := novoAmbiente(5, 5)

	if _, err := svc.Testar(context.Background(), id.String()); err != ErrLimiteExcedido {
		t.Fatalf("esperado ErrLimiteExcedido, veio %v", err)
	}
}

func TestTestarSemControleAtivo(t *testing.T) {
	id, _, cotas, _, svc := novoAmbiente(5, 5)
	cotas.controle = nil

	diagnostico, err := svc.Testar(context.Background(), id.String())
	if err != nil {
		t.Fatalf("cliente sem controle ativo opera sem restrição: %v", err)
	}
	if !diagnostico.Elegivel {
		t.Error("sem controle ativo o teste deveria aprovar")
	}
	if diagnostico.EventosRestantes != quota.LimiteIlimitado {
		t.Errorf("eventos_restantes = %d, esperado %d", diagnostico.EventosRestantes, quota.LimiteIlimitado)
	}
}

func TestHandlerStatusHTTP(t *testing.T) {
	id, clientes, cotas, _, svc := novoAmbiente(10, 0)

	router := chi.NewRouter()
	router.Route("/webhook", NewHandler(svc).RegisterRoutes)

	post := func(t *testing.T, path string, body map[string]any) *httptest.ResponseRecorder {
		t.Helper()
		raw, _ := json.Marshal(body)
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	errorCode := func(t *testing.T, rec *httptest.ResponseRecorder) string {
		t.Helper()
		var envelope struct {
			Error *struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("resposta não é JSON: %v", err)
		}
		if envelope.Error == nil {
			return ""
		}
		return envelope.Error.Code
	}

	t.Run("sem clienteId devolve 400", func(t *testing.T) {
		rec := post(t, "/webhook/n8n", map[string]any{"mensagem": "oi"})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
		if code := errorCode(t, rec); code != "VALIDATION" {
			t.Errorf("code = %q", code)
		}
	})

	t.Run("cliente desconhecido devolve 404", func(t *testing.T) {
		rec := post(t, "/webhook/n8n/"+uuid.NewString(), nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d", rec.Code)
		}
		if code := errorCode(t, rec); code != "NOT_FOUND" {
			t.Errorf("code = %q", code)
		}
	})

	t.Run("cota esgotada devolve 429", func(t *testing.T) {
		cotas.controle.EventosUtilizados = 10
		defer func() { cotas.controle.EventosUtilizados = 0 }()

		rec := post(t, "/webhook/n8n/"+id.String(), nil)
		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("status = %d", rec.Code)
		}
		if code := errorCode(t, rec); code != "RATE_LIMIT" {
			t.Errorf("code = %q", code)
		}
	})

	t.Run("clienteId no corpo devolve 200", func(t *testing.T) {
		rec := post(t, "/webhook/n8n", map[string]any{"clienteId": id.String(), "mensagem": "oi"})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, corpo %s", rec.Code, rec.Body.String())
		}

		var envelope struct {
			Data Resolucao `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("resposta não é JSON: %v", err)
		}
		if envelope.Data.ClienteID != id {
			t.Errorf("cliente_id = %s", envelope.Data.ClienteID)
		}
		if envelope.Data.WebhookData["mensagem"] != "oi" {
			t.Errorf("webhook_data não ecoado: %v", envelope.Data.WebhookData)
		}
	})

	t.Run("configuração ausente devolve 404", func(t *testing.T) {
		config := clientes.configs[id]
		delete(clientes.configs, id)
		defer func() { clientes.configs[id] = config }()

		rec := post(t, "/webhook/n8n/"+id.String(), nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("rota sdr responde como n8n", func(t *testing.T) {
		rec := post(t, "/webhook/sdr/"+id.String(), map[string]any{"mensagem": "oi"})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, corpo %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("consulta de configuração devolve 200 sem credenciais", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/webhook/config/"+id.String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, corpo %s", rec.Code, rec.Body.String())
		}
		if bytes.Contains(rec.Body.Bytes(), []byte("kommo_token")) {
			t.Error("resposta não pode expor kommo_token")
		}
	})

	t.Run("teste do webhook devolve 200", func(t *testing.T) {
		rec := post(t, "/webhook/test/"+id.String(), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, corpo %s", rec.Code, rec.Body.String())
		}

		var envelope struct {
			Data Diagnostico `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("resposta não é JSON: %v", err)
		}
		if !envelope.Data.Elegivel {
			t.Error("cliente elegível deveria passar no teste")
		}
	})
}
