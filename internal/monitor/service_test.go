package monitor

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/config"
	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/quota"
)

type ledgerStub struct {
	controles []quota.Controle
}

func (s *ledgerStub) ListarAtivos(context.Context) ([]quota.Controle, error) {
	return s.controles, nil
}

type notifierStub struct {
	alertas []Alerta
}

func (s *notifierStub) Notificar(_ context.Context, alerta Alerta) error {
	s.alertas = append(s.alertas, alerta)
	return nil
}

func novoMonitor(controles []quota.Controle) (*Service, *ledgerStub, *notifierStub) {
	cotas := &ledgerStub{controles: controles}
	notifier := &notifierStub{}
	cfg := config.MonitoringConfig{Enabled: true, UsageThreshold: 0.9}
	return NewService(cotas, cfg, zerolog.Nop(), notifier), cotas, notifier
}

func TestRunOnceAlertaAcimaDoLimiar(t *testing.T) {
	controle := quota.Controle{ID: uuid.New(), ClienteID: uuid.New(), LimiteEventos: 100, EventosUtilizados: 95, Ativo: true}
	svc, _, notifier := novoMonitor([]quota.Controle{controle})

	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}

	if len(notifier.alertas) != 1 {
		t.Fatalf("alertas = %d, esperado 1", len(notifier.alertas))
	}
	if notifier.alertas[0].Severidade != SeveridadeAviso {
		t.Errorf("severidade = %q, esperado warning", notifier.alertas[0].Severidade)
	}
}

func TestRunOnceAbaixoDoLimiarNaoAlerta(t *testing.T) {
	controle := quota.Controle{ID: uuid.New(), ClienteID: uuid.New(), LimiteEventos: 100, EventosUtilizados: 50, Ativo: true}
	svc, _, notifier := novoMonitor([]quota.Controle{controle})

	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}
	if len(notifier.alertas) != 0 {
		t.Errorf("alertas = %d, esperado 0", len(notifier.alertas))
	}
}

func TestRunOnceEsgotadoEhCritico(t *testing.T) {
	controle := quota.Controle{ID: uuid.New(), ClienteID: uuid.New(), LimiteEventos: 100, EventosUtilizados: 100, Ativo: true}
	svc, _, notifier := novoMonitor([]quota.Controle{controle})

	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}
	if len(notifier.alertas) != 1 || notifier.alertas[0].Severidade != SeveridadeCritica {
		t.Fatalf("esperado alerta critical, veio %+v", notifier.alertas)
	}
}

func TestRunOnceNaoRepeteAlerta(t *testing.T) {
	controle := quota.Controle{ID: uuid.New(), ClienteID: uuid.New(), LimiteEventos: 100, EventosUtilizados: 95, Ativo: true}
	svc, _, notifier := novoMonitor([]quota.Controle{controle})

	for i := 0; i < 3; i++ {
		if err := svc.RunOnce(context.Background()); err != nil {
			t.Fatalf("erro inesperado: %v", err)
		}
	}
	if len(notifier.alertas) != 1 {
		t.Errorf("alertas = %d, esperado 1 (dedup por controle)", len(notifier.alertas))
	}
}

func TestRunOnceRearmaAposNovoCiclo(t *testing.T) {
	controle := quota.Controle{ID: uuid.New(), ClienteID: uuid.New(), LimiteEventos: 100, EventosUtilizados: 95, Ativo: true}
	svc, cotas, notifier := novoMonitor([]quota.Controle{controle})

	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}

	// Novo ciclo zera o consumo; alerta deve rearmar.
	cotas.controles[0].EventosUtilizados = 0
	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}

	cotas.controles[0].EventosUtilizados = 98
	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}

	if len(notifier.alertas) != 2 {
		t.Errorf("alertas = %d, esperado 2", len(notifier.alertas))
	}
}

func TestRunOnceIgnoraIlimitadoEZerado(t *testing.T) {
	controles := []quota.Controle{
		{ID: uuid.New(), ClienteID: uuid.New(), LimiteEventos: quota.LimiteIlimitado, EventosUtilizados: 10_000, Ativo: true},
		{ID: uuid.New(), ClienteID: uuid.New(), LimiteEventos: 0, EventosUtilizados: 0, Ativo: true},
	}
	svc, _, notifier := novoMonitor(controles)

	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}
	if len(notifier.alertas) != 0 {
		t.Errorf("alertas = %d, esperado 0", len(notifier.alertas))
	}
}

func TestFormatarAlerta(t *testing.T) {
	alerta := Alerta{Titulo: "Consumo de eventos", Texto: "cliente x", Severidade: SeveridadeCritica}
	texto := formatarAlerta(alerta)
	if texto != ":rotating_light: *Consumo de eventos*\ncliente x" {
		t.Errorf("mensagem inesperada: %q", texto)
	}
}
