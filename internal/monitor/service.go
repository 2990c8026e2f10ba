package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/config"
	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/quota"
)

type ledger interface {
	ListarAtivos(ctx context.Context) ([]quota.Controle, error)
}

// Service varre periodicamente os controles de cota e alerta quando o consumo
// de um cliente se aproxima do limite.
type Service struct {
	cotas    ledger
	cfg      config.MonitoringConfig
	notifier Notifier
	logger   zerolog.Logger

	mu        sync.Mutex
	alertados map[uuid.UUID]struct{}

	once   sync.Once
	cancel context.CancelFunc
}

func NewService(cotas ledger, cfg config.MonitoringConfig, logger zerolog.Logger, notifier Notifier) *Service {
	return &Service{
		cotas:     cotas,
		cfg:       cfg,
		notifier:  notifier,
		logger:    logger,
		alertados: make(map[uuid.UUID]struct{}),
	}
}

// Start inicia loop periódico. Safe para chamar múltiplas vezes.
func (s *Service) Start(parent context.Context) error {
	if !s.cfg.Enabled {
		return nil
	}
	s.once.Do(func() {
		ctx, cancel := context.WithCancel(parent)
		s.cancel = cancel
		go s.runLoop(ctx)
	})
	return nil
}

// Stop encerra loop periódico.
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Service) runLoop(ctx context.Context) {
	interval := s.cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", interval).Msg("monitor: loop iniciado")

	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error().Err(err).Msg("monitor: primeira execução falhou")
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("monitor: loop encerrado")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error().Err(err).Msg("monitor: execução periódica falhou")
			}
		}
	}
}

// RunOnce varre os controles ativos uma única vez.
func (s *Service) RunOnce(ctx context.Context) error {
	controles, err := s.cotas.ListarAtivos(ctx)
	if err != nil {
		return fmt.Errorf("listar controles: %w", err)
	}

	threshold := s.cfg.UsageThreshold
	if threshold <= 0 || threshold > 1 {
		threshold = 0.9
	}

	for i := range controles {
		s.checkControle(ctx, &controles[i], threshold)
	}
	return nil
}

func (s *Service) checkControle(ctx context.Context, c *quota.Controle, threshold float64) {
	if c.Ilimitado() || c.LimiteEventos == 0 {
		return
	}

	uso := float64(c.EventosUtilizados) / float64(c.LimiteEventos)
	if uso < threshold {
		// Voltou para baixo do limiar (novo ciclo): rearma o alerta.
		s.mu.Lock()
		delete(s.alertados, c.ID)
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	_, jaAlertado := s.alertados[c.ID]
	if !jaAlertado {
		s.alertados[c.ID] = struct{}{}
	}
	s.mu.Unlock()
	if jaAlertado {
		return
	}

	severidade := SeveridadeAviso
	if c.EventosUtilizados >= c.LimiteEventos {
		severidade = SeveridadeCritica
	}

	s.logger.Warn().
		Str("cliente_id", c.ClienteID.String()).
		Int("limite", c.LimiteEventos).
		Int("utilizados", c.EventosUtilizados).
		Msg("monitor: consumo de eventos próximo do limite")

	if s.notifier == nil {
		return
	}

	alerta := Alerta{
		Titulo:     "Consumo de eventos",
		Texto:      fmt.Sprintf("Cliente %s consumiu %d de %d eventos (%.0f%%)", c.ClienteID, c.EventosUtilizados, c.LimiteEventos, uso*100),
		Severidade: severidade,
	}
	if err := s.notifier.Notificar(ctx, alerta); err != nil {
		s.logger.Error().Err(err).Msg("monitor: falha ao notificar")
	}
}
