package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/admin"
	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/audit"
	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/auth"
	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/cliente"
	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/config"
	httpmiddleware "github.com/jaiki-ops/sdr-ia-app-ofc/internal/http/middleware"
	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/integrations/n8n"
	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/monitor"
	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/quota"
	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/service"
	"github.com/jaiki-ops/sdr-ia-app-ofc/internal/webhook"
)

// Handler agrega dependências compartilhadas das rotas.
type Handler struct {
	cfg           *config.Config
	pool          *pgxpool.Pool
	redis         *redis.Client
	monitor       *monitor.Service
	publicLimiter *httpmiddleware.RateLimiter
	authLimiter   *httpmiddleware.RateLimiter
}

// NewRouter monta os serviços e devolve o roteador configurado junto com o
// monitor de consumo (para shutdown ordenado).
func NewRouter(cfg *config.Config, pool *pgxpool.Pool, redisClient *redis.Client) (http.Handler, *monitor.Service, error) {
	auditRepo := audit.NewRepository(pool)
	auditService := audit.NewService(auditRepo, log.With().Str("component", "audit").Logger())

	clienteRepo := cliente.NewRepository(pool)
	clienteService := cliente.NewService(clienteRepo)

	quotaRepo := quota.NewRepository(pool)
	quotaService := quota.NewService(quotaRepo)

	adminRepo := admin.NewRepository(pool)
	adminService := admin.NewService(adminRepo, clienteService, quotaService)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTTL)
	authService := service.NewAuthService(clienteService, adminService, redisClient, jwtManager, cfg.JWTRefreshTTL)

	webhookLogger := log.With().Str("component", "webhook").Logger()
	webhookService := webhook.NewService(clienteService, quotaService, auditService, webhookLogger)
	webhookHandler := webhook.NewHandler(webhookService)

	var n8nClient *n8n.Client
	if cfg.N8N.BaseURL != "" {
		client, err := n8n.New(n8n.Config{BaseURL: cfg.N8N.BaseURL, APIKey: cfg.N8N.APIKey})
		if err != nil {
			return nil, nil, err
		}
		n8nClient = client
	}

	var monitorNotifier monitor.Notifier
	if slack := monitor.NewSlackNotifier(cfg.Monitoring.SlackWebhookURL); slack != nil {
		monitorNotifier = slack
	}
	monitorLogger := log.With().Str("component", "monitor").Logger()
	monitorService := monitor.NewService(quotaService, cfg.Monitoring, monitorLogger, monitorNotifier)

	h := &Handler{
		cfg:           cfg,
		pool:          pool,
		redis:         redisClient,
		monitor:       monitorService,
		publicLimiter: httpmiddleware.NewRateLimiter(cfg.RateLimitPublic.RequestsPerSecond, cfg.RateLimitPublic.Burst),
		authLimiter:   httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst),
	}

	authHandler := NewAuthHandler(authService, clienteService, auditService)
	clienteHandler := NewClienteHandler(clienteService, quotaService, auditService, cfg.AppBaseURL)
	adminHandler := NewAdminHandler(adminService, auditService)
	integracoesHandler := NewIntegracoesHandler(clienteService, n8nClient)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(h.publicLimiter))

		public.Get("/health", h.Health)
		public.Get("/ready", h.Ready)

		public.Route("/auth", func(auth chi.Router) {
			auth.Post("/cliente/login", authHandler.LoginCliente)
			auth.Post("/cliente/cadastro", authHandler.Cadastro)
			auth.Post("/admin/login", authHandler.LoginAdmin)
			auth.Post("/refresh", authHandler.Refresh)
			auth.Post("/logout", authHandler.Logout)
		})

		public.Route("/webhook", webhookHandler.RegisterRoutes)
	})

	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.Auth(authService.JWT()))
		private.Use(httpmiddleware.UserRateLimit(h.authLimiter))

		private.Get("/me", authHandler.Me)

		private.Group(func(portal chi.Router) {
			portal.Use(httpmiddleware.RequireCliente)
			portal.Route("/api/cliente", clienteHandler.RegisterRoutes)
			portal.Route("/api/integracoes", integracoesHandler.RegisterRoutes)
		})

		private.Group(func(painel chi.Router) {
			painel.Use(httpmiddleware.RequireAdmin)
			painel.Route("/api/admin", adminHandler.RegisterRoutes)
		})
	})

	return r, monitorService, nil
}

// Health responde imediatamente: usado por probes de liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// Ready verifica as dependências (Postgres e Redis).
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.pool.Ping(ctx); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "postgres indisponível", nil)
		return
	}
	if err := h.redis.Ping(ctx).Err(); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "redis indisponível", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
