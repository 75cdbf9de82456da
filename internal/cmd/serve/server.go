package serve

import (
	"context"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/netology-group/iam/internal/abac"
	"github.com/netology-group/iam/internal/authn"
	"github.com/netology-group/iam/internal/config"
	registrycache "github.com/netology-group/iam/internal/registry/cache"
	registrymigrate "github.com/netology-group/iam/internal/registry/migrate"
	registrystore "github.com/netology-group/iam/internal/registry/store"
	"github.com/netology-group/iam/internal/rpc"
	"github.com/netology-group/iam/internal/security"
)

// Server holds the running server and its subsystems.
type Server struct {
	Config *config.Config
	Store  registrystore.IAMStore
	Router *gin.Engine
	http   *http.Server
}

// Shutdown gracefully shuts down the HTTP listener and closes the store.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.http.Shutdown(ctx); err != nil {
		return err
	}
	return s.Store.Close()
}

// StartServer wires the store, the ABAC evaluator/guard, the JSON-RPC
// dispatcher, and the token-lifecycle HTTP endpoints onto one gin router,
// then starts listening. Use cfg.Listener.Port=0 only for tests that read
// back the bound address another way; StartServer itself does not report
// back the chosen port.
func StartServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	namespaceID, err := uuid.Parse(cfg.IAMNamespaceID)
	if err != nil {
		return nil, fmt.Errorf("invalid --iam-namespace-id: %w", err)
	}

	log.Info("starting IAM service", "port", cfg.Listener.Port, "namespace", namespaceID)

	metricsLabels, err := security.ParseMetricsLabels(cfg.MetricsLabels)
	if err != nil {
		return nil, fmt.Errorf("invalid --metrics-labels: %w", err)
	}
	security.InitMetrics(metricsLabels)

	if cfg.DatastoreMigrateAtStart {
		if err := registrymigrate.RunAll(ctx); err != nil {
			return nil, fmt.Errorf("migrations failed: %w", err)
		}
	}

	revocationCache, err := loadRevocationCache(ctx, cfg)
	if err != nil {
		return nil, err
	}
	ctx = registrycache.WithContext(ctx, revocationCache)

	storeLoader, err := registrystore.Select("postgres")
	if err != nil {
		return nil, err
	}
	store, err := storeLoader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	signingKey, err := config.LoadECPrivateKey(cfg.AccessTokenKeyFile)
	if err != nil {
		return nil, fmt.Errorf("loading access token key: %w", err)
	}
	providerKeys, err := config.LoadProviderKeys(cfg.Providers)
	if err != nil {
		return nil, fmt.Errorf("loading provider keys: %w", err)
	}

	flows := &authn.Flows{
		Store:            store,
		SigningKey:       signingKey,
		Issuer:           cfg.TokenIssuer,
		DefaultExpiresIn: cfg.AccessTokenExpiresIn,
		MaxExpiresIn:     cfg.RefreshTokenExpiresInMax,
	}

	evaluator := &abac.Evaluator{
		Subjects: store,
		Objects:  store,
		Actions:  store,
		Policies: store,
	}
	guard := abac.NewGuard(evaluator, namespaceID)

	deps := &rpc.Deps{
		Store:       store,
		Evaluator:   evaluator,
		Guard:       guard,
		Config:      cfg,
		NamespaceID: namespaceID,
	}
	dispatcher := rpc.NewDispatcher(deps)

	verifier := security.NewAccessTokenVerifier(cfg.TokenIssuer, &signingKey.PublicKey)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(security.AccessLogMiddleware("/health", "/metrics"))
	router.Use(security.MetricsMiddleware())
	if cfg.CORSEnabled {
		router.Use(corsMiddleware(cfg.CORSOrigins))
	}

	router.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/", security.OptionalAuthMiddleware(verifier, revocationCache), dispatcher.Handle)

	tokenHandlers := newTokenHandlers(flows, providerKeys)
	router.POST("/auth/:authKey/token", tokenHandlers.retrieve)
	router.POST("/accounts/:id/refresh", tokenHandlers.refresh)
	router.POST("/accounts/:id/revoke", tokenHandlers.revoke)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Listener.Port),
		Handler:           router,
		ReadHeaderTimeout: cfg.Listener.ReadHeaderTimeout,
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server stopped", "err", err)
		}
	}()

	log.Info("IAM service listening", "addr", httpServer.Addr)

	return &Server{Config: cfg, Store: store, Router: router, http: httpServer}, nil
}

func loadRevocationCache(ctx context.Context, cfg *config.Config) (registrycache.RevocationCache, error) {
	loader, err := registrycache.Select(cfg.CacheType)
	if err != nil {
		return nil, fmt.Errorf("unknown --cache-kind %q: %w", cfg.CacheType, err)
	}
	cache, err := loader(ctx)
	if err != nil {
		return nil, fmt.Errorf("initializing %s revocation cache: %w", cfg.CacheType, err)
	}
	return cache, nil
}
