package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/audio"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/config"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/content"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/entitlement"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/identity"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/jwtsigner"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/observability/logging"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/observability/metrics"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/service"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/store"
	httpx "github.com/therealvallalhatatlan/vallal-v1-sub001/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("site exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.NewLogger(logging.Config{
		ServiceName: "site",
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
	})
	slog.SetDefault(logger)
	metrics.MustRegister("site")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.OpenPostgres(ctx, cfg.DatabaseURL, store.Options{LogSQL: cfg.DBLogSQL})
	if err != nil {
		return err
	}
	defer st.Close()

	auth, sessions, err := buildIdentity(cfg)
	if err != nil {
		return err
	}

	catalog, err := content.DefaultCatalog()
	if err != nil {
		return err
	}
	library := content.NewLibrary(catalog, content.NewTextStore(cfg.ContentDir))

	deps := httpx.Deps{
		Auth:     auth,
		Sessions: sessions,
		Access:   entitlement.NewChecker(st.Readers(), cfg.CollapsePlusAddressing),
		Library:  library,
		Inbox:    service.NewInbox(st, nil),
		Presence: service.NewPresence(st, nil),
		System:   service.NewSystem(st, nil),
		Gifts:    service.NewGifts(st, nil),
		Admins:   cfg.AdminEmails,
		Options: httpx.Options{
			CORSOrigins:        cfg.CORSOrigins,
			RateLimitPerMinute: cfg.RateLimitPerMinute,
			SecureCookies:      !cfg.IsDev(),
		},
	}
	if cfg.S3.Bucket != "" {
		client, err := audio.NewS3Client(ctx, cfg.S3)
		if err != nil {
			return err
		}
		deps.Audio = audio.NewProxy(client, cfg.S3.Bucket, cfg.S3.Prefix)
	} else {
		slog.Warn("S3_BUCKET not set, audio streaming disabled")
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpx.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("site listening",
			"addr", srv.Addr,
			"identity_provider", cfg.IdentityProvider,
			"environment", cfg.Environment,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func buildIdentity(cfg config.Config) (*identity.Authenticator, *identity.Sessions, error) {
	secret := []byte(cfg.SessionSecret)
	magic, err := jwtsigner.NewFromSecret(secret, "magic-link", "magic-v1", cfg.PublicBaseURL)
	if err != nil {
		return nil, nil, err
	}
	session, err := jwtsigner.NewFromSecret(secret, "session", "session-v1", cfg.PublicBaseURL)
	if err != nil {
		return nil, nil, err
	}
	sessions := identity.NewSessions(magic, session, identity.LogMailer{}, identity.SessionConfig{
		BaseURL:    cfg.PublicBaseURL,
		MagicTTL:   cfg.MagicLinkTTL,
		SessionTTL: cfg.SessionTTL,
	})

	var provider identity.Provider
	switch cfg.IdentityProvider {
	case config.ProviderSupabase:
		provider = identity.NewSupabaseProvider(cfg.SupabaseURL, cfg.SupabaseAnonKey)
	case config.ProviderJWKS:
		jp, err := identity.NewJWKSProvider(cfg.SupabaseJWKSURL, cfg.SupabaseIssuer)
		if err != nil {
			return nil, nil, err
		}
		provider = jp
	case config.ProviderNone:
		slog.Warn("bearer tokens disabled, only magic-link sessions are accepted")
	}
	return identity.NewAuthenticator(provider, sessions), sessions, nil
}
