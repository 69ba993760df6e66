package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/orglinks/orglinks/internal/config"
	"github.com/orglinks/orglinks/internal/infrastructure/db"
	"github.com/orglinks/orglinks/internal/infrastructure/logger"
	"github.com/orglinks/orglinks/internal/infrastructure/telemetry"
	"github.com/orglinks/orglinks/internal/processing/links"
	"github.com/orglinks/orglinks/internal/processing/orgs"
	"github.com/orglinks/orglinks/internal/storage/memory"
	mongoStorage "github.com/orglinks/orglinks/internal/storage/mongo"
	pgStorage "github.com/orglinks/orglinks/internal/storage/postgres"
	httpTransport "github.com/orglinks/orglinks/internal/transport/http"
	"go.uber.org/zap"
)

// orgDirectory adapts the organization service to the short-name lookup the
// link resolver needs, translating the not-found sentinel between packages.
type orgDirectory struct {
	svc *orgs.Service
}

func (d orgDirectory) OrgIDByShortName(ctx context.Context, shortName string) (string, error) {
	org, err := d.svc.FindByShortName(ctx, shortName)
	if err != nil {
		if errors.Is(err, orgs.ErrNotFound) {
			return "", links.ErrNotFound
		}
		return "", err
	}
	return org.ID, nil
}

type repositories struct {
	links   links.LinkRepository
	orgs    orgs.OrganizationRepository
	members orgs.MembershipRepository
	close   func()
}

func buildRepositories(ctx context.Context, cfg *config.Config) (*repositories, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		pg, err := db.ConnectPostgres(ctx, cfg.Postgres.DSN())
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pgStorage.Bootstrap(ctx, pg); err != nil {
			pg.Close()
			return nil, fmt.Errorf("bootstrap schema: %w", err)
		}
		linkRepo, err := pgStorage.NewLinksRepository(pg)
		if err != nil {
			pg.Close()
			return nil, err
		}
		orgRepo, err := pgStorage.NewOrgsRepository(pg)
		if err != nil {
			pg.Close()
			return nil, err
		}
		return &repositories{links: linkRepo, orgs: orgRepo, members: orgRepo, close: pg.Close}, nil

	case "mongo":
		conn, err := db.ConnectMongo(cfg.MongoDB.URI, cfg.MongoDB.Database)
		if err != nil {
			return nil, fmt.Errorf("connect mongodb: %w", err)
		}
		linkRepo, err := mongoStorage.NewLinksRepository(conn)
		if err != nil {
			_ = conn.Disconnect()
			return nil, err
		}
		orgRepo, err := mongoStorage.NewOrgsRepository(conn)
		if err != nil {
			_ = conn.Disconnect()
			return nil, err
		}
		return &repositories{links: linkRepo, orgs: orgRepo, members: orgRepo,
			close: func() { _ = conn.Disconnect() }}, nil

	case "memory":
		orgStore := memory.NewOrgStore()
		return &repositories{links: memory.NewLinkStore(), orgs: orgStore, members: orgStore,
			close: func() {}}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.App.Env); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("name", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("env", cfg.App.Env),
		zap.String("storage", cfg.Storage.Driver),
	)

	var shutdownTracer func(context.Context) error
	if cfg.OTel.Enabled {
		var err error
		shutdownTracer, err = telemetry.InitTracer(cfg.OTel.Endpoint, cfg.App.Name, cfg.App.Version)
		if err != nil {
			logger.Warn("Failed to initialize tracer, continuing without tracing", zap.Error(err))
		} else {
			logger.Info("OpenTelemetry tracer initialized", zap.String("endpoint", cfg.OTel.Endpoint))
		}
	}

	repos, err := buildRepositories(context.Background(), cfg)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer repos.close()

	orgSvc := orgs.NewService(repos.orgs, repos.members)
	linkSvc := links.NewService(repos.links, orgSvc, orgDirectory{svc: orgSvc},
		links.NewCryptoCodeGenerator(cfg.Shortener.CodeLength))

	router := httpTransport.NewRouter(cfg, linkSvc, orgSvc)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if shutdownTracer != nil {
			_ = shutdownTracer(shutdownCtx)
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", zap.Error(err))
		}
	}()

	logger.Info("Server starting",
		zap.String("port", cfg.Server.Port),
		zap.String("env", cfg.App.Env),
		zap.String("address", fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)),
	)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatal("Server error", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
