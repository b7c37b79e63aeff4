package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun/migrate"

	"github.com/opentrusty/opentrusty/internal/auth"
	"github.com/opentrusty/opentrusty/internal/cache"
	"github.com/opentrusty/opentrusty/internal/db/bunx"
	"github.com/opentrusty/opentrusty/internal/mail"
	"github.com/opentrusty/opentrusty/internal/migrations"
	"github.com/opentrusty/opentrusty/internal/permissions"
	"github.com/opentrusty/opentrusty/internal/repository"
	"github.com/opentrusty/opentrusty/internal/server"
	"github.com/opentrusty/opentrusty/internal/services/iam"
	"github.com/opentrusty/opentrusty/internal/services/invite"
	oauth2svc "github.com/opentrusty/opentrusty/internal/services/oauth2"
	"github.com/opentrusty/opentrusty/internal/services/rbac"
)

// cleanupInterval paces the background sweep of expired sessions, codes,
// invites, and blacklist entries.
const cleanupInterval = time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the OpenTrusty server",
	Long:  `Starts the HTTP server with the REST API and the OAuth2/OIDC protocol endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := bunx.NewDB(cfg.DatabaseURL, cfg.MaxDBConnections)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer bunx.Close(db)

		log.Printf("Connected to database")

		// Refuse to start on an out-of-date schema.
		migrator := migrate.NewMigrator(db, migrations.Migrations)
		ms, err := migrator.MigrationsWithStatus(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}
		if pending := ms.Unapplied(); len(pending) > 0 {
			return fmt.Errorf("%d pending migrations; run 'trustyd db migrate' first", len(pending))
		}

		signer, err := auth.NewSigner(cfg.JWT, cfg.ServerURL)
		if err != nil {
			return fmt.Errorf("failed to configure token signer: %w", err)
		}

		registry, err := permissions.Load()
		if err != nil {
			return fmt.Errorf("failed to load permission registry: %w", err)
		}

		revocations, err := cache.NewRevocationSet(cfg.CacheURL)
		if err != nil {
			return fmt.Errorf("failed to configure revocation cache: %w", err)
		}
		defer revocations.Close()

		store := repository.NewStore(db)
		graph := rbac.NewGraph(store.Roles)
		eval := rbac.NewEvaluator(store, graph)
		rbacService := rbac.NewService(store, graph, eval, registry)
		iamService := iam.NewService(store, signer, revocations, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
		inviteService := invite.NewService(store, mail.New(cfg.SMTP), cfg.ServerURL)
		oauthService := oauth2svc.NewService(store, signer, registry, revocations, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

		router := server.NewRouter(server.Options{
			Cfg:         cfg,
			DB:          db,
			Store:       store,
			Signer:      signer,
			Registry:    registry,
			IAM:         iamService,
			RBAC:        rbacService,
			Invites:     inviteService,
			OAuth:       oauthService,
			Revocations: revocations,
		})

		srv := &http.Server{
			Addr:         cfg.ServerAddr,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		// Background sweep for expired credentials.
		sweepCtx, cancelSweep := context.WithCancel(cmd.Context())
		defer cancelSweep()
		go func() {
			ticker := time.NewTicker(cleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					iamService.CleanupExpired(sweepCtx)
				case <-sweepCtx.Done():
					return
				}
			}
		}()

		serverErrors := make(chan error, 1)
		go func() {
			log.Printf("Starting server on %s", cfg.ServerAddr)
			log.Printf("Issuer URL: %s", cfg.ServerURL)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			log.Printf("Received signal %v, shutting down gracefully", sig)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				srv.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}

			log.Printf("Server stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
