package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	renderadapter "github.com/ericfisherdev/certpanel/internal/adapter/driven/render"
	sqliteadapter "github.com/ericfisherdev/certpanel/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/certpanel/internal/adapter/driving/http"
	webhandler "github.com/ericfisherdev/certpanel/internal/adapter/driving/web"
	"github.com/ericfisherdev/certpanel/internal/application"
	"github.com/ericfisherdev/certpanel/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"upload_folder", cfg.UploadFolder,
		"font_paths", cfg.FontPaths,
		"max_template_bytes", cfg.MaxTemplateBytes,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Ensure the upload folder exists so images can be served before the first render.
	if err := os.MkdirAll(cfg.UploadFolder, 0o755); err != nil {
		return fmt.Errorf("create upload folder: %w", err)
	}

	// 4. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", db.Path())

	// 5. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 6. Wire adapters.
	certStore := sqliteadapter.NewCertificateRepo(db)
	templateStore := sqliteadapter.NewTemplateRepo(db)
	generator := renderadapter.NewGenerator(cfg.UploadFolder, cfg.FontPaths, cfg.MaxTemplateBytes, slog.Default())

	// 7. Create services.
	certSvc := application.NewCertificateService(certStore, templateStore, generator, slog.Default())
	templateSvc := application.NewTemplateService(templateStore, generator, slog.Default())

	// 8. Create HTTP handler and register API routes.
	apiHandler := httphandler.NewHandler(certSvc, templateSvc, os.DirFS(cfg.UploadFolder), slog.Default())
	mux := http.NewServeMux()
	httphandler.RegisterAPIRoutes(mux, apiHandler)

	// 9. Create web handler and register verification pages.
	webHandler := webhandler.NewHandler(certSvc, slog.Default())
	webhandler.RegisterRoutes(mux, webHandler)

	// Apply middleware.
	handler := httphandler.ApplyMiddleware(mux, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second, // template uploads may be several MiB
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	slog.Info("certpanel started",
		"listen_addr", cfg.ListenAddr,
		"default_template", generator.HasDefaultTemplate(),
	)

	// 10. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 11. Graceful shutdown with 10s timeout for in-flight renders.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
