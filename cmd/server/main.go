package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/wordduel/word-duel-backend/internal/archive"
	"github.com/wordduel/word-duel-backend/internal/httpapi"
	"github.com/wordduel/word-duel-backend/internal/hub"
	"github.com/wordduel/word-duel-backend/internal/ws"
)

func main() {
	_ = godotenv.Load()

	log, err := newLogger(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	var rec archive.Recorder
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		store, err := archive.Open(dsn)
		if err != nil {
			log.Fatal("failed to open match archive", zap.Error(err))
		}
		rec = store
		log.Info("match archive enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := hub.NewHub(ctx, rec, log)

	api := &httpapi.API{Hub: h, Rec: rec, Log: log}
	wsHandler := &ws.Handler{
		Hub:            h,
		Log:            log,
		OriginPatterns: splitCSV(getEnv("ALLOWED_ORIGINS", "localhost:*")),
	}

	srv := &http.Server{
		Addr:    ":" + getEnv("PORT", "8080"),
		Handler: httpapi.SetupRoutes(api, wsHandler),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		h.Inbox() <- hub.ShutdownHub{}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
