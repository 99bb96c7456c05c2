package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"clawhammer/internal/config"
	"clawhammer/internal/db"
	"clawhammer/internal/httpapi"
	"clawhammer/internal/xapi"
	"clawhammer/internal/xverify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	pool, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	// No bearer token means verification checks report a configuration
	// error instead of calling X; the rest of the API works regardless.
	var posts xverify.PostSource
	if cfg.XBearerToken != "" {
		posts = xapi.NewClient(cfg.XBearerToken)
	} else {
		log.Printf("CLAWHAMMER_X_BEARER_TOKEN not set; x verification checks will fail until configured")
	}

	verify := xverify.New(xverify.NewPGStore(pool), posts, xverify.Config{
		TTL:              time.Duration(cfg.VerifyTTLMinutes) * time.Minute,
		MaxPosts:         cfg.VerifyMaxPosts,
		SurgeGateEnabled: cfg.SurgeGateEnabled,
		SurgeWindow:      time.Duration(cfg.SurgeWindowMinutes) * time.Minute,
		SurgeMax:         cfg.SurgeMaxChallenges,
	})

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewRouter(httpapi.Deps{
			DB:                pool,
			Pepper:            cfg.APIKeyPepper,
			Verify:            verify,
			VerifyHoldMessage: cfg.SurgeHoldMessage,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("api listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
