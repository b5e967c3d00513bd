package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebaseauth "firebase.google.com/go/v4/auth"

	"github.com/bxu-infra/kml-dashboard/config"
	"github.com/bxu-infra/kml-dashboard/internal/auth"
	"github.com/bxu-infra/kml-dashboard/internal/bootstrap"
	"github.com/bxu-infra/kml-dashboard/internal/logging"
	"github.com/bxu-infra/kml-dashboard/internal/ollama"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup always runs.
func run() int {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logging.SetLevel(cfg.App.LogLevel)
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := bootstrap.OpenDB(ctx, &cfg.Database)
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		return 1
	}
	if db != nil {
		defer db.Close()
		log.Printf("[db] connected host=%s name=%s", cfg.Database.Host, cfg.Database.Name)
	} else {
		log.Printf("[db] DB_HOST not set, running without users table")
	}

	rdb, err := bootstrap.OpenRedis(ctx, &cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to redis: %v", err)
		return 1
	}
	if rdb != nil {
		defer rdb.Close()
		log.Printf("[redis] connected addr=%s", cfg.Redis.Addr)
	} else {
		log.Printf("[redis] REDIS_ADDR not set, chat history disabled")
	}

	var verifier *firebaseauth.Client
	if cfg.Auth.Mode == config.AuthModeFirebase {
		verifier, err = auth.InitializeFirebase(ctx, &cfg.Firebase)
		if err != nil {
			log.Printf("Failed to initialize Firebase: %v", err)
			return 1
		}
	} else {
		log.Printf("[auth] AUTH_MODE=%s, trusting X-User-Id headers", cfg.Auth.Mode)
	}

	relay := ollama.NewClient(cfg.Ollama, nil)

	prober := ollama.NewProber(cfg.Ollama.BaseURL(), nil)
	if err := prober.Start(cfg.Ollama.ProbeSchedule); err != nil {
		log.Printf("Failed to start ollama probe: %v", err)
		return 1
	}
	defer prober.Stop()

	deps := bootstrap.RouterDeps{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		Relay:  relay,
		Prober: prober,
	}
	if verifier != nil {
		deps.Verifier = verifier
	}
	router := bootstrap.BuildRouter(deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("%s listening on :%s (ollama=%s model=%s)", cfg.App.Name, cfg.Server.Port, cfg.Ollama.GenerateURL(), cfg.Ollama.Model)
	if err := bootstrap.Serve(ctx, srv, 10*time.Second); err != nil {
		log.Printf("Server failed: %v", err)
		return 1
	}
	return 0
}
