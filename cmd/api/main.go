package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradelab/internal/admin"
	"tradelab/internal/ai"
	"tradelab/internal/auth"
	"tradelab/internal/config"
	"tradelab/internal/db"
	"tradelab/internal/httpserver"
	"tradelab/internal/logger"
	"tradelab/internal/marketdata"
	"tradelab/internal/paper"
	"tradelab/internal/refdata"
	"tradelab/internal/trades"

	"github.com/shopspring/decimal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "text").WithError(err).Fatal("load config")
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.WithError(err).Fatal("connect database")
	}
	defer pool.Close()
	if err := db.Migrate(ctx, pool, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.WithError(err).Fatal("migrate database")
	}

	startingBalance, err := decimal.NewFromString(cfg.StartingBalance)
	if err != nil {
		log.WithError(err).Fatal("parse starting balance")
	}

	refdataStore := refdata.NewStore(pool)

	bus := marketdata.NewBus()
	quotes := marketdata.NewQuotes()
	activePairs, err := refdataStore.ListPairs(ctx, true)
	if err != nil {
		log.WithError(err).Fatal("load trading pairs")
	}
	publisher := marketdata.NewPublisher(bus, quotes, activePairs, cfg.QuoteInterval, log)
	publisher.Start(ctx)

	paperSvc := paper.NewService(paper.NewPGStore(pool), quotes, refdataStore, startingBalance)

	authStore := auth.NewPGStore(pool)
	authSvc := auth.NewService(authStore, cfg.JWTIssuer, []byte(cfg.JWTSecret), cfg.JWTTTL)
	authSvc.SetAccountEnsurer(paperSvc)
	verifier := auth.NewVerifier(authStore, auth.LogSender{Log: log}, cfg.CodeTTL, cfg.ResendInterval)

	aiClient := ai.NewClient(cfg.AIAPIKey, cfg.AIBaseURL, cfg.AIModel, log)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		AuthHandler:    auth.NewHandler(authSvc, verifier, cfg.JWTTTL),
		PaperHandler:   paper.NewHandler(paperSvc),
		TradesHandler:  trades.NewHandler(trades.NewPGStore(pool)),
		RefdataHandler: refdata.NewHandler(refdataStore),
		MarketHandler:  marketdata.NewHandler(quotes),
		AIHandler:      ai.NewHandler(aiClient),
		AdminHandler:   admin.NewHandler(pool, cfg.JWTIssuer, []byte(cfg.JWTSecret), cfg.JWTTTL),
		AuthService:    authSvc,
		WSHandler:      httpserver.NewWSHandler(bus, authSvc, cfg.WebSocketOrigin, cfg.WSPingPeriod, log),
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	log.WithField("addr", cfg.HTTPAddr).Info("server listening")
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server stopped")
	}
}
