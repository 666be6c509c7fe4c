package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"readloom/internal/config"
	"readloom/internal/db"
	"readloom/internal/handlers"
	"readloom/internal/logger"
	"readloom/internal/moderation"
	"readloom/internal/payments"
	"readloom/internal/services"
	"readloom/internal/store"
	"readloom/internal/video"
	"readloom/internal/websocket"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatal("failed to connect database", zap.Error(err))
	}
	defer database.Close()

	users := store.NewUserStore(database)
	books := store.NewBookStore(database)
	wishlist := store.NewWishlistStore(database)
	exchangePoints := store.NewExchangePointStore(database)
	exchanges := store.NewExchangeStore(database)
	ledger := store.NewLedgerStore(database)
	forum := store.NewForumStore(database)
	chat := store.NewChatStore(database)
	sessions := store.NewPaymentSessionStore(database)
	audit := store.NewAuditStore(database)
	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub()

	provider := payments.NewMidtransProvider(cfg.MidtransServerKey, cfg.MidtransProduction, cfg.PaymentRedirectURL)
	moderator := moderation.NewHTTPModerator(cfg.ModerationURL)
	rooms := video.NewHTTPRoomCreator(cfg.VideoAPIURL, cfg.VideoAPIKey)

	exchangeSvc := services.NewExchangeService(txRunner, users, books, exchanges, exchangePoints, ledger, audit, hub)
	paymentSvc := services.NewPaymentService(txRunner, users, ledger, sessions, audit, provider, hub)

	handler := handlers.New(txRunner, cfg, users, books, wishlist, exchangePoints, exchanges, ledger, forum, chat, audit, exchangeSvc, paymentSvc, moderator, rooms, hub)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Log.Info("readloom API listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("server error", zap.Error(err))
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Log.Fatal("shutdown error", zap.Error(err))
	}
}
