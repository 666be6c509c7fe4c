package handlers

import (
	"net/http"

	"readloom/internal/config"
	"readloom/internal/db"
	"readloom/internal/middleware"
	"readloom/internal/moderation"
	"readloom/internal/video"
	"readloom/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handler struct {
	txRunner       db.TxRunner
	cfg            config.Config
	users          UserStore
	books          BookStore
	wishlist       WishlistStore
	exchangePoints ExchangePointStore
	exchanges      ExchangeStore
	ledger         LedgerStore
	forum          ForumStore
	chat           ChatStore
	audit          AuditStore
	exchangeSvc    ExchangeService
	paymentSvc     PaymentService
	moderator      moderation.Moderator
	rooms          video.RoomCreator
	hub            *websocket.Hub
}

func New(txRunner db.TxRunner, cfg config.Config, users UserStore, books BookStore, wishlist WishlistStore, exchangePoints ExchangePointStore, exchanges ExchangeStore, ledger LedgerStore, forum ForumStore, chat ChatStore, audit AuditStore, exchangeSvc ExchangeService, paymentSvc PaymentService, moderator moderation.Moderator, rooms video.RoomCreator, hub *websocket.Hub) *Handler {
	return &Handler{
		txRunner:       txRunner,
		cfg:            cfg,
		users:          users,
		books:          books,
		wishlist:       wishlist,
		exchangePoints: exchangePoints,
		exchanges:      exchanges,
		ledger:         ledger,
		forum:          forum,
		chat:           chat,
		audit:          audit,
		exchangeSvc:    exchangeSvc,
		paymentSvc:     paymentSvc,
		moderator:      moderator,
		rooms:          rooms,
		hub:            hub,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authed := middleware.Auth(h.cfg.JWTSecret)
	maybeAuthed := middleware.OptionalAuth(h.cfg.JWTSecret)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.With(authed).Get("/me", h.Me)
	})

	router.Route("/books", func(r chi.Router) {
		r.Get("/", h.ListBooks)
		r.With(authed).Post("/", h.CreateBook)
		r.With(maybeAuthed).Get("/{id}", h.GetBook)
		r.With(authed).Post("/{id}/availability", h.SetBookAvailability)
		r.With(authed).Delete("/{id}", h.SoftDeleteBook)
		r.With(authed).Post("/{id}/restore", h.RestoreBook)
		r.With(authed).Post("/{id}/wishlist", h.ToggleWishlist)
		r.Get("/{id}/wishlist", h.WishlistCount)
	})

	router.Route("/exchange-points", func(r chi.Router) {
		r.Get("/", h.ListExchangePoints)
		r.With(authed, middleware.RequireAdmin(h.users)).Post("/", h.CreateExchangePoint)
		r.With(authed, middleware.RequireAdmin(h.users)).Put("/{id}", h.UpdateExchangePoint)
		r.With(authed, middleware.RequireAdmin(h.users)).Post("/{id}/deactivate", h.DeactivateExchangePoint)
	})

	router.Route("/exchanges", func(r chi.Router) {
		r.Use(authed)
		r.Post("/", h.RequestExchange)
		r.Get("/", h.ListExchanges)
		r.Post("/{id}/approve", h.ApproveExchange)
		r.Post("/{id}/reject", h.RejectExchange)
		r.Post("/{id}/cancel", h.CancelExchange)
		r.Post("/{id}/complete", h.CompleteExchange)
		r.Post("/{id}/room", h.CreateExchangeRoom)
	})

	router.Route("/forum", func(r chi.Router) {
		r.Get("/posts", h.ListForumPosts)
		r.Get("/posts/{id}", h.GetForumPost)
		r.With(authed).Post("/posts", h.CreateForumPost)
		r.With(authed).Post("/posts/{id}/replies", h.CreateForumReply)
	})

	router.Route("/chat", func(r chi.Router) {
		r.Get("/messages", h.ListChatMessages)
		r.With(authed).Post("/messages", h.PostChatMessage)
	})
	router.Get("/ws/chat", h.WSChat)
	router.Get("/ws/points", h.WSPoints)

	router.With(authed).Get("/wishlist", h.MyWishlist)
	router.With(authed).Get("/points", h.GetPoints)

	router.Route("/payments", func(r chi.Router) {
		r.With(authed).Post("/checkout", h.CreateCheckout)
		r.With(authed).Get("/success", h.PaymentSuccess)
		r.Post("/notify", h.PaymentNotify)
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(authed)
		r.Use(middleware.RequireAdmin(h.users))
		r.Get("/users", h.AdminListUsers)
		r.Get("/audit", h.ListAuditLogs)
		r.Get("/points/reconcile", h.ReconcilePoints)
		r.Delete("/books/{id}", h.PurgeBook)
		r.Get("/forum/flagged", h.ListFlaggedPosts)
		r.Post("/forum/posts/{id}/flag", h.FlagForumPost)
	})

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
