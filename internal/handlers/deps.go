package handlers

import (
	"context"

	"readloom/internal/models"
	"readloom/internal/payments"
	"readloom/internal/services"
	"readloom/internal/store"
)

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, id, email, passwordHash, displayName string, startingPoints int64) error
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, userID string) (models.User, error)
	IsAdmin(ctx context.Context, userID string) (bool, error)
	GetPoints(ctx context.Context, userID string) (int64, error)
	ListAll(ctx context.Context, limit, offset int) ([]models.User, error)
}

type BookStore interface {
	Create(ctx context.Context, tx store.Execer, input store.BookInput) error
	GetByID(ctx context.Context, bookID string) (models.Book, error)
	List(ctx context.Context, filter store.BookFilter) ([]models.Book, error)
	SetAvailability(ctx context.Context, tx store.Execer, bookID string, isAvailable bool) error
	SetDeleted(ctx context.Context, tx store.Execer, bookID string, isDeleted bool) error
	Purge(ctx context.Context, tx store.Execer, bookID string) error
}

type WishlistStore interface {
	Add(ctx context.Context, tx store.Execer, userID, bookID string) (int64, error)
	Remove(ctx context.Context, tx store.Execer, userID, bookID string) (int64, error)
	CountByBook(ctx context.Context, bookID string) (int64, error)
	ListBookIDsByUser(ctx context.Context, userID string) ([]string, error)
}

type ExchangePointStore interface {
	Create(ctx context.Context, tx store.Execer, input store.ExchangePointInput) error
	Update(ctx context.Context, tx store.Execer, input store.ExchangePointInput) (int64, error)
	GetByID(ctx context.Context, id string) (models.ExchangePoint, error)
	ListActive(ctx context.Context) ([]models.ExchangePoint, error)
	SetActive(ctx context.Context, tx store.Execer, id string, isActive bool) (int64, error)
	IsReferenced(ctx context.Context, id string) (bool, error)
}

type ExchangeStore interface {
	GetByID(ctx context.Context, exchangeID string) (models.Exchange, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Exchange, error)
	HasActiveForBook(ctx context.Context, bookID string) (bool, error)
	HasAnyForBook(ctx context.Context, bookID string) (bool, error)
}

type LedgerStore interface {
	InsertTransaction(ctx context.Context, tx store.Execer, input store.PointTransactionInput) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.PointTransaction, error)
	Reconcile(ctx context.Context) ([]store.BalanceDrift, error)
}

type ForumStore interface {
	CreatePost(ctx context.Context, tx store.Execer, input store.ForumPostInput) error
	CreateReply(ctx context.Context, tx store.Execer, input store.ForumReplyInput) error
	GetPost(ctx context.Context, postID string) (models.ForumPost, error)
	ListPosts(ctx context.Context, bookID string, limit, offset int) ([]models.ForumPost, error)
	ListReplies(ctx context.Context, postID string) ([]models.ForumReply, error)
	ListFlagged(ctx context.Context, limit, offset int) ([]models.ForumPost, error)
	SetPostFlagged(ctx context.Context, tx store.Execer, postID string, flagged bool) (int64, error)
}

type ChatStore interface {
	Insert(ctx context.Context, tx store.Tx, bookID, userID, displayName, message string) (models.ChatMessage, error)
	ListByBook(ctx context.Context, bookID string, limit int) ([]models.ChatMessage, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	List(ctx context.Context, action string, limit, offset int) ([]models.AuditLog, error)
}

type ExchangeService interface {
	Request(ctx context.Context, req services.RequestExchangeInput) (string, error)
	Approve(ctx context.Context, exchangeID, actorID string) error
	Reject(ctx context.Context, exchangeID, actorID string) error
	Cancel(ctx context.Context, exchangeID, actorID string) error
	Complete(ctx context.Context, exchangeID, actorID string) error
}

type PaymentService interface {
	CreateCheckout(ctx context.Context, userID string, amount int64) (payments.Session, error)
	Confirm(ctx context.Context, sessionID string) (services.CreditResult, error)
	SessionOwner(ctx context.Context, sessionID string) (string, error)
}
