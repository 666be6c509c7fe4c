package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"readloom/internal/db"
	"readloom/internal/models"
	"readloom/internal/store"
	"readloom/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrNotAvailable          = errors.New("book not available")
	ErrSelfExchange          = errors.New("cannot request own book")
	ErrInsufficientBalance   = errors.New("insufficient points balance")
	ErrInvalidTransition     = errors.New("invalid exchange transition")
	ErrForbidden             = errors.New("not allowed")
	ErrExchangePointInactive = errors.New("exchange point inactive")
	ErrOwnershipConflict     = errors.New("book ownership changed")
)

type UserStore interface {
	GetByID(ctx context.Context, userID string) (models.User, error)
	GetPoints(ctx context.Context, userID string) (int64, error)
	AdjustPoints(ctx context.Context, tx store.Execer, userID string, delta int64) (int64, error)
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

type BookStore interface {
	GetByID(ctx context.Context, bookID string) (models.Book, error)
	GetForUpdate(ctx context.Context, tx store.Getter, bookID string) (models.Book, error)
	TransferOwner(ctx context.Context, tx store.Execer, bookID, expectedOwnerID, newOwnerID string) (int64, error)
}

type ExchangeStore interface {
	Create(ctx context.Context, tx store.Execer, input store.ExchangeInput) error
	GetForUpdate(ctx context.Context, tx store.Getter, exchangeID string) (models.Exchange, error)
	Transition(ctx context.Context, tx store.Execer, exchangeID, fromStatus, toStatus string) (int64, error)
	SetEscrowed(ctx context.Context, tx store.Execer, exchangeID string, escrowed bool) error
}

type ExchangePointStore interface {
	GetByID(ctx context.Context, id string) (models.ExchangePoint, error)
}

type LedgerStore interface {
	InsertTransaction(ctx context.Context, tx store.Execer, input store.PointTransactionInput) error
	RecordCredit(ctx context.Context, tx store.Execer, sourceRef, userID string, amount int64) (int64, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

type PointsHub interface {
	BroadcastPoints(userID string, update websocket.PointsUpdate)
}

type ExchangeService struct {
	txRunner       db.TxRunner
	userStore      UserStore
	bookStore      BookStore
	exchangeStore  ExchangeStore
	pointStore     ExchangePointStore
	ledgerStore    LedgerStore
	auditStore     AuditStore
	hub            PointsHub
}

func NewExchangeService(txRunner db.TxRunner, userStore UserStore, bookStore BookStore, exchangeStore ExchangeStore, pointStore ExchangePointStore, ledgerStore LedgerStore, auditStore AuditStore, hub PointsHub) *ExchangeService {
	return &ExchangeService{
		txRunner:      txRunner,
		userStore:     userStore,
		bookStore:     bookStore,
		exchangeStore: exchangeStore,
		pointStore:    pointStore,
		ledgerStore:   ledgerStore,
		auditStore:    auditStore,
		hub:           hub,
	}
}

type RequestExchangeInput struct {
	ToUserID        string
	BookID          string
	ExchangePointID *string
}

// Request creates a REQUESTED exchange. The requester's balance is checked but
// not held; points are escrowed at approval.
func (s *ExchangeService) Request(ctx context.Context, req RequestExchangeInput) (string, error) {
	book, err := s.bookStore.GetByID(ctx, req.BookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	if book.IsDeleted || !book.IsAvailable {
		return "", ErrNotAvailable
	}
	if book.CurrentOwnerID == req.ToUserID {
		return "", ErrSelfExchange
	}
	balance, err := s.userStore.GetPoints(ctx, req.ToUserID)
	if err != nil {
		return "", err
	}
	if balance < book.PointsCost {
		return "", ErrInsufficientBalance
	}
	if req.ExchangePointID != nil {
		point, err := s.pointStore.GetByID(ctx, *req.ExchangePointID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return "", ErrNotFound
			}
			return "", err
		}
		if !point.IsActive {
			return "", ErrExchangePointInactive
		}
	}

	exchangeID := uuid.NewString()
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.exchangeStore.Create(ctx, tx, store.ExchangeInput{
			ID:              exchangeID,
			BookID:          book.ID,
			FromUserID:      book.CurrentOwnerID,
			ToUserID:        req.ToUserID,
			ExchangePointID: req.ExchangePointID,
			PointsCost:      book.PointsCost,
		}); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{"book_id": book.ID})
		return s.auditStore.Log(ctx, tx, req.ToUserID, "request_exchange", "exchange", exchangeID, string(data))
	})
	if err != nil {
		return "", err
	}
	return exchangeID, nil
}

// Approve moves REQUESTED to APPROVED and escrows the requester's points in the
// same transaction. An approval that cannot escrow does not happen at all.
func (s *ExchangeService) Approve(ctx context.Context, exchangeID, actorID string) error {
	var requesterID string
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		exchange, err := s.exchangeStore.GetForUpdate(ctx, tx, exchangeID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if err := s.requireActor(ctx, actorID, exchange.FromUserID); err != nil {
			return err
		}
		rows, err := s.exchangeStore.Transition(ctx, tx, exchangeID, store.StatusRequested, store.StatusApproved)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrInvalidTransition
		}
		adjusted, err := s.userStore.AdjustPoints(ctx, tx, exchange.ToUserID, -exchange.PointsCost)
		if err != nil {
			return err
		}
		if adjusted == 0 {
			return ErrInsufficientBalance
		}
		if err := s.exchangeStore.SetEscrowed(ctx, tx, exchangeID, true); err != nil {
			return err
		}
		if err := s.ledgerStore.InsertTransaction(ctx, tx, store.PointTransactionInput{
			ID:          uuid.NewString(),
			UserID:      exchange.ToUserID,
			Amount:      -exchange.PointsCost,
			Kind:        "debit",
			Description: "Exchange escrow",
			ExchangeID:  &exchange.ID,
		}); err != nil {
			return err
		}
		requesterID = exchange.ToUserID
		data, _ := json.Marshal(map[string]string{"book_id": exchange.BookID})
		return s.auditStore.Log(ctx, tx, actorID, "approve_exchange", "exchange", exchangeID, string(data))
	})
	if err != nil {
		return err
	}
	s.pushBalance(ctx, requesterID)
	return nil
}

// Reject is the owner's terminal transition, Cancel the requester's. Both
// release escrowed points.
func (s *ExchangeService) Reject(ctx context.Context, exchangeID, actorID string) error {
	return s.terminate(ctx, exchangeID, actorID, store.StatusRejected)
}

func (s *ExchangeService) Cancel(ctx context.Context, exchangeID, actorID string) error {
	return s.terminate(ctx, exchangeID, actorID, store.StatusCancelled)
}

func (s *ExchangeService) terminate(ctx context.Context, exchangeID, actorID, toStatus string) error {
	var refundedUser string
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		exchange, err := s.exchangeStore.GetForUpdate(ctx, tx, exchangeID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		party := exchange.FromUserID
		if toStatus == store.StatusCancelled {
			party = exchange.ToUserID
		}
		if err := s.requireActor(ctx, actorID, party); err != nil {
			return err
		}
		if exchange.Status != store.StatusRequested && exchange.Status != store.StatusApproved {
			return ErrInvalidTransition
		}
		rows, err := s.exchangeStore.Transition(ctx, tx, exchangeID, exchange.Status, toStatus)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrInvalidTransition
		}
		if exchange.Escrowed {
			if _, err := s.userStore.AdjustPoints(ctx, tx, exchange.ToUserID, exchange.PointsCost); err != nil {
				return err
			}
			if err := s.exchangeStore.SetEscrowed(ctx, tx, exchangeID, false); err != nil {
				return err
			}
			if err := s.ledgerStore.InsertTransaction(ctx, tx, store.PointTransactionInput{
				ID:          uuid.NewString(),
				UserID:      exchange.ToUserID,
				Amount:      exchange.PointsCost,
				Kind:        "credit",
				Description: "Escrow released",
				ExchangeID:  &exchange.ID,
			}); err != nil {
				return err
			}
			refundedUser = exchange.ToUserID
		}
		data, _ := json.Marshal(map[string]string{"book_id": exchange.BookID, "status": toStatus})
		return s.auditStore.Log(ctx, tx, actorID, "terminate_exchange", "exchange", exchangeID, string(data))
	})
	if err != nil {
		return err
	}
	if refundedUser != "" {
		s.pushBalance(ctx, refundedUser)
	}
	return nil
}

// Complete finalizes an APPROVED exchange: status flip, ownership transfer and
// the owner's credit are one transaction. Either all four effects land or none.
func (s *ExchangeService) Complete(ctx context.Context, exchangeID, actorID string) error {
	var fromUserID, toUserID string
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		exchange, err := s.exchangeStore.GetForUpdate(ctx, tx, exchangeID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if actorID != exchange.FromUserID && actorID != exchange.ToUserID {
			isAdmin, err := s.userStore.IsAdmin(ctx, actorID)
			if err != nil {
				return err
			}
			if !isAdmin {
				return ErrForbidden
			}
		}
		rows, err := s.exchangeStore.Transition(ctx, tx, exchangeID, store.StatusApproved, store.StatusCompleted)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrInvalidTransition
		}
		book, err := s.bookStore.GetForUpdate(ctx, tx, exchange.BookID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if book.CurrentOwnerID != exchange.FromUserID {
			return ErrOwnershipConflict
		}
		moved, err := s.bookStore.TransferOwner(ctx, tx, exchange.BookID, exchange.FromUserID, exchange.ToUserID)
		if err != nil {
			return err
		}
		if moved == 0 {
			return ErrOwnershipConflict
		}
		if !exchange.Escrowed {
			debited, err := s.userStore.AdjustPoints(ctx, tx, exchange.ToUserID, -exchange.PointsCost)
			if err != nil {
				return err
			}
			if debited == 0 {
				return ErrInsufficientBalance
			}
			if err := s.ledgerStore.InsertTransaction(ctx, tx, store.PointTransactionInput{
				ID:          uuid.NewString(),
				UserID:      exchange.ToUserID,
				Amount:      -exchange.PointsCost,
				Kind:        "debit",
				Description: "Exchange payment",
				ExchangeID:  &exchange.ID,
			}); err != nil {
				return err
			}
		}
		if _, err := s.userStore.AdjustPoints(ctx, tx, exchange.FromUserID, exchange.PointsCost); err != nil {
			return err
		}
		if err := s.ledgerStore.InsertTransaction(ctx, tx, store.PointTransactionInput{
			ID:          uuid.NewString(),
			UserID:      exchange.FromUserID,
			Amount:      exchange.PointsCost,
			Kind:        "credit",
			Description: "Exchange proceeds",
			ExchangeID:  &exchange.ID,
		}); err != nil {
			return err
		}
		fromUserID = exchange.FromUserID
		toUserID = exchange.ToUserID
		data, _ := json.Marshal(map[string]string{"book_id": exchange.BookID})
		return s.auditStore.Log(ctx, tx, actorID, "complete_exchange", "exchange", exchangeID, string(data))
	})
	if err != nil {
		return err
	}
	s.pushBalance(ctx, fromUserID)
	s.pushBalance(ctx, toUserID)
	return nil
}

func (s *ExchangeService) requireActor(ctx context.Context, actorID, allowedUserID string) error {
	if actorID == allowedUserID {
		return nil
	}
	isAdmin, err := s.userStore.IsAdmin(ctx, actorID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return ErrForbidden
	}
	return nil
}

func (s *ExchangeService) pushBalance(ctx context.Context, userID string) {
	if userID == "" {
		return
	}
	balance, err := s.userStore.GetPoints(ctx, userID)
	if err != nil {
		return
	}
	s.hub.BroadcastPoints(userID, websocket.PointsUpdate{UserID: userID, Balance: balance})
}
