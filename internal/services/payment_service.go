package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"readloom/internal/db"
	"readloom/internal/logger"
	"readloom/internal/payments"
	"readloom/internal/points"
	"readloom/internal/store"
	"readloom/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

var (
	ErrInvalidAmount     = errors.New("invalid points amount")
	ErrDuplicateCredit   = errors.New("payment already credited")
	ErrPaymentNotSettled = errors.New("payment not settled")
	ErrPaymentProvider   = errors.New("payment provider failure")
)

type PaymentSessionStore interface {
	Create(ctx context.Context, sessionID, userID string, pointsAmount, amountCents int64) error
	GetByID(ctx context.Context, sessionID string) (store.PaymentSession, error)
	MarkSettled(ctx context.Context, tx store.Execer, sessionID string) error
}

type PaymentService struct {
	txRunner     db.TxRunner
	userStore    UserStore
	ledgerStore  LedgerStore
	sessionStore PaymentSessionStore
	auditStore   AuditStore
	provider     payments.Provider
	hub          PointsHub
}

func NewPaymentService(txRunner db.TxRunner, userStore UserStore, ledgerStore LedgerStore, sessionStore PaymentSessionStore, auditStore AuditStore, provider payments.Provider, hub PointsHub) *PaymentService {
	return &PaymentService{
		txRunner:     txRunner,
		userStore:    userStore,
		ledgerStore:  ledgerStore,
		sessionStore: sessionStore,
		auditStore:   auditStore,
		provider:     provider,
		hub:          hub,
	}
}

// CreateCheckout opens a hosted checkout session for a points purchase and
// records it server-side keyed by session id. Nothing is credited here.
func (s *PaymentService) CreateCheckout(ctx context.Context, userID string, amount int64) (payments.Session, error) {
	if err := points.ValidatePurchase(amount); err != nil {
		return payments.Session{}, ErrInvalidAmount
	}
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		return payments.Session{}, err
	}
	sessionID := "points-" + uuid.NewString()
	amountCents := points.DollarCents(amount)
	description := fmt.Sprintf("%d Readloom points ($%s)", amount, points.FormatDollars(amount))
	session, err := s.provider.CreateSession(ctx, sessionID, user.Email, description, amountCents)
	if err != nil {
		logger.Log.Error("checkout session creation failed", zap.String("user_id", userID), zap.Error(err))
		return payments.Session{}, ErrPaymentProvider
	}
	if err := s.sessionStore.Create(ctx, sessionID, userID, amount, amountCents); err != nil {
		return payments.Session{}, err
	}
	return session, nil
}

type CreditResult struct {
	UserID  string
	Points  int64
	Balance int64
}

// Confirm verifies the session server-side and credits exactly once. The points
// amount comes from the stored session row cross-checked against the verified
// charge, never from caller input. A repeat confirmation returns
// ErrDuplicateCredit and changes nothing.
func (s *PaymentService) Confirm(ctx context.Context, sessionID string) (CreditResult, error) {
	session, err := s.sessionStore.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CreditResult{}, ErrNotFound
		}
		return CreditResult{}, err
	}
	status, err := s.provider.VerifySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, payments.ErrSessionNotFound) {
			return CreditResult{}, ErrNotFound
		}
		logger.Log.Error("payment verification failed", zap.String("session_id", sessionID), zap.Error(err))
		return CreditResult{}, ErrPaymentProvider
	}
	if !status.Settled || status.GrossCents != session.AmountCents {
		return CreditResult{}, ErrPaymentNotSettled
	}

	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		claimed, err := s.ledgerStore.RecordCredit(ctx, tx, sessionID, session.UserID, session.Points)
		if err != nil {
			return err
		}
		if claimed == 0 {
			return ErrDuplicateCredit
		}
		if _, err := s.userStore.AdjustPoints(ctx, tx, session.UserID, session.Points); err != nil {
			return err
		}
		if err := s.ledgerStore.InsertTransaction(ctx, tx, store.PointTransactionInput{
			ID:          uuid.NewString(),
			UserID:      session.UserID,
			Amount:      session.Points,
			Kind:        "credit",
			Description: "Points purchase",
		}); err != nil {
			return err
		}
		if err := s.sessionStore.MarkSettled(ctx, tx, sessionID); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{"session_id": sessionID})
		return s.auditStore.Log(ctx, tx, session.UserID, "credit_points", "payment_session", sessionID, string(data))
	})
	if err != nil {
		return CreditResult{}, err
	}

	// The credit is committed at this point. If the fresh balance read fails,
	// report the credited amount as the floor rather than a zero balance.
	result := CreditResult{UserID: session.UserID, Points: session.Points, Balance: session.Points}
	balance, err := s.userStore.GetPoints(ctx, session.UserID)
	if err != nil {
		logger.Log.Warn("balance read after credit failed", zap.String("user_id", session.UserID), zap.Error(err))
		return result, nil
	}
	result.Balance = balance
	s.hub.BroadcastPoints(session.UserID, websocket.PointsUpdate{UserID: session.UserID, Balance: balance})
	return result, nil
}

// SessionOwner reports which user a checkout session belongs to.
func (s *PaymentService) SessionOwner(ctx context.Context, sessionID string) (string, error) {
	session, err := s.sessionStore.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return session.UserID, nil
}
