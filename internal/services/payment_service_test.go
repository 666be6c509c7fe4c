package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"readloom/internal/payments"
	"readloom/internal/store"
)

type stubSessionStore struct {
	createFn      func(ctx context.Context, sessionID, userID string, pointsAmount, amountCents int64) error
	getByIDFn     func(ctx context.Context, sessionID string) (store.PaymentSession, error)
	markSettledFn func(ctx context.Context, tx store.Execer, sessionID string) error
}

func (s stubSessionStore) Create(ctx context.Context, sessionID, userID string, pointsAmount, amountCents int64) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, sessionID, userID, pointsAmount, amountCents)
}

func (s stubSessionStore) GetByID(ctx context.Context, sessionID string) (store.PaymentSession, error) {
	if s.getByIDFn == nil {
		return store.PaymentSession{SessionID: sessionID}, nil
	}
	return s.getByIDFn(ctx, sessionID)
}

func (s stubSessionStore) MarkSettled(ctx context.Context, tx store.Execer, sessionID string) error {
	if s.markSettledFn == nil {
		return nil
	}
	return s.markSettledFn(ctx, tx, sessionID)
}

type stubProvider struct {
	createSessionFn func(ctx context.Context, sessionID, email, description string, amountCents int64) (payments.Session, error)
	verifySessionFn func(ctx context.Context, sessionID string) (payments.Status, error)
}

func (s stubProvider) CreateSession(ctx context.Context, sessionID, email, description string, amountCents int64) (payments.Session, error) {
	if s.createSessionFn == nil {
		return payments.Session{ID: sessionID, RedirectURL: "https://pay.example/" + sessionID}, nil
	}
	return s.createSessionFn(ctx, sessionID, email, description, amountCents)
}

func (s stubProvider) VerifySession(ctx context.Context, sessionID string) (payments.Status, error) {
	if s.verifySessionFn == nil {
		return payments.Status{SessionID: sessionID, Settled: true}, nil
	}
	return s.verifySessionFn(ctx, sessionID)
}

func newPaymentService(users UserStore, ledger LedgerStore, sessions PaymentSessionStore, provider payments.Provider, hub PointsHub) *PaymentService {
	return NewPaymentService(fakeTxRunner{}, users, ledger, sessions, stubAuditStore{}, provider, hub)
}

func TestCreateCheckoutRejectsOddAmount(t *testing.T) {
	service := newPaymentService(stubUserStore{}, stubLedgerStore{}, stubSessionStore{}, stubProvider{}, &stubHub{})

	_, err := service.CreateCheckout(context.Background(), "user-1", 15)
	if err != ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	_, err = service.CreateCheckout(context.Background(), "user-1", -10)
	if err != ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestCreateCheckoutChargesDollarCents(t *testing.T) {
	var chargedCents int64
	var storedCents int64
	service := newPaymentService(stubUserStore{}, stubLedgerStore{}, stubSessionStore{
		createFn: func(_ context.Context, _, _ string, _, amountCents int64) error {
			storedCents = amountCents
			return nil
		},
	}, stubProvider{
		createSessionFn: func(_ context.Context, sessionID, _, _ string, amountCents int64) (payments.Session, error) {
			chargedCents = amountCents
			return payments.Session{ID: sessionID, RedirectURL: "https://pay.example/x"}, nil
		},
	}, &stubHub{})

	session, err := service.CreateCheckout(context.Background(), "user-1", 250)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.RedirectURL == "" {
		t.Fatalf("expected redirect url")
	}
	if chargedCents != 2500 {
		t.Fatalf("expected 2500 cents for 250 points, got %d", chargedCents)
	}
	if storedCents != chargedCents {
		t.Fatalf("stored amount %d differs from charged %d", storedCents, chargedCents)
	}
}

func TestCreateCheckoutProviderFailure(t *testing.T) {
	stored := false
	service := newPaymentService(stubUserStore{}, stubLedgerStore{}, stubSessionStore{
		createFn: func(context.Context, string, string, int64, int64) error {
			stored = true
			return nil
		},
	}, stubProvider{
		createSessionFn: func(context.Context, string, string, string, int64) (payments.Session, error) {
			return payments.Session{}, payments.ErrProvider
		},
	}, &stubHub{})

	_, err := service.CreateCheckout(context.Background(), "user-1", 100)
	if err != ErrPaymentProvider {
		t.Fatalf("expected ErrPaymentProvider, got %v", err)
	}
	if stored {
		t.Fatalf("session must not be stored when the provider fails")
	}
}

func TestConfirmCreditsOnce(t *testing.T) {
	var balance int64 = 20
	var entries []store.PointTransactionInput
	settled := false
	hub := &stubHub{}
	service := newPaymentService(stubUserStore{
		adjustPointsFn: func(_ context.Context, _ store.Execer, _ string, delta int64) (int64, error) {
			balance += delta
			return 1, nil
		},
		getPointsFn: func(context.Context, string) (int64, error) {
			return balance, nil
		},
	}, stubLedgerStore{
		insertFn: func(_ context.Context, _ store.Execer, input store.PointTransactionInput) error {
			entries = append(entries, input)
			return nil
		},
	}, stubSessionStore{
		getByIDFn: func(_ context.Context, sessionID string) (store.PaymentSession, error) {
			return store.PaymentSession{SessionID: sessionID, UserID: "user-1", Points: 100, AmountCents: 1000}, nil
		},
		markSettledFn: func(context.Context, store.Execer, string) error {
			settled = true
			return nil
		},
	}, stubProvider{
		verifySessionFn: func(_ context.Context, sessionID string) (payments.Status, error) {
			return payments.Status{SessionID: sessionID, Settled: true, GrossCents: 1000}, nil
		},
	}, hub)

	result, err := service.Confirm(context.Background(), "points-abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Points != 100 || result.Balance != 120 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(entries) != 1 || entries[0].Description != "Points purchase" {
		t.Fatalf("unexpected ledger entries: %+v", entries)
	}
	if !settled {
		t.Fatalf("expected session marked settled")
	}
	if len(hub.updates) != 1 || hub.updates[0].Balance != 120 {
		t.Fatalf("expected balance push, got %+v", hub.updates)
	}
}

func TestConfirmBalanceReadFailureReportsCreditedAmount(t *testing.T) {
	hub := &stubHub{}
	service := newPaymentService(stubUserStore{
		getPointsFn: func(context.Context, string) (int64, error) {
			return 0, errors.New("connection reset")
		},
	}, stubLedgerStore{}, stubSessionStore{
		getByIDFn: func(_ context.Context, sessionID string) (store.PaymentSession, error) {
			return store.PaymentSession{SessionID: sessionID, UserID: "user-1", Points: 100, AmountCents: 1000}, nil
		},
	}, stubProvider{
		verifySessionFn: func(_ context.Context, sessionID string) (payments.Status, error) {
			return payments.Status{SessionID: sessionID, Settled: true, GrossCents: 1000}, nil
		},
	}, hub)

	result, err := service.Confirm(context.Background(), "points-abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Balance != 100 {
		t.Fatalf("expected the credited amount as the balance floor, got %d", result.Balance)
	}
	if len(hub.updates) != 0 {
		t.Fatalf("no balance push without a fresh read, got %+v", hub.updates)
	}
}

func TestConfirmDuplicateLeavesBalanceAlone(t *testing.T) {
	adjusted := false
	service := newPaymentService(stubUserStore{
		adjustPointsFn: func(context.Context, store.Execer, string, int64) (int64, error) {
			adjusted = true
			return 1, nil
		},
	}, stubLedgerStore{
		recordCreditFn: func(context.Context, store.Execer, string, string, int64) (int64, error) {
			return 0, nil
		},
	}, stubSessionStore{
		getByIDFn: func(_ context.Context, sessionID string) (store.PaymentSession, error) {
			return store.PaymentSession{SessionID: sessionID, UserID: "user-1", Points: 100, AmountCents: 1000}, nil
		},
	}, stubProvider{
		verifySessionFn: func(_ context.Context, sessionID string) (payments.Status, error) {
			return payments.Status{SessionID: sessionID, Settled: true, GrossCents: 1000}, nil
		},
	}, &stubHub{})

	_, err := service.Confirm(context.Background(), "points-abc")
	if err != ErrDuplicateCredit {
		t.Fatalf("expected ErrDuplicateCredit, got %v", err)
	}
	if adjusted {
		t.Fatalf("duplicate confirmation must not touch the balance")
	}
}

func TestConfirmPendingPayment(t *testing.T) {
	service := newPaymentService(stubUserStore{}, stubLedgerStore{}, stubSessionStore{
		getByIDFn: func(_ context.Context, sessionID string) (store.PaymentSession, error) {
			return store.PaymentSession{SessionID: sessionID, UserID: "user-1", Points: 100, AmountCents: 1000}, nil
		},
	}, stubProvider{
		verifySessionFn: func(_ context.Context, sessionID string) (payments.Status, error) {
			return payments.Status{SessionID: sessionID, Settled: false, GrossCents: 1000}, nil
		},
	}, &stubHub{})

	_, err := service.Confirm(context.Background(), "points-abc")
	if err != ErrPaymentNotSettled {
		t.Fatalf("expected ErrPaymentNotSettled, got %v", err)
	}
}

func TestConfirmAmountMismatch(t *testing.T) {
	service := newPaymentService(stubUserStore{}, stubLedgerStore{}, stubSessionStore{
		getByIDFn: func(_ context.Context, sessionID string) (store.PaymentSession, error) {
			return store.PaymentSession{SessionID: sessionID, UserID: "user-1", Points: 100, AmountCents: 1000}, nil
		},
	}, stubProvider{
		verifySessionFn: func(_ context.Context, sessionID string) (payments.Status, error) {
			return payments.Status{SessionID: sessionID, Settled: true, GrossCents: 500}, nil
		},
	}, &stubHub{})

	_, err := service.Confirm(context.Background(), "points-abc")
	if err != ErrPaymentNotSettled {
		t.Fatalf("expected ErrPaymentNotSettled on amount mismatch, got %v", err)
	}
}

func TestConfirmUnknownSession(t *testing.T) {
	service := newPaymentService(stubUserStore{}, stubLedgerStore{}, stubSessionStore{
		getByIDFn: func(context.Context, string) (store.PaymentSession, error) {
			return store.PaymentSession{}, sql.ErrNoRows
		},
	}, stubProvider{}, &stubHub{})

	_, err := service.Confirm(context.Background(), "points-missing")
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionOwner(t *testing.T) {
	service := newPaymentService(stubUserStore{}, stubLedgerStore{}, stubSessionStore{
		getByIDFn: func(_ context.Context, sessionID string) (store.PaymentSession, error) {
			return store.PaymentSession{SessionID: sessionID, UserID: "user-7"}, nil
		},
	}, stubProvider{}, &stubHub{})

	owner, err := service.SessionOwner(context.Background(), "points-abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if owner != "user-7" {
		t.Fatalf("expected user-7, got %s", owner)
	}
}
