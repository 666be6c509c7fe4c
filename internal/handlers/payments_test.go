package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"readloom/internal/payments"
	"readloom/internal/services"
)

func TestCreateCheckout(t *testing.T) {
	var requested int64
	handler := newTestHandler(testDeps{
		paymentSvc: stubPaymentService{
			createCheckoutFn: func(_ context.Context, _ string, amount int64) (payments.Session, error) {
				requested = amount
				return payments.Session{ID: "points-abc", RedirectURL: "https://pay.example/abc"}, nil
			},
		},
	})

	body := []byte(`{"points":100}`)
	req := requestWithUser(httptest.NewRequest(http.MethodPost, "/payments/checkout", bytes.NewReader(body)), "user-1")
	rr := httptest.NewRecorder()
	handler.CreateCheckout(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	if requested != 100 {
		t.Fatalf("expected 100 points, got %d", requested)
	}
	var payload map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload["redirect_url"] == "" {
		t.Fatalf("expected redirect url")
	}
}

func TestCreateCheckoutInvalidAmount(t *testing.T) {
	handler := newTestHandler(testDeps{
		paymentSvc: stubPaymentService{
			createCheckoutFn: func(context.Context, string, int64) (payments.Session, error) {
				return payments.Session{}, services.ErrInvalidAmount
			},
		},
	})

	body := []byte(`{"points":15}`)
	req := requestWithUser(httptest.NewRequest(http.MethodPost, "/payments/checkout", bytes.NewReader(body)), "user-1")
	rr := httptest.NewRecorder()
	handler.CreateCheckout(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestPaymentSuccessCredits(t *testing.T) {
	handler := newTestHandler(testDeps{
		paymentSvc: stubPaymentService{
			sessionOwnerFn: func(context.Context, string) (string, error) {
				return "user-1", nil
			},
			confirmFn: func(context.Context, string) (services.CreditResult, error) {
				return services.CreditResult{UserID: "user-1", Points: 100, Balance: 120}, nil
			},
		},
	})

	req := requestWithUser(httptest.NewRequest(http.MethodGet, "/payments/success?session_id=points-abc", nil), "user-1")
	rr := httptest.NewRecorder()
	handler.PaymentSuccess(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var payload map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload["status"] != "credited" {
		t.Fatalf("expected credited, got %v", payload["status"])
	}
	if payload["balance"].(float64) != 120 {
		t.Fatalf("expected balance 120, got %v", payload["balance"])
	}
}

func TestPaymentSuccessDuplicateIsIdempotent(t *testing.T) {
	handler := newTestHandler(testDeps{
		paymentSvc: stubPaymentService{
			sessionOwnerFn: func(context.Context, string) (string, error) {
				return "user-1", nil
			},
			confirmFn: func(context.Context, string) (services.CreditResult, error) {
				return services.CreditResult{}, services.ErrDuplicateCredit
			},
		},
	})

	req := requestWithUser(httptest.NewRequest(http.MethodGet, "/payments/success?session_id=points-abc", nil), "user-1")
	rr := httptest.NewRecorder()
	handler.PaymentSuccess(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var payload map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload["status"] != "already_credited" {
		t.Fatalf("expected already_credited, got %s", payload["status"])
	}
}

func TestPaymentSuccessWrongUser(t *testing.T) {
	handler := newTestHandler(testDeps{
		paymentSvc: stubPaymentService{
			sessionOwnerFn: func(context.Context, string) (string, error) {
				return "user-1", nil
			},
		},
	})

	req := requestWithUser(httptest.NewRequest(http.MethodGet, "/payments/success?session_id=points-abc", nil), "user-2")
	rr := httptest.NewRecorder()
	handler.PaymentSuccess(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestPaymentSuccessNotSettled(t *testing.T) {
	handler := newTestHandler(testDeps{
		paymentSvc: stubPaymentService{
			sessionOwnerFn: func(context.Context, string) (string, error) {
				return "user-1", nil
			},
			confirmFn: func(context.Context, string) (services.CreditResult, error) {
				return services.CreditResult{}, services.ErrPaymentNotSettled
			},
		},
	})

	req := requestWithUser(httptest.NewRequest(http.MethodGet, "/payments/success?session_id=points-abc", nil), "user-1")
	rr := httptest.NewRecorder()
	handler.PaymentSuccess(rr, req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestPaymentNotifyAcknowledgesPending(t *testing.T) {
	handler := newTestHandler(testDeps{
		paymentSvc: stubPaymentService{
			confirmFn: func(context.Context, string) (services.CreditResult, error) {
				return services.CreditResult{}, services.ErrPaymentNotSettled
			},
		},
	})

	body := []byte(`{"order_id":"points-abc"}`)
	req := httptest.NewRequest(http.MethodPost, "/payments/notify", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	handler.PaymentNotify(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var payload map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload["status"] != "pending" {
		t.Fatalf("expected pending, got %s", payload["status"])
	}
}

func TestPaymentNotifyUnknownOrder(t *testing.T) {
	handler := newTestHandler(testDeps{
		paymentSvc: stubPaymentService{
			confirmFn: func(context.Context, string) (services.CreditResult, error) {
				return services.CreditResult{}, services.ErrNotFound
			},
		},
	})

	body := []byte(`{"order_id":"points-missing"}`)
	req := httptest.NewRequest(http.MethodPost, "/payments/notify", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	handler.PaymentNotify(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
