package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"readloom/internal/models"
	"readloom/internal/services"
	"readloom/internal/store"
	"readloom/internal/video"
)

func TestRequestExchange(t *testing.T) {
	var seen services.RequestExchangeInput
	handler := newTestHandler(testDeps{
		exchangeSvc: stubExchangeService{
			requestFn: func(_ context.Context, req services.RequestExchangeInput) (string, error) {
				seen = req
				return "exchange-1", nil
			},
		},
		exchanges: stubExchangeStore{
			getByIDFn: func(_ context.Context, exchangeID string) (models.Exchange, error) {
				return models.Exchange{ID: exchangeID, Status: store.StatusRequested}, nil
			},
		},
	})

	body := []byte(`{"book_id":"book-1","exchange_point_id":"point-1"}`)
	req := requestWithUser(httptest.NewRequest(http.MethodPost, "/exchanges", bytes.NewReader(body)), "user-2")
	rr := httptest.NewRecorder()
	handler.RequestExchange(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if seen.ToUserID != "user-2" || seen.BookID != "book-1" {
		t.Fatalf("unexpected request input: %+v", seen)
	}
	if seen.ExchangePointID == nil || *seen.ExchangePointID != "point-1" {
		t.Fatalf("expected exchange point point-1")
	}
}

func TestRequestExchangeErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"not found", services.ErrNotFound, http.StatusNotFound},
		{"unavailable", services.ErrNotAvailable, http.StatusBadRequest},
		{"self exchange", services.ErrSelfExchange, http.StatusBadRequest},
		{"insufficient", services.ErrInsufficientBalance, http.StatusBadRequest},
		{"inactive point", services.ErrExchangePointInactive, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := newTestHandler(testDeps{
				exchangeSvc: stubExchangeService{
					requestFn: func(context.Context, services.RequestExchangeInput) (string, error) {
						return "", tc.err
					},
				},
			})
			body := []byte(`{"book_id":"book-1"}`)
			req := requestWithUser(httptest.NewRequest(http.MethodPost, "/exchanges", bytes.NewReader(body)), "user-2")
			rr := httptest.NewRecorder()
			handler.RequestExchange(rr, req)
			if rr.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rr.Code)
			}
		})
	}
}

func TestApproveExchangeInvalidTransition(t *testing.T) {
	handler := newTestHandler(testDeps{
		exchangeSvc: stubExchangeService{
			approveFn: func(context.Context, string, string) error {
				return services.ErrInvalidTransition
			},
		},
	})

	req := requestWithURLParam(requestWithUser(httptest.NewRequest(http.MethodPost, "/exchanges/ex-1/approve", nil), "user-1"), "id", "ex-1")
	rr := httptest.NewRecorder()
	handler.ApproveExchange(rr, req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestCompleteExchangeForbidden(t *testing.T) {
	handler := newTestHandler(testDeps{
		exchangeSvc: stubExchangeService{
			completeFn: func(context.Context, string, string) error {
				return services.ErrForbidden
			},
		},
	})

	req := requestWithURLParam(requestWithUser(httptest.NewRequest(http.MethodPost, "/exchanges/ex-1/complete", nil), "user-3"), "id", "ex-1")
	rr := httptest.NewRecorder()
	handler.CompleteExchange(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestCancelExchangeReturnsUpdatedRow(t *testing.T) {
	handler := newTestHandler(testDeps{
		exchanges: stubExchangeStore{
			getByIDFn: func(_ context.Context, exchangeID string) (models.Exchange, error) {
				return models.Exchange{ID: exchangeID, Status: store.StatusCancelled}, nil
			},
		},
	})

	req := requestWithURLParam(requestWithUser(httptest.NewRequest(http.MethodPost, "/exchanges/ex-1/cancel", nil), "user-2"), "id", "ex-1")
	rr := httptest.NewRecorder()
	handler.CancelExchange(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var payload models.Exchange
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.Status != store.StatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", payload.Status)
	}
}

func TestCreateExchangeRoomRequiresApprovedStatus(t *testing.T) {
	handler := newTestHandler(testDeps{
		exchanges: stubExchangeStore{
			getByIDFn: func(_ context.Context, exchangeID string) (models.Exchange, error) {
				return models.Exchange{ID: exchangeID, FromUserID: "user-1", ToUserID: "user-2", Status: store.StatusRequested}, nil
			},
		},
	})

	req := requestWithURLParam(requestWithUser(httptest.NewRequest(http.MethodPost, "/exchanges/ex-1/room", nil), "user-1"), "id", "ex-1")
	rr := httptest.NewRecorder()
	handler.CreateExchangeRoom(rr, req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestCreateExchangeRoomProviderDown(t *testing.T) {
	handler := newTestHandler(testDeps{
		exchanges: stubExchangeStore{
			getByIDFn: func(_ context.Context, exchangeID string) (models.Exchange, error) {
				return models.Exchange{ID: exchangeID, FromUserID: "user-1", ToUserID: "user-2", Status: store.StatusApproved}, nil
			},
		},
		rooms: stubRoomCreator{
			createRoomFn: func(context.Context, string) (video.Room, error) {
				return video.Room{}, video.ErrUnavailable
			},
		},
	})

	req := requestWithURLParam(requestWithUser(httptest.NewRequest(http.MethodPost, "/exchanges/ex-1/room", nil), "user-2"), "id", "ex-1")
	rr := httptest.NewRecorder()
	handler.CreateExchangeRoom(rr, req)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rr.Code)
	}
}

func TestCreateExchangeRoomStrangerForbidden(t *testing.T) {
	handler := newTestHandler(testDeps{
		exchanges: stubExchangeStore{
			getByIDFn: func(_ context.Context, exchangeID string) (models.Exchange, error) {
				return models.Exchange{ID: exchangeID, FromUserID: "user-1", ToUserID: "user-2", Status: store.StatusApproved}, nil
			},
		},
	})

	req := requestWithURLParam(requestWithUser(httptest.NewRequest(http.MethodPost, "/exchanges/ex-1/room", nil), "user-3"), "id", "ex-1")
	rr := httptest.NewRecorder()
	handler.CreateExchangeRoom(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}
