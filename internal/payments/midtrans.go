// Package payments wraps the hosted checkout provider. The core never credits
// points from client-supplied data; it always re-verifies the session status
// server-side through this package first.
package payments

import (
	"context"
	"errors"

	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/shopspring/decimal"
)

var (
	ErrSessionNotFound = errors.New("payment session not found")
	ErrProvider        = errors.New("payment provider error")
)

type Session struct {
	ID          string
	RedirectURL string
}

type Status struct {
	SessionID  string
	Settled    bool
	GrossCents int64
}

type Provider interface {
	CreateSession(ctx context.Context, sessionID, email, description string, amountCents int64) (Session, error)
	VerifySession(ctx context.Context, sessionID string) (Status, error)
}

type MidtransProvider struct {
	snap      snap.Client
	core      coreapi.Client
	finishURL string
}

func NewMidtransProvider(serverKey string, production bool, finishURL string) *MidtransProvider {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	p := &MidtransProvider{finishURL: finishURL}
	p.snap.New(serverKey, env)
	p.core.New(serverKey, env)
	return p
}

func (p *MidtransProvider) CreateSession(ctx context.Context, sessionID, email, description string, amountCents int64) (Session, error) {
	gross := decimal.NewFromInt(amountCents).Div(decimal.NewFromInt(100)).RoundBank(0).IntPart()
	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  sessionID,
			GrossAmt: gross,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			Email: email,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    sessionID,
				Price: gross,
				Qty:   1,
				Name:  description,
			},
		},
	}
	if p.finishURL != "" {
		req.Callbacks = &snap.Callbacks{Finish: p.finishURL}
	}
	resp, err := p.snap.CreateTransaction(req)
	if err != nil {
		return Session{}, ErrProvider
	}
	return Session{ID: sessionID, RedirectURL: resp.RedirectURL}, nil
}

func (p *MidtransProvider) VerifySession(ctx context.Context, sessionID string) (Status, error) {
	resp, err := p.core.CheckTransaction(sessionID)
	if err != nil {
		return Status{}, ErrProvider
	}
	if resp == nil || resp.OrderID == "" {
		return Status{}, ErrSessionNotFound
	}
	gross, parseErr := decimal.NewFromString(resp.GrossAmount)
	if parseErr != nil {
		gross = decimal.Zero
	}
	return Status{
		SessionID:  resp.OrderID,
		Settled:    isSettled(resp.TransactionStatus, resp.FraudStatus),
		GrossCents: gross.Mul(decimal.NewFromInt(100)).RoundBank(0).IntPart(),
	}, nil
}

func isSettled(transactionStatus, fraudStatus string) bool {
	switch transactionStatus {
	case "settlement":
		return true
	case "capture":
		return fraudStatus == "" || fraudStatus == "accept"
	default:
		return false
	}
}
