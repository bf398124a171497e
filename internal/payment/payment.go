// Package payment triggers M-PESA STK pushes through the PayHero API.
package payment

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bingwamta/databot/core/logger"
)

// Outcome is the interpreted result of a charge request.
type Outcome int

const (
	// Error covers transport failures, unexpected HTTP statuses and bodies
	// that could not be decoded.
	Error Outcome = iota
	// Success means the gateway reported a completed payment.
	Success
	// Pending means the push was accepted and awaits the customer.
	Pending
	// Failed means the gateway rejected the request.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Pending:
		return "pending"
	case Failed:
		return "failed"
	default:
		return "error"
	}
}

// ChargeRequest describes one STK push.
type ChargeRequest struct {
	// Phone is a normalised 254XXXXXXXXX number.
	Phone     string
	Amount    int
	Reference string
}

// Result reports how the gateway answered.
type Result struct {
	Outcome Outcome
	// Status is the gateway's status field, when present.
	Status     string
	Detail     string
	HTTPStatus int
}

// Charger issues charge requests.
type Charger interface {
	Charge(ctx context.Context, req ChargeRequest) Result
}

// Transaction is the record of one confirmed purchase attempt.
type Transaction struct {
	Reference string
	OfferID   string
	Phone     string
	Amount    int
	Outcome   Outcome
}

func classify(httpStatus int, success *bool, status string) Outcome {
	if httpStatus != 200 && httpStatus != 201 {
		return Error
	}
	if success == nil || !*success {
		return Failed
	}
	if strings.TrimSpace(status) == "SUCCESS" {
		return Success
	}
	return Pending
}

// LogAttrs renders the transaction for structured logs with the phone masked.
func (t Transaction) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("reference", t.Reference),
		slog.String("offer_id", t.OfferID),
		slog.String("phone", logger.Mask(t.Phone, 4)),
		slog.Int("amount", t.Amount),
		slog.String("outcome", t.Outcome.String()),
	}
}
