package payment

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"pharmapos/terminal/internal/apperror"
	"pharmapos/terminal/internal/domain"
	"pharmapos/terminal/internal/validation"
)

var (
	ErrUnsupportedMethod = apperror.NewValidation("unsupported payment method")
	ErrInvalidAmount     = apperror.NewValidation("amount received must be a number")
	ErrAmountTooLow      = apperror.NewValidation("amount received is less than the total")
	ErrMissingReference  = apperror.NewValidation("payment reference is required for card and mobile payments")
)

// Tender is the payment as entered at the till, before validation.
type Tender struct {
	Method         domain.PaymentMethod `json:"method" validate:"required,oneof=cash card mobile"`
	AmountReceived string               `json:"amount_received" validate:"max=32"`
	Reference      string               `json:"reference" validate:"max=128"`
}

// Capture turns a tender into a payment record for total. Nothing is written
// anywhere; an abandoned tender leaves no trace.
func Capture(tender Tender, total decimal.Decimal) (domain.PaymentRecord, error) {
	tender.Method = domain.PaymentMethod(strings.ToLower(strings.TrimSpace(string(tender.Method))))
	if err := validation.ValidateStruct(tender); err != nil {
		if tender.Method != domain.PaymentCash && tender.Method != domain.PaymentCard && tender.Method != domain.PaymentMobile {
			return domain.PaymentRecord{}, fmt.Errorf("%w: %q", ErrUnsupportedMethod, tender.Method)
		}
		return domain.PaymentRecord{}, err
	}

	switch tender.Method {
	case domain.PaymentCash:
		received, ok := validation.ParseMoney(tender.AmountReceived)
		if !ok {
			return domain.PaymentRecord{}, ErrInvalidAmount
		}
		if received.LessThan(total) {
			return domain.PaymentRecord{}, fmt.Errorf("%w: received %s, total %s", ErrAmountTooLow, received.String(), total.String())
		}
		return domain.PaymentRecord{
			Method:         domain.PaymentCash,
			AmountReceived: received,
			Change:         received.Sub(total),
		}, nil
	default:
		reference := strings.TrimSpace(tender.Reference)
		if reference == "" {
			return domain.PaymentRecord{}, ErrMissingReference
		}
		return domain.PaymentRecord{
			Method:         tender.Method,
			AmountReceived: total,
			Change:         decimal.Zero,
			Reference:      reference,
		}, nil
	}
}
