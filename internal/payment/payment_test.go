package payment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmapos/terminal/internal/apperror"
	"pharmapos/terminal/internal/domain"
)

var total = decimal.NewFromInt(11500)

func TestCashExactTenderHasNoChange(t *testing.T) {
	rec, err := Capture(Tender{Method: domain.PaymentCash, AmountReceived: "11500"}, total)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCash, rec.Method)
	assert.True(t, rec.AmountReceived.Equal(total))
	assert.True(t, rec.Change.IsZero())
}

func TestCashOverTenderReturnsChange(t *testing.T) {
	rec, err := Capture(Tender{Method: domain.PaymentCash, AmountReceived: "12000"}, total)
	require.NoError(t, err)
	assert.True(t, rec.Change.Equal(decimal.NewFromInt(500)))
}

func TestCashUnderTenderRejected(t *testing.T) {
	_, err := Capture(Tender{Method: domain.PaymentCash, AmountReceived: "11499.99"}, total)
	require.ErrorIs(t, err, ErrAmountTooLow)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestCashNonNumericRejected(t *testing.T) {
	_, err := Capture(Tender{Method: domain.PaymentCash, AmountReceived: "ten"}, total)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = Capture(Tender{Method: domain.PaymentCash}, total)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestNonCashRequiresReference(t *testing.T) {
	for _, method := range []domain.PaymentMethod{domain.PaymentCard, domain.PaymentMobile} {
		_, err := Capture(Tender{Method: method, Reference: "   "}, total)
		assert.ErrorIs(t, err, ErrMissingReference, method)

		rec, err := Capture(Tender{Method: method, AmountReceived: "999999", Reference: " APPR-42 "}, total)
		require.NoError(t, err, method)
		assert.True(t, rec.AmountReceived.Equal(total), "non-cash amount equals total")
		assert.True(t, rec.Change.IsZero())
		assert.Equal(t, "APPR-42", rec.Reference)
	}
}

func TestUnknownMethodRejected(t *testing.T) {
	_, err := Capture(Tender{Method: "cheque", AmountReceived: "20000"}, total)
	assert.ErrorIs(t, err, ErrUnsupportedMethod)

	_, err = Capture(Tender{}, total)
	assert.ErrorIs(t, err, ErrUnsupportedMethod)
}

func TestMethodIsNormalized(t *testing.T) {
	rec, err := Capture(Tender{Method: " CASH ", AmountReceived: "20000"}, total)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCash, rec.Method)
}
