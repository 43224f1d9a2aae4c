package checkout

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmapos/terminal/internal/apperror"
	"pharmapos/terminal/internal/domain"
)

func line(name string, rx bool) domain.CartLine {
	return domain.CartLine{
		Product:   domain.Product{ID: name, Name: name, RequiresPrescription: rx},
		Quantity:  1,
		UnitPrice: decimal.NewFromInt(100),
		Total:     decimal.NewFromInt(100),
	}
}

func TestGateRejectsEmptyCart(t *testing.T) {
	err := Gate(nil, false)
	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	assert.ErrorIs(t, Gate(nil, true), ErrEmptyCart)
}

func TestGateListsPrescriptionItems(t *testing.T) {
	lines := []domain.CartLine{line("Paracetamol 500mg", false), line("Amoxicillin 250mg", true), line("Tramadol 50mg", true)}

	err := Gate(lines, false)
	require.ErrorIs(t, err, ErrPrescriptionRequired)

	var block *PrescriptionBlockError
	require.True(t, errors.As(err, &block))
	assert.Equal(t, []string{"Amoxicillin 250mg", "Tramadol 50mg"}, block.Names)
	assert.Contains(t, err.Error(), "Amoxicillin 250mg")
	assert.Contains(t, err.Error(), "Tramadol 50mg")
	assert.NotContains(t, err.Error(), "Paracetamol")
}

func TestGatePassesWithOverrideOrWithoutPrescriptionItems(t *testing.T) {
	assert.NoError(t, Gate([]domain.CartLine{line("Amoxicillin 250mg", true)}, true))
	assert.NoError(t, Gate([]domain.CartLine{line("Vitamin C", false)}, false))
}

func TestAuthorizeOverride(t *testing.T) {
	assert.ErrorIs(t, AuthorizeOverride(domain.RoleCashier, true), ErrOverrideNotAllowed)
	assert.NoError(t, AuthorizeOverride(domain.RoleCashier, false))
	assert.NoError(t, AuthorizeOverride(domain.RoleManager, true))
	assert.NoError(t, AuthorizeOverride(domain.RoleAdmin, true))
}
