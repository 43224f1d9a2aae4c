package checkout

import (
	"fmt"
	"strings"

	"pharmapos/terminal/internal/apperror"
	"pharmapos/terminal/internal/domain"
)

var (
	ErrEmptyCart            = apperror.NewValidation("cart is empty")
	ErrPrescriptionRequired = apperror.NewValidation("prescription required")
	ErrOverrideNotAllowed   = apperror.New(apperror.KindForbidden, "prescription override requires a manager or admin")
)

// PrescriptionBlockError names the cart items that need a prescription.
type PrescriptionBlockError struct {
	Names []string
}

func (e *PrescriptionBlockError) Error() string {
	return fmt.Sprintf("prescription required for: %s", strings.Join(e.Names, ", "))
}

func (e *PrescriptionBlockError) Is(target error) bool {
	return target == ErrPrescriptionRequired
}

func (e *PrescriptionBlockError) Unwrap() error {
	return ErrPrescriptionRequired
}

// Gate decides whether payment may be offered for lines. It has no side
// effects.
func Gate(lines []domain.CartLine, override bool) error {
	if len(lines) == 0 {
		return ErrEmptyCart
	}
	if override {
		return nil
	}
	var names []string
	for _, line := range lines {
		if line.Product.RequiresPrescription {
			names = append(names, line.Product.Name)
		}
	}
	if len(names) > 0 {
		return &PrescriptionBlockError{Names: names}
	}
	return nil
}

// AuthorizeOverride rejects an override requested by a role that may not
// release prescription blocks.
func AuthorizeOverride(role domain.Role, override bool) error {
	if override && !role.CanOverride() {
		return ErrOverrideNotAllowed
	}
	return nil
}
