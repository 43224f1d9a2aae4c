package shift

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pharmapos/terminal/internal/apperror"
	"pharmapos/terminal/internal/domain"
	"pharmapos/terminal/internal/validation"
	"pharmapos/terminal/internal/xid"
)

// ApprovalThreshold is the largest absolute variance a cashier may close
// without a manager.
var ApprovalThreshold = decimal.NewFromInt(10000)

var (
	ErrInvalidAmount     = apperror.NewValidation("amount must be a number")
	ErrNegativeAmount    = apperror.NewValidation("amount must not be negative")
	ErrNonPositive       = apperror.NewValidation("amount must be greater than zero")
	ErrNotActive         = apperror.New(apperror.KindConflict, "shift is not active")
	ErrNotPending        = apperror.New(apperror.KindConflict, "shift close is not awaiting approval")
	ErrShiftClosed       = apperror.New(apperror.KindConflict, "shift is closed")
	ErrApprovalDenied    = apperror.New(apperror.KindForbidden, "manager approval denied")
	ErrMissingStaff      = apperror.NewValidation("shift requires a staff user")
	ErrUnsupportedMethod = apperror.NewValidation("unsupported payment method")
)

// Verifier checks a manager credential with an external authority.
type Verifier interface {
	VerifyManager(ctx context.Context, credential string) (domain.Approver, error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, credential string) (domain.Approver, error)

func (f VerifierFunc) VerifyManager(ctx context.Context, credential string) (domain.Approver, error) {
	return f(ctx, credential)
}

type Staff struct {
	ID         string
	Name       string
	OutletID   string
	TerminalID string
}

// Start opens a shift for staff. openingCash is the figure typed by the
// cashier and must be a non-negative number.
func Start(staff Staff, openingCash string, now time.Time) (domain.ShiftSnapshot, error) {
	if strings.TrimSpace(staff.ID) == "" {
		return domain.ShiftSnapshot{}, ErrMissingStaff
	}
	opening, err := parseAmount(openingCash)
	if err != nil {
		return domain.ShiftSnapshot{}, err
	}
	return domain.ShiftSnapshot{
		ID:           xid.New("shift"),
		StaffID:      staff.ID,
		StaffName:    staff.Name,
		OutletID:     staff.OutletID,
		TerminalID:   staff.TerminalID,
		Status:       domain.ShiftActive,
		StartTime:    now.UTC(),
		OpeningCash:  opening,
		TotalSales:   decimal.Zero,
		CashSales:    decimal.Zero,
		CardSales:    decimal.Zero,
		MobileSales:  decimal.Zero,
		TotalCashIn:  decimal.Zero,
		TotalCashOut: decimal.Zero,
	}, nil
}

// RecordSale adds a completed sale to the running totals.
func RecordSale(snap domain.ShiftSnapshot, payment domain.PaymentRecord, total decimal.Decimal) (domain.ShiftSnapshot, error) {
	if err := requireActive(snap); err != nil {
		return snap, err
	}
	next := clone(snap)
	switch payment.Method {
	case domain.PaymentCash:
		next.CashSales = next.CashSales.Add(total)
	case domain.PaymentCard:
		next.CardSales = next.CardSales.Add(total)
	case domain.PaymentMobile:
		next.MobileSales = next.MobileSales.Add(total)
	default:
		return snap, fmt.Errorf("%w: %q", ErrUnsupportedMethod, payment.Method)
	}
	next.TotalSales = next.TotalSales.Add(total)
	next.TransactionCount++
	return next, nil
}

func CashIn(snap domain.ShiftSnapshot, amount string, note string, now time.Time) (domain.ShiftSnapshot, error) {
	return moveCash(snap, domain.CashIn, amount, note, now)
}

func CashOut(snap domain.ShiftSnapshot, amount string, note string, now time.Time) (domain.ShiftSnapshot, error) {
	return moveCash(snap, domain.CashOut, amount, note, now)
}

// ExpectedCash is opening cash plus cash sales and cash-ins, minus cash-outs.
func ExpectedCash(snap domain.ShiftSnapshot) decimal.Decimal {
	return snap.OpeningCash.Add(snap.CashSales).Add(snap.TotalCashIn).Sub(snap.TotalCashOut)
}

// RequiresApproval reports whether variance is beyond ApprovalThreshold.
func RequiresApproval(variance decimal.Decimal) bool {
	return variance.Abs().GreaterThan(ApprovalThreshold)
}

// RequestClose records the counted cash. Within the threshold the shift is
// closed; beyond it the shift waits in pending_approval. A pending shift may
// be recounted.
func RequestClose(snap domain.ShiftSnapshot, actualCash string, notes string, now time.Time) (domain.ShiftSnapshot, error) {
	switch snap.Status {
	case domain.ShiftActive, domain.ShiftPendingApproval:
	case domain.ShiftClosed:
		return snap, ErrShiftClosed
	default:
		return snap, ErrNotActive
	}
	actual, err := parseAmount(actualCash)
	if err != nil {
		return snap, err
	}

	next := clone(snap)
	variance := actual.Sub(ExpectedCash(snap))
	next.ActualCash = &actual
	next.Variance = &variance
	next.Notes = strings.TrimSpace(notes)
	requested := now.UTC()
	next.CloseRequestedAt = &requested

	if RequiresApproval(variance) {
		next.Status = domain.ShiftPendingApproval
		return next, nil
	}
	next.Status = domain.ShiftClosed
	next.EndTime = &requested
	return next, nil
}

// Approve completes a pending close once verifier accepts credential. On any
// failure the pending snapshot is returned unchanged and the caller may retry.
func Approve(ctx context.Context, snap domain.ShiftSnapshot, verifier Verifier, credential string, now time.Time) (domain.ShiftSnapshot, error) {
	if snap.Status == domain.ShiftClosed {
		return snap, ErrShiftClosed
	}
	if snap.Status != domain.ShiftPendingApproval {
		return snap, ErrNotPending
	}
	if strings.TrimSpace(credential) == "" {
		return snap, ErrApprovalDenied
	}

	approver, err := verifier.VerifyManager(ctx, credential)
	if err != nil {
		switch apperror.KindOf(err) {
		case apperror.KindUnauthorized, apperror.KindForbidden, apperror.KindValidation:
			if errors.Is(err, ErrApprovalDenied) {
				return snap, err
			}
			return snap, fmt.Errorf("%w: %s", ErrApprovalDenied, err.Error())
		default:
			return snap, err
		}
	}

	next := clone(snap)
	approvedAt := now.UTC()
	next.Approval = &domain.ManagerApproval{
		ApproverID:   approver.ID,
		ApproverName: approver.Name,
		ApprovedAt:   approvedAt,
	}
	next.Status = domain.ShiftClosed
	next.EndTime = &approvedAt
	return next, nil
}

// CancelClose returns a pending shift to active, discarding the count.
func CancelClose(snap domain.ShiftSnapshot) (domain.ShiftSnapshot, error) {
	if snap.Status == domain.ShiftClosed {
		return snap, ErrShiftClosed
	}
	if snap.Status != domain.ShiftPendingApproval {
		return snap, ErrNotPending
	}
	next := clone(snap)
	next.Status = domain.ShiftActive
	next.ActualCash = nil
	next.Variance = nil
	next.Notes = ""
	next.CloseRequestedAt = nil
	return next, nil
}

func moveCash(snap domain.ShiftSnapshot, direction domain.CashDirection, amount string, note string, now time.Time) (domain.ShiftSnapshot, error) {
	if err := requireActive(snap); err != nil {
		return snap, err
	}
	value, err := parseAmount(amount)
	if err != nil {
		return snap, err
	}
	if !value.IsPositive() {
		return snap, ErrNonPositive
	}

	next := clone(snap)
	if direction == domain.CashIn {
		next.TotalCashIn = next.TotalCashIn.Add(value)
	} else {
		next.TotalCashOut = next.TotalCashOut.Add(value)
	}
	next.CashMovements = append(next.CashMovements, domain.CashMovement{
		Direction: direction,
		Amount:    value,
		Note:      strings.TrimSpace(note),
		At:        now.UTC(),
	})
	return next, nil
}

func requireActive(snap domain.ShiftSnapshot) error {
	switch snap.Status {
	case domain.ShiftActive:
		return nil
	case domain.ShiftClosed:
		return ErrShiftClosed
	default:
		return ErrNotActive
	}
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, ok := validation.ParseMoney(raw)
	if !ok {
		return decimal.Zero, ErrInvalidAmount
	}
	if amount.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	return amount, nil
}

// clone copies snap so that appends on the result never touch the caller's
// movement slice.
func clone(snap domain.ShiftSnapshot) domain.ShiftSnapshot {
	next := snap
	if snap.CashMovements != nil {
		next.CashMovements = make([]domain.CashMovement, len(snap.CashMovements), len(snap.CashMovements)+1)
		copy(next.CashMovements, snap.CashMovements)
	}
	return next
}
