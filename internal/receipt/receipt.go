package receipt

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"pharmapos/terminal/internal/apperror"
	"pharmapos/terminal/internal/domain"
)

const width = 40

var (
	escInit = []byte{0x1b, 0x40}
	escCut  = []byte{0x1d, 0x56, 0x41, 0x10}

	ErrMissingNumber = apperror.NewValidation("receipt number is required")
)

// Number returns the receipt number to print for tx: the explicit number
// when given, otherwise the one assigned by the backend, otherwise the
// transaction id.
func Number(tx domain.Transaction, explicit string) string {
	if n := strings.TrimSpace(explicit); n != "" {
		return n
	}
	if n := strings.TrimSpace(tx.ReceiptNumber); n != "" {
		return n
	}
	return tx.ID
}

// FileName is the download name for a receipt.
func FileName(receiptNumber string) string {
	return "receipt-" + receiptNumber + ".txt"
}

// Format renders tx as plain text. Only transaction fields are read, so the
// same input always yields the same bytes.
func Format(tx domain.Transaction, receiptNumber string) string {
	rule := strings.Repeat("=", width)
	thin := strings.Repeat("-", width)

	lines := []string{
		center(headerName(tx)),
		rule,
		"Receipt : " + receiptNumber,
		"Date    : " + tx.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		"Cashier : " + cashier(tx),
	}
	if tx.TerminalID != "" {
		lines = append(lines, "Terminal: "+tx.TerminalID)
	}
	lines = append(lines, thin)

	for _, item := range tx.Items {
		lines = append(lines, item.Name)
		lines = append(lines, pair(fmt.Sprintf("  %d x %s", item.Quantity, money(item.UnitPrice)), money(item.Total)))
		if item.Discount.IsPositive() {
			lines = append(lines, "  disc "+money(item.Discount)+" /unit")
		}
	}

	lines = append(lines,
		thin,
		pair("Subtotal", money(tx.Subtotal)),
		pair("Discount", money(tx.TotalDiscount)),
		pair("Tax 15%", money(tx.Tax)),
		pair("TOTAL", money(tx.Total)),
		thin,
		pair("Paid ("+string(tx.Payment.Method)+")", money(tx.Payment.AmountReceived)),
	)
	if tx.Payment.Method == domain.PaymentCash {
		lines = append(lines, pair("Change", money(tx.Payment.Change)))
	}
	if tx.Payment.Reference != "" {
		lines = append(lines, "Ref: "+tx.Payment.Reference)
	}
	if tx.PrescriptionOverride {
		lines = append(lines, "* prescription check overridden")
	}
	lines = append(lines,
		rule,
		center("Thank you, get well soon"),
		"",
	)
	return strings.Join(lines, "\n")
}

// Download writes the plain-text receipt to w.
func Download(w io.Writer, tx domain.Transaction, receiptNumber string) error {
	if receiptNumber == "" {
		return ErrMissingNumber
	}
	_, err := io.WriteString(w, Format(tx, receiptNumber))
	return err
}

// SaveFile writes the receipt into dir and returns the file path.
func SaveFile(dir string, tx domain.Transaction, receiptNumber string) (string, error) {
	if receiptNumber == "" {
		return "", ErrMissingNumber
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("receipt: create %s: %w", dir, err)
	}
	path := filepath.Join(dir, FileName(filepath.Base(receiptNumber)))
	if err := os.WriteFile(path, []byte(Format(tx, receiptNumber)), 0o644); err != nil {
		return "", fmt.Errorf("receipt: write %s: %w", path, err)
	}
	return path, nil
}

// ESCPOS frames the receipt text with printer init and partial cut.
func ESCPOS(tx domain.Transaction, receiptNumber string) []byte {
	text := Format(tx, receiptNumber)
	out := make([]byte, 0, len(escInit)+len(text)+len(escCut))
	out = append(out, escInit...)
	out = append(out, text...)
	out = append(out, escCut...)
	return out
}

// Print sends the framed receipt to printer.
func Print(ctx context.Context, printer Printer, tx domain.Transaction, receiptNumber string) error {
	if receiptNumber == "" {
		return ErrMissingNumber
	}
	return printer.Print(ctx, ESCPOS(tx, receiptNumber))
}

func headerName(tx domain.Transaction) string {
	if tx.OutletName != "" {
		return tx.OutletName
	}
	if tx.OutletID != "" {
		return "Outlet " + tx.OutletID
	}
	return "Pharmacy"
}

func cashier(tx domain.Transaction) string {
	if tx.CashierName != "" {
		return tx.CashierName
	}
	return tx.CashierID
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func pair(left, right string) string {
	gap := width - utf8.RuneCountInString(left) - utf8.RuneCountInString(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func center(s string) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return strings.Repeat(" ", (width-n)/2) + s
}
