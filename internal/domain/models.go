package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleCashier Role = "cashier"
)

// CanOverride reports whether the role may release a prescription block or
// supervise a shift close.
func (r Role) CanOverride() bool {
	return r == RoleAdmin || r == RoleManager
}

type Product struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	Barcode              string          `json:"barcode"`
	Category             string          `json:"category"`
	UnitPrice            decimal.Decimal `json:"unit_price"`
	CostPrice            decimal.Decimal `json:"cost_price"`
	WholesalePrice       decimal.Decimal `json:"wholesale_price"`
	RequiresPrescription bool            `json:"requires_prescription"`
	ExpiryDate           *time.Time      `json:"expiry_date,omitempty"`
	BatchNumber          string          `json:"batch_number,omitempty"`
}

type StockLevel struct {
	ProductID string `json:"product_id"`
	OutletID  string `json:"outlet_id"`
	Quantity  int    `json:"quantity"`
}

type CartLine struct {
	Product   Product         `json:"product"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
	Total     decimal.Decimal `json:"total"`
}

type CartTotals struct {
	ItemCount     int             `json:"item_count"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentMobile PaymentMethod = "mobile"
)

type PaymentRecord struct {
	Method         PaymentMethod   `json:"method"`
	AmountReceived decimal.Decimal `json:"amount_received"`
	Change         decimal.Decimal `json:"change"`
	Reference      string          `json:"reference,omitempty"`
}

type ShiftStatus string

const (
	ShiftActive          ShiftStatus = "active"
	ShiftPendingApproval ShiftStatus = "pending_approval"
	ShiftClosed          ShiftStatus = "closed"
)

type CashDirection string

const (
	CashIn  CashDirection = "in"
	CashOut CashDirection = "out"
)

type CashMovement struct {
	Direction CashDirection   `json:"direction"`
	Amount    decimal.Decimal `json:"amount"`
	Note      string          `json:"note,omitempty"`
	At        time.Time       `json:"at"`
}

// Approver is the identity confirmed by a manager credential check.
type Approver struct {
	ID   string `json:"approver_id"`
	Name string `json:"approver_name"`
}

type ManagerApproval struct {
	ApproverID   string    `json:"approver_id"`
	ApproverName string    `json:"approver_name"`
	ApprovedAt   time.Time `json:"approved_at"`
}

type ShiftSnapshot struct {
	ID               string           `json:"id"`
	StaffID          string           `json:"staff_id"`
	StaffName        string           `json:"staff_name"`
	OutletID         string           `json:"outlet_id"`
	TerminalID       string           `json:"terminal_id"`
	Status           ShiftStatus      `json:"status"`
	StartTime        time.Time        `json:"start_time"`
	EndTime          *time.Time       `json:"end_time,omitempty"`
	OpeningCash      decimal.Decimal  `json:"opening_cash"`
	TotalSales       decimal.Decimal  `json:"total_sales"`
	CashSales        decimal.Decimal  `json:"cash_sales"`
	CardSales        decimal.Decimal  `json:"card_sales"`
	MobileSales      decimal.Decimal  `json:"mobile_sales"`
	TransactionCount int              `json:"transaction_count"`
	TotalCashIn      decimal.Decimal  `json:"total_cash_in"`
	TotalCashOut     decimal.Decimal  `json:"total_cash_out"`
	CashMovements    []CashMovement   `json:"cash_movements,omitempty"`
	ActualCash       *decimal.Decimal `json:"actual_cash,omitempty"`
	Variance         *decimal.Decimal `json:"variance,omitempty"`
	Notes            string           `json:"notes,omitempty"`
	CloseRequestedAt *time.Time       `json:"close_requested_at,omitempty"`
	Approval         *ManagerApproval `json:"approval,omitempty"`
}

type TransactionItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
	Total     decimal.Decimal `json:"total"`
}

// TransactionRequest is the sale submitted to the backend once payment has
// been captured locally.
type TransactionRequest struct {
	IdempotencyKey       string            `json:"idempotency_key"`
	OutletID             string            `json:"outlet_id"`
	TerminalID           string            `json:"terminal_id"`
	ShiftID              string            `json:"shift_id"`
	CashierID            string            `json:"cashier_id"`
	Items                []TransactionItem `json:"items"`
	Subtotal             decimal.Decimal   `json:"subtotal"`
	TotalDiscount        decimal.Decimal   `json:"total_discount"`
	Tax                  decimal.Decimal   `json:"tax"`
	Total                decimal.Decimal   `json:"total"`
	Payment              PaymentRecord     `json:"payment"`
	PrescriptionOverride bool              `json:"prescription_override"`
	OverrideBy           string            `json:"override_by,omitempty"`
}

// Transaction is the committed sale returned by the backend.
type Transaction struct {
	ID                   string            `json:"id"`
	ReceiptNumber        string            `json:"receipt_number"`
	OutletID             string            `json:"outlet_id"`
	OutletName           string            `json:"outlet_name"`
	TerminalID           string            `json:"terminal_id"`
	ShiftID              string            `json:"shift_id"`
	CashierID            string            `json:"cashier_id"`
	CashierName          string            `json:"cashier_name"`
	Items                []TransactionItem `json:"items"`
	Subtotal             decimal.Decimal   `json:"subtotal"`
	TotalDiscount        decimal.Decimal   `json:"total_discount"`
	Tax                  decimal.Decimal   `json:"tax"`
	Total                decimal.Decimal   `json:"total"`
	Payment              PaymentRecord     `json:"payment"`
	PrescriptionOverride bool              `json:"prescription_override"`
	CreatedAt            time.Time         `json:"created_at"`
}

type SessionUser struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Name        string    `json:"name"`
	Role        Role      `json:"role"`
	OutletID    string    `json:"outlet_id"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (u SessionUser) Expired(now time.Time) bool {
	return !u.ExpiresAt.IsZero() && !now.Before(u.ExpiresAt)
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	User        SessionUser `json:"user"`
}
