package terminal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"pharmapos/terminal/internal/apperror"
	"pharmapos/terminal/internal/auth"
	"pharmapos/terminal/internal/cache"
	"pharmapos/terminal/internal/cart"
	"pharmapos/terminal/internal/checkout"
	"pharmapos/terminal/internal/domain"
	"pharmapos/terminal/internal/payment"
	"pharmapos/terminal/internal/receipt"
	"pharmapos/terminal/internal/session"
	"pharmapos/terminal/internal/shift"
	"pharmapos/terminal/internal/validation"
	"pharmapos/terminal/internal/xid"
)

const recentTransactions = 20

var (
	ErrNotSignedIn       = apperror.New(apperror.KindUnauthorized, "sign in required")
	ErrSessionExpired    = apperror.New(apperror.KindUnauthorized, "session expired, sign in again")
	ErrMissingLogin      = apperror.NewValidation("username and password are required")
	ErrMissingProductRef = apperror.NewValidation("product_id or barcode is required")
	ErrInvalidDiscount   = apperror.NewValidation("discount must be a non-negative number")
	ErrInvalidDirection  = apperror.NewValidation("direction must be in or out")
	ErrProductExpired    = apperror.NewValidation("product is past its expiry date")
	ErrInsufficientStock = apperror.New(apperror.KindConflict, "insufficient stock")
	ErrNoActiveShift     = apperror.New(apperror.KindConflict, "no active shift")
	ErrShiftAlreadyOpen  = apperror.New(apperror.KindConflict, "a shift is already open on this terminal")
	ErrShiftNotOwned     = apperror.New(apperror.KindConflict, "the open shift belongs to another cashier")
	ErrShiftStillOpen    = apperror.New(apperror.KindConflict, "close the shift before signing out")
	ErrLineNotFound      = apperror.New(apperror.KindNotFound, "item is not in the cart")
	ErrReceiptNotFound   = apperror.New(apperror.KindNotFound, "transaction is not available on this terminal")
)

// Backend is the subset of the backend API the terminal depends on.
type Backend interface {
	Login(ctx context.Context, username, password string) (domain.LoginResponse, error)
	VerifyManager(ctx context.Context, token, credential string) (domain.Approver, error)
	Product(ctx context.Context, token, id string) (domain.Product, error)
	ProductByBarcode(ctx context.Context, token, barcode string) (domain.Product, error)
	Stock(ctx context.Context, token, productID, outletID string) (domain.StockLevel, error)
	SubmitTransaction(ctx context.Context, token string, req domain.TransactionRequest) (domain.Transaction, error)
	SyncShift(ctx context.Context, token string, snap domain.ShiftSnapshot) (domain.ShiftSnapshot, error)
}

type Options struct {
	Backend  Backend
	Sessions session.Store
	Products cache.ProductCache
	// ProductTTL of zero keeps cached products until evicted by the cache.
	ProductTTL time.Duration
	// Approvals overrides manager verification. When nil the backend
	// verify-manager endpoint is used with the cashier's token.
	Approvals  shift.Verifier
	Printer    receipt.Printer
	ReceiptDir string
	OutletID   string
	TerminalID string
	Logger     *zap.Logger
	Now        func() time.Time
}

// Service runs the checkout and shift flows of a single till. Flows are
// serialized: each one holds the service lock across its backend calls.
type Service struct {
	mu sync.Mutex

	backend    Backend
	sessions   session.Store
	products   cache.ProductCache
	productTTL time.Duration
	approvals  shift.Verifier
	printer    receipt.Printer
	receiptDir string
	outletID   string
	terminalID string
	logger     *zap.Logger
	now        func() time.Time

	cart        *cart.Cart
	checkoutKey string
	recent      []domain.Transaction
}

func New(opts Options) *Service {
	products := opts.Products
	if products == nil {
		products = cache.NoopProductCache{}
	}
	printer := opts.Printer
	if printer == nil {
		printer = receipt.NewPrinter("", "")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	terminalID := opts.TerminalID
	if terminalID == "" {
		terminalID = "terminal-1"
	}

	return &Service{
		backend:    opts.Backend,
		sessions:   opts.Sessions,
		products:   products,
		productTTL: opts.ProductTTL,
		approvals:  opts.Approvals,
		printer:    printer,
		receiptDir: opts.ReceiptDir,
		outletID:   opts.OutletID,
		terminalID: terminalID,
		logger:     logger.Named("terminal"),
		now:        now,
		cart:       cart.New(),
	}
}

// CartView is the cart as shown to the cashier.
type CartView struct {
	Lines  []domain.CartLine `json:"lines"`
	Totals domain.CartTotals `json:"totals"`
}

func (s *Service) Login(ctx context.Context, username, password string) (domain.SessionUser, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.SessionUser{}, ErrMissingLogin
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	resp, err := s.backend.Login(ctx, username, password)
	if err != nil {
		return domain.SessionUser{}, err
	}
	user, err := auth.SessionUser(resp)
	if err != nil {
		return domain.SessionUser{}, err
	}
	if user.Username == "" {
		user.Username = username
	}
	if user.OutletID == "" {
		user.OutletID = s.outletID
	}

	snap, ok, err := s.sessions.Shift(ctx)
	if err != nil {
		return domain.SessionUser{}, fmt.Errorf("load shift: %w", err)
	}
	if ok && snap.StaffID != user.ID {
		if snap.Status != domain.ShiftClosed {
			s.logger.Warn("sign in refused, shift held by another cashier",
				zap.String("user_id", user.ID),
				zap.String("shift_id", snap.ID),
				zap.String("staff_id", snap.StaffID),
			)
			return domain.SessionUser{}, fmt.Errorf("%w: %s", ErrShiftNotOwned, snap.StaffName)
		}
		if err := s.sessions.ClearShift(ctx); err != nil {
			return domain.SessionUser{}, fmt.Errorf("clear shift: %w", err)
		}
	}
	prev, hadUser, err := s.sessions.User(ctx)
	if err != nil {
		return domain.SessionUser{}, fmt.Errorf("load session: %w", err)
	}
	if !hadUser || prev.ID != user.ID {
		s.resetCart()
	}

	if err := s.sessions.SaveUser(ctx, user); err != nil {
		return domain.SessionUser{}, fmt.Errorf("save session: %w", err)
	}

	s.logger.Info("signed in", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// Logout forgets the user and the cart on this terminal. It is refused while
// a shift is open or awaiting approval.
func (s *Service) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok, err := s.sessions.Shift(ctx)
	if err != nil {
		return fmt.Errorf("load shift: %w", err)
	}
	if ok && snap.Status != domain.ShiftClosed {
		return ErrShiftStillOpen
	}
	s.resetCart()
	return s.sessions.Clear(ctx)
}

func (s *Service) CurrentUser(ctx context.Context) (domain.SessionUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requireUser(ctx)
}

// ScanRequest identifies a product by id or, failing that, by barcode.
type ScanRequest struct {
	ProductID string `json:"product_id"`
	Barcode   string `json:"barcode"`
}

// ScanProduct adds one unit of a product to the cart after checking stock.
func (s *Service) ScanProduct(ctx context.Context, req ScanRequest) (domain.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.requireUser(ctx)
	if err != nil {
		return domain.CartLine{}, err
	}
	product, err := s.lookupProduct(ctx, user, req)
	if err != nil {
		return domain.CartLine{}, err
	}
	if product.ExpiryDate != nil && !s.now().Before(*product.ExpiryDate) {
		return domain.CartLine{}, fmt.Errorf("%w: %s", ErrProductExpired, product.Name)
	}

	want := 1
	if line, ok := s.cart.Line(product.ID); ok {
		want = line.Quantity + 1
	}
	if err := s.checkStock(ctx, user, product, want); err != nil {
		return domain.CartLine{}, err
	}

	s.checkoutKey = ""
	return s.cart.AddOrIncrement(product), nil
}

// SetQuantity changes a line's quantity. Increases are checked against stock
// first; zero or less removes the line.
func (s *Service) SetQuantity(ctx context.Context, productID string, quantity int) (CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.requireUser(ctx)
	if err != nil {
		return CartView{}, err
	}
	line, ok := s.cart.Line(productID)
	if !ok {
		return CartView{}, ErrLineNotFound
	}
	if quantity > line.Quantity {
		if err := s.checkStock(ctx, user, line.Product, quantity); err != nil {
			return CartView{}, err
		}
	}

	s.cart.SetQuantity(productID, quantity)
	s.checkoutKey = ""
	return s.cartView(), nil
}

// SetDiscount sets a per-unit discount on a line. The cart clamps it to the
// unit price.
func (s *Service) SetDiscount(ctx context.Context, productID string, discount string) (CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireUser(ctx); err != nil {
		return CartView{}, err
	}
	amount, ok := validation.ParseMoney(discount)
	if !ok || amount.IsNegative() {
		return CartView{}, ErrInvalidDiscount
	}
	if !s.cart.SetDiscount(productID, amount) {
		return CartView{}, ErrLineNotFound
	}
	s.checkoutKey = ""
	return s.cartView(), nil
}

func (s *Service) RemoveLine(ctx context.Context, productID string) (CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireUser(ctx); err != nil {
		return CartView{}, err
	}
	if !s.cart.RemoveLine(productID) {
		return CartView{}, ErrLineNotFound
	}
	s.checkoutKey = ""
	return s.cartView(), nil
}

func (s *Service) ClearCart(ctx context.Context) (CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireUser(ctx); err != nil {
		return CartView{}, err
	}
	s.resetCart()
	return s.cartView(), nil
}

func (s *Service) Cart(ctx context.Context) (CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireUser(ctx); err != nil {
		return CartView{}, err
	}
	return s.cartView(), nil
}

// CheckGate runs the checkout gate against the current cart without taking
// payment.
func (s *Service) CheckGate(ctx context.Context, override bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.requireUser(ctx)
	if err != nil {
		return err
	}
	return s.gate(user, override)
}

type CheckoutRequest struct {
	Tender               payment.Tender
	PrescriptionOverride bool
}

// Checkout captures payment and submits the sale. Cart and shift change only
// after the backend has committed the transaction.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, snap, err := s.requireShift(ctx)
	if err != nil {
		return domain.Transaction{}, err
	}
	if snap.Status != domain.ShiftActive {
		return domain.Transaction{}, ErrNoActiveShift
	}
	if err := s.gate(user, req.PrescriptionOverride); err != nil {
		return domain.Transaction{}, err
	}

	lines := s.cart.Lines()
	totals := cart.ComputeTotals(lines)
	record, err := payment.Capture(req.Tender, totals.Total)
	if err != nil {
		return domain.Transaction{}, err
	}

	if s.checkoutKey == "" {
		s.checkoutKey = xid.Key()
	}
	txReq := domain.TransactionRequest{
		IdempotencyKey:       s.checkoutKey,
		OutletID:             s.outletFor(user),
		TerminalID:           s.terminalID,
		ShiftID:              snap.ID,
		CashierID:            user.ID,
		Items:                transactionItems(lines),
		Subtotal:             totals.Subtotal,
		TotalDiscount:        totals.TotalDiscount,
		Tax:                  totals.Tax,
		Total:                totals.Total,
		Payment:              record,
		PrescriptionOverride: req.PrescriptionOverride,
	}
	if req.PrescriptionOverride {
		txReq.OverrideBy = user.ID
	}

	tx, err := s.backend.SubmitTransaction(ctx, user.AccessToken, txReq)
	if err != nil {
		s.logger.Warn("transaction rejected",
			zap.String("idempotency_key", txReq.IdempotencyKey),
			zap.String("kind", string(apperror.KindOf(err))),
			zap.Error(err),
		)
		return domain.Transaction{}, err
	}
	tx = s.completeTransaction(tx, txReq, user)

	s.resetCart()
	s.remember(tx)

	// a reused key may return a sale committed under an earlier tender
	next, err := shift.RecordSale(snap, tx.Payment, tx.Total)
	if err != nil {
		s.logger.Error("record sale on shift", zap.String("shift_id", snap.ID), zap.String("transaction_id", tx.ID), zap.Error(err))
		return tx, nil
	}
	if err := s.sessions.SaveShift(ctx, next); err != nil {
		s.logger.Error("save shift after sale", zap.String("shift_id", snap.ID), zap.String("transaction_id", tx.ID), zap.Error(err))
	}

	s.logger.Info("sale completed",
		zap.String("transaction_id", tx.ID),
		zap.String("receipt_number", tx.ReceiptNumber),
		zap.String("total", tx.Total.String()),
		zap.String("method", string(tx.Payment.Method)),
		zap.Bool("prescription_override", req.PrescriptionOverride),
	)
	return tx, nil
}

func (s *Service) CurrentShift(ctx context.Context) (domain.ShiftSnapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireUser(ctx); err != nil {
		return domain.ShiftSnapshot{}, false, err
	}
	return s.sessions.Shift(ctx)
}

func (s *Service) StartShift(ctx context.Context, openingCash string) (domain.ShiftSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.requireUser(ctx)
	if err != nil {
		return domain.ShiftSnapshot{}, err
	}
	existing, ok, err := s.sessions.Shift(ctx)
	if err != nil {
		return domain.ShiftSnapshot{}, fmt.Errorf("load shift: %w", err)
	}
	if ok && existing.Status != domain.ShiftClosed {
		return domain.ShiftSnapshot{}, ErrShiftAlreadyOpen
	}

	snap, err := shift.Start(shift.Staff{
		ID:         user.ID,
		Name:       user.Name,
		OutletID:   s.outletFor(user),
		TerminalID: s.terminalID,
	}, openingCash, s.now())
	if err != nil {
		return domain.ShiftSnapshot{}, err
	}
	if err := s.commitShift(ctx, user, snap, true); err != nil {
		return domain.ShiftSnapshot{}, err
	}
	s.logger.Info("shift started", zap.String("shift_id", snap.ID), zap.String("opening_cash", snap.OpeningCash.String()))
	return snap, nil
}

func (s *Service) RecordCashMovement(ctx context.Context, direction domain.CashDirection, amount string, note string) (domain.ShiftSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, snap, err := s.requireShift(ctx)
	if err != nil {
		return domain.ShiftSnapshot{}, err
	}

	var next domain.ShiftSnapshot
	switch domain.CashDirection(strings.ToLower(strings.TrimSpace(string(direction)))) {
	case domain.CashIn:
		next, err = shift.CashIn(snap, amount, note, s.now())
	case domain.CashOut:
		next, err = shift.CashOut(snap, amount, note, s.now())
	default:
		return domain.ShiftSnapshot{}, ErrInvalidDirection
	}
	if err != nil {
		return domain.ShiftSnapshot{}, err
	}
	if err := s.commitShift(ctx, user, next, true); err != nil {
		return domain.ShiftSnapshot{}, err
	}
	return next, nil
}

// EndShift reconciles the drawer. A close within the variance threshold is
// synced and committed; a larger variance leaves the shift pending manager
// approval on this terminal only.
func (s *Service) EndShift(ctx context.Context, actualCash string, notes string) (domain.ShiftSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, snap, err := s.requireShift(ctx)
	if err != nil {
		return domain.ShiftSnapshot{}, err
	}
	next, err := shift.RequestClose(snap, actualCash, notes, s.now())
	if err != nil {
		return domain.ShiftSnapshot{}, err
	}

	pending := next.Status == domain.ShiftPendingApproval
	if err := s.commitShift(ctx, user, next, !pending); err != nil {
		return domain.ShiftSnapshot{}, err
	}
	s.logger.Info("shift close requested",
		zap.String("shift_id", next.ID),
		zap.String("expected_cash", shift.ExpectedCash(next).String()),
		zap.String("variance", next.Variance.String()),
		zap.String("status", string(next.Status)),
	)
	return next, nil
}

// ApproveShiftClose completes a pending close with a manager credential. A
// denied credential leaves the shift pending and may be retried.
func (s *Service) ApproveShiftClose(ctx context.Context, credential string) (domain.ShiftSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, snap, err := s.requireShift(ctx)
	if err != nil {
		return domain.ShiftSnapshot{}, err
	}
	next, err := shift.Approve(ctx, snap, s.verifierFor(user), credential, s.now())
	if err != nil {
		if errors.Is(err, shift.ErrApprovalDenied) {
			s.logger.Warn("shift close approval denied", zap.String("shift_id", snap.ID), zap.String("cashier_id", user.ID))
		}
		return domain.ShiftSnapshot{}, err
	}
	if err := s.commitShift(ctx, user, next, true); err != nil {
		return domain.ShiftSnapshot{}, err
	}
	s.logger.Info("shift close approved",
		zap.String("shift_id", next.ID),
		zap.String("approver_id", next.Approval.ApproverID),
		zap.String("variance", next.Variance.String()),
	)
	return next, nil
}

// CancelShiftClose abandons a pending close and reopens the shift.
func (s *Service) CancelShiftClose(ctx context.Context) (domain.ShiftSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, snap, err := s.requireShift(ctx)
	if err != nil {
		return domain.ShiftSnapshot{}, err
	}
	next, err := shift.CancelClose(snap)
	if err != nil {
		return domain.ShiftSnapshot{}, err
	}
	if err := s.commitShift(ctx, user, next, false); err != nil {
		return domain.ShiftSnapshot{}, err
	}
	return next, nil
}

// Receipt renders a recent transaction. An empty receiptNumber uses the
// number the backend assigned.
func (s *Service) Receipt(transactionID string, receiptNumber string) (domain.Transaction, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.findRecent(transactionID)
	if !ok {
		return domain.Transaction{}, "", ErrReceiptNotFound
	}
	return tx, receipt.Number(tx, receiptNumber), nil
}

func (s *Service) SaveReceipt(transactionID string, receiptNumber string) (string, error) {
	tx, number, err := s.Receipt(transactionID, receiptNumber)
	if err != nil {
		return "", err
	}
	return receipt.SaveFile(s.receiptDir, tx, number)
}

func (s *Service) PrintReceipt(ctx context.Context, transactionID string, receiptNumber string) error {
	tx, number, err := s.Receipt(transactionID, receiptNumber)
	if err != nil {
		return err
	}
	if err := receipt.Print(ctx, s.printer, tx, number); err != nil {
		s.logger.Warn("print receipt", zap.String("transaction_id", tx.ID), zap.Error(err))
		return apperror.New(apperror.KindOffline, "printer unavailable: "+err.Error())
	}
	return nil
}

func (s *Service) requireUser(ctx context.Context) (domain.SessionUser, error) {
	user, ok, err := s.sessions.User(ctx)
	if err != nil {
		return domain.SessionUser{}, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return domain.SessionUser{}, ErrNotSignedIn
	}
	if auth.Expired(user, s.now()) {
		return domain.SessionUser{}, ErrSessionExpired
	}
	return user, nil
}

func (s *Service) requireShift(ctx context.Context) (domain.SessionUser, domain.ShiftSnapshot, error) {
	user, err := s.requireUser(ctx)
	if err != nil {
		return domain.SessionUser{}, domain.ShiftSnapshot{}, err
	}
	snap, ok, err := s.sessions.Shift(ctx)
	if err != nil {
		return domain.SessionUser{}, domain.ShiftSnapshot{}, fmt.Errorf("load shift: %w", err)
	}
	if !ok {
		return domain.SessionUser{}, domain.ShiftSnapshot{}, ErrNoActiveShift
	}
	if snap.StaffID != user.ID {
		return domain.SessionUser{}, domain.ShiftSnapshot{}, ErrShiftNotOwned
	}
	return user, snap, nil
}

// commitShift syncs snap to the backend when sync is set and only then
// stores it locally. A failed sync leaves the stored snapshot untouched.
func (s *Service) commitShift(ctx context.Context, user domain.SessionUser, snap domain.ShiftSnapshot, sync bool) error {
	if sync {
		if _, err := s.backend.SyncShift(ctx, user.AccessToken, snap); err != nil {
			s.logger.Warn("shift sync failed",
				zap.String("shift_id", snap.ID),
				zap.String("status", string(snap.Status)),
				zap.Error(err),
			)
			return err
		}
	}
	if err := s.sessions.SaveShift(ctx, snap); err != nil {
		s.logger.Error("save shift", zap.String("shift_id", snap.ID), zap.Error(err))
		return fmt.Errorf("save shift: %w", err)
	}
	return nil
}

func (s *Service) verifierFor(user domain.SessionUser) shift.Verifier {
	if s.approvals != nil {
		return s.approvals
	}
	return shift.VerifierFunc(func(ctx context.Context, credential string) (domain.Approver, error) {
		return s.backend.VerifyManager(ctx, user.AccessToken, credential)
	})
}

func (s *Service) gate(user domain.SessionUser, override bool) error {
	if err := checkout.Gate(s.cart.Lines(), override); err != nil {
		return err
	}
	return checkout.AuthorizeOverride(user.Role, override)
}

func (s *Service) lookupProduct(ctx context.Context, user domain.SessionUser, req ScanRequest) (domain.Product, error) {
	id := strings.TrimSpace(req.ProductID)
	barcode := strings.TrimSpace(req.Barcode)

	var key string
	switch {
	case id != "":
		key = cache.IDKey(id)
	case barcode != "":
		key = cache.BarcodeKey(barcode)
	default:
		return domain.Product{}, ErrMissingProductRef
	}

	cached, ok, err := s.products.Get(ctx, key)
	if err != nil {
		s.logger.Warn("product cache read", zap.String("key", key), zap.Error(err))
	}
	if ok && cached != nil {
		return *cached, nil
	}

	var product domain.Product
	if id != "" {
		product, err = s.backend.Product(ctx, user.AccessToken, id)
	} else {
		product, err = s.backend.ProductByBarcode(ctx, user.AccessToken, barcode)
	}
	if err != nil {
		return domain.Product{}, err
	}
	if err := s.products.Set(ctx, product, s.productTTL); err != nil {
		s.logger.Warn("product cache write", zap.String("product_id", product.ID), zap.Error(err))
	}
	return product, nil
}

func (s *Service) checkStock(ctx context.Context, user domain.SessionUser, product domain.Product, want int) error {
	level, err := s.backend.Stock(ctx, user.AccessToken, product.ID, s.outletFor(user))
	if err != nil {
		return err
	}
	if level.Quantity < want {
		return fmt.Errorf("%w: %s has %d, need %d", ErrInsufficientStock, product.Name, level.Quantity, want)
	}
	return nil
}

func (s *Service) outletFor(user domain.SessionUser) string {
	if user.OutletID != "" {
		return user.OutletID
	}
	return s.outletID
}

// completeTransaction fills fields the backend left empty from the request
// that produced tx, so receipts always have what they print.
func (s *Service) completeTransaction(tx domain.Transaction, req domain.TransactionRequest, user domain.SessionUser) domain.Transaction {
	if tx.ID == "" {
		tx.ID = req.IdempotencyKey
	}
	if tx.OutletID == "" {
		tx.OutletID = req.OutletID
	}
	if tx.TerminalID == "" {
		tx.TerminalID = req.TerminalID
	}
	if tx.ShiftID == "" {
		tx.ShiftID = req.ShiftID
	}
	if tx.CashierID == "" {
		tx.CashierID = req.CashierID
	}
	if tx.CashierName == "" {
		tx.CashierName = user.Name
	}
	if len(tx.Items) == 0 {
		tx.Items = req.Items
		tx.Subtotal = req.Subtotal
		tx.TotalDiscount = req.TotalDiscount
		tx.Tax = req.Tax
		tx.Total = req.Total
	}
	if tx.Payment.Method == "" {
		tx.Payment = req.Payment
	}
	if req.PrescriptionOverride {
		tx.PrescriptionOverride = true
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.now().UTC()
	}
	return tx
}

func (s *Service) remember(tx domain.Transaction) {
	s.recent = append(s.recent, tx)
	if len(s.recent) > recentTransactions {
		s.recent = append([]domain.Transaction(nil), s.recent[len(s.recent)-recentTransactions:]...)
	}
}

func (s *Service) findRecent(id string) (domain.Transaction, bool) {
	for i := len(s.recent) - 1; i >= 0; i-- {
		if s.recent[i].ID == id {
			return s.recent[i], true
		}
	}
	return domain.Transaction{}, false
}

func (s *Service) resetCart() {
	s.cart.Clear()
	s.checkoutKey = ""
}

func (s *Service) cartView() CartView {
	return CartView{Lines: s.cart.Lines(), Totals: s.cart.Totals()}
}

func transactionItems(lines []domain.CartLine) []domain.TransactionItem {
	items := make([]domain.TransactionItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, domain.TransactionItem{
			ProductID: line.Product.ID,
			Name:      line.Product.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Discount:  line.Discount,
			Total:     line.Total,
		})
	}
	return items
}
