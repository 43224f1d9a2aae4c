package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"pharmapos/terminal/internal/apperror"
	"pharmapos/terminal/internal/domain"
	"pharmapos/terminal/internal/payment"
	"pharmapos/terminal/internal/receipt"
	"pharmapos/terminal/internal/terminal"
	"pharmapos/terminal/internal/validation"
	"pharmapos/terminal/internal/xid"
)

type API struct {
	service       *terminal.Service
	allowedOrigin string
	loginLimiter  *clientLimiter
	logger        *zap.Logger
}

func New(svc *terminal.Service, allowedOrigin string, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		service:       svc,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newClientLimiter(loginLimits),
		logger:        logger.Named("httpapi"),
	}
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/session", a.handleSession)
	mux.HandleFunc("/api/v1/session/login", a.handleLogin)
	mux.HandleFunc("/api/v1/session/logout", a.handleLogout)

	mux.HandleFunc("/api/v1/cart", a.handleCart)
	mux.HandleFunc("/api/v1/cart/items", a.handleCartItems)
	mux.HandleFunc("/api/v1/cart/items/", a.handleCartItemActions)

	mux.HandleFunc("/api/v1/checkout", a.handleCheckout)
	mux.HandleFunc("/api/v1/checkout/gate", a.handleCheckoutGate)

	mux.HandleFunc("/api/v1/shifts/current", a.handleShiftCurrent)
	mux.HandleFunc("/api/v1/shifts/start", a.handleShiftStart)
	mux.HandleFunc("/api/v1/shifts/cash-movements", a.handleCashMovement)
	mux.HandleFunc("/api/v1/shifts/close", a.handleShiftClose)
	mux.HandleFunc("/api/v1/shifts/close/approve", a.handleShiftApprove)
	mux.HandleFunc("/api/v1/shifts/close/cancel", a.handleShiftCancel)

	mux.HandleFunc("/api/v1/receipts/", a.handleReceiptActions)

	return a.withMiddleware(mux)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		a.writeError(w, apperror.New(apperror.KindRateLimited, "too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	user, err := a.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, publicUser(user))
}

func (a *API) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	user, err := a.service.CurrentUser(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, publicUser(user))
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if err := a.service.Logout(r.Context()); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleCart(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		view, err := a.service.Cart(r.Context())
		if err != nil {
			a.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	case http.MethodDelete:
		view, err := a.service.ClearCart(r.Context())
		if err != nil {
			a.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleCartItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req terminal.ScanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if _, err := a.service.ScanProduct(r.Context(), req); err != nil {
		a.writeError(w, err)
		return
	}
	view, err := a.service.Cart(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type quantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type discountRequest struct {
	Discount amount `json:"discount" validate:"required,money,max=32"`
}

// handleCartItemActions serves /api/v1/cart/items/{id} and
// /api/v1/cart/items/{id}/discount.
func (a *API) handleCartItemActions(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/cart/items/"), "/")
	parts := strings.Split(rest, "/")
	productID := parts[0]
	if productID == "" || len(parts) > 2 || (len(parts) == 2 && parts[1] != "discount") {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
		return
	}

	if len(parts) == 2 {
		if r.Method != http.MethodPut {
			writeMethodNotAllowed(w)
			return
		}
		var req discountRequest
		if !a.decodeValid(w, r, &req) {
			return
		}
		view, err := a.service.SetDiscount(r.Context(), productID, string(req.Discount))
		if err != nil {
			a.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req quantityRequest
		if !a.decodeValid(w, r, &req) {
			return
		}
		view, err := a.service.SetQuantity(r.Context(), productID, *req.Quantity)
		if err != nil {
			a.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	case http.MethodDelete:
		view, err := a.service.RemoveLine(r.Context(), productID)
		if err != nil {
			a.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleCheckoutGate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	override, _ := strconv.ParseBool(r.URL.Query().Get("override"))
	if err := a.service.CheckGate(r.Context(), override); err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type checkoutRequest struct {
	Method               domain.PaymentMethod `json:"method"`
	AmountReceived       amount               `json:"amount_received"`
	Reference            string               `json:"reference"`
	PrescriptionOverride bool                 `json:"prescription_override"`
}

type checkoutResponse struct {
	Transaction domain.Transaction `json:"transaction"`
	Receipt     string             `json:"receipt"`
	FileName    string             `json:"file_name"`
}

func (a *API) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	tx, err := a.service.Checkout(r.Context(), terminal.CheckoutRequest{
		Tender: payment.Tender{
			Method:         req.Method,
			AmountReceived: string(req.AmountReceived),
			Reference:      req.Reference,
		},
		PrescriptionOverride: req.PrescriptionOverride,
	})
	if err != nil {
		a.writeError(w, err)
		return
	}

	number := receipt.Number(tx, "")
	writeJSON(w, http.StatusCreated, checkoutResponse{
		Transaction: tx,
		Receipt:     receipt.Format(tx, number),
		FileName:    receipt.FileName(number),
	})
}

func (a *API) handleShiftCurrent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	snap, ok, err := a.service.CurrentShift(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	if !ok {
		a.writeError(w, apperror.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type shiftStartRequest struct {
	OpeningCash amount `json:"opening_cash" validate:"required,money,max=32"`
}

func (a *API) handleShiftStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var req shiftStartRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	snap, err := a.service.StartShift(r.Context(), string(req.OpeningCash))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

type cashMovementRequest struct {
	Direction domain.CashDirection `json:"direction" validate:"required,oneof=in out"`
	Amount    amount               `json:"amount" validate:"required,money,max=32"`
	Note      string               `json:"note" validate:"max=200"`
}

func (a *API) handleCashMovement(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var req cashMovementRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	snap, err := a.service.RecordCashMovement(r.Context(), req.Direction, string(req.Amount), req.Note)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type shiftCloseRequest struct {
	ActualCash amount `json:"actual_cash" validate:"required,money,max=32"`
	Notes      string `json:"notes" validate:"max=500"`
}

type shiftCloseResponse struct {
	Shift            domain.ShiftSnapshot `json:"shift"`
	RequiresApproval bool                 `json:"requires_approval"`
}

func (a *API) handleShiftClose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var req shiftCloseRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	snap, err := a.service.EndShift(r.Context(), string(req.ActualCash), req.Notes)
	if err != nil {
		a.writeError(w, err)
		return
	}
	status := http.StatusOK
	if snap.Status == domain.ShiftPendingApproval {
		status = http.StatusAccepted
	}
	writeJSON(w, status, shiftCloseResponse{
		Shift:            snap,
		RequiresApproval: snap.Status == domain.ShiftPendingApproval,
	})
}

type shiftApproveRequest struct {
	Credential string `json:"credential" validate:"required,max=128"`
}

func (a *API) handleShiftApprove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var req shiftApproveRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	snap, err := a.service.ApproveShiftClose(r.Context(), req.Credential)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shiftCloseResponse{Shift: snap})
}

func (a *API) handleShiftCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	snap, err := a.service.CancelShiftClose(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleReceiptActions serves /api/v1/receipts/{id} (download),
// /api/v1/receipts/{id}/print and /api/v1/receipts/{id}/save.
func (a *API) handleReceiptActions(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/receipts/"), "/")
	parts := strings.Split(rest, "/")
	txID := parts[0]
	if txID == "" || len(parts) > 2 {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
		return
	}
	number := strings.TrimSpace(r.URL.Query().Get("receipt_number"))

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}
	switch action {
	case "":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		tx, resolved, err := a.service.Receipt(txID, number)
		if err != nil {
			a.writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", receipt.FileName(resolved)))
		w.WriteHeader(http.StatusOK)
		if err := receipt.Download(w, tx, resolved); err != nil {
			a.logger.Warn("write receipt", zap.String("transaction_id", txID), zap.Error(err))
		}
	case "print":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		if err := a.service.PrintReceipt(r.Context(), txID, number); err != nil {
			a.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"printed": true})
	case "save":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		path, err := a.service.SaveReceipt(txID, number)
		if err != nil {
			a.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"path": path})
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" || len(requestID) > 64 {
			requestID = xid.Key()
		}
		w.Header().Set("X-Request-ID", requestID)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		a.logger.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(startedAt)),
		)
	})
}

// amount accepts money as a JSON string or number.
type amount string

func (m *amount) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*m = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*m = amount(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount must be a number: %w", err)
	}
	*m = amount(n.String())
	return nil
}

type userResponse struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Name      string      `json:"name"`
	Role      domain.Role `json:"role"`
	OutletID  string      `json:"outlet_id"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// publicUser drops the backend token; the UI only talks to this API.
func publicUser(user domain.SessionUser) userResponse {
	return userResponse{
		ID:        user.ID,
		Username:  user.Username,
		Name:      user.Name,
		Role:      user.Role,
		OutletID:  user.OutletID,
		ExpiresAt: user.ExpiresAt,
	}
}

func (a *API) decodeValid(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := decodeJSON(r, dest); err != nil {
		writeBadRequest(w, err)
		return false
	}
	if err := validation.ValidateStruct(dest); err != nil {
		a.writeError(w, err)
		return false
	}
	return true
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error": err.Error(),
		"kind":  apperror.KindValidation,
	})
}

type errorResponse struct {
	Error     string                `json:"error"`
	Kind      apperror.Kind         `json:"kind"`
	Retryable bool                  `json:"retryable"`
	Errors    []apperror.FieldError `json:"errors,omitempty"`
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	status := apperror.HTTPStatus(err)
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		// unclassified errors are internal: log them, answer generically
		a.logger.Error("internal error", zap.Error(err))
		writeJSON(w, status, errorResponse{Error: "internal server error", Kind: apperror.KindServer})
		return
	}
	writeJSON(w, status, errorResponse{
		Error:     err.Error(),
		Kind:      appErr.Kind,
		Retryable: appErr.Retryable(),
		Errors:    appErr.Errors,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
