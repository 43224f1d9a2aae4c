package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"pharmapos/terminal/internal/apperror"
	"pharmapos/terminal/internal/domain"
)

const (
	maxErrorBody  = 64 << 10
	maxErrorRunes = 200
)

// Client talks JSON to the pharmacy backend. It never retries; every failure
// is returned to the caller as an *apperror.AppError.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

type Options struct {
	BaseURL string
	Timeout time.Duration
	// RequestsPerSecond of 0 disables throttling.
	RequestsPerSecond float64
	Logger            *zap.Logger
	HTTPClient        *http.Client
}

func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend: base url must be absolute, got %q", opts.BaseURL)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	limit := rate.Inf
	burst := 1
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
		burst = max(1, int(opts.RequestsPerSecond))
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: base,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger.Named("backend"),
	}, nil
}

func (c *Client) Login(ctx context.Context, username, password string) (domain.LoginResponse, error) {
	var out domain.LoginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", "", domain.LoginRequest{Username: username, Password: password}, nil, &out)
	return out, err
}

type verifyManagerRequest struct {
	Credential string `json:"credential"`
}

// VerifyManager asks the backend to confirm a manager credential. A 401 or
// 403 means the credential was rejected.
func (c *Client) VerifyManager(ctx context.Context, token, credential string) (domain.Approver, error) {
	var out domain.Approver
	err := c.do(ctx, http.MethodPost, "/auth/verify-manager", token, verifyManagerRequest{Credential: credential}, nil, &out)
	return out, err
}

func (c *Client) Product(ctx context.Context, token, id string) (domain.Product, error) {
	var out domain.Product
	err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), token, nil, nil, &out)
	return out, err
}

// ProductByBarcode looks a product up by barcode. The backend answers with a
// list; an empty list is reported as not found.
func (c *Client) ProductByBarcode(ctx context.Context, token, barcode string) (domain.Product, error) {
	var out []domain.Product
	query := url.Values{"barcode": []string{barcode}}
	if err := c.doQuery(ctx, http.MethodGet, "/products", query, token, nil, nil, &out); err != nil {
		return domain.Product{}, err
	}
	if len(out) == 0 {
		return domain.Product{}, fmt.Errorf("%w: barcode %s", apperror.ErrNotFound, barcode)
	}
	return out[0], nil
}

func (c *Client) Stock(ctx context.Context, token, productID, outletID string) (domain.StockLevel, error) {
	var out domain.StockLevel
	query := url.Values{}
	if outletID != "" {
		query.Set("outlet_id", outletID)
	}
	err := c.doQuery(ctx, http.MethodGet, "/inventory/"+url.PathEscape(productID), query, token, nil, nil, &out)
	return out, err
}

// SubmitTransaction commits a sale. The idempotency key travels as a header
// so a caller-initiated retry cannot create a second sale.
func (c *Client) SubmitTransaction(ctx context.Context, token string, req domain.TransactionRequest) (domain.Transaction, error) {
	var out domain.Transaction
	headers := http.Header{}
	if req.IdempotencyKey != "" {
		headers.Set("Idempotency-Key", req.IdempotencyKey)
	}
	err := c.do(ctx, http.MethodPost, "/transactions", token, req, headers, &out)
	return out, err
}

// SyncShift upserts the shift record and returns the backend's copy.
func (c *Client) SyncShift(ctx context.Context, token string, snap domain.ShiftSnapshot) (domain.ShiftSnapshot, error) {
	var out domain.ShiftSnapshot
	err := c.do(ctx, http.MethodPut, "/shifts/"+url.PathEscape(snap.ID), token, snap, nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path, token string, body any, headers http.Header, out any) error {
	return c.doQuery(ctx, method, path, nil, token, body, headers, out)
}

func (c *Client) doQuery(ctx context.Context, method, path string, query url.Values, token string, body any, headers http.Header, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return apperror.FromTransport(ctxErr)
		}
		return apperror.New(apperror.KindRateLimited, "Too many requests to backend")
	}

	endpoint := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return fmt.Errorf("backend: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		appErr := apperror.FromTransport(err)
		c.logger.Warn("backend request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("kind", string(appErr.Kind)),
			zap.Error(err),
		)
		return appErr
	}
	defer resp.Body.Close()

	c.logger.Debug("backend request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(started)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperror.FromStatus(resp.StatusCode, errorMessage(resp.Body))
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.New(apperror.KindServer, "Backend returned an empty response")
		}
		return apperror.New(apperror.KindServer, "Backend returned malformed JSON: "+err.Error())
	}
	return nil
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// errorMessage pulls a human message out of an error response body, falling
// back to the standard status text when there is none.
func errorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var body errorBody
	if json.Unmarshal(raw, &body) == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
		return ""
	}
	text := strings.TrimSpace(string(raw))
	if utf8.RuneCountInString(text) > maxErrorRunes {
		text = string([]rune(text)[:maxErrorRunes])
	}
	return text
}
