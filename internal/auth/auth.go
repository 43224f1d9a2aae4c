package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"pharmapos/terminal/internal/apperror"
	"pharmapos/terminal/internal/domain"
)

var (
	ErrInvalidToken = apperror.New(apperror.KindUnauthorized, "invalid access token")
	ErrInvalidPIN   = apperror.New(apperror.KindForbidden, "invalid manager PIN")
)

// Claims are the fields the terminal reads from a backend access token.
type Claims struct {
	jwtlib.RegisteredClaims
	Role     string `json:"role"`
	Name     string `json:"name"`
	OutletID string `json:"outlet_id"`
}

// ParseAccessToken decodes the claims of a backend-issued token. The
// signature is not checked here: the backend verifies its own tokens on every
// call, the terminal only needs expiry and identity for display and local
// gating.
func ParseAccessToken(token string) (Claims, error) {
	claims := Claims{}
	if strings.TrimSpace(token) == "" {
		return claims, ErrInvalidToken
	}
	parser := jwtlib.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return claims, fmt.Errorf("%w: %s", ErrInvalidToken, err.Error())
	}
	return claims, nil
}

// SessionUser merges a login response with the claims in its token. Fields
// the backend already filled in win over the token.
func SessionUser(resp domain.LoginResponse) (domain.SessionUser, error) {
	claims, err := ParseAccessToken(resp.AccessToken)
	if err != nil {
		return domain.SessionUser{}, err
	}

	user := resp.User
	user.AccessToken = resp.AccessToken
	if user.ID == "" {
		user.ID = claims.Subject
	}
	if user.Role == "" {
		user.Role = domain.Role(claims.Role)
	}
	if user.Name == "" {
		user.Name = claims.Name
	}
	if user.OutletID == "" {
		user.OutletID = claims.OutletID
	}
	if claims.ExpiresAt != nil {
		user.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	if user.ID == "" {
		return domain.SessionUser{}, fmt.Errorf("%w: token has no subject", ErrInvalidToken)
	}
	return user, nil
}

// PINVerifier checks a manager PIN against a bcrypt hash held in memory. It
// serves terminals configured for local approval.
type PINVerifier struct {
	hash     []byte
	approver domain.Approver
}

func NewPINVerifier(pin string, approver domain.Approver) (*PINVerifier, error) {
	pin = strings.TrimSpace(pin)
	if pin == "" {
		return nil, errors.New("manager PIN must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash manager PIN: %w", err)
	}
	if approver.ID == "" {
		approver.ID = "local-manager"
	}
	return &PINVerifier{hash: hash, approver: approver}, nil
}

func (v *PINVerifier) VerifyManager(ctx context.Context, credential string) (domain.Approver, error) {
	if err := ctx.Err(); err != nil {
		return domain.Approver{}, err
	}
	input := strings.TrimSpace(credential)
	if input == "" {
		return domain.Approver{}, ErrInvalidPIN
	}
	if bcrypt.CompareHashAndPassword(v.hash, []byte(input)) != nil {
		return domain.Approver{}, ErrInvalidPIN
	}
	return v.approver, nil
}

// Expired reports whether user can no longer call the backend.
func Expired(user domain.SessionUser, now time.Time) bool {
	return user.AccessToken == "" || user.Expired(now)
}
