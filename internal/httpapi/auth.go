package httpapi

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"nexuserp/backend/internal/domain"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// AuthManager issues and verifies the bearer tokens handed out on login.
// Credentials themselves are checked by the service.
type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

type erpClaims struct {
	jwtlib.RegisteredClaims
	Role domain.Role `json:"role"`
}

func NewAuthManager(secret string, tokenTTL time.Duration) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	return &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

// Issue signs a token for the session owner and returns it with its expiry.
func (a *AuthManager) Issue(email string, role domain.Role) (string, time.Time, error) {
	expiresAt := a.now().UTC().Add(a.tokenTTL)
	token, err := a.sign(email, role, expiresAt)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &erpClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return domain.Actor{}, ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	role, ok := domain.ParseRole(string(claims.Role))
	if !ok {
		return domain.Actor{}, errors.New("invalid token role")
	}
	return domain.Actor{Email: sub, Role: role}, nil
}

func (a *AuthManager) sign(email string, role domain.Role, expiresAt time.Time) (string, error) {
	claims := erpClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwtlib.NewNumericDate(a.now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "nexuserp",
		},
		Role: role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}
