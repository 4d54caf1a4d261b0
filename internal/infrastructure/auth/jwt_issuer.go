package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/99minutos/template-backend/internal/core/domain"
)

// ErrInvalidToken covers every reason a bearer token is refused.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload of a bearer token.
type Claims struct {
	UserID       uint64   `json:"id"`
	TenantID     uint64   `json:"tenantId"`
	Username     string   `json:"username"`
	Roles        []string `json:"roles"`
	Source       string   `json:"source"`
	RenewalsLeft int      `json:"renewalsLeft"`
	jwt.RegisteredClaims
}

// JWTIssuer signs and verifies HS256 bearer tokens.
type JWTIssuer struct {
	secret     []byte
	ttl        time.Duration
	maxRenewal int
	now        func() time.Time
}

func NewJWTIssuer(secret string, ttl time.Duration, maxRenewal int) (*JWTIssuer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret must be provided")
	}
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &JWTIssuer{secret: []byte(secret), ttl: ttl, maxRenewal: maxRenewal, now: time.Now}, nil
}

// Issue mints a token for user.
func (i *JWTIssuer) Issue(user *domain.User) (string, error) {
	now := i.now()
	claims := Claims{
		UserID:       user.ID,
		TenantID:     user.TenantID,
		Username:     user.Username,
		Roles:        user.RoleIDs(),
		Source:       string(user.Source),
		RenewalsLeft: i.maxRenewal,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(user.ID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses token and checks signature and expiry. Only HMAC signatures
// are accepted.
func (i *JWTIssuer) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
