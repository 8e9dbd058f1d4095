package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned for tokens that fail signature or claim checks.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidSubject is returned when "sub" is not a positive integer.
	ErrInvalidSubject = errors.New("invalid token subject")
)

// Claims represents JWT claims issued to chat users.
// The subject is the numeric user id; it may be encoded as a JSON number or
// a numeric string.
type Claims struct {
	Sub   json.Number `json:"sub"`
	Email string      `json:"email,omitempty"`
	Role  string      `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the subject as a positive integer.
func (c *Claims) UserID() (int64, error) {
	if c.Sub == "" {
		return 0, ErrInvalidSubject
	}
	if id, err := strconv.ParseInt(string(c.Sub), 10, 64); err == nil {
		if id <= 0 {
			return 0, ErrInvalidSubject
		}
		return id, nil
	}
	f, err := c.Sub.Float64()
	if err != nil || f != math.Trunc(f) || f <= 0 || f > 1<<53 {
		return 0, ErrInvalidSubject
	}
	return int64(f), nil
}

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
}

// GenerateToken creates a signed token for the given user.
func GenerateToken(cfg *JWTConfig, userID int64, email, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		Sub:   json.Number(strconv.FormatInt(userID, 10)),
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.Audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(cfg.Secret)
}

// ValidateToken parses and validates a JWT token.
func ValidateToken(cfg *JWTConfig, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return cfg.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	// Validate issuer and audience if configured
	if cfg.Issuer != "" && claims.Issuer != cfg.Issuer {
		return nil, fmt.Errorf("%w: issuer", ErrInvalidToken)
	}
	if cfg.Audience != "" && !slices.Contains(claims.Audience, cfg.Audience) {
		return nil, fmt.Errorf("%w: audience", ErrInvalidToken)
	}

	return claims, nil
}
