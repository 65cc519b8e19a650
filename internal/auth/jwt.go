package auth

import (
	"crypto/rand"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	DefaultIssuer = "lumgreet"
	// BridgeAudience is the only audience the UI bridge accepts.
	BridgeAudience = "lumgreet-ui"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims identify one UI shell instance.
type Claims struct {
	jwt.RegisteredClaims
}

// NewSecret returns n random bytes for HMAC signing. A new secret is made
// on every greeter start, so tokens never outlive the process.
func NewSecret(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// SignHS256 issues a bridge token. A zero ttl means the token is valid for
// as long as secret is, i.e. the life of the greeter process.
func SignHS256(secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			Issuer:   DefaultIssuer,
			Audience: jwt.ClaimStrings{BridgeAudience},
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(secret)
}

func ParseHS256(secret []byte, tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	},
		jwt.WithLeeway(30*time.Second),
		jwt.WithIssuer(DefaultIssuer),
		jwt.WithAudience(BridgeAudience),
	)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
