package security

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/campushq/certificate-service/internal/domain"
	"github.com/campushq/certificate-service/internal/ports"
)

type accessClaims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTVerifier validates bearer tokens minted by the campus identity provider.
// Tokens are HMAC-signed; the subject claim carries the user id.
type JWTVerifier struct {
	secret []byte
	issuer string
}

func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer}
}

func (v *JWTVerifier) Verify(token string) (ports.Actor, error) {
	claims := &accessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return v.secret, nil
	}, jwt.WithIssuer(v.issuer), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return ports.Actor{}, domain.ErrUnauthorized
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ports.Actor{}, domain.ErrUnauthorized
	}
	if claims.Role == "" {
		return ports.Actor{}, domain.ErrUnauthorized
	}
	return ports.Actor{
		UserID: userID,
		Name:   claims.Name,
		Role:   claims.Role,
	}, nil
}
