// Package identity resolves connection credentials to account identities.
package identity

import (
	"context"
	"fmt"

	"github.com/dkeye/roomrelay/internal/core"
	"github.com/dkeye/roomrelay/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// JWTVerifier accepts short-lived HS256 bearer tokens. The subject claim is
// the user id.
type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewJWTVerifier(secret, issuer, audience string) *JWTVerifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	return &JWTVerifier{secret: []byte(secret), parser: jwt.NewParser(opts...)}
}

func (v *JWTVerifier) Authenticate(_ context.Context, creds domain.Credentials) (domain.Identity, error) {
	if creds.BearerToken == "" {
		return domain.Identity{}, core.ErrUnauthenticated
	}
	var claims jwt.RegisteredClaims
	_, err := v.parser.ParseWithClaims(creds.BearerToken, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: bearer token: %v", core.ErrUnauthenticated, err)
	}
	id, err := domain.NewAccountIdentity(claims.Subject)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: bearer subject: %v", core.ErrUnauthenticated, err)
	}
	return id, nil
}
