// Package jwttoken issues and validates the HS256 access tokens carrying the
// caller's identity, role and jurisdiction. The engine never authenticates
// users itself; it only verifies tokens minted by the identity collaborator.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "shamba/pkg/domain"
	dErrors "shamba/pkg/domain-errors"
	"shamba/pkg/requestcontext"
)

// Claims represents the JWT claims for our access tokens.
type Claims struct {
	UserID       string `json:"user_id"`
	Role         string `json:"role"`
	Jurisdiction string `json:"jurisdiction"`
	jwt.RegisteredClaims
}

// JWTService handles JWT creation and validation.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewJWTService(signingKey, issuer, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

func (s *JWTService) GenerateAccessToken(userID id.UserID, role id.Role, jurisdiction string, expiresIn time.Duration) (string, error) {
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:       userID.String(),
		Role:         string(role),
		Jurisdiction: jurisdiction,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})
	return newToken.SignedString(s.signingKey)
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// Identity converts validated claims into the engine's caller identity.
// Claims carrying an unknown role or malformed user id are rejected here, so
// downstream code never sees a half-valid identity.
func (c *Claims) Identity() (requestcontext.CallerIdentity, error) {
	userID, err := id.ParseUserID(c.UserID)
	if err != nil {
		return requestcontext.CallerIdentity{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	role, err := id.ParseRole(c.Role)
	if err != nil {
		return requestcontext.CallerIdentity{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return requestcontext.CallerIdentity{
		UserID:       userID,
		Role:         role,
		Jurisdiction: c.Jurisdiction,
	}, nil
}
