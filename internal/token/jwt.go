// Package token issues and validates parent access tokens.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "cubby/pkg/domain"
	dErrors "cubby/pkg/domain-errors"
)

// Claims are the JWT claims carried by parent access tokens.
type Claims struct {
	ParentID string `json:"parent_id"`
	jwt.RegisteredClaims
}

// JWTService signs and validates HS256 access tokens.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	tokenTTL   time.Duration
}

// NewJWTService creates a token service. TTL applies to all issued tokens.
func NewJWTService(signingKey, issuer, audience string, tokenTTL time.Duration) *JWTService {
	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		tokenTTL:   tokenTTL,
	}
}

// TTL returns the lifetime of issued tokens.
func (s *JWTService) TTL() time.Duration {
	return s.tokenTTL
}

// IssueToken creates a signed access token for a parent.
func (s *JWTService) IssueToken(parentID id.ParentID) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ParentID: parentID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "sign access token")
	}
	return signed, nil
}

// ValidateToken parses and verifies a token string.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// ParentIDFromToken validates the token and extracts the parent ID.
// Satisfies the auth middleware's Verifier interface.
func (s *JWTService) ParentIDFromToken(tokenString string) (id.ParentID, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return id.ParentID{}, err
	}
	parentID, err := uuid.Parse(claims.ParentID)
	if err != nil {
		return id.ParentID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return id.ParentID(parentID), nil
}
