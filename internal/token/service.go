// Package token issues and validates the credentials used by the auth flows:
// signed access/refresh JWT pairs and random one-time tokens for password
// reset and email verification.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// Issuer identifies tokens minted by this service.
	Issuer = "invoiceflow"
	// Audience identifies the intended consumers of minted tokens.
	Audience = "invoiceflow-users"

	// TypeAccess marks short-lived API tokens.
	TypeAccess = "access"
	// TypeRefresh marks tokens exchangeable for a new pair.
	TypeRefresh = "refresh"
)

// Verification failure reasons. Callers map these onto the API error taxonomy.
var (
	ErrExpired   = errors.New("token expired")
	ErrMalformed = errors.New("token invalid")
	ErrWrongType = errors.New("token type mismatch")
)

// Claims carried by access and refresh tokens. Refresh tokens only populate
// UserID; access tokens embed the identity snapshot taken at issue time.
type Claims struct {
	jwt.RegisteredClaims
	UserID    int64  `json:"userId"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	Role      string `json:"role,omitempty"`
	IsActive  bool   `json:"isActive,omitempty"`
	TokenType string `json:"type"`
}

// Pair is the response-shaped token bundle returned by login/register/refresh.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
	TokenType    string `json:"tokenType"`
}

// Subject describes the user attributes embedded into a token pair.
type Subject struct {
	ID       int64
	Email    string
	Name     string
	Role     string
	IsActive bool
}

// Service signs and verifies tokens. Access and refresh tokens use distinct
// secrets.
type Service struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewService constructs a Service. Both secrets are required.
func NewService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) (*Service, error) {
	if accessSecret == "" {
		return nil, errors.New("token: access token secret is not configured")
	}
	if refreshSecret == "" {
		return nil, errors.New("token: refresh token secret is not configured")
	}
	if accessTTL <= 0 {
		accessTTL = 168 * time.Hour
	}
	if refreshTTL <= 0 {
		refreshTTL = 720 * time.Hour
	}
	return &Service{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}, nil
}

// WithClock overrides the time source, used by expiry tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// GenerateAccessToken signs an access token carrying the subject snapshot.
func (s *Service) GenerateAccessToken(sub Subject) (string, error) {
	return s.sign(sub, TypeAccess, s.accessSecret, s.accessTTL)
}

// GenerateRefreshToken signs a refresh token carrying only the user ID.
func (s *Service) GenerateRefreshToken(userID int64) (string, error) {
	return s.sign(Subject{ID: userID}, TypeRefresh, s.refreshSecret, s.refreshTTL)
}

// GeneratePair builds both tokens from the user attributes.
func (s *Service) GeneratePair(sub Subject) (Pair, error) {
	access, err := s.GenerateAccessToken(sub)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := s.GenerateRefreshToken(sub.ID)
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
		TokenType:    "Bearer",
	}, nil
}

func (s *Service) sign(sub Subject, tokenType string, secret []byte, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   fmt.Sprintf("%d", sub.ID),
		},
		UserID:    sub.ID,
		Email:     sub.Email,
		Name:      sub.Name,
		Role:      sub.Role,
		IsActive:  sub.IsActive,
		TokenType: tokenType,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// VerifyAccessToken verifies the signature, issuer, audience and type
// discriminator of an access token.
func (s *Service) VerifyAccessToken(tokenString string) (*Claims, error) {
	return s.verify(tokenString, TypeAccess, s.accessSecret)
}

// VerifyRefreshToken verifies a refresh token. A syntactically valid access
// token presented here fails with ErrWrongType.
func (s *Service) VerifyRefreshToken(tokenString string) (*Claims, error) {
	return s.verify(tokenString, TypeRefresh, s.refreshSecret)
}

func (s *Service) verify(tokenString, wantType string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !parsed.Valid {
		return nil, ErrMalformed
	}
	if claims.TokenType != wantType {
		return nil, ErrWrongType
	}
	return claims, nil
}

// GenerateSecureToken returns a cryptographically random hex token of the
// requested length, used for password reset and email verification secrets.
func GenerateSecureToken(length int) (string, error) {
	if length <= 0 {
		length = 32
	}
	buf := make([]byte, (length+1)/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("token: random read: %w", err)
	}
	return hex.EncodeToString(buf)[:length], nil
}

// HashToken returns the SHA-256 hex digest stored in place of raw one-time
// tokens.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// VerifyTokenHash reports whether the raw token matches the stored digest.
func VerifyTokenHash(token, hashed string) bool {
	digest := HashToken(token)
	return subtle.ConstantTimeCompare([]byte(digest), []byte(hashed)) == 1
}

// IsExpired reports whether a stored expiry timestamp has passed.
func IsExpired(expiresAt time.Time) bool {
	return time.Now().After(expiresAt)
}
