package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"recruitment-platform/config"
	"recruitment-platform/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer   = "recruitment-platform"
	audience = "recruitment-platform-api"
)

// TenantClaims identifies the tenant a token acts for
type TenantClaims struct {
	TenantID   string            `json:"tenant_id,omitempty"`
	TenantSlug string            `json:"tenant_slug,omitempty"`
	Role       models.TenantRole `json:"role,omitempty"`
}

// Claims represents JWT claims
type Claims struct {
	UserID   uuid.UUID `json:"user_id"`
	Email    string    `json:"email"`
	Username string    `json:"username"`
	TenantClaims
	// Tenant is accepted from older tokens that used a short claim name
	Tenant string `json:"tenant,omitempty"`
	jwt.RegisteredClaims
}

// TenantIDString returns the tenant claim, preferring tenant_id
func (c *Claims) TenantIDString() string {
	if c.TenantID != "" {
		return c.TenantID
	}
	return c.Tenant
}

// TokenPair represents access and refresh tokens
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// JWTService handles JWT operations
type JWTService struct {
	secretKey  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	blacklist  TokenBlacklist
}

// NewJWTService creates a JWT service. A nil blacklist falls back to an
// in-memory store.
func NewJWTService(cfg *config.Config, blacklist TokenBlacklist) *JWTService {
	if blacklist == nil {
		blacklist = NewMemoryBlacklist()
	}
	return &JWTService{
		secretKey:  []byte(cfg.JWT.Secret),
		accessTTL:  cfg.JWT.AccessExpiry,
		refreshTTL: cfg.JWT.RefreshExpiry,
		blacklist:  blacklist,
	}
}

// GenerateTokenPair generates access and refresh tokens for a user acting
// within the given tenant.
func (js *JWTService) GenerateTokenPair(user *models.User, tenant TenantClaims) (*TokenPair, error) {
	accessToken, err := js.GenerateAccessToken(user, tenant)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := js.GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(js.accessTTL.Seconds()),
		TokenType:    "Bearer",
	}, nil
}

// GenerateAccessToken generates a signed HS256 access token
func (js *JWTService) GenerateAccessToken(user *models.User, tenant TenantClaims) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:       user.ID,
		Email:        user.Email,
		Username:     user.Username,
		TenantClaims: tenant,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   user.ID.String(),
			Audience:  []string{audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(js.accessTTL)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(js.secretKey)
}

// GenerateRefreshToken generates a random opaque refresh token
func (js *JWTService) GenerateRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// RefreshTokenExpiry returns when a refresh token issued now expires
func (js *JWTService) RefreshTokenExpiry() time.Time {
	return time.Now().UTC().Add(js.refreshTTL)
}

// AccessTokenTTL returns the access token lifetime
func (js *JWTService) AccessTokenTTL() time.Duration {
	return js.accessTTL
}

// ValidateAccessToken validates and parses an access token
func (js *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return js.secretKey, nil
	}, jwt.WithIssuer(issuer), jwt.WithAudience(audience))

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// ValidateTokenWithBlacklist validates a token and rejects revoked ones
func (js *JWTService) ValidateTokenWithBlacklist(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := js.ValidateAccessToken(tokenString)
	if err != nil {
		return nil, err
	}

	revoked, err := js.blacklist.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked {
		return nil, ErrTokenBlacklisted
	}

	return claims, nil
}

// BlacklistToken revokes an access token until it would have expired
func (js *JWTService) BlacklistToken(ctx context.Context, tokenString string) error {
	claims, err := js.GetTokenClaims(tokenString)
	if err != nil {
		return err
	}
	if claims.ExpiresAt == nil {
		return ErrTokenMalformed
	}

	return js.blacklist.Add(ctx, claims.ID, claims.ExpiresAt.Time)
}

// GetTokenClaims extracts claims without verifying the signature
func (js *JWTService) GetTokenClaims(tokenString string) (*Claims, error) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, &Claims{})
	if err != nil {
		return nil, ErrTokenMalformed
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// ExtractTokenFromBearer extracts token from Bearer authorization header
func ExtractTokenFromBearer(authHeader string) string {
	const prefix = "Bearer "
	if len(authHeader) > len(prefix) && strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return strings.TrimSpace(authHeader[len(prefix):])
	}
	return ""
}

// ValidationError represents token validation errors
type ValidationError struct {
	Message string
	Code    string
}

func (e ValidationError) Error() string {
	return e.Message
}

var (
	ErrTokenExpired     = ValidationError{Message: "Token has expired", Code: "TOKEN_EXPIRED"}
	ErrTokenInvalid     = ValidationError{Message: "Invalid token", Code: "TOKEN_INVALID"}
	ErrTokenBlacklisted = ValidationError{Message: "Token has been revoked", Code: "TOKEN_REVOKED"}
	ErrTokenMalformed   = ValidationError{Message: "Token is malformed", Code: "TOKEN_MALFORMED"}
)
