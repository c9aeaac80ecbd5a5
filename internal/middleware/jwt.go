// Package middleware provides the HTTP middleware of the schema service:
// request ids, access logging, rate limiting and authentication.
package middleware

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"

	"tabschema/internal/config"
)

// Claims holds the parsed claims of a verified bearer token.
type Claims struct {
	Subject  string
	Issuer   string
	Audience []string
	Email    string
	Raw      map[string]interface{}
}

// TokenValidator verifies a bearer token and returns its claims.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*Claims, error)
}

// NewTokenValidator builds the validator selected by cfg: HS256 when
// JWT_SECRET is set, OIDC when OIDC_ISSUER_URL is set. It returns nil when
// neither is configured.
func NewTokenValidator(ctx context.Context, cfg *config.Config) (TokenValidator, error) {
	switch {
	case cfg.JWTSecret != "":
		v, err := NewHS256Validator(cfg.JWTSecret, cfg.OIDCAudience)
		if err != nil {
			return nil, err
		}
		return v, nil
	case cfg.OIDCJWKSURL != "":
		return NewOIDCValidatorFromJWKS(ctx, cfg.OIDCJWKSURL, cfg.OIDCIssuerURL, cfg.OIDCAudience), nil
	case cfg.OIDCIssuerURL != "":
		v, err := NewOIDCValidator(ctx, cfg.OIDCIssuerURL, cfg.OIDCAudience)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
	return nil, nil
}

// OIDCValidator verifies RS256/ES256 tokens against an identity provider's
// published keys.
type OIDCValidator struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCValidator discovers the provider's key set from issuerURL. An empty
// audience disables the "aud" check.
func NewOIDCValidator(ctx context.Context, issuerURL, audience string) (*OIDCValidator, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc provider discovery: %w", err)
	}
	return &OIDCValidator{verifier: provider.Verifier(oidcConfig(audience))}, nil
}

// NewOIDCValidatorFromJWKS verifies against the key set at jwksURL without
// discovery. Keys are fetched on first use.
func NewOIDCValidatorFromJWKS(ctx context.Context, jwksURL, issuerURL, audience string) *OIDCValidator {
	keySet := oidc.NewRemoteKeySet(ctx, jwksURL)
	return &OIDCValidator{verifier: oidc.NewVerifier(issuerURL, keySet, oidcConfig(audience))}
}

func oidcConfig(audience string) *oidc.Config {
	if audience == "" {
		return &oidc.Config{SkipClientIDCheck: true}
	}
	return &oidc.Config{ClientID: audience}
}

// Validate implements TokenValidator.
func (v *OIDCValidator) Validate(ctx context.Context, token string) (*Claims, error) {
	idToken, err := v.verifier.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}
	var raw map[string]interface{}
	if err := idToken.Claims(&raw); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	claims := &Claims{
		Subject:  idToken.Subject,
		Issuer:   idToken.Issuer,
		Audience: idToken.Audience,
		Raw:      raw,
	}
	claims.Email, _ = raw["email"].(string)
	return claims, nil
}

// HS256Validator verifies tokens signed with a shared secret.
type HS256Validator struct {
	secret   []byte
	audience string
}

// NewHS256Validator creates a validator for secret. A non-empty audience
// must appear in the token's "aud" claim.
func NewHS256Validator(secret, audience string) (*HS256Validator, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}
	return &HS256Validator{secret: []byte(secret), audience: audience}, nil
}

// Validate implements TokenValidator.
func (v *HS256Validator) Validate(_ context.Context, token string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	tok, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}

	raw, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("parse claims: unsupported claim type %T", tok.Claims)
	}
	claims := &Claims{Raw: map[string]interface{}(raw)}
	claims.Subject, _ = raw.GetSubject()
	claims.Issuer, _ = raw.GetIssuer()
	if aud, err := raw.GetAudience(); err == nil {
		claims.Audience = aud
	}
	claims.Email, _ = raw["email"].(string)
	return claims, nil
}
