package middleware

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabschema/internal/config"
)

// makeToken creates a signed HS256 JWT from the given secret and claims.
func makeToken(secret string, claims jwt.MapClaims) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, _ := token.SignedString([]byte(secret))
	return signed
}

func TestNewHS256Validator(t *testing.T) {
	t.Parallel()

	v, err := NewHS256Validator("my-secret", "")
	require.NoError(t, err)
	assert.Equal(t, []byte("my-secret"), v.secret)

	_, err = NewHS256Validator("", "")
	require.Error(t, err)
}

func TestHS256Validator_Validate(t *testing.T) {
	t.Parallel()

	const secret = "test-secret-32-bytes-long-xxxxx"

	tests := []struct {
		name      string
		audience  string
		token     string
		wantErr   bool
		wantSub   string
		wantIss   string
		wantEmail string
		wantAud   []string
	}{
		{
			name: "valid token with all claims",
			token: makeToken(secret, jwt.MapClaims{
				"sub":   "user-123",
				"iss":   "https://auth.example.com",
				"email": "user@example.com",
				"aud":   "tabschema",
				"exp":   time.Now().Add(time.Hour).Unix(),
			}),
			wantSub:   "user-123",
			wantIss:   "https://auth.example.com",
			wantEmail: "user@example.com",
			wantAud:   []string{"tabschema"},
		},
		{
			name: "valid token with only subject",
			token: makeToken(secret, jwt.MapClaims{
				"sub": "user-456",
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
			wantSub: "user-456",
		},
		{
			name:     "audience required and present",
			audience: "tabschema",
			token: makeToken(secret, jwt.MapClaims{
				"sub": "user-789",
				"aud": []string{"other", "tabschema"},
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
			wantSub: "user-789",
			wantAud: []string{"other", "tabschema"},
		},
		{
			name:     "audience required and missing",
			audience: "tabschema",
			token: makeToken(secret, jwt.MapClaims{
				"sub": "user-789",
				"aud": "other",
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
			wantErr: true,
		},
		{
			name: "expired token",
			token: makeToken(secret, jwt.MapClaims{
				"sub": "user-expired",
				"exp": time.Now().Add(-time.Hour).Unix(),
			}),
			wantErr: true,
		},
		{
			name: "wrong secret",
			token: makeToken("wrong-secret", jwt.MapClaims{
				"sub": "user-wrong",
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
			wantErr: true,
		},
		{
			name: "RS256 token rejected",
			token: func() string {
				key, _ := rsa.GenerateKey(rand.Reader, 2048)
				tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
					"sub": "rsa-user",
					"exp": time.Now().Add(time.Hour).Unix(),
				})
				signed, _ := tok.SignedString(key)
				return signed
			}(),
			wantErr: true,
		},
		{
			name:    "malformed token",
			token:   "not.a.valid.jwt.token",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v, err := NewHS256Validator(secret, tt.audience)
			require.NoError(t, err)
			claims, err := v.Validate(context.Background(), tt.token)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "token verification failed")
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSub, claims.Subject)
			assert.Equal(t, tt.wantIss, claims.Issuer)
			assert.Equal(t, tt.wantEmail, claims.Email)
			assert.Equal(t, tt.wantAud, []string(claims.Audience))
			assert.NotNil(t, claims.Raw)
		})
	}
}

// jwksServer publishes key's public half as a JSON Web Key Set.
func jwksServer(t *testing.T, kid string, key *rsa.PrivateKey) *httptest.Server {
	t.Helper()
	enc := base64.RawURLEncoding
	body, err := json.Marshal(map[string]interface{}{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": kid,
			"alg": "RS256",
			"use": "sig",
			"n":   enc.EncodeToString(key.N.Bytes()),
			"e":   enc.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}},
	})
	require.NoError(t, err)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOIDCValidator_FromJWKS(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	srv := jwksServer(t, "k1", key)
	const issuer = "https://idp.example.com"

	sign := func(claims jwt.MapClaims) string {
		tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
		tok.Header["kid"] = "k1"
		signed, err := tok.SignedString(key)
		require.NoError(t, err)
		return signed
	}

	v := NewOIDCValidatorFromJWKS(context.Background(), srv.URL, issuer, "tabschema")

	t.Run("valid token", func(t *testing.T) {
		claims, err := v.Validate(context.Background(), sign(jwt.MapClaims{
			"sub":   "svc-loader",
			"iss":   issuer,
			"aud":   "tabschema",
			"email": "loader@example.com",
			"exp":   time.Now().Add(time.Hour).Unix(),
		}))
		require.NoError(t, err)
		assert.Equal(t, "svc-loader", claims.Subject)
		assert.Equal(t, issuer, claims.Issuer)
		assert.Equal(t, "loader@example.com", claims.Email)
		assert.Equal(t, []string{"tabschema"}, claims.Audience)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		_, err := v.Validate(context.Background(), sign(jwt.MapClaims{
			"sub": "svc-loader",
			"iss": "https://evil.example.com",
			"aud": "tabschema",
			"exp": time.Now().Add(time.Hour).Unix(),
		}))
		require.Error(t, err)
	})

	t.Run("wrong audience", func(t *testing.T) {
		_, err := v.Validate(context.Background(), sign(jwt.MapClaims{
			"sub": "svc-loader",
			"iss": issuer,
			"aud": "other",
			"exp": time.Now().Add(time.Hour).Unix(),
		}))
		require.Error(t, err)
	})
}

func TestNewTokenValidator(t *testing.T) {
	t.Run("none configured", func(t *testing.T) {
		v, err := NewTokenValidator(context.Background(), &config.Config{})
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("shared secret", func(t *testing.T) {
		v, err := NewTokenValidator(context.Background(), &config.Config{JWTSecret: "s"})
		require.NoError(t, err)
		assert.IsType(t, &HS256Validator{}, v)
	})

	t.Run("jwks", func(t *testing.T) {
		v, err := NewTokenValidator(context.Background(), &config.Config{
			OIDCIssuerURL: "https://idp.example.com",
			OIDCJWKSURL:   "https://idp.example.com/keys",
		})
		require.NoError(t, err)
		assert.IsType(t, &OIDCValidator{}, v)
	})

	t.Run("discovery failure", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()
		_, err := NewTokenValidator(context.Background(), &config.Config{OIDCIssuerURL: srv.URL})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "oidc provider discovery")
	})
}
