package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabschema/internal/config"
	"tabschema/internal/loader"
	"tabschema/internal/middleware"
	"tabschema/internal/testutil"
)

// setupTestServer serves the shared orders fixture schema.
func setupTestServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()
	return setupTestServerWithTokens(t, cfg, nil)
}

func setupTestServerWithTokens(t *testing.T, cfg *config.Config, tokens middleware.TokenValidator) *httptest.Server {
	t.Helper()
	ds, err := loader.Parse([]byte(testutil.OrdersYAML), loader.Options{})
	require.NoError(t, err)
	if cfg == nil {
		cfg = &config.Config{CORSAllowedOrigins: []string{"*"}}
	}
	s := NewServer(ds, cfg, nil)
	if tokens != nil {
		s.WithTokenValidator(tokens)
	}
	srv := httptest.NewServer(s.Routes(t.Context()))
	t.Cleanup(srv.Close)
	return srv
}

func signHS256(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close() //nolint:errcheck
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func postIPC(t *testing.T, url string, body []byte) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/vnd.apache.arrow.stream", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func TestHealthz(t *testing.T) {
	srv := setupTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var body map[string]interface{}
	decode(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "shop", body["dataset"])
}

func TestListTables(t *testing.T) {
	srv := setupTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/v1/tables")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list TableList
	decode(t, resp, &list)
	assert.Equal(t, "shop", list.Dataset)
	require.Len(t, list.Tables, 2)
	assert.Equal(t, TableSummary{Name: "orders", Description: "One row per order", Columns: 4}, list.Tables[0])
	assert.Equal(t, "customers", list.Tables[1].Name)
}

func TestListTypes(t *testing.T) {
	srv := setupTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/v1/types")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Types   []TypeInfo        `json:"types"`
		Aliases map[string]string `json:"aliases"`
	}
	decode(t, resp, &body)
	assert.Contains(t, body.Types, TypeInfo{Name: "int64", ArrowType: "int64"})
	assert.Contains(t, body.Types, TypeInfo{Name: "struct"})
	assert.Equal(t, "int64", body.Aliases["integer"])
}

func TestGetTable(t *testing.T) {
	srv := setupTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/v1/tables/customers")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var desc struct {
		Name    string `json:"name"`
		Columns []struct {
			Name      string `json:"name"`
			Type      string `json:"type"`
			ArrowType string `json:"arrow_type"`
			Fields    []struct {
				Name string `json:"name"`
			} `json:"fields"`
		} `json:"columns"`
	}
	decode(t, resp, &desc)
	assert.Equal(t, "customers", desc.Name)
	require.Len(t, desc.Columns, 3)
	assert.Equal(t, "struct", desc.Columns[1].Type)
	assert.Equal(t, "struct<street: utf8, city: utf8>", desc.Columns[1].ArrowType)
	assert.Len(t, desc.Columns[1].Fields, 2)
	assert.Equal(t, "list<item: utf8, nullable>", desc.Columns[2].ArrowType)
}

func TestGetTable_NotFound(t *testing.T) {
	srv := setupTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/v1/tables/invoices")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body map[string]interface{}
	decode(t, resp, &body)
	assert.Equal(t, "table 'invoices' not found in dataset 'shop'. Available tables: orders, customers", body["message"])
	assert.Equal(t, []interface{}{"orders", "customers"}, body["available"])
}

func TestValidate_Valid(t *testing.T) {
	srv := setupTestServer(t, nil)
	body := testutil.IPCStream(t, testutil.OrdersSchema(),
		`[{"id": 1, "customer": null, "amount": 2.5, "placed_at": 0}]`,
		`[{"id": 2, "customer": "bo", "amount": null, "placed_at": 1}]`,
	)

	resp := postIPC(t, srv.URL+"/v1/tables/orders/validate?strict=true", body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var res ValidationResult
	decode(t, resp, &res)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
	assert.NotNil(t, res.Errors)
	assert.Equal(t, int64(2), res.Rows)
}

// driftedOrdersSchema drops amount, adds note and stores placed_at as text.
func driftedOrdersSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "customer", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "placed_at", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "note", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)
}

func TestValidate_Discrepancies(t *testing.T) {
	sc := driftedOrdersSchema()
	body := testutil.IPCStream(t, sc, `[{"id": null, "customer": "a", "placed_at": "x", "note": "n"}]`)

	tests := []struct {
		name       string
		query      string
		wantStatus int
	}{
		{"report", "", http.StatusOK},
		{"strict", "?strict=1", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := setupTestServer(t, nil)
			resp := postIPC(t, srv.URL+"/v1/tables/orders/validate"+tt.query, body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var res ValidationResult
			decode(t, resp, &res)
			assert.False(t, res.Valid)
			assert.Equal(t, []string{
				"missing columns: amount",
				"extra columns: note",
				"column 'id' contains null values but is not nullable",
				"column 'placed_at' has type utf8, expected timestamp[us]",
			}, res.Errors)
		})
	}
}

func TestValidate_BadRequests(t *testing.T) {
	srv := setupTestServer(t, &config.Config{MaxBodyBytes: 64})
	big := testutil.IPCStream(t, testutil.OrdersSchema(), `[{"id": 1, "customer": "c", "amount": 1, "placed_at": 0}]`)

	tests := []struct {
		name       string
		path       string
		body       []byte
		wantStatus int
	}{
		{"unknown table", "/v1/tables/nope/validate", big, http.StatusNotFound},
		{"garbage body", "/v1/tables/orders/validate", []byte("definitely not arrow"), http.StatusBadRequest},
		{"bad strict flag", "/v1/tables/orders/validate?strict=maybe", big, http.StatusBadRequest},
		{"body too large", "/v1/tables/orders/validate", big, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postIPC(t, srv.URL+tt.path, tt.body)
			defer resp.Body.Close() //nolint:errcheck
			_, _ = io.Copy(io.Discard, resp.Body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestRateLimitApplied(t *testing.T) {
	srv := setupTestServer(t, &config.Config{RateLimitRPS: 1, RateLimitBurst: 1})

	first, err := http.Get(srv.URL + "/v1/tables")
	require.NoError(t, err)
	_ = first.Body.Close()
	assert.Equal(t, http.StatusOK, first.StatusCode)

	second, err := http.Get(srv.URL + "/v1/tables")
	require.NoError(t, err)
	_ = second.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)

	health, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	_ = health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode, "health checks are not rate limited")
}

func TestAuthRequiredWhenConfigured(t *testing.T) {
	cfg := &config.Config{
		JWTSecret: "test-secret",
		APIKeys:   map[string]string{"k-123": "ci-bot"},
	}
	tokens, err := middleware.NewTokenValidator(t.Context(), cfg)
	require.NoError(t, err)
	srv := setupTestServerWithTokens(t, cfg, tokens)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode, "health stays public")

	resp, err = http.Get(srv.URL + "/v1/tables")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/v1/tables", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "k-123")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	signed := signHS256(t, "test-secret", "alice")
	req, err = http.NewRequest(http.MethodPost, srv.URL+"/v1/tables/orders/validate",
		bytes.NewReader(testutil.IPCStream(t, testutil.OrdersSchema(), `[]`)))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+signed)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	var res ValidationResult
	decode(t, resp, &res)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, res.Valid)
}

func TestSecretWithoutValidatorFailsClosed(t *testing.T) {
	srv := setupTestServer(t, &config.Config{JWTSecret: "test-secret"})

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/v1/tables", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+signHS256(t, "test-secret", "alice"))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "tokens need a validator set with WithTokenValidator")
}
