package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"walletledger/internal/config"
	"walletledger/internal/handlers"
	"walletledger/internal/metrics"
	"walletledger/internal/ratelimit"
	"walletledger/internal/repositories/memstore"
	"walletledger/internal/services/audit"
	"walletledger/internal/services/user"
	"walletledger/internal/services/wallet"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	app   *fiber.App
	store *memstore.Store
}

func newTestServer(t *testing.T, health map[string]handlers.Check) *testServer {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	store := memstore.New()
	limiter := ratelimit.New()
	collector := metrics.New()

	wallets := wallet.NewService(store, wallet.Config{
		TransferLimit:  10,
		TransferWindow: time.Minute,
	}, wallet.WithRateLimiter(limiter), wallet.WithMetrics(collector))
	users := user.NewService(store, limiter, nil, user.Config{
		AuthLimit:  5,
		AuthWindow: time.Minute,
		BcryptCost: bcrypt.MinCost,
	}, logrus.NewEntry(log))

	app := fiber.New()
	SetupRoutes(app, Dependencies{
		Config: &config.Config{
			JWTSecret: "test-secret",
			TokenTTL:  time.Minute,
		},
		Users:   users,
		Wallets: wallets,
		Audit:   audit.NewService(store.Transactions(), logrus.NewEntry(log)),
		Metrics: collector,
		Health:  health,
		Log:     log,
	})
	return &testServer{app: app, store: store}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}, headers ...string) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

// signup registers and logs in, returning the token and the wallet id.
func (s *testServer) signup(t *testing.T, email string) (string, string) {
	t.Helper()

	status, body := s.do(t, http.MethodPost, "/api/register", "", fiber.Map{
		"email":     email,
		"full_name": "Test User",
		"password":  "correct horse",
	})
	require.Equal(t, fiber.StatusCreated, status, body)
	accountID := body["user"].(map[string]interface{})["account"].(map[string]interface{})["id"].(string)

	status, body = s.do(t, http.MethodPost, "/api/login", "", fiber.Map{
		"email":    email,
		"password": "correct horse",
	})
	require.Equal(t, fiber.StatusOK, status, body)
	return body["access_token"].(string), accountID
}

func decimalField(t *testing.T, body map[string]interface{}, key string) decimal.Decimal {
	t.Helper()
	raw, ok := body[key].(string)
	require.True(t, ok, "field %s missing in %v", key, body)
	return decimal.RequireFromString(raw)
}

func TestWalletFlow(t *testing.T) {
	s := newTestServer(t, nil)
	token, accountID := s.signup(t, "ada@example.com")

	status, body := s.do(t, http.MethodGet, "/api/wallet", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	w := body["wallet"].(map[string]interface{})
	assert.Equal(t, accountID, w["id"])
	assert.True(t, decimalField(t, w, "balance").IsZero())

	status, body = s.do(t, http.MethodPost, "/api/wallet/deposit", token, fiber.Map{"amount": "100.00"})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.True(t, decimalField(t, body, "balance").Equal(decimal.NewFromInt(100)))

	status, body = s.do(t, http.MethodPost, "/api/wallet/withdraw", token, fiber.Map{"amount": "50"})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.True(t, decimalField(t, body, "balance").Equal(decimal.NewFromInt(50)))

	status, body = s.do(t, http.MethodPost, "/api/wallet/withdraw", token, fiber.Map{"amount": "60"})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "INSUFFICIENT_FUNDS", body["code"])

	status, body = s.do(t, http.MethodPost, "/api/wallet/deposit", token, fiber.Map{"amount": "-5"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "INVALID_AMOUNT", body["code"])

	status, body = s.do(t, http.MethodGet, "/api/transactions?limit=500", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["transactions"], 2)
	assert.Equal(t, float64(100), body["limit"])
}

func TestDepositIdempotencyKey(t *testing.T) {
	s := newTestServer(t, nil)
	token, _ := s.signup(t, "ada@example.com")

	status, _ := s.do(t, http.MethodPost, "/api/wallet/deposit", token, fiber.Map{"amount": "10"}, handlers.HeaderIdempotencyKey, "order-42")
	require.Equal(t, fiber.StatusOK, status)

	status, body := s.do(t, http.MethodPost, "/api/wallet/deposit", token, fiber.Map{"amount": "10"}, handlers.HeaderIdempotencyKey, "order-42")
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "DUPLICATE_REFERENCE", body["code"])

	_, body = s.do(t, http.MethodGet, "/api/wallet", token, nil)
	assert.True(t, decimalField(t, body["wallet"].(map[string]interface{}), "balance").Equal(decimal.NewFromInt(10)))
}

func TestIdempotencyKeyIsScopedToCaller(t *testing.T) {
	s := newTestServer(t, nil)
	adaToken, adaAccount := s.signup(t, "ada@example.com")
	bobToken, bobAccount := s.signup(t, "bob@example.com")

	status, body := s.do(t, http.MethodPost, "/api/wallet/deposit", adaToken, fiber.Map{"amount": "10"}, handlers.HeaderIdempotencyKey, "1")
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, adaAccount+":1", body["transaction"].(map[string]interface{})["reference"])

	status, body = s.do(t, http.MethodPost, "/api/wallet/deposit", bobToken, fiber.Map{"amount": "10"}, handlers.HeaderIdempotencyKey, "1")
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, bobAccount+":1", body["transaction"].(map[string]interface{})["reference"])

	status, body = s.do(t, http.MethodPost, "/api/wallet/transfer", bobToken, fiber.Map{
		"receiver_account_id": adaAccount,
		"amount":              "4",
	}, handlers.HeaderIdempotencyKey, "t-1")
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, bobAccount+":t-1:out", body["transaction"].(map[string]interface{})["reference"])

	status, body = s.do(t, http.MethodPost, "/api/wallet/transfer", adaToken, fiber.Map{
		"receiver_account_id": bobAccount,
		"amount":              "4",
	}, handlers.HeaderIdempotencyKey, "t-1")
	require.Equal(t, fiber.StatusOK, status, body)

	// a replay by the same caller is still rejected
	status, body = s.do(t, http.MethodPost, "/api/wallet/deposit", bobToken, fiber.Map{"amount": "10"}, handlers.HeaderIdempotencyKey, "1")
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "DUPLICATE_REFERENCE", body["code"])
	assert.Equal(t, "transaction reference already recorded", body["error"])
}

func TestUpdateMe(t *testing.T) {
	s := newTestServer(t, nil)
	token, _ := s.signup(t, "ada@example.com")
	s.signup(t, "bob@example.com")

	status, body := s.do(t, http.MethodPatch, "/api/me", token, fiber.Map{"full_name": "Ada King"})
	require.Equal(t, fiber.StatusOK, status, body)
	profile := body["user"].(map[string]interface{})
	assert.Equal(t, "Ada King", profile["full_name"])
	assert.Equal(t, "ada@example.com", profile["email"])

	status, body = s.do(t, http.MethodPatch, "/api/me", token, fiber.Map{"email": "bob@example.com"})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "EMAIL_TAKEN", body["code"])

	status, _ = s.do(t, http.MethodPatch, "/api/me", token, fiber.Map{"email": "not-an-email"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodPatch, "/api/me", token, fiber.Map{"password": "analytical engine"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = s.do(t, http.MethodPatch, "/api/me", token, fiber.Map{
		"password":         "analytical engine",
		"current_password": "wrong",
	})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_CREDENTIALS", body["code"])

	status, _ = s.do(t, http.MethodPatch, "/api/me", token, fiber.Map{
		"password":         "analytical engine",
		"current_password": "correct horse",
	})
	require.Equal(t, fiber.StatusOK, status)

	status, _ = s.do(t, http.MethodPost, "/api/login", "", fiber.Map{"email": "ada@example.com", "password": "analytical engine"})
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = s.do(t, http.MethodPatch, "/api/me", "", fiber.Map{"full_name": "Nobody"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestTransferAndOwnership(t *testing.T) {
	s := newTestServer(t, nil)
	adaToken, adaAccount := s.signup(t, "ada@example.com")
	bobToken, bobAccount := s.signup(t, "bob@example.com")

	status, _ := s.do(t, http.MethodPost, "/api/wallet/deposit", adaToken, fiber.Map{"amount": "100"})
	require.Equal(t, fiber.StatusOK, status)

	status, body := s.do(t, http.MethodPost, "/api/wallet/transfer", adaToken, fiber.Map{
		"receiver_account_id": bobAccount,
		"amount":              "25",
		"reference":           "rent",
	})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.True(t, decimalField(t, body, "balance").Equal(decimal.NewFromInt(75)))
	out := body["transaction"].(map[string]interface{})
	assert.Equal(t, "rent:out", out["reference"])
	assert.Equal(t, "TRANSFER_OUT", out["type"])

	_, body = s.do(t, http.MethodGet, "/api/wallet", bobToken, nil)
	assert.True(t, decimalField(t, body["wallet"].(map[string]interface{}), "balance").Equal(decimal.NewFromInt(25)))

	status, body = s.do(t, http.MethodPost, "/api/wallet/transfer", adaToken, fiber.Map{
		"receiver_account_id": adaAccount,
		"amount":              "1",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "SELF_TRANSFER", body["code"])

	status, _ = s.do(t, http.MethodPost, "/api/wallet/transfer", adaToken, fiber.Map{"amount": "1"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	// ada's entry is not visible to bob
	status, _ = s.do(t, http.MethodGet, "/api/transactions/"+out["id"].(string), adaToken, nil)
	assert.Equal(t, fiber.StatusOK, status)
	status, _ = s.do(t, http.MethodGet, "/api/transactions/"+out["id"].(string), bobToken, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	status, _ = s.do(t, http.MethodGet, "/api/transactions/not-a-uuid", bobToken, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestAuthErrors(t *testing.T) {
	s := newTestServer(t, nil)
	s.signup(t, "ada@example.com")

	status, _ := s.do(t, http.MethodGet, "/api/wallet", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodGet, "/api/wallet", "garbage", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, body := s.do(t, http.MethodPost, "/api/login", "", fiber.Map{"email": "ada@example.com", "password": "wrong"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_CREDENTIALS", body["code"])

	status, body = s.do(t, http.MethodPost, "/api/register", "", fiber.Map{
		"email":     "ada@example.com",
		"full_name": "Ada",
		"password":  "correct horse",
	})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "EMAIL_TAKEN", body["code"])

	status, _ = s.do(t, http.MethodPost, "/api/register", "", fiber.Map{"email": "nope", "password": "x"})
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestLoginRateLimited(t *testing.T) {
	s := newTestServer(t, nil)

	for i := 0; i < 5; i++ {
		status, _ := s.do(t, http.MethodPost, "/api/login", "", fiber.Map{"email": "eve@example.com", "password": "guess"})
		require.Equal(t, fiber.StatusUnauthorized, status)
	}
	status, body := s.do(t, http.MethodPost, "/api/login", "", fiber.Map{"email": "eve@example.com", "password": "guess"})
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Equal(t, "RATE_LIMITED", body["code"])
	assert.Equal(t, true, body["retryable"])
}

func TestAuditEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	token, _ := s.signup(t, "ada@example.com")

	for _, amount := range []string{"50", "1500", "2000"} {
		status, _ := s.do(t, http.MethodPost, "/api/wallet/deposit", token, fiber.Map{"amount": amount})
		require.Equal(t, fiber.StatusOK, status)
	}

	status, body := s.do(t, http.MethodGet, "/api/audit/large", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["transactions"], 2)

	status, body = s.do(t, http.MethodGet, "/api/audit/large?threshold=1999.99", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["transactions"], 1)

	status, _ = s.do(t, http.MethodGet, "/api/audit/large?threshold=abc", token, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = s.do(t, http.MethodGet, "/api/audit/activity?limit=2", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["alert"])
	assert.Equal(t, float64(3), body["count"])
	assert.Equal(t, float64(10), body["window_minutes"])

	// an oversized window is clamped, not wrapped around
	status, body = s.do(t, http.MethodGet, "/api/audit/activity?limit=2&minutes=200000000", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["alert"])
	assert.Equal(t, float64(3), body["count"])
	assert.Equal(t, float64(audit.MaxWindowMinutes), body["window_minutes"])
}

func TestDeleteMe(t *testing.T) {
	s := newTestServer(t, nil)
	token, _ := s.signup(t, "ada@example.com")

	status, body := s.do(t, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ada@example.com", body["user"].(map[string]interface{})["email"])

	status, _ = s.do(t, http.MethodDelete, "/api/me", token, nil)
	assert.Equal(t, fiber.StatusNoContent, status)

	// the token outlives the user but no longer authenticates
	status, _ = s.do(t, http.MethodGet, "/api/wallet", token, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	status, _ = s.do(t, http.MethodGet, "/api/me", token, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodPost, "/api/login", "", fiber.Map{"email": "ada@example.com", "password": "correct horse"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, map[string]handlers.Check{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})

	status, body := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, "degraded", body["status"])
	services := body["services"].(map[string]interface{})
	assert.Equal(t, "connected", services["database"])
	assert.Equal(t, "connection refused", services["redis"])

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "walletledger_http_requests_total")
}
