package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fastprodman/topup/internal/auth"
	"github.com/fastprodman/topup/internal/config"
	"github.com/fastprodman/topup/internal/queue"
	"github.com/fastprodman/topup/internal/repos/accounts"
	memaccounts "github.com/fastprodman/topup/internal/repos/accounts/memory"
	memdeposits "github.com/fastprodman/topup/internal/repos/deposits/memory"
	"github.com/fastprodman/topup/internal/services/lifecycle"
	"github.com/fastprodman/topup/internal/services/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3"
	"golang.org/x/crypto/bcrypt"
)

const contact = "01012345678"

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []queue.SettlementMessage
	err  error
}

func (p *recordingPublisher) PublishSettlement(_ context.Context, msg queue.SettlementMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}

	p.msgs = append(p.msgs, msg)
	return nil
}

type testAPI struct {
	handler http.Handler
	tokens  map[string]string
}

func newTestAPI(t *testing.T, publisher SettlementPublisher, lim *limiter.Limiter) *testAPI {
	t.Helper()

	acc := memaccounts.New()
	deps := memdeposits.New()

	au, err := auth.New(acc, config.AuthConfig{JWTSecret: "secret", TokenTTL: time.Hour, BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)

	tokens := make(map[string]string)

	for name, role := range map[string]accounts.Role{
		"alice":    accounts.RoleUser,
		"bob":      accounts.RoleUser,
		"operator": accounts.RoleOperator,
	} {
		_, err := au.Register(t.Context(), name, name+"-pass", role)
		require.NoError(t, err)

		tok, err := au.IssueToken(auth.Principal{AccountID: name, Role: role})
		require.NoError(t, err)
		tokens[name] = tok
	}

	h := NewHandler(lifecycle.New(acc, deps), status.New(deps), au, publisher)

	return &testAPI{handler: NewRouter(h, lim, []string{"*"}), tokens: tokens}
}

func (a *testAPI) do(t *testing.T, method, path, as string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as != "" {
		req.Header.Set("Authorization", "Bearer "+a.tokens[as])
	}

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	out := map[string]any{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)

	return rec, out
}

func (a *testAPI) submit(t *testing.T, as, account string, amount any) string {
	t.Helper()

	rec, out := a.do(t, http.MethodPost, "/deposits", as, map[string]any{
		"account": account, "amount": amount, "contactRef": contact,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	return out["depositId"].(string)
}

func TestHealthzAndRequestID(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t, nil, nil)

	rec, out := a.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", out["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t, nil, nil)

	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{name: "register_ok", path: "/register", body: map[string]string{"username": "carol", "password": "carol-pass"}, status: http.StatusCreated},
		{name: "register_duplicate", path: "/register", body: map[string]string{"username": "alice", "password": "whatever1"}, status: http.StatusConflict},
		{name: "register_missing_password", path: "/register", body: map[string]string{"username": "dave"}, status: http.StatusBadRequest},
		{name: "register_bad_json", path: "/register", body: `{"username":`, status: http.StatusBadRequest},
		{name: "register_unknown_field", path: "/register", body: `{"username":"x","password":"yyyyyy","admin":true}`, status: http.StatusBadRequest},
		{name: "login_ok", path: "/login", body: map[string]string{"username": "bob", "password": "bob-pass"}, status: http.StatusOK},
		{name: "login_wrong_password", path: "/login", body: map[string]string{"username": "bob", "password": "nope-nope"}, status: http.StatusUnauthorized},
		{name: "login_unknown_user", path: "/login", body: map[string]string{"username": "zed", "password": "zed-pass"}, status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := a.do(t, http.MethodPost, tt.path, "", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())

			if tt.name == "login_ok" {
				assert.NotEmpty(t, out["token"])
			}
		})
	}
}

func TestSubmitDeposit(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t, nil, nil)

	tests := []struct {
		name   string
		as     string
		body   any
		status int
	}{
		{name: "ok_string_amount", as: "alice", body: map[string]any{"account": "alice", "amount": "100.50", "contactRef": contact}, status: http.StatusCreated},
		{name: "ok_number_amount", as: "alice", body: map[string]any{"account": "alice", "amount": 12, "contactRef": contact}, status: http.StatusCreated},
		{name: "zero_amount", as: "alice", body: map[string]any{"account": "alice", "amount": "0", "contactRef": contact}, status: http.StatusBadRequest},
		{name: "negative_amount", as: "alice", body: map[string]any{"account": "alice", "amount": "-1", "contactRef": contact}, status: http.StatusBadRequest},
		{name: "three_decimals", as: "alice", body: map[string]any{"account": "alice", "amount": "1.234", "contactRef": contact}, status: http.StatusBadRequest},
		{name: "missing_amount", as: "alice", body: map[string]any{"account": "alice", "contactRef": contact}, status: http.StatusBadRequest},
		{name: "short_contact", as: "alice", body: map[string]any{"account": "alice", "amount": "1", "contactRef": "0101"}, status: http.StatusBadRequest},
		{name: "other_account", as: "alice", body: map[string]any{"account": "bob", "amount": "1", "contactRef": contact}, status: http.StatusForbidden},
		{name: "operator_unknown_account", as: "operator", body: map[string]any{"account": "ghost", "amount": "1", "contactRef": contact}, status: http.StatusNotFound},
		{name: "no_token", body: map[string]any{"account": "alice", "amount": "1", "contactRef": contact}, status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := a.do(t, http.MethodPost, "/deposits", tt.as, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			if tt.status == http.StatusCreated {
				assert.Equal(t, "pending", out["status"])
				assert.NotEmpty(t, out["depositId"])
			}
		})
	}

	rec, out := a.do(t, http.MethodGet, "/accounts/alice/balance", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0.00", out["balance"], "submission must not touch the balance")
}

func TestSettleFlow(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t, nil, nil)
	id := a.submit(t, "alice", "alice", "100")

	rec, out := a.do(t, http.MethodGet, "/deposits/"+id+"/status", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pending", out["status"])
	assert.NotContains(t, out, "settledAt")

	rec, _ = a.do(t, http.MethodGet, "/deposits/"+id+"/status", "bob", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "non-owner must not see the deposit")

	rec, _ = a.do(t, http.MethodPost, "/deposits/"+id+"/settle", "alice", map[string]string{"decision": "approve"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = a.do(t, http.MethodPost, "/deposits/"+id+"/settle", "operator", map[string]string{"decision": "maybe"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, out = a.do(t, http.MethodPost, "/deposits/"+id+"/settle", "operator", map[string]string{"decision": "approve"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "completed", out["status"])

	rec, out = a.do(t, http.MethodPost, "/deposits/"+id+"/settle", "operator", map[string]string{"decision": "approve"})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already settled", out["error"])
	assert.Equal(t, "completed", out["status"])

	rec, out = a.do(t, http.MethodGet, "/accounts/alice/balance", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "100.00", out["balance"])

	rec, out = a.do(t, http.MethodGet, "/deposits/"+id+"/status", "operator", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "completed", out["status"])
	assert.NotEmpty(t, out["settledAt"])

	rec, _ = a.do(t, http.MethodPost, "/deposits/00000000-0000-0000-0000-000000000000/settle", "operator", map[string]string{"decision": "reject"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAccountsAccess(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t, nil, nil)
	a.submit(t, "alice", "alice", "1")
	a.submit(t, "alice", "alice", "2")

	rec, _ := a.do(t, http.MethodGet, "/accounts/alice/balance", "bob", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, out := a.do(t, http.MethodGet, "/accounts/alice/deposits?limit=1", "operator", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, out["deposits"], 1)

	rec, _ = a.do(t, http.MethodGet, "/accounts/alice/deposits?limit=0", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = a.do(t, http.MethodGet, "/accounts/ghost/balance", "operator", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAsyncSettle(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{}
	a := newTestAPI(t, pub, nil)
	id := a.submit(t, "alice", "alice", "5")

	rec, out := a.do(t, http.MethodPost, "/deposits/"+id+"/settle?async=true", "operator", map[string]string{"decision": "approve"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, "pending", out["status"])
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, queue.SettlementMessage{DepositID: id, Decision: "approve"}, pub.msgs[0])

	pub.err = errors.New("broker down")
	rec, _ = a.do(t, http.MethodPost, "/deposits/"+id+"/settle?async=true", "operator", map[string]string{"decision": "approve"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	noQueue := newTestAPI(t, nil, nil)
	other := noQueue.submit(t, "alice", "alice", "5")
	rec, _ = noQueue.do(t, http.MethodPost, "/deposits/"+other+"/settle?async=true", "operator", map[string]string{"decision": "approve"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSubmitRateLimit(t *testing.T) {
	t.Parallel()

	lim, err := NewSubmitLimiter(config.RateLimitConfig{Rate: "2-M", Enabled: true})
	require.NoError(t, err)

	a := newTestAPI(t, nil, lim)
	a.submit(t, "alice", "alice", "1")
	a.submit(t, "alice", "alice", "1")

	rec, _ := a.do(t, http.MethodPost, "/deposits", "alice", map[string]any{"account": "alice", "amount": "1", "contactRef": contact})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// limits are per account
	a.submit(t, "bob", "bob", "1")

	disabled, err := NewSubmitLimiter(config.RateLimitConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, disabled)
}

func TestToMinor(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t, nil, nil)

	rec, out := a.do(t, http.MethodPost, "/deposits", "alice", `{"account":"alice","amount":"0.07","contactRef":"01012345678"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "0.07", out["amount"])

	assert.Equal(t, "1234.50", formatMinor(123450))
	assert.Equal(t, "0.00", formatMinor(0))
}

func TestSettleDecisionIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t, nil, nil)

	tests := []struct {
		decision string
		status   int
		want     string
	}{
		{decision: "APPROVE", status: http.StatusOK, want: "completed"},
		{decision: " Reject ", status: http.StatusOK, want: "rejected"},
		{decision: "hold", status: http.StatusBadRequest},
		{decision: "", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.decision, func(t *testing.T) {
			id := a.submit(t, "alice", "alice", "1")

			rec, out := a.do(t, http.MethodPost, "/deposits/"+id+"/settle", "operator", map[string]string{"decision": tt.decision})
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			if tt.want != "" {
				assert.Equal(t, tt.want, out["status"])
			}
		})
	}
}

func TestCORS(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t, nil, nil)

	preflight := httptest.NewRequest(http.MethodOptions, "/deposits", nil)
	preflight.Header.Set("Origin", "http://localhost:3000")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPost)
	preflight.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, preflight)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)

	get := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	get.Header.Set("Origin", "http://localhost:3000")

	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, get)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), http.CanonicalHeaderKey(requestIDHeader))
}

func TestCORSDisabled(t *testing.T) {
	t.Parallel()

	acc := memaccounts.New()
	deps := memdeposits.New()

	au, err := auth.New(acc, config.AuthConfig{JWTSecret: "secret", BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)

	handler := NewRouter(NewHandler(lifecycle.New(acc, deps), status.New(deps), au, nil), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://localhost:3000")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
