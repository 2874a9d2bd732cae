package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/jorellortega/covionpartners-sub001/config"
	"github.com/jorellortega/covionpartners-sub001/middleware"
	"github.com/jorellortega/covionpartners-sub001/service"
)

func TestAuthHandlerLogin(t *testing.T) {
	cfg := testConfig()
	handler := NewAuthHandler(cfg, service.NewConfigIdentityProvider(cfg), nil)

	tests := []struct {
		name           string
		body           map[string]string
		expectedStatus int
	}{
		{
			name:           "valid login",
			body:           map[string]string{"username": "alice", "password": "alice-pass"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "invalid username",
			body:           map[string]string{"username": "wronguser", "password": "alice-pass"},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid password",
			body:           map[string]string{"username": "alice", "password": "wrongpass"},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "missing fields",
			body:           map[string]string{"username": "alice"},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.POST("/login", handler.Login)

			body, _ := json.Marshal(tt.body)
			req := httptest.NewRequest("POST", "/login", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}

			if tt.expectedStatus == http.StatusOK {
				var response LoginResponse
				if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
					t.Errorf("Failed to parse response: %v", err)
				}
				if response.Token == "" {
					t.Error("Expected token in response")
				}
				if response.UserID != "u-alice" || response.Org != "acme" {
					t.Errorf("Unexpected identity in response: %+v", response)
				}
				claims, err := middleware.ParseToken(response.Token, &cfg.Auth)
				if err != nil {
					t.Fatalf("issued token does not parse: %v", err)
				}
				if claims.Kind != middleware.TokenUser {
					t.Errorf("Expected user token, got %s", claims.Kind)
				}
			}
		})
	}
}

func TestAuthHandlerGetCurrentUser(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/auth/me", s.token("carol"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	resp := decode(t, w)
	if resp["user_id"] != "u-carol" || resp["kind"] != middleware.TokenUser {
		t.Errorf("Unexpected response: %v", resp)
	}
	memberships, ok := resp["memberships"].([]any)
	if !ok || len(memberships) != 1 {
		t.Fatalf("Expected one membership, got %v", resp["memberships"])
	}
	if m := memberships[0].(map[string]any); m["role"] != "staff" || m["level"].(float64) != 4 {
		t.Errorf("Unexpected membership: %v", m)
	}

	viewToken, _, err := middleware.GenerateAccessToken("c-1", &s.cfg.Auth)
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}
	w = s.do(http.MethodGet, "/api/auth/me", viewToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	resp = decode(t, w)
	if resp["kind"] != middleware.TokenExternal || resp["contract_id"] != "c-1" {
		t.Errorf("Unexpected response for view token: %v", resp)
	}

	w = s.do(http.MethodGet, "/api/auth/me", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without token, got %d", w.Code)
	}
}

func TestRedeemAccessCode(t *testing.T) {
	s := newTestServer(t)
	owner := s.token("alice")
	id := s.createContract("alice", "NDA", "The parties agree to keep secrets.")
	other := s.createContract("alice", "Lease", "Rent is due monthly.")

	w := s.do(http.MethodPost, "/api/contracts/"+id+"/access-codes", owner, map[string]any{"max_uses": 1})
	if w.Code != http.StatusCreated {
		t.Fatalf("issue code: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	code := decode(t, w)["code"].(string)

	// Wrong contract does not consume the code.
	w = s.do(http.MethodPost, "/api/access/redeem", "", map[string]string{"contract_id": other, "code": code})
	if w.Code != http.StatusForbidden {
		t.Errorf("redeem for other contract: expected 403, got %d", w.Code)
	}

	w = s.do(http.MethodPost, "/api/access/redeem", "", map[string]string{"contract_id": id, "code": code})
	if w.Code != http.StatusOK {
		t.Fatalf("redeem: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	grant := resp["grant"].(map[string]any)
	if grant["kind"] != "external" || grant["tier"].(float64) != 1 {
		t.Errorf("Unexpected grant: %v", grant)
	}
	viewToken := resp["token"].(string)

	w = s.do(http.MethodPost, "/api/access/redeem", "", map[string]string{"contract_id": id, "code": code})
	if w.Code != http.StatusForbidden {
		t.Errorf("second redeem of a single-use code: expected 403, got %d", w.Code)
	}

	tests := []struct {
		name           string
		method         string
		path           string
		body           any
		expectedStatus int
	}{
		{"view bound contract", http.MethodGet, "/api/contracts/" + id, nil, http.StatusOK},
		{"read pages", http.MethodGet, "/api/contracts/" + id + "/pages", nil, http.StatusOK},
		{"enter values", http.MethodPut, "/api/contracts/" + id + "/values", map[string]any{"values": map[string]string{"x": "1"}}, http.StatusOK},
		{"view other contract", http.MethodGet, "/api/contracts/" + other, nil, http.StatusForbidden},
		{"edit metadata", http.MethodPatch, "/api/contracts/" + id, map[string]string{"title": "Mine"}, http.StatusForbidden},
		{"issue codes", http.MethodPost, "/api/contracts/" + id + "/access-codes", map[string]any{}, http.StatusForbidden},
		{"open session", http.MethodPost, "/api/contracts/" + id + "/sessions", nil, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(tt.method, tt.path, viewToken, tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestRedeemInvalidRequest(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/access/redeem", "", map[string]string{"code": "ABCD-EFGH-1234-5678"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}

	id := s.createContract("alice", "NDA", "body")
	w = s.do(http.MethodPost, "/api/access/redeem", "", map[string]string{"contract_id": id, "code": "ABCD-EFGH-1234-5678"})
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for unknown code, got %d", w.Code)
	}
}

func TestRedeemRateLimited(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) { cfg.Server.RedeemRatePerMinute = 2 })

	for i := 0; i < 2; i++ {
		w := s.do(http.MethodPost, "/api/access/redeem", "", map[string]string{"contract_id": "c", "code": "x"})
		if w.Code == http.StatusTooManyRequests {
			t.Fatalf("request %d rate limited too early", i+1)
		}
	}
	w := s.do(http.MethodPost, "/api/access/redeem", "", map[string]string{"contract_id": "c", "code": "x"})
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected status 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After header")
	}
}
