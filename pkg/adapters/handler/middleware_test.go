package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/wadjakorntonsri/limitlink/pkg/config"
	"github.com/wadjakorntonsri/limitlink/pkg/metrics"
	"go.uber.org/zap"
)

func TestAuthMiddleware(t *testing.T) {
	cfg := &config.Config{
		JWTSecret: "testservlet",
	}
	mw := NewMiddleware(cfg, zap.NewNop(), nil)

	tests := []struct {
		name           string
		cookieValue    string
		bearer         string
		expectedStatus int
	}{
		{
			name:           "No Token",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Invalid Cookie",
			cookieValue:    "invalid",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Valid Cookie",
			cookieValue:    generateTestToken(t, cfg.JWTSecret, 5*time.Minute),
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Valid Bearer",
			bearer:         generateTestToken(t, cfg.JWTSecret, 5*time.Minute),
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Expired Bearer",
			bearer:         generateTestToken(t, cfg.JWTSecret, -time.Minute),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Wrong Secret",
			bearer:         generateTestToken(t, "other-secret", 5*time.Minute),
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/admin/links", nil)
			if tt.cookieValue != "" {
				req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: tt.cookieValue})
			}
			if tt.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tt.bearer)
			}

			rr := httptest.NewRecorder()
			handler := mw.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if AdminSubject(r.Context()) != "ops@example.com" {
					t.Errorf("subject not propagated")
				}
				w.WriteHeader(http.StatusOK)
			}))

			handler.ServeHTTP(rr, req)

			if status := rr.Code; status != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v",
					status, tt.expectedStatus)
			}
		})
	}
}

func TestAuthMiddlewareWithoutSecret(t *testing.T) {
	mw := NewMiddleware(&config.Config{}, zap.NewNop(), nil)

	// an empty secret must not accept tokens signed with an empty key
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &jwt.RegisteredClaims{Subject: "x"})
	signed, _ := token.SignedString([]byte(""))

	req := httptest.NewRequest("GET", "/api/v1/admin/links", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rr := httptest.NewRecorder()
	mw.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("got %d, want 401", rr.Code)
	}
}

func TestObserveCountsResponses(t *testing.T) {
	m := metrics.New()
	mw := NewMiddleware(&config.Config{}, zap.NewNop(), m)

	handler := mw.Observe(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/x", nil))

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, mf := range families {
		if mf.GetName() != "limitlink_http_responses_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range metric.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["method"] == "GET" && labels["class"] == "4xx" && metric.GetCounter().GetValue() == 1 {
				return
			}
		}
	}
	t.Error("4xx GET response was not counted")
}

func generateTestToken(t *testing.T, secret string, ttl time.Duration) string {
	tokenString, _, err := IssueAdminToken([]byte(secret), "ops@example.com", ttl)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return tokenString
}
