package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/wadjakorntonsri/limitlink/pkg/config"
	"github.com/wadjakorntonsri/limitlink/pkg/metrics"
	"go.uber.org/zap"
)

type contextKey string

const adminSubjectKey contextKey = "admin_subject"

type Middleware struct {
	jwtSecret []byte
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

func NewMiddleware(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) *Middleware {
	return &Middleware{
		jwtSecret: []byte(cfg.JWTSecret),
		logger:    logger,
		metrics:   m,
	}
}

// AuthMiddleware verifies the admin JWT from the Authorization header or the auth_token cookie
func (m *Middleware) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			if cookie, err := r.Cookie(AuthCookieName); err == nil {
				tokenString = cookie.Value
			}
		}
		if tokenString == "" || len(m.jwtSecret) == 0 {
			writeMessage(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return m.jwtSecret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

		if err != nil || !token.Valid {
			writeMessage(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		// Token is valid, proceed
		ctx := context.WithValue(r.Context(), adminSubjectKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// AdminSubject returns the subject of the verified admin token, if any.
func AdminSubject(ctx context.Context) string {
	s, _ := ctx.Value(adminSubjectKey).(string)
	return s
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Observe logs every request and counts responses by status class.
func (m *Middleware) Observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		m.metrics.Response(r.Method, rec.status)
		m.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(started)),
		)
	})
}
