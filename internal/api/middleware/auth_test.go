package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtasks-api/internal/api/shared"
	"github.com/phrazzld/teamtasks-api/internal/domain"
	"github.com/phrazzld/teamtasks-api/internal/mocks"
	"github.com/phrazzld/teamtasks-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name        string
		header      string
		claims      *auth.Claims
		validateErr error
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "missing header",
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Not authorized to access this route",
		},
		{
			name:        "wrong scheme",
			header:      "Basic abc",
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Invalid authorization format",
		},
		{
			name:        "expired token",
			header:      "Bearer token",
			validateErr: auth.ErrExpiredToken,
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Token expired",
		},
		{
			name:        "refresh token used as access token",
			header:      "Bearer token",
			validateErr: auth.ErrWrongTokenType,
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Invalid token",
		},
		{
			name:        "unexpected validation failure",
			header:      "Bearer token",
			validateErr: errors.New("key store unavailable"),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Authentication error",
		},
		{
			name:        "claims without user",
			header:      "Bearer token",
			claims:      &auth.Claims{Role: domain.RoleUser},
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Invalid token",
		},
		{
			name:       "valid token",
			header:     "Bearer token",
			claims:     &auth.Claims{UserID: userID, Role: domain.RoleAdmin, TokenType: "access"},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jwt := &mocks.MockJWTService{Claims: tt.claims, ValidateErr: tt.validateErr}

			var seen domain.Actor
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = shared.ActorFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			NewAuthMiddleware(jwt).Authenticate(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, domain.Actor{ID: userID, Role: domain.RoleAdmin}, seen)
				return
			}

			var env shared.Envelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			assert.Equal(t, tt.wantMessage, env.Message)
		})
	}
}

func TestTrace(t *testing.T) {
	var traceID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = shared.GetTraceID(r.Context())
	})

	rec := httptest.NewRecorder()
	Trace(nil)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil).WithContext(context.Background()))

	assert.Len(t, traceID, 32)
	assert.Equal(t, traceID, rec.Header().Get("X-Trace-ID"))
}
