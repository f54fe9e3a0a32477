package middleware_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/modelapi/internal/api/middleware"
	"github.com/phrazzld/modelapi/internal/api/shared"
	"github.com/phrazzld/modelapi/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockJWTService stubs token validation.
type MockJWTService struct {
	mock.Mock
}

func (m *MockJWTService) GenerateToken(ctx context.Context, subject string) (string, error) {
	args := m.Called(ctx, subject)
	return args.String(0), args.Error(1)
}

func (m *MockJWTService) ValidateToken(ctx context.Context, token string) (*auth.Claims, error) {
	args := m.Called(ctx, token)
	claims, _ := args.Get(0).(*auth.Claims)
	return claims, args.Error(1)
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		authHeader      string
		validateToken   string
		claims          *auth.Claims
		validateErr     error
		expectedStatus  int
		expectedMessage string
	}{
		{
			name:           "valid token",
			authHeader:     "Bearer valid-token",
			validateToken:  "valid-token",
			claims:         &auth.Claims{Subject: "42"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "scheme is case insensitive",
			authHeader:     "bearer valid-token",
			validateToken:  "valid-token",
			claims:         &auth.Claims{Subject: "42"},
			expectedStatus: http.StatusOK,
		},
		{
			name:            "missing auth header",
			expectedStatus:  http.StatusUnauthorized,
			expectedMessage: "Authorization header required",
		},
		{
			name:            "invalid auth format",
			authHeader:      "InvalidFormat",
			expectedStatus:  http.StatusUnauthorized,
			expectedMessage: "Invalid authorization format",
		},
		{
			name:            "expired token",
			authHeader:      "Bearer expired-token",
			validateToken:   "expired-token",
			validateErr:     auth.ErrExpiredToken,
			expectedStatus:  http.StatusUnauthorized,
			expectedMessage: "Token expired",
		},
		{
			name:            "wrong issuer",
			authHeader:      "Bearer foreign-token",
			validateToken:   "foreign-token",
			validateErr:     auth.ErrWrongIssuer,
			expectedStatus:  http.StatusUnauthorized,
			expectedMessage: "Invalid token",
		},
		{
			name:            "unexpected failure",
			authHeader:      "Bearer some-token",
			validateToken:   "some-token",
			validateErr:     errors.New("secret=abcdefghijklmnop leaked"),
			expectedStatus:  http.StatusInternalServerError,
			expectedMessage: "Authentication error",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			jwtService := &MockJWTService{}
			if tt.validateToken != "" {
				jwtService.On("ValidateToken", mock.Anything, tt.validateToken).Return(tt.claims, tt.validateErr)
			}

			var subject string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				subject, _ = middleware.GetSubject(r)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/api/users", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()

			middleware.NewAuthMiddleware(jwtService).Authenticate(next).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			jwtService.AssertExpectations(t)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, "42", subject)
				return
			}

			var body shared.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.expectedMessage, body.Error)
			assert.Empty(t, subject)
		})
	}
}

func TestAuthMiddleware_RejectedTokensLogAtWarn(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	jwtService := &MockJWTService{}
	jwtService.On("ValidateToken", mock.Anything, "stale-token").Return(nil, auth.ErrExpiredToken)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next must not run for a rejected token")
	})
	handler := middleware.NewTraceMiddleware(base)(middleware.NewAuthMiddleware(jwtService).Authenticate(next))

	req := httptest.NewRequest(http.MethodDelete, "/api/users/1", nil)
	req.Header.Set("Authorization", "Bearer stale-token")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	var warned bool
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		if entry["level"] == "WARN" {
			warned = true
			assert.Equal(t, float64(http.StatusUnauthorized), entry["status_code"])
			assert.Equal(t, "Token expired", entry["user_message"])
		}
	}
	assert.True(t, warned, "rejected tokens are logged at WARN")
}

func TestTraceMiddleware(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var traceID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = shared.GetTraceID(r.Context())
		shared.RespondWithError(w, r, http.StatusTeapot, "short and stout")
	})

	w := httptest.NewRecorder()
	middleware.NewTraceMiddleware(base)(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Len(t, traceID, 32)
	var body shared.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, traceID, body.TraceID)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2, "request start and error response are both logged")
	for _, line := range lines {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		assert.Equal(t, traceID, entry["trace_id"])
	}
}
