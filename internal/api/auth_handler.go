package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/phrazzld/modelapi/internal/api/shared"
	"github.com/phrazzld/modelapi/internal/domain"
	"github.com/phrazzld/modelapi/internal/manager"
	"github.com/phrazzld/modelapi/internal/platform/logger"
	"github.com/phrazzld/modelapi/internal/redact"
	"github.com/phrazzld/modelapi/internal/service/auth"
	"github.com/phrazzld/modelapi/internal/store"
)

const msgInvalidCredentials = "Invalid credentials"

// AuthHandler exchanges user credentials for access tokens.
type AuthHandler struct {
	factory    *manager.Factory
	jwtService auth.JWTService
	lifetime   time.Duration
	now        func() time.Time
}

// NewAuthHandler creates a new AuthHandler. lifetime is only used to report
// the expiry of issued tokens.
func NewAuthHandler(factory *manager.Factory, jwtService auth.JWTService, lifetime time.Duration) *AuthHandler {
	if factory == nil {
		panic("factory cannot be nil") // ALLOW-PANIC
	}
	if jwtService == nil {
		panic("jwtService cannot be nil") // ALLOW-PANIC
	}
	return &AuthHandler{
		factory:    factory,
		jwtService: jwtService,
		lifetime:   lifetime,
		now:        time.Now,
	}
}

// Token handles POST /auth/token.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req TokenRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, msgInvalidRequest, err)
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Validation error", err)
		return
	}

	found, err := h.factory.New(&domain.User{}).GetOneByAttribute(r.Context(), "email", req.Email)
	if err != nil {
		if store.IsNotFoundError(err) {
			// Unknown emails look the same as wrong passwords.
			log.Debug("token requested for unknown user", slog.String("error", redact.Error(err)))
			shared.RespondWithError(w, r, http.StatusUnauthorized, msgInvalidCredentials)
			return
		}
		RespondWithModelError(w, r, err)
		return
	}

	user, ok := found.(*domain.User)
	if !ok || !user.CheckPassword(req.Password) {
		log.Debug("token requested with wrong password")
		shared.RespondWithError(w, r, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}
	if !user.Enabled {
		log.Info("token requested for disabled user", slog.Int64("user_id", user.ID))
		shared.RespondWithError(w, r, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}

	subject := strconv.FormatInt(user.ID, 10)
	issuedAt := h.now()
	token, err := h.jwtService.GenerateToken(r.Context(), subject)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to generate authentication token", err)
		return
	}

	log.Info("access token issued", slog.String("subject", subject))
	shared.RespondWithJSON(w, r, http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		Subject:     subject,
		ExpiresAt:   issuedAt.Add(h.lifetime).UTC(),
	})
}
