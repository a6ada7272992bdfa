package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type DB interface {
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
}

type Handler struct {
	DB     DB
	Secret string
	TTL    time.Duration
	Logger *zap.Logger
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type PrincipalStatus struct {
	Suspended   bool `json:"suspended"`
	ForceLogout bool `json:"forceLogout,omitempty"`
}

// Login godoc
// @Summary      Authenticate and issue a token
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        credentials body LoginRequest true "credentials"
// @Success      200 {object} LoginResponse
// @Failure      401 {string} string "unauthorized"
// @Router       /api/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	var (
		userID, ownerID, role, passwordHash string
		suspended                           bool
	)
	err := h.DB.QueryRow(r.Context(), `
		SELECT id, owner_id, role, password_hash, suspended
		FROM users
		WHERE username = $1
	`, req.Username).Scan(&userID, &ownerID, &role, &passwordHash, &suspended)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)) != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	// Suspended accounts get the explicit forced-logout contract so any
	// client still holding state tears itself down.
	if suspended {
		h.Logger.Warn("login refused: account suspended", zap.String("user", req.Username))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(PrincipalStatus{Suspended: true, ForceLogout: true})
		return
	}

	token, err := GenerateToken(Claims{
		UserID:    userID,
		Username:  req.Username,
		OwnerID:   ownerID,
		Role:      role,
		ExpiresAt: time.Now().Add(h.TTL),
	}, h.Secret)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(LoginResponse{Token: token})
}

// Principal godoc
// @Summary      Current principal status
// @Description  Reports whether the authenticated account is suspended. Consumed by the session guard.
// @Tags         Auth
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} PrincipalStatus
// @Failure      401 {object} PrincipalStatus
// @Router       /api/auth/principal [get]
func (h *Handler) Principal(w http.ResponseWriter, r *http.Request) {
	p := FromContext(r.Context())

	var suspended bool
	err := h.DB.QueryRow(r.Context(),
		`SELECT suspended FROM users WHERE id = $1`, p.UserID,
	).Scan(&suspended)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if suspended {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(PrincipalStatus{Suspended: true, ForceLogout: true})
		return
	}
	json.NewEncoder(w).Encode(PrincipalStatus{})
}
