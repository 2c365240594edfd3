package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/soaringjerry/Kringle/internal/services"
)

// AdminSecretHeader carries the shared admin credential.
const AdminSecretHeader = "X-Admin-Secret"

// RequireAdmin gates a handler behind the admin credential: either the
// shared secret header or a Bearer session token from /api/admin/verify.
// Unauthorized calls fail closed with a 401, never a silent no-op.
func RequireAdmin(auth *services.AdminAuth, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if secret := r.Header.Get(AdminSecretHeader); secret != "" {
			if err := auth.VerifyCredential(secret); err == nil {
				next(w, r, ps)
				return
			}
		}
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
			if err := auth.VerifySession(tok); err == nil {
				next(w, r, ps)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": "unauthorized",
			"code":  string(services.ErrorUnauthorized),
		})
	}
}
