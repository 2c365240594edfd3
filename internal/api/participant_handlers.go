package api

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/soaringjerry/Kringle/internal/services"
)

type tokenRequest struct {
	Token string `json:"token"`
}

// POST /api/auth/login: thin existence/registration check for routing.
func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, rt.logger, services.NewInvalidError("invalid request body"))
		return
	}
	res, err := rt.missions.Login(req.Token)
	if err != nil {
		writeError(w, rt.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"name":         res.Name,
		"isRegistered": res.IsRegistered,
	})
}

// POST /api/register: record quiz answers and synthesize the profile.
func (rt *Router) handleRegister(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		Token   string            `json:"token"`
		Answers map[string]string `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, rt.logger, services.NewInvalidError("invalid request body"))
		return
	}
	profile, err := rt.register.Register(r.Context(), req.Token, req.Answers)
	if err != nil {
		writeError(w, rt.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"generatedProfile": profile,
	})
}

// POST /api/mission: what the token holder may see about their target.
func (rt *Router) handleMission(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, rt.logger, services.NewInvalidError("invalid request body"))
		return
	}
	view, err := rt.missions.Mission(req.Token)
	if err != nil {
		writeError(w, rt.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
