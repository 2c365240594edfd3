package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/soaringjerry/Kringle/internal/middleware"
	"github.com/soaringjerry/Kringle/internal/models"
	"github.com/soaringjerry/Kringle/internal/services"
)

// revealDateFormats are the accepted admin inputs for the reveal moment,
// most specific first. Formats without a zone are taken as local time.
var revealDateFormats = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"}

func parseRevealDate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range revealDateFormats {
		if layout == time.RFC3339 {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			} else {
				lastErr = err
			}
			continue
		}
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, lastErr
}

// POST /api/admin/verify: exchange the shared secret for a short-lived
// session token.
func (rt *Router) handleAdminVerify(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := rt.auth.VerifyCredential(r.Header.Get(middleware.AdminSecretHeader)); err != nil {
		writeError(w, rt.logger, err)
		return
	}
	session, err := rt.auth.IssueSession()
	if err != nil {
		writeError(w, rt.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "sessionToken": session})
}

// POST /api/admin/seed: create participants from a roster array. A
// non-array payload is rejected before anything touches the store.
func (rt *Router) handleSeed(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var entries []models.SeedEntry
	if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
		writeError(w, rt.logger, services.NewInvalidError("seed data must be a JSON array"))
		return
	}
	tokens, err := rt.seeds.Seed(entries)
	if err != nil {
		writeError(w, rt.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":         "seeding complete",
		"count":           len(tokens),
		"tokens_to_print": tokens,
	})
}

// POST /api/admin/match: run the matcher. Destructive when assignments
// already exist, hence the confirm flag.
func (rt *Router) handleMatch(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		RevealDate string `json:"revealDate"`
		Confirm    bool   `json:"confirm"`
	}
	// An empty body means "first match with the default reveal date";
	// anything else must decode cleanly.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, rt.logger, services.NewInvalidError("invalid request body"))
		return
	}
	var reveal time.Time
	if req.RevealDate != "" {
		t, err := parseRevealDate(req.RevealDate)
		if err != nil {
			writeError(w, rt.logger, services.NewInvalidError("invalid revealDate: "+err.Error()))
			return
		}
		reveal = t
	}
	res, err := rt.matches.Run(reveal, req.Confirm)
	if err != nil {
		writeError(w, rt.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"matched":    res.Matched,
		"revealDate": res.RevealDate,
	})
}

// GET /api/admin/reveal: current event config.
func (rt *Router) handleRevealGet(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	cfg, err := rt.events.Config()
	if err != nil {
		writeError(w, rt.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"revealDate":        cfg.RevealDate,
		"status":            cfg.Status,
		"totalParticipants": cfg.TotalParticipants,
	})
}

// POST /api/admin/reveal: update the reveal date.
func (rt *Router) handleRevealPost(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		RevealDate string `json:"revealDate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RevealDate == "" {
		writeError(w, rt.logger, services.NewInvalidError("revealDate required"))
		return
	}
	t, err := parseRevealDate(req.RevealDate)
	if err != nil {
		writeError(w, rt.logger, services.NewInvalidError("invalid revealDate: "+err.Error()))
		return
	}
	cfg, err := rt.events.SetRevealDate(t)
	if err != nil {
		writeError(w, rt.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "revealDate": cfg.RevealDate})
}

// POST /api/admin/email: mail every participant their token.
func (rt *Router) handleEmail(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if rt.mailer == nil {
		writeError(w, rt.logger, services.NewInvalidError("mail is not configured"))
		return
	}
	report, err := rt.mailer.SendTokens(r.Context())
	if err != nil {
		writeError(w, rt.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "email blast complete", "stats": report})
}

// GET /api/admin/tokens/:token/qr: QR login card for printed handouts.
func (rt *Router) handleTokenQR(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	token := ps.ByName("token")
	if _, err := rt.missions.Login(token); err != nil {
		writeError(w, rt.logger, err)
		return
	}
	png, err := qrcode.Encode(rt.baseURL+"/?token="+token, qrcode.Medium, 256)
	if err != nil {
		writeError(w, rt.logger, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}
