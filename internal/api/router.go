package api

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/soaringjerry/Kringle/internal/middleware"
	"github.com/soaringjerry/Kringle/internal/services"
)

// Router wires the service layer onto the HTTP surface.
type Router struct {
	missions *services.MissionService
	register *services.RegisterService
	seeds    *services.SeedService
	matches  *services.MatchService
	events   *services.EventService
	mailer   *services.MailService
	auth     *services.AdminAuth
	baseURL  string
	logger   *zap.Logger
}

// Deps carries everything the router needs; all fields are required
// except Mailer (mail stays unconfigured in development).
type Deps struct {
	Missions *services.MissionService
	Register *services.RegisterService
	Seeds    *services.SeedService
	Matches  *services.MatchService
	Events   *services.EventService
	Mailer   *services.MailService
	Auth     *services.AdminAuth
	BaseURL  string
	Logger   *zap.Logger
}

func NewRouter(d Deps) *Router {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		missions: d.Missions,
		register: d.Register,
		seeds:    d.Seeds,
		matches:  d.Matches,
		events:   d.Events,
		mailer:   d.Mailer,
		auth:     d.Auth,
		baseURL:  d.BaseURL,
		logger:   logger,
	}
}

// Handler builds the full route table. Every mutating admin operation
// sits behind the credential gate.
func (rt *Router) Handler() http.Handler {
	r := httprouter.New()

	r.POST("/api/auth/login", rt.handleLogin)
	r.POST("/api/register", rt.handleRegister)
	r.POST("/api/mission", rt.handleMission)

	r.POST("/api/admin/verify", rt.handleAdminVerify)
	r.POST("/api/admin/seed", rt.admin(rt.handleSeed))
	r.POST("/api/admin/match", rt.admin(rt.handleMatch))
	r.GET("/api/admin/reveal", rt.admin(rt.handleRevealGet))
	r.POST("/api/admin/reveal", rt.admin(rt.handleRevealPost))
	r.POST("/api/admin/email", rt.admin(rt.handleEmail))
	r.GET("/api/admin/tokens/:token/qr", rt.admin(rt.handleTokenQR))

	r.GET("/health", rt.handleHealth)
	return r
}

func (rt *Router) admin(next httprouter.Handle) httprouter.Handle {
	return middleware.RequireAdmin(rt.auth, next)
}

func (rt *Router) handleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "name": "Kringle API"})
}
