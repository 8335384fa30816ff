package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/ent0n29/matchwork/internal/bids"
	"github.com/ent0n29/matchwork/internal/config"
	"github.com/ent0n29/matchwork/internal/creators"
	"github.com/ent0n29/matchwork/internal/feed"
	"github.com/ent0n29/matchwork/internal/matching"
	"github.com/ent0n29/matchwork/internal/observability"
	"github.com/ent0n29/matchwork/internal/projects"
)

// Server exposes the marketplace over HTTP: projects, bids, the creator
// directory, ranked matches, dashboard counts, and the websocket feed.
type Server struct {
	cfg      config.Config
	projects *projects.Service
	creators *creators.Service
	bids     *bids.Service
	matcher  *matching.Matcher
	registry *feed.Registry
	metrics  *observability.Metrics
	log      *slog.Logger
	upgrader websocket.Upgrader
	router   chi.Router
}

func NewServer(
	cfg config.Config,
	projectSvc *projects.Service,
	creatorSvc *creators.Service,
	bidSvc *bids.Service,
	matcher *matching.Matcher,
	registry *feed.Registry,
	metrics *observability.Metrics,
	log *slog.Logger,
) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		projects: projectSvc,
		creators: creatorSvc,
		bids:     bidSvc,
		matcher:  matcher,
		registry: registry,
		metrics:  metrics,
		log:      log.With("component", "httpapi"),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.trackLatency)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleHealth)
	r.Handle("/metrics", observability.MetricsHandler())

	r.Route("/v1", func(r chi.Router) {
		// Websocket clients cannot set headers, so the socket route
		// authenticates from a query token inside its own handler.
		r.Get("/feed/ws", s.handleFeedSocket)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)

			r.Route("/projects", func(r chi.Router) {
				r.Post("/", s.handleCreateProject)
				r.Get("/", s.handleListProjects)
				r.Route("/{projectID}", func(r chi.Router) {
					r.Get("/", s.handleGetProject)
					r.Post("/status", s.handleUpdateProjectStatus)
					r.Get("/bids", s.handleListProjectBids)
					r.Post("/bids", s.handlePlaceBid)
					r.Get("/matches", s.handleProjectMatches)
				})
			})

			r.Route("/bids/{bidID}", func(r chi.Router) {
				r.Post("/accept", s.handleAcceptBid)
				r.Post("/decline", s.handleDeclineBid)
			})

			r.Route("/creators", func(r chi.Router) {
				r.Get("/", s.handleCreatorDirectory)
				r.Get("/{creatorID}", s.handleCreatorProfile)
				r.Put("/{creatorID}", s.handleUpsertCreator)
			})

			r.Get("/dashboard", s.handleDashboard)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r.Context())
	if !ok || !principal.canPostProjects() {
		respondError(w, http.StatusForbidden, "forbidden", "only business accounts can post projects")
		return
	}

	var req projects.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	p, err := s.projects.Create(r.Context(), principal.UserID, req)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	status := projects.Status(strings.TrimSpace(r.URL.Query().Get("status")))
	limit := queryInt(r, "limit")
	respondJSON(w, http.StatusOK, s.projects.List(r.Context(), status, limit))
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.projects.Get(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateProjectStatus(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r.Context())

	var req struct {
		Status projects.Status `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	p, err := s.projects.UpdateStatus(r.Context(), chi.URLParam(r, "projectID"), req.Status, principal.UserID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleListProjectBids(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.bids.ListByProject(r.Context(), chi.URLParam(r, "projectID")))
}

func (s *Server) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r.Context())
	if !ok || !principal.canBid() {
		respondError(w, http.StatusForbidden, "forbidden", "only creator accounts can bid")
		return
	}

	var req bids.PlaceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	req.ProjectID = chi.URLParam(r, "projectID")

	b, err := s.bids.Place(r.Context(), principal.UserID, req)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, b)
}

func (s *Server) handleAcceptBid(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r.Context())
	b, err := s.bids.Accept(r.Context(), principal.UserID, chi.URLParam(r, "bidID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeclineBid(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r.Context())
	b, err := s.bids.Decline(r.Context(), principal.UserID, chi.URLParam(r, "bidID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, b)
}

func (s *Server) handleProjectMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := s.matcher.ForProject(r.Context(), chi.URLParam(r, "projectID"), queryInt(r, "limit"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, matches)
}

func (s *Server) handleCreatorDirectory(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.creators.Directory(r.Context(), queryInt(r, "limit")))
}

func (s *Server) handleCreatorProfile(w http.ResponseWriter, r *http.Request) {
	// Display read: a broken store yields the placeholder profile, not 5xx.
	respondJSON(w, http.StatusOK, s.creators.Profile(r.Context(), chi.URLParam(r, "creatorID")))
}

func (s *Server) handleUpsertCreator(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r.Context())
	creatorID := chi.URLParam(r, "creatorID")
	if principal.Role != RoleAdmin && principal.UserID != creatorID {
		respondError(w, http.StatusForbidden, "forbidden", "cannot edit another creator's profile")
		return
	}

	var req creators.UpsertRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	c, err := s.creators.Upsert(r.Context(), creatorID, req)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"project_counts":   s.projects.CountByStatus(r.Context()),
		"active_feed_subs": s.registry.ActiveCount(),
	}
	if s.metrics != nil {
		body["latency"] = s.metrics.Latency.Snapshot()
	}
	respondJSON(w, http.StatusOK, body)
}

// trackLatency feeds the dashboard's rolling latency window. Routes are
// keyed by method plus chi pattern so every project detail hit lands in
// one bucket.
func (s *Server) trackLatency(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			return
		}
		s.metrics.Latency.Observe(r.Method+" "+strings.TrimSuffix(pattern, "/"), float64(time.Since(start).Microseconds())/1000)
		switch {
		case ww.Status() == http.StatusServiceUnavailable:
			s.metrics.Latency.ObserveIndicator("upstream_unavailable")
		case ww.Status() >= http.StatusInternalServerError:
			s.metrics.Latency.ObserveIndicator("server_error")
		}
	})
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if s.cfg.AllowAnyOrigin {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return strings.Contains(origin, r.Host)
}

func queryInt(r *http.Request, key string) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
