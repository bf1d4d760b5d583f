// Package server hosts the execution service: a websocket endpoint that
// compiles and steps programs on behalf of remote editors, plus a small
// JSON API over the puzzle catalog and stored solutions.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cogvm/cog/internal/catalog"
	"github.com/cogvm/cog/internal/logging"
	"github.com/cogvm/cog/pkg/lang"
)

// maxSolutionBytes bounds a PUT solution body.
const maxSolutionBytes = 1 << 20

// Server serves the execution websocket and the catalog API.
type Server struct {
	source    catalog.Source
	solutions catalog.SolutionStore
	log       *slog.Logger
	metrics   *metrics
	upgrader  websocket.Upgrader
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// WithSolutionStore enables the solution endpoints and the solved
// markers in puzzle listings.
func WithSolutionStore(store catalog.SolutionStore) Option {
	return func(s *Server) {
		s.solutions = store
	}
}

// New builds a Server over the given puzzle source.
func New(source catalog.Source, opts ...Option) *Server {
	s := &Server{
		source:  source,
		log:     logging.NewNop(),
		metrics: newMetrics(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The editor is commonly served from a different origin than
			// the execution service.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP routing tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/puzzles", s.handleListBoards)
		r.Get("/puzzles/{hardware}", s.handleGetBoard)
		r.Route("/hardware/{hardware}/programs/{program}/solution", func(r chi.Router) {
			r.Get("/", s.handleGetSolution)
			r.Put("/", s.handlePutSolution)
		})
	})

	r.Get("/ws/hardware/{hardware}/programs/{program}", s.handleExecution)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// boardView is the API shape of one puzzle board.
type boardView struct {
	Slug     string            `json:"slug"`
	Name     string            `json:"name"`
	Spec     lang.HardwareSpec `json:"spec"`
	Notes    string            `json:"notes,omitempty"`
	Programs []programView     `json:"programs"`
}

// programView decorates a catalog program with whether a solution is on
// file for it.
type programView struct {
	catalog.Program
	HasSolution bool `json:"hasSolution"`
}

func (s *Server) handleListBoards(w http.ResponseWriter, r *http.Request) {
	boards, err := s.source.List(r.Context())
	if err != nil {
		s.log.Error("failed to list boards", "error", err)
		http.Error(w, "failed to list boards", http.StatusInternalServerError)
		return
	}

	saved := s.savedSolutions(r.Context())
	views := make([]boardView, 0, len(boards))
	for _, hw := range boards {
		views = append(views, makeBoardView(hw, saved))
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	hw, err := s.source.Hardware(r.Context(), chi.URLParam(r, "hardware"))
	if err != nil {
		s.respondCatalogErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, makeBoardView(hw, s.savedSolutions(r.Context())))
}

// savedSolutions returns the keys with a stored solution. Listing
// failures only cost the markers, never the whole response.
func (s *Server) savedSolutions(ctx context.Context) map[catalog.SolutionKey]bool {
	if s.solutions == nil {
		return nil
	}
	keys, err := s.solutions.List(ctx)
	if err != nil {
		s.log.Warn("failed to list solutions", "error", err)
		return nil
	}
	saved := make(map[catalog.SolutionKey]bool, len(keys))
	for _, k := range keys {
		saved[k] = true
	}
	return saved
}

func makeBoardView(hw catalog.Hardware, saved map[catalog.SolutionKey]bool) boardView {
	v := boardView{
		Slug:     hw.Slug,
		Name:     hw.Name,
		Spec:     hw.Spec,
		Notes:    hw.Notes,
		Programs: make([]programView, 0, len(hw.Programs)),
	}
	for _, p := range hw.Programs {
		v.Programs = append(v.Programs, programView{
			Program:     p,
			HasSolution: saved[catalog.SolutionKey{HardwareSlug: hw.Slug, ProgramSlug: p.Slug}],
		})
	}
	return v
}

func (s *Server) handleGetSolution(w http.ResponseWriter, r *http.Request) {
	if s.solutions == nil {
		http.Error(w, "solution storage is not configured", http.StatusServiceUnavailable)
		return
	}
	hwSlug := chi.URLParam(r, "hardware")
	progSlug := chi.URLParam(r, "program")
	if _, _, err := catalog.FindProgram(r.Context(), s.source, hwSlug, progSlug); err != nil {
		s.respondCatalogErr(w, err)
		return
	}

	sol, err := s.solutions.Get(r.Context(), hwSlug, progSlug)
	if errors.Is(err, catalog.ErrSolutionNotFound) {
		http.Error(w, "no stored solution", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("solution lookup failed", "hardware", hwSlug, "program", progSlug, "error", err)
		http.Error(w, "solution lookup failed", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, sol)
}

func (s *Server) handlePutSolution(w http.ResponseWriter, r *http.Request) {
	if s.solutions == nil {
		http.Error(w, "solution storage is not configured", http.StatusServiceUnavailable)
		return
	}
	hwSlug := chi.URLParam(r, "hardware")
	progSlug := chi.URLParam(r, "program")
	if _, _, err := catalog.FindProgram(r.Context(), s.source, hwSlug, progSlug); err != nil {
		s.respondCatalogErr(w, err)
		return
	}

	var body struct {
		SourceCode string `json:"sourceCode"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxSolutionBytes)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sol := catalog.Solution{
		HardwareSlug: hwSlug,
		ProgramSlug:  progSlug,
		SourceCode:   body.SourceCode,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := s.solutions.Put(r.Context(), sol); err != nil {
		s.log.Error("failed to store solution", "hardware", hwSlug, "program", progSlug, "error", err)
		http.Error(w, "failed to store solution", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExecution resolves the puzzle, then upgrades into a
// per-connection execution actor. Unknown puzzles 404 before the
// upgrade so clients see a plain HTTP error.
func (s *Server) handleExecution(w http.ResponseWriter, r *http.Request) {
	hwSlug := chi.URLParam(r, "hardware")
	progSlug := chi.URLParam(r, "program")
	hw, prog, err := catalog.FindProgram(r.Context(), s.source, hwSlug, progSlug)
	if err != nil {
		s.respondCatalogErr(w, err)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		s.log.Debug("websocket upgrade failed", "error", err)
		return
	}

	log := s.log.With("conn", uuid.NewString(), "hardware", hwSlug, "program", progSlug)
	log.Info("execution connection opened")
	s.metrics.connections.Inc()
	defer s.metrics.connections.Dec()
	defer log.Info("execution connection closed")

	c := &execConn{
		ws:      ws,
		hw:      hw.Spec,
		spec:    prog.ProgramSpec(),
		log:     log,
		metrics: s.metrics,
	}
	c.run()
}

func (s *Server) respondCatalogErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrHardwareNotFound), errors.Is(err, catalog.ErrProgramNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		s.log.Error("catalog lookup failed", "error", err)
		http.Error(w, "catalog lookup failed", http.StatusInternalServerError)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to encode response", "error", err)
	}
}
