// Package server exposes the fan-out commands over a small JSON API and serves
// the control-strip page.
package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/srodi/fanview/pkg/commands"
	"github.com/srodi/fanview/pkg/dispatch"
	"github.com/srodi/fanview/pkg/proctree"
	"github.com/srodi/fanview/pkg/report"
	"github.com/srodi/fanview/pkg/types"
)

//go:embed static/control.html
var controlPage []byte

const requestIDHeader = "X-Request-ID"

const maxBodyBytes = 1 << 20

// Controller is the command surface the server drives. *commands.Commands implements it.
type Controller interface {
	SendToAll(ctx context.Context, text string) error
	ReloadAll(ctx context.Context) error
	Reload(ctx context.Context, label string) error
	NewSessionAll(ctx context.Context) error
	ClearCacheAll(ctx context.Context) error
	ZoomIn(ctx context.Context) (float64, error)
	ZoomOut(ctx context.Context) (float64, error)
	ZoomReset(ctx context.Context) (float64, error)
	SetControlStripHeight(ctx context.Context, height float64) (float64, error)
	Resize(ctx context.Context, size types.PhysicalSize, scale float64) error
	Memory(ctx context.Context) (proctree.Group, error)
	Status() commands.Status
}

var _ Controller = (*commands.Commands)(nil)

type server struct {
	ctrl     Controller
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	topK     int
}

// Option configures the handler.
type Option func(*server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *server) {
		s.logger = logger
	}
}

// WithGatherer serves g on /metrics. Without it /metrics is not mounted.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *server) {
		s.gatherer = g
	}
}

// WithTopK limits the member rows returned by /v1/memory. 0 returns every member.
func WithTopK(k int) Option {
	return func(s *server) {
		s.topK = k
	}
}

// NewHandler returns the HTTP handler for ctrl.
func NewHandler(ctrl Controller, opts ...Option) http.Handler {
	s := &server{ctrl: ctrl}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)

	r.Get("/", s.controlStrip)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/send", s.send)
		r.Post("/reload", s.reloadAll)
		r.Post("/targets/{label}/reload", s.reloadOne)
		r.Post("/new-session", s.newSession)
		r.Post("/clear-cache", s.clearCache)
		r.Post("/zoom/{direction}", s.zoom)
		r.Post("/control-strip", s.controlStripHeight)
		r.Post("/window", s.window)
		r.Get("/memory", s.memory)
		r.Get("/state", s.state)
	})
	return r
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func (s *server) controlStrip(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(controlPage)
}

type sendRequest struct {
	Text string `json:"text"`
}

func (s *server) send(w http.ResponseWriter, r *http.Request) {
	var body sendRequest
	if !s.decode(w, r, &body) {
		return
	}
	s.finish(w, r, "send", s.ctrl.SendToAll(r.Context(), body.Text))
}

func (s *server) reloadAll(w http.ResponseWriter, r *http.Request) {
	s.finish(w, r, "reload", s.ctrl.ReloadAll(r.Context()))
}

func (s *server) reloadOne(w http.ResponseWriter, r *http.Request) {
	s.finish(w, r, "reload", s.ctrl.Reload(r.Context(), chi.URLParam(r, "label")))
}

func (s *server) newSession(w http.ResponseWriter, r *http.Request) {
	s.finish(w, r, "new-session", s.ctrl.NewSessionAll(r.Context()))
}

func (s *server) clearCache(w http.ResponseWriter, r *http.Request) {
	s.finish(w, r, "clear-cache", s.ctrl.ClearCacheAll(r.Context()))
}

type zoomResponse struct {
	Factor float64 `json:"factor"`
}

func (s *server) zoom(w http.ResponseWriter, r *http.Request) {
	var step func(context.Context) (float64, error)
	switch chi.URLParam(r, "direction") {
	case "in":
		step = s.ctrl.ZoomIn
	case "out":
		step = s.ctrl.ZoomOut
	case "reset":
		step = s.ctrl.ZoomReset
	default:
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("unknown zoom direction %q", chi.URLParam(r, "direction")))
		return
	}
	factor, err := step(r.Context())
	if err != nil {
		s.fail(w, r, "zoom", err)
		return
	}
	writeJSON(w, http.StatusOK, zoomResponse{Factor: factor})
}

type stripRequest struct {
	Height *float64 `json:"height"`
}

type stripResponse struct {
	Height float64 `json:"height"`
}

func (s *server) controlStripHeight(w http.ResponseWriter, r *http.Request) {
	var body stripRequest
	if !s.decode(w, r, &body) {
		return
	}
	if body.Height == nil {
		s.writeError(w, r, http.StatusBadRequest, errors.New("height is required"))
		return
	}
	stored, err := s.ctrl.SetControlStripHeight(r.Context(), *body.Height)
	if err != nil {
		s.fail(w, r, "control-strip", err)
		return
	}
	writeJSON(w, http.StatusOK, stripResponse{Height: stored})
}

type windowRequest struct {
	Width  uint32  `json:"width"`
	Height uint32  `json:"height"`
	Scale  float64 `json:"scale"`
}

func (s *server) window(w http.ResponseWriter, r *http.Request) {
	var body windowRequest
	if !s.decode(w, r, &body) {
		return
	}
	if body.Width == 0 || body.Height == 0 {
		s.writeError(w, r, http.StatusBadRequest, errors.New("width and height must be positive"))
		return
	}
	if body.Scale == 0 {
		body.Scale = 1
	}
	if body.Scale < 0 || math.IsInf(body.Scale, 0) {
		s.writeError(w, r, http.StatusBadRequest, errors.New("scale must be positive"))
		return
	}
	err := s.ctrl.Resize(r.Context(), types.PhysicalSize{Width: body.Width, Height: body.Height}, body.Scale)
	if err != nil {
		s.fail(w, r, "window", err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

type memoryResponse struct {
	Megabytes  float64              `json:"megabytes"`
	TotalBytes uint64               `json:"total_bytes"`
	HostPID    int                  `json:"host_pid"`
	Processes  int                  `json:"processes"`
	Members    []report.MemberRow   `json:"members"`
	Reasons    []report.ReasonTotal `json:"reasons"`
}

func (s *server) memory(w http.ResponseWriter, r *http.Request) {
	g, err := s.ctrl.Memory(r.Context())
	if err != nil {
		s.fail(w, r, "memory", err)
		return
	}
	rows, _ := report.BuildMemberRows(g)
	writeJSON(w, http.StatusOK, memoryResponse{
		Megabytes:  g.MB(),
		TotalBytes: g.TotalBytes,
		HostPID:    g.Host.PID,
		Processes:  len(g.Members),
		Members:    report.TopRows(rows, s.topK),
		Reasons:    report.ReasonTotals(rows),
	})
}

func (s *server) state(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.logger.Warn("invalid request body", "path", r.URL.Path, "err", err)
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

type okResponse struct {
	Status string `json:"status"`
}

func (s *server) finish(w http.ResponseWriter, r *http.Request, op string, err error) {
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{Status: "ok"})
}

func (s *server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	s.logger.Error("command failed", "op", op, "status", status, "request", w.Header().Get(requestIDHeader), "err", err)
	s.writeError(w, r, status, err)
}

func statusFor(err error) int {
	var targetErr *dispatch.TargetError
	switch {
	case errors.As(err, &targetErr):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error(), RequestID: w.Header().Get(requestIDHeader)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}
