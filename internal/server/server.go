// Package server serves a decoded MP configuration table over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/labstack/echo/v5"
	"golang.org/x/time/rate"

	"github.com/samcharles93/mptable/internal/logger"
	"github.com/samcharles93/mptable/internal/report"
	"github.com/samcharles93/mptable/pkg/mptable"
)

// LoadFunc decodes the table from its source.
type LoadFunc func(ctx context.Context) (*mptable.Config, error)

type Config struct {
	Load   LoadFunc
	Source string

	// ReloadRate bounds refresh=1 requests per second. Zero disables
	// reloading.
	ReloadRate  float64
	ReloadBurst int

	Logger logger.Logger
}

type Server struct {
	load    LoadFunc
	source  string
	limiter *rate.Limiter
	log     logger.Logger

	// reloadMu is held for a whole Reload. mu guards current only.
	reloadMu sync.Mutex

	mu      sync.Mutex
	current *report.Report
}

func New(cfg Config) *Server {
	var limiter *rate.Limiter
	if cfg.ReloadRate > 0 {
		burst := cfg.ReloadBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.ReloadRate), burst)
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	return &Server{
		load:    cfg.Load,
		source:  cfg.Source,
		limiter: limiter,
		log:     log.With("component", "server"),
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)

	v1 := e.Group("/v1", s.refreshMiddleware)
	v1.GET("/report", s.handleReport)
	v1.GET("/pointer", s.handlePointer)
	v1.GET("/header", s.handleHeader)
	v1.GET("/entries", s.handleEntries)
}

// Reload decodes the source again and replaces the served report. At most
// one reload runs at a time.
func (s *Server) Reload(ctx context.Context) error {
	if s.load == nil {
		return errors.New("no table source configured")
	}
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()
	cfg, err := s.load(ctx)
	if err != nil {
		return err
	}
	rep, err := report.Build(cfg, s.source)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.current = rep
	s.mu.Unlock()
	s.log.Info("table loaded", "report", rep.ID, "entries", cfg.Header.EntryCount)
	return nil
}

func (s *Server) snapshot() *report.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Server) refreshMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		q := c.QueryParam("refresh")
		if q == "1" || strings.EqualFold(q, "true") {
			if s.limiter == nil {
				return writeError(c, http.StatusForbidden, "reload_disabled", "reloading is disabled on this server")
			}
			if !s.limiter.Allow() {
				return writeError(c, http.StatusTooManyRequests, "rate_limit_error", "reload rate exceeded")
			}
			if err := s.Reload(c.Request().Context()); err != nil {
				s.log.Warn("reload failed", "error", err)
				return writeError(c, http.StatusBadGateway, "decode_error", err.Error())
			}
		}
		if s.snapshot() == nil {
			return writeError(c, http.StatusServiceUnavailable, "not_loaded", "table has not been loaded")
		}
		return next(c)
	}
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReport(c *echo.Context) error {
	cur := s.snapshot()
	return c.JSON(http.StatusOK, cur)
}

func (s *Server) handlePointer(c *echo.Context) error {
	cur := s.snapshot()
	if cur.Pointer == nil {
		return writeError(c, http.StatusNotFound, "not_found_error", "table was read without a floating pointer")
	}
	return c.JSON(http.StatusOK, cur.Pointer)
}

func (s *Server) handleHeader(c *echo.Context) error {
	cur := s.snapshot()
	return c.JSON(http.StatusOK, cur.Header)
}

func (s *Server) handleEntries(c *echo.Context) error {
	cur := s.snapshot()
	kind := c.QueryParam("type")
	if kind == "" {
		return c.JSON(http.StatusOK, map[string]any{
			"processors":       cur.Processors,
			"buses":            cur.Buses,
			"ioapics":          cur.IOAPICs,
			"io_interrupts":    cur.IOInterrupts,
			"local_interrupts": cur.LocalInterrupts,
		})
	}
	code, ok := report.ParseKind(kind)
	if !ok {
		return writeError(c, http.StatusBadRequest, "invalid_request_error", "unknown entry type "+kind)
	}
	entries, _ := cur.Entries(code)
	return c.JSON(http.StatusOK, map[string]any{
		"type":    code.String(),
		"entries": entries,
	})
}

type responseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func writeError(c *echo.Context, status int, errType, msg string) error {
	return c.JSON(status, map[string]any{
		"error": responseError{Message: msg, Type: errType},
	})
}
