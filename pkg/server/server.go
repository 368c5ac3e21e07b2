package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bastiangx/suggestserve/internal/logger"
	"github.com/bastiangx/suggestserve/pkg/config"
	"github.com/bastiangx/suggestserve/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const defaultShutdownTimeout = 10 * time.Second

// ConfigSource hands out the active config. *config.Store implements it.
type ConfigSource interface {
	Config() *config.Config
}

// Server is the HTTP front of a suggester.
// Addr, namespace and rate limits are read once at construction;
// everything else is read from the ConfigSource per request.
type Server struct {
	echo      *echo.Echo
	suggester suggest.ISuggester
	settings  ConfigSource
	limiter   *RateLimiter
	base      string
	log       *log.Logger
}

// NewServer registers all routes for suggester.
func NewServer(suggester suggest.ISuggester, settings ConfigSource) *Server {
	cfg := settings.Config()
	s := &Server{
		suggester: suggester,
		settings:  settings,
		base:      "/" + strings.Trim(cfg.Server.Namespace, "/"),
		log:       logger.New("server"),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError
	e.IPExtractor = ipExtractor(cfg.Server.TrustedProxies)

	e.Use(middleware.Recover())
	e.Use(s.requestLogger())

	var searchMiddleware []echo.MiddlewareFunc
	if cfg.Server.RateLimit > 0 {
		burst := cfg.Server.RateBurst
		if burst <= 0 {
			burst = cfg.Server.RateLimit
		}
		s.limiter = NewRateLimiter(rate.Limit(cfg.Server.RateLimit), burst)
		searchMiddleware = append(searchMiddleware, s.limiter.Middleware())
	}

	e.GET("/healthz", s.handleHealth)
	g := e.Group(s.base)
	g.GET("/search", s.handleSearch, searchMiddleware...)
	g.GET("/settings", s.handleSettings)
	g.GET("/style.css", s.handleStyle)

	s.echo = e
	return s
}

// Handler returns the router, mostly for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	cfg := s.settings.Config().Server
	s.echo.Server.ReadHeaderTimeout = cfg.ReadHeaderTimeout.Duration

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("Listening", "addr", cfg.Addr, "base", s.base)
		if err := s.echo.Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", cfg.Addr, err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		timeout := cfg.ShutdownTimeout.Duration
		if timeout <= 0 {
			timeout = defaultShutdownTimeout
		}
		s.log.Debug("Shutting down", "timeout", timeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	})

	if s.limiter != nil {
		g.Go(func() error {
			s.limiter.CleanupLoop(gCtx)
			return nil
		})
	}

	return g.Wait()
}

// handleSearch answers GET <base>/search?term=
func (s *Server) handleSearch(c echo.Context) error {
	term := c.QueryParam("term")
	ctx := c.Request().Context()

	if timeout := s.settings.Config().Server.CatalogTimeout.Duration; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	list, err := s.suggester.Suggestions(ctx, term)
	if err != nil {
		s.log.Error("Search failed", "term", term, "err", err)
		code := CodeInternal
		if errors.Is(err, suggest.ErrCatalogUnavailable) {
			code = CodeCatalogUnavailable
		}
		return s.respond(c, http.StatusInternalServerError, ErrorResponse{
			Code:    code,
			Message: "product search is unavailable",
			Status:  http.StatusInternalServerError,
		})
	}

	s.log.Debug("Search", "term", term, "count", len(list), "took", time.Since(start))
	return s.respond(c, http.StatusOK, toResponse(list))
}

func (s *Server) handleSettings(c echo.Context) error {
	cfg := s.settings.Config()
	return c.JSON(http.StatusOK, WidgetSettings{
		URL:                s.base + "/search",
		MinLength:          cfg.SearchOptions().WithDefaults().MinToSearch,
		SearchField:        cfg.Search.SearchSelector,
		ForceProductSearch: cfg.Search.ForceProductSearch,
		ShowAllMessage:     cfg.Search.ShowAllMessage,
		AutocompleteFields: append([]string{}, cfg.Search.AutocompleteFields...),
	})
}

func (s *Server) handleStyle(c echo.Context) error {
	css := s.settings.Config().Search.CustomCSS
	return c.Blob(http.StatusOK, "text/css; charset=utf-8", []byte(css))
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleError writes echo errors (404, 405, 429, panics) as ErrorResponse.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := http.StatusText(status)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		message = fmt.Sprint(he.Message)
	}

	code := CodeInternal
	switch status {
	case http.StatusNotFound:
		code = CodeNotFound
	case http.StatusTooManyRequests:
		code = CodeRateLimited
	case http.StatusInternalServerError:
	default:
		code = strings.ReplaceAll(strings.ToLower(http.StatusText(status)), " ", "_")
	}

	if err := s.respond(c, status, ErrorResponse{Code: code, Message: message, Status: status}); err != nil {
		s.log.Error("Failed to write error response", "err", err)
	}
}

// respond encodes v as msgpack when the client asks for it, JSON otherwise.
func (s *Server) respond(c echo.Context, status int, v any) error {
	if acceptsMsgpack(c.Request()) {
		data, err := msgpack.Marshal(v)
		if err != nil {
			return err
		}
		return c.Blob(status, MIMEMsgpack, data)
	}
	return c.JSON(status, v)
}

func acceptsMsgpack(r *http.Request) bool {
	accept := r.Header.Get(echo.HeaderAccept)
	return strings.Contains(accept, MIMEMsgpack) || strings.Contains(accept, "application/x-msgpack")
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/healthz"
		},
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		LogMethod:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			// handleSearch logs its own catalog failures and answers without an error.
			if v.Error != nil && v.Status >= http.StatusInternalServerError {
				s.log.Error("Request failed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency", v.Latency,
					"err", v.Error)
				return nil
			}
			s.log.Debug("Request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency)
			return nil
		},
	})
}

// ipExtractor uses the peer address unless it is one of the trusted proxies,
// in which case the first untrusted hop of X-Forwarded-For wins.
func ipExtractor(trusted []string) echo.IPExtractor {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, cidr := range trusted {
		if _, ipnet, err := net.ParseCIDR(cidr); err == nil {
			opts = append(opts, echo.TrustIPRange(ipnet))
		}
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}
