package api

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/smazurov/supervisor/internal/api/models"
	"github.com/smazurov/supervisor/internal/events"
	"github.com/smazurov/supervisor/internal/logging"
	"github.com/smazurov/supervisor/internal/version"
	"github.com/smazurov/supervisor/pkg/supervisor"
)

const authRealm = `Basic realm="Supervisor API"`

// Supervisor is the part of *supervisor.Supervisor the API needs.
type Supervisor interface {
	Processes() []supervisor.Info
	Info(name string) (supervisor.Info, bool)
	StopProcess(name string) error
}

// Options configures the API server.
type Options struct {
	AuthUsername      string
	AuthPassword      string
	CORSOrigin        string
	Supervisor        Supervisor
	EventBus          *events.Bus
	PrometheusHandler http.Handler // served on /metrics when set
	ShutdownTimeout   time.Duration
}

// Server is the HTTP introspection and control API.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	sup        Supervisor
	eventBus   *events.Bus
	options    *Options
	logger     *slog.Logger
}

// NewServer creates the API server on a Go 1.22+ ServeMux.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()
	if opts.CORSOrigin != "" {
		corsConfig.AllowOrigin = opts.CORSOrigin
	}
	AddCORSHandler(mux, corsConfig)

	config := huma.DefaultConfig("Supervisor API", version.String())
	config.Info.Description = "Inspect and control supervised processes"
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	api := humago.New(mux, config)

	eventBus := opts.EventBus
	if eventBus == nil {
		eventBus = events.New()
	}

	server := &Server{
		api:      api,
		mux:      mux,
		sup:      opts.Supervisor,
		eventBus: eventBus,
		options:  opts,
		logger:   logging.GetLogger("api"),
	}

	api.UseMiddleware(NewCORSMiddleware(corsConfig))
	api.UseMiddleware(HTTPLoggingMiddleware)
	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		api.UseMiddleware(server.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	server.registerRoutes()
	return server
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// API returns the Huma API instance.
func (s *Server) API() huma.API {
	return s.api
}

// Run serves on addr until ctx is canceled, then shuts the server down.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.httpServer = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.logger.Info("Starting API server", "addr", ln.Addr().String())
	s.logger.Info("OpenAPI documentation available", "url", "http://"+ln.Addr().String()+"/docs")

	errCh := make(chan error, 1)
	go func() { errCh <- s.httpServer.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Stopping API server")
	timeout := s.options.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		// SSE streams keep connections open; force them closed.
		return s.httpServer.Close()
	}
	return nil
}

func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		op := ctx.Operation()
		if op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		encoded := ""
		if header := ctx.Header("Authorization"); header != "" {
			const prefix = "Basic "
			if !strings.HasPrefix(header, prefix) {
				s.unauthorized(ctx, "Invalid authentication type")
				return
			}
			encoded = header[len(prefix):]
		} else {
			// EventSource cannot set headers
			encoded = ctx.Query("auth")
		}
		if encoded == "" {
			s.unauthorized(ctx, "Authentication required")
			return
		}

		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			s.unauthorized(ctx, "Invalid credentials format", err)
			return
		}
		user, pass, ok := strings.Cut(string(decoded), ":")
		if !ok {
			s.unauthorized(ctx, "Invalid credentials format")
			return
		}
		if user != username || pass != password {
			s.unauthorized(ctx, "Invalid credentials")
			return
		}

		next(ctx)
	}
}

func (s *Server) unauthorized(ctx huma.Context, msg string, errs ...error) {
	ctx.SetHeader("WWW-Authenticate", authRealm)
	huma.WriteErr(s.api, ctx, http.StatusUnauthorized, msg, errs...)
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"health"},
		Security:    []map[string][]string{},
	}, func(_ context.Context, _ *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{
				Status:  "ok",
				Message: "API is healthy",
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(_ context.Context, _ *struct{}) (*models.VersionResponse, error) {
		info := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   info.Version,
				GitCommit: info.GitCommit,
				BuildDate: info.BuildDate,
				BuildID:   info.BuildID,
				GoVersion: info.GoVersion,
				Compiler:  info.Compiler,
				Platform:  info.Platform,
			},
		}, nil
	})

	s.registerProcessRoutes()
	s.registerSSERoutes()
	s.registerLogRoutes()
}

func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}
