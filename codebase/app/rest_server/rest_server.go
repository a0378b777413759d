package restserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo"

	"github.com/golangid/obsbot/candihelper"
	"github.com/golangid/obsbot/codebase/factory"
	"github.com/golangid/obsbot/logger"
)

type restServer struct {
	opt        option
	serverName string
	httpEngine *echo.Echo
}

// CheckResult of one health check
type CheckResult struct {
	Status string `json:"status"`
	Detail any    `json:"detail,omitempty"`
	Error  string `json:"error,omitempty"`
}

// HealthResponse body of GET /health
type HealthResponse struct {
	Service string                 `json:"service"`
	Version string                 `json:"version"`
	Status  string                 `json:"status"`
	Checks  map[string]CheckResult `json:"checks"`
}

// NewServer create health HTTP server
func NewServer(serverName string, opts ...OptionFunc) factory.AppServerFactory {
	server := &restServer{
		opt:        getDefaultOption(),
		serverName: serverName,
		httpEngine: echo.New(),
	}
	for _, opt := range opts {
		opt(&server.opt)
	}

	server.httpEngine.HideBanner = true
	server.httpEngine.HTTPErrorHandler = CustomHTTPErrorHandler
	server.httpEngine.Use(server.logMiddleware, server.tracerMiddleware)

	server.httpEngine.GET("/", server.rootHandler)
	server.httpEngine.GET("/health", server.healthHandler)

	for _, route := range server.httpEngine.Routes() {
		logger.LogGreen(fmt.Sprintf("[REST-ROUTE] %-6s %-30s", route.Method, route.Path))
	}
	return server
}

func (s *restServer) Serve() {
	fmt.Printf("\x1b[34;1m⇨ HTTP server run at port [::]:%d\x1b[0m\n\n", s.opt.httpPort)
	err := s.httpEngine.Start(fmt.Sprintf(":%d", s.opt.httpPort))
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(fmt.Sprintf("REST Server: Unexpected Error: %v", err))
	}
}

func (s *restServer) Shutdown(ctx context.Context) {
	deferFunc := logger.LogWithDefer("Stopping HTTP server...")
	defer deferFunc()

	logger.LogIfError(s.httpEngine.Shutdown(ctx))
}

func (s *restServer) Name() string {
	return "rest"
}

func (s *restServer) rootHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Service %s up and running", s.serverName),
		"version": candihelper.Version,
	})
}

func (s *restServer) healthHandler(c echo.Context) error {
	resp := s.Health()
	return c.JSON(statusCode(resp.Status), resp)
}

// Health run every check
func (s *restServer) Health() HealthResponse {
	resp := HealthResponse{
		Service: s.serverName,
		Version: candihelper.Version,
		Status:  statusOK,
		Checks:  make(map[string]CheckResult, len(s.opt.checks)),
	}
	for _, chk := range s.opt.checks {
		detail, err := chk.fn()
		result := CheckResult{Status: statusOK, Detail: detail}
		if err != nil {
			result.Status, result.Error = statusDegraded, err.Error()
			resp.Status = statusDegraded
		}
		resp.Checks[chk.name] = result
	}
	return resp
}
