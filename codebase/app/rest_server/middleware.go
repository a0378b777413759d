package restserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo"
	"go.uber.org/zap/zapcore"

	"github.com/golangid/obsbot/logger"
	"github.com/golangid/obsbot/tracer"
)

// tracerMiddleware trace every inbound request outside MiddlewareExcludeURLPath
func (s *restServer) tracerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		if _, ok := MiddlewareExcludeURLPath[req.URL.Path]; ok {
			return next(c)
		}

		trace, ctx := tracer.StartTraceWithContext(req.Context(), fmt.Sprintf("%s %s", req.Method, req.URL.Path))
		defer trace.Finish()
		c.SetRequest(req.WithContext(ctx))

		err := next(c)
		statusCode := c.Response().Status
		trace.SetTag("http.status_code", statusCode)
		if statusCode >= http.StatusInternalServerError {
			trace.SetError(fmt.Errorf("resp.code:%d", statusCode))
		}
		return err
	}
}

// logMiddleware log requests in debug mode
func (s *restServer) logMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.opt.debugMode {
			return next(c)
		}
		start := time.Now()
		err := next(c)
		req := c.Request()
		logger.Log(zapcore.DebugLevel,
			fmt.Sprintf("%s %s %d %s", req.Method, req.URL.Path, c.Response().Status, time.Since(start)),
			"rest_server", req.RemoteAddr)
		return err
	}
}
