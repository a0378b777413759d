package restserver

import "net/http"

type (
	// CheckFunc report detail of a component, a non nil error marks it unhealthy
	CheckFunc func() (detail any, err error)

	check struct {
		name string
		fn   CheckFunc
	}

	option struct {
		httpPort  uint16
		debugMode bool
		checks    []check
	}

	// OptionFunc type
	OptionFunc func(*option)
)

var (
	// MiddlewareExcludeURLPath paths never traced nor logged
	MiddlewareExcludeURLPath = map[string]struct{}{"/": {}, "/favicon.ico": {}}
)

const (
	statusOK       = "ok"
	statusDegraded = "degraded"
)

func getDefaultOption() option {
	return option{
		httpPort:  8000,
		debugMode: true,
	}
}

// SetHTTPPort option func
func SetHTTPPort(port uint16) OptionFunc {
	return func(o *option) {
		o.httpPort = port
	}
}

// SetDebugMode option func
func SetDebugMode(debugMode bool) OptionFunc {
	return func(o *option) {
		o.debugMode = debugMode
	}
}

// AddHealthCheck option func, checks are reported in registration order
func AddHealthCheck(name string, fn CheckFunc) OptionFunc {
	return func(o *option) {
		o.checks = append(o.checks, check{name: name, fn: fn})
	}
}

func statusCode(status string) int {
	if status == statusOK {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}
