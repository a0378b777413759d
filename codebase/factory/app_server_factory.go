package factory

import "context"

// AppServerFactory long running part of the bot: chat sync loop, broker listener or HTTP server
type AppServerFactory interface {
	Serve()
	Shutdown(ctx context.Context)
	Name() string
}
