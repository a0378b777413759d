package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/golangid/obsbot/codebase/factory"
)

// App runs every app server until a signal or Stop
type App struct {
	name     string
	servers  []factory.AppServerFactory
	closers  []func(ctx context.Context) error
	stop     chan struct{}
	stopOnce sync.Once
	timeout  time.Duration
}

// New service app
func New(name string, servers ...factory.AppServerFactory) *App {
	log.Printf("Starting \x1b[32;1m%s\x1b[0m service\n\n", name)
	return &App{
		name:    name,
		servers: servers,
		stop:    make(chan struct{}),
		timeout: time.Minute,
	}
}

// AddServer register app server, only before Run
func (a *App) AddServer(servers ...factory.AppServerFactory) {
	a.servers = append(a.servers, servers...)
}

// AddCloser run after every server is shut down, e.g. broker connections
func (a *App) AddCloser(closers ...func(ctx context.Context) error) {
	a.closers = append(a.closers, closers...)
}

// Stop request graceful shutdown, safe to call many times and from handlers
func (a *App) Stop() {
	a.stopOnce.Do(func() { close(a.stop) })
}

// Run start app, block until shutdown is done
func (a *App) Run() error {
	if len(a.servers) == 0 {
		return fmt.Errorf("no server/worker running")
	}

	errServe := make(chan error, len(a.servers))
	for _, server := range a.servers {
		go func(srv factory.AppServerFactory) {
			defer func() {
				if r := recover(); r != nil {
					errServe <- fmt.Errorf("%s: %v", srv.Name(), r)
				}
			}()
			srv.Serve()
		}(server)
	}

	quitSignal := make(chan os.Signal, 1)
	signal.Notify(quitSignal, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quitSignal)

	var err error
	select {
	case err = <-errServe:
	case <-quitSignal:
	case <-a.stop:
	}
	a.shutdown(quitSignal)
	return err
}

// graceful shutdown all server, give up when the shutdown exceed the timeout or on a second signal
func (a *App) shutdown(forceShutdown chan os.Signal) {
	fmt.Println("\x1b[34;1mGracefully shutdown... (press Ctrl+C again to force)\x1b[0m")

	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, server := range a.servers {
			server.Shutdown(ctx)
		}
		for _, closer := range a.closers {
			if err := closer(ctx); err != nil {
				log.Printf("\x1b[31;1mShutdown: %v\x1b[0m\n", err)
			}
		}
	}()

	select {
	case <-done:
		log.Println("\x1b[32;1mSuccess shutdown all server & worker\x1b[0m")
	case <-forceShutdown:
		log.Println("\x1b[31;1mForce shutdown server & worker\x1b[0m")
		cancel()
	case <-ctx.Done():
		log.Println("\x1b[31;1mContext timeout\x1b[0m")
	}
}
