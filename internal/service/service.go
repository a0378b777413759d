// Package service wires the configured backends to the chat connection:
// one broker connection, three subscription domains and two listeners per backend.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/golangid/obsbot/backend"
	"github.com/golangid/obsbot/broker"
	"github.com/golangid/obsbot/candihelper"
	"github.com/golangid/obsbot/chat"
	matrixbot "github.com/golangid/obsbot/codebase/app/matrix_bot"
	rabbitmqworker "github.com/golangid/obsbot/codebase/app/rabbitmq_worker"
	restserver "github.com/golangid/obsbot/codebase/app/rest_server"
	"github.com/golangid/obsbot/codebase/factory"
	"github.com/golangid/obsbot/config/env"
	"github.com/golangid/obsbot/internal/domains/build"
	"github.com/golangid/obsbot/internal/domains/openqa"
	"github.com/golangid/obsbot/internal/domains/request"
	"github.com/golangid/obsbot/logger"
	"github.com/golangid/obsbot/subscription"
)

// Name of the service
const Name = "obsbot"

// ChatClient chat connection used for syncing, replies and notifications, implemented by *matrix.Client
type ChatClient interface {
	matrixbot.Client
	chat.Sender
	chat.RoomLeaver
}

// Backend every component serving one build service instance
type Backend struct {
	Details  backend.Details
	Builds   *subscription.Subscriber[build.Key, build.Event]
	Requests *subscription.Subscriber[request.Key, request.Event]
	Tests    *subscription.Subscriber[openqa.Key, openqa.Event]

	// Listener consume build and request events from startup
	Listener *rabbitmqworker.Listener
	// TestsListener consume openQA events, on demand unless configured otherwise
	TestsListener *rabbitmqworker.Listener
}

// Service model
type Service struct {
	cfg      *env.Env
	client   ChatClient
	brokers  *broker.Broker
	router   chat.Router
	help     *chat.HelpHandler
	bot      *matrixbot.Bot
	backends []*Backend
}

// New build every backend in cfg. A backend without broker connection or whose
// eager binding fails is reported in the returned error; the service is still
// usable as long as one backend is set up.
func New(ctx context.Context, cfg *env.Env, client ChatClient, brokers *broker.Broker, shutdown func()) (*Service, error) {
	s := &Service{cfg: cfg, client: client, brokers: brokers}

	leave := chat.NewLeaveHandler(cfg.Prefix, client, client, shutdown)
	s.help = chat.NewHelpHandler(cfg.Prefix, client, leave)
	s.router.Add(s.help, leave)

	mErr := candihelper.NewMultiError()
	for _, domain := range cfg.Backends {
		b, err := s.setupBackend(ctx, domain)
		mErr.Append(domain, err)
		if b == nil {
			continue
		}
		s.backends = append(s.backends, b)
	}
	if len(s.backends) == 0 {
		if mErr.HasError() {
			return nil, fmt.Errorf("no backend available: %w", mErr)
		}
		return nil, errors.New("no backend configured")
	}

	s.seedDefaults(ctx)

	s.bot = matrixbot.NewBot(client, chat.HandlerFunc(s.handleMessage),
		matrixbot.SetSyncTimeout(cfg.SyncTimeout),
		matrixbot.SetMaxGoroutines(cfg.MaxGoroutines),
	)

	if mErr.HasError() {
		return s, mErr
	}
	return s, nil
}

func (s *Service) setupBackend(ctx context.Context, domain string) (*Backend, error) {
	details, ok := backend.Lookup(domain)
	if !ok {
		return nil, fmt.Errorf("unsupported backend %q", domain)
	}
	bk, ok := s.brokers.GetBroker(domain)
	if !ok {
		return nil, fmt.Errorf("no broker connection for %s", domain)
	}

	prefix := s.cfg.Prefix
	b := &Backend{
		Details:  details,
		Builds:   subscription.NewSubscriber[build.Key, build.Event](details, build.Domain{}, prefix, s.client),
		Requests: subscription.NewSubscriber[request.Key, request.Event](details, request.Domain{}, prefix, s.client),
		Tests:    subscription.NewSubscriber[openqa.Key, openqa.Event](details.WithBuildPrefix(openqa.BuildPrefix), openqa.Domain{}, prefix, s.client),
	}

	listenerOpts := []rabbitmqworker.OptionFunc{
		rabbitmqworker.SetMaxGoroutines(s.cfg.MaxGoroutines),
		rabbitmqworker.SetDebugMode(s.cfg.DebugMode),
		rabbitmqworker.SetConsumerGroup(Name),
	}
	b.Listener = rabbitmqworker.NewListener(domain, details, bk,
		[]rabbitmqworker.Handler{b.Builds, b.Requests}, listenerOpts...)
	b.TestsListener = rabbitmqworker.NewListener(domain+"/tests", details, bk,
		[]rabbitmqworker.Handler{b.Tests}, append(listenerOpts, rabbitmqworker.SetLazy(s.cfg.OpenQALazy))...)

	b.Builds.SetBinding(b.Listener)
	b.Requests.SetBinding(b.Listener)
	b.Tests.SetBinding(b.TestsListener)

	s.router.Add(b.Builds, b.Requests, b.Tests)
	s.help.AddProvider(b.Builds)
	s.help.AddProvider(b.Requests)
	s.help.AddProvider(b.Tests)

	if err := b.Listener.Activate(ctx); err != nil {
		return b, err
	}
	if !b.TestsListener.Lazy() {
		if err := b.TestsListener.Activate(ctx); err != nil {
			return b, err
		}
	}
	return b, nil
}

func (s *Service) seedDefaults(ctx context.Context) {
	for _, def := range s.cfg.DefaultSubscriptions {
		room := chat.RoomID(def.Room)
		var seeded int
		for _, b := range s.backends {
			seeded += b.Builds.SeedDefaults(ctx, room, def.URLs)
			seeded += b.Requests.SeedDefaults(ctx, room, def.URLs)
			seeded += b.Tests.SeedDefaults(ctx, room, def.URLs)
		}
		logger.LogIf("default subscriptions: %d for room %s", seeded, room)
	}
}

func (s *Service) handleMessage(ctx context.Context, msg chat.Message) chat.HandleResult {
	s.router.Dispatch(ctx, msg)
	return chat.StopHandling
}

// Backends set up, in configuration order
func (s *Service) Backends() []*Backend {
	return s.backends
}

// Bot chat sync loop
func (s *Service) Bot() *matrixbot.Bot {
	return s.bot
}

// HandleMessage pass msg through the command chain, as the sync loop does
func (s *Service) HandleMessage(ctx context.Context, msg chat.Message) {
	s.router.Dispatch(ctx, msg)
}

// Servers every app server of the service, the health server only when a port is configured
func (s *Service) Servers() []factory.AppServerFactory {
	servers := []factory.AppServerFactory{s.bot}
	for _, b := range s.backends {
		servers = append(servers, b.Listener, b.TestsListener)
	}
	if s.cfg.HTTPPort != 0 {
		opts := []restserver.OptionFunc{
			restserver.SetHTTPPort(s.cfg.HTTPPort),
			restserver.SetDebugMode(s.cfg.DebugMode),
		}
		servers = append(servers, restserver.NewServer(Name, append(opts, s.HealthChecks()...)...))
	}
	return servers
}

// HealthChecks report chat sync, broker connections, listener states and subscription counts
func (s *Service) HealthChecks() []restserver.OptionFunc {
	checks := []restserver.OptionFunc{
		restserver.AddHealthCheck("matrix", func() (any, error) {
			status := s.bot.Status()
			if status.LastErr != "" {
				return status, errors.New(status.LastErr)
			}
			return status, nil
		}),
	}

	for _, b := range s.backends {
		domain := b.Details.Domain
		checks = append(checks,
			restserver.AddHealthCheck("broker:"+domain, func() (any, error) {
				bk, _ := s.brokers.GetBroker(domain)
				return bk.URL(), s.brokers.Health()[domain]
			}),
			listenerCheck(b.Listener),
			listenerCheck(b.TestsListener),
			statsCheck(b.Builds.Scope(), b.Builds.Registry().Stats),
			statsCheck(b.Requests.Scope(), b.Requests.Registry().Stats),
			statsCheck(b.Tests.Scope(), b.Tests.Registry().Stats),
		)
	}
	return checks
}

func listenerCheck(l *rabbitmqworker.Listener) restserver.OptionFunc {
	return restserver.AddHealthCheck(l.Name(), func() (any, error) {
		state, err := l.State()
		switch state {
		case rabbitmqworker.StateFailed, rabbitmqworker.StateClosed:
			if err == nil {
				err = fmt.Errorf("listener %s", state)
			}
			return state, err
		}
		return state, nil
	})
}

// SubscriptionStats detail of the subscription health check
type SubscriptionStats struct {
	Keys        int `json:"keys"`
	Memberships int `json:"memberships"`
}

func statsCheck(scope string, stats func() (int, int, error)) restserver.OptionFunc {
	return restserver.AddHealthCheck("subscriptions:"+scope, func() (any, error) {
		keys, memberships, err := stats()
		return SubscriptionStats{Keys: keys, Memberships: memberships}, err
	})
}

// Closers release broker connections after every server stopped
func (s *Service) Closers() []func(ctx context.Context) error {
	return []func(ctx context.Context) error{s.brokers.Disconnect}
}
