package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/golangid/obsbot/backend"
	"github.com/golangid/obsbot/broker"
	"github.com/golangid/obsbot/candihelper"
	"github.com/golangid/obsbot/candiutils"
	"github.com/golangid/obsbot/chat/matrix"
	"github.com/golangid/obsbot/codebase/app"
	"github.com/golangid/obsbot/config/env"
	"github.com/golangid/obsbot/internal/service"
	"github.com/golangid/obsbot/logger"
	"github.com/golangid/obsbot/tracer"
)

// matrix requests may take a whole long-poll
const syncGrace = 30 * time.Second

type flags struct {
	configFile string
	envFile    string
}

func newRootCommand() *cobra.Command {
	var f flags
	root := &cobra.Command{
		Use:          "obsbot",
		Short:        "Matrix bot for build service and openQA notifications",
		Version:      candihelper.Version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&f.configFile, "config", "c", "",
		"config file (default: "+env.DefaultConfigFile+")")
	root.PersistentFlags().StringVar(&f.envFile, "env", "",
		"dotenv file loaded before the config (default: $WORKDIR/.env)")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Connect to the homeserver and the brokers and serve until stopped",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd.Context(), f)
			},
		},
		&cobra.Command{
			Use:   "check",
			Short: "Validate the configuration and print the effective backends",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return check(cmd.OutOrStdout(), f)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), "obsbot", candihelper.Version)
			},
		},
	)
	return root
}

func check(w io.Writer, f flags) error {
	cfg, err := env.Load(f.configFile, f.envFile)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "homeserver: %s as %s\n", cfg.HomeserverURL, cfg.User)
	for _, domain := range cfg.Backends {
		details, _ := backend.Lookup(domain)
		fmt.Fprintf(w, "backend %s: scope %s, broker %s\n",
			domain, details.RabbitScope, candihelper.MaskingPasswordURL(cfg.BrokerURL(details)))
	}
	fmt.Fprintf(w, "default subscriptions: %d rooms\n", len(cfg.DefaultSubscriptions))
	return nil
}

func run(ctx context.Context, f flags) error {
	cfg, err := env.Load(f.configFile, f.envFile)
	if err != nil {
		return err
	}

	logger.SetDebugMode(cfg.DebugMode)
	if !cfg.DebugMode {
		logger.InitZap(logger.OptionSetLevel(zapcore.InfoLevel))
	}
	defer func() { _ = logger.Sync() }()

	application := app.New(service.Name)
	if cfg.JaegerHost != "" {
		closer, err := tracer.InitOpenTracing(service.Name, cfg.JaegerHost)
		if err != nil {
			return err
		}
		application.AddCloser(func(context.Context) error { return closer.Close() })
	}

	client, err := matrix.NewClient(cfg.HomeserverURL, matrix.SetHTTPRequest(candiutils.NewHTTPRequest(
		candiutils.HTTPRequestSetTimeout(cfg.SyncTimeout+syncGrace),
		candiutils.HTTPRequestSetBreakerName("matrix"),
	)))
	if err != nil {
		return err
	}
	if err := client.Login(ctx, cfg.User, cfg.Password); err != nil {
		return fmt.Errorf("matrix login as %s: %w", cfg.User, err)
	}
	logger.LogIf("matrix: logged in as %s", client.UserID())

	brokers := broker.InitBrokers()
	for _, domain := range cfg.Backends {
		details, _ := backend.Lookup(domain)
		bk, err := broker.NewRabbitMQBroker(domain, cfg.BrokerURL(details))
		if err != nil {
			logger.Log(zapcore.ErrorLevel, err.Error(), "startup", domain)
			continue
		}
		brokers.RegisterBroker(bk)
	}

	svc, err := service.New(ctx, cfg, client, brokers, application.Stop)
	if svc == nil {
		_ = brokers.Disconnect(ctx)
		return err
	}
	if err != nil {
		logger.Log(zapcore.WarnLevel, err.Error(), "startup", service.Name)
	}

	application.AddServer(svc.Servers()...)
	application.AddCloser(svc.Closers()...)
	return application.Run()
}
