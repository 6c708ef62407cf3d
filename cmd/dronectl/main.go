package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/open-teleop/dronectl/domain/control"
	"github.com/open-teleop/dronectl/domain/teleop"
	"github.com/open-teleop/dronectl/pkg/api"
	"github.com/open-teleop/dronectl/pkg/config"
	"github.com/open-teleop/dronectl/pkg/journal"
	customlog "github.com/open-teleop/dronectl/pkg/log"
	"github.com/open-teleop/dronectl/pkg/processing"
	"github.com/open-teleop/dronectl/pkg/remote"
	"github.com/open-teleop/dronectl/pkg/zeromq"
	"github.com/open-teleop/dronectl/services"
)

const (
	flagConfigDir = "config-dir"
	flagBaseURL   = "base-url"
	flagPort      = "port"
	flagLogLevel  = "log-level"

	shutdownTimeout = 5 * time.Second
)

func main() {
	app := &cli.App{
		Name:  "dronectl",
		Usage: "operator console for a remotely piloted drone",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfigDir,
				Aliases: []string{"c"},
				Value:   "config",
				EnvVars: []string{"DRONECTL_CONFIG_DIR"},
				Usage:   "directory containing " + config.BootstrapFileName,
			},
			&cli.StringFlag{
				Name:    flagBaseURL,
				EnvVars: []string{config.BaseURLEnv},
				Usage:   "remote control endpoint, overrides remote.base_url",
			},
			&cli.IntFlag{
				Name:  flagPort,
				Usage: "operator API port, overrides server.http_port",
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "log level, overrides logging.level",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "dronectl: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.LoadBootstrapConfig(c.String(flagConfigDir))
	if err != nil {
		return err
	}
	if c.IsSet(flagBaseURL) {
		cfg.Remote.BaseURL = c.String(flagBaseURL)
	}
	if c.IsSet(flagPort) {
		cfg.Server.HTTPPort = c.Int(flagPort)
	}
	if c.IsSet(flagLogLevel) {
		cfg.Logging.Level = c.String(flagLogLevel)
	}

	logger, err := customlog.NewLogrusLogger(cfg.Logging.Level, cfg.Logging.LogPath)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	logger.Infof("Starting dronectl against %s", cfg.Remote.BaseURL)

	profiles, err := services.NewProfileService(cfg.ProfilePath(), logger)
	if err != nil {
		return err
	}
	profile := profiles.GetCurrentProfile()
	mapper, err := control.NewMapperFromProfile(profile)
	if err != nil {
		return fmt.Errorf("building command mapper: %w", err)
	}
	inputs := control.NewInputs(profile.InvertY.Left, profile.InvertY.Right)

	// Console events fan out to the telemetry publisher and the journal.
	topics := processing.NewTopicRegistry()
	fanOut := processing.NewFanOut(topics, logger)

	var zmqService *zeromq.ZeroMQService
	if cfg.Telemetry.Enabled {
		zmqService, err = zeromq.NewZeroMQService(zeromq.Options{
			PublishAddress: cfg.Telemetry.PublishAddress,
			InputAddress:   cfg.Telemetry.InputAddress,
		}, inputs, logger.WithField("component", "zeromq"))
		if err != nil {
			return fmt.Errorf("creating ZeroMQ service: %w", err)
		}
		fanOut.Subscribe("telemetry", zmqService.Sender())
	}

	var store *journal.Store
	if cfg.Journal.Enabled {
		store = journal.New(cfg.Journal.Path)
		fanOut.Subscribe("journal", store, processing.TopicControlAction, processing.TopicVehicleState)
	}

	pool := processing.NewProcessingPool("events", cfg.Events.Workers, cfg.Events.QueueSize, fanOut.HandleMessage, logger)

	client := remote.NewClient(cfg.Remote.BaseURL, cfg.RequestTimeout(), logger.WithField("component", "remote"))
	service := teleop.NewService(client, inputs, mapper, teleop.Options{
		DispatchInterval: cfg.DispatchInterval(),
		PollInterval:     cfg.PollInterval(),
	}, pool, logger)
	profiles.SetListener(service)

	deps := api.Deps{
		Teleop:   service,
		Profiles: profiles,
		Events:   pool,
		Topics:   topics,
		Logger:   logger,
	}
	if store != nil {
		deps.Journal = store
	}
	app := api.NewApp(deps)

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool.Start()
	if zmqService != nil {
		if err := zmqService.Start(); err != nil {
			pool.Stop()
			return multierr.Append(fmt.Errorf("starting ZeroMQ service: %w", err), fanOut.Close())
		}
	}
	if err := service.Start(ctx); err != nil {
		return multierr.Append(err, shutdown(service, pool, zmqService, fanOut))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
		logger.Infof("Operator API listening on %s", addr)
		return app.Listen(addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Infof("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	err = g.Wait()
	err = multierr.Append(err, shutdown(service, pool, zmqService, fanOut))
	if err != nil {
		return err
	}
	logger.Infof("Server exited properly")
	return nil
}

// shutdown stops components in reverse start order: the loops first so no new
// events are produced, then the pool drains into the sinks, then the sinks close.
func shutdown(service *teleop.Service, pool *processing.ProcessingPool, zmqService *zeromq.ZeroMQService, fanOut *processing.FanOut) error {
	service.Stop()
	pool.Stop()
	if zmqService != nil {
		zmqService.Stop()
	}
	return fanOut.Close()
}
