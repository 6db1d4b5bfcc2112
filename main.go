package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/okieraised/sensor-watchdog/internal/agent/sensor_ingest"
	"github.com/okieraised/sensor-watchdog/internal/agent/sensor_watch"
	"github.com/okieraised/sensor-watchdog/internal/config"
	"github.com/okieraised/sensor-watchdog/internal/constants"
	"github.com/okieraised/sensor-watchdog/internal/infrastructure/log"
	"github.com/okieraised/sensor-watchdog/internal/infrastructure/metrics"
	"github.com/okieraised/sensor-watchdog/internal/server/grpc_server"
	"github.com/okieraised/sensor-watchdog/internal/server/monitoring"
	"github.com/okieraised/sensor-watchdog/internal/server/rest_server"
	"github.com/okieraised/sensor-watchdog/internal/server/rest_server/routers"
	"github.com/okieraised/sensor-watchdog/internal/server/rest_server/services/v1/restful"
	"github.com/okieraised/sensor-watchdog/internal/server/rest_server/services/v1/ws"
	"github.com/okieraised/sensor-watchdog/internal/signaling"
	"github.com/okieraised/sensor-watchdog/internal/version"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newRootCommand() *cobra.Command {
	var profile string

	cmd := &cobra.Command{
		Use:           "sensor-watchdog",
		Short:         "Watch fridge door sensors and nag when one is left open.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(profile)
		},
	}
	cmd.Flags().StringVarP(&profile, "profile", "p", "", "configuration profile; defaults to APP_ENV or dev")
	version.AttachCobraVersionCommand(cmd)
	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "sensor-watchdog: %v\n", err)
		os.Exit(1)
	}
}

func run(profile string) (err error) {
	if profile == "" {
		profile = config.DetectProfile()
	}
	cfgErr := config.Load(profile)
	if cfgErr != nil && !errors.Is(cfgErr, config.ErrNoConfigSources) {
		return errors.Wrap(cfgErr, "failed to setup service configuration")
	}

	// Init default logger
	if err = log.InitDefault(); err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	if cfgErr != nil {
		log.Default().Warn("Running on defaults and environment only", zap.Error(cfgErr))
	}
	log.Default().Info("Starting sensor watchdog", zap.String("version", version.Full()), zap.String("profile", profile))

	settings, err := config.LoadMonitorSettings()
	if err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	parentCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	health := grpc_server.NewHealth()
	cl, err := setupClients(parentCtx, health)
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		if cErr := cl.Close(closeCtx); cErr != nil {
			log.Default().Warn("Failed to close external clients", zap.Error(cErr))
		}
	}()
	if err != nil {
		return err
	}
	log.Default().Info("Finished initializing connection to external services")

	agentID := viper.GetString(config.AgentID)
	if agentID == "" {
		agentID = uuid.NewString()
	}

	registry := metrics.NewRegistry()
	hub := signaling.NewWebsocketHub(agentID, log.Default().Named("websocket_hub"))

	watch, err := sensor_watch.New(settings, buildNotifier(settings, hub, registry.Metrics),
		sensor_watch.WithLogger(log.Default().Named("sensor_watch")),
		sensor_watch.WithMetrics(registry.Metrics),
	)
	if err != nil {
		return err
	}
	defer watch.Stop()

	decoder, err := sensor_ingest.NewDecoder(settings.PayloadFormat)
	if err != nil {
		return err
	}
	ingestor := sensor_ingest.NewIngestor(watch, decoder, settings.Sensors,
		sensor_ingest.WithLogger(log.Default().Named("sensor_ingest")),
		sensor_ingest.WithMetrics(registry.Metrics),
		sensor_ingest.WithQueueSize(settings.QueueSize),
	)
	sources := buildSources(cl)
	if len(sources) == 0 {
		log.Default().Warn("No sensor transport enabled, alerts will only reflect API state")
	}

	g, ctx := errgroup.WithContext(parentCtx)

	// Sensor ingest
	g.Go(func() error {
		return ingestor.Run(ctx)
	})
	for _, src := range sources {
		src := src
		g.Go(func() error {
			log.Default().Info("Starting sensor source", zap.String("source", src.Name()))
			return src.Run(ctx, ingestor.Enqueue)
		})
	}

	// Alert stream
	g.Go(func() error {
		return hub.Run(ctx)
	})

	// Init GRPC server
	g.Go(func() error {
		defer health.Shutdown()
		return grpc_server.NewGRPCServer(ctx, health.Register)
	})

	// Init profiling and metrics
	g.Go(func() error {
		if !viper.GetBool(config.AgentEnableMonitoring) {
			return nil
		}
		return monitoring.NewMonitoringServer(ctx, registry.Handler())
	})

	// Init HTTP server
	g.Go(func() error {
		// app state
		appState := routers.NewAppState()

		// v1 restful svc
		v1RestState := routers.NewV1RestState()
		v1RestState.SetHealthcheckService(
			restful.NewHealthcheckService(
				restful.WithTransportStatus(cl.transports.Status),
				restful.WithClientCount(hub.ClientCount),
			),
		)
		v1RestState.SetSensorService(
			restful.NewSensorService(restful.WithSensorReader(watch)),
		)
		v1RestState.SetAlertService(
			restful.NewAlertService(restful.WithAlertReader(watch)),
		)
		appState.SetV1RestState(v1RestState)

		websocketState := routers.NewWebsocketState()
		websocketState.SetWebsocketService(
			ws.NewWebsocketService(
				ws.WithWebsocketHub(hub),
			),
		)
		appState.SetWebsocketState(websocketState)

		return rest_server.NewHTTPServer(ctx, routers.NewRootRouter(appState).InitRouters)
	})

	waitCh := make(chan error, 1)
	go func() {
		waitCh <- g.Wait()
	}()

	select {
	case sig := <-sigCh:
		log.Default().Debug(fmt.Sprintf("Signal received: %v", sig))
		cancel()

		select {
		case err = <-waitCh:
			log.Default().Info("All tasks exited, shutting down agent")
			return err
		case sig2 := <-sigCh:
			log.Default().Debug(fmt.Sprintf("Second signal received: %v", sig2))
			return nil
		case <-time.After(constants.GraceWaitPeriod):
			log.Default().Info("Grace period timed out, forcing exit")
			return nil
		}

	case err = <-waitCh:
		if err != nil {
			log.Default().Error("Services finished early with error", zap.Error(err))
		}
		return err
	}
}
