package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/NotCoffee418/han_reader/pkg/config"
	"github.com/NotCoffee418/han_reader/pkg/dlms"
	"github.com/NotCoffee418/han_reader/pkg/han"
	"github.com/NotCoffee418/han_reader/pkg/mqttsink"
	"github.com/NotCoffee418/han_reader/pkg/pathing"
	"github.com/NotCoffee418/han_reader/pkg/port_reader"
	"github.com/NotCoffee418/han_reader/pkg/sensor"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Read the HAN port and serve the decoded values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		return runServe(cmd.Context(), config.ActiveHANReaderConfig)
	},
}

func loadConfig() error {
	if configPath != "" {
		cfg, err := config.LoadHANReaderConfigFrom(configPath)
		if err != nil {
			return err
		}
		config.ActiveHANReaderConfig = cfg
		return nil
	}
	if err := pathing.EnsureDirectories(); err != nil {
		return err
	}
	return config.LoadHANReaderConfig()
}

// newDecoder creates the decoder for cfg and registers a sensor for every
// configured OBIS code.
func newDecoder(cfg *config.HANReaderConfig, source han.ByteSource, state *sensor.State, publishers ...sensor.Publisher) (*han.Decoder, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	decoder := han.NewDecoder(source, nil, han.Options{
		MaxFrameLength:  cfg.MaxFrameLength,
		VerifyChecksums: cfg.VerifyChecksums,
		Location:        loc,
	})

	for _, sc := range cfg.Sensors {
		s := sensor.NewObisSensor(sc.Name, sc.Code, state, publishers...)
		s.Unit = sc.Unit
		s.Multiplier = sc.Multiplier
		if sc.AccuracyDecimals != nil {
			s.AccuracyDecimals = *sc.AccuracyDecimals
		}
		if sc.Scaler != nil {
			decoder.SetScalerUnit(sc.Code, dlms.ScalerUnit{Scaler: *sc.Scaler, Unit: sc.Unit})
		}
		decoder.RegisterListener(sc.Code, s)
		log.Infof("Sensor %s listening on %s", sc.Name, sc.Code)
	}
	return decoder, nil
}

func runServe(ctx context.Context, cfg *config.HANReaderConfig) error {
	state := sensor.NewState()
	wsHub := newHub()
	publishers := []sensor.Publisher{wsHub}

	if cfg.MQTT.Enabled {
		sink, cli, err := mqttsink.New(cfg.MQTT.Broker, cfg.MQTT.TopicPrefix, cfg.MQTT.Retain)
		if err != nil {
			return err
		}
		defer cli.Disconnect(250)
		publishers = append(publishers, sink)
	}

	link := port_reader.NewSerialLink(cfg.SerialDevice, cfg.Baudrate, 0)
	decoder, err := newDecoder(cfg, link, state, publishers...)
	if err != nil {
		return err
	}
	// Bytes from before the reconnect cannot complete a frame
	link.OnReconnect(decoder.Reset)

	if err := link.Start(ctx); err != nil {
		return err
	}
	defer link.Stop()

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           newRouter(state, decoder, wsHub),
		ReadHeaderTimeout: 10 * time.Second,
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting HAN Reader API on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			cancel()
		}
	}()

	err = han.Run(runCtx, cfg.PollInterval(), decoder)

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	wsHub.closeAll()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		log.WithError(shutdownErr).Warn("HTTP server shutdown")
	}

	select {
	case err := <-serverErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	default:
	}
	if ctx.Err() != nil {
		log.Info("Shutting down")
		return nil
	}
	return err
}
