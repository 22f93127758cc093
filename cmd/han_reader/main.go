// HAN Reader reads the HAN port of a smart meter, decodes the pushed lists
// and publishes the configured OBIS values.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var log = logrus.WithField("component", "han_reader")

var (
	rootCmd = &cobra.Command{
		Use:           "han_reader",
		Short:         "Read and decode a smart meter HAN port",
		Long:          "han_reader decodes the DLMS/COSEM lists a smart meter pushes on its HAN port and publishes the configured OBIS values over HTTP, websocket and MQTT.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logrus.SetLevel(level)
			return nil
		},
	}

	logLevel   string
	configPath string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to han_reader.toml (default: config directory)")
	rootCmd.AddCommand(serveCmd, decodeCmd)
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logrus.Fatal(err)
	}
}
