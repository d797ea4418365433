package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kilianp07/chargepoint-mqtt/app"
	"github.com/kilianp07/chargepoint-mqtt/config"
	"github.com/kilianp07/chargepoint-mqtt/infra/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "chargepoint-mqtt",
	Short: "ChargePoint to MQTT bridge",
	Long:  "Polls the ChargePoint account API for home charger status and republishes connected/power as retained MQTT messages.",
	RunE:  run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "optional configuration file (yaml or json)")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A .env next to the binary is a convenience for local runs; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return svc.Run(ctx)
}
