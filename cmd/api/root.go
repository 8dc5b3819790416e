package main

import (
	"fmt"
	"os"

	"fulfillment/internal/config"
	"fulfillment/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "fulfillment",
	Short: "Order fulfillment backend",
	Long:  `Order entry, delivery tracking, inventory batches, issue reconciliation and financial reports.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
		log, err = logger.New(cfg.Log)
		if err != nil {
			return fmt.Errorf("error creating logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or ./configs/config.yaml)")
}
