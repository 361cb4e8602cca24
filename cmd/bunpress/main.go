package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kartikbazzad/bunbase/bunpress/internal/config"
	"github.com/kartikbazzad/bunbase/bunpress/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:           "bunpress",
	Short:         "bunpress blog and back-office",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, userCmd)
}

// loadConfig reads the configuration and initialises the logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.Log)
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
