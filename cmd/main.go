package main

import (
	"os"

	"github.com/maxaizer/autoapply/internal/config"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "autoapply",
		Short: "autoapply scans company websites, matches openings and sends approved applications",
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yaml or $CONFIG_PATH)")

	rootCmd.AddCommand(serveCmd, scanCmd, sweepCmd)
}

func loadConfig() *config.Config {
	path := config.Path()
	if cfgFile != "" {
		path = cfgFile
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("can't load config: %v", err)
	}
	return cfg
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
