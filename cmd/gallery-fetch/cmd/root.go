package cmd

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go-gallery-fetch/internal/models"
)

// cfgFile holds the path to the config file specified by the user.
var cfgFile string

// logLevel and logFormat back the persistent logging flags; initLogging
// (cmd_setup.go) applies them.
var logLevel string
var logFormat string

var savePathFlag string
var cacheDirFlag string
var workersFlag int
var preloadFlag int

// globalConfig holds the loaded configuration, populated by
// loadGlobalConfig before any command runs.
var globalConfig models.Config

var rootCmd = &cobra.Command{
	Use:   "gallery-fetch",
	Short: "A reference-counted, multi-worker gallery page fetch coordinator",
	Long: `gallery-fetch discovers a gallery's page count, resolves each
page to its image URL, downloads pages concurrently into a
content-addressed store, and serves decoded images back to consumers.`,
	PersistentPreRunE: loadGlobalConfig,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.toml", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Logging format (text, json)")

	rootCmd.PersistentFlags().StringVar(&savePathFlag, "save-path", "", "Download directory (overrides config)")
	viper.BindPFlag("savepath", rootCmd.PersistentFlags().Lookup("save-path"))

	rootCmd.PersistentFlags().StringVar(&cacheDirFlag, "cache-dir", "", "Cache directory (overrides config)")
	viper.BindPFlag("cachedirpath", rootCmd.PersistentFlags().Lookup("cache-dir"))

	rootCmd.PersistentFlags().IntVar(&workersFlag, "workers", 0, "Spider worker count stored in the config (overrides config; the coordinator always runs 3 workers)")
	viper.BindPFlag("spiderworkers", rootCmd.PersistentFlags().Lookup("workers"))

	rootCmd.PersistentFlags().IntVar(&preloadFlag, "preload", 0, "Preload count stored in the config (overrides config; the coordinator always preloads up to 5 pages)")
	viper.BindPFlag("numberpreload", rootCmd.PersistentFlags().Lookup("preload"))

	viper.SetDefault("apiclienttimeoutsec", 60)
	viper.SetDefault("apidelayms", 200)
}

// loadGlobalConfig loads config.toml (or the path given by --config)
// through Viper, unmarshals it into globalConfig, and configures
// logging, mirroring the teacher's PersistentPreRunE/initLogging split.
func loadGlobalConfig(cmd *cobra.Command, args []string) error {
	initLogging()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
	}
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := viper.ReadInConfig(); err == nil {
		log.Infof("Using configuration file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		log.Warn("Config file not found. Using defaults and flags.")
	} else {
		log.WithError(err).Warnf("Error reading config file: %s", viper.ConfigFileUsed())
	}

	if err := viper.Unmarshal(&globalConfig); err != nil {
		log.WithError(err).Warn("Error unmarshalling config")
	}

	return nil
}
