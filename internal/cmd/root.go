package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/routemeta/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "routemeta",
	Short: "Road-type segmentation and statistics for routes",
	Long: `routemeta classifies every point of a route by the road it lies on,
groups consecutive points into road-type segments and aggregates per-type
distance statistics.

Roads are looked up from OpenStreetMap via Overpass API (or a deterministic
synthetic source for offline use) and classifications are cached in memory,
SQLite or Redis.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().String("data-source", "overpass", "Way data source (overpass, synthetic)")
	rootCmd.PersistentFlags().String("cache", "memory", "Classification cache backend (memory, sqlite, redis, none)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable verbose logging")

	mustBind := func(key string, name string) {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("data-source", "data-source")
	mustBind("cache.backend", "cache")
	mustBind("log-format", "log-format")
	mustBind("verbose", "verbose")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	config.BindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// loadConfig decodes the merged flags, config file and environment.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return config.Config{}, err
	}
	if logger == nil {
		initLogging()
	}
	return cfg, nil
}
