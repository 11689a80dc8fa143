package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"sidehug/internal/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	appCfg  config.Config
)

// rootCmd is the base command called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sidehug",
	Short: "Bluesky mention bot and trend crawler",
	Long:  "Answers mentions of a Bluesky account through a classification service and crawls keyword searches into category buckets and hashtag trend reports.",

	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command.
func Execute() error {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
}

// envBindings maps config keys to extra environment variable names, kept
// compatible with existing deployments.
var envBindings = map[string][]string{
	"bluesky.handle":      {"BLUESKY_HANDLE"},
	"bluesky.password":    {"BLUESKY_PASSWORD"},
	"bluesky.host":        {"BLUESKY_HOST"},
	"middleware.base_url": {"API_MIDDLEWARE"},
	"chart.base_url":      {"CHART"},
	"openai.api_key":      {"OPENAI_API_KEY"},
	"redis.addr":          {"REDIS_ADDR"},
	"redis.password":      {"REDIS_PASSWORD"},
	"app.log_level":       {"LOG_LEVEL"},
	"metrics.addr":        {"METRICS_ADDR"},
}

func initConfig() {
	v := viper.GetViper()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/sidehug")
		v.AddConfigPath("configs")
	}

	v.SetEnvPrefix("SIDEHUG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envBindings {
		args := append([]string{key, "SIDEHUG_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		_ = v.BindEnv(args...)
	}

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			fmt.Fprintf(os.Stderr, "error reading config: %v\n", err)
			os.Exit(1)
		}
	} else {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", v.ConfigFileUsed())
	}

	if err := v.Unmarshal(&appCfg); err != nil {
		fmt.Fprintf(os.Stderr, "error parsing config: %v\n", err)
		os.Exit(1)
	}

	appCfg.FillDefaults()
	setupLogger(appCfg.App.LogLevel)
}

func setupLogger(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

// GetConfig exposes the loaded configuration to subcommands.
func GetConfig() config.Config {
	return appCfg
}
