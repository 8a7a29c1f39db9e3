// Package cli implements the f1vis command tree.
package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/f1-visualizer/backend/internal/config"
	"github.com/f1-visualizer/backend/internal/f1data"
	"github.com/f1-visualizer/backend/internal/log"
)

const envPrefix = "F1VIS"

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

var (
	cfgFile  string
	apiURL   string
	cacheDir string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:     "f1vis",
	Short:   "Fetch, analyze and chart Formula 1 telemetry",
	Long: `f1vis pulls session telemetry from an OpenF1-compatible provider,
computes per-lap statistics and renders charts. Run it as an HTTP
server with "f1vis serve" or use the subcommands directly.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		log.Sync()
		os.Exit(1)
	}
	log.Sync()
}

func init() {
	cobra.OnInitialize(initViper)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (YAML, optional)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "",
		"telemetry provider base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "",
		"provider response cache directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level: debug, info, warn, error (overrides config)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newTracksCmd())
	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newInitConfigCmd())
}

func initViper() {
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	bindFlags(rootCmd, viper.GetViper())
	for _, cmd := range rootCmd.Commands() {
		bindFlags(cmd, viper.GetViper())
	}
}

// bindFlags maps each flag to its F1VIS_* environment variable, so
// e.g. --api-url can be set with F1VIS_API_URL.
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		if err := v.BindEnv(f.Name, fmt.Sprintf("%s_%s", envPrefix, envVarSuffix)); err != nil {
			fmt.Fprintf(os.Stderr, "Could not bind env var %s: %v\n", f.Name, err)
		}
		if !f.Changed && v.IsSet(f.Name) {
			_ = cmd.Flags().Set(f.Name, v.GetString(f.Name))
		}
	})
}

// loadConfig reads the configuration and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.Provider.BaseURL = apiURL
	}
	if cacheDir != "" {
		cfg.Provider.CacheDir = cacheDir
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

// newLoader builds the provider client and loader from the config.
func newLoader(cfg *config.Config) (*f1data.Loader, error) {
	client, err := f1data.NewClient(cfg.Provider.BaseURL, cfg.Provider.CacheDir,
		time.Duration(cfg.Provider.Timeout)*time.Second)
	if err != nil {
		return nil, err
	}
	return f1data.NewLoader(client), nil
}
