// File: cmd/root.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/fenlock-io/pagecheck/internal/config"
	"github.com/fenlock-io/pagecheck/internal/observability"
)

// NewRootCommand builds the pagecheck command tree. Each call returns a
// fresh tree so flag state cannot leak between invocations.
func NewRootCommand() *cobra.Command {
	return newRootCommand(defaultBrowserProvider{}, NewStoreProvider())
}

// newRootCommand wires the tree with injectable providers so tests can run
// commands without Chrome or PostgreSQL.
func newRootCommand(browsers browserProvider, stores storeProvider) *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "pagecheck",
		Short: "Pagecheck drives a headless browser through verification scenarios.",
		Long: `Pagecheck loads a local page in headless Chrome, walks it through a
scripted scenario of clicks, waits and assertions, and reports what the
page did, including its console output and uncaught errors.`,
		Version: Version,
		// Runtime failures are reported once by Execute; dumping usage on
		// top of them buries the diagnostics.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initializeConfig(cfgFile)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./pagecheck.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "pagecheck %s\n" .Version}}`)

	rootCmd.AddCommand(
		newVerifyCmd(browsers, stores),
		newScenariosCmd(),
		newPreflightCmd(),
		newHistoryCmd(stores),
		newWatchCmd(browsers),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the command tree under the signal-aware context from main.
// It reports the outcome on stderr; exit code mapping stays in main.
func Execute(ctx context.Context) error {
	err := NewRootCommand().ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

// initializeConfig layers configuration sources and brings up the logger.
// Precedence, lowest to highest: defaults, config file, PAGECHECK_*
// environment variables, then flags bound in each command's PreRunE.
func initializeConfig(cfgFile string) error {
	// A .env file is optional; variables already set in the environment win.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("pagecheck")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("PAGECHECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	config.SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg, err := config.NewConfigFromViper(viper.GetViper())
	if err != nil {
		// Bring up a fallback logger so later failures still land somewhere.
		observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "pagecheck"})
		return err
	}

	observability.InitializeLogger(cfg.Logger)
	observability.GetLogger().Debug("Starting pagecheck.", zap.String("version", Version))
	return nil
}
