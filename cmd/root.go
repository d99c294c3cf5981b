// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wa-humanizer/internal/config"
	"github.com/xkilldash9x/wa-humanizer/internal/observability"
)

// envPrefix namespaces environment overrides, e.g. HUMANIZER_ADMIN_LISTEN_ADDR.
const envPrefix = "HUMANIZER"

// NewRootCommand builds a fresh command tree. The interactive shell creates
// one per line so flags never leak between commands.
func NewRootCommand() *cobra.Command {
	cmd, _ := newRootCmd(NewSettingsProvider())
	return cmd
}

// newRootCmd builds the command tree and returns a pointer to the config that
// PersistentPreRunE loads, so subcommands and tests can read it.
func newRootCmd(provider settingsProvider) (*cobra.Command, *config.Interface) {
	var cfgFile string
	var verbose bool
	var appConfig config.Interface

	rootCmd := &cobra.Command{
		Use:           "humanizer",
		Short:         "Turns AI sales-agent answers into timed WhatsApp message plans.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			if err := initializeConfig(v, cfgFile); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			appConfig = cfg

			observability.InitializeLogger(cfg.Logger())
			if verbose {
				if err := observability.SetLevel("debug"); err != nil {
					return err
				}
			}
			observability.GetLogger().Debug("Configuration loaded",
				zap.String("version", Version),
				zap.String("config_file", v.ConfigFileUsed()),
			)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml, then ~/.wa-humanizer/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.SetVersionTemplate(`{{printf "wa-humanizer version %s\n" .Version}}`)

	rootCmd.AddCommand(
		newPreviewCmd(&appConfig, provider),
		newServeCmd(&appConfig, provider),
		newSettingsCmd(&appConfig, provider),
		newTokenCmd(&appConfig),
		newLogsCmd(&appConfig),
		newVersionCmd(),
	)
	return rootCmd, &appConfig
}

// Execute runs the command tree for os.Args and logs any failure.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		observability.GetLogger().Info("Command cancelled.")
	} else {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
		observability.GetLogger().Debug("Command execution failed", zap.Error(err))
	}
	observability.Sync()
	return err
}

// initializeConfig points v at the config file and environment. A missing
// config file is fine; defaults and env vars still apply.
func initializeConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); err != nil {
			return fmt.Errorf("config file %s not found: %w", cfgFile, err)
		}
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".wa-humanizer"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}
