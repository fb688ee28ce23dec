// Command resumectl runs and inspects résumé analyses from a terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"resume-review/internal/bootstrap"
	"resume-review/internal/shared/auth"
	"resume-review/internal/shared/config"
	"resume-review/internal/shared/telemetry"
)

const envPrefix = "RESUMECTL"

var rootCmd = &cobra.Command{
	Use:           "resumectl",
	Short:         "Run and inspect résumé analyses",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		telemetry.SetDebug(viper.GetBool("debug"))
	},
}

func init() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	flags := rootCmd.PersistentFlags()
	flags.String("owner", "cli:local", "principal that owns stored records and files")
	flags.String("store-dir", "", "local object store directory (overrides LOCAL_STORE_DIR)")
	flags.String("database-url", "", "Postgres URL (overrides DATABASE_URL)")
	flags.String("llm-provider", "", "placeholder, openai or gemini (overrides LLM_PROVIDER)")
	flags.String("llm-model", "", "model name (overrides LLM_MODEL)")
	flags.BoolP("debug", "d", false, "verbose/debug output")
	for _, name := range []string{"owner", "store-dir", "database-url", "llm-provider", "llm-model", "debug"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig layers RESUMECTL_* variables and flags over the service config.
func loadConfig() config.Config {
	cfg := config.Load()
	if v := viper.GetString("store-dir"); v != "" {
		cfg.LocalStoreDir = v
	}
	if v := viper.GetString("database-url"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := viper.GetString("llm-provider"); v != "" {
		cfg.LLMProvider = strings.ToLower(v)
	}
	if v := viper.GetString("llm-model"); v != "" {
		cfg.LLMModel = v
	}
	return cfg
}

// session builds the application and a context acting as the configured owner.
func session(ctx context.Context) (*bootstrap.App, context.Context, error) {
	app, err := bootstrap.Build(ctx, loadConfig())
	if err != nil {
		return nil, nil, err
	}
	owner := strings.TrimSpace(viper.GetString("owner"))
	if owner == "" {
		owner = "cli:local"
	}
	return app, auth.WithIdentity(ctx, auth.Identity{UserID: owner}), nil
}
