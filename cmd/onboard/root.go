package main

import (
	"github.com/spf13/cobra"

	"github.com/joelkehle/macro-onboarding/internal/config"
)

var (
	configPath string
	envFile    string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Conversational nutrition onboarding",
	Long: `onboard runs the onboarding conversation in a terminal and exposes
the metabolic calculator.

Commands:
  onboard chat     Talk through onboarding with the configured provider
  onboard calc     Compute daily targets from flags
  onboard export   Print the export of a stored session`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotenv(envFile); err != nil {
			return err
		}
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
}
