package commands

import (
	"fmt"
	"os"

	"github.com/fjod/farmfresh/internal/config"
	"github.com/fjod/farmfresh/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	envFile string

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "farmfresh",
	Short: "FarmFresh grocery storefront",
	Long: `FarmFresh serves the grocery storefront API and its admin tooling.

Commands:
  serve         - Run the HTTP API and the order event publisher
  create-admin  - Create or promote an admin account
  report        - Print the sales report`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(envFile)
		if err != nil {
			return err
		}
		cfg = loaded
		logger.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat)
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load; missing files are ignored")
}
