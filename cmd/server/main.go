package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/timtanatarov/daydi-spa/internal/config"
	"github.com/timtanatarov/daydi-spa/internal/sheets"
	"github.com/timtanatarov/daydi-spa/internal/utils"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd runs the server when no subcommand is given.
var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Contact form backend writing submissions to a spreadsheet",
	Long: `Serves the contact API and appends every submission as a row of a
spreadsheet. The sheet's header row and formatting are created on the
first submission to an empty sheet.

Backends:
  google - Google Sheets through a service account
  xlsx   - a local workbook file`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		logger, err = utils.NewLogger(utils.LogOptions{
			Level:   cfg.Logging.Level,
			File:    cfg.Logging.File,
			Console: cfg.Logging.Console,
		})
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", utils.DefaultConfigPath(), "path to config.yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd, initSheetCmd, submitCmd, hashTokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newSheetClient builds the spreadsheet client from the loaded configuration.
func newSheetClient(cfg *config.Config, log *zap.Logger) (*sheets.Client, error) {
	backend, err := cfg.Backend()
	if err != nil {
		return nil, err
	}
	return sheets.New(backend,
		sheets.WithDefaultRange(cfg.Sheets.Range),
		sheets.WithHeaders(cfg.Sheets.Headers),
		sheets.WithLogger(log),
	), nil
}
