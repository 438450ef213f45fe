// =============================================================================
// csv2notion - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (csv2notion)
//   ├── importCmd  (csv2notion import)
//   ├── parseCmd   (csv2notion parse)
//   └── versionCmd (csv2notion version)
//
// CONFIGURATION SOURCES (highest priority first):
//   1. Command-line flags
//   2. Environment variables (NOTION_KEY, PAGE_ID, CSV2NOTION_*)
//   3. A .env file (loaded into the environment, never overriding it)
//   4. The YAML configuration file
//   5. Built-in defaults
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ginjaninja78/csv2notion/internal/config"
	"github.com/ginjaninja78/csv2notion/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// envFile holds the path to the .env file loaded at startup.
var envFile string

// verbose enables debug logging when set to true.
var verbose bool

// logLevel overrides the configured log level.
var logLevel string

// v resolves flag values from the environment.
var v = viper.New()

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "csv2notion",
	Short: "csv2notion - Import CSV exports into Notion databases",
	Long: `csv2notion reads CSV files, maps each row onto a table profile and
creates one Notion database per file under a new project page.

Credentials are read from the environment (or a .env file):
  NOTION_KEY   Notion integration token
  PAGE_ID      Page the project page is created under

Example Usage:
  csv2notion import ./reports                # Import every CSV in a directory
  csv2notion import a.csv --dry-run          # Map rows without calling Notion
  csv2notion import a.csv --report run.xlsx  # Also write an XLSX report
  csv2notion parse a.csv                     # Print parsed records as YAML`,

	SilenceUsage:  true,
	SilenceErrors: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. An interrupt cancels the command's context,
// which stops an import between two writes.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml",
		"Path to the main configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable verbose output for debugging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level: debug, info, warn or error (overrides the config file)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env",
		"Path to a .env file with NOTION_KEY and PAGE_ID")

	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix("CSV2NOTION")
	v.AutomaticEnv()

	// The credentials also answer to their unprefixed names.
	_ = v.BindEnv("notion-key", "NOTION_KEY", "CSV2NOTION_NOTION_KEY")
	_ = v.BindEnv("page-id", "PAGE_ID", "CSV2NOTION_PAGE_ID")

	// Runs before every subcommand, after its flags are parsed.
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := loadEnvFile(); err != nil {
			return err
		}
		return bindEnvironment()
	}
}

// loadEnvFile loads the .env file into the process environment. Variables
// already set are kept. A missing default file is ignored; a file named with
// --env-file must exist.
func loadEnvFile() error {
	err := godotenv.Load(envFile)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) && !rootCmd.PersistentFlags().Changed("env-file") {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", envFile, err)
}

// bindEnvironment fills every flag the user did not set from the
// environment, when a matching variable exists.
func bindEnvironment() error {
	commands := append([]*cobra.Command{rootCmd}, rootCmd.Commands()...)
	for _, cmd := range commands {
		for _, fs := range []*pflag.FlagSet{cmd.Flags(), cmd.PersistentFlags()} {
			if err := v.BindPFlags(fs); err != nil {
				return fmt.Errorf("failed to bind flags: %w", err)
			}
		}
	}

	for _, cmd := range commands {
		for _, fs := range []*pflag.FlagSet{cmd.Flags(), cmd.PersistentFlags()} {
			fs.VisitAll(func(f *pflag.Flag) {
				if f.Changed || !v.IsSet(f.Name) {
					return
				}
				val := fmt.Sprintf("%v", v.Get(f.Name))
				if val != "" {
					_ = f.Value.Set(val)
				}
			})
		}
	}

	return nil
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// loadConfig loads the configuration file. The default file may be absent;
// a file named on the command line or in the environment must exist.
func loadConfig() (*config.MainConfig, error) {
	explicit := rootCmd.PersistentFlags().Changed("config") || v.IsSet("config")
	return config.LoadMainConfig(cfgFile, explicit)
}

// newLogger builds the logger for the configured level. --verbose wins over
// --log-level, which wins over the config file.
func newLogger(cfg *config.MainConfig) (logr.Logger, error) {
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	if verbose {
		level = "debug"
	}
	return logging.New(level)
}
