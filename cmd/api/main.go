package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"alfredoptarigan/cv-analyzer/internal/config"
)

const app = "cv-analyzer"

var (
	// Used for flags.
	envFile  string
	logDebug bool
	logJSON  bool

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "CV and job description compatibility analysis API",
		Long: "cv-analyzer extracts text from a PDF or DOCX resume, compares it with a job " +
			"description using a language model and returns a structured fit analysis.",
		SilenceUsage: true,
		RunE:         runServe,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "env file to load before reading the environment")
	rootCmd.PersistentFlags().BoolVarP(&logDebug, "debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&logJSON, "json", "j", false, "json format for logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads and validates configuration, then applies the logging
// flags on top of it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("debug") {
		cfg.Log.Debug = logDebug
	}
	if cmd.Flags().Changed("json") {
		cfg.Log.JSON = logJSON
	}
	return cfg, nil
}
