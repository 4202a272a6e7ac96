package cmd

import (
	"fmt"
	"os"

	"GenreFM/config"
	"GenreFM/logger"

	"github.com/spf13/cobra"
)

var (
	cfg           *config.Config
	logLevelFlag  string
	modelPathFlag string
)

var rootCmd = &cobra.Command{
	Use:           "genrefm",
	Short:         "GenreFM classifies audio files into music genres.",
	Long:          `GenreFM decodes an audio file, extracts eleven acoustic features and labels it as Dance, Classical or Rock with a pre-trained model.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if logLevelFlag != "" {
			cfg.LogLevel = logLevelFlag
		}
		if modelPathFlag != "" {
			cfg.ModelPath = modelPathFlag
		}
		return logger.InitLogger(logger.Config{
			Level:      logger.LogLevel(cfg.LogLevel),
			OutputPath: cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
			Compress:   cfg.LogCompress,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&modelPathFlag, "model", "", "override MODEL_PATH")
}
