package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/josephlewis42/smallsh/core"
	"github.com/josephlewis42/smallsh/core/config"
	"github.com/josephlewis42/smallsh/core/logger"
	"github.com/josephlewis42/smallsh/core/ttylog"
	"github.com/spf13/cobra"
)

var cfgPath string

func loadConfig(cmd *cobra.Command) (*config.Configuration, error) {
	if cfgPath == "" {
		return config.Default(), nil
	}

	configuration, err := config.Load(cfgPath)

	if errors.Is(err, fs.ErrNotExist) {
		console := logger.NewConsole(cmd.ErrOrStderr())
		console.Warn().Str("path", cfgPath).Msg("Couldn't load config: did you run init?")
	}

	return configuration, err
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "smallsh",
	Short: "A small interactive shell",
	Long: `A small interactive shell with exit, cd and status built in,
I/O redirection, background jobs and a foreground-only mode toggled by
SIGTSTP.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		appLog, err := cfg.OpenAppLog()
		if err != nil {
			return fmt.Errorf("opening application log: %w", err)
		}
		defer appLog.Close()

		log, sessionID := logger.NewSession(logger.New(appLog, cfg.Log.Level))

		opts := core.Options{
			Stdin:          os.Stdin,
			Stdout:         os.Stdout,
			Stderr:         os.Stderr,
			Prompt:         cfg.Prompt,
			ForegroundOnly: cfg.ForegroundOnly,
			Color:          cfg.Color,
			Logger:         log,
		}

		if cfg.TranscriptsEnabled() {
			transcript, err := cfg.CreateTranscript(sessionID)
			if err != nil {
				return fmt.Errorf("creating transcript: %w", err)
			}
			defer transcript.Close()
			opts.Transcript = ttylog.NewAsciicastLogSink(transcript)
		}

		sh, err := core.NewShell(opts)
		if err != nil {
			return err
		}

		if err := sh.Run(cmd.Context()); err != nil {
			log.Error().Err(err).Msg("shell failed")
			return err
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.ExecuteContext(context.Background()))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config path, uses the built-in configuration if empty")
}
