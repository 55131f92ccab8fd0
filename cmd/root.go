package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/icco/keytutor/internal/config"
)

var (
	configPath string
	debug      bool

	cfg     *config.Config
	logFile *os.File
)

var rootCmd = &cobra.Command{
	Use:   "keytutor",
	Short: "A piano tutor that lights the keys to play next",
	Long: `keytutor is a Terminal User Interface (TUI) piano tutor built with Bubbletea.

It reads a MIDI file, shows the keys to play on an on-screen keyboard and
waits for you to play them on a MIDI keyboard before moving on.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logFile != nil {
			_ = logFile.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ~/.config/keytutor/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log key events at debug level")
}

// setup loads the config and points the log at a file, since the terminal
// belongs to the TUI.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}

	if debug {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	path := cfg.LogFile
	if path == "" {
		dir, err := config.Dir()
		if err != nil {
			logrus.SetOutput(os.Stderr)
			return nil
		}
		path = filepath.Join(dir, "keytutor.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("error creating log directory: %w", err)
	}
	logFile, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600) //nolint:gosec // path from config
	if err != nil {
		return fmt.Errorf("error opening log file: %w", err)
	}
	logrus.SetOutput(logFile)
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
