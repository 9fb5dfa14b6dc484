// Command legalshell runs the legal assistant chat shell in a terminal.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhouzirui/legal-assistant/backend/internal/config"
	"github.com/zhouzirui/legal-assistant/backend/internal/logging"
	"github.com/zhouzirui/legal-assistant/backend/internal/service/chat"
	"github.com/zhouzirui/legal-assistant/backend/internal/tui"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		logFile  string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "legalshell",
		Short: "Ask legal questions from the terminal",
		Long: `legalshell opens the Indian Legal Assistant chat shell in the terminal.

Type a question and press enter. ctrl+t opens the context editor, esc hides
it, ctrl+c quits. The transcript is discarded on exit.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(logFile, logLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			model := tui.New(chat.NewShell(chat.StaticResponder{}), logger)
			program := tea.NewProgram(model, tea.WithAltScreen())
			if _, err := program.Run(); err != nil {
				return fmt.Errorf("run shell: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&logFile, "log-file", "", "write debug logs to this file (disabled when empty)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	return cmd
}

func newLogger(path, level string) (*zap.Logger, error) {
	if path == "" {
		return zap.NewNop(), nil
	}
	return logging.NewFile(config.LogConfig{Level: level, Format: "json"}, path)
}
