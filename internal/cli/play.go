package cli

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"trickia-quiz/internal/config"
	"trickia-quiz/internal/session"
	transport "trickia-quiz/internal/transport/http"
	"trickia-quiz/internal/tui"
)

type clientFlags struct {
	server string
	player string
}

func (f *clientFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.server, "server", "", "quiz server base URL (overrides client.base_url)")
	cmd.Flags().StringVar(&f.player, "player", "", "player identifier (overrides client.player)")
}

// apply overlays explicitly set flags on the client config.
func (f *clientFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("server") {
		cfg.Client.BaseURL = f.server
	}
	if cmd.Flags().Changed("player") {
		cfg.Client.Player = f.player
	}
	if cfg.Client.Player == "" {
		cfg.Client.Player = os.Getenv("USER")
	}
}

func newAPIClient(cfg config.Config) (*transport.Client, error) {
	if cfg.Client.Player == "" {
		return nil, fmt.Errorf("no player configured: set client.player or pass --player")
	}
	httpClient := &http.Client{Timeout: config.TTLDuration(cfg.Client.Timeout, 10*time.Second)}
	return transport.NewClient(cfg.Client.BaseURL, cfg.Client.Player, httpClient), nil
}

// NewPlayCmd runs the interactive terminal client.
func NewPlayCmd(configPath *string) *cobra.Command {
	var flags clientFlags
	var random bool
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a quiz session in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			flags.apply(cmd, &cfg)
			if cmd.Flags().Changed("random-category") {
				cfg.Client.RandomCategory = random
			}
			client, err := newAPIClient(cfg)
			if err != nil {
				return err
			}

			// The TUI owns the terminal, so log lines go to a file.
			logger := log.New(os.Stderr, "", log.LstdFlags)
			if cfg.Client.LogFile != "" {
				f, err := os.OpenFile(cfg.Client.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				logger.SetOutput(f)
			}

			ctrl := session.NewController(client, session.Options{
				SettleDelay:    config.TTLDuration(cfg.Client.SettleDelay, session.DefaultSettleDelay),
				TopN:           cfg.Client.TopN,
				RandomCategory: cfg.Client.RandomCategory,
				Logger:         logger,
			})
			program := tea.NewProgram(tui.NewModel(cmd.Context(), ctrl), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			if _, err := program.Run(); err != nil {
				return fmt.Errorf("failed to run TUI: %w", err)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&random, "random-category", false, "request a random selected theme for each question")
	return cmd
}
