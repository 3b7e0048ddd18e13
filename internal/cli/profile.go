package cli

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"trickia-quiz/internal/config"
	"trickia-quiz/internal/domain"
)

// NewProfileCmd prints a player's lifetime stats and adaptive model.
func NewProfileCmd(configPath *string) *cobra.Command {
	var flags clientFlags
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show lifetime stats, achievements and theme confidence",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			flags.apply(cmd, &cfg)
			client, err := newAPIClient(cfg)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			profile, err := client.Profile(ctx)
			if err != nil {
				return fmt.Errorf("load profile: %w", err)
			}
			states, err := client.ModelState(ctx)
			if err != nil {
				return fmt.Errorf("load model state: %w", err)
			}
			history, err := client.ModelHistory(ctx)
			if err != nil {
				return fmt.Errorf("load model history: %w", err)
			}
			return writeProfile(cmd.OutOrStdout(), profile, states, history)
		},
	}
	flags.register(cmd)
	return cmd
}

func writeProfile(out io.Writer, p domain.Profile, states []domain.BanditState, history domain.ModelHistory) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Player\t%s\n", p.Username)
	fmt.Fprintf(w, "Questions answered\t%d\n", p.TotalQuestions)
	fmt.Fprintf(w, "Best streak\t%d\n\n", p.BestStreak)

	fmt.Fprintln(w, "THEME\tCORRECT\tTOTAL\tPERCENT")
	for _, t := range p.Themes {
		fmt.Fprintf(w, "%s\t%d\t%d\t%.1f%%\n", t.Theme, t.Correct, t.Total, t.Percent)
	}

	if len(p.Achievements) > 0 {
		fmt.Fprintln(w, "\nACHIEVEMENT\tCOUNT\tUNLOCKED")
		for _, a := range p.Achievements {
			fmt.Fprintf(w, "%s\t%d\t%s\n", a.Label, a.Count, a.UnlockedAt.Format("2006-01-02"))
		}
	}

	if len(states) > 0 {
		fmt.Fprintln(w, "\nTHEME\tCONFIDENCE\tALPHA\tBETA")
		for _, s := range states {
			fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.2f\n", s.Theme, s.Mean, s.Alpha, s.Beta)
		}
	}

	if len(history.Themes) > 0 {
		themes := make([]string, 0, len(history.Themes))
		for theme := range history.Themes {
			themes = append(themes, theme)
		}
		sort.Strings(themes)
		fmt.Fprintln(w, "\nTREND\tSTEPS")
		for _, theme := range themes {
			fmt.Fprintf(w, "%s\t", theme)
			for i, pt := range history.Themes[theme] {
				if i > 0 {
					fmt.Fprint(w, " ")
				}
				fmt.Fprintf(w, "%d:%.2f", pt.Step, pt.Mean)
			}
			fmt.Fprintln(w)
		}
	}
	return w.Flush()
}
