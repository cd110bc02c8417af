package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	reportadapter "github.com/bnema/huddle/internal/adapters/render/report"
	"github.com/bnema/huddle/internal/application"
	"github.com/bnema/huddle/internal/domain"
	"github.com/spf13/cobra"
)

func newHistoryCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and trim the pairing history",
	}

	cmd.AddCommand(
		newHistoryShowCmd(app),
		newHistoryPruneCmd(app),
	)

	return cmd
}

type historyJSON struct {
	Records []string        `json:"records"`
	Pairs   []pairCountJSON `json:"pairs"`
}

type pairCountJSON struct {
	A     domain.PersonID `json:"a"`
	B     domain.PersonID `json:"b"`
	Count int             `json:"count"`
}

func newHistoryShowCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show stored groups and pair counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, closeHistory, err := app.openHistory(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = closeHistory() }()

			summary, err := application.NewHistoryService(log, app.logger).Summary(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				out := historyJSON{
					Records: make([]string, 0, len(summary.Records)),
					Pairs:   make([]pairCountJSON, 0, len(summary.Pairs)),
				}
				for _, group := range summary.Records {
					out.Records = append(out.Records, domain.FormatHistoryEntry(group))
				}
				for _, pc := range summary.Pairs {
					out.Pairs = append(out.Pairs, pairCountJSON{A: pc.Pair.A, B: pc.Pair.B, Count: pc.Count})
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			rendered, err := reportadapter.RenderHistory(summary)
			if err != nil {
				return fmt.Errorf("render history: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(rendered, "\n"))
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print history as JSON")

	return cmd
}

func newHistoryPruneCmd(app *app) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove the oldest stored groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count < 1 {
				return fmt.Errorf("%w: --count must be positive", domain.ErrInvalidConfig)
			}

			log, closeHistory, err := app.openHistory(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = closeHistory() }()

			service := application.NewHistoryService(log, app.logger)
			for i := 0; i < count; i++ {
				group, err := service.PruneOldest(cmd.Context())
				if errors.Is(err, domain.ErrHistoryEmpty) {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "history is empty")
					return nil
				}
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Pruned %s\n", domain.FormatHistoryEntry(group))
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of groups to remove")

	return cmd
}
