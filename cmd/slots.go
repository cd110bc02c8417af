package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	reportadapter "github.com/bnema/huddle/internal/adapters/render/report"
	"github.com/bnema/huddle/internal/application"
	"github.com/spf13/cobra"
)

func newSlotsCmd(app *app) *cobra.Command {
	var weeksAhead int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "slots",
		Short: "List the candidate meeting slots of the next run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings := app.config.Settings
			if cmd.Flags().Changed("weeks-ahead") {
				settings.Slots.WeeksAhead = weeksAhead
			}
			if err := settings.Slots.Validate(); err != nil {
				return err
			}

			service := application.NewRunService(application.RunDependencies{Clock: app.clock, Logger: app.logger})
			slots := service.Slots(settings)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(slots)
			}

			rendered, err := reportadapter.RenderSlots(slots, reportadapter.RenderOptions{Location: settings.Slots.Location})
			if err != nil {
				return fmt.Errorf("render slots: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(rendered, "\n"))
			return err
		},
	}

	cmd.Flags().IntVar(&weeksAhead, "weeks-ahead", 0, "Override weeks_ahead from the config file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print slots as JSON")

	return cmd
}
