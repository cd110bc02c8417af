package cmd

import (
	"fmt"

	"github.com/bnema/huddle/internal/domain"
	"github.com/spf13/cobra"
)

func newRosterCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Manage the people taking part",
	}

	cmd.AddCommand(
		newRosterListCmd(app),
		newRosterAddCmd(app),
		newRosterRemoveCmd(app),
	)

	return cmd
}

func newRosterListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the roster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			roster, err := app.repo.List(cmd.Context())
			if err != nil {
				return err
			}

			if len(roster) == 0 {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "roster is empty (%s)\n", app.repo.Path())
				return nil
			}
			for _, person := range roster {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", person.ID, person.Name)
			}

			return nil
		},
	}
}

func newRosterAddCmd(app *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "add <email>",
		Short: "Add a person to the roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			person := domain.Person{ID: domain.PersonID(args[0]), Name: name}
			if err := app.repo.AddPerson(cmd.Context(), person); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", person.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name used in emails and event titles")

	return cmd
}

func newRosterRemoveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <email>",
		Short: "Remove a person from the roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.PersonID(args[0])
			if err := app.repo.RemovePerson(cmd.Context(), id); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", id)
			return nil
		},
	}
}
