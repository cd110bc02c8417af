package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var errEmptySecret = errors.New("secret value is empty")

func newSecretCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Store credentials referenced by the config file",
	}

	cmd.AddCommand(newSecretSetCmd(app), newSecretDeleteCmd(app))

	return cmd
}

func newSecretSetCmd(app *app) *cobra.Command {
	var value string

	cmd := &cobra.Command{
		Use:   "set <ref>",
		Short: "Store a secret under a pass://, file:// or bare reference",
		Long:  "Stores a secret such as the calendar token or SMTP password. Without --value the first line of stdin is used.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("value") {
				read, err := readFirstLine(cmd.InOrStdin())
				if err != nil {
					return err
				}
				value = read
			}
			if strings.TrimSpace(value) == "" {
				return errEmptySecret
			}

			if err := app.secretStore.Put(cmd.Context(), args[0], value); err != nil {
				return fmt.Errorf("store secret %s: %w", args[0], err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Stored %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&value, "value", "", "Secret value (default: read from stdin)")

	return cmd
}

func newSecretDeleteCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <ref>",
		Short: "Delete a stored secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.secretStore.Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("delete secret %s: %w", args[0], err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func readFirstLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read secret from stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
