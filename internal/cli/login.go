package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/me/lrnalaunch/pkg/bvbrc"
)

func newLoginCmd() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a BV-BRC authentication token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if token == "" {
				fmt.Fprint(out, "BV-BRC token: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read token: %w", err)
				}
				token = strings.TrimSpace(line)
			}

			parsed, err := bvbrc.ParseToken(token)
			if err != nil {
				return err
			}
			if parsed.IsExpired() {
				return fmt.Errorf("token for %s expired %s", parsed.Username, parsed.Expiry.Format("2006-01-02"))
			}

			p, err := bvbrc.SaveToken(token)
			if err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			fmt.Fprintf(out, "Logged in as %s; token saved to %s\n", parsed.Username, p)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "BV-BRC authentication token (prompted if omitted)")
	return cmd
}
