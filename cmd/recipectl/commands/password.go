package commands

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	authsvc "github.com/ivankudzin/recipemarket/internal/services/auth"
)

// newPasswordHashCmd prints a bcrypt hash for seeding users by hand. The
// password comes from --password or the first line of stdin.
func newPasswordHashCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "password-hash",
		Short: "Print the bcrypt hash of a password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("password is required")
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if strings.TrimSpace(password) == "" {
				return errors.New("password is required")
			}

			hash, err := authsvc.HashPassword(password)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "Password to hash (read from stdin when empty)")
	return cmd
}
