package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ivankudzin/recipemarket/internal/domain/enums"
	pgrepo "github.com/ivankudzin/recipemarket/internal/repo/postgres"
	redrepo "github.com/ivankudzin/recipemarket/internal/repo/redis"
)

// newPromoteAdminCmd changes a user's role. Existing sessions carry the old
// role in their claims, so they are revoked.
func newPromoteAdminCmd(g *globals) *cobra.Command {
	var demote bool

	cmd := &cobra.Command{
		Use:   "promote-admin <username>",
		Short: "Grant (or with --demote revoke) the admin role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := g.load()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx := cmd.Context()
			pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()

			role := enums.RoleAdmin
			if demote {
				role = enums.RoleUser
			}

			user, err := pgrepo.NewUserRepo(pool).SetRole(ctx, args[0], role)
			if err != nil {
				if errors.Is(err, pgrepo.ErrUserNotFound) {
					return fmt.Errorf("user %q not found", args[0])
				}
				return err
			}

			client := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
			defer func() { _ = client.Close() }()
			if err := redrepo.NewSessionRepo(client).DeleteAllForUser(ctx, user.ID); err != nil {
				log.Warn("role changed but sessions were not revoked", zap.Int64("user_id", user.ID), zap.Error(err))
			}

			log.Info("user role changed", zap.Int64("user_id", user.ID), zap.String("role", string(role)))
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", user.Username, role)
			return nil
		},
	}
	cmd.Flags().BoolVar(&demote, "demote", false, "Revoke admin instead of granting it")
	return cmd
}
