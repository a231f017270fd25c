package cmd

import (
	"context"
	"fmt"
	"log/slog"

	errors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/identity"
	userPostgres "github.com/frahmantamala/expense-approval/internal/user/postgres"
	"github.com/frahmantamala/expense-approval/pkg/logger"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	roleEmail string
	roleName  string
)

// rolesCmd is the operator path for role changes, used to bootstrap the
// first admin before anyone can call the admin API.
var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Grant or revoke user roles",
}

var grantRoleCmd = &cobra.Command{
	Use:   "grant",
	Short: "Grant a role to a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGorm(cmd, func(ctx context.Context, db *gorm.DB, lg *slog.Logger) error {
			return ChangeRole(ctx, db, roleEmail, roleName, true, lg)
		})
	},
}

var revokeRoleCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Revoke a role from a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGorm(cmd, func(ctx context.Context, db *gorm.DB, lg *slog.Logger) error {
			return ChangeRole(ctx, db, roleEmail, roleName, false, lg)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{grantRoleCmd, revokeRoleCmd} {
		c.Flags().StringVar(&roleEmail, "email", "", "user email")
		c.Flags().StringVar(&roleName, "role", "", "admin, requester, approver, payer or viewer")
		_ = c.MarkFlagRequired("email")
		_ = c.MarkFlagRequired("role")
		rolesCmd.AddCommand(c)
	}
}

// ChangeRole grants or revokes one role on the live user with email.
func ChangeRole(ctx context.Context, db *gorm.DB, email, roleName string, grant bool, lg *slog.Logger) error {
	role, err := identity.ParseRole(roleName)
	if err != nil {
		return err
	}

	repo := userPostgres.NewUserRepository(db)
	u, err := repo.GetByEmail(ctx, email, false)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeNotFound) {
			return fmt.Errorf("no active user with email %s", email)
		}
		return err
	}

	if grant {
		if err := repo.AddRole(ctx, u.ID, role); err != nil {
			return err
		}
		lg.Info("role granted", "user_id", u.ID, "email", u.Email, "role", role)
		return nil
	}

	removed, err := repo.RemoveRole(ctx, u.ID, role)
	if err != nil {
		return err
	}
	if !removed {
		lg.Warn("user did not hold role", "user_id", u.ID, "email", u.Email, "role", role)
		return nil
	}
	lg.Info("role revoked", "user_id", u.ID, "email", u.Email, "role", role)
	return nil
}

func withGorm(cmd *cobra.Command, fn func(ctx context.Context, db *gorm.DB, lg *slog.Logger) error) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	setupLogger(cfg)

	db, err := initDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	gormDB, err := initGorm(db)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, gormDB, logger.LoggerWrapper())
}
