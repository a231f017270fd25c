package cmd

import (
	"context"
	"fmt"
	"log/slog"

	errors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/category"
	categoryPostgres "github.com/frahmantamala/expense-approval/internal/category/postgres"
	"github.com/frahmantamala/expense-approval/internal/core/database"
	"github.com/frahmantamala/expense-approval/internal/core/identity"
	"github.com/frahmantamala/expense-approval/internal/receiver"
	receiverPostgres "github.com/frahmantamala/expense-approval/internal/receiver/postgres"
	"github.com/frahmantamala/expense-approval/internal/user"
	userPostgres "github.com/frahmantamala/expense-approval/internal/user/postgres"
	"github.com/frahmantamala/expense-approval/pkg/logger"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed demo users (one per role), categories, accounts and receivers. Safe to run repeatedly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		setupLogger(cfg)
		lg := logger.LoggerWrapper()

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
		if clearData {
			if err := clearSeedTables(ctx, gormDB); err != nil {
				return err
			}
			lg.Info("existing data cleared")
		}
		return Seed(ctx, gormDB, lg)
	},
}

type seedUser struct {
	Name  string
	Email string
	Roles []identity.Role
}

var seedUsers = []seedUser{
	{"Admin", "admin@example.com", []identity.Role{identity.RoleAdmin}},
	{"Ana Requester", "requester@example.com", []identity.Role{identity.RoleRequester}},
	{"Alberto Approver", "approver@example.com", []identity.Role{identity.RoleApprover}},
	{"Paula Payer", "payer@example.com", []identity.Role{identity.RolePayer}},
	{"Victor Viewer", "viewer@example.com", []identity.Role{identity.RoleViewer}},
}

var seedCatalog = map[string][]string{
	"Transporte": {"Taxi", "Bus"},
	"Comida":     {"Almuerzo", "Cena"},
	"Oficina":    {"Papelería", "Equipos"},
}

var seedCategoryOrder = []string{"Transporte", "Comida", "Oficina"}

var seedReceivers = []struct {
	Name     string
	Email    string
	Category string
}{
	{"Taxi Seguro", "facturas@taxiseguro.example.com", "Transporte"},
	{"Restaurante El Buen Sabor", "caja@buensabor.example.com", "Comida"},
	{"Papelería Central", "ventas@papeleria.example.com", "Oficina"},
}

// Seed inserts whatever demo rows are missing, all in one transaction.
func Seed(ctx context.Context, db *gorm.DB, lg *slog.Logger) error {
	users := userPostgres.NewUserRepository(db)
	catalog := categoryPostgres.NewCategoryRepository(db)
	receivers := receiverPostgres.NewReceiverRepository(db)

	return database.NewTransactionManager(db).RunInTx(ctx, func(ctx context.Context) error {
		var adminID int64
		for _, su := range seedUsers {
			id, err := seedOneUser(ctx, users, su, lg)
			if err != nil {
				return err
			}
			if adminID == 0 {
				adminID = id
			}
		}

		categoryIDs, err := seedCategories(ctx, catalog, lg)
		if err != nil {
			return err
		}

		existing, err := receivers.List(ctx)
		if err != nil {
			return err
		}
		have := make(map[string]bool, len(existing))
		for _, r := range existing {
			have[r.Name] = true
		}
		for _, sr := range seedReceivers {
			if have[sr.Name] {
				continue
			}
			email := sr.Email
			rc := &receiver.Receiver{
				Name:        sr.Name,
				Email:       &email,
				CreatedBy:   adminID,
				CategoryIDs: []int64{categoryIDs[sr.Category]},
				AccountIDs:  []int64{},
			}
			if err := receivers.Create(ctx, rc); err != nil {
				return fmt.Errorf("seed receiver %s: %w", sr.Name, err)
			}
			lg.Info("seeded receiver", "name", sr.Name, "id", rc.ID)
		}
		return nil
	})
}

func seedOneUser(ctx context.Context, repo *userPostgres.UserRepository, su seedUser, lg *slog.Logger) (int64, error) {
	u, err := repo.GetByEmail(ctx, su.Email, true)
	switch {
	case err == nil:
		for _, role := range su.Roles {
			if err := repo.AddRole(ctx, u.ID, role); err != nil {
				return 0, err
			}
		}
		return u.ID, nil
	case errors.IsType(err, errors.ErrorTypeNotFound):
		u = &user.User{Roles: identity.NewRoles(su.Roles...)}
		u.Name = su.Name
		u.Email = user.NormalizeEmail(su.Email)
		if err := repo.Create(ctx, u); err != nil {
			return 0, fmt.Errorf("seed user %s: %w", su.Email, err)
		}
		lg.Info("seeded user", "email", u.Email, "roles", u.Roles.Strings())
		return u.ID, nil
	default:
		return 0, err
	}
}

func seedCategories(ctx context.Context, repo category.RepositoryAPI, lg *slog.Logger) (map[string]int64, error) {
	existing, err := repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]int64, len(existing))
	for _, c := range existing {
		ids[c.Description] = c.ID
	}

	for _, name := range seedCategoryOrder {
		if _, ok := ids[name]; !ok {
			c := &category.Category{Description: name}
			if err := repo.CreateCategory(ctx, c); err != nil {
				return nil, fmt.Errorf("seed category %s: %w", name, err)
			}
			ids[name] = c.ID
			lg.Info("seeded category", "description", name, "id", c.ID)
		}

		catID := ids[name]
		accounts, err := repo.ListAccounts(ctx, &catID)
		if err != nil {
			return nil, err
		}
		haveAccount := make(map[string]bool, len(accounts))
		for _, a := range accounts {
			haveAccount[a.Description] = true
		}
		for _, desc := range seedCatalog[name] {
			if haveAccount[desc] {
				continue
			}
			if err := repo.CreateAccount(ctx, &category.Account{CategoryID: catID, Description: desc}); err != nil {
				return nil, fmt.Errorf("seed account %s: %w", desc, err)
			}
		}
	}
	return ids, nil
}

func clearSeedTables(ctx context.Context, db *gorm.DB) error {
	err := db.WithContext(ctx).Exec(`TRUNCATE expense_accounts, expense_categories, expenses,
		receiver_accounts, receiver_categories, receivers, accounts, categories,
		otp_codes, user_roles, users RESTART IDENTITY CASCADE`).Error
	if err != nil {
		return fmt.Errorf("clear seed tables: %w", err)
	}
	return nil
}
