package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/persistence"
	"github.com/goliatone/go-accounts/server"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var (
	userName     string
	userEmail    string
	userPassword string
	userRole     string
)

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account",
	Long: `Create an account directly in the database, e.g. the first admin.

Example:
  accounts user create --name "Jane Admin" --email jane@example.com \
    --password 'S3cure!pass' --role admin

Security note: The password will appear in shell history.
Consider using an environment variable:
  accounts user create ... --password "$ADMIN_PASSWORD"`,
	RunE: runUserCreate,
}

func init() {
	userCreateCmd.Flags().StringVar(&userName, "name", "", "display name")
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "email address")
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "password")
	userCreateCmd.Flags().StringVar(&userRole, "role", string(accounts.RoleUser), "role: user, moderator or admin")
	_ = userCreateCmd.MarkFlagRequired("name")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userCreateCmd)
	rootCmd.AddCommand(userCmd)
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	loggers := loggerProvider(newLogger(cfg.Log))

	db, err := openDatabase(ctx, cfg, loggers)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.AutoMigrateEnabled() {
		if err := persistence.Migrate(ctx, db, cfg.Database.Driver); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	services, err := server.NewServices(cfg, db, loggers, nil)
	if err != nil {
		return err
	}

	user, err := services.Users.Create(ctx, nil, accounts.CreateUserInput{
		Name:            userName,
		Email:           userEmail,
		Password:        userPassword,
		ConfirmPassword: userPassword,
		Role:            accounts.Role(userRole),
	})
	if err != nil {
		if fields, ok := accounts.ValidationFields(err); ok {
			for field, msg := range fields {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", field, msg)
			}
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created %s user %s (%s)\n", user.Role, user.Email, user.ID)
	return nil
}
