package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kartikbazzad/bunbase/bunpress/internal/auth"
	"github.com/kartikbazzad/bunbase/bunpress/internal/database"
	apperrors "github.com/kartikbazzad/bunbase/bunpress/internal/errors"
	"github.com/kartikbazzad/bunbase/bunpress/internal/models"
	"github.com/kartikbazzad/bunbase/bunpress/internal/validation"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account; --admin grants the back-office",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		email, _ := cmd.Flags().GetString("email")
		name, _ := cmd.Flags().GetString("name")
		password, _ := cmd.Flags().GetString("password")
		admin, _ := cmd.Flags().GetBool("admin")

		if !validation.Email(email) {
			return fmt.Errorf("invalid --email %q", email)
		}
		if len(password) < 8 {
			return errors.New("--password must be at least 8 characters")
		}
		if name == "" {
			name = email
		}
		roles := []string{models.RoleUser}
		if admin {
			roles = append(roles, models.RoleAdmin)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		db, err := database.NewDB(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		accounts := auth.NewAuth(db.Pool, auth.SessionPolicy{TTL: cfg.Security.SessionTTL, RememberTTL: cfg.Security.RememberTTL})
		user, err := accounts.RegisterUser(ctx, email, password, name, roles...)
		var fe apperrors.FieldErrors
		if errors.As(err, &fe) && admin {
			// Existing account: promote it.
			existing, gerr := accounts.GetUserByEmail(ctx, email)
			if gerr != nil {
				return gerr
			}
			if err := accounts.SetRoles(ctx, existing.ID, roles); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %s already existed and is now an administrator.\n", existing.Email)
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "User %s created (id %d, roles %v).\n", user.Email, user.ID, user.Roles)
		return nil
	},
}

func init() {
	userCreateCmd.Flags().String("email", "", "email address (required)")
	userCreateCmd.Flags().String("name", "", "display name")
	userCreateCmd.Flags().String("password", "", "password, 8 characters min. (required)")
	userCreateCmd.Flags().Bool("admin", false, "grant ROLE_ADMIN")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("password")
	userCmd.AddCommand(userCreateCmd)
}
