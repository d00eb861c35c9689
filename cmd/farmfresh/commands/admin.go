package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/farmfresh/internal/service"
	"github.com/spf13/cobra"
)

var (
	// create-admin flags
	adminName     string
	adminEmail    string
	adminPassword string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create or promote an admin account",
	Long: `Create an admin account, or grant the admin role to an existing user.

Examples:
  farmfresh create-admin --email ops@farmfresh.test --name Ops --password s3cret!
  farmfresh create-admin --email ann@example.com   # promote an existing user`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCreateAdmin(cmd)
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "Admin email (required)")
	createAdminCmd.Flags().StringVar(&adminName, "name", "Admin", "Display name for a new account")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "Password for a new account")
	_ = createAdminCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(createAdminCmd)
}

func runCreateAdmin(cmd *cobra.Command) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	repos := newRepositories(db)
	// sessions and tokens are not needed to create accounts
	auth := service.NewAuthService(repos.users, nil, nil)

	user, err := auth.EnsureAdmin(ctx, service.RegisterRequest{
		Name:     adminName,
		Email:    adminEmail,
		Password: adminPassword,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) is an admin\n", user.Email, user.ID.Hex())
	return nil
}
