package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/dmitrijs2005/gophauth/internal/server/validation"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

type userCreator interface {
	Create(ctx context.Context, in services.CreateUserInput) (*models.User, error)
}

// NewCreateAdminCmd creates the create-admin subcommand.
func NewCreateAdminCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a verified administrator account",
		Long: `Create a verified ADMIN account. The password is read from the
terminal twice without echo and must meet the signup complexity rules.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCreateAdmin(cmd, email)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "administrator email")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func runCreateAdmin(cmd *cobra.Command, email string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	password, err := promptPassword(cmd.ErrOrStderr(), "Password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	confirmation, err := promptPassword(cmd.ErrOrStderr(), "Repeat password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirmation)

	ctx := cmd.Context()
	db, rm, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	us := services.NewUserService(db, rm, cryptox.NewBcryptHasher(cfg.BcryptCost))
	user, err := createAdmin(ctx, us, email, password, confirmation)
	if err != nil {
		return err
	}

	cmd.Printf("Created admin %s (%s)\n", user.Email, user.ID)
	return nil
}

func createAdmin(ctx context.Context, us userCreator, email string, password, confirmation []byte) (*models.User, error) {
	if err := validation.ValidateNewPassword(string(password), string(confirmation)); err != nil {
		return nil, err
	}
	return us.Create(ctx, services.CreateUserInput{
		Email:    email,
		Password: string(password),
		Role:     models.RoleAdmin,
		Verified: true,
	})
}

func promptPassword(w io.Writer, prompt string) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	return pw, nil
}
