package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	lucent "github.com/lucent-admin/lucent"
	"github.com/lucent-admin/lucent/internal/config"
	"github.com/lucent-admin/lucent/internal/store"
	"github.com/lucent-admin/lucent/internal/web/controller"
)

// NewCreateAdminCommand creates the create-admin command, which prompts
// for credentials and inserts a panel user into the configured store.
func NewCreateAdminCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin panel user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger := zap.NewNop()
			panel, err := lucent.New(cfg, logger)
			if err != nil {
				return fmt.Errorf("build panel: %w", err)
			}
			defer panel.Close()

			var answers struct {
				Email    string
				Password string
			}
			questions := []*survey.Question{
				{
					Name:     "email",
					Prompt:   &survey.Input{Message: "Email:"},
					Validate: survey.Required,
				},
				{
					Name:     "password",
					Prompt:   &survey.Password{Message: "Password:"},
					Validate: survey.MinLength(8),
				},
			}
			if err := survey.Ask(questions, &answers); err != nil {
				return err
			}
			answers.Email = strings.TrimSpace(strings.ToLower(answers.Email))

			ctx := context.Background()
			st := panel.Store()

			q := store.Query{Page: 1, PerPage: 1}.Normalize()
			q.Where("email", store.OpEqual, answers.Email)
			existing, err := st.Fetch(ctx, controller.AdminCollection, q)
			if err != nil {
				return fmt.Errorf("check existing users: %w", err)
			}
			if existing.Total > 0 {
				return fmt.Errorf("an admin with email %s already exists", answers.Email)
			}

			hash, err := bcrypt.GenerateFromPassword([]byte(answers.Password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}

			user, err := st.Insert(ctx, controller.AdminCollection, store.Record{
				"email":    answers.Email,
				"password": string(hash),
			})
			if err != nil {
				return fmt.Errorf("insert admin user: %w", err)
			}

			color.Green("Admin user %s created (id %s)", answers.Email, user.ID())
			return nil
		},
	}
}
