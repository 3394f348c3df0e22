package main

import (
	"errors"
	"fmt"
	"strings"

	"envie2sortir-backend/models"
	"envie2sortir-backend/utils"

	"github.com/spf13/cobra"
)

var (
	resetEmail    string
	resetPassword string
	resetPro      bool
)

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Set a new password for a user or professional",
	RunE:  runResetPassword,
}

func init() {
	resetPasswordCmd.Flags().StringVar(&resetEmail, "email", "", "Account email")
	resetPasswordCmd.Flags().StringVar(&resetPassword, "password", "", "New password (min 8 characters)")
	resetPasswordCmd.Flags().BoolVar(&resetPro, "pro", false, "Target a professional account")
	_ = resetPasswordCmd.MarkFlagRequired("email")
	_ = resetPasswordCmd.MarkFlagRequired("password")
}

func runResetPassword(cmd *cobra.Command, args []string) error {
	if len(resetPassword) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	e, err := bootstrap(ctx)
	if err != nil {
		return err
	}

	hashed, err := utils.HashPassword(resetPassword)
	if err != nil {
		return err
	}

	var model interface{} = &models.User{}
	if resetPro {
		model = &models.Professional{}
	}
	email := strings.ToLower(strings.TrimSpace(resetEmail))

	res := e.db.WithContext(ctx).Model(model).Where("email = ?", email).Update("password", hashed)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("no account with email %s", email)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "password updated for %s\n", email)
	return nil
}
