package main

import (
	"envie2sortir-backend/logger"
	"envie2sortir-backend/models"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run schema migrations",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	e, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	if err := models.AutoMigrate(e.db.WithContext(ctx)); err != nil {
		return err
	}

	logger.L().Info("migrations applied", map[string]interface{}{"tables": len(models.All())})
	return nil
}
