package main

import (
	"fmt"
	"net/http"

	"envie2sortir-backend/apperr"
	"envie2sortir-backend/logger"
	"envie2sortir-backend/models"
	"envie2sortir-backend/services"

	"github.com/spf13/cobra"
)

var verifySiretsCmd = &cobra.Command{
	Use:   "verify-sirets",
	Short: "Re-run the SIRET lookup for unverified professionals",
	Long: `Professionals who registered while the company registry was unreachable
are stored with siret_verified=false. This command retries the lookup and
fills in the company details of every match.`,
	RunE: runVerifySirets,
}

func runVerifySirets(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	e, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	lookup := services.NewSiretService(e.cfg.Integrations.Sirene, e.redis)

	var pros []models.Professional
	if err := e.db.WithContext(ctx).Where("siret_verified = ?", false).Find(&pros).Error; err != nil {
		return fmt.Errorf("load professionals: %w", err)
	}

	var verified, unknown, failed int
	for _, pro := range pros {
		info, err := lookup.Lookup(ctx, pro.Siret)
		switch {
		case err == nil:
		case apperr.StatusOf(err) == http.StatusNotFound:
			unknown++
			logger.L().Warn("siret not in registry", map[string]interface{}{"professional": pro.ID, "siret": pro.Siret})
			continue
		default:
			failed++
			logger.L().Warn("siret lookup failed", map[string]interface{}{"professional": pro.ID, "error": err})
			continue
		}

		if err := e.db.WithContext(ctx).Model(&pro).Updates(map[string]interface{}{
			"siret_verified": true,
			"company_name":   info.CompanyName,
			"legal_status":   info.LegalForm,
			"is_active":      pro.IsActive && info.Active,
		}).Error; err != nil {
			failed++
			logger.L().Error("saving verification failed", map[string]interface{}{"professional": pro.ID, "error": err})
			continue
		}
		verified++
	}

	fmt.Fprintf(cmd.OutOrStdout(), "checked=%d verified=%d unknown=%d failed=%d\n", len(pros), verified, unknown, failed)
	return nil
}
