package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"envie2sortir-backend/logger"
	"envie2sortir-backend/models"
	"envie2sortir-backend/services"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var dryRun bool

// fixCoordinatesCmd geocodes listings that have no coordinates or sit outside France
var fixCoordinatesCmd = &cobra.Command{
	Use:   "fix-coordinates",
	Short: "Geocode establishments with missing or out-of-France coordinates",
	Long: `Scans every establishment and re-geocodes the ones whose coordinates are
missing or fall outside metropolitan France and Corsica.

With --dry-run nothing is written; the new coordinates are only printed.`,
	RunE: runFixCoordinates,
}

func init() {
	fixCoordinatesCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print changes without saving them")
}

// needsGeocoding reports whether an establishment's coordinates should be recomputed.
func needsGeocoding(est *models.Establishment) bool {
	if !est.HasCoordinates() {
		return true
	}
	return !services.InFrance(*est.Latitude, *est.Longitude)
}

type addressGeocoder interface {
	Geocode(ctx context.Context, address string) (*services.GeoResult, error)
}

type fixReport struct {
	scanned, fixed, rejected, failed int
}

func runFixCoordinates(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	e, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	geocoder := services.NewGeocodingService(e.cfg.Integrations.Nominatim, e.cfg.Integrations.Google, e.redis)

	out := cmd.OutOrStdout()
	rep, err := fixCoordinates(ctx, e.db, geocoder, out, dryRun)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "scanned=%d fixed=%d rejected=%d failed=%d dry-run=%v\n",
		rep.scanned, rep.fixed, rep.rejected, rep.failed, dryRun)
	return nil
}

// fixCoordinates re-geocodes listings and only keeps results that land in France.
func fixCoordinates(ctx context.Context, db *gorm.DB, geocoder addressGeocoder, out io.Writer, dryRun bool) (fixReport, error) {
	var rep fixReport
	var establishments []models.Establishment
	if err := db.WithContext(ctx).Find(&establishments).Error; err != nil {
		return rep, fmt.Errorf("load establishments: %w", err)
	}
	rep.scanned = len(establishments)

	for i := range establishments {
		est := &establishments[i]
		if !needsGeocoding(est) {
			continue
		}

		address := strings.Join([]string{est.Address, est.PostalCode, est.City, est.Country}, " ")
		res, err := geocoder.Geocode(ctx, address)
		if err != nil {
			rep.failed++
			logger.L().Warn("geocoding failed", map[string]interface{}{"establishment": est.Slug, "error": err})
			continue
		}
		if !services.InFrance(res.Latitude, res.Longitude) {
			rep.rejected++
			logger.L().Warn("geocoded outside France, keeping previous coordinates", map[string]interface{}{
				"establishment": est.Slug,
				"latitude":      res.Latitude,
				"longitude":     res.Longitude,
			})
			continue
		}

		fmt.Fprintf(out, "%-40s %.6f,%.6f (%s)\n", est.Slug, res.Latitude, res.Longitude, res.Provider)
		if dryRun {
			rep.fixed++
			continue
		}
		if err := db.WithContext(ctx).Model(est).Updates(map[string]interface{}{
			"latitude":  res.Latitude,
			"longitude": res.Longitude,
		}).Error; err != nil {
			rep.failed++
			logger.L().Error("saving coordinates failed", map[string]interface{}{"establishment": est.Slug, "error": err})
			continue
		}
		rep.fixed++
	}
	return rep, nil
}
