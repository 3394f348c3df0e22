package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"envie2sortir-backend/logger"
	"envie2sortir-backend/models"
	"envie2sortir-backend/services"
	"envie2sortir-backend/utils"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

var seedFilePath string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert professionals and establishments from a YAML file",
	Long: `Reads a YAML document with a top-level "professionals" list. Each entry may
carry an "establishment". Professionals whose email or SIRET already exists are
skipped, so the command can be re-run safely.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFilePath, "file", "f", "seed.yaml", "Seed file")
}

type seedFile struct {
	Professionals []seedProfessional `yaml:"professionals"`
}

type seedProfessional struct {
	Email         string             `yaml:"email"`
	Password      string             `yaml:"password"`
	FirstName     string             `yaml:"first_name"`
	LastName      string             `yaml:"last_name"`
	Phone         string             `yaml:"phone"`
	Siret         string             `yaml:"siret"`
	CompanyName   string             `yaml:"company_name"`
	Plan          string             `yaml:"plan"`
	Establishment *seedEstablishment `yaml:"establishment"`
}

type seedEstablishment struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Address     string   `yaml:"address"`
	City        string   `yaml:"city"`
	PostalCode  string   `yaml:"postal_code"`
	Latitude    *float64 `yaml:"latitude"`
	Longitude   *float64 `yaml:"longitude"`
	Category    string   `yaml:"category"`
	Tags        []string `yaml:"tags"`
	Status      string   `yaml:"status"`
}

type seedResult struct {
	Created int
	Skipped int
}

func parseSeed(r io.Reader) (*seedFile, error) {
	var sf seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sf); err != nil {
		if errors.Is(err, io.EOF) {
			return &sf, nil
		}
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	for i, p := range sf.Professionals {
		if p.Email == "" || p.Password == "" {
			return nil, fmt.Errorf("professional #%d: email and password are required", i+1)
		}
		if !utils.ValidateSiret(utils.NormalizeSiret(p.Siret)) {
			return nil, fmt.Errorf("professional %s: invalid SIRET %q", p.Email, p.Siret)
		}
		if est := p.Establishment; est != nil && (est.Name == "" || est.Address == "" || est.City == "") {
			return nil, fmt.Errorf("professional %s: establishment needs name, address and city", p.Email)
		}
	}
	return &sf, nil
}

// applySeed inserts each professional and its establishment in one transaction.
func applySeed(ctx context.Context, db *gorm.DB, sf *seedFile) (seedResult, error) {
	var res seedResult
	for _, p := range sf.Professionals {
		siret := utils.NormalizeSiret(p.Siret)
		email := strings.ToLower(strings.TrimSpace(p.Email))

		var count int64
		if err := db.WithContext(ctx).Model(&models.Professional{}).
			Where("email = ? OR siret = ?", email, siret).Count(&count).Error; err != nil {
			return res, err
		}
		if count > 0 {
			res.Skipped++
			continue
		}

		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			pro := models.Professional{
				Email:            email,
				Password:         p.Password,
				FirstName:        p.FirstName,
				LastName:         p.LastName,
				Phone:            p.Phone,
				Siret:            siret,
				CompanyName:      p.CompanyName,
				SubscriptionPlan: p.Plan,
				IsActive:         true,
			}
			if err := tx.Create(&pro).Error; err != nil {
				return err
			}
			if p.Establishment == nil {
				return nil
			}
			return seedEstablishmentFor(tx, p.Establishment, &pro)
		})
		if err != nil {
			return res, fmt.Errorf("seed %s: %w", email, err)
		}
		res.Created++
	}
	return res, nil
}

func seedEstablishmentFor(tx *gorm.DB, in *seedEstablishment, owner *models.Professional) error {
	slug, err := utils.UniqueSlug(in.Name, func(s string) (bool, error) {
		var n int64
		err := tx.Model(&models.Establishment{}).Where("slug = ?", s).Count(&n).Error
		return n > 0, err
	})
	if err != nil {
		return err
	}

	suggestion := services.SuggestType(services.SuggestionInput{Name: in.Name, Description: in.Description}, nil)
	category := in.Category
	if category == "" {
		category = suggestion.Type
	}
	tags := in.Tags
	if tags == nil {
		tags = suggestion.Tags
	}

	est := models.Establishment{
		Name:        in.Name,
		Slug:        slug,
		Description: in.Description,
		Address:     in.Address,
		City:        in.City,
		PostalCode:  in.PostalCode,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Category:    category,
		Activities:  []string{},
		Tags:        tags,
		Images:      []string{},
		Horaires:    models.JSONB{},
		Status:      in.Status,
		OwnerID:     owner.ID,
	}
	return tx.Create(&est).Error
}

func runSeed(cmd *cobra.Command, args []string) error {
	f, err := os.Open(seedFilePath)
	if err != nil {
		return err
	}
	defer f.Close()

	sf, err := parseSeed(f)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	e, err := bootstrap(ctx)
	if err != nil {
		return err
	}

	res, err := applySeed(ctx, e.db, sf)
	if err != nil {
		return err
	}

	logger.L().Info("seed applied", map[string]interface{}{"created": res.Created, "skipped": res.Skipped})
	fmt.Fprintf(cmd.OutOrStdout(), "created=%d skipped=%d\n", res.Created, res.Skipped)
	return nil
}
