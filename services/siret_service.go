package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"envie2sortir-backend/apperr"
	"envie2sortir-backend/config"
	"envie2sortir-backend/logger"
	"envie2sortir-backend/metrics"
	"envie2sortir-backend/utils"

	"github.com/redis/go-redis/v9"
)

const (
	sireneSearchEndpoint = "/search"
	siretCacheTTL        = 24 * time.Hour
)

// CompanyInfo is what a SIRET lookup tells us about a business.
type CompanyInfo struct {
	Siret        string `json:"siret"`
	Siren        string `json:"siren"`
	CompanyName  string `json:"companyName"`
	LegalForm    string `json:"legalForm"`
	Address      string `json:"address"`
	PostalCode   string `json:"postalCode"`
	City         string `json:"city"`
	ActivityCode string `json:"activityCode"`
	Active       bool   `json:"active"`
}

type sireneEtablissement struct {
	Siret              string `json:"siret"`
	Adresse            string `json:"adresse"`
	CodePostal         string `json:"code_postal"`
	LibelleCommune     string `json:"libelle_commune"`
	ActivitePrincipale string `json:"activite_principale"`
	EtatAdministratif  string `json:"etat_administratif"`
}

type sireneResult struct {
	Siren                  string                `json:"siren"`
	NomComplet             string                `json:"nom_complet"`
	NomRaisonSociale       string                `json:"nom_raison_sociale"`
	NatureJuridique        string                `json:"nature_juridique"`
	ActivitePrincipale     string                `json:"activite_principale"`
	EtatAdministratif      string                `json:"etat_administratif"`
	Siege                  *sireneEtablissement  `json:"siege"`
	MatchingEtablissements []sireneEtablissement `json:"matching_etablissements"`
}

type sireneSearchResponse struct {
	Results      []sireneResult `json:"results"`
	TotalResults int            `json:"total_results"`
}

// SiretService verifies SIRET numbers against the Recherche d'Entreprises API.
type SiretService struct {
	baseURL string
	client  *http.Client
	cache   jsonCache
}

func NewSiretService(cfg config.SireneConfig, rdb *redis.Client) *SiretService {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SiretService{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: 2,
			},
		},
		cache: newJSONCache(rdb, "siret", siretCacheTTL),
	}
}

// Lookup validates the format then fetches company details, using the cache first.
func (s *SiretService) Lookup(ctx context.Context, siret string) (*CompanyInfo, error) {
	siret = utils.NormalizeSiret(siret)
	if !utils.ValidateSiret(siret) {
		return nil, apperr.NewValidation("Invalid SIRET number")
	}

	var cached CompanyInfo
	if s.cache.get(ctx, siret, &cached) {
		return &cached, nil
	}

	info, err := s.fetch(ctx, siret)
	if err != nil {
		metrics.ExternalCallsTotal.WithLabelValues("sirene", "error").Inc()
		return nil, err
	}
	metrics.ExternalCallsTotal.WithLabelValues("sirene", "ok").Inc()

	if err := s.cache.set(ctx, siret, info); err != nil {
		logger.L().Warn("failed to cache siret lookup", map[string]interface{}{"siret": siret, "error": err})
	}
	return info, nil
}

func (s *SiretService) fetch(ctx context.Context, siret string) (*CompanyInfo, error) {
	params := url.Values{}
	params.Set("q", siret)
	params.Set("page", "1")
	params.Set("per_page", "1")
	searchURL := fmt.Sprintf("%s%s?%s", s.baseURL, sireneSearchEndpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, apperr.NewInternal("failed to build SIRET request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, apperr.NewExternalService("sirene", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.NewExternalService("sirene", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.NewExternalService("sirene", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var payload sireneSearchResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, apperr.NewExternalService("sirene", err)
	}

	for _, result := range payload.Results {
		if info := toCompanyInfo(siret, result); info != nil {
			return info, nil
		}
	}
	return nil, apperr.NewNotFound("SIRET")
}

func toCompanyInfo(siret string, r sireneResult) *CompanyInfo {
	var etab *sireneEtablissement
	if r.Siege != nil && r.Siege.Siret == siret {
		etab = r.Siege
	}
	for i := range r.MatchingEtablissements {
		if r.MatchingEtablissements[i].Siret == siret {
			etab = &r.MatchingEtablissements[i]
			break
		}
	}
	if etab == nil {
		return nil
	}

	name := r.NomRaisonSociale
	if name == "" {
		name = r.NomComplet
	}
	activity := etab.ActivitePrincipale
	if activity == "" {
		activity = r.ActivitePrincipale
	}
	return &CompanyInfo{
		Siret:        siret,
		Siren:        r.Siren,
		CompanyName:  name,
		LegalForm:    r.NatureJuridique,
		Address:      etab.Adresse,
		PostalCode:   etab.CodePostal,
		City:         etab.LibelleCommune,
		ActivityCode: activity,
		Active:       etab.EtatAdministratif == "A",
	}
}
