package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"envie2sortir-backend/apperr"
	"envie2sortir-backend/config"
	"envie2sortir-backend/logger"
	"envie2sortir-backend/metrics"

	"github.com/redis/go-redis/v9"
)

const geocodeCacheTTL = 7 * 24 * time.Hour

var errNoGeocodeResult = errors.New("no result")

type GeoResult struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	DisplayName string  `json:"displayName"`
	Provider    string  `json:"provider"`
}

// Geocoder resolves a postal address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*GeoResult, error)
}

// GeocodingService queries Nominatim and falls back to Google when an API key is set.
type GeocodingService struct {
	nominatimURL string
	userAgent    string
	googleURL    string
	googleKey    string
	client       *http.Client
	cache        jsonCache
}

func NewGeocodingService(nominatim config.NominatimConfig, google config.GoogleConfig, rdb *redis.Client) *GeocodingService {
	return &GeocodingService{
		nominatimURL: strings.TrimRight(nominatim.BaseURL, "/"),
		userAgent:    nominatim.UserAgent,
		googleURL:    google.GeocodingURL,
		googleKey:    google.APIKey,
		client:       &http.Client{Timeout: 10 * time.Second},
		cache:        newJSONCache(rdb, "geocode", geocodeCacheTTL),
	}
}

func (s *GeocodingService) Geocode(ctx context.Context, address string) (*GeoResult, error) {
	address = strings.TrimSpace(address)
	if len(address) < 3 {
		return nil, apperr.NewValidation("Address is required")
	}
	key := strings.ToLower(strings.Join(strings.Fields(address), " "))

	var cached GeoResult
	if s.cache.get(ctx, key, &cached) {
		return &cached, nil
	}

	result, err := s.nominatim(ctx, address)
	if err != nil {
		logger.L().Warn("nominatim geocoding failed", map[string]interface{}{"address": address, "error": err})
		if s.googleKey == "" {
			return nil, s.failure("nominatim", err)
		}
		result, err = s.google(ctx, address)
		if err != nil {
			return nil, s.failure("google", err)
		}
	}

	if err := s.cache.set(ctx, key, result); err != nil {
		logger.L().Warn("failed to cache geocoding result", map[string]interface{}{"error": err})
	}
	return result, nil
}

func (s *GeocodingService) failure(provider string, err error) error {
	if errors.Is(err, errNoGeocodeResult) {
		return apperr.NewNotFound("Address")
	}
	return apperr.NewExternalService(provider, err)
}

func (s *GeocodingService) nominatim(ctx context.Context, address string) (*GeoResult, error) {
	params := url.Values{}
	params.Set("q", address)
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("countrycodes", "fr")

	var places []struct {
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
		DisplayName string `json:"display_name"`
	}
	if err := s.getJSON(ctx, "nominatim", s.nominatimURL+"/search?"+params.Encode(), &places); err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return nil, errNoGeocodeResult
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude %q: %w", places[0].Lat, err)
	}
	lng, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude %q: %w", places[0].Lon, err)
	}
	return &GeoResult{Latitude: lat, Longitude: lng, DisplayName: places[0].DisplayName, Provider: "nominatim"}, nil
}

func (s *GeocodingService) google(ctx context.Context, address string) (*GeoResult, error) {
	params := url.Values{}
	params.Set("address", address)
	params.Set("region", "fr")
	params.Set("key", s.googleKey)

	var payload struct {
		Status  string `json:"status"`
		Results []struct {
			FormattedAddress string `json:"formatted_address"`
			Geometry         struct {
				Location struct {
					Lat float64 `json:"lat"`
					Lng float64 `json:"lng"`
				} `json:"location"`
			} `json:"geometry"`
		} `json:"results"`
	}
	if err := s.getJSON(ctx, "google_geocoding", s.googleURL+"?"+params.Encode(), &payload); err != nil {
		return nil, err
	}
	switch payload.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, errNoGeocodeResult
	default:
		return nil, fmt.Errorf("google geocoding status %s", payload.Status)
	}
	if len(payload.Results) == 0 {
		return nil, errNoGeocodeResult
	}

	r := payload.Results[0]
	return &GeoResult{
		Latitude:    r.Geometry.Location.Lat,
		Longitude:   r.Geometry.Location.Lng,
		DisplayName: r.FormattedAddress,
		Provider:    "google",
	}, nil
}

func (s *GeocodingService) getJSON(ctx context.Context, service, target string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		metrics.ExternalCallsTotal.WithLabelValues(service, "error").Inc()
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.ExternalCallsTotal.WithLabelValues(service, "error").Inc()
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.ExternalCallsTotal.WithLabelValues(service, "error").Inc()
		return err
	}
	metrics.ExternalCallsTotal.WithLabelValues(service, "ok").Inc()
	return nil
}

// InFrance reports whether coordinates fall inside metropolitan France and Corsica.
func InFrance(lat, lng float64) bool {
	return lat >= 41.2 && lat <= 51.2 && lng >= -5.3 && lng <= 9.7
}
