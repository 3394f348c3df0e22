package controllers

import (
	"net/http"
	"testing"

	"envie2sortir-backend/apperr"
	"envie2sortir-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupRouter(lc *LookupController) *gin.Engine {
	r := gin.New()
	r.GET("/api/siret/verify", lc.VerifySiret)
	r.GET("/api/geocode", lc.Geocode)
	return r
}

func TestVerifySiret(t *testing.T) {
	siret := &fakeSiret{info: &services.CompanyInfo{Siret: "73282932000074", CompanyName: "DANONE", Active: true}}
	r := lookupRouter(&LookupController{Siret: siret})

	tests := []struct {
		name     string
		query    string
		err      error
		wantCode int
	}{
		{"valid with spaces", "732%20829%20320%2000074", nil, http.StatusOK},
		{"bad checksum", "12345678901234", nil, http.StatusBadRequest},
		{"too short", "7328", nil, http.StatusBadRequest},
		{"unknown company", "73282932000074", apperr.NewValidation("SIRET not found"), http.StatusBadRequest},
		{"registry down", "73282932000074", apperr.NewExternalService("Company registry unavailable", nil), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			siret.err = tt.err
			w := request(t, r, http.MethodGet, "/api/siret/verify?siret="+tt.query, "", nil)
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
		})
	}

	siret.err = nil
	w := request(t, r, http.MethodGet, "/api/siret/verify?siret=73282932000074", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Valid   bool                 `json:"valid"`
		Company services.CompanyInfo `json:"company"`
	}
	decode(t, w, &body)
	assert.True(t, body.Valid)
	assert.Equal(t, "DANONE", body.Company.CompanyName)
}

func TestGeocode(t *testing.T) {
	geo := &fakeGeocoder{result: &services.GeoResult{Latitude: 48.8698, Longitude: 2.3075, Provider: "nominatim"}}
	r := lookupRouter(&LookupController{Geocoder: geo})

	w := request(t, r, http.MethodGet, "/api/geocode?address=%20%20", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, geo.calls)

	w = request(t, r, http.MethodGet, "/api/geocode?address=1+rue+de+la+Paix+Paris", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Result   services.GeoResult `json:"result"`
		InFrance bool               `json:"inFrance"`
	}
	decode(t, w, &body)
	assert.True(t, body.InFrance)
	assert.Equal(t, "nominatim", body.Result.Provider)
	assert.Equal(t, []string{"1 rue de la Paix Paris"}, geo.calls)

	geo.result = &services.GeoResult{Latitude: 40.7128, Longitude: -74.006}
	w = request(t, r, http.MethodGet, "/api/geocode?address=New+York", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &body)
	assert.False(t, body.InFrance)

	geo.err = apperr.NewNotFound("Address")
	w = request(t, r, http.MethodGet, "/api/geocode?address=nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = request(t, lookupRouter(&LookupController{}), http.MethodGet, "/api/geocode?address=Paris", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
