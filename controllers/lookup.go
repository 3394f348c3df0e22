package controllers

import (
	"net/http"
	"strings"

	"envie2sortir-backend/services"
	"envie2sortir-backend/utils"

	"github.com/gin-gonic/gin"
)

// LookupController proxies the company registry and the geocoders.
type LookupController struct {
	Siret    SiretLookup
	Geocoder services.Geocoder
}

// VerifySiret checks the format then asks the registry
func (lc *LookupController) VerifySiret(c *gin.Context) {
	siret := utils.NormalizeSiret(c.Query("siret"))
	if !utils.ValidateSiret(siret) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid SIRET number")
		return
	}

	info, err := lc.Siret.Lookup(c.Request.Context(), siret)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": true, "company": info})
}

func (lc *LookupController) Geocode(c *gin.Context) {
	address := strings.TrimSpace(c.Query("address"))
	if address == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "Address is required")
		return
	}
	if lc.Geocoder == nil {
		utils.RespondWithError(c, http.StatusServiceUnavailable, "Geocoding is not configured")
		return
	}

	result, err := lc.Geocoder.Geocode(c.Request.Context(), address)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"result":   result,
		"inFrance": services.InFrance(result.Latitude, result.Longitude),
	})
}
