package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"envie2sortir-backend/apperr"
	"envie2sortir-backend/config"
	"envie2sortir-backend/logger"
	"envie2sortir-backend/models"
	"envie2sortir-backend/services"
	"envie2sortir-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// now is replaced in tests.
var now = time.Now

// ReviewNotifier tells owners about moderation decisions.
type ReviewNotifier interface {
	NotifyEstablishmentReviewed(ctx context.Context, owner *models.Professional, est *models.Establishment)
}

// EstablishmentController serves public, owner and admin establishment routes.
// Search and Geocoder may be nil.
type EstablishmentController struct {
	Learning *services.LearningService
	Geocoder services.Geocoder
	Search   services.EstablishmentIndex
	Notifier ReviewNotifier
}

// CreateEstablishmentInput defines the expected JSON structure for creating an establishment
type CreateEstablishmentInput struct {
	Name        string       `json:"name" binding:"required,max=200"`
	Description string       `json:"description"`
	Address     string       `json:"address" binding:"required"`
	City        string       `json:"city" binding:"required"`
	PostalCode  string       `json:"postalCode"`
	Latitude    *float64     `json:"latitude"`
	Longitude   *float64     `json:"longitude"`
	Phone       string       `json:"phone"`
	Email       string       `json:"email"`
	Website     string       `json:"website"`
	Instagram   string       `json:"instagram"`
	Facebook    string       `json:"facebook"`
	Category    string       `json:"category"`
	Activities  []string     `json:"activities"`
	Tags        []string     `json:"tags"`
	PriceMin    *float64     `json:"priceMin"`
	PriceMax    *float64     `json:"priceMax"`
	Horaires    models.JSONB `json:"horaires"`
	ImageURL    string       `json:"imageUrl"`
	Images      []string     `json:"images"`
	GoogleTypes []string     `json:"googleTypes"`
}

// UpdateEstablishmentInput defines the expected JSON structure for updating an establishment
type UpdateEstablishmentInput struct {
	Name        *string       `json:"name"`
	Description *string       `json:"description"`
	Address     *string       `json:"address"`
	City        *string       `json:"city"`
	PostalCode  *string       `json:"postalCode"`
	Latitude    *float64      `json:"latitude"`
	Longitude   *float64      `json:"longitude"`
	Phone       *string       `json:"phone"`
	Email       *string       `json:"email"`
	Website     *string       `json:"website"`
	Instagram   *string       `json:"instagram"`
	Facebook    *string       `json:"facebook"`
	Category    *string       `json:"category"`
	Activities  *[]string     `json:"activities"`
	Tags        *[]string     `json:"tags"`
	PriceMin    *float64      `json:"priceMin"`
	PriceMax    *float64      `json:"priceMax"`
	Horaires    *models.JSONB `json:"horaires"`
	ImageURL    *string       `json:"imageUrl"`
	Images      *[]string     `json:"images"`
}

func validateContact(phone, email, postalCode string) string {
	if phone != "" && !utils.ValidatePhone(phone) {
		return "Invalid phone number"
	}
	if email != "" && !utils.ValidateEmail(email) {
		return "Invalid email address"
	}
	if postalCode != "" && !utils.ValidatePostalCode(postalCode) {
		return "Invalid postal code"
	}
	return ""
}

func validatePrices(min, max *float64) string {
	if (min != nil && *min < 0) || (max != nil && *max < 0) {
		return "Prices must be positive"
	}
	if min != nil && max != nil && *min > *max {
		return "priceMin must not exceed priceMax"
	}
	return ""
}

// slugTaken checks slug uniqueness, ignoring the establishment being edited.
func slugTaken(db *gorm.DB, exclude uuid.UUID) func(string) (bool, error) {
	return func(slug string) (bool, error) {
		var count int64
		q := db.Model(&models.Establishment{}).Where("slug = ?", slug)
		if exclude != uuid.Nil {
			q = q.Where("id <> ?", exclude)
		}
		err := q.Count(&count).Error
		return count > 0, err
	}
}

func mergeTags(existing, extra []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(existing)+len(extra))
	for _, t := range append(existing, extra...) {
		t = strings.TrimSpace(strings.ToLower(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func fullAddress(est *models.Establishment) string {
	return strings.TrimSpace(est.Address + ", " + strings.TrimSpace(est.PostalCode+" "+est.City))
}

func (ec *EstablishmentController) geocode(ctx context.Context, est *models.Establishment) {
	if ec.Geocoder == nil {
		return
	}
	res, err := ec.Geocoder.Geocode(ctx, fullAddress(est))
	if err != nil {
		logger.L().Warn("geocoding failed, saving without coordinates", map[string]interface{}{
			"establishment": est.Name,
			"error":         err,
		})
		return
	}
	est.Latitude = &res.Latitude
	est.Longitude = &res.Longitude
}

// syncSearch indexes approved listings and removes the rest.
func (ec *EstablishmentController) syncSearch(ctx context.Context, est *models.Establishment) {
	if ec.Search == nil {
		return
	}
	var err error
	if est.IsApproved() {
		err = ec.Search.Index(ctx, est)
	} else {
		err = ec.Search.Remove(ctx, est.ID)
	}
	if err != nil {
		logger.L().Warn("search index sync failed", map[string]interface{}{"establishmentId": est.ID.String(), "error": err})
	}
}

// GetMyEstablishment returns the professional's establishment with its tariffs and menus.
func (ec *EstablishmentController) GetMyEstablishment(c *gin.Context) {
	est, ok := ownedEstablishment(c)
	if !ok {
		return
	}
	if err := config.DB.
		Preload("Tariffs", func(db *gorm.DB) *gorm.DB { return db.Order("display_order ASC") }).
		Preload("Menus", func(db *gorm.DB) *gorm.DB { return db.Order("display_order ASC") }).
		Preload("Deals", func(db *gorm.DB) *gorm.DB { return db.Order("date_debut DESC") }).
		First(est, "id = ?", est.ID).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}
	c.JSON(http.StatusOK, est)
}

// CreateEstablishment creates the professional's listing in pending status.
func (ec *EstablishmentController) CreateEstablishment(c *gin.Context) {
	proID, ok := principalID(c)
	if !ok {
		return
	}

	var input CreateEstablishmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if msg := validateContact(input.Phone, input.Email, input.PostalCode); msg != "" {
		utils.RespondWithError(c, http.StatusBadRequest, msg)
		return
	}
	if msg := validatePrices(input.PriceMin, input.PriceMax); msg != "" {
		utils.RespondWithError(c, http.StatusBadRequest, msg)
		return
	}
	if (input.Latitude == nil) != (input.Longitude == nil) {
		utils.RespondWithError(c, http.StatusBadRequest, "Latitude and longitude must be provided together")
		return
	}

	var count int64
	if err := config.DB.Model(&models.Establishment{}).Where("owner_id = ?", proID).Count(&count).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}
	if count > 0 {
		utils.RespondWithAppError(c, apperr.NewConflict("Professional already has an establishment"))
		return
	}

	ctx := c.Request.Context()
	suggestionInput := services.SuggestionInput{Name: input.Name, Description: input.Description, GoogleTypes: input.GoogleTypes}
	suggestion, err := ec.Learning.Suggest(ctx, suggestionInput)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}

	est := models.Establishment{
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Address:     input.Address,
		City:        strings.TrimSpace(input.City),
		PostalCode:  input.PostalCode,
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
		Phone:       input.Phone,
		Email:       input.Email,
		Website:     input.Website,
		Instagram:   input.Instagram,
		Facebook:    input.Facebook,
		Category:    input.Category,
		Activities:  nonNil(input.Activities),
		Tags:        mergeTags(input.Tags, suggestion.Tags),
		PriceMin:    input.PriceMin,
		PriceMax:    input.PriceMax,
		Horaires:    input.Horaires,
		ImageURL:    input.ImageURL,
		Images:      nonNil(input.Images),
		Status:      models.StatusPending,
		OwnerID:     proID,
	}
	if est.Category == "" {
		est.Category = suggestion.Type
	}
	if !est.HasCoordinates() {
		ec.geocode(ctx, &est)
	}

	// Start transaction
	tx := config.DB.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	slug, err := utils.UniqueSlug(est.Name, slugTaken(tx, uuid.Nil))
	if err != nil {
		tx.Rollback()
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to generate slug")
		return
	}
	est.Slug = slug

	if err := tx.Create(&est).Error; err != nil {
		tx.Rollback()
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create establishment")
		return
	}

	if _, err := ec.Learning.RecordPattern(ctx, tx, suggestionInput, &est.ID, suggestion); err != nil {
		tx.Rollback()
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to record learning pattern")
		return
	}

	if err := tx.Commit().Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create establishment")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"establishment": est, "suggestion": suggestion})
}

// UpdateEstablishment edits the professional's listing. A rejected listing goes back to pending.
func (ec *EstablishmentController) UpdateEstablishment(c *gin.Context) {
	est, ok := ownedEstablishment(c)
	if !ok {
		return
	}

	var input UpdateEstablishmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	addressChanged := false

	// Update fields if provided
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			utils.RespondWithError(c, http.StatusBadRequest, "Name cannot be empty")
			return
		}
		if name != est.Name {
			slug, err := utils.UniqueSlug(name, slugTaken(config.DB, est.ID))
			if err != nil {
				utils.RespondWithError(c, http.StatusInternalServerError, "Failed to generate slug")
				return
			}
			est.Name = name
			est.Slug = slug
		}
	}
	if input.Description != nil {
		est.Description = *input.Description
	}
	if input.Address != nil && *input.Address != est.Address {
		est.Address = *input.Address
		addressChanged = true
	}
	if input.City != nil && *input.City != est.City {
		est.City = strings.TrimSpace(*input.City)
		addressChanged = true
	}
	if input.PostalCode != nil && *input.PostalCode != est.PostalCode {
		est.PostalCode = *input.PostalCode
		addressChanged = true
	}
	if input.Phone != nil {
		est.Phone = *input.Phone
	}
	if input.Email != nil {
		est.Email = *input.Email
	}
	if input.Website != nil {
		est.Website = *input.Website
	}
	if input.Instagram != nil {
		est.Instagram = *input.Instagram
	}
	if input.Facebook != nil {
		est.Facebook = *input.Facebook
	}
	if input.Category != nil {
		est.Category = *input.Category
	}
	if input.Activities != nil {
		est.Activities = nonNil(*input.Activities)
	}
	if input.Tags != nil {
		est.Tags = mergeTags(*input.Tags, nil)
	}
	if input.PriceMin != nil {
		est.PriceMin = input.PriceMin
	}
	if input.PriceMax != nil {
		est.PriceMax = input.PriceMax
	}
	if input.Horaires != nil {
		est.Horaires = *input.Horaires
	}
	if input.ImageURL != nil {
		est.ImageURL = *input.ImageURL
	}
	if input.Images != nil {
		est.Images = nonNil(*input.Images)
	}

	if msg := validateContact(est.Phone, est.Email, est.PostalCode); msg != "" {
		utils.RespondWithError(c, http.StatusBadRequest, msg)
		return
	}
	if msg := validatePrices(est.PriceMin, est.PriceMax); msg != "" {
		utils.RespondWithError(c, http.StatusBadRequest, msg)
		return
	}

	switch {
	case input.Latitude != nil && input.Longitude != nil:
		est.Latitude, est.Longitude = input.Latitude, input.Longitude
	case input.Latitude != nil || input.Longitude != nil:
		utils.RespondWithError(c, http.StatusBadRequest, "Latitude and longitude must be provided together")
		return
	case addressChanged:
		est.Latitude, est.Longitude = nil, nil
		ec.geocode(c.Request.Context(), est)
	}

	if est.Status == models.StatusRejected {
		est.Status = models.StatusPending
		est.RejectionReason = ""
	}

	if err := config.DB.Save(est).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update establishment")
		return
	}
	ec.syncSearch(c.Request.Context(), est)

	c.JSON(http.StatusOK, est)
}

// DeleteEstablishment removes the professional's listing and everything attached to it.
func (ec *EstablishmentController) DeleteEstablishment(c *gin.Context) {
	est, ok := ownedEstablishment(c)
	if !ok {
		return
	}
	if err := deleteEstablishmentCascade(config.DB, est.ID); err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete establishment")
		return
	}
	if ec.Search != nil {
		if err := ec.Search.Remove(c.Request.Context(), est.ID); err != nil {
			logger.L().Warn("search index removal failed", map[string]interface{}{"establishmentId": est.ID.String(), "error": err})
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Establishment deleted successfully"})
}

// deleteEstablishmentCascade deletes the establishment and its dependents in one transaction.
func deleteEstablishmentCascade(db *gorm.DB, id uuid.UUID) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("establishment_id = ?", id).Delete(&models.DailyDeal{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("establishment_id = ?", id).Delete(&models.UserComment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("establishment_id = ?", id).Delete(&models.UserFavorite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("establishment_id = ?", id).Delete(&models.Tariff{}).Error; err != nil {
			return err
		}
		if err := tx.Where("establishment_id = ?", id).Delete(&models.Menu{}).Error; err != nil {
			return err
		}
		// learning data outlives the listing
		if err := tx.Model(&models.EstablishmentLearningPattern{}).
			Where("establishment_id = ?", id).
			Update("establishment_id", nil).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Establishment{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// ListEstablishments returns approved establishments with filters, search and pagination.
func (ec *EstablishmentController) ListEstablishments(c *gin.Context) {
	page, limit, offset := utils.Pagination(c)
	q := strings.TrimSpace(c.Query("q"))
	category := c.Query("category")
	city := strings.TrimSpace(c.Query("city"))
	sort := c.DefaultQuery("sort", "rating")

	if q != "" && ec.Search != nil {
		ids, total, err := ec.Search.Search(c.Request.Context(), services.SearchQuery{
			Text: q, Category: category, City: city, Limit: limit, Offset: offset,
		})
		if err == nil {
			establishments, err := loadApprovedInOrder(ids)
			if err != nil {
				utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve establishments")
				return
			}
			c.JSON(http.StatusOK, paginated(establishments, total, page, limit))
			return
		}
		logger.L().Warn("search backend failed, falling back to SQL", map[string]interface{}{"error": err})
	}

	query := config.DB.Model(&models.Establishment{}).Where("status = ?", models.StatusApproved)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if city != "" {
		query = query.Where("LOWER(city) = ?", strings.ToLower(city))
	}
	if q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(city) LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to count establishments")
		return
	}

	switch sort {
	case "recent":
		query = query.Order("created_at DESC")
	case "name":
		query = query.Order("name ASC")
	default:
		query = query.Order("avg_rating DESC").Order("total_comments DESC")
	}

	var establishments []models.Establishment
	if err := query.Limit(limit).Offset(offset).Find(&establishments).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve establishments")
		return
	}

	c.JSON(http.StatusOK, paginated(establishments, total, page, limit))
}

func loadApprovedInOrder(ids []uuid.UUID) ([]models.Establishment, error) {
	establishments := []models.Establishment{}
	if len(ids) == 0 {
		return establishments, nil
	}

	var rows []models.Establishment
	if err := config.DB.Where("id IN ? AND status = ?", ids, models.StatusApproved).Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Establishment, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	for _, id := range ids {
		if est, ok := byID[id]; ok {
			establishments = append(establishments, est)
		}
	}
	return establishments, nil
}

// GetEstablishment returns a public listing with active deals, tariffs and menus.
func (ec *EstablishmentController) GetEstablishment(c *gin.Context) {
	est, ok := approvedBySlug(c)
	if !ok {
		return
	}

	if err := config.DB.
		Preload("Tariffs", func(db *gorm.DB) *gorm.DB { return db.Order("display_order ASC") }).
		Preload("Menus", func(db *gorm.DB) *gorm.DB { return db.Order("display_order ASC") }).
		First(est, "id = ?", est.ID).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}

	activeDeals, err := activeDealsFor(config.DB.Where("establishment_id = ?", est.ID), now())
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve deals")
		return
	}

	if err := config.DB.Model(&models.Establishment{}).Where("id = ?", est.ID).
		UpdateColumn("views_count", gorm.Expr("views_count + 1")).Error; err != nil {
		logger.L().Warn("failed to increment views", map[string]interface{}{"establishmentId": est.ID.String(), "error": err})
	} else {
		est.ViewsCount++
	}

	c.JSON(http.StatusOK, gin.H{"establishment": est, "activeDeals": activeDeals})
}

// TrackClick counts a click on the listing's contact links.
func (ec *EstablishmentController) TrackClick(c *gin.Context) {
	res := config.DB.Model(&models.Establishment{}).
		Where("slug = ? AND status = ?", c.Param("slug"), models.StatusApproved).
		UpdateColumn("clicks_count", gorm.Expr("clicks_count + 1"))
	if res.Error != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}
	if res.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Establishment not found")
		return
	}
	c.Status(http.StatusNoContent)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
