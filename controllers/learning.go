package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"envie2sortir-backend/services"
	"envie2sortir-backend/utils"

	"github.com/gin-gonic/gin"
)

type LearningController struct {
	Learning *services.LearningService
}

type CorrectPatternInput struct {
	CorrectedType string `json:"correctedType" binding:"required"`
}

// SuggestType runs the type heuristic without recording anything
func (lc *LearningController) SuggestType(c *gin.Context) {
	var input services.SuggestionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Name is required")
		return
	}

	suggestion, err := lc.Learning.Suggest(c.Request.Context(), input)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"type":         suggestion.Type,
		"confidence":   suggestion.Confidence,
		"alternatives": suggestion.Alternatives,
		"tags":         suggestion.Tags,
	})
}

func (lc *LearningController) ListPatterns(c *gin.Context) {
	page, limit, offset := utils.Pagination(c)
	filter := services.PatternFilter{
		Type:   strings.TrimSpace(c.Query("type")),
		Limit:  limit,
		Offset: offset,
	}
	if raw := c.Query("corrected"); raw != "" {
		corrected, err := strconv.ParseBool(raw)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "corrected must be true or false")
			return
		}
		filter.Corrected = &corrected
	}

	patterns, total, err := lc.Learning.ListPatterns(c.Request.Context(), filter)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, paginated(patterns, total, page, limit))
}

func (lc *LearningController) GetStats(c *gin.Context) {
	stats, err := lc.Learning.Stats(c.Request.Context())
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// CorrectPattern stores the admin's type for a detection
func (lc *LearningController) CorrectPattern(c *gin.Context) {
	adminID, ok := principalID(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "pattern")
	if !ok {
		return
	}

	var input CorrectPatternInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Corrected type is required")
		return
	}

	pattern, err := lc.Learning.Correct(c.Request.Context(), id, input.CorrectedType, adminID)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, pattern)
}

// ValidatePattern confirms the detected type
func (lc *LearningController) ValidatePattern(c *gin.Context) {
	adminID, ok := principalID(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "pattern")
	if !ok {
		return
	}

	pattern, err := lc.Learning.Validate(c.Request.Context(), id, adminID)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, pattern)
}

func (lc *LearningController) DeletePattern(c *gin.Context) {
	id, ok := uuidParam(c, "id", "pattern")
	if !ok {
		return
	}

	if err := lc.Learning.Delete(c.Request.Context(), id); err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Pattern deleted successfully"})
}
