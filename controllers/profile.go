package controllers

import (
	"net/http"
	"strings"

	"envie2sortir-backend/config"
	"envie2sortir-backend/models"
	"envie2sortir-backend/utils"

	"github.com/gin-gonic/gin"
)

type UpdateProProfileInput struct {
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	Phone       *string `json:"phone"`
	CompanyName *string `json:"companyName"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
}

func currentProfessional(c *gin.Context) (*models.Professional, bool) {
	id, ok := principalID(c)
	if !ok {
		return nil, false
	}

	var pro models.Professional
	if err := config.DB.First(&pro, "id = ?", id).Error; err != nil {
		utils.RespondWithError(c, http.StatusNotFound, "Professional not found")
		return nil, false
	}
	return &pro, true
}

func GetProProfile(c *gin.Context) {
	pro, ok := currentProfessional(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, pro)
}

// UpdateProProfile edits contact details; SIRET and plan are not editable here
func UpdateProProfile(c *gin.Context) {
	var input UpdateProProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input")
		return
	}

	pro, ok := currentProfessional(c)
	if !ok {
		return
	}

	// Update fields if provided
	if input.FirstName != nil {
		pro.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		pro.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Phone != nil {
		if !utils.ValidatePhone(*input.Phone) {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number")
			return
		}
		pro.Phone = *input.Phone
	}
	if input.CompanyName != nil {
		pro.CompanyName = strings.TrimSpace(*input.CompanyName)
	}
	if pro.FirstName == "" || pro.LastName == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "First and last name are required")
		return
	}

	if err := config.DB.Save(pro).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	c.JSON(http.StatusOK, pro)
}

// ChangePassword works for any authenticated principal
func ChangePassword(c *gin.Context) {
	id, ok := principalID(c)
	if !ok {
		return
	}

	var input ChangePasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var model interface{} = &models.User{}
	if utils.CurrentRole(c) == models.RolePro {
		model = &models.Professional{}
	}

	var current struct{ Password string }
	if err := config.DB.Model(model).Select("password").Where("id = ?", id).Take(&current).Error; err != nil {
		utils.RespondWithError(c, http.StatusNotFound, "Account not found")
		return
	}
	if !utils.CheckPasswordHash(input.CurrentPassword, current.Password) {
		utils.RespondWithError(c, http.StatusUnauthorized, "Current password is incorrect")
		return
	}

	hashed, err := utils.HashPassword(input.NewPassword)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to hash password")
		return
	}
	if err := config.DB.Model(model).Where("id = ?", id).Update("password", hashed).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update password")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}
