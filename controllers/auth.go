package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"

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

// SiretLookup resolves a SIRET to company details.
type SiretLookup interface {
	Lookup(ctx context.Context, siret string) (*services.CompanyInfo, error)
}

type AuthController struct {
	Siret        SiretLookup
	CookieSecure bool
}

type RegisterInput struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName"`
}

type ProRegisterInput struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Phone     string `json:"phone" binding:"required"`
	Siret     string `json:"siret" binding:"required"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates a consumer account.
func (a *AuthController) Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))

	var count int64
	if err := config.DB.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}
	if count > 0 {
		utils.RespondWithAppError(c, apperr.NewConflict("Email already registered"))
		return
	}

	user := models.User{
		Email:     email,
		Password:  input.Password, // Will be hashed in BeforeCreate hook
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Role:      models.RoleUser,
	}
	if err := config.DB.Create(&user).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create user")
		return
	}

	token, err := utils.GenerateToken(user.ID.String(), user.Role)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}
	utils.SetAuthCookie(c, token, a.CookieSecure)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful",
		"token":   token,
		"user":    user,
	})
}

// Login authenticates consumers and admins.
func (a *AuthController) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input")
		return
	}

	var user models.User
	if err := config.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(input.Email))).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if !utils.CheckPasswordHash(input.Password, user.Password) {
		utils.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := utils.GenerateToken(user.ID.String(), user.Role)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	touchLastLogin(&user, user.ID)

	utils.SetAuthCookie(c, token, a.CookieSecure)
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// ProRegister creates a professional account after checking the SIRET.
func (a *AuthController) ProRegister(c *gin.Context) {
	var input ProRegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	siret := utils.NormalizeSiret(input.Siret)
	if !utils.ValidateSiret(siret) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid SIRET number")
		return
	}
	if !utils.ValidatePhone(input.Phone) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number")
		return
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))

	var count int64
	if err := config.DB.Model(&models.Professional{}).
		Where("email = ? OR siret = ?", email, siret).Count(&count).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}
	if count > 0 {
		utils.RespondWithAppError(c, apperr.NewConflict("Email or SIRET already registered"))
		return
	}

	pro := models.Professional{
		Email:     email,
		Password:  input.Password,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Phone:     input.Phone,
		Siret:     siret,
		IsActive:  true,
	}

	// an unreachable registry leaves the account unverified for the verify-sirets job
	info, err := a.Siret.Lookup(c.Request.Context(), siret)
	switch {
	case err == nil:
		if !info.Active {
			utils.RespondWithError(c, http.StatusBadRequest, "This company is no longer active")
			return
		}
		pro.CompanyName = info.CompanyName
		pro.LegalStatus = info.LegalForm
		pro.SiretVerified = true
	case apperr.StatusOf(err) == http.StatusNotFound:
		utils.RespondWithError(c, http.StatusBadRequest, "SIRET not found in the company registry")
		return
	case apperr.StatusOf(err) == http.StatusBadGateway:
		logger.L().Warn("siret lookup unavailable, registering unverified", map[string]interface{}{"siret": siret, "error": err})
	default:
		utils.RespondWithAppError(c, err)
		return
	}

	if err := config.DB.Create(&pro).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create professional")
		return
	}

	token, err := utils.GenerateToken(pro.ID.String(), models.RolePro)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}
	utils.SetAuthCookie(c, token, a.CookieSecure)

	c.JSON(http.StatusCreated, gin.H{
		"message":      "Registration successful",
		"token":        token,
		"professional": pro,
	})
}

// ProLogin authenticates professionals.
func (a *AuthController) ProLogin(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input")
		return
	}

	var pro models.Professional
	if err := config.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(input.Email))).First(&pro).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if !utils.CheckPasswordHash(input.Password, pro.Password) {
		utils.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if !pro.IsActive {
		utils.RespondWithError(c, http.StatusForbidden, "Account disabled")
		return
	}

	token, err := utils.GenerateToken(pro.ID.String(), models.RolePro)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	touchLastLogin(&pro, pro.ID)

	utils.SetAuthCookie(c, token, a.CookieSecure)
	c.JSON(http.StatusOK, gin.H{"token": token, "professional": pro})
}

// Me returns the authenticated principal.
func (a *AuthController) Me(c *gin.Context) {
	id, ok := principalID(c)
	if !ok {
		return
	}

	if utils.CurrentRole(c) == models.RolePro {
		var pro models.Professional
		if err := config.DB.Preload("Establishment").First(&pro, "id = ?", id).Error; err != nil {
			utils.RespondWithError(c, http.StatusUnauthorized, "User not found")
			return
		}
		c.JSON(http.StatusOK, gin.H{"role": models.RolePro, "professional": pro})
		return
	}

	var user models.User
	if err := config.DB.First(&user, "id = ?", id).Error; err != nil {
		utils.RespondWithError(c, http.StatusUnauthorized, "User not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"role": user.Role, "user": user})
}

// Logout clears the session cookie.
func (a *AuthController) Logout(c *gin.Context) {
	c.SetCookie(utils.AuthCookieName, "", -1, "/", "", a.CookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// CSRFToken issues a double-submit token.
func (a *AuthController) CSRFToken(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"csrfToken": utils.IssueCSRFToken(c, a.CookieSecure)})
}

// touchLastLogin stamps the login time; a failure never blocks the login itself.
func touchLastLogin(model interface{}, id uuid.UUID) {
	loginAt := now()
	if err := config.DB.Model(model).Update("last_login", &loginAt).Error; err != nil {
		logger.L().Warn("last login update failed", map[string]interface{}{"id": id.String(), "error": err})
	}
}
