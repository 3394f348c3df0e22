package controllers

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"envie2sortir-backend/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commentRouter() *gin.Engine {
	r := gin.New()
	consumer := []string{models.RoleUser, models.RoleAdmin}
	r.GET("/api/establishments/:slug/comments", GetComments)
	r.POST("/api/establishments/:slug/comments", withAuth(consumer, CreateComment)...)
	r.PUT("/api/comments/:id", withAuth(consumer, UpdateComment)...)
	r.DELETE("/api/comments/:id", withAuth(consumer, DeleteComment)...)
	r.POST("/api/comments/:id/report", withAuth(consumer, ReportComment)...)
	r.POST("/api/comments/:id/reply", withAuth([]string{models.RolePro}, ReplyToComment)...)
	r.GET("/api/admin/comments/reported", withAuth([]string{models.RoleAdmin}, GetReportedComments)...)

	r.GET("/api/favorites", withAuth(consumer, GetFavorites)...)
	r.POST("/api/favorites/:establishmentId", withAuth(consumer, AddFavorite)...)
	r.DELETE("/api/favorites/:establishmentId", withAuth(consumer, RemoveFavorite)...)
	return r
}

func postComment(t *testing.T, r *gin.Engine, token, slug string, rating int) models.UserComment {
	t.Helper()
	w := request(t, r, http.MethodPost, "/api/establishments/"+slug+"/comments", token, gin.H{"content": "Super soirée", "rating": rating})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var c models.UserComment
	decode(t, w, &c)
	return c
}

func TestComments_RatingAggregate(t *testing.T) {
	db := setupDB(t)
	pro := createPro(t, db, "pro@bar.fr", "73282932000074")
	est := createEstablishment(t, db, pro.ID, "Le Comptoir", models.StatusApproved)
	alice := createUser(t, db, "alice@example.com", models.RoleUser)
	bob := createUser(t, db, "bob@example.com", models.RoleUser)
	admin := createUser(t, db, "admin@example.com", models.RoleAdmin)
	r := commentRouter()

	aliceToken := tokenFor(t, alice.ID, models.RoleUser)
	bobToken := tokenFor(t, bob.ID, models.RoleUser)

	first := postComment(t, r, aliceToken, est.Slug, 5)
	postComment(t, r, bobToken, est.Slug, 4)
	postComment(t, r, bobToken, est.Slug, 4)

	var stored models.Establishment
	require.NoError(t, db.First(&stored, "id = ?", est.ID).Error)
	assert.Equal(t, 3, stored.TotalComments)
	assert.InDelta(t, 4.3, stored.AvgRating, 1e-9)

	// only the author may edit
	w := request(t, r, http.MethodPut, "/api/comments/"+first.ID.String(), bobToken, gin.H{"rating": 1})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = request(t, r, http.MethodPut, "/api/comments/"+first.ID.String(), aliceToken, gin.H{"rating": 7})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = request(t, r, http.MethodPut, "/api/comments/"+first.ID.String(), aliceToken, gin.H{"rating": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.NoError(t, db.First(&stored, "id = ?", est.ID).Error)
	assert.InDelta(t, 3.0, stored.AvgRating, 1e-9)

	// admins can delete any comment; the aggregate ignores soft-deleted rows
	w = request(t, r, http.MethodDelete, "/api/comments/"+first.ID.String(), tokenFor(t, admin.ID, models.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, db.First(&stored, "id = ?", est.ID).Error)
	assert.Equal(t, 2, stored.TotalComments)
	assert.InDelta(t, 4.0, stored.AvgRating, 1e-9)

	var all int64
	require.NoError(t, db.Unscoped().Model(&models.UserComment{}).Count(&all).Error)
	assert.Equal(t, int64(3), all)

	w = request(t, r, http.MethodGet, "/api/establishments/"+est.Slug+"/comments?limit=1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Data       []models.UserComment `json:"data"`
		Pagination struct {
			Total      int64 `json:"total"`
			TotalPages int   `json:"totalPages"`
		} `json:"pagination"`
	}
	decode(t, w, &page)
	assert.Len(t, page.Data, 1)
	assert.Equal(t, int64(2), page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPages)
}

func TestCreateComment_Validation(t *testing.T) {
	db := setupDB(t)
	pro := createPro(t, db, "pro@bar.fr", "73282932000074")
	createEstablishment(t, db, pro.ID, "Le Comptoir", models.StatusApproved)
	createEstablishment(t, db, createPro(t, db, "x@bar.fr", "44306184100047").ID, "Secret", models.StatusPending)
	user := createUser(t, db, "alice@example.com", models.RoleUser)
	token := tokenFor(t, user.ID, models.RoleUser)
	r := commentRouter()

	tests := []struct {
		name     string
		slug     string
		body     gin.H
		wantCode int
	}{
		{"blank", "le-comptoir", gin.H{"content": "   "}, http.StatusBadRequest},
		{"too long", "le-comptoir", gin.H{"content": strings.Repeat("é", models.MaxCommentLength+1)}, http.StatusBadRequest},
		{"rating zero", "le-comptoir", gin.H{"content": "ok", "rating": 0}, http.StatusBadRequest},
		{"no rating", "le-comptoir", gin.H{"content": "Sympa"}, http.StatusCreated},
		{"pending establishment", "secret", gin.H{"content": "Sympa"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := request(t, r, http.MethodPost, "/api/establishments/"+tt.slug+"/comments", token, tt.body)
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
		})
	}

	// professionals cannot review
	w := request(t, r, http.MethodPost, "/api/establishments/le-comptoir/comments", tokenFor(t, pro.ID, models.RolePro), gin.H{"content": "Moi"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestReplyAndReport(t *testing.T) {
	db := setupDB(t)
	at := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	freezeTime(t, at)
	pro := createPro(t, db, "pro@bar.fr", "73282932000074")
	rival := createPro(t, db, "rival@bar.fr", "44306184100047")
	est := createEstablishment(t, db, pro.ID, "Le Comptoir", models.StatusApproved)
	createEstablishment(t, db, rival.ID, "Concurrent", models.StatusApproved)
	user := createUser(t, db, "alice@example.com", models.RoleUser)
	admin := createUser(t, db, "admin@example.com", models.RoleAdmin)
	r := commentRouter()

	comment := postComment(t, r, tokenFor(t, user.ID, models.RoleUser), est.Slug, 2)
	path := "/api/comments/" + comment.ID.String()

	w := request(t, r, http.MethodPost, path+"/reply", tokenFor(t, rival.ID, models.RolePro), gin.H{"reply": "Venez chez nous"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = request(t, r, http.MethodPost, path+"/reply", tokenFor(t, pro.ID, models.RolePro), gin.H{"reply": "Merci pour votre retour"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stored models.UserComment
	require.NoError(t, db.First(&stored, "id = ?", comment.ID).Error)
	require.NotNil(t, stored.EstablishmentReply)
	assert.Equal(t, "Merci pour votre retour", *stored.EstablishmentReply)

	w = request(t, r, http.MethodPost, path+"/report", tokenFor(t, user.ID, models.RoleUser), gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = request(t, r, http.MethodPost, path+"/report", tokenFor(t, user.ID, models.RoleUser), gin.H{"reason": "Spam"})
	require.Equal(t, http.StatusOK, w.Code)

	w = request(t, r, http.MethodGet, "/api/admin/comments/reported", tokenFor(t, admin.ID, models.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var reported struct {
		Data []models.UserComment `json:"data"`
	}
	decode(t, w, &reported)
	require.Len(t, reported.Data, 1)
	assert.Equal(t, "Spam", reported.Data[0].ReportReason)
	require.NotNil(t, reported.Data[0].Establishment)
	assert.Equal(t, "Le Comptoir", reported.Data[0].Establishment.Name)
}

func TestFavorites(t *testing.T) {
	db := setupDB(t)
	pro := createPro(t, db, "pro@bar.fr", "73282932000074")
	est := createEstablishment(t, db, pro.ID, "Le Comptoir", models.StatusApproved)
	pending := createEstablishment(t, db, createPro(t, db, "x@bar.fr", "44306184100047").ID, "Secret", models.StatusPending)
	user := createUser(t, db, "alice@example.com", models.RoleUser)
	token := tokenFor(t, user.ID, models.RoleUser)
	r := commentRouter()

	path := "/api/favorites/" + est.ID.String()
	require.Equal(t, http.StatusOK, request(t, r, http.MethodPost, path, token, nil).Code)
	// adding twice is a no-op
	require.Equal(t, http.StatusOK, request(t, r, http.MethodPost, path, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, request(t, r, http.MethodPost, "/api/favorites/"+pending.ID.String(), token, nil).Code)
	assert.Equal(t, http.StatusBadRequest, request(t, r, http.MethodPost, "/api/favorites/abc", token, nil).Code)

	w := request(t, r, http.MethodGet, "/api/favorites", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var favorites []models.UserFavorite
	decode(t, w, &favorites)
	require.Len(t, favorites, 1)
	require.NotNil(t, favorites[0].Establishment)
	assert.Equal(t, "Le Comptoir", favorites[0].Establishment.Name)

	assert.Equal(t, http.StatusOK, request(t, r, http.MethodDelete, path, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, request(t, r, http.MethodDelete, path, token, nil).Code)

	// the session cookie is accepted too
	req := newCookieRequest(http.MethodGet, "/api/favorites", token, "")
	assert.Equal(t, http.StatusOK, serve(r, req).Code)
}
