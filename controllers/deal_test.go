package controllers

import (
	"net/http"
	"testing"
	"time"

	"envie2sortir-backend/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dealRouter() *gin.Engine {
	r := gin.New()
	pro := []string{models.RolePro}
	r.GET("/api/deals/active", GetActiveDeals)
	r.GET("/api/establishments/:slug/deals", GetEstablishmentDeals)
	r.POST("/api/pro/deals", withAuth(pro, CreateDeal)...)
	r.GET("/api/pro/deals", withAuth(pro, GetMyDeals)...)
	r.PUT("/api/pro/deals/:id", withAuth(pro, UpdateDeal)...)
	r.DELETE("/api/pro/deals/:id", withAuth(pro, DeleteDeal)...)
	return r
}

func TestCreateDeal_Validation(t *testing.T) {
	db := setupDB(t)
	pro := createPro(t, db, "pro@bar.fr", "73282932000074")
	createEstablishment(t, db, pro.ID, "Le Comptoir", models.StatusApproved)
	token := tokenFor(t, pro.ID, models.RolePro)
	r := dealRouter()

	tests := []struct {
		name     string
		body     gin.H
		wantCode int
	}{
		{"single day", gin.H{"title": "Pinte à 5€", "dateDebut": "2026-10-17"}, http.StatusCreated},
		{"with hours", gin.H{"title": "Happy hour", "dateDebut": "2026-10-17", "dateFin": "2026-10-20", "heureDebut": "18:00", "heureFin": "20:00"}, http.StatusCreated},
		{"weekly", gin.H{"title": "Quiz", "dateDebut": "2026-10-01", "isRecurring": true, "recurrenceDays": []int{4}}, http.StatusCreated},
		{"end before start", gin.H{"title": "X", "dateDebut": "2026-10-17", "dateFin": "2026-10-16"}, http.StatusBadRequest},
		{"lone hour", gin.H{"title": "X", "dateDebut": "2026-10-17", "heureDebut": "18:00"}, http.StatusBadRequest},
		{"bad hour", gin.H{"title": "X", "dateDebut": "2026-10-17", "heureDebut": "25:00", "heureFin": "26:00"}, http.StatusBadRequest},
		{"discount above price", gin.H{"title": "X", "dateDebut": "2026-10-17", "originalPrice": 10, "discountedPrice": 12}, http.StatusBadRequest},
		{"recurring without days", gin.H{"title": "X", "dateDebut": "2026-10-17", "isRecurring": true}, http.StatusBadRequest},
		{"day out of range", gin.H{"title": "X", "dateDebut": "2026-10-17", "isRecurring": true, "recurrenceDays": []int{0}}, http.StatusBadRequest},
		{"bad date", gin.H{"title": "X", "dateDebut": "17/10/2026"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := request(t, r, http.MethodPost, "/api/pro/deals", token, tt.body)
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
		})
	}

	var weekly models.DailyDeal
	require.NoError(t, db.First(&weekly, "title = ?", "Quiz").Error)
	assert.Equal(t, models.RecurrenceWeekly, weekly.RecurrenceType)
}

func TestCreateDeal_RequiresEstablishment(t *testing.T) {
	db := setupDB(t)
	pro := createPro(t, db, "pro@bar.fr", "73282932000074")

	w := request(t, dealRouter(), http.MethodPost, "/api/pro/deals", tokenFor(t, pro.ID, models.RolePro),
		gin.H{"title": "X", "dateDebut": "2026-10-17"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetActiveDeals(t *testing.T) {
	db := setupDB(t)
	// Thursday evening
	at := time.Date(2026, 10, 15, 19, 30, 0, 0, time.Local)
	freezeTime(t, at)

	pro := createPro(t, db, "pro@bar.fr", "73282932000074")
	other := createPro(t, db, "other@bar.fr", "44306184100047")
	approved := createEstablishment(t, db, pro.ID, "Le Comptoir", models.StatusApproved)
	pending := createEstablishment(t, db, other.ID, "En Attente", models.StatusPending)

	day := func(offset int) time.Time { return time.Date(2026, 10, 15+offset, 0, 0, 0, 0, time.Local) }
	deals := []models.DailyDeal{
		{EstablishmentID: approved.ID, Title: "today", IsActive: true, DateDebut: day(0), DateFin: day(0)},
		{EstablishmentID: approved.ID, Title: "happy hour", IsActive: true, DateDebut: day(-2), DateFin: day(2), HeureDebut: "18:00", HeureFin: "20:00"},
		{EstablishmentID: approved.ID, Title: "lunch only", IsActive: true, DateDebut: day(0), DateFin: day(0), HeureDebut: "12:00", HeureFin: "14:00"},
		{EstablishmentID: approved.ID, Title: "expired", IsActive: true, DateDebut: day(-5), DateFin: day(-1)},
		{EstablishmentID: approved.ID, Title: "switched off", IsActive: false, DateDebut: day(0), DateFin: day(0)},
		{EstablishmentID: approved.ID, Title: "thursday quiz", IsActive: true, IsRecurring: true, RecurrenceDays: []int{4}, DateDebut: day(-30), DateFin: day(-30)},
		{EstablishmentID: approved.ID, Title: "monday quiz", IsActive: true, IsRecurring: true, RecurrenceDays: []int{1}, DateDebut: day(-30), DateFin: day(-30)},
		{EstablishmentID: pending.ID, Title: "hidden", IsActive: true, DateDebut: day(0), DateFin: day(0)},
	}
	for i := range deals {
		require.NoError(t, db.Create(&deals[i]).Error)
	}

	w := request(t, dealRouter(), http.MethodGet, "/api/deals/active", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got []models.DailyDeal
	decode(t, w, &got)
	titles := make([]string, 0, len(got))
	for _, d := range got {
		titles = append(titles, d.Title)
	}
	assert.ElementsMatch(t, []string{"today", "happy hour", "thursday quiz"}, titles)

	w = request(t, dealRouter(), http.MethodGet, "/api/establishments/en-attente/deals", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = request(t, dealRouter(), http.MethodGet, "/api/deals/active?city=lyon", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &got)
	assert.Empty(t, got)
}

func TestUpdateAndDeleteDeal(t *testing.T) {
	db := setupDB(t)
	pro := createPro(t, db, "pro@bar.fr", "73282932000074")
	other := createPro(t, db, "other@bar.fr", "44306184100047")
	est := createEstablishment(t, db, pro.ID, "Le Comptoir", models.StatusApproved)
	createEstablishment(t, db, other.ID, "Ailleurs", models.StatusApproved)
	r := dealRouter()

	deal := models.DailyDeal{EstablishmentID: est.ID, Title: "Pinte", IsActive: true,
		DateDebut: time.Date(2026, 10, 17, 0, 0, 0, 0, time.Local), DateFin: time.Date(2026, 10, 17, 0, 0, 0, 0, time.Local)}
	require.NoError(t, db.Create(&deal).Error)
	path := "/api/pro/deals/" + deal.ID.String()

	otherToken := tokenFor(t, other.ID, models.RolePro)
	w := request(t, r, http.MethodPut, path, otherToken, gin.H{"title": "Stolen"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	token := tokenFor(t, pro.ID, models.RolePro)
	w = request(t, r, http.MethodPut, path, token, gin.H{"isActive": false, "isRecurring": true, "recurrenceDays": []int{5, 6}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stored models.DailyDeal
	require.NoError(t, db.First(&stored, "id = ?", deal.ID).Error)
	assert.False(t, stored.IsActive)
	assert.Equal(t, models.RecurrenceWeekly, stored.RecurrenceType)
	assert.Equal(t, []int{5, 6}, []int(stored.RecurrenceDays))

	w = request(t, r, http.MethodPut, path, token, gin.H{"title": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = request(t, r, http.MethodGet, "/api/pro/deals", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []models.DailyDeal
	decode(t, w, &mine)
	assert.Len(t, mine, 1)

	w = request(t, r, http.MethodDelete, "/api/pro/deals/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = request(t, r, http.MethodDelete, "/api/pro/deals/"+uuid.NewString(), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = request(t, r, http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
