package controllers

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"envie2sortir-backend/apperr"
	"envie2sortir-backend/models"
	"envie2sortir-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func establishmentRouter(ec *EstablishmentController) *gin.Engine {
	r := gin.New()
	pro := []string{models.RolePro}
	admin := []string{models.RoleAdmin}

	r.GET("/api/establishments", ec.ListEstablishments)
	r.GET("/api/establishments/:slug", ec.GetEstablishment)
	r.POST("/api/establishments/:slug/click", ec.TrackClick)

	r.GET("/api/pro/establishment", withAuth(pro, ec.GetMyEstablishment)...)
	r.POST("/api/pro/establishment", withAuth(pro, ec.CreateEstablishment)...)
	r.PUT("/api/pro/establishment", withAuth(pro, ec.UpdateEstablishment)...)
	r.DELETE("/api/pro/establishment", withAuth(pro, ec.DeleteEstablishment)...)

	r.GET("/api/admin/establishments", withAuth(admin, ec.AdminListEstablishments)...)
	r.GET("/api/admin/establishments/export.csv", withAuth(admin, ec.ExportEstablishmentsCSV)...)
	r.PATCH("/api/admin/establishments/:id/approve", withAuth(admin, ec.ApproveEstablishment)...)
	r.PATCH("/api/admin/establishments/:id/reject", withAuth(admin, ec.RejectEstablishment)...)
	r.DELETE("/api/admin/establishments/:id", withAuth(admin, ec.AdminDeleteEstablishment)...)
	return r
}

type establishmentFixture struct {
	db       *gorm.DB
	ec       *EstablishmentController
	geocoder *fakeGeocoder
	index    *fakeIndex
	notifier *fakeNotifier
	router   *gin.Engine
	pro      models.Professional
	proToken string
	admin    string
}

func newEstablishmentFixture(t *testing.T) *establishmentFixture {
	t.Helper()
	db := setupDB(t)
	f := &establishmentFixture{
		db:       db,
		geocoder: &fakeGeocoder{result: &services.GeoResult{Latitude: 48.8566, Longitude: 2.3522, Provider: "nominatim"}},
		index:    &fakeIndex{},
		notifier: &fakeNotifier{},
	}
	f.ec = &EstablishmentController{
		Learning: services.NewLearningService(db),
		Geocoder: f.geocoder,
		Search:   f.index,
		Notifier: f.notifier,
	}
	f.router = establishmentRouter(f.ec)
	f.pro = createPro(t, db, "owner@zinc.fr", "73282932000074")
	f.proToken = tokenFor(t, f.pro.ID, models.RolePro)
	admin := createUser(t, db, "admin@envie2sortir.fr", models.RoleAdmin)
	f.admin = tokenFor(t, admin.ID, models.RoleAdmin)
	return f
}

func (f *establishmentFixture) create(t *testing.T) models.Establishment {
	t.Helper()
	w := request(t, f.router, http.MethodPost, "/api/pro/establishment", f.proToken, gin.H{
		"name":        "Le Zinc Bar à cocktails",
		"description": "Terrasse, happy hour et cocktails maison",
		"address":     "12 rue Oberkampf",
		"city":        "Paris",
		"postalCode":  "75011",
		"tags":        []string{"Terrasse", "vinyles"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var body struct {
		Establishment models.Establishment     `json:"establishment"`
		Suggestion    services.TypeSuggestion `json:"suggestion"`
	}
	decode(t, w, &body)
	return body.Establishment
}

func TestCreateEstablishment(t *testing.T) {
	f := newEstablishmentFixture(t)

	est := f.create(t)
	assert.Equal(t, "le-zinc-bar-a-cocktails", est.Slug)
	assert.Equal(t, models.StatusPending, est.Status)
	assert.Equal(t, "bar", est.Category)
	assert.ElementsMatch(t, []string{"terrasse", "vinyles", "happy-hour", "cocktails"}, []string(est.Tags))
	require.True(t, est.HasCoordinates())
	assert.InDelta(t, 48.8566, *est.Latitude, 1e-9)
	assert.Equal(t, []string{"12 rue Oberkampf, 75011 Paris"}, f.geocoder.calls)

	var pattern models.EstablishmentLearningPattern
	require.NoError(t, f.db.First(&pattern, "establishment_id = ?", est.ID).Error)
	assert.Equal(t, "bar", pattern.DetectedType)

	w := request(t, f.router, http.MethodPost, "/api/pro/establishment", f.proToken, gin.H{
		"name": "Second", "address": "1 rue X", "city": "Paris",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateEstablishment_Validation(t *testing.T) {
	f := newEstablishmentFixture(t)

	tests := []struct {
		name string
		body gin.H
	}{
		{"missing address", gin.H{"name": "Le Zinc", "city": "Paris"}},
		{"bad postal code", gin.H{"name": "Le Zinc", "address": "1 rue X", "city": "Paris", "postalCode": "7501"}},
		{"inverted prices", gin.H{"name": "Le Zinc", "address": "1 rue X", "city": "Paris", "priceMin": 30, "priceMax": 10}},
		{"lone latitude", gin.H{"name": "Le Zinc", "address": "1 rue X", "city": "Paris", "latitude": 48.8}},
		{"bad email", gin.H{"name": "Le Zinc", "address": "1 rue X", "city": "Paris", "email": "nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := request(t, f.router, http.MethodPost, "/api/pro/establishment", f.proToken, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestCreateEstablishment_GeocodingFailureStillSaves(t *testing.T) {
	f := newEstablishmentFixture(t)
	f.geocoder.result, f.geocoder.err = nil, errors.New("provider down")

	est := f.create(t)
	assert.False(t, est.HasCoordinates())
}

func TestCreateEstablishment_KeepsGivenCategory(t *testing.T) {
	f := newEstablishmentFixture(t)

	w := request(t, f.router, http.MethodPost, "/api/pro/establishment", f.proToken, gin.H{
		"name": "Le Zinc Bar", "address": "1 rue X", "city": "Paris", "category": "restaurant",
		"latitude": 45.76, "longitude": 4.83,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var body struct {
		Establishment models.Establishment `json:"establishment"`
	}
	decode(t, w, &body)
	assert.Equal(t, "restaurant", body.Establishment.Category)
	assert.Empty(t, f.geocoder.calls)
}

func TestModerationLifecycle(t *testing.T) {
	f := newEstablishmentFixture(t)
	reviewAt := time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)
	freezeTime(t, reviewAt)
	est := f.create(t)

	// pending listings stay private
	w := request(t, f.router, http.MethodGet, "/api/establishments/"+est.Slug, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = request(t, f.router, http.MethodPatch, "/api/admin/establishments/"+est.ID.String()+"/approve", f.proToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = request(t, f.router, http.MethodPatch, "/api/admin/establishments/"+est.ID.String()+"/approve", f.admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{models.StatusApproved}, f.notifier.reviewed)
	assert.Equal(t, []uuid.UUID{est.ID}, f.index.indexed)

	w = request(t, f.router, http.MethodPatch, "/api/admin/establishments/"+est.ID.String()+"/approve", f.admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"Establishment is already approved"}`, w.Body.String())

	w = request(t, f.router, http.MethodGet, "/api/establishments", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data       []models.Establishment `json:"data"`
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}
	decode(t, w, &list)
	require.Len(t, list.Data, 1)
	assert.Equal(t, int64(1), list.Pagination.Total)

	w = request(t, f.router, http.MethodPatch, "/api/admin/establishments/"+est.ID.String()+"/reject", f.admin, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = request(t, f.router, http.MethodPatch, "/api/admin/establishments/"+est.ID.String()+"/reject", f.admin, gin.H{"reason": "Photos manquantes"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []uuid.UUID{est.ID}, f.index.removed)

	var stored models.Establishment
	require.NoError(t, f.db.First(&stored, "id = ?", est.ID).Error)
	assert.Equal(t, models.StatusRejected, stored.Status)
	assert.Equal(t, "Photos manquantes", stored.RejectionReason)
	require.NotNil(t, stored.ReviewedAt)
	assert.True(t, reviewAt.Equal(*stored.ReviewedAt))

	// editing a rejected listing resubmits it
	w = request(t, f.router, http.MethodPut, "/api/pro/establishment", f.proToken, gin.H{"description": "Avec photos"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, f.db.First(&stored, "id = ?", est.ID).Error)
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.Empty(t, stored.RejectionReason)
}

func TestAdminListEstablishments_StatusFilter(t *testing.T) {
	f := newEstablishmentFixture(t)
	other := createPro(t, f.db, "other@bar.fr", "44306184100047")
	createEstablishment(t, f.db, f.pro.ID, "Pending Place", models.StatusPending)
	createEstablishment(t, f.db, other.ID, "Approved Place", models.StatusApproved)

	w := request(t, f.router, http.MethodGet, "/api/admin/establishments?status=pending", f.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data []models.Establishment `json:"data"`
	}
	decode(t, w, &list)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "Pending Place", list.Data[0].Name)
	require.NotNil(t, list.Data[0].Owner)
	assert.Equal(t, "owner@zinc.fr", list.Data[0].Owner.Email)

	w = request(t, f.router, http.MethodGet, "/api/admin/establishments?status=archived", f.admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateEstablishment_RenameAndMove(t *testing.T) {
	f := newEstablishmentFixture(t)
	other := createPro(t, f.db, "other@bar.fr", "44306184100047")
	createEstablishment(t, f.db, other.ID, "Chez Marcel", models.StatusApproved)
	f.create(t)
	f.geocoder.calls = nil
	f.geocoder.result = &services.GeoResult{Latitude: 43.2965, Longitude: 5.3698}

	w := request(t, f.router, http.MethodPut, "/api/pro/establishment", f.proToken, gin.H{
		"name": "Chez Marcel", "city": "Marseille", "postalCode": "13001",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var est models.Establishment
	decode(t, w, &est)
	assert.Equal(t, "chez-marcel-2", est.Slug)
	assert.Equal(t, "Marseille", est.City)
	require.Len(t, f.geocoder.calls, 1)
	assert.InDelta(t, 43.2965, *est.Latitude, 1e-9)

	w = request(t, f.router, http.MethodPut, "/api/pro/establishment", f.proToken, gin.H{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetEstablishment_PublicDetail(t *testing.T) {
	f := newEstablishmentFixture(t)
	est := createEstablishment(t, f.db, f.pro.ID, "Le Comptoir", models.StatusApproved)
	require.NoError(t, f.db.Create(&models.Tariff{EstablishmentID: est.ID, Label: "Pinte", Price: 7}).Error)

	at := time.Date(2026, 10, 17, 19, 0, 0, 0, time.Local)
	freezeTime(t, at)
	require.NoError(t, f.db.Create(&models.DailyDeal{
		EstablishmentID: est.ID, Title: "Happy hour", IsActive: true,
		DateDebut: at.AddDate(0, 0, -1), DateFin: at.AddDate(0, 0, 1),
		HeureDebut: "18:00", HeureFin: "20:00",
	}).Error)
	require.NoError(t, f.db.Create(&models.DailyDeal{
		EstablishmentID: est.ID, Title: "Brunch", IsActive: true,
		DateDebut: at.AddDate(0, 0, -1), DateFin: at.AddDate(0, 0, 1),
		HeureDebut: "10:00", HeureFin: "14:00",
	}).Error)

	w := request(t, f.router, http.MethodGet, "/api/establishments/le-comptoir", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Establishment models.Establishment `json:"establishment"`
		ActiveDeals   []models.DailyDeal   `json:"activeDeals"`
	}
	decode(t, w, &body)
	assert.Equal(t, 1, body.Establishment.ViewsCount)
	require.Len(t, body.Establishment.Tariffs, 1)
	require.Len(t, body.ActiveDeals, 1)
	assert.Equal(t, "Happy hour", body.ActiveDeals[0].Title)

	w = request(t, f.router, http.MethodPost, "/api/establishments/le-comptoir/click", "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = request(t, f.router, http.MethodPost, "/api/establishments/unknown/click", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var stored models.Establishment
	require.NoError(t, f.db.First(&stored, "id = ?", est.ID).Error)
	assert.Equal(t, 1, stored.ViewsCount)
	assert.Equal(t, 1, stored.ClicksCount)
}

func TestListEstablishments_FiltersAndSearch(t *testing.T) {
	f := newEstablishmentFixture(t)
	second := createPro(t, f.db, "b@bar.fr", "44306184100047")
	third := createPro(t, f.db, "c@bar.fr", "55208131766522")

	a := createEstablishment(t, f.db, f.pro.ID, "Le Comptoir", models.StatusApproved)
	b := createEstablishment(t, f.db, second.ID, "La Cave", models.StatusApproved)
	createEstablishment(t, f.db, third.ID, "Pending Spot", models.StatusPending)
	require.NoError(t, f.db.Model(&b).Updates(map[string]interface{}{"city": "Lyon", "category": "bar", "avg_rating": 4.5}).Error)

	w := request(t, f.router, http.MethodGet, "/api/establishments?city=lyon", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data []models.Establishment `json:"data"`
	}
	decode(t, w, &list)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "La Cave", list.Data[0].Name)

	// search goes through the index, keeping its ranking
	f.index.hits = []uuid.UUID{a.ID, b.ID}
	w = request(t, f.router, http.MethodGet, "/api/establishments?q=bar", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	require.Len(t, list.Data, 2)
	assert.Equal(t, a.ID, list.Data[0].ID)

	// and falls back to SQL when the index fails
	f.index.err = errors.New("cluster red")
	w = request(t, f.router, http.MethodGet, "/api/establishments?q=cave", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "La Cave", list.Data[0].Name)
}

func TestDeleteEstablishment_Cascade(t *testing.T) {
	f := newEstablishmentFixture(t)
	est := createEstablishment(t, f.db, f.pro.ID, "Le Comptoir", models.StatusApproved)
	user := createUser(t, f.db, "alice@example.com", models.RoleUser)
	rating := 4

	require.NoError(t, f.db.Create(&models.DailyDeal{EstablishmentID: est.ID, Title: "Deal", DateDebut: time.Now(), DateFin: time.Now()}).Error)
	require.NoError(t, f.db.Create(&models.UserComment{UserID: user.ID, EstablishmentID: est.ID, Content: "Top", Rating: &rating}).Error)
	require.NoError(t, f.db.Create(&models.UserFavorite{UserID: user.ID, EstablishmentID: est.ID}).Error)
	require.NoError(t, f.db.Create(&models.Tariff{EstablishmentID: est.ID, Label: "Pinte", Price: 7}).Error)
	require.NoError(t, f.db.Create(&models.Menu{EstablishmentID: est.ID, Name: "Carte", FileURL: "/uploads/carte.pdf"}).Error)
	require.NoError(t, f.db.Create(&models.EstablishmentLearningPattern{EstablishmentName: est.Name, EstablishmentID: &est.ID, DetectedType: "bar"}).Error)

	w := request(t, f.router, http.MethodDelete, "/api/admin/establishments/"+uuid.NewString(), f.admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = request(t, f.router, http.MethodDelete, "/api/pro/establishment", f.proToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []uuid.UUID{est.ID}, f.index.removed)

	for _, model := range []interface{}{
		&models.Establishment{}, &models.DailyDeal{}, &models.UserFavorite{}, &models.Tariff{}, &models.Menu{},
	} {
		var count int64
		require.NoError(t, f.db.Model(model).Count(&count).Error)
		assert.Zero(t, count, "%T", model)
	}
	var comments int64
	require.NoError(t, f.db.Unscoped().Model(&models.UserComment{}).Count(&comments).Error)
	assert.Zero(t, comments)

	var pattern models.EstablishmentLearningPattern
	require.NoError(t, f.db.First(&pattern).Error)
	assert.Nil(t, pattern.EstablishmentID)
}

func TestExportEstablishmentsCSV(t *testing.T) {
	f := newEstablishmentFixture(t)
	freezeTime(t, time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC))
	createEstablishment(t, f.db, f.pro.ID, "Le Comptoir", models.StatusApproved)

	w := request(t, f.router, http.MethodGet, "/api/admin/establishments/export.csv", f.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "attachment; filename=establishments-2026-10-17.csv", w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Body.String(), "id,name,slug,status")
	assert.Contains(t, w.Body.String(), "Le Comptoir,le-comptoir,approved")
	assert.Contains(t, w.Body.String(), "owner@zinc.fr,73282932000074")
}

func TestAdminDeleteEstablishment_IndexFailureIsLogged(t *testing.T) {
	f := newEstablishmentFixture(t)
	logs := captureLogs(t)
	est := createEstablishment(t, f.db, f.pro.ID, "Le Comptoir", models.StatusApproved)
	f.index.removeErr = errors.New("index unreachable")

	w := request(t, f.router, http.MethodDelete, "/api/admin/establishments/"+est.ID.String(), f.admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []uuid.UUID{est.ID}, f.index.removed)

	warned := logs.FilterMessage("search index removal failed").All()
	require.Len(t, warned, 1)
	assert.Equal(t, est.ID.String(), warned[0].ContextMap()["establishmentId"])
	assert.Equal(t, "index unreachable", warned[0].ContextMap()["error"])
}

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     int
	}{
		{models.StatusPending, models.StatusApproved, 0},
		{models.StatusApproved, models.StatusRejected, 0},
		{models.StatusRejected, models.StatusRejected, http.StatusConflict},
		{models.StatusApproved, models.StatusPending, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			err := checkTransition(tt.from, tt.to)
			if tt.want == 0 {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.want, apperr.StatusOf(err))
		})
	}
}
