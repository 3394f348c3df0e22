package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"envie2sortir-backend/config"
	applog "envie2sortir-backend/logger"
	"envie2sortir-backend/models"
	"envie2sortir-backend/services"
	"envie2sortir-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.ConfigureAuth("controllers-test-secret", time.Hour, bcrypt.MinCost)
}

// captureLogs routes the process logger into an in-memory observer.
func captureLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev := applog.L()
	applog.SetDefault(applog.FromZap(zap.New(core)))
	t.Cleanup(func() { applog.SetDefault(prev) })
	return logs
}

// setupDB points config.DB at a fresh in-memory database.
func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.AutoMigrate(db))

	prev := config.DB
	config.DB = db
	t.Cleanup(func() {
		config.DB = prev
		_ = sqlDB.Close()
	})
	return db
}

// freezeTime pins the controllers clock.
func freezeTime(t *testing.T, at time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = prev })
}

func tokenFor(t *testing.T, id uuid.UUID, role string) string {
	t.Helper()
	token, err := utils.GenerateToken(id.String(), role)
	require.NoError(t, err)
	return token
}

// protected wraps handlers with authentication and a role check.
func protected(roles ...string) []gin.HandlerFunc {
	return []gin.HandlerFunc{utils.AuthMiddleware(), utils.CSRFMiddleware(), utils.RequireRole(roles...)}
}

func withAuth(roles []string, h gin.HandlerFunc) []gin.HandlerFunc {
	return append(protected(roles...), h)
}

func request(t *testing.T, r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// newCookieRequest authenticates with the session cookie instead of a bearer token.
func newCookieRequest(method, path, token, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: utils.AuthCookieName, Value: token})
	return req
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

func createUser(t *testing.T, db *gorm.DB, email, role string) models.User {
	t.Helper()
	user := models.User{Email: email, Password: "password123", FirstName: "Test", Role: role}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createPro(t *testing.T, db *gorm.DB, email, siret string) models.Professional {
	t.Helper()
	pro := models.Professional{
		Email:     email,
		Password:  "password123",
		FirstName: "Camille",
		LastName:  "Martin",
		Phone:     "0612345678",
		Siret:     siret,
		IsActive:  true,
	}
	require.NoError(t, db.Create(&pro).Error)
	return pro
}

func createEstablishment(t *testing.T, db *gorm.DB, ownerID uuid.UUID, name, status string) models.Establishment {
	t.Helper()
	est := models.Establishment{
		Name:    name,
		Slug:    utils.Slugify(name),
		Address: "1 rue de la Paix",
		City:    "Paris",
		Status:  status,
		OwnerID: ownerID,
	}
	require.NoError(t, db.Create(&est).Error)
	return est
}

type fakeGeocoder struct {
	result *services.GeoResult
	err    error
	calls  []string
}

func (f *fakeGeocoder) Geocode(ctx context.Context, address string) (*services.GeoResult, error) {
	f.calls = append(f.calls, address)
	return f.result, f.err
}

type fakeIndex struct {
	indexed   []uuid.UUID
	removed   []uuid.UUID
	hits      []uuid.UUID
	err       error
	removeErr error
}

func (f *fakeIndex) Index(ctx context.Context, est *models.Establishment) error {
	f.indexed = append(f.indexed, est.ID)
	return nil
}

func (f *fakeIndex) Remove(ctx context.Context, id uuid.UUID) error {
	f.removed = append(f.removed, id)
	return f.removeErr
}

func (f *fakeIndex) Search(ctx context.Context, q services.SearchQuery) ([]uuid.UUID, int64, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.hits, int64(len(f.hits)), nil
}

type fakeNotifier struct {
	reviewed []string
}

func (f *fakeNotifier) NotifyEstablishmentReviewed(ctx context.Context, owner *models.Professional, est *models.Establishment) {
	f.reviewed = append(f.reviewed, est.Status)
}
