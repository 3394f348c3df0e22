package controllers

import (
	"net/http"
	"testing"
	"time"

	"envie2sortir-backend/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetNotificationLogs(t *testing.T) {
	db := setupDB(t)
	base := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	logs := []models.NotificationLog{
		{Recipient: "a@example.com", Channel: models.ChannelEmail, Type: "newsletter", Status: models.NotificationSent, SentAt: base},
		{Recipient: "b@example.com", Channel: models.ChannelEmail, Type: "establishment_approved", Status: models.NotificationFailed, SentAt: base.Add(time.Hour)},
		{Recipient: "+33612345678", Channel: models.ChannelSMS, Type: "establishment_approved", Status: models.NotificationSent, SentAt: base.Add(2 * time.Hour)},
	}
	for i := range logs {
		require.NoError(t, db.Create(&logs[i]).Error)
	}
	admin := createUser(t, db, "admin@example.com", models.RoleAdmin)
	token := tokenFor(t, admin.ID, models.RoleAdmin)

	r := gin.New()
	r.GET("/api/admin/notifications", withAuth([]string{models.RoleAdmin}, GetNotificationLogs)...)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"all newest first", "", []string{"+33612345678", "b@example.com", "a@example.com"}},
		{"by channel", "?channel=email", []string{"b@example.com", "a@example.com"}},
		{"by status", "?status=failed", []string{"b@example.com"}},
		{"by type", "?type=establishment_approved&channel=sms", []string{"+33612345678"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := request(t, r, http.MethodGet, "/api/admin/notifications"+tt.query, token, nil)
			require.Equal(t, http.StatusOK, w.Code)
			var page struct {
				Data []models.NotificationLog `json:"data"`
			}
			decode(t, w, &page)
			got := make([]string, 0, len(page.Data))
			for _, l := range page.Data {
				got = append(got, l.Recipient)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	w := request(t, r, http.MethodGet, "/api/admin/notifications", tokenFor(t, admin.ID, models.RoleUser), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
