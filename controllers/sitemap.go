package controllers

import (
	"encoding/xml"
	"net/http"
	"strings"
	"time"

	"envie2sortir-backend/config"
	"envie2sortir-backend/models"
	"envie2sortir-backend/utils"

	"github.com/gin-gonic/gin"
)

var staticPages = []struct {
	Path       string
	ChangeFreq string
	Priority   string
}{
	{"/", "daily", "1.0"},
	{"/etablissements", "daily", "0.9"},
	{"/bons-plans", "daily", "0.8"},
	{"/carte", "weekly", "0.7"},
	{"/pro", "monthly", "0.6"},
	{"/newsletter", "monthly", "0.4"},
	{"/mentions-legales", "yearly", "0.2"},
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

type SitemapController struct {
	BaseURL string
}

// Sitemap lists static pages and every approved establishment page
func (sc *SitemapController) Sitemap(c *gin.Context) {
	var rows []struct {
		Slug      string
		UpdatedAt time.Time
	}
	if err := config.DB.Model(&models.Establishment{}).
		Select("slug, updated_at").
		Where("status = ?", models.StatusApproved).
		Order("updated_at DESC").
		Scan(&rows).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to build sitemap")
		return
	}

	base := strings.TrimRight(sc.BaseURL, "/")
	set := urlSet{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, p := range staticPages {
		set.URLs = append(set.URLs, sitemapURL{Loc: base + p.Path, ChangeFreq: p.ChangeFreq, Priority: p.Priority})
	}
	for _, r := range rows {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        base + "/etablissements/" + r.Slug,
			LastMod:    r.UpdatedAt.Format("2006-01-02"),
			ChangeFreq: "weekly",
			Priority:   "0.8",
		})
	}

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to build sitemap")
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", append([]byte(xml.Header), out...))
}
