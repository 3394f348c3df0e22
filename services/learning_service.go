package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
	"unicode"

	"envie2sortir-backend/apperr"
	"envie2sortir-backend/models"
	"envie2sortir-backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TypeOther = "other"

	googleTypeWeight      = 3.0
	nameKeywordWeight     = 2.0
	descKeywordWeight     = 1.0
	correctedPatternBoost = 2.0
	maxCorrectedPatterns  = 500
)

// categoryKeywords are matched on normalized text, multi-word entries as phrases.
var categoryKeywords = map[string][]string{
	"bar":         {"bar", "pub", "cocktail", "cocktails", "biere", "bieres", "cave a vin", "bar a vin", "taverne", "lounge", "speakeasy"},
	"restaurant":  {"restaurant", "resto", "brasserie", "bistrot", "bistro", "pizzeria", "trattoria", "creperie", "sushi", "burger", "cuisine", "gastronomique"},
	"cafe":        {"cafe", "coffee", "salon de the", "boulangerie", "patisserie", "torrefacteur"},
	"nightclub":   {"club", "discotheque", "boite de nuit", "night club", "dancing"},
	"escape_game": {"escape", "escape game", "enigme", "enigmes"},
	"bowling":     {"bowling"},
	"karaoke":     {"karaoke"},
	"cinema":      {"cinema", "film", "films"},
	"theatre":     {"theatre", "spectacle", "comedie", "cafe theatre"},
	"museum":      {"musee", "museum", "exposition", "galerie"},
	"spa":         {"spa", "hammam", "massage", "bien etre"},
	"sport":       {"laser game", "paintball", "karting", "escalade", "padel", "trampoline", "salle de sport"},
}

var googleTypeCategories = map[string]string{
	"bar":            "bar",
	"liquor_store":   "bar",
	"night_club":     "nightclub",
	"restaurant":     "restaurant",
	"meal_takeaway":  "restaurant",
	"meal_delivery":  "restaurant",
	"food":           "restaurant",
	"cafe":           "cafe",
	"bakery":         "cafe",
	"bowling_alley":  "bowling",
	"movie_theater":  "cinema",
	"museum":         "museum",
	"art_gallery":    "museum",
	"spa":            "spa",
	"gym":            "sport",
	"stadium":        "sport",
	"amusement_park": "sport",
}

// tagKeywords enrich listings with amenity tags.
var tagKeywords = map[string][]string{
	"terrasse":       {"terrasse", "outdoor seating", "outdoor_seating"},
	"happy-hour":     {"happy hour", "happy hours", "afterwork"},
	"vegan":          {"vegan", "vegane", "vegetarien", "vegetarienne", "veggie"},
	"karaoke":        {"karaoke"},
	"musique-live":   {"concert", "concerts", "live music", "musique live", "dj"},
	"cocktails":      {"cocktail", "cocktails", "mixologie"},
	"brunch":         {"brunch"},
	"rooftop":        {"rooftop", "toit terrasse"},
	"sans-gluten":    {"sans gluten", "gluten free"},
	"retransmission": {"match", "matchs", "retransmission", "sports bar"},
	"jeux":           {"jeux de societe", "board games", "flechettes", "billard", "baby foot"},
	"animaux":        {"chien", "chiens", "dog friendly", "animaux"},
}

var stopWords = map[string]bool{
	"le": true, "la": true, "les": true, "de": true, "des": true, "du": true, "un": true,
	"une": true, "et": true, "au": true, "aux": true, "chez": true, "the": true, "and": true,
	"en": true, "sur": true, "par": true, "pour": true, "avec": true,
}

type SuggestionInput struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	GoogleTypes []string `json:"googleTypes"`
}

type Alternative struct {
	Type       string  `json:"type"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

type TypeSuggestion struct {
	Type         string        `json:"type"`
	Confidence   float64       `json:"confidence"`
	Alternatives []Alternative `json:"alternatives"`
	Tags         []string      `json:"tags"`
	Keywords     []string      `json:"keywords"`
}

// Tokenize lowercases, strips accents and splits on anything not a letter or digit.
func Tokenize(text string) []string {
	text = strings.ToLower(utils.StripAccents(text))
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Keywords returns the significant tokens of a name.
func Keywords(text string) []string {
	seen := map[string]bool{}
	var out []string
	for _, tok := range Tokenize(text) {
		if len(tok) < 3 || stopWords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

func containsPhrase(padded, phrase string) bool {
	return strings.Contains(padded, " "+phrase+" ")
}

func pad(tokens []string) string {
	return " " + strings.Join(tokens, " ") + " "
}

// SuggestType scores categories for the input. Corrected patterns sharing a keyword
// with the input vote for their corrected type.
func SuggestType(in SuggestionInput, corrected []models.EstablishmentLearningPattern) *TypeSuggestion {
	nameTokens := Tokenize(in.Name)
	descTokens := Tokenize(in.Description)
	name, desc := pad(nameTokens), pad(descTokens)

	scores := map[string]float64{}

	for _, gt := range in.GoogleTypes {
		if cat, ok := googleTypeCategories[strings.ToLower(strings.TrimSpace(gt))]; ok {
			scores[cat] += googleTypeWeight
		}
	}

	for cat, keywords := range categoryKeywords {
		inName, inDesc := false, false
		for _, kw := range keywords {
			if !inName && containsPhrase(name, kw) {
				inName = true
			}
			if !inDesc && containsPhrase(desc, kw) {
				inDesc = true
			}
		}
		if inName {
			scores[cat] += nameKeywordWeight
		}
		if inDesc {
			scores[cat] += descKeywordWeight
		}
	}

	inputTokens := map[string]bool{}
	for _, tok := range append(nameTokens, descTokens...) {
		inputTokens[tok] = true
	}
	for _, p := range corrected {
		if !p.IsCorrected {
			continue
		}
		kind := p.EffectiveType()
		for _, kw := range p.Keywords {
			if inputTokens[kw] {
				scores[kind] += correctedPatternBoost * p.Confidence
				break
			}
		}
	}

	result := &TypeSuggestion{
		Type:         TypeOther,
		Alternatives: []Alternative{},
		Tags:         SuggestTags(in),
		Keywords:     Keywords(in.Name),
	}

	var total float64
	ranked := make([]Alternative, 0, len(scores))
	for cat, score := range scores {
		if score <= 0 {
			continue
		}
		total += score
		ranked = append(ranked, Alternative{Type: cat, Score: score})
	}
	if total == 0 {
		return result
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Type < ranked[j].Type
	})
	for i := range ranked {
		ranked[i].Confidence = ranked[i].Score / total
	}

	result.Type = ranked[0].Type
	result.Confidence = ranked[0].Confidence
	result.Alternatives = ranked[1:]
	return result
}

// SuggestTags applies the keyword to tag table to name, description and Google types.
func SuggestTags(in SuggestionInput) []string {
	text := pad(Tokenize(in.Name + " " + in.Description + " " + strings.Join(in.GoogleTypes, " ")))
	var tags []string
	for tag, keywords := range tagKeywords {
		for _, kw := range keywords {
			if containsPhrase(text, strings.Join(Tokenize(kw), " ")) {
				tags = append(tags, tag)
				break
			}
		}
	}
	sort.Strings(tags)
	if tags == nil {
		tags = []string{}
	}
	return tags
}

// LearningService persists detections and admin feedback on them.
type LearningService struct {
	db *gorm.DB
}

func NewLearningService(db *gorm.DB) *LearningService {
	return &LearningService{db: db}
}

func (s *LearningService) Suggest(ctx context.Context, in SuggestionInput) (*TypeSuggestion, error) {
	var corrected []models.EstablishmentLearningPattern
	if err := s.db.WithContext(ctx).
		Where("is_corrected = ? AND corrected_type IS NOT NULL", true).
		Order("corrected_at DESC").
		Limit(maxCorrectedPatterns).
		Find(&corrected).Error; err != nil {
		return nil, apperr.NewInternal("Failed to load learning patterns", err)
	}
	return SuggestType(in, corrected), nil
}

// RecordPattern stores a detection. tx lets callers record inside their transaction.
func (s *LearningService) RecordPattern(ctx context.Context, tx *gorm.DB, in SuggestionInput, establishmentID *uuid.UUID, suggestion *TypeSuggestion) (*models.EstablishmentLearningPattern, error) {
	if tx == nil {
		tx = s.db
	}
	pattern := models.EstablishmentLearningPattern{
		EstablishmentName: in.Name,
		EstablishmentID:   establishmentID,
		DetectedType:      suggestion.Type,
		Keywords:          suggestion.Keywords,
		GoogleTypes:       in.GoogleTypes,
		Confidence:        suggestion.Confidence,
	}
	if pattern.GoogleTypes == nil {
		pattern.GoogleTypes = []string{}
	}
	if pattern.Keywords == nil {
		pattern.Keywords = []string{}
	}
	if err := tx.WithContext(ctx).Create(&pattern).Error; err != nil {
		return nil, err
	}
	return &pattern, nil
}

type PatternFilter struct {
	Corrected *bool
	Type      string
	Limit     int
	Offset    int
}

func (s *LearningService) ListPatterns(ctx context.Context, f PatternFilter) ([]models.EstablishmentLearningPattern, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.EstablishmentLearningPattern{})
	if f.Corrected != nil {
		query = query.Where("is_corrected = ?", *f.Corrected)
	}
	if f.Type != "" {
		query = query.Where("detected_type = ? OR corrected_type = ?", f.Type, f.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var patterns []models.EstablishmentLearningPattern
	err := query.Order("created_at DESC").Limit(f.Limit).Offset(f.Offset).Find(&patterns).Error
	return patterns, total, err
}

type LearningStats struct {
	Total     int64            `json:"total"`
	Reviewed  int64            `json:"reviewed"`
	Corrected int64            `json:"corrected"`
	Validated int64            `json:"validated"`
	Pending   int64            `json:"pending"`
	Accuracy  float64          `json:"accuracy"`
	ByType    map[string]int64 `json:"byType"`
}

// Stats counts reviewed patterns. Accuracy is the share of reviewed detections
// the admin kept unchanged.
func (s *LearningService) Stats(ctx context.Context) (*LearningStats, error) {
	db := s.db.WithContext(ctx).Model(&models.EstablishmentLearningPattern{})
	stats := &LearningStats{ByType: map[string]int64{}}

	if err := db.Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.EstablishmentLearningPattern{}).
		Where("is_corrected = ?", true).Count(&stats.Reviewed).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.EstablishmentLearningPattern{}).
		Where("is_corrected = ? AND corrected_type = detected_type", true).Count(&stats.Validated).Error; err != nil {
		return nil, err
	}
	stats.Corrected = stats.Reviewed - stats.Validated
	stats.Pending = stats.Total - stats.Reviewed
	if stats.Reviewed > 0 {
		stats.Accuracy = float64(stats.Validated) / float64(stats.Reviewed)
	}

	var rows []struct {
		DetectedType string
		Count        int64
	}
	if err := s.db.WithContext(ctx).Model(&models.EstablishmentLearningPattern{}).
		Select("detected_type, COUNT(*) AS count").
		Group("detected_type").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		stats.ByType[r.DetectedType] = r.Count
	}
	return stats, nil
}

// Correct records the admin's type for a pattern.
func (s *LearningService) Correct(ctx context.Context, id uuid.UUID, correctedType string, adminID uuid.UUID) (*models.EstablishmentLearningPattern, error) {
	correctedType = strings.TrimSpace(correctedType)
	if correctedType == "" {
		return nil, apperr.NewValidation("Corrected type is required")
	}
	return s.review(ctx, id, &correctedType, adminID)
}

// Validate confirms the detected type was right.
func (s *LearningService) Validate(ctx context.Context, id uuid.UUID, adminID uuid.UUID) (*models.EstablishmentLearningPattern, error) {
	return s.review(ctx, id, nil, adminID)
}

func (s *LearningService) review(ctx context.Context, id uuid.UUID, correctedType *string, adminID uuid.UUID) (*models.EstablishmentLearningPattern, error) {
	var pattern models.EstablishmentLearningPattern
	if err := s.db.WithContext(ctx).First(&pattern, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NewNotFound("Pattern")
		}
		return nil, err
	}

	if correctedType == nil {
		detected := pattern.DetectedType
		correctedType = &detected
	}
	now := time.Now()
	pattern.CorrectedType = correctedType
	pattern.IsCorrected = true
	pattern.CorrectedBy = &adminID
	pattern.CorrectedAt = &now
	// reviewed patterns are certain
	pattern.Confidence = 1

	if err := s.db.WithContext(ctx).Save(&pattern).Error; err != nil {
		return nil, err
	}
	return &pattern, nil
}

func (s *LearningService) Delete(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.EstablishmentLearningPattern{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NewNotFound("Pattern")
	}
	return nil
}
