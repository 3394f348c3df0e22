package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"envie2sortir-backend/config"
	"envie2sortir-backend/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
)

// EstablishmentIndex keeps approved establishments searchable.
type EstablishmentIndex interface {
	Index(ctx context.Context, est *models.Establishment) error
	Remove(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, q SearchQuery) ([]uuid.UUID, int64, error)
}

type SearchQuery struct {
	Text     string
	Category string
	City     string
	Limit    int
	Offset   int
}

type searchDocument struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	City        string    `json:"city"`
	Category    string    `json:"category"`
	Activities  []string  `json:"activities"`
	Tags        []string  `json:"tags"`
	AvgRating   float64   `json:"avgRating"`
	Location    *geoPoint `json:"location,omitempty"`
}

type geoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// SearchService indexes establishments in Elasticsearch.
type SearchService struct {
	client *elasticsearch.Client
	index  string
}

func NewSearchService(cfg config.ElasticsearchConfig) (*SearchService, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
	}
	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return &SearchService{client: es, index: cfg.Index}, nil
}

func (s *SearchService) Index(ctx context.Context, est *models.Establishment) error {
	doc := searchDocument{
		ID:          est.ID.String(),
		Name:        est.Name,
		Slug:        est.Slug,
		Description: est.Description,
		City:        est.City,
		Category:    est.Category,
		Activities:  est.Activities,
		Tags:        est.Tags,
		AvgRating:   est.AvgRating,
	}
	if est.HasCoordinates() {
		doc.Location = &geoPoint{Lat: *est.Latitude, Lon: *est.Longitude}
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: doc.ID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index failed: %s", res.String())
	}
	return nil
}

func (s *SearchService) Remove(ctx context.Context, id uuid.UUID) error {
	req := esapi.DeleteRequest{
		Index:      s.index,
		DocumentID: id.String(),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	// already gone is fine
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete failed: %s", res.String())
	}
	return nil
}

// Search returns matching establishment ids ordered by relevance.
func (s *SearchService) Search(ctx context.Context, q SearchQuery) ([]uuid.UUID, int64, error) {
	must := []map[string]interface{}{
		{
			"multi_match": map[string]interface{}{
				"query":     q.Text,
				"fields":    []string{"name^3", "description", "city^2", "tags", "activities"},
				"fuzziness": "AUTO",
			},
		},
	}
	var filter []map[string]interface{}
	if q.Category != "" {
		filter = append(filter, map[string]interface{}{"term": map[string]interface{}{"category": q.Category}})
	}
	if q.City != "" {
		filter = append(filter, map[string]interface{}{"match": map[string]interface{}{"city": q.City}})
	}

	boolQuery := map[string]interface{}{"must": must}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}
	queryBody := map[string]interface{}{
		"query":   map[string]interface{}{"bool": boolQuery},
		"from":    q.Offset,
		"size":    q.Limit,
		"_source": []string{"id"},
	}

	body, err := json.Marshal(queryBody)
	if err != nil {
		return nil, 0, err
	}
	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  strings.NewReader(string(body)),
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, 0, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, 0, fmt.Errorf("search failed: %s", res.String())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, 0, err
	}

	ids := make([]uuid.UUID, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		if id, err := uuid.Parse(hit.ID); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, r.Hits.Total.Value, nil
}
