package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"envie2sortir-backend/models"
	"envie2sortir-backend/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGeocoder struct {
	res *services.GeoResult
	err error
}

func (s *stubGeocoder) Geocode(ctx context.Context, address string) (*services.GeoResult, error) {
	return s.res, s.err
}

func TestFixCoordinates(t *testing.T) {
	db := openTestDB(t)
	sf, err := parseSeed(strings.NewReader(seedYAML))
	require.NoError(t, err)
	_, err = applySeed(context.Background(), db, sf)
	require.NoError(t, err)

	stored := func() *models.Establishment {
		var est models.Establishment
		require.NoError(t, db.First(&est, "slug = ?", "le-zinc").Error)
		return &est
	}
	require.False(t, stored().HasCoordinates())

	geo := &stubGeocoder{err: errors.New("no result")}
	var out bytes.Buffer
	rep, err := fixCoordinates(context.Background(), db, geo, &out, false)
	require.NoError(t, err)
	assert.Equal(t, fixReport{scanned: 1, failed: 1}, rep)

	// a result across the Atlantic is never written
	geo = &stubGeocoder{res: &services.GeoResult{Latitude: 40.7128, Longitude: -74.006, Provider: "nominatim"}}
	rep, err = fixCoordinates(context.Background(), db, geo, &out, false)
	require.NoError(t, err)
	assert.Equal(t, fixReport{scanned: 1, rejected: 1}, rep)
	assert.False(t, stored().HasCoordinates())

	geo = &stubGeocoder{res: &services.GeoResult{Latitude: 48.8652, Longitude: 2.3789, Provider: "nominatim"}}
	rep, err = fixCoordinates(context.Background(), db, geo, &out, true)
	require.NoError(t, err)
	assert.Equal(t, fixReport{scanned: 1, fixed: 1}, rep)
	assert.False(t, stored().HasCoordinates())

	out.Reset()
	rep, err = fixCoordinates(context.Background(), db, geo, &out, false)
	require.NoError(t, err)
	assert.Equal(t, fixReport{scanned: 1, fixed: 1}, rep)
	assert.Contains(t, out.String(), "le-zinc")
	est := stored()
	require.True(t, est.HasCoordinates())
	assert.InDelta(t, 48.8652, *est.Latitude, 1e-9)

	// nothing left to fix
	rep, err = fixCoordinates(context.Background(), db, geo, &out, false)
	require.NoError(t, err)
	assert.Equal(t, fixReport{scanned: 1}, rep)
}
