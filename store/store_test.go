package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/use-agent/vesselscout/models"
)

func ptr[T any](v T) *T { return &v }

func TestMemoryUpsertMergesFields(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)

	first := models.NewVesselRecord("marinetraffic", "366998410", "", "cmp-1")
	first.Name = ptr("ATLANTIC STAR")
	first.Lat, first.Lon = ptr(10.0), ptr(20.0)
	require.NoError(t, s.Upsert(ctx, first))

	second := models.NewVesselRecord("vesselfinder", "366998410", "9395044", "cmp-2")
	second.Lat, second.Lon = ptr(11.0), ptr(21.0)
	require.NoError(t, s.Upsert(ctx, second))

	got, err := s.Get(ctx, "366998410")
	require.NoError(t, err)
	assert.Equal(t, "vesselfinder", got.Provider)
	assert.Equal(t, "cmp-2", got.ComparisonID)
	assert.Equal(t, "ATLANTIC STAR", *got.Name)
	assert.Equal(t, "9395044", *got.IMO)
	assert.Equal(t, 11.0, *got.Lat)
	assert.Equal(t, 21.0, *got.Lon)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryUpsertRequiresMMSI(t *testing.T) {
	s := NewMemoryStore(0)
	err := s.Upsert(context.Background(), models.NewVesselRecord("vesselfinder", "", "9395044", ""))
	assert.ErrorIs(t, err, ErrNoMMSI)
	assert.Zero(t, s.Len())
}

func TestMemoryGetUnknown(t *testing.T) {
	_, err := NewMemoryStore(0).Get(context.Background(), "000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	require.NoError(t, s.Upsert(ctx, models.NewVesselRecord("marinetraffic", "366998410", "", "")))

	got, err := s.Get(ctx, "366998410")
	require.NoError(t, err)
	got.Provider = "changed"

	again, err := s.Get(ctx, "366998410")
	require.NoError(t, err)
	assert.Equal(t, "marinetraffic", again.Provider)
}

func TestMemoryEvictsLeastRecentlyUpdated(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	require.NoError(t, s.Upsert(ctx, models.NewVesselRecord("marinetraffic", "111111111", "", "")))
	require.NoError(t, s.Upsert(ctx, models.NewVesselRecord("marinetraffic", "222222222", "", "")))
	require.NoError(t, s.Upsert(ctx, models.NewVesselRecord("marinetraffic", "111111111", "", "")))
	require.NoError(t, s.Upsert(ctx, models.NewVesselRecord("marinetraffic", "333333333", "", "")))

	assert.Equal(t, 2, s.Len())
	_, err := s.Get(ctx, "222222222")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, "111111111")
	assert.NoError(t, err)
}

func TestSink(t *testing.T) {
	s := NewMemoryStore(0)
	sink := NewSink(s)
	assert.Equal(t, "store", sink.Name())

	require.NoError(t, sink.Send(context.Background(), models.NewVesselRecord("marinetraffic", "366998410", "", "")))
	assert.ErrorIs(t, sink.Send(context.Background(), models.NewVesselRecord("marinetraffic", "", "9395044", "")), ErrNoMMSI)
}

func TestSetFieldsOmitsAbsentValues(t *testing.T) {
	rec := models.NewVesselRecord("marinetraffic", "366998410", "", "")
	rec.Speed = ptr(0.0)

	set, err := setFields(rec)
	require.NoError(t, err)
	assert.Equal(t, bson.M{
		"provider":    "marinetraffic",
		"data_source": "marinetraffic",
		"mmsi":        "366998410",
		"speed":       0.0,
	}, set)
}

func TestDedupKey(t *testing.T) {
	assert.Equal(t, "dedup:trigger:marinetraffic:366998410:cmp-1",
		DedupKey("marinetraffic", "366998410", "cmp-1"))
	assert.Equal(t, "dedup:trigger:all:9395044:",
		DedupKey("all", "9395044", ""))
}
