// Package store persists vessel records keyed by mmsi and de-duplicates
// trigger requests.
package store

import (
	"context"
	"errors"

	"github.com/use-agent/vesselscout/models"
)

var (
	// ErrNoMMSI is returned when a record without an mmsi is upserted.
	ErrNoMMSI = errors.New("store: record has no mmsi")
	// ErrNotFound is returned by Get for an unknown mmsi.
	ErrNotFound = errors.New("store: vessel not found")
)

// Store keeps the latest known record per vessel.
type Store interface {
	// Upsert merges rec into the stored record with the same mmsi. Fields
	// absent from rec keep their stored value.
	Upsert(ctx context.Context, rec models.VesselRecord) error

	// Get returns the stored record for mmsi.
	Get(ctx context.Context, mmsi string) (*models.VesselRecord, error)

	Close(ctx context.Context) error
}

// Sink adapts a Store to the dispatcher.
type Sink struct {
	store Store
}

// NewSink returns a sink upserting into s.
func NewSink(s Store) *Sink { return &Sink{store: s} }

func (s *Sink) Name() string { return "store" }

// Send upserts rec.
func (s *Sink) Send(ctx context.Context, rec models.VesselRecord) error {
	return s.store.Upsert(ctx, rec)
}

func mmsiOf(rec models.VesselRecord) (string, error) {
	if rec.MMSI == nil {
		return "", ErrNoMMSI
	}
	m := models.TrimIdentifier(*rec.MMSI)
	if m == "" {
		return "", ErrNoMMSI
	}
	return m, nil
}
