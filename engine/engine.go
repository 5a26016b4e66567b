package engine

import (
	"context"

	"github.com/use-agent/vesselscout/extract"
	"github.com/use-agent/vesselscout/models"
	"github.com/use-agent/vesselscout/provider"
)

// Session is one isolated browser session bound to a single vessel page.
type Session interface {
	// Load navigates to the vessel page, signing in first when needed.
	Load(ctx context.Context, url string) error

	// Settle waits until the page is ready for extraction. It returns an
	// error only when ctx ends; a page that never becomes ready is used as is.
	Settle(ctx context.Context) error

	// Evidence snapshots the loaded page.
	Evidence(ctx context.Context) (*extract.Evidence, error)

	// Close releases every resource the session holds.
	Close() error
}

// SessionFactory opens sessions for a provider.
type SessionFactory interface {
	Open(ctx context.Context, p provider.Provider) (Session, error)
}

// Sink receives finished records.
type Sink interface {
	// Name identifies the sink in outcomes, logs and metrics.
	Name() string

	// Send delivers rec. A failed delivery never fails the scrape.
	Send(ctx context.Context, rec models.VesselRecord) error
}

// FailureReporter is implemented by sinks that also want to hear about
// invocations that ended in FAILED.
type FailureReporter interface {
	ReportFailure(ctx context.Context, rec models.VesselRecord, err error) error
}

// SecondarySource looks a vessel up in an API outside the browser. It
// returns (nil, nil) when the API has nothing valid for the identifier.
type SecondarySource interface {
	Lookup(ctx context.Context, identifier string) (*models.VesselRecord, error)
}
