package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/use-agent/vesselscout/analytics"
	"github.com/use-agent/vesselscout/config"
	"github.com/use-agent/vesselscout/datadocked"
	"github.com/use-agent/vesselscout/pipeline"
	"github.com/use-agent/vesselscout/store"
	"github.com/use-agent/vesselscout/trigger"
)

// memoryStoreEntries bounds the in-memory store used without MongoDB.
const memoryStoreEntries = 10000

// openStore connects MongoDB when configured and falls back to memory.
func openStore(ctx context.Context, c *config.Config) (store.Store, error) {
	if c.Mongo.URI == "" {
		slog.Info("MONGO_URI not set, using in-memory store")
		return store.NewMemoryStore(memoryStoreEntries), nil
	}
	s, err := store.ConnectMongo(ctx, c.Mongo)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	slog.Info("mongo store connected", "db", c.Mongo.Database, "collection", c.Mongo.Collection)
	return s, nil
}

// newBuilder wires the sink clients that c enables. Disabled clients stay
// nil so the builder rejects the matching request switch before any page
// load.
func newBuilder(c *config.Config, s store.Store) *pipeline.Builder {
	b := &pipeline.Builder{Store: s}
	if c.Analytics.Enabled() {
		b.Analytics = analytics.NewClient(c.Analytics)
	} else {
		slog.Debug("POSTHOG_API_KEY not set, analytics disabled")
	}
	if c.Trigger.Enabled() {
		b.Trigger = trigger.NewClient(c.Trigger)
	} else {
		slog.Debug("GITHUB_TOKEN or GITHUB_REPO_OWNER not set, job chaining disabled")
	}
	if c.DataDocked.Enabled() {
		b.Secondary = datadocked.NewClient(c.DataDocked)
	} else {
		slog.Debug("DATADOCKED_API_KEY not set, secondary source disabled")
	}
	return b
}
