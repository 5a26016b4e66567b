// Command vesselscout scrapes vessel positions from MarineTraffic and
// VesselFinder, triggers remote scrape jobs and serves the HTTP API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := execute(ctx)
	stop()
	os.Exit(code)
}
