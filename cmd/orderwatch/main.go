package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pharmaorder/internal/poller"
)

// orderwatch runs the patient-side poller against a running order API
// and logs status changes per pharmacy as they reconcile.
func main() {
	var (
		server         = flag.String("server", "http://localhost:8080", "order API base URL")
		token          = flag.String("token", "", "bearer token for the patient account")
		patientID      = flag.String("patient", "", "patient id to watch")
		prescriptionID = flag.String("prescription", "", "optional prescription id filter")
		interval       = flag.Duration("interval", 10*time.Second, "poll interval (clamped to 5-15s)")
	)
	flag.Parse()

	if *token == "" || *patientID == "" {
		slog.Error("both -token and -patient are required")
		os.Exit(1)
	}

	client := poller.NewClient(*server, *token)
	p := poller.NewPoller(client, *patientID, *prescriptionID, *interval)

	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx)

	go watch(ctx, p, *interval)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	slog.Info("orderwatch stopped")
}

// watch logs every entry whose status changed since the previous cycle.
func watch(ctx context.Context, p *poller.Poller, interval time.Duration) {
	last := make(map[string]string)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for pharmacyID, e := range p.View().Entries() {
				key := string(e.State) + "/" + string(e.Order.Status)
				if last[pharmacyID] == key {
					continue
				}
				last[pharmacyID] = key
				slog.Info("order state",
					"pharmacy", pharmacyID,
					"state", e.State,
					"status", e.Order.Status,
					"order", e.Order.ID,
				)
			}
		}
	}
}
