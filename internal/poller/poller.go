package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"pharmaorder/internal/model"
)

const (
	minInterval     = 5 * time.Second
	maxInterval     = 15 * time.Second
	defaultInterval = 10 * time.Second
)

// Poller keeps a patient's latest-order-per-pharmacy view approximately
// fresh by re-fetching the pharmacy list and order snapshot on a fixed
// interval. Each cycle takes a new generation from a monotonic counter;
// the view discards snapshots that lose the race to a newer cycle.
type Poller struct {
	client         *Client
	view           *View
	patientID      string
	prescriptionID string
	interval       time.Duration
	generation     atomic.Uint64

	mu         sync.Mutex
	pharmacies []model.Pharmacy
}

func NewPoller(client *Client, patientID, prescriptionID string, interval time.Duration) *Poller {
	if interval == 0 {
		interval = defaultInterval
	}
	if interval < minInterval {
		interval = minInterval
	}
	if interval > maxInterval {
		interval = maxInterval
	}
	return &Poller{
		client:         client,
		view:           NewView(),
		patientID:      patientID,
		prescriptionID: prescriptionID,
		interval:       interval,
	}
}

func (p *Poller) View() *View {
	return p.view
}

// Pharmacies returns the last fetched pharmacy directory.
func (p *Poller) Pharmacies() []model.Pharmacy {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.Pharmacy(nil), p.pharmacies...)
}

// Run polls until the context is cancelled, starting with an immediate
// fetch. In-flight requests are aborted through the context.
func (p *Poller) Run(ctx context.Context) {
	slog.Info("starting order poller", "interval", p.interval)

	if err := p.pollOnce(ctx); err != nil && ctx.Err() == nil {
		slog.Error("poll failed", "error", err)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("order poller stopped")
			return
		case <-ticker.C:
			if err := p.pollOnce(ctx); err != nil && ctx.Err() == nil {
				slog.Error("poll failed", "error", err)
			}
		}
	}
}

// pollOnce fetches the pharmacy list and the order snapshot concurrently
// and reconciles both into local state.
func (p *Poller) pollOnce(ctx context.Context) error {
	generation := p.generation.Add(1)

	var (
		wg          sync.WaitGroup
		pharmacies  []model.Pharmacy
		orders      []model.Order
		pharmacyErr error
		orderErr    error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		pharmacies, pharmacyErr = p.client.ListPharmacies(ctx)
	}()
	go func() {
		defer wg.Done()
		orders, orderErr = p.client.LatestOrders(ctx, p.patientID, p.prescriptionID)
	}()
	wg.Wait()

	if pharmacyErr != nil {
		return fmt.Errorf("fetch pharmacies: %w", pharmacyErr)
	}
	if orderErr != nil {
		return fmt.Errorf("fetch orders: %w", orderErr)
	}

	p.mu.Lock()
	p.pharmacies = pharmacies
	p.mu.Unlock()

	if !p.view.ApplySnapshot(generation, orders) {
		slog.Debug("stale snapshot discarded", "generation", generation)
	}
	return nil
}

// PlaceOrder writes an optimistic pending placeholder for the pharmacy,
// sends the create request, and reconciles the outcome: the placeholder
// is replaced by the server record on success, replaced by the existing
// active order on conflict, and rolled back on failure.
func (p *Poller) PlaceOrder(ctx context.Context, pharmacyID string) (*model.Order, error) {
	placeholder := model.Order{
		ID:             "optimistic-" + uuid.NewString(),
		PatientID:      p.patientID,
		PharmacyID:     pharmacyID,
		PrescriptionID: p.prescriptionID,
		Status:         model.StatusPending,
		CreatedAt:      time.Now(),
	}
	p.view.BeginOptimistic(pharmacyID, placeholder)

	order, existed, err := p.client.CreateOrder(ctx, p.patientID, pharmacyID, p.prescriptionID)
	if err != nil {
		p.view.Rollback(pharmacyID, err)
		return nil, err
	}

	if existed {
		slog.Info("adopted existing active order", "pharmacy", pharmacyID, "order", order.ID)
	}
	p.view.Commit(pharmacyID, *order)
	return order, nil
}
