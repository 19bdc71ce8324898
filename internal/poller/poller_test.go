package poller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"pharmaorder/internal/model"
)

// fakeAPI is a programmable stand-in for the order API.
type fakeAPI struct {
	mu         sync.Mutex
	pharmacies []model.Pharmacy
	orders     []model.Order

	createStatus int
	createOrder  model.Order
	createCalls  int
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/pharmacies", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		json.NewEncoder(w).Encode(f.pharmacies)
	})
	mux.HandleFunc("GET /api/orders/latest", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		json.NewEncoder(w).Encode(f.orders)
	})
	mux.HandleFunc("POST /api/orders", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.createCalls++
		if f.createStatus == http.StatusInternalServerError {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.createStatus)
		json.NewEncoder(w).Encode(f.createOrder)
	})
	return mux
}

func (f *fakeAPI) setSnapshot(pharmacies []model.Pharmacy, orders []model.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pharmacies = pharmacies
	f.orders = orders
}

func newTestPoller(t *testing.T, api *fakeAPI) (*Poller, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, "test-token")
	return NewPoller(client, "patient-1", "rx-1", defaultInterval), srv
}

func TestNewPoller_IntervalClamped(t *testing.T) {
	client := NewClient("http://localhost", "t")

	assert.Equal(t, defaultInterval, NewPoller(client, "p", "", 0).interval)
	assert.Equal(t, minInterval, NewPoller(client, "p", "", time.Second).interval)
	assert.Equal(t, maxInterval, NewPoller(client, "p", "", time.Minute).interval)
	assert.Equal(t, 7*time.Second, NewPoller(client, "p", "", 7*time.Second).interval)
}

func TestPollOnce(t *testing.T) {
	api := &fakeAPI{}
	api.setSnapshot(
		[]model.Pharmacy{{ID: "ph1", Name: "Central Pharmacy"}},
		[]model.Order{{ID: "o1", PharmacyID: "ph1", Status: model.StatusConfirmed}},
	)
	p, _ := newTestPoller(t, api)

	require.NoError(t, p.pollOnce(context.Background()))

	pharmacies := p.Pharmacies()
	require.Len(t, pharmacies, 1)
	assert.Equal(t, "Central Pharmacy", pharmacies[0].Name)

	e, ok := p.View().Get("ph1")
	require.True(t, ok)
	assert.Equal(t, StateConfirmed, e.State)
	assert.Equal(t, model.StatusConfirmed, e.Order.Status)

	// Next cycle picks up the status change.
	api.setSnapshot(
		[]model.Pharmacy{{ID: "ph1", Name: "Central Pharmacy"}},
		[]model.Order{{ID: "o1", PharmacyID: "ph1", Status: model.StatusReady}},
	)
	require.NoError(t, p.pollOnce(context.Background()))
	e, _ = p.View().Get("ph1")
	assert.Equal(t, model.StatusReady, e.Order.Status)
}

func TestPlaceOrder_Success(t *testing.T) {
	api := &fakeAPI{
		createStatus: http.StatusCreated,
		createOrder:  model.Order{ID: "srv-1", PharmacyID: "ph1", Status: model.StatusPending},
	}
	p, _ := newTestPoller(t, api)

	order, err := p.PlaceOrder(context.Background(), "ph1")
	require.NoError(t, err)
	assert.Equal(t, "srv-1", order.ID)

	e, ok := p.View().Get("ph1")
	require.True(t, ok)
	assert.Equal(t, StateConfirmed, e.State)
	assert.Equal(t, "srv-1", e.Order.ID)
}

func TestPlaceOrder_ConflictAdoptsExisting(t *testing.T) {
	api := &fakeAPI{
		createStatus: http.StatusConflict,
		createOrder:  model.Order{ID: "existing-1", PharmacyID: "ph1", Status: model.StatusConfirmed},
	}
	p, _ := newTestPoller(t, api)

	order, err := p.PlaceOrder(context.Background(), "ph1")
	require.NoError(t, err, "a conflict is not an error to the caller")
	assert.Equal(t, "existing-1", order.ID)

	e, _ := p.View().Get("ph1")
	assert.Equal(t, StateConfirmed, e.State)
	assert.Equal(t, model.StatusConfirmed, e.Order.Status)
}

func TestPlaceOrder_FailureRollsBack(t *testing.T) {
	api := &fakeAPI{createStatus: http.StatusInternalServerError}
	p, _ := newTestPoller(t, api)

	_, err := p.PlaceOrder(context.Background(), "ph1")
	require.Error(t, err)

	e, ok := p.View().Get("ph1")
	require.True(t, ok)
	assert.Equal(t, StateError, e.State)
	assert.NotEmpty(t, e.Err)
}

func TestRun_StopsCleanly(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)

	api := &fakeAPI{}
	api.setSnapshot([]model.Pharmacy{{ID: "ph1"}}, nil)
	p, srv := newTestPoller(t, api)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx)
	}()

	// The first fetch happens immediately, before the first tick.
	require.Eventually(t, func() bool {
		return len(p.Pharmacies()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop after cancellation")
	}
	srv.Close()
}
