package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaorder/internal/model"
)

func newOrder(patientID, pharmacyID, prescriptionID string) *model.Order {
	return &model.Order{
		PatientID:      patientID,
		PharmacyID:     pharmacyID,
		PrescriptionID: prescriptionID,
		Medicines:      []model.Medicine{{Name: "Amoxicillin", Quantity: 14, Morning: true, Night: true}},
		Status:         model.StatusPending,
	}
}

func TestMemoryOrders_ActiveOrderConstraint(t *testing.T) {
	ctx := context.Background()
	orders := NewMemoryOrders(NewMemoryStore())

	require.NoError(t, orders.Create(ctx, newOrder("p1", "ph1", "rx1")))

	err := orders.Create(ctx, newOrder("p1", "ph1", "rx1"))
	assert.ErrorIs(t, err, ErrDuplicateActiveOrder)

	// A different triple is unaffected.
	assert.NoError(t, orders.Create(ctx, newOrder("p1", "ph2", "rx1")))
}

func TestMemoryOrders_TerminalStatusDoesNotBlock(t *testing.T) {
	ctx := context.Background()
	orders := NewMemoryOrders(NewMemoryStore())

	first := newOrder("p1", "ph1", "rx1")
	require.NoError(t, orders.Create(ctx, first))

	_, err := orders.UpdateStatus(ctx, first.ID, model.StatusCompleted)
	require.NoError(t, err)

	second := newOrder("p1", "ph1", "rx1")
	require.NoError(t, orders.Create(ctx, second))
	assert.NotEqual(t, first.ID, second.ID)
}

func TestMemoryOrders_ConcurrentCreateSingleWinner(t *testing.T) {
	ctx := context.Background()
	orders := NewMemoryOrders(NewMemoryStore())

	const attempts = 20
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- orders.Create(ctx, newOrder("p1", "ph1", "rx1"))
		}()
	}
	wg.Wait()
	close(results)

	var created, conflicted int
	for err := range results {
		switch {
		case err == nil:
			created++
		case errors.Is(err, ErrDuplicateActiveOrder):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, attempts-1, conflicted)
}

func TestMemoryOrders_FindActive(t *testing.T) {
	ctx := context.Background()
	orders := NewMemoryOrders(NewMemoryStore())

	o := newOrder("p1", "ph1", "rx1")
	require.NoError(t, orders.Create(ctx, o))

	found, err := orders.FindActive(ctx, "p1", "ph1", "rx1")
	require.NoError(t, err)
	assert.Equal(t, o.ID, found.ID)

	_, err = orders.FindActive(ctx, "p1", "ph1", "rx2")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = orders.UpdateStatus(ctx, o.ID, model.StatusRejected)
	require.NoError(t, err)
	_, err = orders.FindActive(ctx, "p1", "ph1", "rx1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryOrders_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	orders := NewMemoryOrders(NewMemoryStore())

	first := newOrder("p1", "ph1", "rx1")
	require.NoError(t, orders.Create(ctx, first))
	time.Sleep(time.Millisecond)
	second := newOrder("p1", "ph2", "rx1")
	require.NoError(t, orders.Create(ctx, second))

	list, err := orders.List(ctx, OrderFilter{PatientID: "p1"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	// Filtered by pharmacy.
	list, err = orders.List(ctx, OrderFilter{PatientID: "p1", PharmacyID: "ph2"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, second.ID, list[0].ID)
}

func TestMemoryOrders_LatestPerPharmacy(t *testing.T) {
	ctx := context.Background()
	orders := NewMemoryOrders(NewMemoryStore())

	old := newOrder("p1", "ph1", "rx1")
	require.NoError(t, orders.Create(ctx, old))
	_, err := orders.UpdateStatus(ctx, old.ID, model.StatusCompleted)
	require.NoError(t, err)

	time.Sleep(time.Millisecond)
	fresh := newOrder("p1", "ph1", "rx1")
	require.NoError(t, orders.Create(ctx, fresh))
	require.NoError(t, orders.Create(ctx, newOrder("p1", "ph2", "rx1")))
	require.NoError(t, orders.Create(ctx, newOrder("p2", "ph1", "rx2")))

	latest, err := orders.LatestPerPharmacy(ctx, "p1", "")
	require.NoError(t, err)
	require.Len(t, latest, 2)

	byPharmacy := make(map[string]model.Order)
	for _, o := range latest {
		byPharmacy[o.PharmacyID] = o
	}
	assert.Equal(t, fresh.ID, byPharmacy["ph1"].ID)
}

func TestMemoryOrders_PharmacyQueueOldestFirst(t *testing.T) {
	ctx := context.Background()
	orders := NewMemoryOrders(NewMemoryStore())

	a := newOrder("p1", "ph1", "rx1")
	require.NoError(t, orders.Create(ctx, a))
	time.Sleep(time.Millisecond)
	b := newOrder("p2", "ph1", "rx2")
	require.NoError(t, orders.Create(ctx, b))

	queue, err := orders.ListByPharmacyStatus(ctx, "ph1", model.StatusPending)
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, a.ID, queue[0].ID)
	assert.Equal(t, b.ID, queue[1].ID)

	queue, err = orders.ListByPharmacyStatus(ctx, "ph1", model.StatusConfirmed)
	require.NoError(t, err)
	assert.Empty(t, queue)
}

func TestMemoryUsers_DuplicateLogin(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryUsers(NewMemoryStore())

	require.NoError(t, users.Create(ctx, &model.User{Login: "anna", Role: model.RolePatient}))
	err := users.Create(ctx, &model.User{Login: "anna", Role: model.RoleDoctor})
	assert.ErrorIs(t, err, ErrDuplicateLogin)
}

func TestMemoryStore_CopiesAreIsolated(t *testing.T) {
	ctx := context.Background()
	orders := NewMemoryOrders(NewMemoryStore())

	o := newOrder("p1", "ph1", "rx1")
	require.NoError(t, orders.Create(ctx, o))

	got, err := orders.GetByID(ctx, o.ID)
	require.NoError(t, err)
	got.Medicines[0].Name = "mutated"
	got.Status = model.StatusRejected

	again, err := orders.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "Amoxicillin", again.Medicines[0].Name)
	assert.Equal(t, model.StatusPending, again.Status)
}
