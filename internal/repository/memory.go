package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"pharmaorder/internal/model"
)

// MemoryStore backs in-memory implementations of all repositories. It
// mirrors the storage-layer guarantees of the Postgres implementation,
// including the single-active-order constraint, so service behavior can
// be tested without a database.
type MemoryStore struct {
	mu            sync.Mutex
	orders        map[string]*model.Order
	users         map[string]*model.User
	pharmacies    map[string]*model.Pharmacy
	prescriptions map[string]*model.Prescription
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:        make(map[string]*model.Order),
		users:         make(map[string]*model.User),
		pharmacies:    make(map[string]*model.Pharmacy),
		prescriptions: make(map[string]*model.Prescription),
	}
}

func copyOrder(o *model.Order) *model.Order {
	c := *o
	c.Medicines = append([]model.Medicine(nil), o.Medicines...)
	return &c
}

// -- Orders --

type MemoryOrders struct {
	s *MemoryStore
}

func NewMemoryOrders(s *MemoryStore) *MemoryOrders {
	return &MemoryOrders{s: s}
}

func (r *MemoryOrders) Create(_ context.Context, o *model.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	// Same constraint the uniq_active_order index enforces in Postgres.
	for _, existing := range r.s.orders {
		if existing.PatientID == o.PatientID &&
			existing.PharmacyID == o.PharmacyID &&
			existing.PrescriptionID == o.PrescriptionID &&
			existing.Status.Active() {
			return ErrDuplicateActiveOrder
		}
	}

	o.ID = uuid.NewString()
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	r.s.orders[o.ID] = copyOrder(o)
	return nil
}

func (r *MemoryOrders) GetByID(_ context.Context, id string) (*model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyOrder(o), nil
}

func (r *MemoryOrders) FindActive(_ context.Context, patientID, pharmacyID, prescriptionID string) (*model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, o := range r.s.orders {
		if o.PatientID == patientID && o.PharmacyID == pharmacyID &&
			o.PrescriptionID == prescriptionID && o.Status.Active() {
			return copyOrder(o), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryOrders) List(_ context.Context, f OrderFilter) ([]model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var orders []model.Order
	for _, o := range r.s.orders {
		if o.PatientID != f.PatientID {
			continue
		}
		if f.PharmacyID != "" && o.PharmacyID != f.PharmacyID {
			continue
		}
		if f.PrescriptionID != "" && o.PrescriptionID != f.PrescriptionID {
			continue
		}
		orders = append(orders, *copyOrder(o))
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func (r *MemoryOrders) LatestPerPharmacy(_ context.Context, patientID, prescriptionID string) ([]model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	latest := make(map[string]*model.Order)
	for _, o := range r.s.orders {
		if o.PatientID != patientID {
			continue
		}
		if prescriptionID != "" && o.PrescriptionID != prescriptionID {
			continue
		}
		if cur, ok := latest[o.PharmacyID]; !ok || o.CreatedAt.After(cur.CreatedAt) {
			latest[o.PharmacyID] = o
		}
	}

	var orders []model.Order
	for _, o := range latest {
		orders = append(orders, *copyOrder(o))
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].PharmacyID < orders[j].PharmacyID
	})
	return orders, nil
}

func (r *MemoryOrders) UpdateStatus(_ context.Context, id string, status model.OrderStatus) (*model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	return copyOrder(o), nil
}

func (r *MemoryOrders) ListByPharmacyStatus(_ context.Context, pharmacyID string, status model.OrderStatus) ([]model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var orders []model.Order
	for _, o := range r.s.orders {
		if o.PharmacyID == pharmacyID && o.Status == status {
			orders = append(orders, *copyOrder(o))
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
	return orders, nil
}

// -- Users --

type MemoryUsers struct {
	s *MemoryStore
}

func NewMemoryUsers(s *MemoryStore) *MemoryUsers {
	return &MemoryUsers{s: s}
}

func (r *MemoryUsers) Create(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if existing.Login == u.Login {
			return ErrDuplicateLogin
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	c := *u
	r.s.users[u.ID] = &c
	return nil
}

func (r *MemoryUsers) GetByLogin(_ context.Context, login string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Login == login {
			c := *u
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *u
	return &c, nil
}

// -- Pharmacies --

type MemoryPharmacies struct {
	s *MemoryStore
}

func NewMemoryPharmacies(s *MemoryStore) *MemoryPharmacies {
	return &MemoryPharmacies{s: s}
}

func (r *MemoryPharmacies) Create(_ context.Context, p *model.Pharmacy) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p.ID = uuid.NewString()
	p.CreatedAt = time.Now()
	c := *p
	r.s.pharmacies[p.ID] = &c
	return nil
}

func (r *MemoryPharmacies) GetByID(_ context.Context, id string) (*model.Pharmacy, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.pharmacies[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *p
	return &c, nil
}

func (r *MemoryPharmacies) List(_ context.Context) ([]model.Pharmacy, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var pharmacies []model.Pharmacy
	for _, p := range r.s.pharmacies {
		pharmacies = append(pharmacies, *p)
	}
	sort.Slice(pharmacies, func(i, j int) bool {
		return pharmacies[i].Name < pharmacies[j].Name
	})
	return pharmacies, nil
}

// -- Prescriptions --

type MemoryPrescriptions struct {
	s *MemoryStore
}

func NewMemoryPrescriptions(s *MemoryStore) *MemoryPrescriptions {
	return &MemoryPrescriptions{s: s}
}

func copyPrescription(p *model.Prescription) *model.Prescription {
	c := *p
	c.Medicines = append([]model.Medicine(nil), p.Medicines...)
	return &c
}

func (r *MemoryPrescriptions) Create(_ context.Context, p *model.Prescription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p.ID = uuid.NewString()
	p.CreatedAt = time.Now()
	r.s.prescriptions[p.ID] = copyPrescription(p)
	return nil
}

func (r *MemoryPrescriptions) GetByID(_ context.Context, id string) (*model.Prescription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.prescriptions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyPrescription(p), nil
}

func (r *MemoryPrescriptions) ListByPatient(_ context.Context, patientID string) ([]model.Prescription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var prescriptions []model.Prescription
	for _, p := range r.s.prescriptions {
		if p.PatientID == patientID {
			prescriptions = append(prescriptions, *copyPrescription(p))
		}
	}
	sort.Slice(prescriptions, func(i, j int) bool {
		return prescriptions[i].CreatedAt.After(prescriptions[j].CreatedAt)
	})
	return prescriptions, nil
}
