package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"pharmaorder/internal/model"
	"pharmaorder/internal/repository"
)

var (
	ErrInvalidReference = errors.New("invalid reference id")
	ErrNotFound         = errors.New("not found")
	ErrInvalidStatus    = errors.New("invalid order status")
	ErrPatientRequired  = errors.New("patientId is required")

	// ErrDuplicateActiveOrder is returned together with the existing
	// active order so callers can surface it in the conflict response.
	ErrDuplicateActiveOrder = errors.New("active order already exists for this prescription and pharmacy")
)

type OrderService struct {
	orders        repository.OrderRepository
	users         repository.UserRepository
	pharmacies    repository.PharmacyRepository
	prescriptions repository.PrescriptionRepository
}

func NewOrderService(
	orders repository.OrderRepository,
	users repository.UserRepository,
	pharmacies repository.PharmacyRepository,
	prescriptions repository.PrescriptionRepository,
) *OrderService {
	return &OrderService{
		orders:        orders,
		users:         users,
		pharmacies:    pharmacies,
		prescriptions: prescriptions,
	}
}

// Create places a new pending order for the (patient, pharmacy,
// prescription) triple, copying the prescription's medicine list into the
// order. If an active order already exists for the triple, the existing
// order is returned alongside ErrDuplicateActiveOrder and nothing is
// created.
func (s *OrderService) Create(ctx context.Context, patientID, pharmacyID, prescriptionID string) (*model.Order, error) {
	for _, id := range []string{patientID, pharmacyID, prescriptionID} {
		if _, err := uuid.Parse(id); err != nil {
			return nil, ErrInvalidReference
		}
	}

	if _, err := s.users.GetByID(ctx, patientID); err != nil {
		return nil, refErr("patient", err)
	}
	if _, err := s.pharmacies.GetByID(ctx, pharmacyID); err != nil {
		return nil, refErr("pharmacy", err)
	}
	prescription, err := s.prescriptions.GetByID(ctx, prescriptionID)
	if err != nil {
		return nil, refErr("prescription", err)
	}
	if prescription.PatientID != patientID {
		return nil, fmt.Errorf("prescription belongs to another patient: %w", ErrInvalidReference)
	}

	if existing, err := s.orders.FindActive(ctx, patientID, pharmacyID, prescriptionID); err == nil {
		existing, attachErr := s.attach(ctx, existing)
		if attachErr != nil {
			return nil, attachErr
		}
		return existing, ErrDuplicateActiveOrder
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("find active order: %w", err)
	}

	order := &model.Order{
		PatientID:      patientID,
		PharmacyID:     pharmacyID,
		PrescriptionID: prescriptionID,
		Medicines:      append([]model.Medicine(nil), prescription.Medicines...),
		Status:         model.StatusPending,
	}

	err = s.orders.Create(ctx, order)
	if errors.Is(err, repository.ErrDuplicateActiveOrder) {
		// Lost a create race; the unique index kept the invariant.
		// Return the winner the same way the pre-check would have.
		existing, ferr := s.orders.FindActive(ctx, patientID, pharmacyID, prescriptionID)
		if ferr != nil {
			return nil, fmt.Errorf("find winning order: %w", ferr)
		}
		existing, attachErr := s.attach(ctx, existing)
		if attachErr != nil {
			return nil, attachErr
		}
		return existing, ErrDuplicateActiveOrder
	}
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	return s.attach(ctx, order)
}

// List returns a patient's orders newest first, optionally narrowed by
// prescription and pharmacy.
func (s *OrderService) List(ctx context.Context, patientID, prescriptionID, pharmacyID string) ([]model.Order, error) {
	if patientID == "" {
		return nil, ErrPatientRequired
	}
	if _, err := uuid.Parse(patientID); err != nil {
		return nil, ErrInvalidReference
	}
	for _, id := range []string{prescriptionID, pharmacyID} {
		if id != "" {
			if _, err := uuid.Parse(id); err != nil {
				return nil, ErrInvalidReference
			}
		}
	}

	orders, err := s.orders.List(ctx, repository.OrderFilter{
		PatientID:      patientID,
		PrescriptionID: prescriptionID,
		PharmacyID:     pharmacyID,
	})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return s.attachAll(ctx, orders)
}

// LatestPerPharmacy returns the patient's most recent order for each
// pharmacy, the view the client poller reconciles against.
func (s *OrderService) LatestPerPharmacy(ctx context.Context, patientID, prescriptionID string) ([]model.Order, error) {
	if patientID == "" {
		return nil, ErrPatientRequired
	}
	if _, err := uuid.Parse(patientID); err != nil {
		return nil, ErrInvalidReference
	}
	if prescriptionID != "" {
		if _, err := uuid.Parse(prescriptionID); err != nil {
			return nil, ErrInvalidReference
		}
	}

	orders, err := s.orders.LatestPerPharmacy(ctx, patientID, prescriptionID)
	if err != nil {
		return nil, fmt.Errorf("latest orders: %w", err)
	}
	return s.attachAll(ctx, orders)
}

// UpdateStatus moves an order to a new status. The legacy delivered
// value is accepted and stored as completed.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) (*model.Order, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, ErrInvalidReference
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	order, err := s.orders.UpdateStatus(ctx, orderID, status.Normalize())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	return s.attach(ctx, order)
}

// PharmacyQueue returns a pharmacy's orders in one status, oldest first.
func (s *OrderService) PharmacyQueue(ctx context.Context, pharmacyID string, status model.OrderStatus) ([]model.Order, error) {
	if _, err := uuid.Parse(pharmacyID); err != nil {
		return nil, ErrInvalidReference
	}
	if _, err := s.pharmacies.GetByID(ctx, pharmacyID); err != nil {
		return nil, refErr("pharmacy", err)
	}

	orders, err := s.orders.ListByPharmacyStatus(ctx, pharmacyID, status)
	if err != nil {
		return nil, fmt.Errorf("pharmacy queue: %w", err)
	}
	return s.attachAll(ctx, orders)
}

func refErr(what string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("load %s: %w", what, err)
}

func (s *OrderService) attach(ctx context.Context, o *model.Order) (*model.Order, error) {
	orders, err := s.attachAll(ctx, []model.Order{*o})
	if err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// attachAll populates the pharmacy, prescription and patient references
// used for display. Lookups are cached per call since listings tend to
// repeat the same few ids.
func (s *OrderService) attachAll(ctx context.Context, orders []model.Order) ([]model.Order, error) {
	pharmacies := make(map[string]*model.Pharmacy)
	prescriptions := make(map[string]*model.Prescription)
	patients := make(map[string]*model.User)

	for i := range orders {
		o := &orders[i]

		if _, ok := pharmacies[o.PharmacyID]; !ok {
			p, err := s.pharmacies.GetByID(ctx, o.PharmacyID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("attach pharmacy: %w", err)
			}
			pharmacies[o.PharmacyID] = p
		}
		o.Pharmacy = pharmacies[o.PharmacyID]

		if _, ok := prescriptions[o.PrescriptionID]; !ok {
			p, err := s.prescriptions.GetByID(ctx, o.PrescriptionID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("attach prescription: %w", err)
			}
			prescriptions[o.PrescriptionID] = p
		}
		o.Prescription = prescriptions[o.PrescriptionID]

		if _, ok := patients[o.PatientID]; !ok {
			u, err := s.users.GetByID(ctx, o.PatientID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("attach patient: %w", err)
			}
			patients[o.PatientID] = u
		}
		o.Patient = patients[o.PatientID]
	}
	return orders, nil
}
