package repository

import (
	"context"
	"errors"

	"pharmaorder/internal/model"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrDuplicateLogin       = errors.New("login already exists")
	ErrDuplicateActiveOrder = errors.New("active order already exists")
)

// OrderFilter narrows order listings. PatientID is mandatory for List.
type OrderFilter struct {
	PatientID      string
	PharmacyID     string
	PrescriptionID string
}

type OrderRepository interface {
	// Create persists a new order. The active-order invariant is enforced
	// at the storage layer; a lost create race returns ErrDuplicateActiveOrder.
	Create(ctx context.Context, o *model.Order) error
	GetByID(ctx context.Context, id string) (*model.Order, error)
	// FindActive returns the active order for the triple, or ErrNotFound.
	FindActive(ctx context.Context, patientID, pharmacyID, prescriptionID string) (*model.Order, error)
	// List returns matching orders, newest first.
	List(ctx context.Context, f OrderFilter) ([]model.Order, error)
	// LatestPerPharmacy returns the patient's most recent order for each pharmacy.
	LatestPerPharmacy(ctx context.Context, patientID, prescriptionID string) ([]model.Order, error)
	UpdateStatus(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error)
	// ListByPharmacyStatus returns a pharmacy's queue for one status, oldest first.
	ListByPharmacyStatus(ctx context.Context, pharmacyID string, status model.OrderStatus) ([]model.Order, error)
}

type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	GetByLogin(ctx context.Context, login string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
}

type PharmacyRepository interface {
	Create(ctx context.Context, p *model.Pharmacy) error
	GetByID(ctx context.Context, id string) (*model.Pharmacy, error)
	List(ctx context.Context) ([]model.Pharmacy, error)
}

type PrescriptionRepository interface {
	Create(ctx context.Context, p *model.Prescription) error
	GetByID(ctx context.Context, id string) (*model.Prescription, error)
	ListByPatient(ctx context.Context, patientID string) ([]model.Prescription, error)
}
