package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"pharmaorder/internal/model"
	"pharmaorder/internal/repository"
)

var ErrMedicinesRequired = errors.New("at least one medicine is required")

// PharmacyService serves the pharmacy directory the client poller
// refreshes alongside orders.
type PharmacyService struct {
	pharmacies repository.PharmacyRepository
}

func NewPharmacyService(pharmacies repository.PharmacyRepository) *PharmacyService {
	return &PharmacyService{pharmacies: pharmacies}
}

func (s *PharmacyService) Register(ctx context.Context, name, address, phone string) (*model.Pharmacy, error) {
	if name == "" || address == "" {
		return nil, errors.New("name and address are required")
	}
	p := &model.Pharmacy{Name: name, Address: address, Phone: phone}
	if err := s.pharmacies.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create pharmacy: %w", err)
	}
	return p, nil
}

func (s *PharmacyService) List(ctx context.Context) ([]model.Pharmacy, error) {
	pharmacies, err := s.pharmacies.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pharmacies: %w", err)
	}
	return pharmacies, nil
}

type PrescriptionService struct {
	prescriptions repository.PrescriptionRepository
	users         repository.UserRepository
}

func NewPrescriptionService(prescriptions repository.PrescriptionRepository, users repository.UserRepository) *PrescriptionService {
	return &PrescriptionService{prescriptions: prescriptions, users: users}
}

func (s *PrescriptionService) Issue(ctx context.Context, doctorID, patientID, note string, medicines []model.Medicine) (*model.Prescription, error) {
	if _, err := uuid.Parse(patientID); err != nil {
		return nil, ErrInvalidReference
	}
	if len(medicines) == 0 {
		return nil, ErrMedicinesRequired
	}
	for _, m := range medicines {
		if m.Name == "" || m.Quantity <= 0 {
			return nil, fmt.Errorf("medicine name and positive quantity are required: %w", ErrMedicinesRequired)
		}
	}

	patient, err := s.users.GetByID(ctx, patientID)
	if err != nil {
		return nil, refErr("patient", err)
	}
	if patient.Role != model.RolePatient {
		return nil, fmt.Errorf("prescriptions can only be issued to patients: %w", ErrInvalidReference)
	}

	p := &model.Prescription{
		PatientID: patientID,
		DoctorID:  doctorID,
		Note:      note,
		Medicines: medicines,
	}
	if err := s.prescriptions.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create prescription: %w", err)
	}
	return p, nil
}

func (s *PrescriptionService) ListByPatient(ctx context.Context, patientID string) ([]model.Prescription, error) {
	if patientID == "" {
		return nil, ErrPatientRequired
	}
	if _, err := uuid.Parse(patientID); err != nil {
		return nil, ErrInvalidReference
	}
	prescriptions, err := s.prescriptions.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list prescriptions: %w", err)
	}
	return prescriptions, nil
}
