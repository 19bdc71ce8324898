package model

import (
	"time"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusRejected  OrderStatus = "rejected"
	StatusReady     OrderStatus = "ready"
	StatusCompleted OrderStatus = "completed"

	// StatusDelivered is a legacy value still sent by old pharmacy
	// clients; it is accepted on input and stored as completed.
	StatusDelivered OrderStatus = "delivered"
)

var validStatuses = map[OrderStatus]bool{
	StatusPending:   true,
	StatusConfirmed: true,
	StatusRejected:  true,
	StatusReady:     true,
	StatusCompleted: true,
	StatusDelivered: true,
}

var activeStatuses = map[OrderStatus]bool{
	StatusPending:   true,
	StatusConfirmed: true,
	StatusReady:     true,
}

func (s OrderStatus) Valid() bool {
	return validStatuses[s]
}

// Active reports whether the status blocks creation of another order
// for the same (patient, pharmacy, prescription) triple.
func (s OrderStatus) Active() bool {
	return activeStatuses[s]
}

// Normalize maps the legacy delivered value to completed.
func (s OrderStatus) Normalize() OrderStatus {
	if s == StatusDelivered {
		return StatusCompleted
	}
	return s
}

// Medicine is the per-order snapshot of one prescription line, copied
// at order creation so later prescription edits do not change the order.
type Medicine struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Morning   bool   `json:"morning"`
	Afternoon bool   `json:"afternoon"`
	Night     bool   `json:"night"`
}

type Order struct {
	ID             string      `json:"id"`
	PatientID      string      `json:"patient_id"`
	PharmacyID     string      `json:"pharmacy_id"`
	PrescriptionID string      `json:"prescription_id"`
	Medicines      []Medicine  `json:"medicines"`
	Status         OrderStatus `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`

	// Reference data attached for display on list responses.
	Pharmacy     *Pharmacy     `json:"pharmacy,omitempty"`
	Prescription *Prescription `json:"prescription,omitempty"`
	Patient      *User         `json:"patient,omitempty"`
}
