package model

import "time"

type Pharmacy struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Prescription struct {
	ID        string     `json:"id"`
	PatientID string     `json:"patient_id"`
	DoctorID  string     `json:"doctor_id"`
	Note      string     `json:"note,omitempty"`
	Medicines []Medicine `json:"medicines"`
	CreatedAt time.Time  `json:"created_at"`
}
