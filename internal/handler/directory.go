package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"pharmaorder/internal/model"
	"pharmaorder/internal/mw"
	"pharmaorder/internal/service"
)

func ListPharmaciesHandler(pharmacySvc *service.PharmacyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pharmacies, err := pharmacySvc.List(r.Context())
		if err != nil {
			slog.Error("pharmacy listing failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, pharmacies)
	}
}

type registerPharmacyRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

func RegisterPharmacyHandler(pharmacySvc *service.PharmacyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerPharmacyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		pharmacy, err := pharmacySvc.Register(r.Context(), req.Name, req.Address, req.Phone)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusCreated, pharmacy)
	}
}

type issuePrescriptionRequest struct {
	PatientID string           `json:"patientId"`
	Note      string           `json:"note"`
	Medicines []model.Medicine `json:"medicines"`
}

func IssuePrescriptionHandler(prescriptionSvc *service.PrescriptionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := r.Context().Value(mw.UserCtxKey).(string)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req issuePrescriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		prescription, err := prescriptionSvc.Issue(r.Context(), doctorID, req.PatientID, req.Note, req.Medicines)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrNotFound):
				http.Error(w, err.Error(), http.StatusNotFound)
			case errors.Is(err, service.ErrInvalidReference), errors.Is(err, service.ErrMedicinesRequired):
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				slog.Error("prescription issue failed", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}
		writeJSON(w, http.StatusCreated, prescription)
	}
}

func ListPrescriptionsHandler(prescriptionSvc *service.PrescriptionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prescriptions, err := prescriptionSvc.ListByPatient(r.Context(), r.URL.Query().Get("patientId"))
		if err != nil {
			listError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, prescriptions)
	}
}
