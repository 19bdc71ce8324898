package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pharmaorder/internal/model"
	"pharmaorder/internal/service"
)

type createOrderRequest struct {
	PatientID      string `json:"patientId"`
	PharmacyID     string `json:"pharmacyId"`
	PrescriptionID string `json:"prescriptionId"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

func CreateOrderHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.PatientID == "" || req.PharmacyID == "" || req.PrescriptionID == "" {
			http.Error(w, "patientId, pharmacyId and prescriptionId are required", http.StatusBadRequest)
			return
		}

		order, err := orderSvc.Create(r.Context(), req.PatientID, req.PharmacyID, req.PrescriptionID)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrDuplicateActiveOrder):
				// The existing active order rides along in the conflict
				// body so the client can adopt it.
				writeJSON(w, http.StatusConflict, order)
			case errors.Is(err, service.ErrInvalidReference):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, service.ErrNotFound):
				http.Error(w, err.Error(), http.StatusNotFound)
			default:
				slog.Error("order create failed", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusCreated, order)
	}
}

func ListOrdersHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		orders, err := orderSvc.List(r.Context(), q.Get("patientId"), q.Get("prescriptionId"), q.Get("pharmacyId"))
		if err != nil {
			listError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, orders)
	}
}

func LatestOrdersHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		orders, err := orderSvc.LatestPerPharmacy(r.Context(), q.Get("patientId"), q.Get("prescriptionId"))
		if err != nil {
			listError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, orders)
	}
}

type updateStatusRequest struct {
	Status model.OrderStatus `json:"status"`
}

func UpdateStatusHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		order, err := orderSvc.UpdateStatus(r.Context(), chi.URLParam(r, "orderID"), req.Status)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrInvalidStatus), errors.Is(err, service.ErrInvalidReference):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, service.ErrNotFound):
				http.Error(w, "order not found", http.StatusNotFound)
			default:
				slog.Error("status update failed", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, order)
	}
}

// PharmacyQueueHandler serves the pharmacy-side worklists, one status
// per route.
func PharmacyQueueHandler(orderSvc *service.OrderService, status model.OrderStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders, err := orderSvc.PharmacyQueue(r.Context(), chi.URLParam(r, "pharmacyID"), status)
		if err != nil {
			listError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, orders)
	}
}

func listError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrPatientRequired), errors.Is(err, service.ErrInvalidReference):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		slog.Error("order listing failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
