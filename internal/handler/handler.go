package handler

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"motorpool/internal/domain"
	"motorpool/internal/service"
)

// CarHandler handles car inventory API requests
type CarHandler struct {
	svc *service.CarService
}

// NewCarHandler creates a new car handler
func NewCarHandler(svc *service.CarService) *CarHandler {
	return &CarHandler{svc: svc}
}

// ErrorResponse is the JSON body for all error replies
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ListCars returns all cars, optionally filtered by make and model
func (h *CarHandler) ListCars(w http.ResponseWriter, r *http.Request) {
	carMake := r.URL.Query().Get("make")
	model := r.URL.Query().Get("model")

	cars, err := h.svc.ListCars(r.Context(), carMake, model)
	if err != nil {
		log.Printf("Failed to list cars: %v", err)
		h.writeError(w, "Failed to list cars", err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, cars, http.StatusOK)
}

// GetCar returns a single car
func (h *CarHandler) GetCar(w http.ResponseWriter, r *http.Request) {
	id, ok := h.carID(w, r)
	if !ok {
		return
	}

	car, err := h.svc.GetCar(r.Context(), id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			h.writeError(w, "Not found", err.Error(), http.StatusNotFound)
			return
		}
		log.Printf("Failed to get car: %v", err)
		h.writeError(w, "Failed to get car", err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, car, http.StatusOK)
}

// CreateCar creates a new car
func (h *CarHandler) CreateCar(w http.ResponseWriter, r *http.Request) {
	var car domain.Car
	if err := json.NewDecoder(r.Body).Decode(&car); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.svc.CreateCar(r.Context(), &car); err != nil {
		log.Printf("Failed to create car: %v", err)
		h.writeError(w, "Failed to create car", err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, car, http.StatusCreated)
}

// UpdateCar replaces all descriptive fields of an existing car
func (h *CarHandler) UpdateCar(w http.ResponseWriter, r *http.Request) {
	id, ok := h.carID(w, r)
	if !ok {
		return
	}

	var car domain.Car
	if err := json.NewDecoder(r.Body).Decode(&car); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.svc.UpdateCar(r.Context(), id, &car); err != nil {
		if strings.Contains(err.Error(), "not found") {
			h.writeError(w, "Not found", err.Error(), http.StatusNotFound)
			return
		}
		log.Printf("Failed to update car: %v", err)
		h.writeError(w, "Failed to update car", err.Error(), http.StatusBadRequest)
		return
	}

	// Return the stored row
	updated, err := h.svc.GetCar(r.Context(), id)
	if err != nil {
		log.Printf("Failed to fetch updated car: %v", err)
		h.writeError(w, "Failed to load updated car", err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, updated, http.StatusOK)
}

// PatchCar applies a partial update to an existing car
func (h *CarHandler) PatchCar(w http.ResponseWriter, r *http.Request) {
	id, ok := h.carID(w, r)
	if !ok {
		return
	}

	var updates map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.svc.PatchCar(r.Context(), id, updates); err != nil {
		if strings.Contains(err.Error(), "not found") {
			h.writeError(w, "Not found", err.Error(), http.StatusNotFound)
			return
		}
		log.Printf("Failed to patch car: %v", err)
		h.writeError(w, "Failed to patch car", err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := h.svc.GetCar(r.Context(), id)
	if err != nil {
		log.Printf("Failed to fetch patched car: %v", err)
		h.writeError(w, "Failed to load patched car", err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, updated, http.StatusOK)
}

// DeleteCar deletes a car
func (h *CarHandler) DeleteCar(w http.ResponseWriter, r *http.Request) {
	id, ok := h.carID(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteCar(r.Context(), id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			h.writeError(w, "Not found", err.Error(), http.StatusNotFound)
			return
		}
		log.Printf("Failed to delete car: %v", err)
		h.writeError(w, "Failed to delete car", err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ImportYAML imports fleet data from YAML
func (h *CarHandler) ImportYAML(w http.ResponseWriter, r *http.Request) {
	strategy := r.URL.Query().Get("strategy")
	if strategy == "" {
		strategy = "merge"
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, "Failed to read request body", err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.svc.ImportYAML(r.Context(), data, strategy)
	if err != nil {
		log.Printf("Failed to import YAML: %v", err)
		h.writeError(w, "Failed to import YAML", err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, result, http.StatusOK)
}

// ExportJSON exports the fleet as JSON
func (h *CarHandler) ExportJSON(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.ExportJSON(r.Context())
	if err != nil {
		log.Printf("Failed to export JSON: %v", err)
		h.writeError(w, "Failed to export JSON", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename=fleet.json")
	w.Write(data)
}

// ExportYAML exports the fleet as YAML
func (h *CarHandler) ExportYAML(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/x-yaml")
	w.Header().Set("Content-Disposition", "attachment; filename=fleet.yml")

	if err := h.svc.ExportYAML(r.Context(), w); err != nil {
		log.Printf("Failed to export YAML: %v", err)
		// Can't write error response as we already set headers
		return
	}
}

// Health reports liveness, database reachability, and inventory size
func (h *CarHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ping(r.Context()); err != nil {
		log.Printf("Health check failed: %v", err)
		h.writeJSON(w, map[string]any{
			"status":   "unhealthy",
			"database": err.Error(),
		}, http.StatusServiceUnavailable)
		return
	}

	count, err := h.svc.CountCars(r.Context())
	if err != nil {
		log.Printf("Health count failed: %v", err)
		h.writeJSON(w, map[string]any{
			"status":   "unhealthy",
			"database": err.Error(),
		}, http.StatusServiceUnavailable)
		return
	}

	h.writeJSON(w, map[string]any{"status": "ok", "cars": count}, http.StatusOK)
}

// Helper methods

// carID parses the {id} path value, writing a 400 response on failure
func (h *CarHandler) carID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, "Invalid car ID", "Car ID must be a positive integer", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *CarHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON: %v", err)
	}
}

func (h *CarHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Details: details,
	}); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}
