package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/equineenclave/backend/internal/services"
)

type PassHandler struct {
	service   *services.PassService
	validator *services.ValidationHelper
}

func NewPassHandler(service *services.PassService) *PassHandler {
	return &PassHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// GeneratePass generates a check-in pass for a rider
// @Summary Generate check-in pass
// @Description Generate a short-lived QR pass a rider can present at the gate
// @Tags passes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{riderId=string} true "Pass generation request"
// @Success 200 {object} object{passCode=string,passImage=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /passes/generate [post]
func (h *PassHandler) GeneratePass(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RiderID string `json:"riderId" validate:"required"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	passCode, passImage, err := h.service.GeneratePass(r.Context(), req.RiderID)
	if err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success":   true,
		"passCode":  passCode,
		"passImage": passImage,
	})
}

// RedeemPass redeems a scanned pass as a check-in
// @Summary Redeem check-in pass
// @Description Consume a scanned pass and record the check-in with the chosen horse
// @Tags passes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{passCode=string,horse=string} true "Pass redemption request"
// @Success 200 {object} map[string]any
// @Failure 400 {object} services.ErrorResponse
// @Router /passes/redeem [post]
func (h *PassHandler) RedeemPass(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PassCode string `json:"passCode" validate:"required"`
		Horse    string `json:"horse" validate:"required"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	result, err := h.service.RedeemPass(r.Context(), req.PassCode, req.Horse)
	if err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"message": "Check-in successful",
		"data":    result,
	})
}
