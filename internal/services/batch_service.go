package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/equineenclave/backend/internal/config"
	"github.com/equineenclave/backend/internal/models"
)

// BatchService is the batch registry: it resolves (batchType, batchIndex)
// pairs to named time slots and owns batch CRUD. Batches never hold their
// riders; membership is computed by filtering riders on the pair.
type BatchService struct {
	db        *sql.DB
	cfg       *config.BatchConfig
	validator *ValidationHelper
}

func NewBatchService(db *sql.DB, cfg *config.BatchConfig) *BatchService {
	return &BatchService{
		db:        db,
		cfg:       cfg,
		validator: NewValidationHelper(),
	}
}

// batchConfig returns the configured slots per batch type, indexed by
// batchIndex. Types with no configured batches fall back to the built-in
// default schedule.
func (s *BatchService) batchConfig(ctx context.Context) (map[string][]config.BatchSlot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT batch_type, batch_index, name, time_range FROM batches ORDER BY batch_type, batch_index`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cfg := make(map[string][]config.BatchSlot)
	for rows.Next() {
		var batchType, name, timeRange string
		var batchIndex int
		if err := rows.Scan(&batchType, &batchIndex, &name, &timeRange); err != nil {
			return nil, err
		}
		for len(cfg[batchType]) <= batchIndex {
			cfg[batchType] = append(cfg[batchType], config.BatchSlot{})
		}
		cfg[batchType][batchIndex] = config.BatchSlot{Name: name, Time: timeRange}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for batchType, defaults := range s.cfg.Defaults {
		if len(cfg[batchType]) == 0 {
			cfg[batchType] = defaults
		}
	}
	return cfg, nil
}

// resolveBatch maps a (batchType, batchIndex) pair to its display name and
// time range. Unresolvable pairs fall back to "Batch {index+1}" with an empty
// time, which is how the check-in snapshot behaves for a stale reference.
func (s *BatchService) resolveBatch(ctx context.Context, batchType string, batchIndex int) (string, string) {
	cfg, err := s.batchConfig(ctx)
	if err != nil {
		log.Printf("[BATCH] Failed to load batch config: %v", err)
		return fmt.Sprintf("Batch %d", batchIndex+1), ""
	}
	slots := cfg[batchType]
	if batchIndex >= 0 && batchIndex < len(slots) && slots[batchIndex].Name != "" {
		return slots[batchIndex].Name, slots[batchIndex].Time
	}
	return fmt.Sprintf("Batch %d", batchIndex+1), ""
}

// countRiders returns the current occupancy of a batch, computed by filtering
// riders rather than a maintained back-reference.
func (s *BatchService) countRiders(ctx context.Context, batchType string, batchIndex int) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM riders WHERE batch_type = $1 AND batch_index = $2`,
		batchType, batchIndex).Scan(&count)
	return count, err
}

// createBatch inserts a batch with the next free index for its type.
// Gap-filling is not attempted; the index is max(existing)+1.
func (s *BatchService) createBatch(ctx context.Context, name, timeRange, batchType string) (*models.Batch, error) {
	var nextIndex int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(batch_index) + 1, 0) FROM batches WHERE batch_type = $1`,
		batchType).Scan(&nextIndex)
	if err != nil {
		return nil, err
	}

	batch := &models.Batch{
		ID:         uuid.NewString(),
		Name:       name,
		Time:       timeRange,
		BatchType:  batchType,
		BatchIndex: nextIndex,
	}

	err = s.db.QueryRowContext(ctx,
		`INSERT INTO batches (id, name, time_range, batch_type, batch_index, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		 RETURNING created_at, updated_at`,
		batch.ID, batch.Name, batch.Time, batch.BatchType, batch.BatchIndex).
		Scan(&batch.CreatedAt, &batch.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, &ConflictError{Message: fmt.Sprintf("batch %s/%d already exists", batchType, nextIndex)}
		}
		return nil, err
	}
	return batch, nil
}

func (s *BatchService) getBatch(ctx context.Context, id string) (*models.Batch, error) {
	var batch models.Batch
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, time_range, batch_type, batch_index, created_at, updated_at
		 FROM batches WHERE id = $1`, id).
		Scan(&batch.ID, &batch.Name, &batch.Time, &batch.BatchType, &batch.BatchIndex,
			&batch.CreatedAt, &batch.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Resource: "batch", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// deleteBatch removes a batch unless any rider still references it.
func (s *BatchService) deleteBatch(ctx context.Context, id string) error {
	batch, err := s.getBatch(ctx, id)
	if err != nil {
		return err
	}

	ridersInBatch, err := s.countRiders(ctx, batch.BatchType, batch.BatchIndex)
	if err != nil {
		return err
	}
	if ridersInBatch > 0 {
		return &ConflictError{Message: fmt.Sprintf(
			"cannot delete batch: %d rider(s) are assigned to this batch, move them first", ridersInBatch)}
	}

	_, err = s.db.ExecContext(ctx, `DELETE FROM batches WHERE id = $1`, id)
	return err
}

func (s *BatchService) updateBatch(ctx context.Context, id string, name, timeRange *string) (*models.Batch, error) {
	batch, err := s.getBatch(ctx, id)
	if err != nil {
		return nil, err
	}
	if name != nil {
		batch.Name = *name
	}
	if timeRange != nil {
		batch.Time = *timeRange
	}
	batch.UpdatedAt = time.Now()

	_, err = s.db.ExecContext(ctx,
		`UPDATE batches SET name = $1, time_range = $2, updated_at = $3 WHERE id = $4`,
		batch.Name, batch.Time, batch.UpdatedAt, id)
	if err != nil {
		return nil, err
	}
	return batch, nil
}

func (s *BatchService) updateBatchByKey(ctx context.Context, batchType string, batchIndex int, name, timeRange *string) (*models.Batch, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM batches WHERE batch_type = $1 AND batch_index = $2`,
		batchType, batchIndex).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Resource: "batch", ID: fmt.Sprintf("%s/%d", batchType, batchIndex)}
	}
	if err != nil {
		return nil, err
	}
	return s.updateBatch(ctx, id, name, timeRange)
}

// ListBatches returns all batches grouped by type
// @Summary List batches
// @Description Get all configured batches grouped by batch type
// @Tags batches
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Router /batches [get]
func (s *BatchService) ListBatches(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.QueryContext(r.Context(),
		`SELECT id, name, time_range, batch_type, batch_index, created_at, updated_at
		 FROM batches ORDER BY batch_type, batch_index`)
	if err != nil {
		SendDomainError(w, err)
		return
	}
	defer rows.Close()

	morning := []models.Batch{}
	evening := []models.Batch{}
	for rows.Next() {
		var b models.Batch
		if err := rows.Scan(&b.ID, &b.Name, &b.Time, &b.BatchType, &b.BatchIndex, &b.CreatedAt, &b.UpdatedAt); err != nil {
			SendDomainError(w, err)
			return
		}
		switch b.BatchType {
		case models.BatchMorning:
			morning = append(morning, b)
		case models.BatchEvening:
			evening = append(evening, b)
		}
	}
	if err := rows.Err(); err != nil {
		SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data": map[string]any{
			"morning": morning,
			"evening": evening,
		},
	})
}

// CreateBatchRequest is the create-batch payload
type CreateBatchRequest struct {
	Name      string `json:"name" validate:"required" example:"Batch 4"`
	Time      string `json:"time" validate:"required" example:"10:30 AM - 12:00 PM"`
	BatchType string `json:"batchType" validate:"required,oneof=morning evening" example:"morning"`
}

// CreateBatch creates a new batch
// @Summary Create batch
// @Description Create a batch; its index is assigned as the next free index for its type
// @Tags batches
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateBatchRequest true "Batch data"
// @Success 201 {object} models.Batch
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /batches [post]
func (s *BatchService) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req CreateBatchRequest

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	batch, err := s.createBatch(r.Context(), req.Name, req.Time, req.BatchType)
	if err != nil {
		SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"message": "Batch created successfully",
		"data":    batch,
	})
}

// UpdateBatchRequest is the update-batch payload
type UpdateBatchRequest struct {
	Name *string `json:"name,omitempty"`
	Time *string `json:"time,omitempty"`
}

// UpdateBatch updates a batch's name or timing
// @Summary Update batch
// @Tags batches
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Batch ID"
// @Param request body UpdateBatchRequest true "Fields to update"
// @Success 200 {object} models.Batch
// @Failure 404 {object} ErrorResponse
// @Router /batches/{id} [put]
func (s *BatchService) UpdateBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	batch, err := s.updateBatch(r.Context(), id, req.Name, req.Time)
	if err != nil {
		SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"message": "Batch updated successfully",
		"data":    batch,
	})
}

// UpdateBatchByType updates a batch addressed by its (type, index) key
// @Summary Update batch by type and index
// @Tags batches
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param batchType path string true "Batch type"
// @Param batchIndex path int true "Batch index"
// @Param request body UpdateBatchRequest true "Fields to update"
// @Success 200 {object} models.Batch
// @Failure 404 {object} ErrorResponse
// @Router /batches/by-type/{batchType}/{batchIndex} [put]
func (s *BatchService) UpdateBatchByType(w http.ResponseWriter, r *http.Request) {
	batchType := chi.URLParam(r, "batchType")
	batchIndex, err := strconv.Atoi(chi.URLParam(r, "batchIndex"))
	if err != nil {
		SendDomainError(w, &ValidationError{Field: "batchIndex", Message: "batchIndex must be an integer"})
		return
	}

	var req UpdateBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	batch, err := s.updateBatchByKey(r.Context(), batchType, batchIndex, req.Name, req.Time)
	if err != nil {
		SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"message": "Batch updated successfully",
		"data":    batch,
	})
}

// DeleteBatch deletes a batch with no assigned riders
// @Summary Delete batch
// @Description Delete a batch; fails while any rider references it
// @Tags batches
// @Produce json
// @Security BearerAuth
// @Param id path string true "Batch ID"
// @Success 200 {object} map[string]any
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /batches/{id} [delete]
func (s *BatchService) DeleteBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.deleteBatch(r.Context(), id); err != nil {
		SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"message": "Batch deleted successfully",
	})
}

// SeedBatches replaces all batches with the default schedule
// @Summary Seed default batches
// @Tags batches
// @Produce json
// @Security BearerAuth
// @Success 201 {object} map[string]any
// @Router /batches/seed [post]
func (s *BatchService) SeedBatches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM batches`); err != nil {
		SendDomainError(w, err)
		return
	}

	seeded := []models.Batch{}
	for _, batchType := range []string{models.BatchMorning, models.BatchEvening} {
		for i, slot := range s.cfg.Defaults[batchType] {
			batch := models.Batch{
				ID:         uuid.NewString(),
				Name:       slot.Name,
				Time:       slot.Time,
				BatchType:  batchType,
				BatchIndex: i,
			}
			err := s.db.QueryRowContext(ctx,
				`INSERT INTO batches (id, name, time_range, batch_type, batch_index, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
				 RETURNING created_at, updated_at`,
				batch.ID, batch.Name, batch.Time, batch.BatchType, batch.BatchIndex).
				Scan(&batch.CreatedAt, &batch.UpdatedAt)
			if err != nil {
				SendDomainError(w, err)
				return
			}
			seeded = append(seeded, batch)
		}
	}

	log.Printf("[BATCH] Seeded %d batches", len(seeded))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"message": fmt.Sprintf("Seeded %d batches successfully", len(seeded)),
		"data":    seeded,
	})
}
