package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/equineenclave/backend/internal/config"
	"github.com/equineenclave/backend/internal/models"
)

const riderListCacheKey = "riders:all"

// RiderService exposes rider CRUD and the check-in / pay / move operations.
// Ledger mutations go through the LedgerService; batch moves are handled here
// subject to the configured capacity mode.
type RiderService struct {
	db        *sql.DB
	redis     *redis.Client
	ledger    *LedgerService
	batches   *BatchService
	cfg       *config.BatchConfig
	audit     *AuditLogger
	validator *ValidationHelper
}

func NewRiderService(db *sql.DB, redisClient *redis.Client, ledger *LedgerService, batches *BatchService, cfg *config.BatchConfig) *RiderService {
	return &RiderService{
		db:        db,
		redis:     redisClient,
		ledger:    ledger,
		batches:   batches,
		cfg:       cfg,
		audit:     NewAuditLogger(),
		validator: NewValidationHelper(),
	}
}

// applyBatchInfo fills the derived response fields from the batch config.
func applyBatchInfo(rider *models.Rider, cfg map[string][]config.BatchSlot) {
	rider.ActiveClassesCount = rider.ActiveClasses()
	slots := cfg[rider.BatchType]
	if rider.BatchIndex >= 0 && rider.BatchIndex < len(slots) && slots[rider.BatchIndex].Name != "" {
		rider.BatchName = slots[rider.BatchIndex].Name
		rider.BatchTime = slots[rider.BatchIndex].Time
		return
	}
	rider.BatchName = fmt.Sprintf("Batch %d", rider.BatchIndex+1)
	rider.BatchTime = ""
}

func (s *RiderService) getRider(ctx context.Context, id string) (*models.Rider, error) {
	var rider models.Rider
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, age, phone, email, level, joined_date, fees_paid, batch_type, batch_index, version, created_at, updated_at
		FROM riders WHERE id = $1`, id).
		Scan(&rider.ID, &rider.Name, &rider.Age, &rider.Phone, &rider.Email, &rider.Level,
			&rider.JoinedDate, &rider.FeesPaid, &rider.BatchType, &rider.BatchIndex,
			&rider.Version, &rider.CreatedAt, &rider.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Resource: "rider", ID: id}
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ride_number, checkin_time, horse, paid
		FROM checkins WHERE rider_id = $1
		ORDER BY checkin_time, ride_number`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var e models.CheckinEntry
		if err := rows.Scan(&e.RideNumber, &e.CheckinTime, &e.Horse, &e.Paid); err != nil {
			return nil, err
		}
		rider.Checkins = append(rider.Checkins, e)
	}
	return &rider, rows.Err()
}

// loadRiders loads all riders with their ledgers in two queries.
func (s *RiderService) loadRiders(ctx context.Context) ([]models.Rider, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, age, phone, email, level, joined_date, fees_paid, batch_type, batch_index, version, created_at, updated_at
		FROM riders
		ORDER BY batch_type, batch_index, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	riders := []models.Rider{}
	index := map[string]int{}
	for rows.Next() {
		var rider models.Rider
		if err := rows.Scan(&rider.ID, &rider.Name, &rider.Age, &rider.Phone, &rider.Email, &rider.Level,
			&rider.JoinedDate, &rider.FeesPaid, &rider.BatchType, &rider.BatchIndex,
			&rider.Version, &rider.CreatedAt, &rider.UpdatedAt); err != nil {
			return nil, err
		}
		rider.Checkins = []models.CheckinEntry{}
		index[rider.ID] = len(riders)
		riders = append(riders, rider)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	checkinRows, err := s.db.QueryContext(ctx, `
		SELECT rider_id, ride_number, checkin_time, horse, paid
		FROM checkins
		ORDER BY rider_id, checkin_time, ride_number`)
	if err != nil {
		return nil, err
	}
	defer checkinRows.Close()

	for checkinRows.Next() {
		var riderID string
		var e models.CheckinEntry
		if err := checkinRows.Scan(&riderID, &e.RideNumber, &e.CheckinTime, &e.Horse, &e.Paid); err != nil {
			return nil, err
		}
		if i, ok := index[riderID]; ok {
			riders[i].Checkins = append(riders[i].Checkins, e)
		}
	}
	return riders, checkinRows.Err()
}

func (s *RiderService) invalidateRiderCache(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, riderListCacheKey).Err(); err != nil {
		log.Printf("[RIDER] Failed to invalidate rider cache: %v", err)
	}
}

// lockBatchSlot takes a transaction-scoped advisory lock on a batch slot.
// Concurrent capacity checks against the same (type, index) pair serialize
// on it, so two transactions cannot both count the last free seat.
func lockBatchSlot(tx *sql.Tx, batchType string, batchIndex int) error {
	_, err := tx.Exec(`SELECT pg_advisory_xact_lock(hashtext($1), $2)`, batchType, batchIndex)
	return err
}

// moveRider reassigns a rider to another batch. Moving to the current batch
// is a successful no-op. In strict capacity mode the target slot is locked
// and its occupancy re-counted inside the transaction; a full batch is
// refused.
func (s *RiderService) moveRider(ctx context.Context, riderID, targetBatchType string, targetBatchIndex int) (*models.Rider, error) {
	if !s.cfg.KnownBatchType(targetBatchType) {
		return nil, &ValidationError{Field: "targetBatchType", Message: `targetBatchType must be "morning" or "evening"`}
	}
	if targetBatchIndex < 0 || targetBatchIndex > s.cfg.MaxBatchIndex {
		return nil, &ValidationError{Field: "targetBatchIndex",
			Message: fmt.Sprintf("targetBatchIndex must be between 0 and %d", s.cfg.MaxBatchIndex)}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rider, err := s.ledger.lockRider(tx, riderID)
	if err != nil {
		return nil, err
	}

	if rider.BatchType == targetBatchType && rider.BatchIndex == targetBatchIndex {
		// Already there: skip the capacity check and leave the ledger alone.
		return s.getRider(ctx, riderID)
	}

	if s.cfg.CapacityMode == config.CapacityStrict {
		if err := lockBatchSlot(tx, targetBatchType, targetBatchIndex); err != nil {
			return nil, err
		}
		var occupancy int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM riders WHERE batch_type = $1 AND batch_index = $2`,
			targetBatchType, targetBatchIndex).Scan(&occupancy); err != nil {
			return nil, err
		}
		if occupancy >= s.cfg.Capacity {
			return nil, &ConflictError{Message: fmt.Sprintf(
				"batch %s/%d is full (%d/%d)", targetBatchType, targetBatchIndex, occupancy, s.cfg.Capacity)}
		}
	}

	result, err := tx.Exec(`
		UPDATE riders
		SET batch_type = $1, batch_index = $2, version = version + 1, updated_at = $3
		WHERE id = $4 AND version = $5`,
		targetBatchType, targetBatchIndex, time.Now(), riderID, rider.Version)
	if err != nil {
		return nil, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("optimistic lock failed for rider %s", riderID)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.audit.LogMove(riderID, rider.BatchType, rider.BatchIndex, targetBatchType, targetBatchIndex)
	s.invalidateRiderCache(ctx)
	return s.getRider(ctx, riderID)
}

// createRider enrolls a rider with an empty ledger. In strict capacity mode
// the target batch must have room.
func (s *RiderService) createRider(ctx context.Context, req *CreateRiderRequest) (*models.Rider, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if s.cfg.CapacityMode == config.CapacityStrict {
		if err := lockBatchSlot(tx, req.BatchType, *req.BatchIndex); err != nil {
			return nil, err
		}
		var occupancy int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM riders WHERE batch_type = $1 AND batch_index = $2`,
			req.BatchType, *req.BatchIndex).Scan(&occupancy); err != nil {
			return nil, err
		}
		if occupancy >= s.cfg.Capacity {
			return nil, &ConflictError{Message: fmt.Sprintf(
				"batch %s/%d is full (%d/%d)", req.BatchType, *req.BatchIndex, occupancy, s.cfg.Capacity)}
		}
	}

	level := req.Level
	if level == "" {
		level = models.LevelBeginner
	}

	rider := &models.Rider{
		ID:         uuid.NewString(),
		Name:       req.Name,
		Age:        req.Age,
		Phone:      req.Phone,
		Email:      req.Email,
		Level:      level,
		JoinedDate: time.Now().Format("2006-01-02"),
		BatchType:  req.BatchType,
		BatchIndex: *req.BatchIndex,
		Checkins:   []models.CheckinEntry{},
		Version:    1,
	}

	err = tx.QueryRow(`
		INSERT INTO riders (id, name, age, phone, email, level, joined_date, fees_paid, batch_type, batch_index, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8, $9, 1, NOW(), NOW())
		RETURNING created_at, updated_at`,
		rider.ID, rider.Name, rider.Age, rider.Phone, rider.Email, rider.Level,
		rider.JoinedDate, rider.BatchType, rider.BatchIndex).
		Scan(&rider.CreatedAt, &rider.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	s.invalidateRiderCache(ctx)
	return rider, nil
}

// ListRiders returns all riders
// @Summary List riders
// @Description All riders sorted by batch, each with unpaid-class count and resolved batch name
// @Tags riders
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Router /riders [get]
func (s *RiderService) ListRiders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, riderListCacheKey).Bytes(); err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.Write(cached)
			return
		}
	}

	batchCfg, err := s.batches.batchConfig(ctx)
	if err != nil {
		SendDomainError(w, err)
		return
	}
	riders, err := s.loadRiders(ctx)
	if err != nil {
		SendDomainError(w, err)
		return
	}
	for i := range riders {
		applyBatchInfo(&riders[i], batchCfg)
	}

	payload, err := json.Marshal(map[string]any{
		"success": true,
		"data":    riders,
		"count":   len(riders),
	})
	if err != nil {
		SendDomainError(w, err)
		return
	}
	if s.redis != nil {
		if err := s.redis.Set(ctx, riderListCacheKey, payload, 30*time.Second).Err(); err != nil {
			log.Printf("[RIDER] Failed to cache rider list: %v", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

// ListBatchesWithRiders returns the batch schedule with member riders
// @Summary List batches with riders
// @Description Batch slots per type with their members, computed by filtering riders
// @Tags riders
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Router /riders/batches [get]
func (s *RiderService) ListBatchesWithRiders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	batchCfg, err := s.batches.batchConfig(ctx)
	if err != nil {
		SendDomainError(w, err)
		return
	}
	riders, err := s.loadRiders(ctx)
	if err != nil {
		SendDomainError(w, err)
		return
	}
	for i := range riders {
		applyBatchInfo(&riders[i], batchCfg)
	}

	type batchWithRiders struct {
		Name       string         `json:"name"`
		Time       string         `json:"time"`
		BatchIndex int            `json:"batchIndex"`
		Riders     []models.Rider `json:"riders"`
	}

	group := func(batchType string) []batchWithRiders {
		out := []batchWithRiders{}
		for i, slot := range batchCfg[batchType] {
			entry := batchWithRiders{Name: slot.Name, Time: slot.Time, BatchIndex: i, Riders: []models.Rider{}}
			for _, rider := range riders {
				if rider.BatchType == batchType && rider.BatchIndex == i {
					entry.Riders = append(entry.Riders, rider)
				}
			}
			out = append(out, entry)
		}
		return out
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data": map[string]any{
			"morning": group(models.BatchMorning),
			"evening": group(models.BatchEvening),
		},
	})
}

// GetRider returns a single rider
// @Summary Get rider
// @Tags riders
// @Produce json
// @Security BearerAuth
// @Param id path string true "Rider ID"
// @Success 200 {object} models.Rider
// @Failure 404 {object} ErrorResponse
// @Router /riders/{id} [get]
func (s *RiderService) GetRider(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rider, err := s.getRider(ctx, chi.URLParam(r, "id"))
	if err != nil {
		SendDomainError(w, err)
		return
	}
	batchCfg, err := s.batches.batchConfig(ctx)
	if err != nil {
		SendDomainError(w, err)
		return
	}
	applyBatchInfo(rider, batchCfg)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    rider,
	})
}

// CreateRiderRequest is the enrollment payload
type CreateRiderRequest struct {
	Name       string `json:"name" validate:"required" example:"Meera Patel"`
	Age        int    `json:"age" validate:"required,gte=5,lte=80" example:"13"`
	Phone      string `json:"phone" validate:"required" example:"+91 98765 43214"`
	Email      string `json:"email" validate:"omitempty,email" example:"meera.p@email.com"`
	Level      string `json:"level" validate:"omitempty,oneof=beginner intermediate advanced" example:"beginner"`
	BatchType  string `json:"batchType" validate:"required,oneof=morning evening" example:"morning"`
	BatchIndex *int   `json:"batchIndex" validate:"required,gte=0,lte=10" example:"0"`
}

// CreateRider enrolls a new rider
// @Summary Create rider
// @Description Enroll a rider with an empty check-in ledger
// @Tags riders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateRiderRequest true "Rider data"
// @Success 201 {object} models.Rider
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /riders [post]
func (s *RiderService) CreateRider(w http.ResponseWriter, r *http.Request) {
	var req CreateRiderRequest

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

	ctx := r.Context()
	rider, err := s.createRider(ctx, &req)
	if err != nil {
		SendDomainError(w, err)
		return
	}

	batchCfg, err := s.batches.batchConfig(ctx)
	if err != nil {
		SendDomainError(w, err)
		return
	}
	applyBatchInfo(rider, batchCfg)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"message": "Rider created successfully",
		"data":    rider,
	})
}

// UpdateRiderRequest is the rider edit payload; batch reassignment goes
// through the move operation instead.
type UpdateRiderRequest struct {
	Name     *string `json:"name,omitempty"`
	Age      *int    `json:"age,omitempty" validate:"omitempty,gte=5,lte=80"`
	Phone    *string `json:"phone,omitempty"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Level    *string `json:"level,omitempty" validate:"omitempty,oneof=beginner intermediate advanced"`
	FeesPaid *bool   `json:"feesPaid,omitempty"`
}

// UpdateRider edits rider fields
// @Summary Update rider
// @Tags riders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Rider ID"
// @Param request body UpdateRiderRequest true "Fields to update"
// @Success 200 {object} models.Rider
// @Failure 404 {object} ErrorResponse
// @Router /riders/{id} [put]
func (s *RiderService) UpdateRider(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateRiderRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	ctx := r.Context()
	rider, err := s.getRider(ctx, id)
	if err != nil {
		SendDomainError(w, err)
		return
	}

	if req.Name != nil {
		rider.Name = *req.Name
	}
	if req.Age != nil {
		rider.Age = *req.Age
	}
	if req.Phone != nil {
		rider.Phone = *req.Phone
	}
	if req.Email != nil {
		rider.Email = *req.Email
	}
	if req.Level != nil {
		rider.Level = *req.Level
	}
	if req.FeesPaid != nil {
		rider.FeesPaid = *req.FeesPaid
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE riders
		SET name = $1, age = $2, phone = $3, email = $4, level = $5, fees_paid = $6,
		    version = version + 1, updated_at = $7
		WHERE id = $8 AND version = $9`,
		rider.Name, rider.Age, rider.Phone, rider.Email, rider.Level, rider.FeesPaid,
		time.Now(), id, rider.Version)
	if err != nil {
		SendDomainError(w, err)
		return
	}
	if n, err := result.RowsAffected(); err != nil || n == 0 {
		SendDomainError(w, fmt.Errorf("optimistic lock failed for rider %s", id))
		return
	}
	s.invalidateRiderCache(ctx)

	batchCfg, err := s.batches.batchConfig(ctx)
	if err != nil {
		SendDomainError(w, err)
		return
	}
	applyBatchInfo(rider, batchCfg)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"message": "Rider updated successfully",
		"data":    rider,
	})
}

// CheckinRequest is the check-in payload
type CheckinRequest struct {
	Horse string `json:"horse" validate:"required" example:"Alishan"`
}

// CheckInRider records a ride for a rider
// @Summary Check in rider
// @Description Append a check-in entry to the rider's ledger and project a ride log record
// @Tags riders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Rider ID"
// @Param request body CheckinRequest true "Horse selection"
// @Success 200 {object} map[string]any
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /riders/{id}/checkin [patch]
func (s *RiderService) CheckInRider(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req CheckinRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	ctx := r.Context()
	rider, ride, err := s.ledger.CheckIn(ctx, id, req.Horse)
	if err != nil {
		SendDomainError(w, err)
		return
	}
	s.invalidateRiderCache(ctx)

	batchCfg, err := s.batches.batchConfig(ctx)
	if err != nil {
		SendDomainError(w, err)
		return
	}
	applyBatchInfo(rider, batchCfg)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"message": "Check-in successful",
		"data":    rider,
		"ride": map[string]any{
			"id":         ride.ID,
			"rideTime":   ride.RideTime,
			"riderName":  ride.RiderName,
			"riderLevel": ride.RiderLevel,
			"horse":      ride.Horse,
		},
	})
}

// PayFees settles the oldest unpaid classes
// @Summary Settle payment
// @Description Mark the oldest 26 unpaid check-ins as paid; fails below the threshold
// @Tags riders
// @Produce json
// @Security BearerAuth
// @Param id path string true "Rider ID"
// @Success 200 {object} map[string]any
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /riders/{id}/pay [patch]
func (s *RiderService) PayFees(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rider, err := s.ledger.SettlePayment(ctx, chi.URLParam(r, "id"))
	if err != nil {
		SendDomainError(w, err)
		return
	}
	s.invalidateRiderCache(ctx)

	batchCfg, err := s.batches.batchConfig(ctx)
	if err != nil {
		SendDomainError(w, err)
		return
	}
	applyBatchInfo(rider, batchCfg)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"message": fmt.Sprintf("Payment recorded. %d classes marked as paid.", PaymentThreshold),
		"data":    rider,
	})
}

// MoveRequest is the batch reassignment payload
type MoveRequest struct {
	TargetBatchType  string `json:"targetBatchType" validate:"required" example:"evening"`
	TargetBatchIndex *int   `json:"targetBatchIndex" validate:"required" example:"1"`
}

// MoveRider reassigns a rider to another batch
// @Summary Move rider
// @Description Reassign a rider's batch; moving to the current batch is a no-op
// @Tags riders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Rider ID"
// @Param request body MoveRequest true "Target batch"
// @Success 200 {object} map[string]any
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /riders/{id}/move [patch]
func (s *RiderService) MoveRider(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req MoveRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	ctx := r.Context()
	rider, err := s.moveRider(ctx, id, req.TargetBatchType, *req.TargetBatchIndex)
	if err != nil {
		SendDomainError(w, err)
		return
	}

	batchCfg, err := s.batches.batchConfig(ctx)
	if err != nil {
		SendDomainError(w, err)
		return
	}
	applyBatchInfo(rider, batchCfg)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"message": "Rider moved successfully",
		"data":    rider,
	})
}

// DeleteRider removes a rider and their ledger
// @Summary Delete rider
// @Tags riders
// @Produce json
// @Security BearerAuth
// @Param id path string true "Rider ID"
// @Success 200 {object} map[string]any
// @Failure 404 {object} ErrorResponse
// @Router /riders/{id} [delete]
func (s *RiderService) DeleteRider(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	rider, err := s.getRider(ctx, id)
	if err != nil {
		SendDomainError(w, err)
		return
	}

	// The checkins rows cascade with the rider; the ride log is independent
	// and keeps its records.
	if _, err := s.db.ExecContext(ctx, `DELETE FROM riders WHERE id = $1`, id); err != nil {
		SendDomainError(w, err)
		return
	}
	s.invalidateRiderCache(ctx)

	batchCfg, err := s.batches.batchConfig(ctx)
	if err != nil {
		SendDomainError(w, err)
		return
	}
	applyBatchInfo(rider, batchCfg)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"message": "Rider deleted successfully",
		"data":    rider,
	})
}

type seedRider struct {
	name       string
	age        int
	phone      string
	email      string
	level      string
	joined     string
	total      int
	paid       int
	batchType  string
	batchIndex int
}

var seedRiders = []seedRider{
	{"Aanya Sharma", 14, "+91 98765 43210", "aanya.s@email.com", models.LevelIntermediate, "2024-03-15", 54, 26, models.BatchMorning, 0},
	{"Rohan Kapoor", 16, "+91 98765 43211", "rohan.k@email.com", models.LevelAdvanced, "2023-11-20", 58, 26, models.BatchMorning, 0},
	{"Priya Malhotra", 12, "+91 98765 43212", "priya.m@email.com", models.LevelBeginner, "2025-01-10", 14, 0, models.BatchMorning, 0},
	{"Kabir Verma", 17, "+91 98765 43215", "kabir.v@email.com", models.LevelAdvanced, "2023-08-14", 56, 26, models.BatchMorning, 1},
	{"Tara Gupta", 11, "+91 98765 43217", "tara.g@email.com", models.LevelBeginner, "2025-03-01", 12, 0, models.BatchMorning, 1},
	{"Siddharth Rao", 15, "+91 98765 43220", "siddharth.r@email.com", models.LevelIntermediate, "2024-02-12", 53, 26, models.BatchMorning, 2},
	{"Karan Bhatia", 16, "+91 98765 43224", "karan.b@email.com", models.LevelAdvanced, "2023-12-03", 29, 0, models.BatchMorning, 2},
	{"Riya Desai", 13, "+91 98765 43225", "riya.d@email.com", models.LevelBeginner, "2025-02-20", 16, 0, models.BatchEvening, 0},
	{"Pooja Saxena", 15, "+91 98765 43227", "pooja.s@email.com", models.LevelIntermediate, "2024-05-06", 26, 0, models.BatchEvening, 0},
	{"Nikhil Menon", 16, "+91 98765 43230", "nikhil.m@email.com", models.LevelAdvanced, "2023-10-22", 59, 26, models.BatchEvening, 1},
	{"Simran Kaur", 11, "+91 98765 43233", "simran.k@email.com", models.LevelBeginner, "2025-01-05", 8, 0, models.BatchEvening, 1},
	{"Vihaan Khanna", 15, "+91 98765 43238", "vihaan.k@email.com", models.LevelIntermediate, "2024-07-21", 52, 26, models.BatchEvening, 2},
}

// generateCheckins builds count entries spread between the joined date and
// now, renumbered chronologically, with the oldest paidCount marked paid.
func generateCheckins(count int, joined string, paidCount int) []models.CheckinEntry {
	start, err := time.Parse("2006-01-02", joined)
	if err != nil {
		start = time.Now().AddDate(-1, 0, 0)
	}
	span := time.Since(start)

	entries := make([]models.CheckinEntry, 0, count)
	for i := 0; i < count; i++ {
		entries = append(entries, models.CheckinEntry{
			RideNumber:  i + 1,
			CheckinTime: start.Add(time.Duration(rand.Int63n(int64(span) + 1))),
			Horse:       defaultSeedHorses[rand.Intn(len(defaultSeedHorses))],
			Paid:        false,
		})
	}
	entries = renumberCheckins(entries)
	for i := range entries {
		entries[i].Paid = i < paidCount
	}
	return entries
}

var defaultSeedHorses = []string{"Alishan", "Aslan", "Timur", "Heera", "Clara", "XLove", "Baadshah", "Antilope"}

// SeedRiders replaces all rider and ride data with the demo data set
// @Summary Seed demo riders
// @Description Development bootstrap: replaces riders, ledgers and the ride log
// @Tags riders
// @Produce json
// @Security BearerAuth
// @Success 201 {object} map[string]any
// @Router /riders/seed [post]
func (s *RiderService) SeedRiders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		SendDomainError(w, err)
		return
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM riders`); err != nil {
		SendDomainError(w, err)
		return
	}
	if _, err := tx.Exec(`DELETE FROM rides`); err != nil {
		SendDomainError(w, err)
		return
	}

	batchCfg, err := s.batches.batchConfig(ctx)
	if err != nil {
		SendDomainError(w, err)
		return
	}

	rideCount := 0
	for _, seed := range seedRiders {
		riderID := uuid.NewString()
		feesPaid := seed.paid > 0
		if _, err := tx.Exec(`
			INSERT INTO riders (id, name, age, phone, email, level, joined_date, fees_paid, batch_type, batch_index, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1, NOW(), NOW())`,
			riderID, seed.name, seed.age, seed.phone, seed.email, seed.level,
			seed.joined, feesPaid, seed.batchType, seed.batchIndex); err != nil {
			SendDomainError(w, err)
			return
		}

		batchName := fmt.Sprintf("Batch %d", seed.batchIndex+1)
		if slots := batchCfg[seed.batchType]; seed.batchIndex < len(slots) && slots[seed.batchIndex].Name != "" {
			batchName = slots[seed.batchIndex].Name
		}

		for _, entry := range generateCheckins(seed.total, seed.joined, seed.paid) {
			if _, err := tx.Exec(`
				INSERT INTO checkins (rider_id, ride_number, checkin_time, horse, paid)
				VALUES ($1, $2, $3, $4, $5)`,
				riderID, entry.RideNumber, entry.CheckinTime, entry.Horse, entry.Paid); err != nil {
				SendDomainError(w, err)
				return
			}
			if _, err := tx.Exec(`
				INSERT INTO rides (id, ride_time, rider_id, rider_name, rider_level, horse, batch_type, batch_name, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`,
				uuid.NewString(), entry.CheckinTime, riderID, seed.name, seed.level,
				entry.Horse, seed.batchType, batchName); err != nil {
				SendDomainError(w, err)
				return
			}
			rideCount++
		}
	}

	if err := tx.Commit(); err != nil {
		SendDomainError(w, err)
		return
	}
	s.invalidateRiderCache(ctx)

	log.Printf("[RIDER] Seeded %d riders and %d rides", len(seedRiders), rideCount)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"message": fmt.Sprintf("Seeded %d riders and %d rides successfully", len(seedRiders), rideCount),
		"count":   map[string]int{"riders": len(seedRiders), "rides": rideCount},
	})
}
