package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/equineenclave/backend/internal/config"
	"github.com/equineenclave/backend/internal/models"
)

// PaymentThreshold is the unpaid-class count at which settlement becomes due.
const PaymentThreshold = 26

// LedgerService owns the check-in ledger: it appends ride entries, keeps
// rideNumber values contiguous, computes unpaid-class counts and applies
// settlement. A check-in writes the rider's ledger and the ride log in one
// database transaction, so callers never observe half of a check-in.
type LedgerService struct {
	db      *sql.DB
	batches *BatchService
	cfg     *config.BatchConfig
	audit   *AuditLogger
}

func NewLedgerService(db *sql.DB, batches *BatchService, cfg *config.BatchConfig) *LedgerService {
	return &LedgerService{
		db:      db,
		batches: batches,
		cfg:     cfg,
		audit:   NewAuditLogger(),
	}
}

// renumberCheckins sorts entries chronologically and reassigns rideNumber
// values 1..n. Returns the same slice for convenience.
func renumberCheckins(entries []models.CheckinEntry) []models.CheckinEntry {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CheckinTime.Equal(entries[j].CheckinTime) {
			return entries[i].RideNumber < entries[j].RideNumber
		}
		return entries[i].CheckinTime.Before(entries[j].CheckinTime)
	})
	for i := range entries {
		entries[i].RideNumber = i + 1
	}
	return entries
}

func unpaidCount(entries []models.CheckinEntry) int {
	count := 0
	for _, e := range entries {
		if !e.Paid {
			count++
		}
	}
	return count
}

// oldestUnpaidRideNumbers picks the ride numbers of the n oldest unpaid
// entries ordered by check-in time. Billing follows FIFO class consumption:
// the remaining unpaid balance is always the most recently taken classes.
func oldestUnpaidRideNumbers(entries []models.CheckinEntry, n int) []int {
	unpaid := make([]models.CheckinEntry, 0, len(entries))
	for _, e := range entries {
		if !e.Paid {
			unpaid = append(unpaid, e)
		}
	}
	sort.SliceStable(unpaid, func(i, j int) bool {
		return unpaid[i].CheckinTime.Before(unpaid[j].CheckinTime)
	})
	if n > len(unpaid) {
		n = len(unpaid)
	}
	numbers := make([]int, 0, n)
	for _, e := range unpaid[:n] {
		numbers = append(numbers, e.RideNumber)
	}
	return numbers
}

// lockRider loads a rider row under FOR UPDATE so concurrent mutations of the
// same rider serialize while different riders proceed in parallel.
func (s *LedgerService) lockRider(tx *sql.Tx, riderID string) (*models.Rider, error) {
	var rider models.Rider
	err := tx.QueryRow(`
		SELECT id, name, age, phone, email, level, joined_date, fees_paid, batch_type, batch_index, version
		FROM riders
		WHERE id = $1
		FOR UPDATE`, riderID).
		Scan(&rider.ID, &rider.Name, &rider.Age, &rider.Phone, &rider.Email, &rider.Level,
			&rider.JoinedDate, &rider.FeesPaid, &rider.BatchType, &rider.BatchIndex, &rider.Version)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Resource: "rider", ID: riderID}
	}
	if err != nil {
		return nil, err
	}
	return &rider, nil
}

func (s *LedgerService) loadCheckins(tx *sql.Tx, riderID string) ([]models.CheckinEntry, error) {
	rows, err := tx.Query(`
		SELECT ride_number, checkin_time, horse, paid
		FROM checkins
		WHERE rider_id = $1
		ORDER BY checkin_time, ride_number`, riderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.CheckinEntry
	for rows.Next() {
		var e models.CheckinEntry
		if err := rows.Scan(&e.RideNumber, &e.CheckinTime, &e.Horse, &e.Paid); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// bumpVersion advances the rider's optimistic version within the transaction.
func (s *LedgerService) bumpVersion(tx *sql.Tx, riderID string, version int) error {
	result, err := tx.Exec(`
		UPDATE riders
		SET version = version + 1, updated_at = $1
		WHERE id = $2 AND version = $3`,
		time.Now(), riderID, version)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("optimistic lock failed for rider %s", riderID)
	}
	return nil
}

// CheckIn appends a check-in entry to the rider's ledger and projects it into
// the ride log, committing both together. The ride record snapshots the
// rider's level and the batch name resolved at the moment of check-in.
func (s *LedgerService) CheckIn(ctx context.Context, riderID, horse string) (*models.Rider, *models.Ride, error) {
	if horse == "" {
		return nil, nil, &ValidationError{Field: "horse", Message: "horse selection is required"}
	}
	if !s.cfg.KnownHorse(horse) {
		return nil, nil, &ValidationError{Field: "horse", Message: fmt.Sprintf("unknown horse %q", horse)}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	rider, err := s.lockRider(tx, riderID)
	if err != nil {
		return nil, nil, err
	}

	entries, err := s.loadCheckins(tx, riderID)
	if err != nil {
		return nil, nil, err
	}

	checkinTime := time.Now()
	entry := models.CheckinEntry{
		RideNumber:  len(entries) + 1,
		CheckinTime: checkinTime,
		Horse:       horse,
		Paid:        false,
	}

	if _, err := tx.Exec(`
		INSERT INTO checkins (rider_id, ride_number, checkin_time, horse, paid)
		VALUES ($1, $2, $3, $4, $5)`,
		riderID, entry.RideNumber, entry.CheckinTime, entry.Horse, entry.Paid); err != nil {
		return nil, nil, err
	}

	batchName, _ := s.batches.resolveBatch(ctx, rider.BatchType, rider.BatchIndex)

	ride := &models.Ride{
		ID:         uuid.NewString(),
		RideTime:   checkinTime,
		RiderID:    rider.ID,
		RiderName:  rider.Name,
		RiderLevel: rider.Level,
		Horse:      horse,
		BatchType:  rider.BatchType,
		BatchName:  batchName,
	}

	if _, err := tx.Exec(`
		INSERT INTO rides (id, ride_time, rider_id, rider_name, rider_level, horse, batch_type, batch_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ride.ID, ride.RideTime, ride.RiderID, ride.RiderName, ride.RiderLevel,
		ride.Horse, ride.BatchType, ride.BatchName, checkinTime); err != nil {
		return nil, nil, err
	}

	if err := s.bumpVersion(tx, riderID, rider.Version); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		s.audit.LogError(riderID, "CHECKIN", err)
		return nil, nil, err
	}

	rider.Checkins = append(entries, entry)
	ride.CreatedAt = checkinTime
	s.audit.LogCheckin(riderID, horse, batchName, entry.RideNumber)
	return rider, ride, nil
}

// SettlePayment marks the oldest PaymentThreshold unpaid entries as paid.
// Below the threshold it fails with PaymentNotRequiredError carrying the
// current unpaid count. rideNumber values are never touched by settlement.
func (s *LedgerService) SettlePayment(ctx context.Context, riderID string) (*models.Rider, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rider, err := s.lockRider(tx, riderID)
	if err != nil {
		return nil, err
	}

	entries, err := s.loadCheckins(tx, riderID)
	if err != nil {
		return nil, err
	}

	unpaid := unpaidCount(entries)
	if unpaid < PaymentThreshold {
		return nil, &PaymentNotRequiredError{UnpaidCount: unpaid}
	}

	targets := oldestUnpaidRideNumbers(entries, PaymentThreshold)
	if _, err := tx.Exec(`
		UPDATE checkins SET paid = TRUE
		WHERE rider_id = $1 AND ride_number = ANY($2)`,
		riderID, pq.Array(targets)); err != nil {
		return nil, err
	}

	result, err := tx.Exec(`
		UPDATE riders
		SET fees_paid = TRUE, version = version + 1, updated_at = $1
		WHERE id = $2 AND version = $3`,
		time.Now(), riderID, rider.Version)
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
		s.audit.LogError(riderID, "SETTLEMENT", err)
		return nil, err
	}

	settled := make(map[int]bool, len(targets))
	for _, n := range targets {
		settled[n] = true
	}
	for i := range entries {
		if settled[entries[i].RideNumber] {
			entries[i].Paid = true
		}
	}
	rider.Checkins = entries
	rider.FeesPaid = true
	s.audit.LogSettlement(riderID, len(targets), unpaid-len(targets))
	return rider, nil
}
