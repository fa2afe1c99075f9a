package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/equineenclave/backend/internal/config"
	"github.com/equineenclave/backend/internal/models"
)

func newRiderFixture(t *testing.T) (*RiderService, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	cfg := testBatchConfig()
	batches := NewBatchService(db, cfg)
	ledger := NewLedgerService(db, batches, cfg)
	return NewRiderService(db, nil, ledger, batches, cfg), mock, db
}

const lockRiderQuery = "SELECT id, name, age, phone, email, level, joined_date, fees_paid, batch_type, batch_index, version FROM riders WHERE id = \\$1 FOR UPDATE"
const lockBatchSlotQuery = "SELECT pg_advisory_xact_lock\\(hashtext\\(\\$1\\), \\$2\\)"
const getRiderQuery = "SELECT id, name, age, phone, email, level, joined_date, fees_paid, batch_type, batch_index, version, created_at, updated_at FROM riders WHERE id = \\$1"

func fullRiderRow() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "age", "phone", "email", "level", "joined_date",
		"fees_paid", "batch_type", "batch_index", "version", "created_at", "updated_at",
	}).AddRow("rider1", "Aanya Sharma", 14, "+91 98765 43210", "aanya.s@email.com",
		models.LevelIntermediate, "2024-03-15", false, models.BatchMorning, 0, 1,
		time.Now(), time.Now())
}

func TestRiderService_moveRider(t *testing.T) {
	service, mock, db := newRiderFixture(t)
	defer db.Close()

	t.Run("invalid batch type", func(t *testing.T) {
		_, err := service.moveRider(context.Background(), "rider1", "afternoon", 0)
		assert.True(t, IsValidationError(err))
	})

	t.Run("batch index out of range", func(t *testing.T) {
		_, err := service.moveRider(context.Background(), "rider1", models.BatchMorning, 11)
		assert.True(t, IsValidationError(err))

		_, err = service.moveRider(context.Background(), "rider1", models.BatchMorning, -1)
		assert.True(t, IsValidationError(err))
	})

	t.Run("move to current batch is a no-op", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(lockRiderQuery).WithArgs("rider1").WillReturnRows(riderRow())
		mock.ExpectQuery(getRiderQuery).WithArgs("rider1").WillReturnRows(fullRiderRow())
		mock.ExpectQuery("SELECT ride_number, checkin_time, horse, paid FROM checkins WHERE rider_id = \\$1").
			WithArgs("rider1").
			WillReturnRows(checkinColumns())
		mock.ExpectRollback()

		rider, err := service.moveRider(context.Background(), "rider1", models.BatchMorning, 0)
		assert.NoError(t, err)
		assert.Equal(t, models.BatchMorning, rider.BatchType)
		assert.Equal(t, 0, rider.BatchIndex)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	// The slot lock expectation is ordered ahead of the occupancy count, so
	// these subtests also pin that the count never runs unlocked.
	t.Run("full target batch is refused in strict mode", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(lockRiderQuery).WithArgs("rider1").WillReturnRows(riderRow())
		mock.ExpectExec(lockBatchSlotQuery).
			WithArgs(models.BatchEvening, 1).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM riders WHERE batch_type = \\$1 AND batch_index = \\$2").
			WithArgs(models.BatchEvening, 1).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
		mock.ExpectRollback()

		_, err := service.moveRider(context.Background(), "rider1", models.BatchEvening, 1)
		assert.True(t, IsConflictError(err))
		assert.Contains(t, err.Error(), "full")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("successful move updates batch and version", func(t *testing.T) {
		moved := sqlmock.NewRows([]string{
			"id", "name", "age", "phone", "email", "level", "joined_date",
			"fees_paid", "batch_type", "batch_index", "version", "created_at", "updated_at",
		}).AddRow("rider1", "Aanya Sharma", 14, "+91 98765 43210", "aanya.s@email.com",
			models.LevelIntermediate, "2024-03-15", false, models.BatchEvening, 1, 2,
			time.Now(), time.Now())

		mock.ExpectBegin()
		mock.ExpectQuery(lockRiderQuery).WithArgs("rider1").WillReturnRows(riderRow())
		mock.ExpectExec(lockBatchSlotQuery).
			WithArgs(models.BatchEvening, 1).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM riders WHERE batch_type = \\$1 AND batch_index = \\$2").
			WithArgs(models.BatchEvening, 1).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectExec("UPDATE riders SET batch_type = \\$1, batch_index = \\$2, version = version \\+ 1").
			WithArgs(models.BatchEvening, 1, sqlmock.AnyArg(), "rider1", 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		mock.ExpectQuery(getRiderQuery).WithArgs("rider1").WillReturnRows(moved)
		mock.ExpectQuery("SELECT ride_number, checkin_time, horse, paid FROM checkins WHERE rider_id = \\$1").
			WithArgs("rider1").
			WillReturnRows(checkinColumns())

		rider, err := service.moveRider(context.Background(), "rider1", models.BatchEvening, 1)
		assert.NoError(t, err)
		assert.Equal(t, models.BatchEvening, rider.BatchType)
		assert.Equal(t, 1, rider.BatchIndex)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown rider", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(lockRiderQuery).WithArgs("ghost").WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, err := service.moveRider(context.Background(), "ghost", models.BatchEvening, 0)
		assert.True(t, IsNotFoundError(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRiderService_createRider(t *testing.T) {
	service, mock, db := newRiderFixture(t)
	defer db.Close()

	index := 0
	req := &CreateRiderRequest{
		Name:       "Meera Patel",
		Age:        13,
		Phone:      "+91 98765 43214",
		BatchType:  models.BatchMorning,
		BatchIndex: &index,
	}

	t.Run("strict mode refuses a full batch", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(lockBatchSlotQuery).
			WithArgs(models.BatchMorning, 0).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM riders WHERE batch_type = \\$1 AND batch_index = \\$2").
			WithArgs(models.BatchMorning, 0).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
		mock.ExpectRollback()

		_, err := service.createRider(context.Background(), req)
		assert.True(t, IsConflictError(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("creates rider with empty ledger and beginner default", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(lockBatchSlotQuery).
			WithArgs(models.BatchMorning, 0).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM riders WHERE batch_type = \\$1 AND batch_index = \\$2").
			WithArgs(models.BatchMorning, 0).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
		mock.ExpectQuery("INSERT INTO riders").
			WithArgs(sqlmock.AnyArg(), "Meera Patel", 13, "+91 98765 43214", "",
				models.LevelBeginner, sqlmock.AnyArg(), models.BatchMorning, 0).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).
				AddRow(time.Now(), time.Now()))
		mock.ExpectCommit()

		rider, err := service.createRider(context.Background(), req)
		assert.NoError(t, err)
		assert.Equal(t, models.LevelBeginner, rider.Level)
		assert.Empty(t, rider.Checkins)
		assert.Equal(t, 1, rider.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestApplyBatchInfo(t *testing.T) {
	cfg := map[string][]config.BatchSlot{
		models.BatchMorning: {
			{Name: "Sunrise", Time: "6:00 AM - 7:30 AM"},
		},
	}

	t.Run("resolves configured slot", func(t *testing.T) {
		rider := &models.Rider{
			BatchType:  models.BatchMorning,
			BatchIndex: 0,
			Checkins: []models.CheckinEntry{
				entryAt(1, 0, true),
				entryAt(2, time.Hour, false),
			},
		}
		applyBatchInfo(rider, cfg)

		assert.Equal(t, "Sunrise", rider.BatchName)
		assert.Equal(t, "6:00 AM - 7:30 AM", rider.BatchTime)
		assert.Equal(t, 1, rider.ActiveClassesCount)
	})

	t.Run("unresolvable slot falls back to placeholder", func(t *testing.T) {
		rider := &models.Rider{BatchType: models.BatchEvening, BatchIndex: 4}
		applyBatchInfo(rider, cfg)

		assert.Equal(t, "Batch 5", rider.BatchName)
		assert.Empty(t, rider.BatchTime)
		assert.Equal(t, 0, rider.ActiveClassesCount)
	})
}

func TestGenerateCheckins(t *testing.T) {
	entries := generateCheckins(30, "2024-03-15", 26)

	assert.Len(t, entries, 30)
	for i, e := range entries {
		assert.Equal(t, i+1, e.RideNumber)
		if i > 0 {
			assert.False(t, e.CheckinTime.Before(entries[i-1].CheckinTime))
		}
		assert.Equal(t, i < 26, e.Paid)
		assert.NotEmpty(t, e.Horse)
	}
}
