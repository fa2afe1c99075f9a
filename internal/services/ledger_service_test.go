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

func testBatchConfig() *config.BatchConfig {
	return config.LoadBatchConfig()
}

func newLedgerFixture(t *testing.T) (*LedgerService, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	cfg := testBatchConfig()
	batches := NewBatchService(db, cfg)
	return NewLedgerService(db, batches, cfg), mock, db
}

func entryAt(rideNumber int, offset time.Duration, paid bool) models.CheckinEntry {
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	return models.CheckinEntry{
		RideNumber:  rideNumber,
		CheckinTime: base.Add(offset),
		Horse:       "Alishan",
		Paid:        paid,
	}
}

func TestRenumberCheckins(t *testing.T) {
	t.Run("assigns contiguous numbers in chronological order", func(t *testing.T) {
		entries := []models.CheckinEntry{
			entryAt(7, 3*time.Hour, false),
			entryAt(2, 1*time.Hour, true),
			entryAt(9, 2*time.Hour, false),
		}

		got := renumberCheckins(entries)

		assert.Len(t, got, 3)
		for i, e := range got {
			assert.Equal(t, i+1, e.RideNumber)
		}
		assert.True(t, got[0].CheckinTime.Before(got[1].CheckinTime))
		assert.True(t, got[1].CheckinTime.Before(got[2].CheckinTime))
	})

	t.Run("breaks timestamp ties by prior ride number", func(t *testing.T) {
		entries := []models.CheckinEntry{
			entryAt(5, time.Hour, false),
			entryAt(3, time.Hour, false),
		}

		got := renumberCheckins(entries)

		assert.Equal(t, 1, got[0].RideNumber)
		assert.Equal(t, 2, got[1].RideNumber)
		// The entry previously numbered 3 sorts first.
		assert.Equal(t, got[0].CheckinTime, got[1].CheckinTime)
	})

	t.Run("empty ledger", func(t *testing.T) {
		assert.Empty(t, renumberCheckins(nil))
	})
}

func TestOldestUnpaidRideNumbers(t *testing.T) {
	t.Run("picks oldest unpaid first", func(t *testing.T) {
		entries := []models.CheckinEntry{
			entryAt(1, 0, true),
			entryAt(2, 1*time.Hour, false),
			entryAt(3, 2*time.Hour, false),
			entryAt(4, 3*time.Hour, false),
		}

		got := oldestUnpaidRideNumbers(entries, 2)
		assert.Equal(t, []int{2, 3}, got)
	})

	t.Run("caps at available unpaid entries", func(t *testing.T) {
		entries := []models.CheckinEntry{
			entryAt(1, 0, false),
			entryAt(2, time.Hour, true),
		}

		got := oldestUnpaidRideNumbers(entries, 26)
		assert.Equal(t, []int{1}, got)
	})
}

func TestUnpaidCount(t *testing.T) {
	entries := []models.CheckinEntry{
		entryAt(1, 0, true),
		entryAt(2, time.Hour, false),
		entryAt(3, 2*time.Hour, false),
	}
	assert.Equal(t, 2, unpaidCount(entries))
	assert.Equal(t, 0, unpaidCount(nil))
}

func riderRow() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "age", "phone", "email", "level", "joined_date",
		"fees_paid", "batch_type", "batch_index", "version",
	}).AddRow("rider1", "Aanya Sharma", 14, "+91 98765 43210", "aanya.s@email.com",
		models.LevelIntermediate, "2024-03-15", false, models.BatchMorning, 0, 1)
}

func checkinColumns() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"ride_number", "checkin_time", "horse", "paid"})
}

func TestLedgerService_CheckIn(t *testing.T) {
	service, mock, db := newLedgerFixture(t)
	defer db.Close()

	t.Run("successful check-in appends next ride number", func(t *testing.T) {
		existing := checkinColumns().
			AddRow(1, time.Now().Add(-48*time.Hour), "Aslan", true).
			AddRow(2, time.Now().Add(-24*time.Hour), "Timur", false)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, name, age, phone, email, level, joined_date, fees_paid, batch_type, batch_index, version FROM riders WHERE id = \\$1 FOR UPDATE").
			WithArgs("rider1").
			WillReturnRows(riderRow())
		mock.ExpectQuery("SELECT ride_number, checkin_time, horse, paid FROM checkins WHERE rider_id = \\$1").
			WithArgs("rider1").
			WillReturnRows(existing)
		mock.ExpectExec("INSERT INTO checkins").
			WithArgs("rider1", 3, sqlmock.AnyArg(), "Heera", false).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectQuery("SELECT batch_type, batch_index, name, time_range FROM batches").
			WillReturnRows(sqlmock.NewRows([]string{"batch_type", "batch_index", "name", "time_range"}))
		mock.ExpectExec("INSERT INTO rides").
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "rider1", "Aanya Sharma",
				models.LevelIntermediate, "Heera", models.BatchMorning, "Batch 1", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("UPDATE riders SET version = version \\+ 1, updated_at = \\$1 WHERE id = \\$2 AND version = \\$3").
			WithArgs(sqlmock.AnyArg(), "rider1", 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		rider, ride, err := service.CheckIn(context.Background(), "rider1", "Heera")
		assert.NoError(t, err)
		assert.Len(t, rider.Checkins, 3)
		assert.Equal(t, 3, rider.Checkins[2].RideNumber)
		assert.Equal(t, "Heera", rider.Checkins[2].Horse)
		assert.False(t, rider.Checkins[2].Paid)
		assert.Equal(t, "rider1", ride.RiderID)
		assert.Equal(t, "Batch 1", ride.BatchName)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown horse is rejected before any query", func(t *testing.T) {
		_, _, err := service.CheckIn(context.Background(), "rider1", "Shadowfax")
		assert.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing horse is rejected", func(t *testing.T) {
		_, _, err := service.CheckIn(context.Background(), "rider1", "")
		assert.True(t, IsValidationError(err))
	})

	t.Run("unknown rider", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, name, age, phone, email, level, joined_date, fees_paid, batch_type, batch_index, version FROM riders WHERE id = \\$1 FOR UPDATE").
			WithArgs("ghost").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, _, err := service.CheckIn(context.Background(), "ghost", "Alishan")
		assert.True(t, IsNotFoundError(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerService_SettlePayment(t *testing.T) {
	service, mock, db := newLedgerFixture(t)
	defer db.Close()

	lockQuery := "SELECT id, name, age, phone, email, level, joined_date, fees_paid, batch_type, batch_index, version FROM riders WHERE id = \\$1 FOR UPDATE"
	checkinQuery := "SELECT ride_number, checkin_time, horse, paid FROM checkins WHERE rider_id = \\$1"

	t.Run("below threshold fails with unpaid count", func(t *testing.T) {
		rows := checkinColumns()
		for i := 0; i < PaymentThreshold-1; i++ {
			rows.AddRow(i+1, time.Now().Add(time.Duration(i)*time.Hour), "Alishan", false)
		}

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs("rider1").WillReturnRows(riderRow())
		mock.ExpectQuery(checkinQuery).WithArgs("rider1").WillReturnRows(rows)
		mock.ExpectRollback()

		_, err := service.SettlePayment(context.Background(), "rider1")
		assert.True(t, IsPaymentNotRequiredError(err))
		var pe *PaymentNotRequiredError
		assert.ErrorAs(t, err, &pe)
		assert.Equal(t, PaymentThreshold-1, pe.UnpaidCount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("settles oldest classes and leaves the rest unpaid", func(t *testing.T) {
		total := PaymentThreshold + 4
		rows := checkinColumns()
		for i := 0; i < total; i++ {
			rows.AddRow(i+1, time.Now().Add(time.Duration(i)*time.Hour), "Alishan", false)
		}

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs("rider1").WillReturnRows(riderRow())
		mock.ExpectQuery(checkinQuery).WithArgs("rider1").WillReturnRows(rows)
		mock.ExpectExec("UPDATE checkins SET paid = TRUE").
			WithArgs("rider1", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, int64(PaymentThreshold)))
		mock.ExpectExec("UPDATE riders SET fees_paid = TRUE, version = version \\+ 1, updated_at = \\$1 WHERE id = \\$2 AND version = \\$3").
			WithArgs(sqlmock.AnyArg(), "rider1", 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		rider, err := service.SettlePayment(context.Background(), "rider1")
		assert.NoError(t, err)
		assert.True(t, rider.FeesPaid)

		paid := 0
		for _, e := range rider.Checkins {
			if e.Paid {
				paid++
			}
		}
		assert.Equal(t, PaymentThreshold, paid)
		// FIFO: the oldest entries settle, the newest stay unpaid.
		assert.True(t, rider.Checkins[0].Paid)
		assert.False(t, rider.Checkins[total-1].Paid)
		// rideNumbers stay contiguous after settlement.
		for i, e := range rider.Checkins {
			assert.Equal(t, i+1, e.RideNumber)
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exactly at threshold settles everything", func(t *testing.T) {
		rows := checkinColumns()
		for i := 0; i < PaymentThreshold; i++ {
			rows.AddRow(i+1, time.Now().Add(time.Duration(i)*time.Hour), "Alishan", false)
		}

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs("rider1").WillReturnRows(riderRow())
		mock.ExpectQuery(checkinQuery).WithArgs("rider1").WillReturnRows(rows)
		mock.ExpectExec("UPDATE checkins SET paid = TRUE").
			WithArgs("rider1", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, int64(PaymentThreshold)))
		mock.ExpectExec("UPDATE riders SET fees_paid = TRUE").
			WithArgs(sqlmock.AnyArg(), "rider1", 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		rider, err := service.SettlePayment(context.Background(), "rider1")
		assert.NoError(t, err)
		assert.Equal(t, 0, rider.ActiveClasses())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("paid entries never settle twice", func(t *testing.T) {
		rows := checkinColumns()
		for i := 0; i < PaymentThreshold; i++ {
			rows.AddRow(i+1, time.Now().Add(time.Duration(i)*time.Hour), "Alishan", true)
		}
		rows.AddRow(PaymentThreshold+1, time.Now().Add(27*time.Hour), "Aslan", false)

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs("rider1").WillReturnRows(riderRow())
		mock.ExpectQuery(checkinQuery).WithArgs("rider1").WillReturnRows(rows)
		mock.ExpectRollback()

		_, err := service.SettlePayment(context.Background(), "rider1")
		assert.True(t, IsPaymentNotRequiredError(err))
		var pe *PaymentNotRequiredError
		assert.ErrorAs(t, err, &pe)
		assert.Equal(t, 1, pe.UnpaidCount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown rider", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs("ghost").WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, err := service.SettlePayment(context.Background(), "ghost")
		assert.True(t, IsNotFoundError(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
