package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/equineenclave/backend/internal/models"
)

func rideRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "ride_time", "rider_id", "rider_name", "rider_level",
		"horse", "batch_type", "batch_name", "created_at",
	})
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestRideService_ListRides(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewRideService(db)

	t.Run("default pagination", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM rides WHERE 1=1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectQuery("SELECT id, ride_time, rider_id, rider_name, rider_level, horse, batch_type, batch_name, created_at FROM rides WHERE 1=1 ORDER BY ride_time DESC LIMIT \\$1 OFFSET \\$2").
			WithArgs(50, 0).
			WillReturnRows(rideRows().
				AddRow("ride2", time.Now(), "rider1", "Aanya Sharma", models.LevelIntermediate,
					"Heera", models.BatchMorning, "Batch 1", time.Now()).
				AddRow("ride1", time.Now().Add(-time.Hour), "rider1", "Aanya Sharma", models.LevelIntermediate,
					"Aslan", models.BatchMorning, "Batch 1", time.Now()))

		r := httptest.NewRequest("GET", "/rides", nil)
		w := httptest.NewRecorder()
		service.ListRides(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var response struct {
			Success    bool          `json:"success"`
			Data       []models.Ride `json:"data"`
			Pagination struct {
				Page       int `json:"page"`
				Limit      int `json:"limit"`
				Total      int `json:"total"`
				TotalPages int `json:"totalPages"`
			} `json:"pagination"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.True(t, response.Success)
		assert.Len(t, response.Data, 2)
		assert.Equal(t, 1, response.Pagination.Page)
		assert.Equal(t, 50, response.Pagination.Limit)
		assert.Equal(t, 2, response.Pagination.Total)
		assert.Equal(t, 1, response.Pagination.TotalPages)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("filters by rider level", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM rides WHERE 1=1 AND rider_level = \\$1").
			WithArgs(models.LevelBeginner).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery("FROM rides WHERE 1=1 AND rider_level = \\$1 ORDER BY ride_time DESC LIMIT \\$2 OFFSET \\$3").
			WithArgs(models.LevelBeginner, 50, 0).
			WillReturnRows(rideRows())

		r := httptest.NewRequest("GET", "/rides?riderLevel=beginner", nil)
		w := httptest.NewRecorder()
		service.ListRides(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("date range is inclusive at both ends", func(t *testing.T) {
		start, _ := time.Parse(time.RFC3339, "2025-06-01T00:00:00Z")
		end, _ := time.Parse(time.RFC3339, "2025-06-30T18:00:00Z")

		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM rides WHERE 1=1 AND ride_time >= \\$1 AND ride_time <= \\$2").
			WithArgs(start, end).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery("FROM rides WHERE 1=1 AND ride_time >= \\$1 AND ride_time <= \\$2 ORDER BY ride_time DESC LIMIT \\$3 OFFSET \\$4").
			WithArgs(start, end, 50, 0).
			WillReturnRows(rideRows().
				AddRow("ride3", end, "rider1", "Aanya Sharma", models.LevelIntermediate,
					"Heera", models.BatchMorning, "Batch 1", time.Now()))

		r := httptest.NewRequest("GET", "/rides?startDate=2025-06-01T00:00:00Z&endDate=2025-06-30T18:00:00Z", nil)
		w := httptest.NewRecorder()
		service.ListRides(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects malformed start date", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/rides?startDate=yesterday", nil)
		w := httptest.NewRecorder()
		service.ListRides(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("caps page size", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM rides WHERE 1=1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery("ORDER BY ride_time DESC LIMIT \\$1 OFFSET \\$2").
			WithArgs(200, 200).
			WillReturnRows(rideRows())

		r := httptest.NewRequest("GET", "/rides?limit=1000&page=2", nil)
		w := httptest.NewRecorder()
		service.ListRides(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRideService_GetRide(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewRideService(db)

	t.Run("existing ride", func(t *testing.T) {
		mock.ExpectQuery("FROM rides WHERE id = \\$1").
			WithArgs("ride1").
			WillReturnRows(rideRows().
				AddRow("ride1", time.Now(), "rider1", "Aanya Sharma", models.LevelIntermediate,
					"Heera", models.BatchMorning, "Batch 1", time.Now()))

		r := withURLParam(httptest.NewRequest("GET", "/rides/ride1", nil), "id", "ride1")
		w := httptest.NewRecorder()
		service.GetRide(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown ride", func(t *testing.T) {
		mock.ExpectQuery("FROM rides WHERE id = \\$1").
			WithArgs("ghost").
			WillReturnRows(rideRows())

		r := withURLParam(httptest.NewRequest("GET", "/rides/ghost", nil), "id", "ghost")
		w := httptest.NewRecorder()
		service.GetRide(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRideService_DeleteRide(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewRideService(db)

	t.Run("deletes existing ride", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM rides WHERE id = \\$1").
			WithArgs("ride1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		r := withURLParam(httptest.NewRequest("DELETE", "/rides/ride1", nil), "id", "ride1")
		w := httptest.NewRecorder()
		service.DeleteRide(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown ride", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM rides WHERE id = \\$1").
			WithArgs("ghost").
			WillReturnResult(sqlmock.NewResult(0, 0))

		r := withURLParam(httptest.NewRequest("DELETE", "/rides/ghost", nil), "id", "ghost")
		w := httptest.NewRecorder()
		service.DeleteRide(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRideService_StatsSummary(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewRideService(db)

	count := func(n int) *sqlmock.Rows {
		return sqlmock.NewRows([]string{"count"}).AddRow(n)
	}

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM rides$").WillReturnRows(count(120))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM rides WHERE ride_time >= \\$1").WillReturnRows(count(6))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM rides WHERE ride_time >= \\$1").WillReturnRows(count(30))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM rides WHERE ride_time >= \\$1").WillReturnRows(count(80))
	mock.ExpectQuery("SELECT rider_level, COUNT\\(\\*\\) FROM rides GROUP BY rider_level").
		WillReturnRows(sqlmock.NewRows([]string{"rider_level", "count"}).
			AddRow(models.LevelBeginner, 40).
			AddRow(models.LevelIntermediate, 50).
			AddRow(models.LevelAdvanced, 30))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM rides WHERE ride_time >= \\$1 AND batch_type = \\$2").
		WithArgs(sqlmock.AnyArg(), models.BatchMorning).
		WillReturnRows(count(4))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM rides WHERE ride_time >= \\$1 AND batch_type = \\$2").
		WithArgs(sqlmock.AnyArg(), models.BatchEvening).
		WillReturnRows(count(2))

	r := httptest.NewRequest("GET", "/rides/stats/summary", nil)
	w := httptest.NewRecorder()
	service.StatsSummary(w, r)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Success bool `json:"success"`
		Data    struct {
			Total            int            `json:"total"`
			Today            int            `json:"today"`
			ThisWeek         int            `json:"thisWeek"`
			ThisMonth        int            `json:"thisMonth"`
			ByLevel          map[string]int `json:"byLevel"`
			TodayByBatchType map[string]int `json:"todayByBatchType"`
		} `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 120, response.Data.Total)
	assert.Equal(t, 6, response.Data.Today)
	assert.Equal(t, 30, response.Data.ThisWeek)
	assert.Equal(t, 80, response.Data.ThisMonth)
	assert.Equal(t, 50, response.Data.ByLevel[models.LevelIntermediate])
	assert.Equal(t, 4, response.Data.TodayByBatchType["morning"])
	assert.Equal(t, 2, response.Data.TodayByBatchType["evening"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
