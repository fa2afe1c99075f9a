package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/equineenclave/backend/internal/models"
)

// defaultTZOffset is minutes behind UTC for day-boundary grouping (IST).
const defaultTZOffset = -330

// RideService serves the append-only ride log.
type RideService struct {
	db *sql.DB
}

func NewRideService(db *sql.DB) *RideService {
	return &RideService{db: db}
}

func scanRides(rows *sql.Rows) ([]models.Ride, error) {
	rides := []models.Ride{}
	for rows.Next() {
		var ride models.Ride
		if err := rows.Scan(&ride.ID, &ride.RideTime, &ride.RiderID, &ride.RiderName,
			&ride.RiderLevel, &ride.Horse, &ride.BatchType, &ride.BatchName, &ride.CreatedAt); err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}

// ListRides returns the ride log, newest first
// @Summary List rides
// @Description Paginated ride log with optional filters
// @Tags rides
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (default 1)"
// @Param limit query int false "Page size (default 50, max 200)"
// @Param riderLevel query string false "Filter by rider level"
// @Param riderId query string false "Filter by rider"
// @Param batchType query string false "Filter by batch type"
// @Param startDate query string false "Rides at or after this RFC3339 timestamp"
// @Param endDate query string false "Rides at or before this RFC3339 timestamp"
// @Success 200 {object} map[string]any
// @Router /rides [get]
func (s *RideService) ListRides(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	where := "WHERE 1=1"
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if level := q.Get("riderLevel"); level != "" {
		where += " AND rider_level = " + arg(level)
	}
	if riderID := q.Get("riderId"); riderID != "" {
		where += " AND rider_id = " + arg(riderID)
	}
	if batchType := q.Get("batchType"); batchType != "" {
		where += " AND batch_type = " + arg(batchType)
	}
	if start := q.Get("startDate"); start != "" {
		t, err := time.Parse(time.RFC3339, start)
		if err != nil {
			SendDomainError(w, &ValidationError{Field: "startDate", Message: "startDate must be an RFC3339 timestamp"})
			return
		}
		where += " AND ride_time >= " + arg(t)
	}
	if end := q.Get("endDate"); end != "" {
		t, err := time.Parse(time.RFC3339, end)
		if err != nil {
			SendDomainError(w, &ValidationError{Field: "endDate", Message: "endDate must be an RFC3339 timestamp"})
			return
		}
		where += " AND ride_time <= " + arg(t)
	}

	ctx := r.Context()

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rides "+where, args...).Scan(&total); err != nil {
		SendDomainError(w, err)
		return
	}

	query := fmt.Sprintf(`
		SELECT id, ride_time, rider_id, rider_name, rider_level, horse, batch_type, batch_name, created_at
		FROM rides %s
		ORDER BY ride_time DESC
		LIMIT %s OFFSET %s`, where, arg(limit), arg((page-1)*limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		SendDomainError(w, err)
		return
	}
	defer rows.Close()

	rides, err := scanRides(rows)
	if err != nil {
		SendDomainError(w, err)
		return
	}

	totalPages := (total + limit - 1) / limit
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    rides,
		"pagination": map[string]int{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": totalPages,
		},
	})
}

// GetRide returns a single ride record
// @Summary Get ride
// @Tags rides
// @Produce json
// @Security BearerAuth
// @Param id path string true "Ride ID"
// @Success 200 {object} models.Ride
// @Failure 404 {object} ErrorResponse
// @Router /rides/{id} [get]
func (s *RideService) GetRide(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var ride models.Ride
	err := s.db.QueryRowContext(r.Context(), `
		SELECT id, ride_time, rider_id, rider_name, rider_level, horse, batch_type, batch_name, created_at
		FROM rides WHERE id = $1`, id).
		Scan(&ride.ID, &ride.RideTime, &ride.RiderID, &ride.RiderName, &ride.RiderLevel,
			&ride.Horse, &ride.BatchType, &ride.BatchName, &ride.CreatedAt)
	if err == sql.ErrNoRows {
		SendDomainError(w, &NotFoundError{Resource: "ride", ID: id})
		return
	}
	if err != nil {
		SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    ride,
	})
}

// RidesByRider returns a rider's ride history, newest first
// @Summary Rides by rider
// @Tags rides
// @Produce json
// @Security BearerAuth
// @Param riderId path string true "Rider ID"
// @Success 200 {object} map[string]any
// @Router /rides/rider/{riderId} [get]
func (s *RideService) RidesByRider(w http.ResponseWriter, r *http.Request) {
	riderID := chi.URLParam(r, "riderId")

	rows, err := s.db.QueryContext(r.Context(), `
		SELECT id, ride_time, rider_id, rider_name, rider_level, horse, batch_type, batch_name, created_at
		FROM rides WHERE rider_id = $1
		ORDER BY ride_time DESC`, riderID)
	if err != nil {
		SendDomainError(w, err)
		return
	}
	defer rows.Close()

	rides, err := scanRides(rows)
	if err != nil {
		SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    rides,
		"count":   len(rides),
	})
}

// StatsSummary aggregates the ride log
// @Summary Ride statistics
// @Description Totals for today, this week and this month in the client's timezone, plus per-level and per-batch-type counts for today
// @Tags rides
// @Produce json
// @Security BearerAuth
// @Param tzOffset query int false "Client timezone offset in minutes as returned by getTimezoneOffset (default -330, IST)"
// @Success 200 {object} map[string]any
// @Router /rides/stats/summary [get]
func (s *RideService) StatsSummary(w http.ResponseWriter, r *http.Request) {
	tzOffset := defaultTZOffset
	if raw := r.URL.Query().Get("tzOffset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			tzOffset = v
		}
	}

	// tzOffset follows the JS getTimezoneOffset convention: minutes to add
	// to local time to reach UTC, so IST is -330.
	loc := time.FixedZone("client", -tzOffset*60)
	now := time.Now().In(loc)
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	weekStart := todayStart.AddDate(0, 0, -int(todayStart.Weekday()))
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)

	ctx := r.Context()
	count := func(query string, args ...any) (int, error) {
		var n int
		err := s.db.QueryRowContext(ctx, query, args...).Scan(&n)
		return n, err
	}

	total, err := count(`SELECT COUNT(*) FROM rides`)
	if err != nil {
		SendDomainError(w, err)
		return
	}
	today, err := count(`SELECT COUNT(*) FROM rides WHERE ride_time >= $1`, todayStart)
	if err != nil {
		SendDomainError(w, err)
		return
	}
	week, err := count(`SELECT COUNT(*) FROM rides WHERE ride_time >= $1`, weekStart)
	if err != nil {
		SendDomainError(w, err)
		return
	}
	month, err := count(`SELECT COUNT(*) FROM rides WHERE ride_time >= $1`, monthStart)
	if err != nil {
		SendDomainError(w, err)
		return
	}

	byLevel := map[string]int{}
	rows, err := s.db.QueryContext(ctx, `SELECT rider_level, COUNT(*) FROM rides GROUP BY rider_level`)
	if err != nil {
		SendDomainError(w, err)
		return
	}
	defer rows.Close()
	for rows.Next() {
		var level string
		var n int
		if err := rows.Scan(&level, &n); err != nil {
			SendDomainError(w, err)
			return
		}
		byLevel[level] = n
	}
	if err := rows.Err(); err != nil {
		SendDomainError(w, err)
		return
	}

	todayMorning, err := count(`SELECT COUNT(*) FROM rides WHERE ride_time >= $1 AND batch_type = $2`,
		todayStart, models.BatchMorning)
	if err != nil {
		SendDomainError(w, err)
		return
	}
	todayEvening, err := count(`SELECT COUNT(*) FROM rides WHERE ride_time >= $1 AND batch_type = $2`,
		todayStart, models.BatchEvening)
	if err != nil {
		SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data": map[string]any{
			"total":     total,
			"today":     today,
			"thisWeek":  week,
			"thisMonth": month,
			"byLevel":   byLevel,
			"todayByBatchType": map[string]int{
				"morning": todayMorning,
				"evening": todayEvening,
			},
		},
	})
}

// DeleteRide removes a single ride log record
// @Summary Delete ride
// @Description Administrative correction of the ride log; the rider's ledger is not touched
// @Tags rides
// @Produce json
// @Security BearerAuth
// @Param id path string true "Ride ID"
// @Success 200 {object} map[string]any
// @Failure 404 {object} ErrorResponse
// @Router /rides/{id} [delete]
func (s *RideService) DeleteRide(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := s.db.ExecContext(r.Context(), `DELETE FROM rides WHERE id = $1`, id)
	if err != nil {
		SendDomainError(w, err)
		return
	}
	n, err := result.RowsAffected()
	if err != nil {
		SendDomainError(w, err)
		return
	}
	if n == 0 {
		SendDomainError(w, &NotFoundError{Resource: "ride", ID: id})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"message": "Ride deleted successfully",
	})
}
