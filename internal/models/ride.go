package models

import "time"

// Ride is an append-only log record of a single check-in event, kept
// independently of the rider's ledger for reporting. It snapshots the rider's
// level and resolved batch name at check-in time and is never re-numbered.
type Ride struct {
	ID         string    `json:"id" db:"id"`
	RideTime   time.Time `json:"rideTime" db:"ride_time"`
	RiderID    string    `json:"riderId" db:"rider_id"`
	RiderName  string    `json:"riderName" db:"rider_name"`
	RiderLevel string    `json:"riderLevel" db:"rider_level"`
	Horse      string    `json:"horse" db:"horse"`
	BatchType  string    `json:"batchType" db:"batch_type"`
	BatchName  string    `json:"batchName" db:"batch_name"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}
