package models

import "time"

// Rider skill levels
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// CheckinEntry is a single ledger entry on a rider's record. Within a rider's
// ledger rideNumber values are contiguous starting at 1 in chronological order.
type CheckinEntry struct {
	RideNumber  int       `json:"rideNumber" db:"ride_number"`
	CheckinTime time.Time `json:"checkinTime" db:"checkin_time"`
	Horse       string    `json:"horse" db:"horse"`
	Paid        bool      `json:"paid" db:"paid"`
}

type Rider struct {
	ID         string         `json:"id" db:"id"`
	Name       string         `json:"name" db:"name" example:"Aanya Sharma"`
	Age        int            `json:"age" db:"age" example:"14"`
	Phone      string         `json:"phone" db:"phone" example:"+91 98765 43210"`
	Email      string         `json:"email" db:"email" example:"aanya.s@email.com"`
	Level      string         `json:"level" db:"level" example:"intermediate"`
	JoinedDate string         `json:"joinedDate" db:"joined_date" example:"2024-03-15"`
	FeesPaid   bool           `json:"feesPaid" db:"fees_paid"`
	BatchType  string         `json:"batchType" db:"batch_type" example:"morning"`
	BatchIndex int            `json:"batchIndex" db:"batch_index" example:"0"`
	Checkins   []CheckinEntry `json:"checkins"`
	Version    int            `json:"-" db:"version"` // for optimistic locking
	CreatedAt  time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time      `json:"updatedAt" db:"updated_at"`

	// Derived fields populated when formatting responses
	ActiveClassesCount int    `json:"activeClassesCount"`
	BatchName          string `json:"batchName,omitempty"`
	BatchTime          string `json:"batchTime,omitempty"`
}

// ActiveClasses counts unpaid checkins. This, not a stored counter, is the
// source of truth for payment-due status.
func (r *Rider) ActiveClasses() int {
	count := 0
	for _, c := range r.Checkins {
		if !c.Paid {
			count++
		}
	}
	return count
}
