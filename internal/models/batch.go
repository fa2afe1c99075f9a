package models

import "time"

// Batch types
const (
	BatchMorning = "morning"
	BatchEvening = "evening"
)

// Batch is a named, time-slotted group riders are assigned to. The
// (batchType, batchIndex) pair is unique per type. A batch does not hold its
// riders; membership is computed by filtering riders on the pair.
type Batch struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name" example:"Batch 2"`
	Time       string    `json:"time" db:"time_range" example:"7:30 AM - 9:00 AM"`
	BatchType  string    `json:"batchType" db:"batch_type" example:"morning"`
	BatchIndex int       `json:"batchIndex" db:"batch_index" example:"1"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}
