package services

import (
	"encoding/json"
	"log"
	"time"
)

type AuditEvent struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	RiderID   string    `json:"rider_id"`
	Status    string    `json:"status"`
	Details   any       `json:"details"`
}

// AuditLogger emits structured events for every ledger mutation.
type AuditLogger struct{}

func NewAuditLogger() *AuditLogger {
	return &AuditLogger{}
}

func (a *AuditLogger) LogCheckin(riderID, horse, batchName string, rideNumber int) {
	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: "CHECKIN",
		RiderID:   riderID,
		Status:    "SUCCESS",
		Details: map[string]any{
			"horse":       horse,
			"batch_name":  batchName,
			"ride_number": rideNumber,
		},
	}
	a.log(event)
}

func (a *AuditLogger) LogSettlement(riderID string, settled, remaining int) {
	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: "SETTLEMENT",
		RiderID:   riderID,
		Status:    "SUCCESS",
		Details: map[string]int{
			"settled_classes":  settled,
			"remaining_unpaid": remaining,
		},
	}
	a.log(event)
}

func (a *AuditLogger) LogMove(riderID, fromType string, fromIndex int, toType string, toIndex int) {
	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: "BATCH_MOVE",
		RiderID:   riderID,
		Status:    "SUCCESS",
		Details: map[string]any{
			"from_type":  fromType,
			"from_index": fromIndex,
			"to_type":    toType,
			"to_index":   toIndex,
		},
	}
	a.log(event)
}

func (a *AuditLogger) LogError(riderID, operation string, err error) {
	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: operation,
		RiderID:   riderID,
		Status:    "FAILED",
		Details:   map[string]string{"error": err.Error()},
	}
	a.log(event)
}

func (a *AuditLogger) log(event AuditEvent) {
	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}
