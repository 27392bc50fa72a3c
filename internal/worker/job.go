package worker

import (
	"time"

	"github.com/google/uuid"
)

// Trigger records why a pass was requested.
type Trigger string

const (
	TriggerStart  Trigger = "start"
	TriggerTimer  Trigger = "timer"
	TriggerManual Trigger = "manual"
)

// Job represents a backup pass submitted to the worker.
type Job struct {
	ID        uuid.UUID
	Trigger   Trigger
	Timestamp time.Time
}

// NewJob creates a job with a fresh ID.
func NewJob(trigger Trigger, at time.Time) Job {
	return Job{ID: uuid.New(), Trigger: trigger, Timestamp: at}
}
