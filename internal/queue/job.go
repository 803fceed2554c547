package queue

import (
	"context"
	"encoding/json"
	"time"
)

// Queue names used by the order pipeline.
const (
	Default    = "default"
	Orders     = "orders"
	BulkOrders = "bulk-orders"
	PayPal     = "paypal"
)

// Job is a unit of queued work. Payload holds a JSON reference to the data the
// handler re-reads, never shared in-memory state.
type Job struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	Queue      string          `json:"queue"`
	Payload    json.RawMessage `json:"payload"`
	Attempt    int             `json:"attempt"`
	UniqueID   string          `json:"unique_id,omitempty"`
	Tags       []string        `json:"tags,omitempty"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// Decode unmarshals the job payload into v.
func (j *Job) Decode(v any) error {
	return json.Unmarshal(j.Payload, v)
}

// Failure describes why a job ran out of attempts.
type Failure struct {
	Cause    error
	Attempts int
	TimedOut bool
}

// Handler executes jobs of one kind.
//
// Handle is called once per attempt. Returning an error schedules a retry while
// attempts remain; wrap it with backoff.Permanent to stop retrying. Failed is
// called exactly once when the job is exhausted and never after a successful attempt.
type Handler interface {
	Handle(ctx context.Context, job *Job) error
	Failed(ctx context.Context, job *Job, failure Failure)
}

// Dispatcher enqueues jobs.
type Dispatcher interface {
	Dispatch(ctx context.Context, kind string, payload any, opts ...DispatchOption) (string, error)
}

// DispatchOption customizes a single dispatch.
type DispatchOption func(*Job)

// WithUniqueID rejects the dispatch while another job with the same id is queued
// or running, for at most the policy's UniqueFor window.
func WithUniqueID(id string) DispatchOption {
	return func(j *Job) {
		j.UniqueID = id
	}
}

// WithTags attaches searchable labels to the job and its log records.
func WithTags(tags ...string) DispatchOption {
	return func(j *Job) {
		j.Tags = append(j.Tags, tags...)
	}
}
