package pubsub

import "context"

// Broadcaster fans out ingest progress events. Publishing is best-effort:
// a failed publish never stalls or fails the decode loop.
type Broadcaster interface {
	Publish(ctx context.Context, subject string, data interface{}) error
}

// ProgressEvent is one progress update for one source within a session.
type ProgressEvent struct {
	Session string `json:"session"`
	Source  string `json:"source"` // customers|referral_codes|transactions
	Records int    `json:"records"`
	Done    bool   `json:"done"`
}
