package domain

import "context"

// StartResult reports how a start-processing request was handled. Exactly one
// of the fields is meaningful: Accepted starts a background run,
// AlreadyRunning/AlreadyDone are idempotent successes, InvalidRows > 0 is a
// rejection that names the number of rows still blocking the transition.
type StartResult struct {
	Accepted       bool  `json:"accepted"`
	AlreadyRunning bool  `json:"already_running,omitempty"`
	AlreadyDone    bool  `json:"already_done,omitempty"`
	InvalidRows    int64 `json:"invalid_rows,omitempty"`
}

type Service interface {
	Start(ctx context.Context, uploadID, accountID string) (*StartResult, error)
}
