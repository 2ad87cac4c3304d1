package query

import (
	"context"
	"time"
)

type Status string

const (
	StatusIdle    Status = "idle" // never fetched
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Fetcher produces the data behind a query.
type Fetcher func(ctx context.Context) (interface{}, error)

type Result struct {
	Status       Status
	Data         interface{}
	Err          error
	FailureCount int // failed attempts during the last fetch
	UpdatedAt    time.Time

	// IsDisabled is set when this call did not attempt a fetch;
	// Status, Data and Err then come from the cache.
	IsDisabled bool
}

func (r Result) IsSuccess() bool { return r.Status == StatusSuccess }
func (r Result) IsError() bool   { return r.Status == StatusError }
func (r Result) IsIdle() bool    { return r.Status == StatusIdle }
