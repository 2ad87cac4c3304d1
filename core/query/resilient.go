package query

import (
	"context"
	"fmt"

	"github.com/trezcool/masomo-lms/core"
)

type ResilientDeps struct {
	Client   *Client
	Tracker  *Tracker
	Logger   core.Logger // optional
	Observer Observer    // optional
}

// Resilient wraps a Client with per-key failure tracking.
// Once a key has failed Tracker.Limit() times in a row its fetches are
// disabled, and stay disabled until a success resets the key.
type Resilient struct {
	client   *Client
	tracker  *Tracker
	logger   core.Logger
	observer Observer
}

func NewResilient(deps ResilientDeps) *Resilient {
	r := &Resilient{
		client:   deps.Client,
		tracker:  deps.Tracker,
		logger:   deps.Logger,
		observer: deps.Observer,
	}
	if r.client == nil {
		r.client = NewClient()
	}
	if r.tracker == nil {
		r.tracker = NewTracker(nil, TrackerConfig{})
	}
	if r.logger == nil {
		r.logger = nopLogger{}
	}
	if r.observer == nil {
		r.observer = nopObserver{}
	}
	return r
}

func (r *Resilient) Client() *Client   { return r.client }
func (r *Resilient) Tracker() *Tracker { return r.tracker }

// Execute fetches key through the Client, enabling it and granting retries
// only while the key is not suppressed. Errors returned by fn reach the
// Result unchanged.
func (r *Resilient) Execute(ctx context.Context, key Key, fn Fetcher, opts ...Option) Result {
	hash, err := key.Hash()
	if err != nil {
		return Result{Status: StatusError, Err: err}
	}

	o := r.client.Options(opts...)
	policy := r.policy(ctx, hash)
	if !o.Force {
		switch policy.State {
		case StateSuppressed:
			if o.Enabled {
				r.observer.QuerySuppressed(key)
			}
			o.Enabled = false
			o.Retry = RetryNever
		case StateProbing:
			o.Retry = RetryNever
		}
	}
	return r.client.fetch(ctx, hash, key, r.track(key, hash, fn), o)
}

// Policy reports the failure state of key without fetching.
func (r *Resilient) Policy(ctx context.Context, key Key) (Policy, error) {
	hash, err := key.Hash()
	if err != nil {
		return Policy{}, err
	}
	return r.tracker.Policy(ctx, hash)
}

// Reset clears the failures of key.
func (r *Resilient) Reset(ctx context.Context, key Key) error {
	hash, err := key.Hash()
	if err != nil {
		return err
	}
	return r.tracker.Reset(ctx, hash)
}

// policy never fails: an unreadable entry counts as healthy.
func (r *Resilient) policy(ctx context.Context, hash string) Policy {
	policy, err := r.tracker.Policy(ctx, hash)
	if err != nil {
		r.logger.Warn(fmt.Sprintf("query %s: reading failures", hash), err)
		return Policy{Hash: hash, State: StateHealthy}
	}
	return policy
}

func (r *Resilient) track(key Key, hash string, fn Fetcher) Fetcher {
	return func(ctx context.Context) (interface{}, error) {
		data, err := fn(ctx)
		if err != nil {
			policy, tErr := r.tracker.RecordFailure(ctx, hash)
			if tErr != nil {
				r.logger.Warn(fmt.Sprintf("query %s: recording failure", hash), tErr)
				return nil, err
			}
			r.observer.QueryFailed(key, policy.Failures)
			if policy.Failures == r.tracker.Limit() {
				r.logger.Warn(fmt.Sprintf("query %s suppressed after %d consecutive failures", hash, policy.Failures), err)
			}
			return nil, err
		}
		if tErr := r.tracker.RecordSuccess(ctx, hash); tErr != nil {
			r.logger.Warn(fmt.Sprintf("query %s: recording success", hash), tErr)
		}
		r.observer.QuerySucceeded(key)
		return data, nil
	}
}
