package query

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
)

const DefaultFailureLimit = 8

// State of a query key, derived from its failure entry.
type State int

const (
	StateHealthy    State = iota // failures below the limit
	StateSuppressed              // limit reached; fetches are disabled
	StateProbing                 // limit reached but the cooldown elapsed; one attempt allowed
)

func (s State) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateSuppressed:
		return "suppressed"
	case StateProbing:
		return "probing"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type TrackerConfig struct {
	FailureLimit int
	// Cooldown lets one probe through once it has elapsed since the last failure
	// of a suppressed key. Zero disables probing.
	Cooldown time.Duration
}

// Policy is the failure state of one query key.
type Policy struct {
	Hash        string    `json:"key"`
	Failures    int       `json:"failures"`
	LastFailure time.Time `json:"last_failure,omitempty"`
	State       State     `json:"state"`
}

func (p Policy) Suppressed() bool { return p.State == StateSuppressed }

// Tracker counts consecutive failures per query key.
// It is created once per application and shared by every call site.
type Tracker struct {
	store Store
	conf  TrackerConfig
}

func NewTracker(store Store, conf TrackerConfig) *Tracker {
	if store == nil {
		store = NewMemoryStore()
	}
	if conf.FailureLimit <= 0 {
		conf.FailureLimit = DefaultFailureLimit
	}
	return &Tracker{store: store, conf: conf}
}

func (t *Tracker) Limit() int { return t.conf.FailureLimit }

func (t *Tracker) policy(hash string, entry Entry) Policy {
	p := Policy{Hash: hash, Failures: entry.Failures, LastFailure: entry.LastFailure}
	switch {
	case entry.Failures < t.conf.FailureLimit:
		p.State = StateHealthy
	case t.conf.Cooldown > 0 && NowFunc().Sub(entry.LastFailure) >= t.conf.Cooldown:
		p.State = StateProbing
	default:
		p.State = StateSuppressed
	}
	return p
}

func (t *Tracker) Policy(ctx context.Context, hash string) (Policy, error) {
	entry, err := t.store.Get(ctx, hash)
	if err != nil {
		return Policy{Hash: hash}, errors.Wrap(err, "getting failure entry")
	}
	return t.policy(hash, entry), nil
}

func (t *Tracker) RecordFailure(ctx context.Context, hash string) (Policy, error) {
	entry, err := t.store.Incr(ctx, hash, NowFunc())
	if err != nil {
		return Policy{Hash: hash}, errors.Wrap(err, "incrementing failures")
	}
	return t.policy(hash, entry), nil
}

func (t *Tracker) RecordSuccess(ctx context.Context, hash string) error {
	return errors.Wrap(t.store.Reset(ctx, hash), "resetting failures")
}

// Reset clears the failures of a key, lifting any suppression.
func (t *Tracker) Reset(ctx context.Context, hash string) error {
	return t.RecordSuccess(ctx, hash)
}

// Failing lists keys with at least one failure, most failures first.
func (t *Tracker) Failing(ctx context.Context) ([]Policy, error) {
	snap, err := t.store.Snapshot(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing failure entries")
	}
	policies := make([]Policy, 0, len(snap))
	for hash, entry := range snap {
		if entry.Failures > 0 {
			policies = append(policies, t.policy(hash, entry))
		}
	}
	sort.Slice(policies, func(i, j int) bool {
		if policies[i].Failures == policies[j].Failures {
			return policies[i].Hash < policies[j].Hash
		}
		return policies[i].Failures > policies[j].Failures
	})
	return policies, nil
}
