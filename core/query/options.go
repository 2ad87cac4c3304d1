package query

import "time"

const (
	DefaultRetry         = 3
	DefaultRetryDelayMin = time.Second
	DefaultRetryDelayMax = 30 * time.Second
)

// RetryFunc decides whether a failed attempt is retried.
// failureCount is the number of failed attempts before err.
type RetryFunc func(failureCount int, err error) bool

// RetryCount retries up to n times (n+1 attempts in total).
func RetryCount(n int) RetryFunc {
	return func(failureCount int, _ error) bool { return failureCount < n }
}

func RetryNever(int, error) bool  { return false }
func RetryAlways(int, error) bool { return true }

// ExponentialDelay returns min(base * 2^failureCount, max).
func ExponentialDelay(base, max time.Duration) func(failureCount int) time.Duration {
	return func(failureCount int) time.Duration {
		delay := base
		for i := 0; i < failureCount; i++ {
			delay *= 2
			if delay >= max {
				return max
			}
		}
		if delay > max {
			return max
		}
		return delay
	}
}

type Options struct {
	Enabled    bool
	Retry      RetryFunc
	RetryDelay func(failureCount int) time.Duration
	StaleTime  time.Duration // how long a success is served from cache; 0: always refetch
	Force      bool          // bypass failure suppression
}

type Option func(*Options)

func DefaultOptions() Options {
	return Options{
		Enabled:    true,
		Retry:      RetryCount(DefaultRetry),
		RetryDelay: ExponentialDelay(DefaultRetryDelayMin, DefaultRetryDelayMax),
	}
}

func (o Options) apply(opts []Option) Options {
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithEnabled is the caller's precondition for running the query at all.
func WithEnabled(enabled bool) Option {
	return func(o *Options) { o.Enabled = enabled }
}

// WithRetry sets the number of retries after the first failed attempt.
func WithRetry(n int) Option {
	return func(o *Options) { o.Retry = RetryCount(n) }
}

// WithRetryEnabled retries forever (true) or never (false).
func WithRetryEnabled(retry bool) Option {
	return func(o *Options) {
		if retry {
			o.Retry = RetryAlways
		} else {
			o.Retry = RetryNever
		}
	}
}

func WithRetryFunc(fn RetryFunc) Option {
	return func(o *Options) { o.Retry = fn }
}

func WithRetryDelay(fn func(failureCount int) time.Duration) Option {
	return func(o *Options) { o.RetryDelay = fn }
}

func WithStaleTime(d time.Duration) Option {
	return func(o *Options) { o.StaleTime = d }
}

// WithForce runs the query even when its key is suppressed.
func WithForce() Option {
	return func(o *Options) { o.Force = true }
}
