package query

// Observer is notified of query outcomes, eg. to export metrics.
type Observer interface {
	QueryFailed(key Key, failures int)
	QuerySucceeded(key Key)
	// QuerySuppressed is called when a fetch was skipped because its key is suppressed.
	QuerySuppressed(key Key)
}

type nopObserver struct{}

func (nopObserver) QueryFailed(Key, int) {}
func (nopObserver) QuerySucceeded(Key)   {}
func (nopObserver) QuerySuppressed(Key)  {}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}
