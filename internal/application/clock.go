package application

import "time"

// Clock interface supaya gampang ditest
type Clock interface {
	Now() time.Time
}

// SystemClock implementasi default, pakai time.Now()
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Metrics receives use-case counters. middleware.Recorder is the process implementation.
type Metrics interface {
	AnalysisStarted()
	AnalysisFinished(err error)
	QuoteFailed()
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) AnalysisStarted()       {}
func (NopMetrics) AnalysisFinished(error) {}
func (NopMetrics) QuoteFailed()           {}
