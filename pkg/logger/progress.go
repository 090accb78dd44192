package logger

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// ProgressTracker counts processed items of a long-running operation and
// logs the running rate at most once per interval. Each processed item can
// be tagged with an outcome, so a scan reports how many messages were
// accepted, rejected, skipped as duplicates, or excluded.
type ProgressTracker struct {
	mu          sync.Mutex
	logger      Logger
	operation   string
	total       int64
	current     int64
	outcomes    map[string]int64
	startTime   time.Time
	lastLogTime time.Time
	logInterval time.Duration
	now         func() time.Time
}

// ProgressConfig configures a ProgressTracker
type ProgressConfig struct {
	Operation   string
	Total       int64
	LogInterval time.Duration
	Logger      Logger
}

// NewProgressTracker starts tracking an operation
func NewProgressTracker(config ProgressConfig) *ProgressTracker {
	if config.Logger == nil {
		config.Logger = GetGlobalLogger()
	}
	if config.LogInterval == 0 {
		config.LogInterval = 5 * time.Second
	}

	start := time.Now()
	p := &ProgressTracker{
		logger:      config.Logger.WithComponent("progress"),
		operation:   config.Operation,
		total:       config.Total,
		outcomes:    make(map[string]int64),
		startTime:   start,
		lastLogTime: start,
		logInterval: config.LogInterval,
		now:         time.Now,
	}

	p.logger.WithFields(Fields{
		"operation": config.Operation,
		"total":     config.Total,
	}).Debug("Starting operation")

	return p
}

// Increment counts one item
func (p *ProgressTracker) Increment() {
	p.Record("")
}

// Record counts one item with outcome. An empty outcome is counted only in
// the total.
func (p *ProgressTracker) Record(outcome string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current++
	if outcome != "" {
		p.outcomes[outcome]++
	}

	if now := p.now(); now.Sub(p.lastLogTime) >= p.logInterval {
		p.logger.WithFields(p.fields(now)).Info("Progress update")
		p.lastLogTime = now
	}
}

// Complete logs the final statistics and returns them
func (p *ProgressTracker) Complete(err error) ProgressStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	fields := p.fields(p.now())
	if err != nil {
		p.logger.WithError(err).WithFields(fields).Error("Operation completed with error")
	} else {
		p.logger.WithFields(fields).Info("Operation completed")
	}

	return p.stats()
}

// Stats returns a snapshot of the progress
func (p *ProgressTracker) Stats() ProgressStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats()
}

func (p *ProgressTracker) stats() ProgressStats {
	duration := p.now().Sub(p.startTime)

	var rate float64
	if duration.Seconds() > 0 {
		rate = float64(p.current) / duration.Seconds()
	}

	var percentage float64
	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100
	}

	outcomes := make(map[string]int64, len(p.outcomes))
	for k, v := range p.outcomes {
		outcomes[k] = v
	}

	return ProgressStats{
		Operation:  p.operation,
		Total:      p.total,
		Current:    p.current,
		Outcomes:   outcomes,
		Percentage: percentage,
		Duration:   duration,
		Rate:       rate,
	}
}

func (p *ProgressTracker) fields(now time.Time) Fields {
	fields := Fields{
		"operation": p.operation,
		"processed": p.current,
		"elapsed":   now.Sub(p.startTime).Round(time.Millisecond).String(),
	}
	if p.total > 0 {
		fields["total"] = p.total
		fields["percentage"] = fmt.Sprintf("%.1f%%", float64(p.current)/float64(p.total)*100)
	}
	for outcome, n := range p.outcomes {
		fields[outcome] = n
	}
	return fields
}

// ProgressStats is a snapshot of a ProgressTracker
type ProgressStats struct {
	Operation  string           `json:"operation"`
	Total      int64            `json:"total"`
	Current    int64            `json:"current"`
	Outcomes   map[string]int64 `json:"outcomes,omitempty"`
	Percentage float64          `json:"percentage"`
	Duration   time.Duration    `json:"duration"`
	Rate       float64          `json:"rate"`
}

// String renders the snapshot on one line, outcomes sorted by name
func (ps ProgressStats) String() string {
	s := fmt.Sprintf("%s: %d processed", ps.Operation, ps.Current)
	if ps.Total > 0 {
		s = fmt.Sprintf("%s: %d/%d (%.1f%%)", ps.Operation, ps.Current, ps.Total, ps.Percentage)
	}

	names := make([]string, 0, len(ps.Outcomes))
	for name := range ps.Outcomes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s += fmt.Sprintf(", %s=%d", name, ps.Outcomes[name])
	}

	return s
}

// TimedOperation runs fn and logs how long it took and whether it failed
func TimedOperation(operation string, logger Logger, fn func() error) error {
	if logger == nil {
		logger = GetGlobalLogger()
	}

	start := time.Now()
	err := fn()

	entry := logger.WithFields(Fields{
		"operation": operation,
		"duration":  time.Since(start).String(),
	})
	if err != nil {
		entry.WithError(err).Error("Operation failed")
	} else {
		entry.Debug("Operation completed")
	}

	return err
}
