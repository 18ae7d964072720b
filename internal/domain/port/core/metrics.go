package core

// Metrics records operational events. The prometheus adapter implements this;
// tests use the noop recorder
type Metrics interface {
	// RecordMirrorFailure counts a failed best-effort write to the secondary store
	RecordMirrorFailure(operation string)
	// RecordSecondaryRead counts a read served by the secondary store after an
	// authoritative miss; each one signals drift needing backfill
	RecordSecondaryRead(kind string)
	// RecordResourceResaved counts a resource rewritten by the resave pipeline
	RecordResourceResaved(resourceType string)
	// RecordResourceUnchanged counts a resource the resave pipeline left untouched
	RecordResourceUnchanged(resourceType string)
	// RecordLockOutcome counts a lock workflow action by its outcome
	RecordLockOutcome(action, outcome string)
}

// NoopMetrics discards every event
type NoopMetrics struct{}

func (NoopMetrics) RecordMirrorFailure(string)       {}
func (NoopMetrics) RecordSecondaryRead(string)       {}
func (NoopMetrics) RecordResourceResaved(string)     {}
func (NoopMetrics) RecordResourceUnchanged(string)   {}
func (NoopMetrics) RecordLockOutcome(string, string) {}
