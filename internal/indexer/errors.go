package indexer

import "fmt"

// ConsistencyError reports a lifecycle event referencing an entity the
// indexer never persisted. It signals a bug in indexing or contract logic
// and must never be silently skipped.
type ConsistencyError struct {
	Kind string // "request" or "loan"
	ID   string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%s %s not found: event log references an entity the indexer never saw", e.Kind, e.ID)
}
