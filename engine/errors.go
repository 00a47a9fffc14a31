// ABOUTME: Engine error taxonomy
// ABOUTME: Sentinel not-found errors and typed lifecycle progression failures
package engine

import (
	"errors"
	"fmt"
)

// ErrNotFound wraps all missing-entity failures. Callers match it with
// errors.Is and receive the entity kind and id in the message.
var ErrNotFound = errors.New("not found")

func notFound(kind string, id fmt.Stringer) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}

// InvalidProgressionError reports a lifecycle transition outside the
// allowed progression graph.
type InvalidProgressionError struct {
	From string
	To   string
}

func (e *InvalidProgressionError) Error() string {
	return fmt.Sprintf("invalid lifecycle progression: %s -> %s", e.From, e.To)
}
