package enrollment

import (
	"context"
	"strings"
	"sync"

	id "vidgate/pkg/domain"
)

type key struct {
	courseID id.CourseID
	email    string
}

// InMemoryOracle is a fake entitlement authority for tests and development.
type InMemoryOracle struct {
	mu      sync.RWMutex
	records map[key]Enrollment

	// Err, when set, is returned by every lookup. Simulates an unreachable
	// oracle in fail-closed tests.
	Err error
}

func NewInMemory() *InMemoryOracle {
	return &InMemoryOracle{records: make(map[key]Enrollment)}
}

// Put seeds an enrollment. Test helper.
func (o *InMemoryOracle) Put(e Enrollment) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records[key{courseID: e.CourseID, email: normalizeEmail(e.Email)}] = e
}

func (o *InMemoryOracle) Lookup(_ context.Context, courseID id.CourseID, email string) (*Enrollment, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.Err != nil {
		return nil, o.Err
	}
	e, ok := o.records[key{courseID: courseID, email: normalizeEmail(email)}]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
