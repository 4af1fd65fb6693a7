package gate

import (
	"context"
	"errors"
)

// ErrSubjectNotFound is the sentinel a Directory returns for an unknown
// subject id. Any other error is treated as infrastructure failure and
// surfaced to the caller untagged.
var ErrSubjectNotFound = errors.New("subject_not_found")

// Subject is the directory's view of a token principal.
type Subject struct {
	ID      string
	Enabled bool
	// Roles currently granted. A token whose scope claim asks for anything
	// outside this set is over-privileged.
	Roles []string
}

// HasRole reports whether the subject currently holds the named role.
func (s Subject) HasRole(role string) bool {
	for _, have := range s.Roles {
		if have == role {
			return true
		}
	}
	return false
}

// Directory resolves subject ids to live account state. Implementations
// are expected to be safe for concurrent use.
type Directory interface {
	Lookup(ctx context.Context, subjectID string) (Subject, error)
}

// StaticDirectory is a fixed subject table, handy for tools and tests.
type StaticDirectory struct {
	Subjects map[string]Subject
}

func (d *StaticDirectory) Lookup(_ context.Context, subjectID string) (Subject, error) {
	sub, ok := d.Subjects[subjectID]
	if !ok {
		return Subject{}, ErrSubjectNotFound
	}
	return sub, nil
}
