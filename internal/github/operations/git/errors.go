package git

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNothingToCommit is returned by CommitFile when the staged tree is
// identical to HEAD. It is not a publishing failure.
var ErrNothingToCommit = errors.New("nothing to commit")

// PublishError is a failed git command. Op and Output are already redacted.
type PublishError struct {
	Op     string
	Output string
	Err    error
}

func (e *PublishError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("git %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("git %s failed: %v: %s", e.Op, e.Err, out)
}

func (e *PublishError) Unwrap() error { return e.Err }

var nothingToCommitMarkers = []string{
	"nothing to commit",
	"nothing added to commit",
	"no changes added to commit",
}

func isNothingToCommit(output []byte) bool {
	out := strings.ToLower(string(output))
	for _, marker := range nothingToCommitMarkers {
		if strings.Contains(out, marker) {
			return true
		}
	}
	return false
}
