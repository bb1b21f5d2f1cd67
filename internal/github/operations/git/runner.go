package git

import (
	"os"
	"os/exec"
)

// Runner executes git with args inside dir and returns the combined output.
// The abstraction lets the publishing logic be tested without a git binary.
type Runner interface {
	Run(dir string, args ...string) ([]byte, error)
}

// ExecRunner is the production Runner using os/exec.
type ExecRunner struct {
	// Env is appended to the process environment.
	Env []string
}

// Run executes git using os/exec
func (r *ExecRunner) Run(dir string, args ...string) ([]byte, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = r.environ()
	return cmd.CombinedOutput()
}

// environ disables credential prompts and pins the C locale, since
// isNothingToCommit matches git's English messages.
func (r *ExecRunner) environ() []string {
	env := append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "LC_ALL=C")
	return append(env, r.Env...)
}
