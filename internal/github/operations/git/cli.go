package git

import (
	"strings"

	"github.com/cexll/upscale/internal/github"
)

// BranchState is the remote state of the results branch before a commit.
type BranchState int

const (
	NoRemoteBranch BranchState = iota
	RemoteBranchExists
)

func (s BranchState) String() string {
	switch s {
	case NoRemoteBranch:
		return "NoRemoteBranch"
	case RemoteBranchExists:
		return "RemoteBranchExists"
	default:
		return "Unknown"
	}
}

// CLI runs named git operations in one working tree.
type CLI struct {
	runner  Runner
	dir     string
	secrets []string
}

// NewCLI creates a CLI for the checkout at dir. secrets are scrubbed from
// every PublishError it returns.
func NewCLI(runner Runner, dir string, secrets ...string) *CLI {
	return &CLI{runner: runner, dir: dir, secrets: secrets}
}

// Fetch updates remote-tracking refs from origin.
func (c *CLI) Fetch() error {
	_, err := c.run("fetch", "origin")
	return err
}

// EnsureBranch checks out branch, resetting it to origin/<branch> when the
// remote has it. Otherwise it starts an orphan branch with an empty index;
// untracked files in the working tree are kept.
func (c *CLI) EnsureBranch(branch string) (BranchState, error) {
	if _, err := c.run("rev-parse", "--verify", "--quiet", "origin/"+branch); err != nil {
		if _, err := c.run("checkout", "--orphan", branch); err != nil {
			return NoRemoteBranch, err
		}
		// fails on an already empty index
		_, _ = c.run("rm", "-rf", "--quiet", ".")
		return NoRemoteBranch, nil
	}

	if _, err := c.run("checkout", "-B", branch, "origin/"+branch); err != nil {
		return RemoteBranchExists, err
	}
	return RemoteBranchExists, nil
}

// CommitFile stages path and commits it. ErrNothingToCommit is returned when
// git reports there is nothing new; every other failure is a *PublishError.
func (c *CLI) CommitFile(path, message string) error {
	if _, err := c.run("add", "--", path); err != nil {
		return err
	}

	out, err := c.runner.Run(c.dir, "commit", "-m", message)
	if err != nil {
		if isNothingToCommit(out) {
			return ErrNothingToCommit
		}
		return c.publishError([]string{"commit", "-m", message}, out, err)
	}
	return nil
}

// ForcePush overwrites origin/<branch> with the local branch.
func (c *CLI) ForcePush(branch string) error {
	_, err := c.run("push", "origin", branch, "--force")
	return err
}

func (c *CLI) run(args ...string) ([]byte, error) {
	out, err := c.runner.Run(c.dir, args...)
	if err != nil {
		return out, c.publishError(args, out, err)
	}
	return out, nil
}

func (c *CLI) publishError(args []string, out []byte, err error) *PublishError {
	return &PublishError{
		Op:     github.Redact(strings.Join(args, " "), c.secrets...),
		Output: github.Redact(string(out), c.secrets...),
		Err:    err,
	}
}
