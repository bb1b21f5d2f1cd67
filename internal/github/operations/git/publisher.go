package git

import (
	"errors"
	"fmt"
)

// Repository is the set of named git operations the Publisher drives.
// *CLI implements it.
type Repository interface {
	ConfigureIdentity(name, email string) error
	SetRemote(remoteURL string) error
	Fetch() error
	EnsureBranch(branch string) (BranchState, error)
	CommitFile(path, message string) error
	ForcePush(branch string) error
}

// Logger is the subset of the Actions logger used here.
type Logger interface {
	Infof(msg string, args ...any)
	Warningf(msg string, args ...any)
}

// PublisherConfig describes where results are committed.
type PublisherConfig struct {
	Branch    string
	RemoteURL string
	UserName  string
	UserEmail string
}

// Publisher commits one file per run to a long-lived artifact branch and
// force-pushes it. The branch is reset to the remote tip before each commit,
// so concurrent runs resolve as last writer wins.
type Publisher struct {
	repo Repository
	cfg  PublisherConfig
	log  Logger
}

// NewPublisher creates a Publisher.
func NewPublisher(repo Repository, cfg PublisherConfig, log Logger) *Publisher {
	return &Publisher{repo: repo, cfg: cfg, log: log}
}

// Branch returns the target branch name.
func (p *Publisher) Branch() string {
	return p.cfg.Branch
}

// Publish commits path (relative to the working tree) with message and
// pushes the branch. A commit with no changes is logged and the push still
// happens.
func (p *Publisher) Publish(path, message string) (BranchState, error) {
	if err := p.repo.ConfigureIdentity(p.cfg.UserName, p.cfg.UserEmail); err != nil {
		return NoRemoteBranch, err
	}
	if err := p.repo.SetRemote(p.cfg.RemoteURL); err != nil {
		return NoRemoteBranch, err
	}
	if err := p.repo.Fetch(); err != nil {
		return NoRemoteBranch, err
	}

	state, err := p.repo.EnsureBranch(p.cfg.Branch)
	if err != nil {
		return state, err
	}
	p.log.Infof("[Publish] branch %s: %s", p.cfg.Branch, state)

	if err := p.repo.CommitFile(path, message); err != nil {
		if !errors.Is(err, ErrNothingToCommit) {
			return state, err
		}
		p.log.Warningf("[Publish] nothing to commit for %s, pushing anyway", path)
	}

	if err := p.repo.ForcePush(p.cfg.Branch); err != nil {
		return state, err
	}
	p.log.Infof("[Publish] pushed %s to %s", path, p.cfg.Branch)
	return state, nil
}

// CommitMessage is the message used for a result file.
func CommitMessage(issueNumber int, fileName string) string {
	return fmt.Sprintf("Add upscaled image for issue #%d: %s", issueNumber, fileName)
}
