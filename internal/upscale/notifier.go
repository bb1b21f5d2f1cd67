package upscale

import (
	"context"

	"github.com/cexll/upscale/internal/config"
	"github.com/cexll/upscale/internal/github"
	"github.com/cexll/upscale/internal/github/comment"
)

// Notifier reports a failed run on the triggering issue.
type Notifier struct {
	cfg    *config.Config
	issues Issues
	log    Logger
}

// NewNotifier creates a Notifier. cfg and issues may be nil when the run
// failed before they could be built; the error is then only logged.
func NewNotifier(cfg *config.Config, issues Issues, log Logger) *Notifier {
	return &Notifier{cfg: cfg, issues: issues, log: log}
}

// Failure logs err and posts a single error comment when the issue is known.
// The message is redacted and truncated. A failure to post is logged only.
func (n *Notifier) Failure(ctx context.Context, err error) {
	if err == nil {
		return
	}

	var secrets []string
	if n.cfg != nil {
		secrets = append(secrets, n.cfg.Token, n.cfg.GitHubPrivateKey)
	}
	msg := github.Redact(err.Error(), secrets...)
	n.log.Errorf("[Upscale] %s", msg)

	if n.issues == nil || !n.cfg.CanNotify() {
		n.log.Warningf("[Upscale] issue unknown, error not reported")
		return
	}
	if cerr := n.issues.CreateComment(ctx, n.cfg.IssueNumber, comment.FormatError(msg)); cerr != nil {
		n.log.Warningf("[Upscale] failed to post error comment: %s", github.Redact(cerr.Error(), secrets...))
	}
}
