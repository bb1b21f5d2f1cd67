// Package upscale runs one upscale request end to end: read the issue, fetch
// the first image, resize it, publish it to the results branch and reply.
package upscale

import (
	"context"
	"path"
	"path/filepath"
	"time"

	"github.com/cexll/upscale/internal/command"
	"github.com/cexll/upscale/internal/config"
	"github.com/cexll/upscale/internal/github/comment"
	"github.com/cexll/upscale/internal/github/image"
	"github.com/cexll/upscale/internal/github/links"
	"github.com/cexll/upscale/internal/github/operations/git"
	"github.com/cexll/upscale/internal/resize"
)

// Issues reads the triggering issue and replies on it.
type Issues interface {
	IssueBody(ctx context.Context, number int) (string, error)
	CreateComment(ctx context.Context, number int, body string) error
}

// Fetcher downloads an image and returns the local path.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Resizer scales an image file into output.
type Resizer interface {
	Resize(input, output string, scale float64) (*resize.Result, error)
}

// Publisher commits a file to the results branch and pushes it.
type Publisher interface {
	Publish(path, message string) (git.BranchState, error)
	Branch() string
}

// Logger is the subset of the Actions logger used by the runner.
type Logger interface {
	Infof(msg string, args ...any)
	Warningf(msg string, args ...any)
	Errorf(msg string, args ...any)
}

// Outcome is how a successful run ended.
type Outcome string

const (
	OutcomeNoImage   Outcome = "no_image"
	OutcomePublished Outcome = "published"
)

// Result describes a completed run.
type Result struct {
	Outcome     Outcome
	Scale       float64
	ImageURL    string
	OutputPath  string // path inside the repository, slash separated
	RawURL      string
	BranchState git.BranchState
	Image       *resize.Result
}

// Dependencies are the collaborators of a Runner.
type Dependencies struct {
	Issues    Issues
	Fetcher   Fetcher
	Resizer   Resizer
	Publisher Publisher
	Links     *links.Generator
	Logger    Logger
	Clock     func() time.Time
}

// Runner executes the pipeline for one issue.
type Runner struct {
	cfg       *config.Config
	issues    Issues
	fetcher   Fetcher
	resizer   Resizer
	publisher Publisher
	links     *links.Generator
	log       Logger
	now       func() time.Time
}

// NewRunner creates a Runner. A nil Clock means time.Now.
func NewRunner(cfg *config.Config, deps Dependencies) *Runner {
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &Runner{
		cfg:       cfg,
		issues:    deps.Issues,
		fetcher:   deps.Fetcher,
		resizer:   deps.Resizer,
		publisher: deps.Publisher,
		links:     deps.Links,
		log:       deps.Logger,
		now:       now,
	}
}

// Run processes the issue named by the config. An issue without an image is
// answered with a warning comment and is not an error. Any returned error
// has already stopped the pipeline; reporting it is left to the caller.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	cfg := r.cfg
	number := cfg.IssueNumber

	scale := command.ParseScale(cfg.CommentBody, cfg.Trigger, cfg.DefaultScale)
	if cfg.CommentBody != "" && !command.HasTrigger(cfg.CommentBody, cfg.Trigger) {
		r.log.Warningf("[Upscale] comment does not mention %s, using scale %s", cfg.Trigger, comment.FormatScale(scale))
	}
	r.log.Infof("[Upscale] %s#%d: scale %s", cfg.Repository, number, comment.FormatScale(scale))

	body, err := r.issues.IssueBody(ctx, number)
	if err != nil {
		return nil, err
	}

	imageURL, ok := image.FirstImageURL(body)
	if !ok {
		r.log.Warningf("[Upscale] no image found in issue #%d", number)
		if err := r.issues.CreateComment(ctx, number, comment.FormatNoImage()); err != nil {
			return nil, err
		}
		return &Result{Outcome: OutcomeNoImage, Scale: scale}, nil
	}
	if urls := image.ExtractImageURLs(body); len(urls) > 1 {
		r.log.Infof("[Upscale] issue has %d images, using the first", len(urls))
	}
	r.log.Infof("[Upscale] image: %s", imageURL)

	input, err := r.fetcher.Fetch(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	name := resize.OutputName(number, r.now(), image.Extension(imageURL))
	repoPath := path.Join(filepath.ToSlash(cfg.ResultsDir), name)
	output := filepath.Join(cfg.Workdir, filepath.FromSlash(repoPath))

	img, err := r.resizer.Resize(input, output, scale)
	if err != nil {
		return nil, err
	}
	r.log.Infof("[Upscale] resized %dx%d -> %dx%d (%s)", img.SourceWidth, img.SourceHeight, img.Width, img.Height, img.Format)

	state, err := r.publisher.Publish(repoPath, git.CommitMessage(number, name))
	if err != nil {
		return nil, err
	}

	branch := r.publisher.Branch()
	rawURL := r.links.RawFile(branch, repoPath)
	reply := comment.FormatSuccess(scale, branch, r.links.Branch(branch), rawURL)
	if err := r.issues.CreateComment(ctx, number, reply); err != nil {
		return nil, err
	}
	r.log.Infof("[Upscale] published %s", rawURL)

	return &Result{
		Outcome:     OutcomePublished,
		Scale:       scale,
		ImageURL:    imageURL,
		OutputPath:  repoPath,
		RawURL:      rawURL,
		BranchState: state,
		Image:       img,
	}, nil
}
