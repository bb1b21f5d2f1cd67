package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	actions "github.com/sethvargo/go-githubactions"
	"github.com/spf13/cobra"

	"github.com/cexll/upscale/internal/config"
	"github.com/cexll/upscale/internal/github"
	"github.com/cexll/upscale/internal/github/comment"
	"github.com/cexll/upscale/internal/github/image"
	"github.com/cexll/upscale/internal/github/links"
	"github.com/cexll/upscale/internal/github/operations/git"
	"github.com/cexll/upscale/internal/resize"
	"github.com/cexll/upscale/internal/upscale"
)

var (
	loadDotEnv     = godotenv.Load
	newAction      = func() *actions.Action { return actions.New() }
	newGitRunner   = func() git.Runner { return &git.ExecRunner{} }
	newIssueClient = github.NewIssueClient
)

type options struct {
	configPath string
	workdir    string
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:           "upscale",
		Short:         "Upscale the first image of an issue and publish it to a results branch",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, newAction())
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "YAML config file (default $UPSCALE_CONFIG or "+config.DefaultFile+")")
	cmd.Flags().StringVar(&opts.workdir, "workdir", "", "repository checkout to commit into (default $UPSCALE_WORKDIR or the current directory)")
	return cmd
}

// run executes one upscale request. Every error is reported once on the
// issue when possible and then returned, which makes the process exit 1.
func run(ctx context.Context, opts options, action *actions.Action) error {
	// Load .env file (ignore error if file doesn't exist)
	_ = loadDotEnv()

	cfg, cfgErr := config.Load(opts.configPath)
	if opts.workdir != "" {
		cfg.Workdir = opts.workdir
	}

	if cfgErr == nil && cfg.NeedsAppToken() {
		action.Infof("[Auth] minting installation token for GitHub App %s", cfg.GitHubAppID)
		auth := &github.AppAuth{
			AppID:      cfg.GitHubAppID,
			PrivateKey: cfg.GitHubPrivateKey,
			APIURL:     cfg.APIURL,
		}
		token, err := auth.GetInstallationToken(ctx, cfg.Repository)
		if err != nil {
			return fail(ctx, action, cfg, nil, fmt.Errorf("GitHub App authentication failed: %w", err))
		}
		cfg.Token = token.Token
	}
	if cfg.Token != "" {
		action.AddMask(cfg.Token)
	}

	var issues upscale.Issues
	if cfg.CanNotify() {
		client, err := newIssueClient(cfg.Token, cfg.APIURL, cfg.Owner, cfg.Repo)
		if err != nil {
			return fail(ctx, action, cfg, nil, err)
		}
		issues = client
	}
	if cfgErr != nil {
		return fail(ctx, action, cfg, issues, fmt.Errorf("invalid configuration: %w", cfgErr))
	}

	gen := &links.Generator{
		ServerURL: cfg.ServerURL,
		RawURL:    cfg.RawURL,
		Owner:     cfg.Owner,
		Repo:      cfg.Repo,
	}
	remote, err := gen.AuthenticatedRemote(cfg.Token)
	if err != nil {
		return fail(ctx, action, cfg, issues, err)
	}

	downloader := image.NewDownloader(filepath.Join(cfg.Workdir, cfg.ScratchDir))
	defer func() {
		if err := downloader.Clear(); err != nil {
			action.Warningf("[Upscale] failed to remove %s: %v", downloader.Dir(), err)
		}
	}()

	resizer := resize.New(resize.Options{
		JPEGQuality:  cfg.JPEGQuality,
		WebPQuality:  cfg.WebPQuality,
		SharpenSigma: cfg.SharpenSigma,
	})

	publisher := git.NewPublisher(
		git.NewCLI(newGitRunner(), cfg.Workdir, cfg.Token),
		git.PublisherConfig{
			Branch:    cfg.Branch,
			RemoteURL: remote,
			UserName:  cfg.GitUserName,
			UserEmail: cfg.GitUserEmail,
		},
		action,
	)

	runner := upscale.NewRunner(cfg, upscale.Dependencies{
		Issues:    issues,
		Fetcher:   downloader,
		Resizer:   resizer,
		Publisher: publisher,
		Links:     gen,
		Logger:    action,
	})

	result, err := runner.Run(ctx)
	if err != nil {
		return fail(ctx, action, cfg, issues, err)
	}

	action.SetOutput("outcome", string(result.Outcome))
	action.SetOutput("scale", comment.FormatScale(result.Scale))
	action.SetOutput("url", result.RawURL)
	return nil
}

func fail(ctx context.Context, action *actions.Action, cfg *config.Config, issues upscale.Issues, err error) error {
	upscale.NewNotifier(cfg, issues, action).Failure(ctx, err)
	return err
}
