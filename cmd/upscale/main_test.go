package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	actions "github.com/sethvargo/go-githubactions"

	"github.com/cexll/upscale/internal/config"
	"github.com/cexll/upscale/internal/github/operations/git"
	ghtest "github.com/cexll/upscale/internal/github/testing"
)

// fakeGit records git invocations. The results branch never exists on the
// remote, so every run starts an orphan branch.
type fakeGit struct {
	calls []string
}

func (f *fakeGit) Run(dir string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, strings.Join(args, " "))
	if len(args) > 0 && args[0] == "rev-parse" {
		return nil, errors.New("exit status 1")
	}
	return nil, nil
}

func (f *fakeGit) contains(call string) bool {
	for _, c := range f.calls {
		if c == call {
			return true
		}
	}
	return false
}

var upscaleEnv = []string{
	"GITHUB_TOKEN", "GITHUB_APP_ID", "GITHUB_PRIVATE_KEY", "COMMENT_BODY",
	"ISSUE_NUMBER", "REPOSITORY", "GITHUB_REPOSITORY", "GITHUB_API_URL",
	"GITHUB_SERVER_URL", "UPSCALE_RAW_BASE_URL", "UPSCALE_WORKDIR", "UPSCALE_CONFIG",
	"GITHUB_OUTPUT",
}

// setup isolates the environment, points the run at srv and swaps git for a
// recorder. It returns the workdir, the git recorder and the Actions log.
func setup(t *testing.T, srv *ghtest.Server) (string, *fakeGit, *actions.Action, *bytes.Buffer) {
	t.Helper()
	for _, key := range upscaleEnv {
		t.Setenv(key, "")
	}
	t.Setenv("GITHUB_TOKEN", "ghp_maintesttoken")
	t.Setenv("ISSUE_NUMBER", "5")
	t.Setenv("REPOSITORY", "octo/pics")
	t.Setenv("GITHUB_API_URL", srv.URL)

	origDotEnv, origGit := loadDotEnv, newGitRunner
	t.Cleanup(func() { loadDotEnv, newGitRunner = origDotEnv, origGit })

	fg := &fakeGit{}
	loadDotEnv = func(...string) error { return nil }
	newGitRunner = func() git.Runner { return fg }

	var buf bytes.Buffer
	return t.TempDir(), fg, actions.New(actions.WithWriter(&buf)), &buf
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 255, G: uint8(40 * x), B: uint8(60 * y), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestRun_PublishesUpscaledImage(t *testing.T) {
	srv := ghtest.NewServer()
	defer srv.Close()
	workdir, fg, action, logs := setup(t, srv)

	outputs := filepath.Join(t.TempDir(), "outputs")
	t.Setenv("GITHUB_OUTPUT", outputs)
	t.Setenv("COMMENT_BODY", "/upscale 2")

	imageURL := srv.SetImage("cat.png", pngBytes(t, 4, 3))
	srv.SetIssueBody(5, "look ![cat]("+imageURL+")")

	if err := run(context.Background(), options{workdir: workdir}, action); err != nil {
		t.Fatalf("run() error: %v", err)
	}

	comments := srv.Comments()
	if len(comments) != 1 {
		t.Fatalf("posted %d comments, want 1", len(comments))
	}
	body := comments[0].Body
	if !strings.Contains(body, "scale 2x") ||
		!strings.Contains(body, "https://raw.githubusercontent.com/octo/pics/upscaled-results/results/upscaled-issue5-") {
		t.Errorf("success comment = %q", body)
	}
	if comments[0].Auth != "Bearer ghp_maintesttoken" {
		t.Errorf("comment Authorization = %q", comments[0].Auth)
	}

	for _, call := range []string{
		"config user.name github-actions[bot]",
		"fetch origin",
		"checkout --orphan upscaled-results",
		"push origin upscaled-results --force",
	} {
		if !fg.contains(call) {
			t.Errorf("git %q not run; calls: %v", call, fg.calls)
		}
	}

	matches, _ := filepath.Glob(filepath.Join(workdir, "results", "upscaled-issue5-*.png"))
	if len(matches) != 1 {
		t.Fatalf("found %d result files, want 1", len(matches))
	}
	f, err := os.Open(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if format != "png" || cfg.Width != 8 || cfg.Height != 6 {
		t.Errorf("result = %s %dx%d, want png 8x6", format, cfg.Width, cfg.Height)
	}

	if _, err := os.Stat(filepath.Join(workdir, "tmp_upscale")); !os.IsNotExist(err) {
		t.Errorf("scratch dir not removed: %v", err)
	}

	data, err := os.ReadFile(outputs)
	if err != nil {
		t.Fatalf("read outputs: %v", err)
	}
	if !strings.Contains(string(data), "published") || !strings.Contains(string(data), "outcome") {
		t.Errorf("outputs = %q", data)
	}
	if !strings.Contains(logs.String(), "::add-mask::ghp_maintesttoken") {
		t.Error("token was not masked")
	}
}

func TestRun_NoImage(t *testing.T) {
	srv := ghtest.NewServer()
	defer srv.Close()
	workdir, fg, action, _ := setup(t, srv)
	srv.SetIssueBody(5, "just words")

	if err := run(context.Background(), options{workdir: workdir}, action); err != nil {
		t.Fatalf("run() error: %v", err)
	}

	comments := srv.Comments()
	if len(comments) != 1 || !strings.HasPrefix(comments[0].Body, ":warning:") {
		t.Fatalf("comments = %+v, want one warning", comments)
	}
	if len(fg.calls) != 0 {
		t.Errorf("git ran %v, want nothing", fg.calls)
	}
}

func TestRun_DownloadFailure(t *testing.T) {
	srv := ghtest.NewServer()
	defer srv.Close()
	workdir, fg, action, _ := setup(t, srv)

	srv.SetIssueBody(5, srv.ImageURL("gone.jpg"))
	srv.FailImages(http.StatusNotFound)

	err := run(context.Background(), options{workdir: workdir}, action)
	if err == nil {
		t.Fatal("run() should fail on a 404 download")
	}

	comments := srv.Comments()
	if len(comments) != 1 {
		t.Fatalf("posted %d comments, want 1", len(comments))
	}
	msg := strings.TrimPrefix(comments[0].Body, ":x: An error occurred during upscale: ")
	if msg == comments[0].Body || utf8.RuneCountInString(msg) > 200 {
		t.Errorf("error comment = %q", comments[0].Body)
	}
	if !strings.Contains(msg, "404") {
		t.Errorf("error comment %q should mention the status", msg)
	}
	if len(fg.calls) != 0 {
		t.Errorf("git ran %v, want nothing", fg.calls)
	}
}

func TestRun_ConfigError(t *testing.T) {
	srv := ghtest.NewServer()
	defer srv.Close()
	workdir, _, action, logs := setup(t, srv)
	t.Setenv("ISSUE_NUMBER", "")

	err := run(context.Background(), options{workdir: workdir}, action)
	var cfgErr *config.ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "ISSUE_NUMBER" {
		t.Fatalf("run() error = %v, want ConfigError for ISSUE_NUMBER", err)
	}
	if n := len(srv.Comments()); n != 0 {
		t.Errorf("posted %d comments, want 0", n)
	}
	if !strings.Contains(logs.String(), "ISSUE_NUMBER") {
		t.Errorf("config error not logged: %q", logs.String())
	}
}

func TestRun_InvalidSettingIsReported(t *testing.T) {
	srv := ghtest.NewServer()
	defer srv.Close()
	workdir, _, action, _ := setup(t, srv)

	cfgFile := filepath.Join(t.TempDir(), "upscale.yml")
	if err := os.WriteFile(cfgFile, []byte("jpeg_quality: 500\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := run(context.Background(), options{configPath: cfgFile, workdir: workdir}, action)
	if err == nil {
		t.Fatal("run() should reject jpeg_quality 500")
	}
	comments := srv.Comments()
	if len(comments) != 1 || !strings.Contains(comments[0].Body, "jpeg_quality") {
		t.Errorf("comments = %+v, want one error mentioning jpeg_quality", comments)
	}
}

func TestRun_GitHubAppToken(t *testing.T) {
	srv := ghtest.NewServer()
	defer srv.Close()
	workdir, _, action, logs := setup(t, srv)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GITHUB_APP_ID", "99")
	t.Setenv("GITHUB_PRIVATE_KEY", string(pemKey))
	srv.SetInstallationToken("ghs_mintedinstallation")
	srv.SetIssueBody(5, "no picture")

	if err := run(context.Background(), options{workdir: workdir}, action); err != nil {
		t.Fatalf("run() error: %v", err)
	}

	comments := srv.Comments()
	if len(comments) != 1 || comments[0].Auth != "Bearer ghs_mintedinstallation" {
		t.Errorf("comments = %+v, want one made with the installation token", comments)
	}
	if !strings.Contains(logs.String(), "::add-mask::ghs_mintedinstallation") {
		t.Error("installation token was not masked")
	}
}

func TestNewRootCommand(t *testing.T) {
	cmd := newRootCommand()
	if cmd.Use != "upscale" {
		t.Errorf("Use = %q", cmd.Use)
	}
	for _, name := range []string{"config", "workdir"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("flag --%s not defined", name)
		}
	}
	if err := cmd.Args(cmd, []string{"extra"}); err == nil {
		t.Error("positional arguments should be rejected")
	}
}
