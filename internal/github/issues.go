package github

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v66/github"
)

// IssueClient reads issue bodies and posts comments for a single repository.
type IssueClient struct {
	client *gh.Client
	owner  string
	repo   string
}

// NewIssueClient creates a token-authenticated client. apiURL may be empty
// for github.com or point at a GitHub Enterprise / test server.
func NewIssueClient(token, apiURL, owner, repo string) (*IssueClient, error) {
	client := gh.NewClient(nil).WithAuthToken(token)

	if apiURL != "" {
		base, err := url.Parse(strings.TrimRight(apiURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", apiURL, err)
		}
		client.BaseURL = base
	}

	return &IssueClient{client: client, owner: owner, repo: repo}, nil
}

// IssueBody returns the body of issue number (empty when the issue has none).
func (c *IssueClient) IssueBody(ctx context.Context, number int) (string, error) {
	issue, _, err := c.client.Issues.Get(ctx, c.owner, c.repo, number)
	if err != nil {
		return "", fmt.Errorf("failed to fetch issue #%d: %w", number, err)
	}
	return issue.GetBody(), nil
}

// CreateComment posts body as a new comment on issue number.
func (c *IssueClient) CreateComment(ctx context.Context, number int, body string) error {
	comment := &gh.IssueComment{Body: gh.String(body)}
	if _, _, err := c.client.Issues.CreateComment(ctx, c.owner, c.repo, number, comment); err != nil {
		return fmt.Errorf("failed to create comment on #%d: %w", number, err)
	}
	return nil
}
