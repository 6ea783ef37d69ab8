// Package hub fetches release history from the upstream project's
// code-hosting API.
package hub

import (
	"context"
	"fmt"
	"time"

	"github.com/google/go-github/v68/github"
)

type Release struct {
	Tag         string
	PublishedAt time.Time
	HTMLURL     string
}

type Client struct {
	gh    *github.Client
	owner string
	repo  string
}

func New(owner, repo, token string) *Client {
	gh := github.NewClient(nil)
	if token != "" {
		gh = gh.WithAuthToken(token)
	}
	return &Client{gh: gh, owner: owner, repo: repo}
}

// Releases fetches all published releases, following pagination.
func (c *Client) Releases(ctx context.Context) ([]Release, error) {
	var all []Release
	opts := &github.ListOptions{PerPage: 100}
	for {
		page, resp, err := c.gh.Repositories.ListReleases(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("listing releases for %s/%s: %w", c.owner, c.repo, err)
		}
		for _, r := range page {
			rel := Release{Tag: r.GetTagName(), HTMLURL: r.GetHTMLURL()}
			if r.PublishedAt != nil {
				rel.PublishedAt = r.PublishedAt.Time
			}
			all = append(all, rel)
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// TagCommit resolves a tag to its commit, as full and short hashes.
func (c *Client) TagCommit(ctx context.Context, tag string) (string, string, error) {
	ref, _, err := c.gh.Git.GetRef(ctx, c.owner, c.repo, "tags/"+tag)
	if err != nil {
		return "", "", fmt.Errorf("resolving tag %s: %w", tag, err)
	}
	sha := ref.GetObject().GetSHA()
	if len(sha) < 8 {
		return "", "", fmt.Errorf("no commit found for tag %s", tag)
	}
	return sha, sha[:8], nil
}
