package version

import (
	"context"
	"fmt"
	"net/http"
	"time"

	goversion "github.com/hashicorp/go-version"
	"github.com/nulzo/prism-copy/internal/httpclient"
)

// Version is set at build time with -ldflags "-X github.com/nulzo/prism-copy/internal/version.Version=v1.2.3".
var Version = "v0.0.0-dev"

// DefaultReleaseURL is the GitHub API endpoint for the latest release.
const DefaultReleaseURL = "https://api.github.com/repos/nulzo/prism-copy/releases/latest"

type release struct {
	TagName string `json:"tag_name"`
}

// Update describes the result of a release check.
type Update struct {
	Current  string
	Latest   string
	Outdated bool
}

// Check compares current against the latest published release.
func Check(ctx context.Context, client httpclient.HTTPClient, releaseURL, current string) (*Update, error) {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Second}
	}

	var rel release
	if err := httpclient.SendRequest(ctx, client, http.MethodGet, releaseURL, map[string]string{
		"Accept": "application/vnd.github+json",
	}, nil, &rel); err != nil {
		return nil, err
	}

	cur, err := goversion.NewVersion(current)
	if err != nil {
		return nil, fmt.Errorf("parse current version %q: %w", current, err)
	}

	latest, err := goversion.NewVersion(rel.TagName)
	if err != nil {
		return nil, fmt.Errorf("parse release tag %q: %w", rel.TagName, err)
	}

	return &Update{
		Current:  current,
		Latest:   rel.TagName,
		Outdated: cur.LessThan(latest),
	}, nil
}
