package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Release is a published build of the storefront client.
type Release struct {
	Tag string `json:"tag_name"`
	URL string `json:"html_url"`
}

// LatestRelease fetches the release document served at the client's base URL.
func (c *Client) LatestRelease(ctx context.Context) (*Release, error) {
	var rel Release
	if err := c.get(ctx, "", &rel); err != nil {
		return nil, fmt.Errorf("client.LatestRelease: %w", err)
	}
	if rel.Tag == "" {
		return nil, fmt.Errorf("client.LatestRelease: release has no tag")
	}
	return &rel, nil
}

// Version returns the tag with a single leading "v".
func (r Release) Version() string {
	return "v" + strings.TrimPrefix(r.Tag, "v")
}

// NewerThan reports whether the release is a later major.minor.patch than
// current. Unparseable components count as zero.
func (r Release) NewerThan(current string) bool {
	latest, installed := versionParts(r.Tag), versionParts(current)
	for i := range latest {
		if latest[i] != installed[i] {
			return latest[i] > installed[i]
		}
	}
	return false
}

func versionParts(v string) [3]int {
	var out [3]int
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	v, _, _ = strings.Cut(v, "-")
	for i, part := range strings.SplitN(v, ".", 3) {
		n, err := strconv.Atoi(part)
		if err == nil {
			out[i] = n
		}
	}
	return out
}
