// Package update checks the hosting service for a newer GitTreasures release.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"golang.org/x/mod/semver"
)

// Release represents a GitHub release
type Release struct {
	TagName string `json:"tagName"`
}

// Lister returns the JSON output of `gh release list`; swapped in tests
type Lister func(ctx context.Context, repo string) ([]byte, error)

// GhLister asks the gh CLI for the newest release of repo
func GhLister(ctx context.Context, repo string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "gh", "release", "list",
		"--repo", repo,
		"--json", "tagName",
		"--limit", "1",
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("gh release list failed: %w", err)
	}
	return out, nil
}

// CheckForUpdate returns the latest release if it is newer than currentVersion,
// or nil when up to date
func CheckForUpdate(ctx context.Context, currentVersion, repo string, list Lister) (*Release, error) {
	output, err := list(ctx, repo)
	if err != nil {
		return nil, err
	}

	var releases []Release
	if err := json.Unmarshal(output, &releases); err != nil {
		return nil, fmt.Errorf("failed to parse releases: %w", err)
	}
	if len(releases) == 0 {
		return nil, nil
	}
	latest := &releases[0]

	// "dev" builds are always older than any release
	current := canonical(currentVersion)
	if current == "" {
		return latest, nil
	}
	if semver.Compare(canonical(latest.TagName), current) > 0 {
		return latest, nil
	}
	return nil, nil
}

// canonical turns "gittreasures/v1.2.3" or "1.2.3" into "v1.2.3"; "" when invalid
func canonical(v string) string {
	v = strings.TrimPrefix(v, "gittreasures/")
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return semver.Canonical(v)
}

// VersionDisplay returns a formatted version string for display
func VersionDisplay(tag string) string {
	tag = strings.TrimPrefix(tag, "gittreasures/")
	return strings.TrimPrefix(tag, "v")
}
