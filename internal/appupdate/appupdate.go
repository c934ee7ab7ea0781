// Package appupdate checks for newer releases on GitHub and applies
// self-updates. Detection runs in the background and records the newest
// version on disk; the actual binary swap only happens when the user asks
// for it.
package appupdate

import (
	"context"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/creativeprojects/go-selfupdate"
	"go.uber.org/zap"
)

const RepoSlug = "robottwo/redline"

// Release is the slice of release metadata the updater needs.
type Release interface {
	Version() string
	AssetURL() string
	AssetName() string
}

// Updater abstracts release detection and binary replacement so tests can
// run without touching GitHub.
type Updater interface {
	DetectLatest(ctx context.Context, repo string) (Release, bool, error)
	UpdateTo(ctx context.Context, assetURL, assetName, exePath string) error
}

// GitHubUpdater is the production Updater backed by go-selfupdate.
type GitHubUpdater struct{}

type githubRelease struct{ r *selfupdate.Release }

func (g githubRelease) Version() string   { return g.r.Version() }
func (g githubRelease) AssetURL() string  { return g.r.AssetURL }
func (g githubRelease) AssetName() string { return g.r.AssetName }

func (GitHubUpdater) DetectLatest(ctx context.Context, repo string) (Release, bool, error) {
	release, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(repo))
	if err != nil || !found {
		return nil, found, err
	}
	return githubRelease{r: release}, true, nil
}

func (GitHubUpdater) UpdateTo(ctx context.Context, assetURL, assetName, exePath string) error {
	return selfupdate.UpdateTo(ctx, assetURL, assetName, exePath)
}

// Checker ties the pieces together: it records newly detected versions in
// recordPath and reports whether the recorded version is newer than the
// running build.
type Checker struct {
	updater    Updater
	recordPath string
	logger     *zap.Logger
}

func NewChecker(updater Updater, recordPath string, logger *zap.Logger) *Checker {
	return &Checker{updater: updater, recordPath: recordPath, logger: logger}
}

// CheckInBackground fetches the latest release version and records it. The
// channel yields the detected version, or closes without a value when
// detection fails.
func (c *Checker) CheckInBackground(ctx context.Context) chan string {
	results := make(chan string, 1)
	go func() {
		defer close(results)

		latest, found, err := c.updater.DetectLatest(ctx, RepoSlug)
		if err != nil {
			c.logger.Warn("release detection failed", zap.Error(err))
			return
		}
		if !found {
			c.logger.Warn("no release found", zap.String("repo", RepoSlug))
			return
		}

		version := strings.TrimSpace(latest.Version())
		if err := os.WriteFile(c.recordPath, []byte(version), 0600); err != nil {
			c.logger.Error("failed to record latest version", zap.Error(err))
			return
		}
		results <- version
	}()
	return results
}

// Available reports whether the recorded version is newer than
// currentVersion. Dev builds (non-semver versions) never update.
func (c *Checker) Available(currentVersion string) (string, bool) {
	current, err := semver.NewVersion(strings.TrimSpace(currentVersion))
	if err != nil {
		c.logger.Debug("running a dev build, skipping update check")
		return "", false
	}

	data, err := os.ReadFile(c.recordPath)
	if err != nil {
		return "", false
	}
	recorded := strings.TrimSpace(string(data))

	latest, err := semver.NewVersion(recorded)
	if err != nil {
		c.logger.Error("recorded latest version is malformed", zap.String("version", recorded))
		return "", false
	}
	if latest.LessThanEqual(current) {
		return "", false
	}
	return recorded, true
}

// Apply replaces the running executable with the latest release.
func (c *Checker) Apply(ctx context.Context) error {
	latest, found, err := c.updater.DetectLatest(ctx, RepoSlug)
	if err != nil {
		return err
	}
	if !found {
		return &NoReleaseError{Repo: RepoSlug}
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return err
	}
	if err := c.updater.UpdateTo(ctx, latest.AssetURL(), latest.AssetName(), exe); err != nil {
		return err
	}

	c.logger.Info("updated to latest version", zap.String("version", latest.Version()))
	return nil
}

// NoReleaseError reports that the repository has no published release.
type NoReleaseError struct {
	Repo string
}

func (e *NoReleaseError) Error() string {
	return "no release found for " + e.Repo
}
