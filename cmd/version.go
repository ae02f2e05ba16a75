package cmd

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/blang/semver"
	"github.com/charmbracelet/log"
	"github.com/go-faster/errors"
	"github.com/rhysd/go-github-selfupdate/selfupdate"
	"github.com/spf13/cobra"
)

// Set with -ldflags "-X github.com/krau/tgkw/cmd.Version=..." at release time.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	// GitHub "owner/name" that publishes release binaries
	ReleaseRepo = ""
)

var versionCmd = &cobra.Command{
	Use:     "version",
	Aliases: []string{"v"},
	Short:   "Print the version number of tgkw",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tgkw %s %s/%s\nBuildTime: %s, Commit: %s\n", Version, runtime.GOOS, runtime.GOARCH, BuildTime, GitCommit)
	},
}

var upgradeCmd = &cobra.Command{
	Use:     "upgrade",
	Aliases: []string{"up"},
	Short:   "Replace this binary with the latest GitHub release",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, _ := cmd.Flags().GetString("repo")
		return upgrade(cmd, repo)
	},
}

func init() {
	upgradeCmd.Flags().String("repo", "", "GitHub repository (owner/name) to fetch releases from")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(upgradeCmd)
}

// releaseSlug picks the flag value over the build-time default.
func releaseSlug(flag, builtin string) (string, error) {
	slug := strings.TrimSpace(flag)
	if slug == "" {
		slug = strings.TrimSpace(builtin)
	}
	if slug == "" {
		return "", errors.New("no release repository configured, pass --repo owner/name")
	}
	owner, name, ok := strings.Cut(slug, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", errors.Errorf("invalid release repository %q, want owner/name", slug)
	}
	return slug, nil
}

func upgrade(cmd *cobra.Command, repo string) error {
	logger := log.FromContext(cmd.Context())
	slug, err := releaseSlug(repo, ReleaseRepo)
	if err != nil {
		return err
	}
	current, err := semver.ParseTolerant(Version)
	if err != nil {
		return errors.Errorf("development build %q cannot be upgraded", Version)
	}

	latest, found, err := selfupdate.DetectLatest(slug)
	if err != nil {
		return errors.Wrap(err, "detect latest release")
	}
	if !found || latest.Version.LTE(current) {
		logger.Info("Already up to date", "version", current, "repo", slug)
		return nil
	}

	exe, err := os.Executable()
	if err != nil {
		return errors.Wrap(err, "locate executable")
	}
	if err := selfupdate.UpdateTo(latest.AssetURL, exe); err != nil {
		return errors.Wrap(err, "update binary")
	}
	logger.Info("Upgraded", "from", current, "to", latest.Version)
	if latest.ReleaseNotes != "" {
		fmt.Println("Release note:\n", latest.ReleaseNotes)
	}
	return nil
}
