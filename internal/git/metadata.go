package git

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/gitsight/go-vcsurl"
	"github.com/go-git/go-git/v5"
)

// RepositoryMetadata describes the checkout a scan runs against.
type RepositoryMetadata struct {
	BranchName string
	CommitHash string
	RemoteURL  string // RemoteURL is the sanitised origin URL, empty when there is no origin.
}

// CollectRepositoryMetadata opens the git repository containing sourceFolder and
// reads its HEAD branch, HEAD commit and origin remote.
func CollectRepositoryMetadata(sourceFolder string) (*RepositoryMetadata, error) {
	if sourceFolder == "" {
		return &RepositoryMetadata{}, fmt.Errorf("source folder is not set")
	}

	if absSource, err := filepath.Abs(sourceFolder); err == nil {
		sourceFolder = absSource
	}

	md := &RepositoryMetadata{}

	repoRootFolder, err := findGitRepositoryPath(sourceFolder)
	if err != nil {
		return md, err
	}

	repo, err := git.PlainOpen(repoRootFolder)
	if err != nil {
		return md, fmt.Errorf("failed to open repository: %w", err)
	}

	if head, err := repo.Head(); err == nil {
		if head.Name().IsBranch() {
			md.BranchName = head.Name().Short()
		}
		md.CommitHash = head.Hash().String()
	}

	if remote, err := repo.Remote("origin"); err == nil {
		if cfg := remote.Config(); cfg != nil && len(cfg.URLs) > 0 {
			md.RemoteURL = SanitizeRemoteURL(cfg.URLs[0])
		}
	}

	return md, nil
}

// SanitizeRemoteURL turns a git remote into a credential-free web URL.
// SCP-like SSH remotes (git@host:ns/repo.git) become https://host/ns/repo.
// Anything without a host, such as a local mirror path, only loses its .git suffix.
func SanitizeRemoteURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	spec := raw
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" && u.Host != "" {
		u.User = nil
		u.RawQuery = ""
		u.Fragment = ""
		if u.Scheme != "https" && u.Scheme != "http" {
			u.Scheme = "https"
			u.Host = u.Hostname()
		}
		spec = u.String()
	}

	info, err := vcsurl.Parse(spec)
	if err != nil || info.Host == "" || info.FullName == "" {
		return strings.TrimSuffix(spec, ".git")
	}

	// Re-parse the canonical form so Remote never sees an SCP remote on an unknown host.
	canonical, err := vcsurl.Parse(fmt.Sprintf("https://%s/%s", info.Host, info.FullName))
	if err != nil {
		return strings.TrimSuffix(spec, ".git")
	}
	remote, err := canonical.Remote(vcsurl.HTTPS)
	if err != nil {
		return strings.TrimSuffix(spec, ".git")
	}
	return strings.TrimSuffix(remote, ".git")
}
