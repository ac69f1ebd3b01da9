// Package ci reads revision metadata from the environment of well-known CI providers.
package ci

import (
	"net/url"
	"os"
	"strings"
)

// CIKind represents the type of CI.
type CIKind int

const (
	// CIUnknown indicates the CI provider could not be identified.
	CIUnknown CIKind = iota
	// CIGitHub identifies GitHub Actions.
	CIGitHub
	// CIGitLab identifies GitLab CI.
	CIGitLab
	// CIBitbucket identifies Bitbucket Pipelines.
	CIBitbucket
)

// LookupFunc fetches environment variables and defaults to os.Getenv.
type LookupFunc func(string) string

// Environment is the revision a CI job is running for.
type Environment struct {
	Kind          CIKind
	CommitHash    string // CommitHash is the commit that triggered the job.
	Reference     string // Reference is the fully qualified git reference (e.g. refs/heads/main).
	Branch        string // Branch is set only when Reference is a branch.
	RepositoryURL string // RepositoryURL is the web URL of the repository.
}

// String returns the human-readable string representation of a CIKind.
func (c CIKind) String() string {
	switch c {
	case CIGitHub:
		return "github"
	case CIGitLab:
		return "gitlab"
	case CIBitbucket:
		return "bitbucket"
	default:
		return "unknown"
	}
}

// DetectCIKind infers the CI provider from well-known environment variables.
func DetectCIKind(lookup LookupFunc) CIKind {
	if lookup == nil {
		lookup = os.Getenv
	}

	if lookup("GITHUB_REPOSITORY") != "" || lookup("GITHUB_SHA") != "" {
		return CIGitHub
	}
	if strings.EqualFold(lookup("GITLAB_CI"), "true") || lookup("CI_PROJECT_PATH") != "" {
		return CIGitLab
	}
	if lookup("BITBUCKET_WORKSPACE") != "" || lookup("BITBUCKET_REPO_SLUG") != "" {
		return CIBitbucket
	}

	return CIUnknown
}

// Detect returns the CI environment, or false when no supported provider is found.
func Detect(lookup LookupFunc) (Environment, bool) {
	if lookup == nil {
		lookup = os.Getenv
	}

	switch DetectCIKind(lookup) {
	case CIGitHub:
		return extractGitHubVariables(lookup), true
	case CIGitLab:
		return extractGitLabVariables(lookup), true
	case CIBitbucket:
		return extractBitbucketVariables(lookup), true
	default:
		return Environment{}, false
	}
}

// extractGitHubVariables builds the Environment from GitHub-specific variables.
// See https://docs.github.com/en/actions/reference/workflows-and-actions/variables.
func extractGitHubVariables(lookup LookupFunc) Environment {
	fullName := lookup("GITHUB_REPOSITORY")
	serverURL := strings.TrimSuffix(lookup("GITHUB_SERVER_URL"), "/")
	if serverURL == "" {
		serverURL = "https://github.com"
	}

	var repoURL string
	if fullName != "" {
		repoURL = serverURL + "/" + fullName
	}

	ref := lookup("GITHUB_REF")
	env := Environment{
		Kind:          CIGitHub,
		CommitHash:    lookup("GITHUB_SHA"),
		Reference:     ref,
		Branch:        branchFromRef(ref),
		RepositoryURL: repoURL,
	}
	// Pull request runs check out a merge ref; the source branch is in GITHUB_HEAD_REF.
	if head := lookup("GITHUB_HEAD_REF"); head != "" {
		env.Branch = head
	}
	return env
}

// extractGitLabVariables builds the Environment from GitLab-specific variables.
// See https://docs.gitlab.com/ci/variables/predefined_variables/.
func extractGitLabVariables(lookup LookupFunc) Environment {
	env := Environment{
		Kind:          CIGitLab,
		CommitHash:    lookup("CI_COMMIT_SHA"),
		RepositoryURL: lookup("CI_PROJECT_URL"),
	}

	switch {
	case lookup("CI_COMMIT_TAG") != "":
		env.Reference = "refs/tags/" + lookup("CI_COMMIT_TAG")
	case lookup("CI_MERGE_REQUEST_REF_PATH") != "":
		env.Reference = lookup("CI_MERGE_REQUEST_REF_PATH")
		env.Branch = lookup("CI_MERGE_REQUEST_SOURCE_BRANCH_NAME")
	case lookup("CI_COMMIT_BRANCH") != "":
		env.Reference = "refs/heads/" + lookup("CI_COMMIT_BRANCH")
		env.Branch = lookup("CI_COMMIT_BRANCH")
	}
	return env
}

// extractBitbucketVariables builds the Environment from Bitbucket-specific variables.
// See https://support.atlassian.com/bitbucket-cloud/docs/variables-and-secrets/.
func extractBitbucketVariables(lookup LookupFunc) Environment {
	env := Environment{
		Kind:       CIBitbucket,
		CommitHash: lookup("BITBUCKET_COMMIT"),
	}

	if tag := lookup("BITBUCKET_TAG"); tag != "" {
		env.Reference = "refs/tags/" + tag
	} else if branch := lookup("BITBUCKET_BRANCH"); branch != "" {
		env.Reference = "refs/heads/" + branch
		env.Branch = branch
	} else if pr := lookup("BITBUCKET_PR_ID"); pr != "" {
		env.Reference = "refs/pull/" + pr
	}

	origin := lookup("BITBUCKET_GIT_HTTP_ORIGIN")
	if u, err := url.Parse(origin); err == nil && u.Scheme != "" && u.Host != "" {
		env.RepositoryURL = origin
	}
	return env
}

// Tag returns the tag name when the job runs for a tag reference.
func (e Environment) Tag() string {
	if strings.HasPrefix(e.Reference, "refs/tags/") {
		return strings.TrimPrefix(e.Reference, "refs/tags/")
	}
	return ""
}

func branchFromRef(ref string) string {
	if strings.HasPrefix(ref, "refs/heads/") {
		return strings.TrimPrefix(ref, "refs/heads/")
	}
	return ""
}
