package scanner

import (
	"github.com/scan-io-git/permscan/internal/ci"
	"github.com/scan-io-git/permscan/internal/git"
	"github.com/scan-io-git/permscan/internal/sarif"
)

// provenance collects the scanned revision when enabled. CI variables take
// precedence over the local checkout, field by field.
func (s *Scanner) provenance() *sarif.Provenance {
	if !s.opts.VCSProvenance {
		return nil
	}

	p := &sarif.Provenance{}
	if env, ok := ci.Detect(s.opts.LookupEnv); ok {
		s.logger.Debug("using CI metadata for provenance", "ci", env.Kind.String())
		p.RepositoryURI = git.SanitizeRemoteURL(env.RepositoryURL)
		p.RevisionID = env.CommitHash
		p.Branch = env.Branch
		p.RevisionTag = env.Tag()
	}

	md, err := git.CollectRepositoryMetadata(s.opts.SourceRoot)
	if err != nil {
		s.logger.Debug("unable to read git metadata", "sourceRoot", s.opts.SourceRoot, "error", err)
	} else {
		if p.RepositoryURI == "" {
			p.RepositoryURI = md.RemoteURL
		}
		if p.RevisionID == "" {
			p.RevisionID = md.CommitHash
		}
		if p.Branch == "" {
			p.Branch = md.BranchName
		}
	}

	if p.RepositoryURI == "" {
		s.logger.Warn("version control provenance requested but no repository URL was found")
		return nil
	}
	return p
}
