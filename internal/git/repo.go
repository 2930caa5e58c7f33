package git

import (
	"context"
	"os/exec"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// IsGitRepo checks if the path is a git repository
func IsGitRepo(path string) bool {
	_, err := git.PlainOpen(path)
	return err == nil
}

// resolveBranch prefers the remote-tracking ref so a stale local branch is never read
func resolveBranch(repo *git.Repository, branch string) (plumbing.Hash, error) {
	for _, ref := range []string{"refs/remotes/origin/" + branch, "refs/heads/" + branch} {
		hash, err := repo.ResolveRevision(plumbing.Revision(ref))
		if err == nil {
			return *hash, nil
		}
	}
	return plumbing.ZeroHash, &BranchNotFoundError{Branches: []string{branch}}
}

// FetchBranches fetches specified branches from origin using git CLI (to inherit SSH agent)
func FetchBranches(ctx context.Context, repoPath string, branches []string) error {
	args := append([]string{"fetch", "origin"}, branches...)
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = repoPath

	output, err := cmd.CombinedOutput()
	if err != nil {
		outputStr := strings.TrimSpace(string(output))
		if strings.Contains(outputStr, "couldn't find remote ref") {
			return &BranchNotFoundError{Branches: branches}
		}
		// Provide a more helpful error message
		if outputStr != "" {
			return &GitError{Command: "fetch", Output: outputStr}
		}
		return &GitError{Command: "fetch", Output: "Failed to fetch from remote (check network/auth)"}
	}

	return nil
}

// GitError provides better context for git command failures
type GitError struct {
	Command string
	Output  string
}

func (e *GitError) Error() string {
	return "git " + e.Command + ": " + e.Output
}

// BranchNotFoundError indicates a branch was not found on remote
type BranchNotFoundError struct {
	Branches []string
}

func (e *BranchNotFoundError) Error() string {
	return "Branch not found on remote: " + strings.Join(e.Branches, ", ")
}

// HasBranch checks if a branch exists in the repository
func HasBranch(repoPath, branchName string) bool {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return false
	}

	// Check remote ref first
	_, err = repo.Reference(plumbing.NewRemoteReferenceName("origin", branchName), true)
	if err == nil {
		return true
	}

	// Check local ref
	_, err = repo.Reference(plumbing.NewBranchReferenceName(branchName), true)
	return err == nil
}
