package git

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/bbeale/GitTreasures/internal/logger"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keyRegex = regexp.MustCompile(`(?i)(ABC-[0-9]+)`)

func TestExtractTickets(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"single", "Fixes ABC-3", []string{"ABC-3"}},
		{"dedup and upper", "abc-2 and ABC-2 plus ABC-10", []string{"ABC-10", "ABC-2"}},
		{"none", "chore: deps", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTickets(tt.text, keyRegex))
		})
	}
	assert.Nil(t, ExtractTickets("ABC-1", nil))
}

// initRepo builds a repository whose staging branch holds the given commits, oldest first
func initRepo(t *testing.T, commits []struct {
	msg string
	at  time.Time
}) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	var head plumbing.Hash
	for i, c := range commits {
		name := filepath.Join(dir, "file.txt")
		require.NoError(t, os.WriteFile(name, []byte(c.msg+string(rune('a'+i))), 0o644))
		_, err := wt.Add("file.txt")
		require.NoError(t, err)
		sig := &object.Signature{Name: "Dev", Email: "dev@example.com", When: c.at}
		head, err = wt.Commit(c.msg, &git.CommitOptions{Author: sig, Committer: sig})
		require.NoError(t, err)
	}
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName("staging"), head)
	require.NoError(t, repo.Storer.SetReference(ref))
	return dir
}

func TestSourceCommitsSince(t *testing.T) {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	dir := initRepo(t, []struct {
		msg string
		at  time.Time
	}{
		{"ABC-1 old work", base.Add(-72 * time.Hour)},
		{"Fixes ABC-3", base},
		{"chore: tidy", base.Add(time.Hour)},
	})

	src := NewSource(dir, false, keyRegex, logger.Nop())
	commits, err := src.CommitsSince(context.Background(), "staging", base)
	require.NoError(t, err)
	require.Len(t, commits, 2)

	assert.Equal(t, "chore: tidy", commits[0].Message)
	assert.Equal(t, "Fixes ABC-3", commits[1].Message)
	assert.Equal(t, []string{"ABC-3"}, commits[1].Tickets)
	assert.Equal(t, "staging", commits[1].Branch)
	assert.Equal(t, "Dev", commits[1].AuthorName)
	assert.Equal(t, "dev@example.com", commits[1].AuthorEmail)
	assert.True(t, commits[1].CommittedAt.Equal(base))
	assert.Len(t, commits[1].Hash, 40)

	assert.True(t, IsGitRepo(dir))
	assert.True(t, HasBranch(dir, "staging"))
	assert.False(t, HasBranch(dir, "release"))
}

func TestSourceMissingBranch(t *testing.T) {
	dir := initRepo(t, []struct {
		msg string
		at  time.Time
	}{{"ABC-1", time.Now()}})

	src := NewSource(dir, false, keyRegex, logger.Nop())
	_, err := src.CommitsSince(context.Background(), "release", time.Time{})

	var notFound *BranchNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, []string{"release"}, notFound.Branches)
}

func TestSourceNotARepo(t *testing.T) {
	src := NewSource(t.TempDir(), false, keyRegex, logger.Nop())
	_, err := src.CommitsSince(context.Background(), "staging", time.Time{})
	assert.Error(t, err)
}
