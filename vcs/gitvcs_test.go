package vcs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initRepo creates a real go-git repository with one commit on its initial
// branch, so tests exercise GitVCS against an actual working tree rather
// than a fake.
func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0o644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("README.md")
	require.NoError(t, err)
	_, err = wt.Commit("initial commit", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com"},
	})
	require.NoError(t, err)

	return dir
}

func TestGitVCS_New_OpensExistingRepository(t *testing.T) {
	dir := initRepo(t)

	v, err := New(Config{RepoPath: dir})

	require.NoError(t, err)
	assert.NotNil(t, v)
}

func TestGitVCS_New_RejectsNonRepository(t *testing.T) {
	_, err := New(Config{RepoPath: t.TempDir()})

	assert.Error(t, err)
}

func TestGitVCS_AddCommit_CreatesCommitFromStagedFile(t *testing.T) {
	dir := initRepo(t)
	v, err := New(Config{RepoPath: dir})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.txt"), []byte("data\n"), 0o644))
	require.NoError(t, v.Add(context.Background(), []string{"new.txt"}))

	dirty, err := v.IsDirty(context.Background())
	require.NoError(t, err)
	assert.True(t, dirty, "a staged-but-uncommitted file still counts as dirty")

	require.NoError(t, v.Commit(context.Background(), "add new.txt"))

	dirty, err = v.IsDirty(context.Background())
	require.NoError(t, err)
	assert.False(t, dirty)
}

func TestGitVCS_CreateBranchAndBranchExists(t *testing.T) {
	dir := initRepo(t)
	v, err := New(Config{RepoPath: dir})
	require.NoError(t, err)

	ctx := context.Background()
	exists, err := v.BranchExists(ctx, "feature-x")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, v.CreateBranch(ctx, "feature-x"))

	exists, err = v.BranchExists(ctx, "feature-x")
	require.NoError(t, err)
	assert.True(t, exists)

	branch, err := v.ActiveBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "feature-x", branch)
}
