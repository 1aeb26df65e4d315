package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// initPolicyRepo creates a Git repository with one policy file under
// policies/ and an initial commit. go-git init uses "master" as the
// default branch.
func initPolicyRepo(t *testing.T, dir string) *gogit.Repository {
	t.Helper()

	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("failed to init repo: %v", err)
	}

	if err := os.MkdirAll(filepath.Join(dir, "policies"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "policies"), "default.yaml", singlePolicyYAML)
	commitAll(t, repo, "add default policy")

	return repo
}

func commitAll(t *testing.T, repo *gogit.Repository, msg string) {
	t.Helper()

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}
	if err := wt.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
		t.Fatalf("failed to add files: %v", err)
	}
	_, err = wt.Commit(msg, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "Test User",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
}

func TestGitSource_LoadClonesAndReadsSubdir(t *testing.T) {
	sourceDir := t.TempDir()
	initPolicyRepo(t, sourceDir)

	gs := &GitSource{
		URL:       sourceDir,
		Branch:    "master",
		Subdir:    "policies",
		LocalPath: t.TempDir(),
	}

	policies, err := gs.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if len(policies) != 1 {
		t.Fatalf("got %d policies, want 1", len(policies))
	}
	if policies[0].ID != "community-default" {
		t.Errorf("policy ID = %q, want %q", policies[0].ID, "community-default")
	}
}

func TestGitSource_LoadPullsNewCommits(t *testing.T) {
	sourceDir := t.TempDir()
	repo := initPolicyRepo(t, sourceDir)

	gs := &GitSource{
		URL:       sourceDir,
		Branch:    "master",
		Subdir:    "policies",
		LocalPath: t.TempDir(),
	}

	policies, err := gs.Load(context.Background())
	if err != nil {
		t.Fatalf("first Load() = %v", err)
	}
	if len(policies) != 1 {
		t.Fatalf("got %d policies after clone, want 1", len(policies))
	}

	// Commit two more policies upstream; the next Load must pull them.
	writeFile(t, filepath.Join(sourceDir, "policies"), "tiers.yaml", policyListYAML)
	commitAll(t, repo, "add tier policies")

	policies, err = gs.Load(context.Background())
	if err != nil {
		t.Fatalf("second Load() = %v", err)
	}
	if len(policies) != 3 {
		t.Fatalf("got %d policies after pull, want 3", len(policies))
	}

	// No upstream changes: pull reports already-up-to-date, Load succeeds.
	policies, err = gs.Load(context.Background())
	if err != nil {
		t.Fatalf("third Load() = %v", err)
	}
	if len(policies) != 3 {
		t.Errorf("got %d policies on up-to-date pull, want 3", len(policies))
	}
}

func TestGitSource_LoadReusesExistingClone(t *testing.T) {
	sourceDir := t.TempDir()
	initPolicyRepo(t, sourceDir)
	localDir := t.TempDir()

	gs1 := &GitSource{URL: sourceDir, Branch: "master", Subdir: "policies", LocalPath: localDir}
	if _, err := gs1.Load(context.Background()); err != nil {
		t.Fatalf("Load() into fresh path = %v", err)
	}

	// A new source pointed at the same local path opens the existing
	// clone instead of cloning again.
	gs2 := &GitSource{URL: sourceDir, Branch: "master", Subdir: "policies", LocalPath: localDir}
	policies, err := gs2.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() reopening clone = %v", err)
	}
	if len(policies) != 1 {
		t.Errorf("got %d policies, want 1", len(policies))
	}
}

func TestGitSource_LoadRequiresURL(t *testing.T) {
	gs := &GitSource{LocalPath: t.TempDir()}
	if _, err := gs.Load(context.Background()); err == nil {
		t.Error("expected error for missing repository URL")
	}
}

func TestGitSource_LoadNonexistentRepo(t *testing.T) {
	gs := &GitSource{
		URL:       filepath.Join(t.TempDir(), "does-not-exist"),
		Branch:    "master",
		LocalPath: t.TempDir(),
	}
	if _, err := gs.Load(context.Background()); err == nil {
		t.Error("expected error cloning nonexistent repository")
	}
}
