package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"veritas-hq/sentinel/pkg/moderation"
)

const singlePolicyYAML = `
id: community-default
name: Community default
rules:
  - category: hate_speech
    threshold: 0.5
    action: block
    priority: 10
  - category: spam
    threshold: 0.8
    action: warn
`

const policyListYAML = `
policies:
  - id: strict
    rules:
      - category: violence
        threshold: 0.3
        action: block
  - id: lenient
    rules:
      - category: violence
        threshold: 0.9
        action: flag
`

func TestParseYAML(t *testing.T) {
	t.Run("single policy document", func(t *testing.T) {
		policies, err := ParseYAML([]byte(singlePolicyYAML))
		if err != nil {
			t.Fatalf("ParseYAML() = %v", err)
		}
		if len(policies) != 1 {
			t.Fatalf("got %d policies, want 1", len(policies))
		}
		p := policies[0]
		if p.ID != "community-default" || len(p.Rules) != 2 {
			t.Errorf("parsed policy = %+v", p)
		}
		if p.Rules[0].Category != moderation.CategoryHateSpeech || p.Rules[0].Threshold != 0.5 {
			t.Errorf("first rule = %+v", p.Rules[0])
		}
	})

	t.Run("policies list document", func(t *testing.T) {
		policies, err := ParseYAML([]byte(policyListYAML))
		if err != nil {
			t.Fatalf("ParseYAML() = %v", err)
		}
		if len(policies) != 2 {
			t.Fatalf("got %d policies, want 2", len(policies))
		}
	})

	t.Run("empty document rejected", func(t *testing.T) {
		if _, err := ParseYAML([]byte("{}")); err == nil {
			t.Error("expected error for empty document")
		}
	})
}

func TestFileSource_Load(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "default.yaml", singlePolicyYAML)
	writeFile(t, dir, "tiers.yml", policyListYAML)
	writeFile(t, dir, "notes.txt", "not a policy")

	fs := &FileSource{Dir: dir}
	policies, err := fs.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if len(policies) != 3 {
		t.Errorf("got %d policies, want 3", len(policies))
	}
}

func TestFileSource_LoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.yaml", `
id: broken
rules:
  - category: hate_speech
    threshold: 2.5
    action: block
`)

	fs := &FileSource{Dir: dir}
	if _, err := fs.Load(context.Background()); err == nil {
		t.Error("expected validation error for out-of-range threshold")
	}
}

func TestFileSource_LoadRejectsDuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", singlePolicyYAML)
	writeFile(t, dir, "b.yaml", singlePolicyYAML)

	fs := &FileSource{Dir: dir}
	if _, err := fs.Load(context.Background()); err == nil {
		t.Error("expected error for duplicate policy id across files")
	}
}

func TestFileSource_LoadEmptyDir(t *testing.T) {
	fs := &FileSource{Dir: t.TempDir()}
	if _, err := fs.Load(context.Background()); err == nil {
		t.Error("expected error for directory with no policies")
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
