package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeRegistry(t *testing.T, domains string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "registry.yaml")
	content := `
categories:
  - key: sports
    title: Αθλητικά
    color: green
    feeds:
      - https://www.sdna.gr/rss/
domains:
` + domains
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write registry: %v", err)
	}
	return file
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLintReportsConflicts(t *testing.T) {
	t.Setenv("REGISTRY_FILE", writeRegistry(t, `
  sdna.gr: SDNA
  live.sdna.gr: SDNA Live
  www.news.gr: News
  news.gr: News
`))

	out, err := runCmd(t, "lint")
	if !errors.Is(err, errOverlaps) {
		t.Fatalf("expected errOverlaps, got %v", err)
	}
	if !strings.Contains(out, "live.sdna.gr") || !strings.Contains(out, "CONFLICT") {
		t.Fatalf("unexpected lint output:\n%s", out)
	}
}

func TestLintClean(t *testing.T) {
	t.Setenv("REGISTRY_FILE", writeRegistry(t, `
  sdna.gr: SDNA
  gazzetta.gr: Gazzetta
`))

	out, err := runCmd(t, "lint")
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if !strings.Contains(out, "no overlapping domain keys") {
		t.Fatalf("unexpected lint output:\n%s", out)
	}
}

func TestSnapshotFailsOnBadRegistry(t *testing.T) {
	t.Setenv("REGISTRY_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := runCmd(t, "snapshot", "--out", filepath.Join(t.TempDir(), "news.json")); err == nil {
		t.Fatal("expected snapshot to fail on a missing registry file")
	}
}
