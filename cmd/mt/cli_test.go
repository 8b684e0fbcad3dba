package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestConfig writes a config using a fresh SQLite file and backup
// directories under a temp dir, and returns the config path and the dir.
func writeTestConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`database:
  driver: sqlite
  path: %s
backup:
  root: %s
  dir: %s
  data_paths: [instance]
`, filepath.Join(dir, "instance", "mt.db"), dir, filepath.Join(dir, "backups"))

	path := filepath.Join(dir, "mentortrack.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return path, dir
}

// runCLI executes the root command with args and returns its output.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func mustRunCLI(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, "", args...)
	if err != nil {
		t.Fatalf("mt %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func TestCLI_EndToEnd(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)

	out := mustRunCLI(t, "db", "init", "-c", cfgPath)
	if !strings.Contains(out, "initialized successfully") {
		t.Errorf("db init output = %q", out)
	}

	out = mustRunCLI(t, "account", "create", "-c", cfgPath, "--name", "Sato", "--email", "sato@example.com", "--role", "mentor")
	if !strings.Contains(out, "Created mentor 1") {
		t.Errorf("account create output = %q", out)
	}
	out = mustRunCLI(t, "account", "create", "-c", cfgPath, "--name", "Hanako", "--email", "hanako@example.com", "--mentor", "1")
	if !strings.Contains(out, "Created mentee 2") {
		t.Errorf("account create output = %q", out)
	}

	out = mustRunCLI(t, "group", "add", "-c", cfgPath, "--mentee", "2", "--name", "Backpacks")
	if !strings.Contains(out, "Created product group 1: Backpacks") {
		t.Errorf("group add output = %q", out)
	}

	out = mustRunCLI(t, "report", "submit", "-c", cfgPath,
		"--mentee", "2", "--group", "1", "--stage", "sample_approved", "--eval", "3",
		"--progress", "Sample arrived", "--learned", "Check stitching first")
	if !strings.Contains(out, "Submitted report 1: Backpacks at Sample approved") {
		t.Errorf("report submit output = %q", out)
	}

	out = mustRunCLI(t, "report", "comment", "1", "-c", cfgPath, "--mentor", "1", "--body", "Good pace")
	if !strings.Contains(out, "Added comment") {
		t.Errorf("report comment output = %q", out)
	}

	out = mustRunCLI(t, "report", "show", "1", "-c", cfgPath)
	for _, want := range []string{"Product group:   Backpacks", "Sample approved", "Check stitching first", "Good pace"} {
		if !strings.Contains(out, want) {
			t.Errorf("report show output missing %q:\n%s", want, out)
		}
	}

	out = mustRunCLI(t, "progress", "-c", cfgPath, "--mentee", "2")
	for _, want := range []string{"Progress for Hanako", "Backpacks", "GOOD", "Sample approved"} {
		if !strings.Contains(out, want) {
			t.Errorf("progress output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Needs attention") {
		t.Errorf("fresh group should not need attention:\n%s", out)
	}

	out = mustRunCLI(t, "analysis", "-c", cfgPath, "--mentee", "2", "--weeks", "4")
	if !strings.Contains(out, "Total reports: 1, average self evaluation 3.00") {
		t.Errorf("analysis output = %q", out)
	}

	out = mustRunCLI(t, "group", "rename", "1", "Daypacks", "-c", cfgPath)
	if !strings.Contains(out, "Renamed product group 1 to Daypacks") {
		t.Errorf("group rename output = %q", out)
	}
	out = mustRunCLI(t, "report", "list", "-c", cfgPath, "--mentee", "2")
	if !strings.Contains(out, "Daypacks") {
		t.Errorf("report list should show the renamed group:\n%s", out)
	}
}

func TestCLI_ProgressRejectsMentor(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)
	mustRunCLI(t, "db", "init", "-c", cfgPath)
	mustRunCLI(t, "account", "create", "-c", cfgPath, "--name", "Sato", "--email", "sato@example.com", "--role", "mentor")

	if _, err := runCLI(t, "", "progress", "-c", cfgPath, "--mentee", "1"); err == nil {
		t.Fatal("expected error when asking for a mentor's progress")
	}
}

func TestCLI_ReportSubmitBadDate(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)
	_, err := runCLI(t, "", "report", "submit", "-c", cfgPath, "--mentee", "2", "--group", "1", "--stage", "first_order", "--date", "10/19/2026")
	if err == nil || !strings.Contains(err.Error(), "YYYY-MM-DD") {
		t.Fatalf("expected date format error, got %v", err)
	}
}

func TestCLI_DBResetAborts(t *testing.T) {
	cfgPath, dir := writeTestConfig(t)
	mustRunCLI(t, "db", "init", "-c", cfgPath)

	out, err := runCLI(t, "no\n", "db", "reset", "-c", cfgPath)
	if err != nil {
		t.Fatalf("db reset: %v", err)
	}
	if !strings.Contains(out, "Aborted.") {
		t.Errorf("expected Aborted., got %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "instance", "mt.db")); err != nil {
		t.Errorf("database should survive an aborted reset: %v", err)
	}
}

func TestCLI_DBResetYes(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)
	mustRunCLI(t, "db", "init", "-c", cfgPath)
	mustRunCLI(t, "account", "create", "-c", cfgPath, "--name", "Sato", "--email", "sato@example.com", "--role", "mentor")

	out := mustRunCLI(t, "db", "reset", "-c", cfgPath, "--yes")
	if !strings.Contains(out, "Dropped") || !strings.Contains(out, "initialized successfully") {
		t.Errorf("db reset output = %q", out)
	}
	out = mustRunCLI(t, "account", "list", "-c", cfgPath)
	if !strings.Contains(out, "No accounts found.") {
		t.Errorf("accounts should be gone after reset:\n%s", out)
	}
}

func TestCLI_DigestSendWithoutPlatform(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)
	mustRunCLI(t, "db", "init", "-c", cfgPath)

	_, err := runCLI(t, "", "digest", "send", "-c", cfgPath)
	if err == nil || !strings.Contains(err.Error(), "no chat platform configured") {
		t.Fatalf("expected missing platform error, got %v", err)
	}
}

func TestCLI_DigestDryRun(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)
	mustRunCLI(t, "db", "init", "-c", cfgPath)

	out := mustRunCLI(t, "digest", "send", "--dry-run", "-c", cfgPath)
	if strings.TrimSpace(out) == "" {
		t.Error("dry run should print the digest text")
	}
}

func TestCLI_Backup(t *testing.T) {
	cfgPath, dir := writeTestConfig(t)
	mustRunCLI(t, "db", "init", "-c", cfgPath)

	out := mustRunCLI(t, "backup", "list", "-c", cfgPath)
	if !strings.Contains(out, "No backups in") {
		t.Errorf("backup list output = %q", out)
	}

	out = mustRunCLI(t, "backup", "create", "-c", cfgPath, "--kind", "data")
	if !strings.Contains(out, "Created ") || !strings.Contains(out, "MentorTrack_Backup_data_") {
		t.Errorf("backup create output = %q", out)
	}

	out = mustRunCLI(t, "backup", "list", "-c", cfgPath)
	if !strings.Contains(out, "MentorTrack_Backup_data_") {
		t.Errorf("backup list should show the archive:\n%s", out)
	}

	archives, err := filepath.Glob(filepath.Join(dir, "backups", "*.zip"))
	if err != nil || len(archives) != 1 {
		t.Fatalf("expected one archive, got %v (%v)", archives, err)
	}

	dest := t.TempDir()
	out, err = runCLI(t, "no\n", "backup", "restore", archives[0], "-c", cfgPath, "--dest", dest)
	if err != nil {
		t.Fatalf("backup restore: %v", err)
	}
	if !strings.Contains(out, "Aborted.") {
		t.Errorf("expected Aborted., got %q", out)
	}

	out = mustRunCLI(t, "backup", "restore", archives[0], "-c", cfgPath, "--dest", dest, "--yes")
	if !strings.Contains(out, "Restored ") {
		t.Errorf("backup restore output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(dest, "instance", "mt.db")); err != nil {
		t.Errorf("restored database missing: %v", err)
	}
}

func TestCLI_BackupUploadWithoutBucket(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)
	_, err := runCLI(t, "", "backup", "create", "-c", cfgPath, "--upload")
	if err == nil || !strings.Contains(err.Error(), "backup.s3.bucket") {
		t.Fatalf("expected bucket error, got %v", err)
	}
}

func TestCLI_BackupBadKind(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)
	if _, err := runCLI(t, "", "backup", "create", "-c", cfgPath, "--kind", "weekly"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
