package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// testVault points the environment at a fresh vault with an Inbox folder
// and returns the vault directory.
func testVault(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "Inbox"), 0755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CATCH_VAULT_DIR", dir)
	t.Setenv("CATCH_CONFIG_DIR", t.TempDir())
	t.Setenv("CATCH_NOTIFY", "false")
	t.Setenv("CATCH_LOG_DIR", "")
	t.Setenv("CATCH_JOURNAL", "")
	return dir
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(args, &stdout, &stderr)
	return stdout.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCmd(t, args...)
	if err != nil {
		t.Fatalf("catch %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestVersion(t *testing.T) {
	testVault(t)
	for _, args := range [][]string{{"version"}, {"-version"}} {
		if out := mustRun(t, args...); !strings.HasPrefix(out, "catch "+version) {
			t.Errorf("catch %v = %q", args, out)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	testVault(t)
	if _, err := runCmd(t, "frobnicate"); err == nil {
		t.Error("unknown command should fail")
	}
}

func TestAddCreatesNote(t *testing.T) {
	dir := testVault(t)
	mustRun(t, "config", "set", "inboxFolder", "Inbox")
	mustRun(t, "config", "set", "template", "- ")

	out := mustRun(t, "add", "buy", "milk")

	if !strings.Contains(out, "✅ 'buy milk.md' created in 'Inbox'") {
		t.Errorf("output = %q", out)
	}
	data, err := os.ReadFile(filepath.Join(dir, "Inbox", "buy milk.md"))
	if err != nil {
		t.Fatalf("note not created: %v", err)
	}
	if string(data) != "- " {
		t.Errorf("content = %q, want %q", data, "- ")
	}
}

func TestAddExistingNoteFails(t *testing.T) {
	testVault(t)
	mustRun(t, "config", "set", "inboxFolder", "Inbox")
	mustRun(t, "add", "once")

	out, err := runCmd(t, "add", "once")
	if !errors.Is(err, errCaptureFailed) {
		t.Errorf("second add = %v, want errCaptureFailed", err)
	}
	if !strings.HasPrefix(out, "🚫 Error:") {
		t.Errorf("output = %q, want error message", out)
	}
}

func TestAddWithoutFolderFails(t *testing.T) {
	testVault(t)
	out, err := runCmd(t, "add", "x")
	if !errors.Is(err, errCaptureFailed) {
		t.Errorf("add = %v, want errCaptureFailed", err)
	}
	if !strings.Contains(out, "inbox folder not configured") {
		t.Errorf("output = %q", out)
	}
}

func TestAddRequiresText(t *testing.T) {
	testVault(t)
	if _, err := runCmd(t, "add", "  "); err == nil {
		t.Error("add without text should fail")
	}
}

func TestConfigGetSet(t *testing.T) {
	testVault(t)

	if got := mustRun(t, "config", "get", "port"); got != "8980\n" {
		t.Errorf("default port = %q, want 8980", got)
	}
	mustRun(t, "config", "set", "port", "9001")
	mustRun(t, "config", "set", "webserver", "true")

	if got := mustRun(t, "config", "get", "port"); got != "9001\n" {
		t.Errorf("port = %q, want 9001", got)
	}
	all := mustRun(t, "config")
	if !strings.Contains(all, `webserver = "true"`) || !strings.Contains(all, `port = "9001"`) {
		t.Errorf("config get = %q", all)
	}

	if _, err := runCmd(t, "config", "set", "webserver", "maybe"); err == nil {
		t.Error("non-boolean webserver should fail")
	}
	if _, err := runCmd(t, "config", "set", "colour", "blue"); err == nil {
		t.Error("unknown key should fail")
	}
	if _, err := runCmd(t, "config", "get", "colour"); err == nil {
		t.Error("unknown key should fail")
	}
}

func TestConfigYAMLFile(t *testing.T) {
	testVault(t)
	path := filepath.Join(t.TempDir(), "catch.yaml")

	mustRun(t, "-config", path, "config", "set", "inboxFolder", "Inbox")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "inboxFolder: Inbox") {
		t.Errorf("yaml settings = %q", data)
	}
	if got := mustRun(t, "-config", path, "config", "get", "inboxFolder"); got != "Inbox\n" {
		t.Errorf("inboxFolder = %q", got)
	}
}

func TestExplicitConfigMustParse(t *testing.T) {
	testVault(t)
	path := filepath.Join(t.TempDir(), "settings.json")
	os.WriteFile(path, []byte("{broken"), 0600)

	if _, err := runCmd(t, "-config", path, "config"); err == nil {
		t.Error("an unreadable explicit settings file should fail")
	}
}

func TestFolders(t *testing.T) {
	dir := testVault(t)
	os.MkdirAll(filepath.Join(dir, "Projects"), 0755)
	os.MkdirAll(filepath.Join(dir, ".obsidian"), 0755)
	mustRun(t, "config", "set", "inboxFolder", "Inbox")

	out := mustRun(t, "folders")

	for _, want := range []string{"/ (vault-level)", "* /Inbox", "/Projects"} {
		if !strings.Contains(out, want) {
			t.Errorf("folders output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, ".obsidian") {
		t.Errorf("hidden folder listed:\n%s", out)
	}
}

func TestList(t *testing.T) {
	testVault(t)
	if _, err := runCmd(t, "list"); err == nil {
		t.Error("list without inbox folder should fail")
	}

	mustRun(t, "config", "set", "inboxFolder", "Inbox")
	mustRun(t, "config", "set", "template", "remember this")
	mustRun(t, "add", "call mom")

	out := mustRun(t, "list", "-n", "5")
	if !strings.Contains(out, "call mom") || !strings.Contains(out, "remember this") {
		t.Errorf("list output = %q", out)
	}
}

func TestLog(t *testing.T) {
	testVault(t)
	if _, err := runCmd(t, "log"); err == nil {
		t.Error("log without a journal should fail")
	}

	t.Setenv("CATCH_JOURNAL", filepath.Join(t.TempDir(), "journal.db"))
	mustRun(t, "config", "set", "inboxFolder", "Inbox")
	mustRun(t, "add", "first")
	runCmd(t, "add", "first")

	out := mustRun(t, "log")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("log lines = %d, want 2:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "🚫 Error:") || !strings.Contains(lines[1], "✅") {
		t.Errorf("log output not newest first:\n%s", out)
	}
}

func TestPreview(t *testing.T) {
	if got := preview("a  b\nc", 10); got != "a b c" {
		t.Errorf("preview = %q, want %q", got, "a b c")
	}
	if got := preview("abcdefghij", 5); got != "abcd…" {
		t.Errorf("preview = %q, want %q", got, "abcd…")
	}
}
