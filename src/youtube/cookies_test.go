package youtube

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCookieJarMissingDir(t *testing.T) {
	jar := NewCookieJar(filepath.Join(t.TempDir(), "does-not-exist"))
	if got := jar.Pick(); got != "" {
		t.Errorf("Pick on a missing dir = %q, want empty", got)
	}
}

func TestCookieJarEmptyDir(t *testing.T) {
	jar := NewCookieJar(t.TempDir())
	if got := jar.Pick(); got != "" {
		t.Errorf("Pick on an empty dir = %q, want empty", got)
	}
}

func TestCookieJarPicksMembers(t *testing.T) {
	dir := t.TempDir()
	members := map[string]bool{}
	for _, name := range []string{"one.txt", "two.txt", "three.txt"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("# Netscape HTTP Cookie File\n"), 0644); err != nil {
			t.Fatal(err)
		}
		members[path] = true
	}
	// A stray non-cookie file must never be selected.
	if err := os.WriteFile(filepath.Join(dir, "notes.md"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	jar := NewCookieJar(dir)
	for i := 0; i < 50; i++ {
		picked := jar.Pick()
		if !members[picked] {
			t.Fatalf("Pick returned %q, not a cookie file", picked)
		}
	}
}

func TestCookieJarSeesNewFiles(t *testing.T) {
	dir := t.TempDir()
	jar := NewCookieJar(dir)
	if jar.Pick() != "" {
		t.Fatal("empty dir should yield no cookie")
	}

	path := filepath.Join(dir, "late.txt")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if got := jar.Pick(); got != path {
		t.Errorf("Pick after adding a file = %q, want %q", got, path)
	}
}
