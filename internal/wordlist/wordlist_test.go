package wordlist

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/nao1215/pausescan/internal/model"
)

// writeWordlist writes lines to a temporary word-list file.
func writeWordlist(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "words.txt")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write word list: %v", err)
	}
	return path
}

// TestLoad tests reading word-list files.
func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("reads all lines", func(t *testing.T) {
		t.Parallel()

		path := writeWordlist(t, "admin\nlogin\n\nsecret\n")
		lines, err := Load(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		expected := []string{"admin", "login", "", "secret"}
		if !reflect.DeepEqual(lines, expected) {
			t.Errorf("got %q, expected %q", lines, expected)
		}
	})

	t.Run("handles CRLF line endings", func(t *testing.T) {
		t.Parallel()

		path := writeWordlist(t, "admin\r\nlogin\r\n")
		lines, err := Load(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		candidates := Generate("http://x.test", lines, model.ModeDir, model.LengthFilter{})
		if len(candidates) != 2 || candidates[0].URL != "http://x.test/admin" {
			t.Errorf("unexpected candidates: %+v", candidates)
		}
	})

	t.Run("missing file returns ErrWordlistNotFound", func(t *testing.T) {
		t.Parallel()

		_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
		if !errors.Is(err, ErrWordlistNotFound) {
			t.Errorf("expected ErrWordlistNotFound, got %v", err)
		}
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected wrapped os.ErrNotExist, got %v", err)
		}
	})
}

// TestGenerate tests candidate generation for every mode.
func TestGenerate(t *testing.T) {
	t.Parallel()

	t.Run("dir mode joins words with a slash", func(t *testing.T) {
		t.Parallel()

		got := Generate("http://x.test", []string{"admin", "login", "secret"}, model.ModeDir, model.LengthFilter{})
		expected := []model.Candidate{
			{URL: "http://x.test/admin"},
			{URL: "http://x.test/login"},
			{URL: "http://x.test/secret"},
		}
		if !reflect.DeepEqual(got, expected) {
			t.Errorf("got %+v, expected %+v", got, expected)
		}
	})

	t.Run("base with trailing slash is not doubled", func(t *testing.T) {
		t.Parallel()

		got := Generate("http://x.test/", []string{"admin"}, model.ModeProbe, model.LengthFilter{})
		if len(got) != 1 || got[0].URL != "http://x.test/admin" {
			t.Errorf("unexpected candidates: %+v", got)
		}
	})

	t.Run("words are trimmed and blank lines skipped", func(t *testing.T) {
		t.Parallel()

		got := Generate("http://x.test", []string{"  admin  ", "", "   ", "\tlogin"}, model.ModeDir, model.LengthFilter{})
		if len(got) != 2 {
			t.Fatalf("expected 2 candidates, got %d", len(got))
		}
		if got[0].URL != "http://x.test/admin" || got[1].URL != "http://x.test/login" {
			t.Errorf("unexpected candidates: %+v", got)
		}
	})

	t.Run("vhost mode keeps URL and sets Host", func(t *testing.T) {
		t.Parallel()

		filter := model.ExcludeLength(512)
		got := Generate("http://10.0.0.1", []string{"dev.x.test", " api.x.test "}, model.ModeVhost, filter)
		expected := []model.Candidate{
			{URL: "http://10.0.0.1", Host: "dev.x.test", ExcludeLength: filter},
			{URL: "http://10.0.0.1", Host: "api.x.test", ExcludeLength: filter},
		}
		if !reflect.DeepEqual(got, expected) {
			t.Errorf("got %+v, expected %+v", got, expected)
		}
	})

	t.Run("path modes ignore exclude length", func(t *testing.T) {
		t.Parallel()

		got := Generate("http://x.test", []string{"admin"}, model.ModeDir, model.ExcludeLength(10))
		if got[0].ExcludeLength.Enabled {
			t.Error("path candidates must not carry an exclude length")
		}
	})

	t.Run("empty word list yields no candidates", func(t *testing.T) {
		t.Parallel()

		got := Generate("http://x.test", nil, model.ModeDir, model.LengthFilter{})
		if len(got) != 0 {
			t.Errorf("expected no candidates, got %d", len(got))
		}
	})

	t.Run("generation is idempotent", func(t *testing.T) {
		t.Parallel()

		words := strings.Split("a\nb\n\nc d\n/e", "\n")
		first := Generate("http://x.test", words, model.ModeDir, model.LengthFilter{})
		second := Generate("http://x.test", words, model.ModeDir, model.LengthFilter{})
		if !reflect.DeepEqual(first, second) {
			t.Errorf("generation differs between runs: %+v vs %+v", first, second)
		}
	})
}

// TestJoinPath tests the separator handling.
func TestJoinPath(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		base     string
		word     string
		expected string
	}{
		{"http://x.test", "admin", "http://x.test/admin"},
		{"http://x.test/", "admin", "http://x.test/admin"},
		{"http://x.test/api", "v1", "http://x.test/api/v1"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			t.Parallel()
			if got := JoinPath(tc.base, tc.word); got != tc.expected {
				t.Errorf("JoinPath(%q, %q) = %q, expected %q", tc.base, tc.word, got, tc.expected)
			}
		})
	}
}
