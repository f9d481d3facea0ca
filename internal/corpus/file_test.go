package corpus

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/postpilot/internal/models"
)

func TestLoadPreservesUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.json")
	body := `[{"text": "hello", "engagement": 120, "author": "me"}]`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	posts, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}
	if text, _ := posts[0].Text(); text != "hello" {
		t.Fatalf("unexpected text %q", text)
	}
	if posts[0]["engagement"] != json.Number("120") || posts[0]["author"] != "me" {
		t.Fatalf("unknown keys not preserved: %v", posts[0])
	}
}

func TestDecodeRejectsNonArray(t *testing.T) {
	cases := []string{``, `{"text": "x"}`, `"text"`, `[1, 2]`, `[null]`, `[{"text": "x"}] {"text": "y"}`, `[] []`}
	for _, c := range cases {
		if _, err := Decode([]byte(c)); !errors.Is(err, ErrNotArray) {
			t.Errorf("Decode(%q): expected ErrNotArray, got %v", c, err)
		}
	}
}

func TestDecodeWritePreservesNumbers(t *testing.T) {
	posts, err := Decode([]byte(`[{"text":"x","id":7123456789012345679,"score":1.0}]`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	var buf bytes.Buffer
	if err := Write(&buf, posts); err != nil {
		t.Fatalf("Write: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, `"id": 7123456789012345679`) {
		t.Fatalf("large integer altered:\n%s", out)
	}
	if !strings.Contains(out, `"score": 1.0`) {
		t.Fatalf("float literal altered:\n%s", out)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestWriteFormatting(t *testing.T) {
	var buf bytes.Buffer
	posts := []models.Post{{"text": "Aaj ka din <great> hai 🚀"}}
	if err := Write(&buf, posts); err != nil {
		t.Fatalf("Write: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "\n    {\n        \"text\"") {
		t.Fatalf("expected four-space indentation, got:\n%s", out)
	}
	if !strings.Contains(out, "<great>") || !strings.Contains(out, "🚀") {
		t.Fatalf("expected unescaped text, got:\n%s", out)
	}
}

func TestWriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Fatalf("expected empty array, got %q", buf.String())
	}
}

func TestSaveCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "processed.json")
	posts := []models.Post{
		models.Post{"text": "one"}.WithMetadata(models.Metadata{LineCount: 1, Language: models.LanguageEnglish, Tags: []string{"Mood"}}),
	}
	if err := Save(path, posts); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected 1 post, got %d", len(loaded))
	}
	if n, ok := loaded[0].LineCount(); !ok || n != 1 || !loaded[0].HasTag("Mood") {
		t.Fatalf("unexpected round trip result %v", loaded)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp file to be cleaned up, found %d entries", len(entries))
	}
}
