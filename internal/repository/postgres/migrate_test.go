package postgres

import (
	"io"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"blockdocs/db/migrations"
)

func TestPrefixFS(t *testing.T) {
	base := fstest.MapFS{
		"000001_init.up.sql": {Data: []byte("CREATE TABLE {{prefix}}documents (id UUID);\nCREATE INDEX {{prefix}}documents_idx ON {{prefix}}documents (id);")},
		"README.md":          {Data: []byte("{{prefix}} stays")},
	}
	pfs := NewPrefixFS(base, "test_")

	data, err := fs.ReadFile(pfs, "000001_init.up.sql")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "{{prefix}}") || !strings.Contains(string(data), "CREATE TABLE test_documents") {
		t.Errorf("rendered = %s", data)
	}

	f, err := pfs.Open("README.md")
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := io.ReadAll(f)
	f.Close()
	if string(raw) != "{{prefix}} stays" {
		t.Errorf("non-sql file rewritten: %s", raw)
	}

	entries, err := pfs.ReadDir(".")
	if err != nil || len(entries) != 2 {
		t.Errorf("ReadDir() = %v, %v", entries, err)
	}
}

func TestEmbeddedMigrations_UsePlaceholder(t *testing.T) {
	pfs := NewPrefixFS(migrations.Files, "dev_")
	entries, err := fs.ReadDir(pfs, ".")
	if err != nil {
		t.Fatal(err)
	}

	var sqlFiles int
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		sqlFiles++
		data, err := fs.ReadFile(pfs, e.Name())
		if err != nil {
			t.Fatal(err)
		}
		if strings.Contains(string(data), "{{prefix}}") {
			t.Errorf("%s: placeholder not substituted", e.Name())
		}
		if !strings.Contains(string(data), "dev_") {
			t.Errorf("%s: no prefixed identifiers", e.Name())
		}
	}
	if sqlFiles != 4 {
		t.Errorf("sql files = %d, want 4", sqlFiles)
	}
}
