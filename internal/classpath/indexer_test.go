package classpath

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"

	"jls/internal/testutil"
)

func writeJar(t *testing.T, path string, entries map[string][]byte) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	if _, err := zw.Create("META-INF/"); err != nil {
		t.Fatal(err)
	}
	for name, data := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func writeClass(t *testing.T, dir, rel string, data []byte) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func joinClasspath(entries ...string) string {
	return strings.Join(entries, string(os.PathListSeparator))
}

func TestIndexJarAndDirectory(t *testing.T) {
	tmp := t.TempDir()
	jar := filepath.Join(tmp, "lib.jar")
	writeJar(t, jar, map[string][]byte{
		"com/lib/Util.class":   testutil.SimpleClass("com/lib/Util", map[string]string{"max": "(II)I"}),
		"com/lib/Text.class":   testutil.SimpleClass("com/lib/Text", map[string]string{"trim": "(Ljava/lang/String;)Ljava/lang/String;"}),
		"com/lib/README.txt":   []byte("not a class"),
		"com/lib/Broken.class": []byte("garbage"),
	})
	classes := filepath.Join(tmp, "classes")
	writeClass(t, classes, "app/Main.class", testutil.SimpleClass("app/Main", map[string]string{"main": "([Ljava/lang/String;)V"}))

	ix := NewIndexer(nil, Options{Workers: 3})
	idx, stats := ix.Index(context.Background(), joinClasspath(jar, classes))

	for _, name := range []string{"com.lib.Util", "com.lib.Text", "app.Main"} {
		if _, ok := idx[name]; !ok {
			t.Errorf("index missing %s (have %d classes)", name, len(idx))
		}
	}
	if len(idx) != 3 {
		t.Errorf("len(idx) = %d, want 3", len(idx))
	}
	if stats.Entries != 2 || stats.Decoded != 3 || stats.Failed != 1 || stats.Missing != 0 {
		t.Errorf("stats = %+v", stats)
	}

	util := idx["com.lib.Util"]
	if len(util.Methods) != 1 || util.Methods[0].Signature() != "public int max(int, int)" {
		t.Errorf("Util methods = %+v", util.Methods)
	}
}

func TestIndexSkipsMissingAndEmptyEntries(t *testing.T) {
	tmp := t.TempDir()
	classes := filepath.Join(tmp, "classes")
	writeClass(t, classes, "p/A.class", testutil.SimpleClass("p/A", nil))

	cp := joinClasspath("", filepath.Join(tmp, "nope.jar"), classes, " ")
	idx, stats := NewIndexer(nil, Options{}).Index(context.Background(), cp)

	if len(idx) != 1 {
		t.Errorf("len(idx) = %d, want 1", len(idx))
	}
	if stats.Entries != 2 || stats.Missing != 1 {
		t.Errorf("stats = %+v, want 2 entries with 1 missing", stats)
	}
}

func TestIndexEmptyClasspath(t *testing.T) {
	idx, stats := NewIndexer(nil, Options{}).Index(context.Background(), "")
	if len(idx) != 0 || stats.Entries != 0 {
		t.Errorf("empty classpath produced %d classes, %+v", len(idx), stats)
	}
}

func TestIndexFirstEntryWins(t *testing.T) {
	tmp := t.TempDir()
	first := filepath.Join(tmp, "first.jar")
	second := filepath.Join(tmp, "second.jar")
	writeJar(t, first, map[string][]byte{
		"dup/Shared.class": testutil.SimpleClass("dup/Shared", map[string]string{"fromFirst": "()V"}),
	})
	writeJar(t, second, map[string][]byte{
		"dup/Shared.class": testutil.SimpleClass("dup/Shared", map[string]string{"fromSecond": "()V"}),
		"dup/Other.class":  testutil.SimpleClass("dup/Other", nil),
	})

	idx, _ := NewIndexer(nil, Options{Workers: 2}).Index(context.Background(), joinClasspath(first, second))

	shared, ok := idx["dup.Shared"]
	if !ok {
		t.Fatal("dup.Shared not indexed")
	}
	if len(shared.Methods) != 1 || shared.Methods[0].Name != "fromFirst" {
		t.Errorf("dup.Shared methods = %+v, want the first entry's", shared.Methods)
	}
	if _, ok := idx["dup.Other"]; !ok {
		t.Error("dup.Other from the second entry should still be indexed")
	}
}

func TestIndexCorruptArchive(t *testing.T) {
	tmp := t.TempDir()
	bad := filepath.Join(tmp, "bad.jar")
	if err := os.WriteFile(bad, []byte("PK not really"), 0o644); err != nil {
		t.Fatal(err)
	}
	classes := filepath.Join(tmp, "classes")
	writeClass(t, classes, "p/B.class", testutil.SimpleClass("p/B", nil))

	idx, stats := NewIndexer(nil, Options{}).Index(context.Background(), joinClasspath(bad, classes))
	if _, ok := idx["p.B"]; !ok || len(idx) != 1 {
		t.Errorf("idx = %v, want only p.B", idx)
	}
	if stats.Entries != 2 {
		t.Errorf("Entries = %d, want 2", stats.Entries)
	}
}

func TestIndexCustomExtension(t *testing.T) {
	classes := t.TempDir()
	writeClass(t, classes, "p/A.class", testutil.SimpleClass("p/A", nil))
	writeClass(t, classes, "p/B.bin", testutil.SimpleClass("p/B", nil))

	idx, _ := NewIndexer(nil, Options{ClassExtension: ".bin"}).Index(context.Background(), classes)
	if _, ok := idx["p.B"]; !ok || len(idx) != 1 {
		t.Errorf("idx keys = %v, want only p.B", keys(idx))
	}
}

func TestIndexCanceledContext(t *testing.T) {
	classes := t.TempDir()
	writeClass(t, classes, "p/A.class", testutil.SimpleClass("p/A", nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	idx, stats := NewIndexer(nil, Options{}).Index(ctx, classes)
	if len(idx) != 0 || stats.Entries != 0 {
		t.Errorf("canceled index produced %d classes, %+v", len(idx), stats)
	}
}

func keys(idx Index) []string {
	out := make([]string, 0, len(idx))
	for k := range idx {
		out = append(out, k)
	}
	return out
}
