package archive

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// buildZip writes a zip archive containing the given entries in order.
func buildZip(t *testing.T, names []string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("unable to create archive: %v", err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for _, name := range names {
		entry, err := w.Create(name)
		if err != nil {
			t.Fatalf("unable to create entry %q: %v", name, err)
		}
		if _, err := entry.Write([]byte("# Wonder Lake\n")); err != nil {
			t.Fatalf("unable to write entry %q: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("unable to finish archive: %v", err)
	}
	return path
}

func TestWalk_NaturalOrder(t *testing.T) {
	// packed out of order on purpose
	path := buildZip(t, []string{"sites/core-10.txt", "sites/core-2.txt", "sites/core-1.txt"})

	var visited []string
	err := Walk(path, "sites/", func(_ string, f *zip.File) error {
		visited = append(visited, f.FileHeader.Name)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}

	want := []string{"sites/core-1.txt", "sites/core-2.txt", "sites/core-10.txt"}
	if len(visited) != len(want) {
		t.Fatalf("visited %d entries, want %d", len(visited), len(want))
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Errorf("visited[%d] = %q, want %q", i, visited[i], want[i])
		}
	}
}

func TestWalk_PrefixFilter(t *testing.T) {
	path := buildZip(t, []string{"a/one.txt", "b/two.txt", "a/three.txt"})

	count := 0
	err := Walk(path, "a/", func(_ string, _ *zip.File) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if count != 2 {
		t.Errorf("visited %d entries, want 2", count)
	}
}

func TestWalk_CallbackErrorStops(t *testing.T) {
	path := buildZip(t, []string{"one.txt", "two.txt"})

	sentinel := errors.New("stop")
	count := 0
	err := Walk(path, "", func(_ string, _ *zip.File) error {
		count++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("Walk() error = %v, want %v", err, sentinel)
	}
	if count != 1 {
		t.Errorf("visited %d entries after error, want 1", count)
	}
}

func TestWalk_UnsafePath(t *testing.T) {
	path := buildZip(t, []string{"../escape.txt"})

	err := Walk(path, "", func(_ string, _ *zip.File) error { return nil })
	if err == nil {
		t.Error("expected error for path traversal entry")
	}
}

func TestWalk_MissingArchive(t *testing.T) {
	if err := Walk("/nonexistent/archive.zip", "", nil); err == nil {
		t.Error("expected error for missing archive")
	}
}

func TestIsSafePath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want bool
	}{
		{"plain", "dir/file.txt", true},
		{"absolute", "/etc/passwd", false},
		{"backslash", `\windows`, false},
		{"traversal", "a/../../b", false},
		{"dot", "./file.txt", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isSafePath(tt.path); got != tt.want {
				t.Errorf("isSafePath(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
