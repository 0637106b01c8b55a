package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exploopio/reconkit/pkg/compress"
)

var fixedNow = time.Date(2024, 3, 9, 7, 5, 1, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func TestFilename(t *testing.T) {
	got := Filename("/home/kali", "nuclei", fixedNow)
	assert.Equal(t, "/home/kali/web-scan_nuclei_2024-03-09_07-05-01.txt", got)
}

func TestContent(t *testing.T) {
	tests := []struct {
		name     string
		stdout   string
		stderr   string
		expected string
	}{
		{"stdout only", "X", "", "X"},
		{"with stderr", "X", "E", "X\n--- Errors ---\nE"},
		{"stderr only", "", "E", "\n--- Errors ---\nE"},
		{"empty", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(Content([]byte(tt.stdout), []byte(tt.stderr))))
		})
	}
}

func TestWriter_Write(t *testing.T) {
	dir := t.TempDir()
	w := &Writer{Dir: dir, Clock: fixedClock}

	a, err := w.Write("sqlmap", []byte("X"), nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "web-scan_sqlmap_2024-03-09_07-05-01.txt"), a.Path)
	assert.Equal(t, compress.AlgorithmNone, a.Compression)

	data, err := os.ReadFile(a.Path)
	require.NoError(t, err)
	assert.Equal(t, "X", string(data))
}

func TestWriter_WriteWithStderr(t *testing.T) {
	w := &Writer{Dir: t.TempDir(), Clock: fixedClock}

	a, err := w.Write("nuclei", []byte("found"), []byte("warning"))
	require.NoError(t, err)

	data, err := os.ReadFile(a.Path)
	require.NoError(t, err)
	assert.Equal(t, "found\n--- Errors ---\nwarning", string(data))
}

func TestWriter_SameSecondOverwrites(t *testing.T) {
	w := &Writer{Dir: t.TempDir(), Clock: fixedClock}

	first, err := w.Write("nuclei", []byte("first"), nil)
	require.NoError(t, err)
	second, err := w.Write("nuclei", []byte("second"), nil)
	require.NoError(t, err)

	assert.Equal(t, first.Path, second.Path)
	data, _ := os.ReadFile(second.Path)
	assert.Equal(t, "second", string(data))
}

func TestWriter_Compressed(t *testing.T) {
	w := &Writer{Dir: t.TempDir(), Clock: fixedClock, Compression: compress.AlgorithmZSTD}

	assert.Equal(t, ".zst", filepath.Ext(w.Plan("wapiti")))

	a, err := w.Write("wapiti", []byte("scan output"), []byte("err"))
	require.NoError(t, err)

	raw, err := os.ReadFile(a.Path)
	require.NoError(t, err)
	plain, err := compress.DefaultZSTD.Decompress(raw)
	require.NoError(t, err)
	assert.Equal(t, "scan output\n--- Errors ---\nerr", string(plain))
}

func TestWriter_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports", "nested")
	w := &Writer{Dir: dir, Clock: fixedClock}

	_, err := w.Write("subfinder", []byte("a.example.com\n"), nil)
	require.NoError(t, err)
	assert.DirExists(t, dir)
}

func TestDefaultDir(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	assert.Equal(t, "/home/tester", DefaultDir())
}
