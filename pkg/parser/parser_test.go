package parser

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exploopio/reconkit/pkg/compress"
	"github.com/exploopio/reconkit/pkg/errors"
	"github.com/exploopio/reconkit/pkg/extract"
	"github.com/exploopio/reconkit/pkg/metrics"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newParser(opts ...Option) *Parser {
	return New(extract.New(nil), opts...)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path     string
		expected Format
	}{
		{"report.txt", FormatTXT},
		{"REPORT.TXT", FormatTXT},
		{"data.json", FormatJSON},
		{"rows.csv", FormatCSV},
		{"page.html", FormatHTML},
		{"page.HTM", FormatHTML},
		{"web-scan_nuclei_2024-01-02_03-04-05.txt.zst", FormatTXT},
		{"archive.json.gz", FormatJSON},
		{"binary.exe", FormatUnknown},
		{"noext", FormatUnknown},
		{"report.zst", FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectFormat(tt.path))
		})
	}
}

func TestParseTXT(t *testing.T) {
	records, err := newParser().ParseTXT(strings.NewReader("CVE-2021-44228 on 10.0.0.5\r\n\nlast line no newline"))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"CVE-2021-44228"}, records[0].CVE)
	assert.Equal(t, []string{"10.0.0.5"}, records[0].IP)
	assert.True(t, records[1].Empty())
	assert.True(t, records[2].Empty())
}

func TestParseTXT_CarriageReturnLines(t *testing.T) {
	records, err := newParser().ParseTXT(strings.NewReader("CVE-2021-44228\r10.0.0.5\r\rtail\r\nend\r"))
	require.NoError(t, err)
	require.Len(t, records, 5)

	assert.Equal(t, []string{"CVE-2021-44228"}, records[0].CVE)
	assert.Equal(t, []string{"10.0.0.5"}, records[1].IP)
	assert.True(t, records[2].Empty())
	assert.True(t, records[3].Empty())
	assert.True(t, records[4].Empty())
}

func TestParseJSON(t *testing.T) {
	v, err := ParseJSON(strings.NewReader(`[{"host":"a.example.com","port":443}]`))
	require.NoError(t, err)

	list, ok := v.([]any)
	require.True(t, ok)
	assert.Equal(t, "a.example.com", list[0].(map[string]any)["host"])

	_, err = ParseJSON(strings.NewReader(`{"a":1} {"b":2}`))
	assert.Error(t, err)

	_, err = ParseJSON(strings.NewReader(`{broken`))
	assert.Equal(t, errors.KindInvalidInput, errors.GetKind(err))
}

func TestParseCSV(t *testing.T) {
	rows, err := ParseCSV(strings.NewReader("host,ip\nexample.com,93.184.216.34\ntest.com,1.2.3.4\n"))
	require.NoError(t, err)
	assert.Equal(t, []map[string]string{
		{"host": "example.com", "ip": "93.184.216.34"},
		{"host": "test.com", "ip": "1.2.3.4"},
	}, rows)

	rows, err = ParseCSV(strings.NewReader("host,ip\n"))
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = ParseCSV(strings.NewReader(""))
	assert.Error(t, err)

	_, err = ParseCSV(strings.NewReader("a,b\n1,2,3\n"))
	assert.Equal(t, errors.KindInvalidInput, errors.GetKind(err))
}

func TestParseCSV_ShortRowsArePadded(t *testing.T) {
	rows, err := ParseCSV(strings.NewReader("host,port,note\nexample.com,80\ntest.com,443,tls\n"))
	require.NoError(t, err)
	assert.Equal(t, []map[string]string{
		{"host": "example.com", "port": "80", "note": ""},
		{"host": "test.com", "port": "443", "note": "tls"},
	}, rows)
}

func TestParseHTML(t *testing.T) {
	doc := `<html><head><title>Scan</title><style>p{color:red}</style></head>
<body><p>Found <b>CVE-2021-44228</b></p><script>var x = "hidden";</script></body></html>`

	got, err := ParseHTML(strings.NewReader(doc))
	require.NoError(t, err)

	text := got["text"]
	assert.Contains(t, text, "Scan")
	assert.Contains(t, text, "Found CVE-2021-44228")
	assert.NotContains(t, text, "hidden")
	assert.NotContains(t, text, "color:red")
}

func TestParseHTML_NoscriptIsText(t *testing.T) {
	got, err := ParseHTML(strings.NewReader(`<body><noscript>enable JavaScript</noscript><template>tpl</template></body>`))
	require.NoError(t, err)
	assert.Contains(t, got["text"], "enable JavaScript")
	assert.NotContains(t, got["text"], "tpl")
}

func TestParseFile_Unsupported(t *testing.T) {
	path := writeFile(t, t.TempDir(), "scan.xml", "<xml/>")

	res, err := newParser().ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, FormatUnknown, res.Format)
	assert.Equal(t, map[string]string{"error": "Unsupported file format"}, res.Data)
	assert.Empty(t, res.Records)
}

func TestParseFile_Compressed(t *testing.T) {
	dir := t.TempDir()
	data, err := compress.DefaultZSTD.Compress([]byte("admin@example.com\n"))
	require.NoError(t, err)
	path := filepath.Join(dir, "web-scan_sqlmap_2024-01-02_03-04-05.txt.zst")
	require.NoError(t, os.WriteFile(path, data, 0644))

	res, err := newParser().ParseFile(path)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, []string{"admin@example.com"}, res.Records[0].Email)
}

func TestParseFile_InvalidUTF8(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.txt", "ok\xff\xfe")

	_, err := newParser().ParseFile(path)
	assert.Equal(t, errors.KindInvalidInput, errors.GetKind(err))
}

func TestParseDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "CVE-2023-1234\nhttp://example.com/login\n")
	writeFile(t, dir, "b.json", `[{"cve":"CVE-2020-0001"}]`)
	writeFile(t, dir, "c.csv", "ip\n10.0.0.1\n")
	writeFile(t, dir, "d.html", "<p>10.0.0.2</p>")
	writeFile(t, dir, "e.bin", "\x00\x01")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.txt"), 0755))

	collector := metrics.NewInMemoryCollector()
	records, summary, err := newParser(WithMetrics(collector)).ParseDirectory(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, records, 2, "only the text file contributes records")
	assert.Equal(t, "a.txt", records[0].FileName)
	assert.Equal(t, "a.txt", records[1].FileName)
	assert.Equal(t, []string{"CVE-2023-1234"}, records[0].CVE)
	assert.Equal(t, []string{"http://example.com/login"}, records[1].URL)

	assert.Equal(t, 5, summary.Files)
	assert.Equal(t, 2, summary.Records)
	assert.Equal(t, []string{"e.bin"}, summary.Unsupported)
	assert.Equal(t, 1, summary.ByFormat[FormatJSON])

	assert.Equal(t, float64(1), collector.GetCounter(metrics.FilesParsedTotal.Name, "format", "txt"))
	assert.Equal(t, float64(2), collector.GetCounter(metrics.RecordsExtractedTotal.Name))
}

func TestParseDirectory_JSONOnlyYieldsNothing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "findings.json", `[{"ip":"10.0.0.1"},{"ip":"10.0.0.2"}]`)

	records, _, err := newParser().ParseDirectory(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseDirectory_ErrorAbortsBatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "CVE-2023-1234\n")
	writeFile(t, dir, "b.json", `{not json`)

	records, _, err := newParser().ParseDirectory(context.Background(), dir)
	require.Error(t, err)
	assert.Nil(t, records)
	assert.Contains(t, err.Error(), "b.json")
}

func TestParseDirectory_RaggedCSVKeepsBatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "CVE-2023-1234\n")
	writeFile(t, dir, "b.csv", "host,port,note\nexample.com,80\n")

	records, summary, err := newParser().ParseDirectory(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"CVE-2023-1234"}, records[0].CVE)
	assert.Equal(t, 1, summary.ByFormat[FormatCSV])
}

func TestParseDirectory_Missing(t *testing.T) {
	_, _, err := newParser().ParseDirectory(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.True(t, errors.IsNotFoundError(err))
}

func TestParseDirectory_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "x\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := newParser().ParseDirectory(ctx, dir)
	assert.Error(t, err)
}
