// Package parser reads scan result files of several formats and turns plain
// text reports into extraction records.
package parser

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/exploopio/reconkit/pkg/compress"
	"github.com/exploopio/reconkit/pkg/core"
	"github.com/exploopio/reconkit/pkg/errors"
	"github.com/exploopio/reconkit/pkg/extract"
	"github.com/exploopio/reconkit/pkg/metrics"
)

// Format is a detected input file format.
type Format string

const (
	FormatTXT     Format = "txt"
	FormatJSON    Format = "json"
	FormatCSV     Format = "csv"
	FormatHTML    Format = "html"
	FormatUnknown Format = "unknown"
)

// DetectFormat maps the lower-cased extension of path to a Format.
// A trailing compression suffix (.zst, .gz) is ignored.
func DetectFormat(path string) Format {
	_, plain := compress.FromPath(path)
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(plain), ".")) {
	case "txt":
		return FormatTXT
	case "json":
		return FormatJSON
	case "csv":
		return FormatCSV
	case "html", "htm":
		return FormatHTML
	default:
		return FormatUnknown
	}
}

// Result is the outcome of parsing one file.
//
// Records is set for text files only. Data carries the generic value for the
// other formats, or {"error": "Unsupported file format"} for unknown ones.
type Result struct {
	Path    string
	Format  Format
	Records []extract.Record
	Data    any
}

// IsRecordList reports whether the result contributes records to a batch.
func (r *Result) IsRecordList() bool {
	return r.Format == FormatTXT
}

// UnsupportedMarker is the inline value returned for unknown extensions.
func UnsupportedMarker() map[string]string {
	return map[string]string{"error": errors.ErrUnsupportedFormat.Message}
}

// Parser parses files and directories.
type Parser struct {
	extractor *extract.Extractor
	logger    core.Logger
	metrics   metrics.Collector
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger.
func WithLogger(l core.Logger) Option {
	return func(p *Parser) { p.logger = l }
}

// WithMetrics sets the metrics collector.
func WithMetrics(c metrics.Collector) Option {
	return func(p *Parser) { p.metrics = c }
}

// New creates a parser that extracts text lines with extractor.
func New(extractor *extract.Extractor, opts ...Option) *Parser {
	p := &Parser{
		extractor: extractor,
		logger:    core.GetDefaultLogger(),
		metrics:   metrics.GetDefaultCollector(),
	}
	if p.extractor == nil {
		p.extractor = extract.New(nil)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// =============================================================================
// Per-format readers
// =============================================================================

// ParseTXT extracts one record per line. "\n", "\r\n" and a lone "\r" all
// end a line and are stripped.
func (p *Parser) ParseTXT(r io.Reader) ([]extract.Record, error) {
	var records []extract.Record
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
			for _, text := range strings.Split(line, "\r") {
				rec, xerr := p.extractor.Line(text)
				if xerr != nil {
					return nil, errors.E(errors.KindInternal, "parser.ParseTXT", "extract line", xerr)
				}
				records = append(records, rec)
			}
		}
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, errors.E(errors.KindIO, "parser.ParseTXT", "read", err)
		}
	}
}

// ParseJSON decodes a whole document into a generic value.
func ParseJSON(r io.Reader) (any, error) {
	var v any
	dec := json.NewDecoder(r)
	if err := dec.Decode(&v); err != nil {
		return nil, errors.E(errors.KindInvalidInput, "parser.ParseJSON", "decode", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.E(errors.KindInvalidInput, "parser.ParseJSON", "trailing data after document")
	}
	return v, nil
}

// ParseCSV reads rows keyed by the header row. Columns missing from a short
// row are empty; a row longer than the header is an error.
func ParseCSV(r io.Reader) ([]map[string]string, error) {
	const op = "parser.ParseCSV"

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.E(errors.KindInvalidInput, op, "no columns to parse")
	}
	if err != nil {
		return nil, errors.E(errors.KindInvalidInput, op, "read header", err)
	}

	rows := []map[string]string{}
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, errors.E(errors.KindInvalidInput, op, "read row", err)
		}
		if len(fields) > len(header) {
			line, _ := cr.FieldPos(0)
			return nil, errors.E(errors.KindInvalidInput, op,
				fmt.Sprintf("line %d: expected %d fields, saw %d", line, len(header), len(fields)))
		}
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(fields) {
				row[name] = fields[i]
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}
}

// ParseHTML returns the document text under the "text" key. Script and
// style contents are not text.
func ParseHTML(r io.Reader) (map[string]string, error) {
	var sb strings.Builder
	z := html.NewTokenizer(r)
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return nil, errors.E(errors.KindIO, "parser.ParseHTML", "tokenize", err)
			}
			return map[string]string{"text": sb.String()}, nil
		case html.StartTagToken:
			if isHiddenElement(z) {
				skip++
			}
		case html.EndTagToken:
			if isHiddenElement(z) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
			}
		}
	}
}

func isHiddenElement(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	switch string(name) {
	case "script", "style", "template":
		return true
	}
	return false
}

// =============================================================================
// Files and directories
// =============================================================================

// ParseFile detects the format of path and parses it. Unknown extensions are
// not an error: the result carries UnsupportedMarker and no records.
func (p *Parser) ParseFile(path string) (*Result, error) {
	const op = "parser.ParseFile"

	format := DetectFormat(path)
	result := &Result{Path: path, Format: format}
	p.metrics.CounterInc(metrics.FilesParsedTotal.Name, "format", string(format))

	if format == FormatUnknown {
		result.Data = UnsupportedMarker()
		return result, nil
	}

	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, errors.E(errors.KindInvalidInput, op, fmt.Sprintf("%s is not valid UTF-8", path))
	}

	r := bytes.NewReader(data)
	switch format {
	case FormatTXT:
		result.Records, err = p.ParseTXT(r)
		if err == nil {
			p.metrics.CounterAdd(metrics.RecordsExtractedTotal.Name, float64(len(result.Records)))
		}
	case FormatJSON:
		result.Data, err = ParseJSON(r)
	case FormatCSV:
		result.Data, err = ParseCSV(r)
	case FormatHTML:
		result.Data, err = ParseHTML(r)
	}
	if err != nil {
		return nil, errors.WrapWithMessage(err, path)
	}
	return result, nil
}

func readFile(path string) ([]byte, error) {
	const op = "parser.readFile"

	data, err := os.ReadFile(path)
	if err != nil {
		kind := errors.KindIO
		if os.IsNotExist(err) {
			kind = errors.KindNotFound
		}
		return nil, errors.E(kind, op, path, err)
	}

	alg, _ := compress.FromPath(path)
	if alg == compress.AlgorithmNone {
		return data, nil
	}
	plain, err := compress.For(alg).Decompress(data)
	if err != nil {
		return nil, errors.E(errors.KindInvalidInput, op, fmt.Sprintf("decompress %s", path), err)
	}
	return plain, nil
}

// Summary describes a parsed directory.
type Summary struct {
	Directory   string
	Files       int
	ByFormat    map[Format]int
	Records     int
	Unsupported []string
}

// ParseDirectory parses every regular file in dir, in name order. Records of
// text files are tagged with the file's base name and collected; other
// formats are parsed but contribute nothing. The first read or decode error
// aborts the batch.
func (p *Parser) ParseDirectory(ctx context.Context, dir string) ([]extract.Record, *Summary, error) {
	const op = "parser.ParseDirectory"

	entries, err := os.ReadDir(dir)
	if err != nil {
		kind := errors.KindIO
		if os.IsNotExist(err) {
			kind = errors.KindNotFound
		}
		return nil, nil, errors.E(kind, op, dir, err)
	}

	summary := &Summary{Directory: dir, ByFormat: make(map[Format]int)}
	var records []extract.Record

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, nil, errors.E(errors.KindInternal, op, "cancelled", err)
		}

		path := filepath.Join(dir, entry.Name())
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		result, err := p.ParseFile(path)
		if err != nil {
			return nil, nil, errors.Wrap(err, op)
		}

		summary.Files++
		summary.ByFormat[result.Format]++
		if result.Format == FormatUnknown {
			summary.Unsupported = append(summary.Unsupported, entry.Name())
			p.logger.Warn("skipping %s: %s", entry.Name(), errors.ErrUnsupportedFormat.Message)
			continue
		}
		if !result.IsRecordList() {
			p.logger.Debug("parsed %s (%s), not persisted", entry.Name(), result.Format)
			continue
		}

		for _, rec := range result.Records {
			rec.FileName = entry.Name()
			records = append(records, rec)
		}
		p.logger.Debug("parsed %s: %d records", entry.Name(), len(result.Records))
	}

	summary.Records = len(records)
	return records, summary, nil
}
