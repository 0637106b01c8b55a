// Package extract pulls indicators (CVE ids, IPv4 addresses, emails, phone
// numbers, URLs and URL paths) out of a line of text.
package extract

import (
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/exploopio/reconkit/pkg/nlp"
)

// Field names an indicator category. The values double as column names.
type Field string

const (
	FieldCVE      Field = "cve"
	FieldIP       Field = "ip"
	FieldEmail    Field = "email"
	FieldPhone    Field = "phone"
	FieldURL      Field = "url"
	FieldEndpoint Field = "endpoint"
)

// Fields lists every field in column order.
var Fields = []Field{FieldCVE, FieldIP, FieldEmail, FieldPhone, FieldURL, FieldEndpoint}

// Patterns are the per-field expressions. They use backtracking semantics
// (regexp2) with Unicode \w, \d and \b.
var Patterns = map[Field]string{
	FieldCVE:      `CVE-\d{4}-\d{4,7}`,
	FieldIP:       `\b(?:\d{1,3}\.){3}\d{1,3}\b`,
	FieldEmail:    `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`,
	FieldPhone:    `\+?\d{1,3}[ -]?\(?\d{1,4}\)?[ -]?\d{1,4}[ -]?\d{1,9}`,
	FieldURL:      `(?:https?|ftp)://[\w.-]+(?:\.[a-zA-Z]{2,6})?(?:/[\w./?=%&-]*)?|\b(?:[a-zA-Z0-9.-]+\.[a-zA-Z]{2,6})(?:/[\w./?=%&-]*)?\b`,
	FieldEndpoint: `/[\w-]+(?:/[\w-]+)*`,
}

// labelFields maps entity labels to the field an entity may contribute to.
// URL and endpoint are regex-only.
var labelFields = map[string]Field{
	nlp.LabelMisc:     FieldCVE,
	nlp.LabelProduct:  FieldCVE,
	nlp.LabelOrg:      FieldCVE,
	nlp.LabelGPE:      FieldIP,
	nlp.LabelPerson:   FieldEmail,
	nlp.LabelCardinal: FieldPhone,
}

// FieldForLabel returns the field an entity label maps to.
func FieldForLabel(label string) (Field, bool) {
	f, ok := labelFields[label]
	return f, ok
}

var compiled = compile()

func compile() map[Field]*regexp2.Regexp {
	out := make(map[Field]*regexp2.Regexp, len(Patterns))
	for f, p := range Patterns {
		out[f] = regexp2.MustCompile(p, regexp2.None)
	}
	return out
}

// FindAll returns every non-overlapping match of the field's pattern, left to right.
func FindAll(f Field, text string) []string {
	re := compiled[f]
	var out []string
	m, err := re.FindStringMatch(text)
	for m != nil && err == nil {
		out = append(out, m.String())
		m, err = re.FindNextMatch(m)
	}
	return out
}

// MatchesAtStart reports whether the field's pattern matches a prefix of text.
func MatchesAtStart(f Field, text string) bool {
	m, err := compiled[f].FindStringMatch(text)
	return err == nil && m != nil && m.Index == 0
}

// Extractor combines regular expressions with an entity tagger.
type Extractor struct {
	tagger nlp.Tagger
}

// New creates an extractor. A nil tagger disables entity tagging.
func New(tagger nlp.Tagger) *Extractor {
	if tagger == nil {
		tagger = nlp.NopTagger{}
	}
	return &Extractor{tagger: tagger}
}

// Line extracts indicators from one line of text. Regex matches come first,
// then accepted tagger entities; each field is deduplicated keeping the
// first occurrence.
func (e *Extractor) Line(text string) (Record, error) {
	values := make(map[Field][]string, len(Fields))
	for _, f := range Fields {
		values[f] = FindAll(f, text)
	}

	ents, err := e.tagger.Entities(text)
	if err != nil {
		return Record{}, err
	}
	for _, ent := range ents {
		f, ok := FieldForLabel(ent.Label)
		if !ok || !MatchesAtStart(f, ent.Text) {
			continue
		}
		values[f] = append(values[f], ent.Text)
	}

	return Record{
		CVE:      dedup(values[FieldCVE]),
		IP:       dedup(values[FieldIP]),
		Email:    dedup(values[FieldEmail]),
		Phone:    dedup(values[FieldPhone]),
		URL:      dedup(values[FieldURL]),
		Endpoint: dedup(values[FieldEndpoint]),
	}, nil
}

func dedup(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// =============================================================================
// Record
// =============================================================================

// UnknownFile is stored when a record carries no file name.
const UnknownFile = "unknown"

// Record holds the indicators found on one input line.
type Record struct {
	FileName string   `json:"file_name"`
	CVE      []string `json:"cve"`
	IP       []string `json:"ip"`
	Email    []string `json:"email"`
	Phone    []string `json:"phone"`
	URL      []string `json:"url"`
	Endpoint []string `json:"endpoint"`
}

// Joined is a Record flattened to one string per column.
type Joined struct {
	FileName string
	CVE      string
	IP       string
	Email    string
	Phone    string
	URL      string
	Endpoint string
}

// Joined flattens every field with ", ".
func (r Record) Joined() Joined {
	name := r.FileName
	if name == "" {
		name = UnknownFile
	}
	return Joined{
		FileName: name,
		CVE:      strings.Join(r.CVE, ", "),
		IP:       strings.Join(r.IP, ", "),
		Email:    strings.Join(r.Email, ", "),
		Phone:    strings.Join(r.Phone, ", "),
		URL:      strings.Join(r.URL, ", "),
		Endpoint: strings.Join(r.Endpoint, ", "),
	}
}

// Values returns the indicators of field f.
func (r Record) Values(f Field) []string {
	switch f {
	case FieldCVE:
		return r.CVE
	case FieldIP:
		return r.IP
	case FieldEmail:
		return r.Email
	case FieldPhone:
		return r.Phone
	case FieldURL:
		return r.URL
	case FieldEndpoint:
		return r.Endpoint
	default:
		return nil
	}
}

// Empty reports whether no field holds a value.
func (r Record) Empty() bool {
	for _, f := range Fields {
		if len(r.Values(f)) > 0 {
			return false
		}
	}
	return true
}
