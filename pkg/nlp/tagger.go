// Package nlp proposes named-entity spans in free text.
//
// Entity labels follow the OntoNotes scheme (PERSON, GPE, ORG, CARDINAL, ...).
// Callers treat entities as candidates only and re-validate them.
package nlp

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dlclark/regexp2"
	"github.com/jdkato/prose/v2"
)

// Entity labels.
const (
	LabelPerson   = "PERSON"
	LabelGPE      = "GPE"
	LabelOrg      = "ORG"
	LabelProduct  = "PRODUCT"
	LabelMisc     = "MISC"
	LabelCardinal = "CARDINAL"
)

// Tagger names accepted by New.
const (
	TaggerProse = "prose"
	TaggerRules = "rules"
	TaggerNone  = "none"
)

// Entity is a tagged span of text.
type Entity struct {
	Text  string
	Label string
}

// Tagger finds entities in a piece of text.
type Tagger interface {
	Entities(text string) ([]Entity, error)
}

// New returns the tagger registered under name. The prose tagger is chained
// with the rule tagger so that numeric spans are labelled CARDINAL.
func New(name string) (Tagger, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", TaggerProse:
		return Chain{NewProseTagger(), NewRuleTagger()}, nil
	case TaggerRules:
		return NewRuleTagger(), nil
	case TaggerNone:
		return NopTagger{}, nil
	default:
		return nil, fmt.Errorf("unknown tagger %q", name)
	}
}

// =============================================================================
// prose
// =============================================================================

// ProseTagger uses the prose averaged-perceptron entity model. The model is
// decoded on first use and shared by all prose taggers.
type ProseTagger struct {
	model *prose.Model
}

var (
	proseOnce  sync.Once
	proseModel *prose.Model
	proseErr   error
)

func loadProseModel() (*prose.Model, error) {
	proseOnce.Do(func() {
		doc, err := prose.NewDocument("model", prose.WithSegmentation(false))
		if err != nil {
			proseErr = fmt.Errorf("prose: load model: %w", err)
			return
		}
		proseModel = doc.Model
	})
	return proseModel, proseErr
}

// NewProseTagger creates a prose-backed tagger.
func NewProseTagger() *ProseTagger {
	return &ProseTagger{}
}

// Entities runs tokenization, tagging and extraction over text.
func (t *ProseTagger) Entities(text string) ([]Entity, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	if t.model == nil {
		model, err := loadProseModel()
		if err != nil {
			return nil, err
		}
		t.model = model
	}

	doc, err := prose.NewDocument(text, prose.WithSegmentation(false), prose.UsingModel(t.model))
	if err != nil {
		return nil, fmt.Errorf("prose: %w", err)
	}

	var out []Entity
	for _, ent := range doc.Entities() {
		out = append(out, Entity{Text: ent.Text, Label: ent.Label})
	}
	return out, nil
}

// =============================================================================
// rules
// =============================================================================

// cardinalPattern matches digit runs, optionally joined by separators that
// commonly appear inside phone numbers.
const cardinalPattern = `\+?\d(?:[\d ()-]*\d)?`

// RuleTagger labels numeric spans as CARDINAL.
type RuleTagger struct {
	cardinal *regexp2.Regexp
}

// NewRuleTagger creates a rule-based tagger.
func NewRuleTagger() *RuleTagger {
	return &RuleTagger{cardinal: regexp2.MustCompile(cardinalPattern, regexp2.None)}
}

// Entities returns every numeric span in text.
func (t *RuleTagger) Entities(text string) ([]Entity, error) {
	var out []Entity
	m, err := t.cardinal.FindStringMatch(text)
	for m != nil && err == nil {
		out = append(out, Entity{Text: m.String(), Label: LabelCardinal})
		m, err = t.cardinal.FindNextMatch(m)
	}
	if err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}
	return out, nil
}

// =============================================================================
// composition
// =============================================================================

// NopTagger finds nothing.
type NopTagger struct{}

func (NopTagger) Entities(string) ([]Entity, error) { return nil, nil }

// Chain runs taggers in order and concatenates their entities.
type Chain []Tagger

// Entities returns the entities of every tagger; the first error stops the chain.
func (c Chain) Entities(text string) ([]Entity, error) {
	var out []Entity
	for _, t := range c {
		ents, err := t.Entities(text)
		if err != nil {
			return nil, err
		}
		out = append(out, ents...)
	}
	return out, nil
}

var (
	_ Tagger = (*ProseTagger)(nil)
	_ Tagger = (*RuleTagger)(nil)
	_ Tagger = NopTagger{}
	_ Tagger = Chain(nil)
)
