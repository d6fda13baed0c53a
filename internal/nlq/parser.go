// Package nlq turns a free-text query into a ParsedIntent by ranking every
// registered intent against the text: trigger keywords come from the
// concepts' value vocabulary, parameter extraction from the code
// dictionary's shape patterns.
package nlq

import (
	"strings"

	"github.com/DanielChung520/AI-Box-sub013/internal/dict"
	"github.com/DanielChung520/AI-Box-sub013/internal/domain"
	"github.com/DanielChung520/AI-Box-sub013/internal/schema"
)

// Config holds the scoring weights. The exact constants are deliberately
// configurable rather than baked into the matcher.
type Config struct {
	// KeywordWeight is the score share for a trigger-vocabulary hit.
	KeywordWeight float64
	// RequiredWeight is the score share for the fraction of required
	// filters bound from the text.
	RequiredWeight float64
}

// DefaultConfig returns the standard scoring weights.
func DefaultConfig() Config {
	return Config{KeywordWeight: 0.3, RequiredWeight: 0.7}
}

// Parser matches text against one system's intent vocabulary.
type Parser struct {
	sys  *schema.System
	dict *dict.Dictionary
	cfg  Config
}

// New creates a parser for the given system with default scoring weights.
func New(sys *schema.System, d *dict.Dictionary) *Parser {
	return NewWithConfig(sys, d, DefaultConfig())
}

// NewWithConfig creates a parser with explicit scoring weights.
func NewWithConfig(sys *schema.System, d *dict.Dictionary, cfg Config) *Parser {
	if cfg.KeywordWeight <= 0 && cfg.RequiredWeight <= 0 {
		cfg = DefaultConfig()
	}
	return &Parser{sys: sys, dict: d, cfg: cfg}
}

// candidate is one scored intent match.
type candidate struct {
	intent     string
	confidence float64
	params     map[string]string
}

// Parse scores every registered intent against the text and returns the
// best candidate. Intents scoring equal confidence lose to the one
// registered first. A parse that extracts no concrete parameter returns
// the UNKNOWN sentinel with confidence 0.
func (p *Parser) Parse(text string) domain.ParsedIntent {
	text = strings.TrimSpace(text)
	if text == "" {
		return unknownIntent()
	}

	var best *candidate
	for _, in := range p.sys.Intents() {
		c := p.score(in, text)
		if c == nil {
			continue
		}
		if best == nil || c.confidence > best.confidence {
			best = c
		}
	}

	if best == nil {
		return unknownIntent()
	}
	return domain.ParsedIntent{Intent: best.intent, Confidence: best.confidence, Params: best.params}
}

// score evaluates one intent against the text. Returns nil when the intent
// is below the match threshold (no parameter could be extracted).
func (p *Parser) score(in domain.IntentDefinition, text string) *candidate {
	params := map[string]string{}
	for _, filterName := range in.Input.Filters {
		concept, err := p.sys.GetConcept(filterName)
		if err != nil {
			continue
		}
		if value := p.extract(concept, text); value != "" {
			params[filterName] = value
		}
	}

	// At least one concrete extraction is required for a match.
	if len(params) == 0 {
		return nil
	}

	matchedRequired := 0
	for _, name := range in.Input.RequiredFilters {
		if _, ok := params[name]; ok {
			matchedRequired++
		}
	}
	ratio := 1.0
	if n := len(in.Input.RequiredFilters); n > 0 {
		ratio = float64(matchedRequired) / float64(n)
	}

	keyword := 0.0
	if p.keywordHit(in, text) {
		keyword = 1.0
	}

	confidence := p.cfg.KeywordWeight*keyword + p.cfg.RequiredWeight*ratio
	if confidence <= 0 {
		return nil
	}
	return &candidate{intent: in.Name, confidence: confidence, params: params}
}

// extract pulls a parameter value for one concept out of the text:
// code-shape pattern first (shared with the code dictionary), then the
// concept's value vocabulary (code or canonical meaning).
func (p *Parser) extract(concept domain.ConceptDefinition, text string) string {
	if concept.Pattern != "" {
		if code := dict.FindCode(concept.Pattern, text); code != "" {
			return code
		}
	}
	// When several vocabulary entries appear in the text, the one
	// mentioned first wins; ties break by code so repeated parses of
	// the same query always yield the same parameter.
	upper := strings.ToUpper(text)
	best, bestPos := "", -1
	for code, meaning := range concept.Values {
		pos := -1
		if meaning != "" {
			pos = strings.Index(text, meaning)
		}
		if code != "" {
			if i := strings.Index(upper, strings.ToUpper(code)); i >= 0 && (pos < 0 || i < pos) {
				pos = i
			}
		}
		if pos < 0 {
			continue
		}
		if bestPos < 0 || pos < bestPos || (pos == bestPos && code < best) {
			best, bestPos = code, pos
		}
	}
	return best
}

// keywordHit reports whether any output metric or dimension vocabulary
// word appears in the text.
func (p *Parser) keywordHit(in domain.IntentDefinition, text string) bool {
	names := make([]string, 0, len(in.Output.Metrics)+len(in.Output.Dimensions))
	names = append(names, in.Output.Metrics...)
	names = append(names, in.Output.Dimensions...)

	for _, name := range names {
		concept, err := p.sys.GetConcept(name)
		if err != nil {
			continue
		}
		for _, meaning := range concept.Values {
			if meaning != "" && strings.Contains(text, meaning) {
				return true
			}
		}
		// The concept description often carries the domain term itself
		// (e.g. 庫存) that users type.
		for _, term := range vocabularyTerms(concept.Description) {
			if strings.Contains(text, term) {
				return true
			}
		}
	}
	return false
}

// vocabularyTerms splits a concept description like "庫存數量 (on-hand
// stock quantity)" into searchable terms.
func vocabularyTerms(description string) []string {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil
	}
	var terms []string
	if i := strings.IndexByte(description, '('); i >= 0 {
		head := strings.TrimSpace(description[:i])
		if head != "" {
			terms = append(terms, head)
		}
		tail := strings.TrimSuffix(strings.TrimSpace(description[i+1:]), ")")
		terms = append(terms, strings.Fields(tail)...)
	} else {
		terms = append(terms, description)
	}
	return terms
}

func unknownIntent() domain.ParsedIntent {
	return domain.ParsedIntent{Intent: domain.IntentUnknown, Confidence: 0, Params: map[string]string{}}
}
