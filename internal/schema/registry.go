// Package schema loads and serves the declarative domain model: concepts,
// intents, and per-dialect physical bindings, one set per target system.
//
// The registry is read-only shared state once loaded. Reload swaps the whole
// system map behind an atomic pointer so concurrent readers never observe a
// half-updated registry.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/DanielChung520/AI-Box-sub013/internal/domain"
)

// System holds the loaded schema documents for one target system id.
type System struct {
	ID             string
	DefaultDialect string

	concepts      map[string]domain.ConceptDefinition
	intents       map[string]domain.IntentDefinition
	intentOrder   []string
	bindings      map[string]map[string]domain.BindingEntry // concept -> DIALECT -> entry
	relationships []domain.JoinClause
}

// Relationships returns the declared table relationships for join planning.
func (s *System) Relationships() []domain.JoinClause {
	return s.relationships
}

// GetConcept returns the concept definition for name.
func (s *System) GetConcept(name string) (domain.ConceptDefinition, error) {
	c, ok := s.concepts[name]
	if !ok {
		return domain.ConceptDefinition{}, domain.ErrResolve(domain.CodeSchemaNotFound, "concept %q not found in system %q", name, s.ID)
	}
	return c, nil
}

// GetIntent returns the intent definition for name.
func (s *System) GetIntent(name string) (domain.IntentDefinition, error) {
	i, ok := s.intents[name]
	if !ok {
		return domain.IntentDefinition{}, domain.ErrResolve(domain.CodeSchemaNotFound, "intent %q not found in system %q", name, s.ID)
	}
	return i, nil
}

// GetBinding returns the binding for (concept, dialect). Lookup is
// dialect-exact: a binding for another dialect is never substituted.
func (s *System) GetBinding(conceptName, dialect string) (domain.BindingEntry, error) {
	byDialect, ok := s.bindings[conceptName]
	if !ok {
		return domain.BindingEntry{}, domain.ErrResolve(domain.CodeSchemaNotFound, "no bindings for concept %q in system %q", conceptName, s.ID)
	}
	b, ok := byDialect[strings.ToUpper(dialect)]
	if !ok {
		return domain.BindingEntry{}, domain.ErrResolve(domain.CodeSchemaNotFound, "concept %q has no %s binding in system %q", conceptName, strings.ToUpper(dialect), s.ID)
	}
	return b, nil
}

// Intents returns intent definitions in declaration (file) order. The NLQ
// parser relies on this order for confidence tie-breaking.
func (s *System) Intents() []domain.IntentDefinition {
	out := make([]domain.IntentDefinition, 0, len(s.intentOrder))
	for _, name := range s.intentOrder {
		out = append(out, s.intents[name])
	}
	return out
}

// Concepts returns the concept map. Callers must not mutate it.
func (s *System) Concepts() map[string]domain.ConceptDefinition {
	return s.concepts
}

// Registry serves loaded systems and supports copy-and-swap reload.
type Registry struct {
	root    string
	systems atomic.Pointer[map[string]*System]
}

// Load reads the systems manifest under root and loads every listed system.
func Load(root string) (*Registry, error) {
	r := &Registry{root: root}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// System returns the loaded schema for a system id.
func (r *Registry) System(id string) (*System, error) {
	systems := r.systems.Load()
	if systems == nil {
		return nil, domain.ErrResolve(domain.CodeSchemaNotFound, "schema registry is empty")
	}
	s, ok := (*systems)[id]
	if !ok {
		return nil, domain.ErrResolve(domain.CodeSchemaNotFound, "unknown system %q", id)
	}
	return s, nil
}

// SystemIDs lists the loaded system ids.
func (r *Registry) SystemIDs() []string {
	systems := r.systems.Load()
	if systems == nil {
		return nil
	}
	ids := make([]string, 0, len(*systems))
	for id := range *systems {
		ids = append(ids, id)
	}
	return ids
}

// Reload re-reads all schema files and atomically swaps the system map.
// Readers holding the previous map keep a consistent view.
func (r *Registry) Reload() error {
	manifest, err := loadManifest(filepath.Join(r.root, "systems.yaml"))
	if err != nil {
		return err
	}

	systems := make(map[string]*System, len(manifest.Systems))
	for _, entry := range manifest.Systems {
		dir := entry.Dir
		if dir == "" {
			dir = entry.ID
		}
		s, err := loadSystem(entry.ID, filepath.Join(r.root, dir))
		if err != nil {
			return fmt.Errorf("load system %q: %w", entry.ID, err)
		}
		systems[entry.ID] = s
	}

	r.systems.Store(&systems)
	return nil
}

// manifest is the systems.yaml document.
type manifest struct {
	Systems []struct {
		ID  string `yaml:"id"`
		Dir string `yaml:"dir,omitempty"`
	} `yaml:"systems"`
}

func loadManifest(path string) (*manifest, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // path is operator-controlled
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if len(m.Systems) == 0 {
		return nil, fmt.Errorf("manifest %s lists no systems", path)
	}
	return &m, nil
}

// File shapes for the three schema documents.
type conceptsFile struct {
	Version  string                              `json:"version"`
	Concepts map[string]domain.ConceptDefinition `json:"concepts"`
}

type intentsFile struct {
	Version string                             `json:"version"`
	Intents map[string]domain.IntentDefinition `json:"intents"`
}

type bindingsFile struct {
	Datasource struct {
		Dialect string `json:"dialect"`
	} `json:"datasource"`
	Relationships []domain.JoinClause                       `json:"relationships,omitempty"`
	Bindings      map[string]map[string]domain.BindingEntry `json:"bindings"`
}

func loadSystem(id, dir string) (*System, error) {
	conceptsRaw, err := os.ReadFile(filepath.Join(dir, "concepts.json")) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("read concepts.json: %w", err)
	}
	var cf conceptsFile
	if err := json.Unmarshal(conceptsRaw, &cf); err != nil {
		return nil, fmt.Errorf("parse concepts.json: %w", err)
	}

	intentsRaw, err := os.ReadFile(filepath.Join(dir, "intents.json")) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("read intents.json: %w", err)
	}
	var inf intentsFile
	if err := json.Unmarshal(intentsRaw, &inf); err != nil {
		return nil, fmt.Errorf("parse intents.json: %w", err)
	}
	intentOrder, err := topLevelKeyOrder(intentsRaw, "intents")
	if err != nil {
		return nil, fmt.Errorf("parse intents.json key order: %w", err)
	}

	bindingsRaw, err := os.ReadFile(filepath.Join(dir, "bindings.json")) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("read bindings.json: %w", err)
	}
	var bf bindingsFile
	if err := json.Unmarshal(bindingsRaw, &bf); err != nil {
		return nil, fmt.Errorf("parse bindings.json: %w", err)
	}

	s := &System{
		ID:             id,
		DefaultDialect: strings.ToUpper(bf.Datasource.Dialect),
		concepts:       make(map[string]domain.ConceptDefinition, len(cf.Concepts)),
		intents:        make(map[string]domain.IntentDefinition, len(inf.Intents)),
		intentOrder:    intentOrder,
		bindings:       make(map[string]map[string]domain.BindingEntry, len(bf.Bindings)),
		relationships:  bf.Relationships,
	}

	for name, c := range cf.Concepts {
		c.Name = name
		s.concepts[name] = c
	}
	for name, in := range inf.Intents {
		in.Name = name
		s.intents[name] = in
	}
	for concept, byDialect := range bf.Bindings {
		entry := make(map[string]domain.BindingEntry, len(byDialect))
		for dialect, b := range byDialect {
			if b.Aggregation == "" {
				b.Aggregation = domain.AggNone
			}
			if b.Operator == "" {
				b.Operator = "="
			}
			entry[strings.ToUpper(dialect)] = b
		}
		s.bindings[concept] = entry
	}

	// Every concept referenced by an intent must exist in the concepts
	// document for the same system, and a required filter must also be in
	// the intent's filter list or it could never be satisfied at query
	// time.
	for _, in := range s.intents {
		for _, ref := range concatRefs(in) {
			if _, ok := s.concepts[ref]; !ok {
				return nil, domain.ErrResolve(domain.CodeSchemaNotFound, "intent %q references unknown concept %q", in.Name, ref)
			}
		}
		for _, req := range in.Input.RequiredFilters {
			if !slices.Contains(in.Input.Filters, req) {
				return nil, domain.ErrResolve(domain.CodeSchemaNotFound, "intent %q requires filter %q that is not in its filter list", in.Name, req)
			}
		}
	}

	return s, nil
}

func concatRefs(in domain.IntentDefinition) []string {
	refs := make([]string, 0, len(in.Input.Filters)+len(in.Input.RequiredFilters)+len(in.Output.Metrics)+len(in.Output.Dimensions))
	refs = append(refs, in.Input.Filters...)
	refs = append(refs, in.Input.RequiredFilters...)
	refs = append(refs, in.Output.Metrics...)
	refs = append(refs, in.Output.Dimensions...)
	return refs
}

// topLevelKeyOrder extracts the key order of an object-valued field from raw
// JSON. encoding/json maps lose ordering, but intent declaration order is
// semantically meaningful (parser tie-break), so it is recovered here.
func topLevelKeyOrder(raw []byte, field string) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	// Scan to the requested top-level field.
	if _, err := dec.Token(); err != nil { // opening {
		return nil, err
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		if key != field {
			// Skip this field's value.
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, err
			}
			continue
		}

		if _, err := dec.Token(); err != nil { // opening { of the field
			return nil, err
		}
		var order []string
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			name, _ := tok.(string)
			order = append(order, name)
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, err
			}
		}
		return order, nil
	}
	return nil, nil
}
