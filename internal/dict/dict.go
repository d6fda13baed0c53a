// Package dict provides the static code dictionary: a lookup from domain
// codes (warehouse codes, item-number shapes, program codes, table aliases)
// to canonical meaning, with pattern-matched fallback for unknown codes.
package dict

import (
	"encoding/json"
	"os"
	"regexp"
	"strings"
)

// Info describes one resolved code.
type Info struct {
	Code         string `json:"code"`
	Meaning      string `json:"meaning"`
	Category     string `json:"category"`
	DefaultTable string `json:"default_table,omitempty"`
	DefaultField string `json:"default_field,omitempty"`
}

// Validation wraps a lookup into a boolean-plus-detail structure.
type Validation struct {
	Valid bool  `json:"valid"`
	Info  *Info `json:"info,omitempty"`
}

// pattern is one regex fallback rule, tried in declaration order.
type pattern struct {
	re           *regexp.Regexp
	category     string
	meaning      string
	defaultTable string
	defaultField string
}

// Dictionary is a pure, read-only lookup over static in-memory maps.
type Dictionary struct {
	codes    map[string]Info // canonical (uppercased) code -> info
	aliases  map[string]string
	patterns []pattern
}

// Code-shape patterns shared with the NLQ parser so the two subsystems
// never disagree on what a valid code looks like.
var (
	// ItemNumberPattern matches ERP item numbers like RM01-005 or FG12-1001.
	ItemNumberPattern = regexp.MustCompile(`^[A-Z]{2}\d{2}-\d{3,4}$`)
	// WarehouseCodePattern matches warehouse codes like W03.
	WarehouseCodePattern = regexp.MustCompile(`^W\d{2}$`)
	// ProgramCodePattern matches TipTop program codes like aimt300.
	ProgramCodePattern = regexp.MustCompile(`^[a-z]{4}\d{3}$`)
	// TableAliasPattern matches physical table names like INAG_T or TLF_T.
	TableAliasPattern = regexp.MustCompile(`^[A-Z]{3,4}_T$`)
)

// Search variants of the code-shape patterns, unanchored for scanning
// free text. Kept beside the anchored forms so extraction and validation
// can never disagree.
var searchPatterns = map[string]*regexp.Regexp{
	"item_number": regexp.MustCompile(`[A-Z]{2}\d{2}-\d{3,4}`),
	"warehouse":   regexp.MustCompile(`W\d{2}`),
	"program":     regexp.MustCompile(`[a-z]{4}\d{3}`),
	"table":       regexp.MustCompile(`[A-Z]{3,4}_T`),
}

// FindCode scans free text for the first code matching the named shape
// category. Returns "" when the category is unknown or nothing matches.
func FindCode(category, text string) string {
	re, ok := searchPatterns[category]
	if !ok {
		return ""
	}
	return re.FindString(text)
}

// defaultWarehouseCodes is the hard-coded fallback table used when no
// dictionary file is available or the file is malformed.
var defaultWarehouseCodes = map[string]Info{
	"W01": {Code: "W01", Meaning: "原料倉 (raw material warehouse)", Category: "warehouse", DefaultTable: "INAG_T", DefaultField: "INAG002"},
	"W02": {Code: "W02", Meaning: "半成品倉 (semi-finished warehouse)", Category: "warehouse", DefaultTable: "INAG_T", DefaultField: "INAG002"},
	"W03": {Code: "W03", Meaning: "成品倉 (finished goods warehouse)", Category: "warehouse", DefaultTable: "INAG_T", DefaultField: "INAG002"},
	"W04": {Code: "W04", Meaning: "包材倉 (packaging warehouse)", Category: "warehouse", DefaultTable: "INAG_T", DefaultField: "INAG002"},
	"W05": {Code: "W05", Meaning: "退貨倉 (returns warehouse)", Category: "warehouse", DefaultTable: "INAG_T", DefaultField: "INAG002"},
}

// New creates a dictionary seeded with the default warehouse-code table.
func New() *Dictionary {
	d := &Dictionary{
		codes:   make(map[string]Info, len(defaultWarehouseCodes)),
		aliases: make(map[string]string),
	}
	for code, info := range defaultWarehouseCodes {
		d.codes[code] = info
	}
	d.patterns = []pattern{
		{re: WarehouseCodePattern, category: "warehouse", meaning: "倉庫代號 (warehouse code)", defaultTable: "INAG_T", defaultField: "INAG002"},
		{re: ItemNumberPattern, category: "item_number", meaning: "料號 (item number)", defaultTable: "INAG_T", defaultField: "INAG001"},
		{re: ProgramCodePattern, category: "program", meaning: "作業程式代號 (program code)"},
		{re: TableAliasPattern, category: "table", meaning: "資料表 (physical table)"},
	}
	return d
}

// dictFile is the on-disk dictionary format.
type dictFile struct {
	Codes   map[string]Info   `json:"codes"`
	Aliases map[string]string `json:"aliases"`
}

// Load reads a dictionary JSON file into a new Dictionary. Loading is
// idempotent; a missing or malformed file falls back to the built-in
// warehouse-code table.
func Load(path string) *Dictionary {
	d := New()

	raw, err := os.ReadFile(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		return d
	}
	var file dictFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return d
	}

	for code, info := range file.Codes {
		canonical := strings.ToUpper(strings.TrimSpace(code))
		if canonical == "" {
			continue
		}
		if info.Code == "" {
			info.Code = canonical
		}
		d.codes[canonical] = info
	}
	for alias, target := range file.Aliases {
		d.aliases[strings.ToUpper(strings.TrimSpace(alias))] = strings.ToUpper(strings.TrimSpace(target))
	}
	return d
}

// Lookup resolves a code: exact canonical match first, then alias match,
// then the ordered regex pattern list. Returns nil when nothing matches.
func (d *Dictionary) Lookup(code string) *Info {
	canonical := strings.ToUpper(strings.TrimSpace(code))
	if canonical == "" {
		return nil
	}

	if info, ok := d.codes[canonical]; ok {
		return &info
	}
	if target, ok := d.aliases[canonical]; ok {
		if info, ok := d.codes[target]; ok {
			return &info
		}
	}

	for _, p := range d.patterns {
		if p.re.MatchString(canonical) || p.re.MatchString(strings.TrimSpace(code)) {
			return &Info{
				Code:         canonical,
				Meaning:      p.meaning,
				Category:     p.category,
				DefaultTable: p.defaultTable,
				DefaultField: p.defaultField,
			}
		}
	}
	return nil
}

// LookupTable projects the default table for a code, or "" if unknown.
func (d *Dictionary) LookupTable(code string) string {
	if info := d.Lookup(code); info != nil {
		return info.DefaultTable
	}
	return ""
}

// LookupField projects the default field for a code, or "" if unknown.
func (d *Dictionary) LookupField(code string) string {
	if info := d.Lookup(code); info != nil {
		return info.DefaultField
	}
	return ""
}

// ValidateCode reports whether a code is known, with detail when it is.
func (d *Dictionary) ValidateCode(code string) Validation {
	info := d.Lookup(code)
	return Validation{Valid: info != nil, Info: info}
}
