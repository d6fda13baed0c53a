package domain

// ConceptType classifies how a concept participates in a query.
type ConceptType string

const (
	ConceptDimension ConceptType = "DIMENSION"
	ConceptMeasure   ConceptType = "MEASURE"
	ConceptFilter    ConceptType = "FILTER"
)

// ConceptDefinition is a named, typed domain field independent of any
// physical storage. Immutable after registry load.
type ConceptDefinition struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Type        ConceptType       `json:"type"`
	Values      map[string]string `json:"values,omitempty"` // code -> canonical meaning
	// Pattern names a code-shape category from the code dictionary
	// (item_number, warehouse, ...) used for parameter extraction.
	Pattern string `json:"pattern,omitempty"`
}

// IntentInput declares the filter concepts an intent accepts and which of
// them are mandatory.
type IntentInput struct {
	Filters         []string `json:"filters"`
	RequiredFilters []string `json:"required_filters"`
}

// IntentOutput declares what a satisfied intent projects.
type IntentOutput struct {
	Metrics    []string `json:"metrics"`
	Dimensions []string `json:"dimensions"`
}

// IntentDefinition is a recognized query shape bound to a set of concepts.
type IntentDefinition struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Input       IntentInput  `json:"input"`
	Output      IntentOutput `json:"output"`
}

// Aggregation is the SQL aggregate applied to a measure binding.
type Aggregation string

const (
	AggNone  Aggregation = "NONE"
	AggSum   Aggregation = "SUM"
	AggCount Aggregation = "COUNT"
	AggAvg   Aggregation = "AVG"
	AggMin   Aggregation = "MIN"
	AggMax   Aggregation = "MAX"
)

// BindingEntry maps one concept to a physical column/table for one dialect.
type BindingEntry struct {
	Table       string      `json:"table"`
	Column      string      `json:"column"`
	Aggregation Aggregation `json:"aggregation"`
	Operator    string      `json:"operator"`
	StoragePath string      `json:"s3_path,omitempty"`
}

// ParsedIntent is the parser output for one natural-language query.
// Created fresh per call and never mutated after parse.
type ParsedIntent struct {
	Intent     string
	Confidence float64
	Params     map[string]string
}

// IntentUnknown is the sentinel intent name returned when no intent matched.
const IntentUnknown = "UNKNOWN"

// IsUnknown reports whether the parse failed to match any intent.
func (p ParsedIntent) IsUnknown() bool {
	return p.Intent == IntentUnknown || p.Confidence == 0
}
