package domain

// SelectItem is one projected expression in a query AST.
type SelectItem struct {
	Expr  string `json:"expr"`
	Alias string `json:"alias,omitempty"`
}

// Condition is one WHERE predicate in a query AST. Conditions are always
// combined with AND by the SQL generator.
type Condition struct {
	Column   string `json:"column"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// JoinClause links two from-tables through a declared relationship.
type JoinClause struct {
	LeftTable   string `json:"left_table"`
	RightTable  string `json:"right_table"`
	LeftColumn  string `json:"left_column"`
	RightColumn string `json:"right_column"`
	JoinType    string `json:"join_type"` // INNER, LEFT, ...
}

// QueryAST is the dialect-neutral intermediate representation of a query.
// Built once per resolved query, immutable, consumed exactly once by the
// SQL generator.
type QueryAST struct {
	Select          []SelectItem `json:"select"`
	FromTables      []string     `json:"from_tables"`
	Joins           []JoinClause `json:"joins,omitempty"`
	WhereConditions []Condition  `json:"where_conditions"`
	GroupBy         []string     `json:"group_by"`
	OrderBy         []string     `json:"order_by,omitempty"`
	Limit           int          `json:"limit,omitempty"` // 0 means no limit
}

// SQLResult is the terminal output of one query execution.
type SQLResult struct {
	Success  bool                     `json:"success"`
	Rows     []map[string]interface{} `json:"rows"`
	RowCount int                      `json:"row_count"`
	SQLQuery string                   `json:"sql_query"`
	Error    string                   `json:"error,omitempty"`
}
