// Package resolver runs the staged pipeline that turns a natural-language
// query into an executed SQL result: parse, contextualize, validate, bind,
// build, generate, execute. Each stage transition is published to the event
// emitter, and every failure crosses the boundary as a ResolveError with a
// stable code.
package resolver

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DanielChung520/AI-Box-sub013/internal/dict"
	"github.com/DanielChung520/AI-Box-sub013/internal/domain"
	"github.com/DanielChung520/AI-Box-sub013/internal/errtranslate"
	"github.com/DanielChung520/AI-Box-sub013/internal/events"
	"github.com/DanielChung520/AI-Box-sub013/internal/nlq"
	"github.com/DanielChung520/AI-Box-sub013/internal/schema"
	"github.com/DanielChung520/AI-Box-sub013/internal/session"
	"github.com/DanielChung520/AI-Box-sub013/internal/sqlgen"
)

// AdapterProvider resolves a dialect name to a ready adapter. The server
// wires this to a factory with per-dialect connections; tests swap in fakes.
type AdapterProvider func(dialect string) (sqlgen.SQLAdapter, error)

// QueryRecord is the history row written after every resolve attempt,
// success or failure.
type QueryRecord struct {
	TaskID    string
	SessionID string
	SystemID  string
	Dialect   string
	Query     string
	Intent    string
	SQL       string
	Success   bool
	ErrorCode string
	RowCount  int
	Duration  time.Duration
}

// Recorder persists query records. Recording is best effort; failures are
// logged and never surface to the caller.
type Recorder interface {
	Record(ctx context.Context, rec QueryRecord) error
}

// Request is one resolve invocation.
type Request struct {
	TaskID    string `json:"task_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	SystemID  string `json:"system_id"`
	Dialect   string `json:"dialect,omitempty"`
	Query     string `json:"query"`
}

// Response is a successful resolve outcome.
type Response struct {
	TaskID     string            `json:"task_id"`
	Intent     string            `json:"intent"`
	Confidence float64           `json:"confidence"`
	Params     map[string]string `json:"params"`
	SQL        string            `json:"sql"`
	Result     *domain.SQLResult `json:"result"`
	Duration   time.Duration     `json:"duration"`
}

// Resolver orchestrates the pipeline. Safe for concurrent use.
type Resolver struct {
	registry *schema.Registry
	dict     *dict.Dictionary
	sessions *session.Manager
	emitter  *events.Emitter
	adapters AdapterProvider
	recorder Recorder
	logger   *slog.Logger

	parserCfg nlq.Config
}

// Option tunes resolver construction.
type Option func(*Resolver)

// WithRecorder attaches a query history recorder.
func WithRecorder(r Recorder) Option {
	return func(res *Resolver) { res.recorder = r }
}

// WithParserConfig overrides the parser scoring weights.
func WithParserConfig(cfg nlq.Config) Option {
	return func(res *Resolver) { res.parserCfg = cfg }
}

// New creates a Resolver.
func New(registry *schema.Registry, d *dict.Dictionary, sessions *session.Manager,
	emitter *events.Emitter, adapters AdapterProvider, logger *slog.Logger, opts ...Option) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{
		registry:  registry,
		dict:      d,
		sessions:  sessions,
		emitter:   emitter,
		adapters:  adapters,
		logger:    logger,
		parserCfg: nlq.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve runs the full pipeline for one request. On failure the returned
// error is always a *domain.ResolveError; the raw cause stays in the logs.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Response, error) {
	started := time.Now()
	taskID := req.TaskID
	if taskID == "" {
		taskID = uuid.NewString()
	}

	r.emitter.RequestReceived(taskID, "query received", map[string]interface{}{
		"query":     req.Query,
		"system_id": req.SystemID,
	})

	sys, err := r.registry.System(req.SystemID)
	if err != nil {
		return nil, r.fail(ctx, req, taskID, "", "",
			domain.ErrResolve(domain.CodeSchemaNotFound, "unknown system %q", req.SystemID), started)
	}
	dialect := req.Dialect
	if dialect == "" {
		dialect = sys.DefaultDialect
	}

	parser := nlq.NewWithConfig(sys, r.dict, r.parserCfg)
	parsed := parser.Parse(req.Query)
	if parsed.IsUnknown() {
		return nil, r.fail(ctx, req, taskID, "", dialect,
			domain.ErrResolve(domain.CodeParseNLQ, "could not match the query to a known intent"), started)
	}
	r.logger.Debug("parsed intent",
		"task_id", taskID, "intent", parsed.Intent, "confidence", parsed.Confidence)

	intent, err := sys.GetIntent(parsed.Intent)
	if err != nil {
		return nil, r.fail(ctx, req, taskID, parsed.Intent, dialect, err, started)
	}

	params := r.mergeContext(ctx, req, sys, intent, parsed.Params)

	if missing := missingRequired(intent, params); missing != "" {
		// A demonstrative that context could not resolve is an ambiguity,
		// not a plain missing filter.
		if session.HasAnaphora(req.Query) {
			return nil, r.fail(ctx, req, taskID, parsed.Intent, dialect,
				domain.ErrResolve(domain.CodeAmbiguousRef, "the reference in the query could not be resolved from conversation context"), started)
		}
		return nil, r.fail(ctx, req, taskID, parsed.Intent, dialect,
			domain.ErrResolve(domain.CodeValidate, "required filter %s is missing from the query", missing), started)
	}
	r.emitter.SchemaConfirmed(taskID, "intent validated", map[string]interface{}{
		"intent": parsed.Intent,
		"params": params,
	})

	ast, err := BuildAST(sys, dialect, intent, params)
	if err != nil {
		return nil, r.fail(ctx, req, taskID, parsed.Intent, dialect, err, started)
	}

	adapter, err := r.adapters(dialect)
	if err != nil {
		return nil, r.fail(ctx, req, taskID, parsed.Intent, dialect,
			domain.ErrResolve(domain.CodeEmitSQL, "no adapter for dialect %q", dialect), started)
	}

	sqlText, err := sqlgen.Generate(adapter, ast)
	if err != nil {
		return nil, r.fail(ctx, req, taskID, parsed.Intent, dialect,
			domain.ErrResolve(domain.CodeEmitSQL, "%s", err.Error()), started)
	}
	r.emitter.SQLGenerated(taskID, "sql generated", map[string]interface{}{
		"sql":     sqlText,
		"dialect": adapter.DialectName(),
	})

	r.emitter.QueryExecuting(taskID, "executing query", nil)
	result, err := adapter.Execute(ctx, sqlText)
	if err != nil {
		// Adapters report backend failures inside the result; a Go error
		// here is an adapter bug, not a query outcome.
		r.logger.Error("adapter execute", "task_id", taskID, "error", err)
		return nil, r.fail(ctx, req, taskID, parsed.Intent, dialect,
			domain.ErrResolve(domain.CodeInternalError, "query execution failed unexpectedly"), started)
	}
	if !result.Success {
		r.logger.Warn("backend error", "task_id", taskID, "dialect", dialect, "error", result.Error)
		return nil, r.failWithSQL(ctx, req, taskID, parsed.Intent, dialect, sqlText,
			errtranslate.Translate(result.Error), started)
	}
	r.emitter.QueryCompleted(taskID, "query completed", map[string]interface{}{
		"row_count": result.RowCount,
	})

	r.emitter.ResultValidating(taskID, "validating result", nil)
	r.rememberTurn(ctx, req, sys, dialect, intent, parsed, params)

	resp := &Response{
		TaskID:     taskID,
		Intent:     parsed.Intent,
		Confidence: parsed.Confidence,
		Params:     params,
		SQL:        sqlText,
		Result:     result,
		Duration:   time.Since(started),
	}
	r.record(ctx, QueryRecord{
		TaskID:    taskID,
		SessionID: req.SessionID,
		SystemID:  req.SystemID,
		Dialect:   dialect,
		Query:     req.Query,
		Intent:    parsed.Intent,
		SQL:       sqlText,
		Success:   true,
		RowCount:  result.RowCount,
		Duration:  resp.Duration,
	})
	r.emitter.ResultReady(taskID, "result ready", map[string]interface{}{
		"row_count": result.RowCount,
	})
	return resp, nil
}

// mergeContext fills parameters the parser could not extract from prior
// conversation turns, but only when the query actually contains a
// demonstrative reference. Extracted parameters always win over context.
func (r *Resolver) mergeContext(ctx context.Context, req Request, sys *schema.System,
	intent domain.IntentDefinition, extracted map[string]string) map[string]string {

	params := make(map[string]string, len(extracted))
	for k, v := range extracted {
		params[k] = v
	}
	if r.sessions == nil || req.SessionID == "" {
		return params
	}

	resolution := r.sessions.ResolveReferences(ctx, req.SessionID, req.Query)
	if !resolution.Resolved {
		return params
	}

	for _, concept := range intent.Input.Filters {
		if params[concept] != "" {
			continue
		}
		def, err := sys.GetConcept(concept)
		if err != nil {
			continue
		}
		if v := resolution.Entities[entityKey(concept, def)]; v != "" {
			params[concept] = v
		}
	}
	return params
}

// rememberTurn records the resolved turn's entities into the session so
// later anaphoric queries can refer back to them.
func (r *Resolver) rememberTurn(ctx context.Context, req Request, sys *schema.System,
	dialect string, intent domain.IntentDefinition, parsed domain.ParsedIntent, params map[string]string) {

	if r.sessions == nil || req.SessionID == "" {
		return
	}

	metadata := map[string]string{domain.EntityIntent: parsed.Intent}
	for concept, value := range params {
		if value == "" {
			continue
		}
		def, err := sys.GetConcept(concept)
		if err != nil {
			continue
		}
		metadata[entityKey(concept, def)] = value
	}
	if b, err := sys.GetBinding(primaryConcept(intent), dialect); err == nil {
		metadata[domain.EntityTable] = b.Table
	}
	r.sessions.AddMessage(ctx, req.SessionID, "user", req.Query, metadata)
}

// entityKey maps a concept to its conversation entity key. Patterned
// concepts use the well-known key for their code shape; the rest key on
// the lowercased concept name.
func entityKey(concept string, def domain.ConceptDefinition) string {
	switch def.Pattern {
	case "item_number":
		return domain.EntityPartNumber
	case "warehouse":
		return domain.EntityWarehouse
	}
	return strings.ToLower(concept)
}

// primaryConcept picks the concept whose binding names the intent's home
// table: the first metric, falling back to the first dimension.
func primaryConcept(intent domain.IntentDefinition) string {
	if len(intent.Output.Metrics) > 0 {
		return intent.Output.Metrics[0]
	}
	if len(intent.Output.Dimensions) > 0 {
		return intent.Output.Dimensions[0]
	}
	return ""
}

// missingRequired returns the first required filter absent from params.
func missingRequired(intent domain.IntentDefinition, params map[string]string) string {
	for _, concept := range intent.Input.RequiredFilters {
		if params[concept] == "" {
			return concept
		}
	}
	return ""
}

// fail emits the error stage, records the failed attempt, and returns the
// classified error.
func (r *Resolver) fail(ctx context.Context, req Request, taskID, intent, dialect string, err error, started time.Time) error {
	return r.failWithSQL(ctx, req, taskID, intent, dialect, "", toResolveError(err), started)
}

func (r *Resolver) failWithSQL(ctx context.Context, req Request, taskID, intent, dialect, sqlText string, re *domain.ResolveError, started time.Time) error {
	r.emitter.Error(taskID, re.Message, map[string]interface{}{
		"error_code": string(re.Code),
	})
	r.record(ctx, QueryRecord{
		TaskID:    taskID,
		SessionID: req.SessionID,
		SystemID:  req.SystemID,
		Dialect:   dialect,
		Query:     req.Query,
		Intent:    intent,
		SQL:       sqlText,
		Success:   false,
		ErrorCode: string(re.Code),
		Duration:  time.Since(started),
	})
	return re
}

func toResolveError(err error) *domain.ResolveError {
	if re, ok := err.(*domain.ResolveError); ok {
		return re
	}
	return domain.ErrResolve(domain.CodeInternalError, "%s", err.Error())
}

func (r *Resolver) record(ctx context.Context, rec QueryRecord) {
	if r.recorder == nil {
		return
	}
	if err := r.recorder.Record(ctx, rec); err != nil {
		r.logger.Warn("record query history", "task_id", rec.TaskID, "error", err)
	}
}
