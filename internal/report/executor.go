package report

import (
	"bytes"
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atlekbai/report_executor/internal/catalog"
)

// Executor validates, compiles and runs report configs. It is safe for
// concurrent use; per-tenant copies are made with ForTenant.
type Executor struct {
	catalog     *catalog.Catalog
	validator   *Validator
	adapter     *Adapter
	logger      *zap.Logger
	placeholder sq.PlaceholderFormat
	tenant      string
	maxLimit    int
	timeout     time.Duration
}

type Option func(*Executor)

// WithTenant scopes tenant-aware data sources to orgID.
func WithTenant(orgID string) Option {
	return func(e *Executor) { e.tenant = orgID }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithMaxLimit overrides the row cap and default limit.
func WithMaxLimit(n int) Option {
	return func(e *Executor) { e.maxLimit = n }
}

// WithPlaceholder selects the bind variable style of the target database.
func WithPlaceholder(p sq.PlaceholderFormat) Option {
	return func(e *Executor) { e.placeholder = p }
}

// WithTimeout bounds the database call.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) { e.timeout = d }
}

func NewExecutor(cat *catalog.Catalog, db Querier, opts ...Option) *Executor {
	e := &Executor{
		catalog:     cat,
		adapter:     NewAdapter(db),
		logger:      zap.NewNop(),
		placeholder: sq.Dollar,
		maxLimit:    MaxLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.validator = NewValidator(cat, e.maxLimit)
	return e
}

// ForTenant returns a copy of e scoped to orgID.
func (e *Executor) ForTenant(orgID string) *Executor {
	cp := *e
	cp.tenant = orgID
	return &cp
}

// Catalog returns the catalog reports are checked against.
func (e *Executor) Catalog() *catalog.Catalog { return e.catalog }

// Compile validates cfg and returns the SQL it would run, without touching
// the database.
func (e *Executor) Compile(cfg *ReportConfig) (string, []any, error) {
	_, sqlStr, params, err := e.compile(cfg)
	return sqlStr, params, err
}

func (e *Executor) compile(cfg *ReportConfig) (*Plan, string, []any, error) {
	plan, err := e.validator.Validate(cfg)
	if err != nil {
		return nil, "", nil, err
	}
	sqlStr, params, err := NewCompiler(e.placeholder, e.tenant).Compile(plan)
	if err != nil {
		return nil, "", nil, err
	}
	return plan, sqlStr, params, nil
}

// Execute runs cfg and always returns a result; errors are reported in it.
// Invalid configs never reach the database.
func (e *Executor) Execute(ctx context.Context, cfg *ReportConfig) (res *Result) {
	start := time.Now()
	id := uuid.NewString()
	log := e.logger.With(
		zap.String("execution_id", id),
		zap.String("organization_id", e.tenant),
	)
	if cfg != nil {
		log = log.With(zap.String("data_source", cfg.DataSourceID))
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("report execution panicked", zap.Any("panic", r), zap.Stack("stack"))
			res = failed(id, newDatabaseError(nil), time.Since(start))
		}
	}()

	plan, sqlStr, params, err := e.compile(cfg)
	if err != nil {
		res = failed(id, err, time.Since(start))
		log.Info("report rejected",
			zap.String("error_kind", string(res.Kind)),
			zap.String("error", res.Error),
		)
		return res
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	rows, dbTime, err := e.adapter.Execute(ctx, sqlStr, params)
	if err != nil {
		res = failed(id, err, time.Since(start))
		log.Error("report execution failed",
			zap.Duration("db_time", dbTime),
			zap.Error(err),
		)
		return res
	}

	res = succeeded(id, sqlStr, plan.Columns(), rows, time.Since(start))
	log.Info("report executed",
		zap.Int("rows", res.RowCount),
		zap.Duration("db_time", dbTime),
		zap.Int64("duration_ms", res.ExecutionTimeMs),
	)
	return res
}

// ExecuteJSON is Execute for a raw request body.
func (e *Executor) ExecuteJSON(ctx context.Context, body []byte) *Result {
	cfg, err := ParseConfig(bytes.NewReader(body))
	if err != nil {
		return failed(uuid.NewString(), err, 0)
	}
	return e.Execute(ctx, cfg)
}
