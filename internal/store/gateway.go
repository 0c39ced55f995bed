package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/doug-martin/goqu/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName        = "bookcatalog/internal/store"
	spanScope         = "store.scope"
	spanResetSchema   = "store.reset_schema"
	rollbackTimeout   = 5 * time.Second
	logMsgBeginFailed = "failed to begin transaction"
	logMsgRollback    = "transaction rolled back"
	logMsgRollbackErr = "failed to roll back transaction"
	logMsgCommitErr   = "failed to commit transaction"
	logMsgSQL         = "executing sql"
	logAttrError      = "error"
	logAttrQuery      = "query"
	logAttrDialect    = "dialect"
	logAttrDurationMS = "duration_ms"
)

// Logger receives SQL at debug level, rollbacks at warn and backend failures at error.
// *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SQLGateway implements Gateway over a relational backend.
type SQLGateway struct {
	backend backend
	builder goqu.DialectWrapper
	logger  Logger
	timeout time.Duration
	tracer  trace.Tracer
}

// Option configures an SQLGateway.
type Option func(*SQLGateway)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger Logger) Option {
	return func(g *SQLGateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithQueryTimeout bounds the lifetime of every transactional scope.
func WithQueryTimeout(d time.Duration) Option {
	return func(g *SQLGateway) {
		g.timeout = d
	}
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(g *SQLGateway) {
		g.tracer = tp.Tracer(tracerName)
	}
}

func newGateway(b backend, opts ...Option) *SQLGateway {
	g := &SQLGateway{
		backend: b,
		builder: goqu.Dialect(b.dialect()),
		logger:  slog.New(slog.DiscardHandler),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Dialect names the SQL dialect of the backend ("postgres" or "sqlite3").
func (g *SQLGateway) Dialect() string {
	return g.backend.dialect()
}

// WithScope runs fn inside one transaction. The transaction is committed when fn
// returns nil and rolled back otherwise. Rollback uses a context detached from
// ctx so an interrupted request still releases its connection.
func (g *SQLGateway) WithScope(ctx context.Context, fn func(Tx) error) (err error) {
	ctx, span := g.tracer.Start(ctx, spanScope,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("db.system", g.backend.dialect())),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	c, err := g.backend.begin(ctx)
	if err != nil {
		g.logger.Error(logMsgBeginFailed, logAttrError, err.Error())
		return wrapErr("begin", err)
	}

	finished := false
	defer func() {
		if finished {
			return
		}
		rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
		defer cancel()
		if rbErr := c.rollback(rbCtx); rbErr != nil {
			g.logger.Error(logMsgRollbackErr, logAttrError, rbErr.Error())
			return
		}
		g.logger.Warn(logMsgRollback, logAttrError, fmt.Sprint(err))
	}()

	if err = fn(&scope{conn: c, builder: g.builder, logger: g.logger}); err != nil {
		return err
	}

	if err = c.commit(ctx); err != nil {
		g.logger.Error(logMsgCommitErr, logAttrError, err.Error())
		return wrapErr("commit", err)
	}
	finished = true
	return nil
}

// Ping checks that the backend is reachable.
func (g *SQLGateway) Ping(ctx context.Context) error {
	if err := g.backend.ping(ctx); err != nil {
		return wrapErr("ping", err)
	}
	return nil
}

// Close releases the connection pool.
func (g *SQLGateway) Close() error {
	return g.backend.close()
}
