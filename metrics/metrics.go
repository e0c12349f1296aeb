// Package metrics records per-pass analysis statistics to ClickHouse: how
// many nodes a dataflow pass covered, how many iterations it took to reach a
// fixed point, and how long that took. It is an optional sink; callers that
// never construct a Sink pay nothing.
package metrics

import (
	"context"
	"crypto/tls"
	"errors"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/txpull/flowcore/options"
)

// Sink is a ClickHouse connection dedicated to analysis-run statistics.
type Sink struct {
	opts options.Metrics
	conn driver.Conn
}

// DB returns the underlying ClickHouse connection, for callers that need
// direct query access beyond RecordPass.
func (s *Sink) DB() driver.Conn {
	return s.conn
}

// ValidateOptions checks that opts carries enough information to open a
// ClickHouse connection.
func (s *Sink) ValidateOptions() error {
	if len(s.opts.Hosts) == 0 {
		return errors.New("at least one host must be set")
	}
	if s.opts.Database == "" {
		return errors.New("database must be set")
	}
	if s.opts.Username == "" {
		return errors.New("username must be set")
	}
	if s.opts.MaxExecutionTime <= 0 {
		return errors.New("max execution time must be greater than 0")
	}
	if s.opts.DialTimeout <= 0 {
		return errors.New("dial timeout must be greater than 0")
	}
	if s.opts.MaxOpenConns <= 0 {
		return errors.New("max open connections must be greater than 0")
	}
	if s.opts.MaxIdleConns < 0 {
		return errors.New("max idle connections must be greater than or equal to 0")
	}
	if s.opts.MaxConnLifetime <= 0 {
		return errors.New("max connection lifetime must be greater than 0")
	}
	return nil
}

// NewSink opens a ClickHouse connection for analysis-run statistics and
// ensures the destination table exists.
func NewSink(ctx context.Context, opts options.Metrics) (*Sink, error) {
	chOpts := &clickhouse.Options{
		Debug: opts.DebugEnabled,
		Settings: clickhouse.Settings{
			"max_execution_time": opts.MaxExecutionTime,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		Addr: opts.Hosts,
		Auth: clickhouse.Auth{
			Username: opts.Username,
			Password: opts.Password,
			Database: opts.Database,
		},
		DialTimeout:          time.Second * opts.DialTimeout,
		MaxOpenConns:         opts.MaxOpenConns,
		MaxIdleConns:         opts.MaxIdleConns,
		ConnMaxLifetime:      opts.MaxConnLifetime * time.Minute,
		ConnOpenStrategy:     clickhouse.ConnOpenInOrder,
		BlockBufferSize:      10,
		MaxCompressionBuffer: 10240,
		Protocol:             clickhouse.Native,
		TLS:                  &tls.Config{InsecureSkipVerify: true},
	}

	sink := &Sink{opts: opts}

	if err := sink.ValidateOptions(); err != nil {
		return nil, err
	}

	conn, err := clickhouse.Open(chOpts)
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(ctx); err != nil {
		if exception, ok := err.(*clickhouse.Exception); ok && err.Error() != "EOF" {
			zap.L().Error(
				"Clickhouse raised exception",
				zap.Int32("code", exception.Code),
				zap.String("message", exception.Message),
				zap.String("stacktrace", exception.StackTrace),
			)
			return nil, err
		}
	}

	sink.conn = conn

	if err := sink.ensureSchema(ctx); err != nil {
		return nil, err
	}

	return sink, nil
}

func (s *Sink) ensureSchema(ctx context.Context) error {
	return s.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS analysis_passes (
			method_id      String,
			pass_name      String,
			direction      String,
			node_count     UInt32,
			iteration_count UInt32,
			duration_ms    UInt64,
			recorded_at    DateTime
		) ENGINE = MergeTree()
		ORDER BY (method_id, recorded_at)
	`)
}

// PassRun is one completed dataflow pass, ready to be recorded.
type PassRun struct {
	MethodID       string
	PassName       string
	Direction      string
	NodeCount      int
	IterationCount int
	Duration       time.Duration
	RecordedAt     time.Time
}

// RecordPass appends one row describing a completed dataflow pass.
func (s *Sink) RecordPass(ctx context.Context, run PassRun) error {
	return s.conn.Exec(ctx, `
		INSERT INTO analysis_passes
			(method_id, pass_name, direction, node_count, iteration_count, duration_ms, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.MethodID,
		run.PassName,
		run.Direction,
		uint32(run.NodeCount),
		uint32(run.IterationCount),
		uint64(run.Duration.Milliseconds()),
		run.RecordedAt,
	)
}
