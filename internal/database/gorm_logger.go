package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// auditLogger routes GORM output for the quote audit store through slog.
// Level filtering is delegated to slog.
type auditLogger struct{}

// LogMode is a no-op; level filtering is handled by slog.
func (l auditLogger) LogMode(logger.LogLevel) logger.Interface { return l }

func (l auditLogger) Info(_ context.Context, msg string, args ...any) {
	slog.Info(fmt.Sprintf(msg, args...))
}

func (l auditLogger) Warn(_ context.Context, msg string, args ...any) {
	slog.Warn(fmt.Sprintf(msg, args...))
}

func (l auditLogger) Error(_ context.Context, msg string, args ...any) {
	slog.Error(fmt.Sprintf(msg, args...))
}

// maxSQLLength caps SQL strings in debug logs before truncation.
const maxSQLLength = 200

func truncateSQL(sql string) string {
	if len(sql) <= maxSQLLength {
		return sql
	}
	return sql[:maxSQLLength-3] + "..."
}

// Trace is called by GORM after every SQL statement. ErrRecordNotFound is
// the normal "no rows" result and is treated as a successful query. The SQL
// string is only formatted when the slog level allows the line to be emitted.
func (l auditLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		sql, rows := fc()
		slog.Error("audit store query error",
			"sql", truncateSQL(sql),
			"rows", rows,
			"duration", elapsed,
			"error", err,
		)
		return
	}

	if !slog.Default().Enabled(ctx, slog.LevelDebug) {
		return
	}

	sql, rows := fc()
	slog.Debug("audit store query",
		"sql", truncateSQL(sql),
		"rows", rows,
		"duration", elapsed,
	)
}
