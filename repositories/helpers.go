package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/lib/pq"
)

type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// ErrMigrationsRequired — опциональная таблица отсутствует в схеме. Это
// всегда операционная ошибка развёртывания, а не "пустые данные": её лечат
// миграции, а не код.
var ErrMigrationsRequired = errors.New("database table is missing, run migrations")

const (
	pqUniqueViolation = "23505"
	pqUndefinedTable  = "42P01"
)

// tableProbe кэширует факт отсутствия опциональной таблицы, чтобы не
// детектировать его заново на каждом вызове. Первый отказ помечает таблицу
// отсутствующей; Reset — явная инвалидация (например, после прогона миграций).
type tableProbe struct {
	mu      sync.RWMutex
	missing map[string]bool
}

var schemaProbe = &tableProbe{missing: make(map[string]bool)}

func (p *tableProbe) isMissing(table string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.missing[table]
}

func (p *tableProbe) markMissing(table string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.missing[table] = true
}

func (p *tableProbe) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.missing = make(map[string]bool)
}

// ResetSchemaProbe сбрасывает кэш отсутствующих таблиц.
func ResetSchemaProbe() {
	schemaProbe.reset()
}

// guardOptionalTable возвращает ErrMigrationsRequired, если таблица уже
// помечена отсутствующей.
func guardOptionalTable(table string) error {
	if schemaProbe.isMissing(table) {
		return fmt.Errorf("%w: %s", ErrMigrationsRequired, table)
	}
	return nil
}

// classifyOptionalTableError помечает таблицу отсутствующей при SQLSTATE 42P01
// и переводит ошибку в ErrMigrationsRequired; прочие ошибки проходят как есть.
func classifyOptionalTableError(err error, table string) error {
	if err == nil {
		return nil
	}
	if isUndefinedTable(err) {
		schemaProbe.markMissing(table)
		return fmt.Errorf("%w: %s", ErrMigrationsRequired, table)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation
}

func isUndefinedTable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pqUndefinedTable
}

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError
	}
	return nil
}
