package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/UrThings/cs-ufe/repositories"
)

// serializationRetries — сколько раз операция перезапускается целиком после
// аборта сериализации, прежде чем сдаться.
const serializationRetries = 2

// pqSerializationFailure — SQLSTATE 40001.
const pqSerializationFailure = "40001"

// ErrTxRetriesExceeded возвращается, когда serializable-транзакция не смогла
// зафиксироваться за отведённое число попыток. Это транзиентный конфликт,
// а не ошибка входных данных.
var ErrTxRetriesExceeded = errors.New("transaction failed after retries")

// TxRunner исполняет функцию внутри serializable-транзакции с повторами.
// Вся ядровая логика турниров проходит через него: конкурирующие посевы,
// одновременные результаты одного матча и параллельные одобрения заявок
// не могут переплестись в несогласованную сетку.
type TxRunner struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewTxRunner(db *sql.DB, logger *slog.Logger) *TxRunner {
	return &TxRunner{db: db, logger: logger}
}

// RunSerializable выполняет fn в транзакции уровня Serializable. При аборте
// сериализации (SQLSTATE 40001) операция перезапускается с нуля, поэтому fn
// обязана быть чистой относительно внешнего состояния: все чтения и записи —
// только через переданный executor.
func (r *TxRunner) RunSerializable(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	var lastErr error

	for attempt := 0; attempt <= serializationRetries; attempt++ {
		err := r.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !isSerializationFailure(err) {
			return err
		}

		lastErr = err
		if r.logger != nil {
			r.logger.WarnContext(ctx, "serialization conflict, retrying transaction",
				slog.Int("attempt", attempt+1),
				slog.Any("error", err),
			)
		}
	}

	return fmt.Errorf("%w: %v", ErrTxRetriesExceeded, lastErr)
}

func (r *TxRunner) runOnce(ctx context.Context, fn func(exec repositories.SQLExecutor) error) (err error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
			}
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", cErr)
		}
	}()

	err = fn(tx)
	return err
}

func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pqSerializationFailure
	}
	return false
}
