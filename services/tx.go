package services

import (
	"context"

	"github.com/UrThings/cs-ufe/repositories"
)

// TxRunner исполняет функцию внутри сериализуемой транзакции. Все запросы
// внутри fn обязаны идти через переданный SQLExecutor, иначе они выпадут из
// транзакции.
type TxRunner interface {
	RunSerializable(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error
}
