// Пакет journal — файловый журнал операций записи над CSV-файлом рейсов.
// Каждая незавершённая операция — отдельный файл {tx_id}.journal.json
// в FLIGHTS_WAL_DIR. По журналу при старте откатываются операции,
// прерванные аварийным завершением процесса.
package journal

import (
	"time"
)

// OperationType — тип операции, записываемой в журнал.
type OperationType string

const (
	// OpAppend — дозапись строки в конец файла
	OpAppend OperationType = "append"
	// OpRewrite — полная перезапись файла через временный файл
	OpRewrite OperationType = "rewrite"
)

// TransactionStatus — статус транзакции журнала.
type TransactionStatus string

const (
	// StatusPending — операция начата и ещё не завершена
	StatusPending TransactionStatus = "pending"
	// StatusRolledBack — операция отменена
	StatusRolledBack TransactionStatus = "rolled_back"
)

// Entry — запись журнала. Хранится как JSON-файл {tx_id}.journal.json.
type Entry struct {
	// TransactionID — уникальный идентификатор транзакции (UUID v4)
	TransactionID string `json:"transaction_id"`

	// Operation — тип операции
	Operation OperationType `json:"operation"`

	// Status — текущий статус транзакции
	Status TransactionStatus `json:"status"`

	// Resource — путь к CSV-файлу
	Resource string `json:"resource"`

	// SizeBefore — размер файла до операции (для отката append)
	SizeBefore int64 `json:"size_before"`

	// Appended — байты дописываемой строки (только append).
	// Откат обрезает файл, только если его хвост совпадает с этими байтами.
	Appended []byte `json:"appended,omitempty"`

	// TempPath — временный файл перезаписи (только rewrite)
	TempPath string `json:"temp_path,omitempty"`

	// StartedAt — время начала (UTC)
	StartedAt time.Time `json:"started_at"`

	// CompletedAt — время завершения (UTC), nil для pending
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// entryFileName возвращает имя файла журнала для транзакции.
func entryFileName(txID string) string {
	return txID + entrySuffix
}

const entrySuffix = ".journal.json"
