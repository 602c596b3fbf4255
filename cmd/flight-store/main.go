// Точка входа Flight Store — HTTP-сервиса записей о рейсах поверх CSV-файла.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bigkaa/flightstore/internal/config"
	"github.com/bigkaa/flightstore/internal/service"
	"github.com/bigkaa/flightstore/internal/storage/flightstore"
	"github.com/bigkaa/flightstore/internal/storage/journal"
)

// envFile — путь к .env файлу (флаг --env-file).
var envFile string

var rootCmd = &cobra.Command{
	Use:   "flight-store",
	Short: "CRUD записей о рейсах поверх CSV-файла",
	Long: `Flight Store хранит записи о рейсах в CSV-файле и отдаёт их по HTTP.

Конфигурация — переменные окружения FLIGHTS_* (и необязательный .env файл).

Примеры:
  flight-store serve                       # HTTP-сервер
  flight-store count                       # количество записей
  flight-store checksum                    # SHA-256 файла данных
  flight-store verify                      # проверка разбора файла данных
  flight-store archive -o flights.zip      # ZIP-архив файла данных`,
	Version:       config.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return config.LoadDotEnv(envFile)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "путь к .env файлу (отсутствующий файл игнорируется)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "server", Title: "Сервер:"},
		&cobra.Group{ID: "maintenance", Title: "Обслуживание файла данных:"},
	)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(countCmd)
	rootCmd.AddCommand(checksumCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(archiveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}

// openService создаёт журнал, хранилище и сервис по конфигурации.
// Незавершённые операции журнала откатываются до первого обращения к файлу.
func openService(cfg *config.Config, logger *slog.Logger) (*service.FlightService, *flightstore.Store, error) {
	j, err := journal.New(cfg.WALDir, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка инициализации журнала: %w", err)
	}

	store, err := flightstore.New(flightstore.Options{
		Path:      cfg.DataFile,
		Schema:    cfg.Schema,
		UniqueIDs: cfg.UniqueIDs,
		Journal:   j,
		Logger:    logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка инициализации хранилища: %w", err)
	}

	recovered, err := store.Recover()
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка восстановления после сбоя: %w", err)
	}
	if recovered > 0 {
		logger.Warn("Откачены незавершённые операции записи", slog.Int("count", recovered))
	}

	return service.NewFlightService(store, logger), store, nil
}
