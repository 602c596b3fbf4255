package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/spf13/cobra"

	"github.com/bigkaa/flightstore/internal/api/handlers"
	"github.com/bigkaa/flightstore/internal/api/openapi"
	"github.com/bigkaa/flightstore/internal/config"
	"github.com/bigkaa/flightstore/internal/server"
	"github.com/bigkaa/flightstore/internal/service"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Запустить HTTP-сервер",
	GroupID: "server",
	Args:    cobra.NoArgs,
	RunE:    runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("ошибка конфигурации: %w", err)
	}

	logger := config.SetupLogger(cfg)
	logger.Info("Flight Store запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("data_file", cfg.DataFile),
		slog.Any("columns", cfg.Schema.Header()),
		slog.Bool("unique_ids", cfg.UniqueIDs),
	)

	// --- Инициализация компонентов ---

	// 1. Журнал, хранилище, восстановление после сбоя, сервис
	svc, store, err := openService(cfg, logger)
	if err != nil {
		return err
	}

	// 2. Файл данных с заголовком и начальное значение метрики
	if _, ferr := svc.Count(); ferr != nil {
		return fmt.Errorf("ошибка инициализации файла данных: %s", ferr.Message)
	}

	// 3. Фоновая проверка целостности
	integritySvc := service.NewIntegrityService(store, cfg.IntegrityInterval, logger)
	integritySvc.Start(cmd.Context())
	defer integritySvc.Stop()

	// 4. OpenAPI контракт
	var doc *openapi3.T
	if cfg.OpenAPIValidation {
		doc, err = openapi.LoadSpec()
		if err != nil {
			return err
		}
		logger.Info("Проверка запросов по OpenAPI контракту включена")
	}

	// 5. Handlers
	apiHandler := handlers.NewAPIHandler(
		handlers.NewFlightsHandler(svc),
		handlers.NewSystemHandler(svc),
		handlers.NewHealthHandler(filepath.Dir(cfg.DataFile), cfg.WALDir, store),
		handlers.NewMaintenanceHandler(integritySvc),
	)

	// 6. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, doc)
	if err := srv.Run(cmd.Context()); err != nil {
		return err
	}

	logger.Info("Flight Store остановлен")
	return nil
}
