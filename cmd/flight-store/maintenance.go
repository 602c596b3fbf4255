// maintenance.go — команды обслуживания файла данных без HTTP-сервера.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bigkaa/flightstore/internal/config"
	"github.com/bigkaa/flightstore/internal/service"
)

var archiveOutput string

var countCmd = &cobra.Command{
	Use:     "count",
	Short:   "Вывести количество записей",
	GroupID: "maintenance",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := cliService()
		if err != nil {
			return err
		}
		n, ferr := svc.Count()
		if ferr != nil {
			return ferr
		}
		fmt.Fprintln(cmd.OutOrStdout(), n)
		return nil
	},
}

var checksumCmd = &cobra.Command{
	Use:     "checksum",
	Short:   "Вывести SHA-256 файла данных",
	GroupID: "maintenance",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := cliService()
		if err != nil {
			return err
		}
		sum, ferr := svc.Checksum()
		if ferr != nil {
			return ferr
		}
		fmt.Fprintln(cmd.OutOrStdout(), sum)
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:     "verify",
	Short:   "Проверить, что файл данных разбирается целиком",
	GroupID: "maintenance",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := cliConfig()
		if err != nil {
			return err
		}
		_, store, err := openService(cfg, logger)
		if err != nil {
			return err
		}

		result, _ := service.NewIntegrityService(store, cfg.IntegrityInterval, logger).RunOnce()
		for _, issue := range result.Issues {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", issue.Type, issue.Message)
		}
		if len(result.Issues) > 0 {
			return fmt.Errorf("обнаружено проблем: %d", len(result.Issues))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ok %s\n", result.Checksum)
		return nil
	},
}

var archiveCmd = &cobra.Command{
	Use:     "archive",
	Short:   "Записать ZIP-архив файла данных",
	GroupID: "maintenance",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := cliService()
		if err != nil {
			return err
		}
		res, ferr := svc.Archive()
		if ferr != nil {
			return ferr
		}
		defer res.Close()

		if archiveOutput == "-" {
			if _, err := io.Copy(cmd.OutOrStdout(), res.File); err != nil {
				return fmt.Errorf("ошибка записи архива: %w", err)
			}
			return nil
		}

		target := archiveOutput
		if target == "" {
			target = res.Name
		}
		f, err := os.Create(target)
		if err != nil {
			return fmt.Errorf("ошибка создания %s: %w", target, err)
		}
		if _, err := io.Copy(f, res.File); err != nil {
			f.Close()
			return fmt.Errorf("ошибка записи архива: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("ошибка записи архива: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d байт, sha256 %s\n", target, res.Size, res.SHA256)
		return nil
	},
}

func init() {
	archiveCmd.Flags().StringVarP(&archiveOutput, "output", "o", "", "файл архива (по умолчанию — имя файла данных с .zip; \"-\" — stdout)")
}

// cliService загружает конфигурацию и открывает сервис.
// Логи пишутся в stderr, чтобы не смешиваться с выводом команды.
func cliService() (*service.FlightService, error) {
	cfg, logger, err := cliConfig()
	if err != nil {
		return nil, err
	}
	svc, _, err := openService(cfg, logger)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// cliConfig загружает конфигурацию и создаёт логгер команд обслуживания.
func cliConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка конфигурации: %w", err)
	}

	level := cfg.LogLevel
	if level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return cfg, logger, nil
}
