package main

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
)

const testData = "id,flight_number,carrier,origin,destination,departure_time,arrival_time,aircraft_id,status\n" +
	"1,100,LATAM,GRU,JFK,2024-01-01T10:00:00,2024-01-01T20:00:00,7,SCHEDULED\n" +
	"2,200,,GIG,LIS,2024-01-02T08:00:00,2024-01-02T19:30:00,8,DELAYED\n"

// setupDataFile пишет файл данных во временную директорию и направляет
// на него конфигурацию команд.
func setupDataFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "flights.csv")
	if err := os.WriteFile(path, []byte(content), 0o640); err != nil {
		t.Fatalf("Ошибка записи файла данных: %v", err)
	}
	t.Setenv("FLIGHTS_DATA_FILE", path)
	t.Setenv("FLIGHTS_WAL_DIR", filepath.Join(dir, "wal"))
	t.Setenv("FLIGHTS_LOG_LEVEL", "error")
	return path
}

// runCLI выполняет rootCmd с аргументами и возвращает stdout и stderr.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	archiveOutput = ""

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "absent.env")}, args...))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func TestCountCommand(t *testing.T) {
	setupDataFile(t, testData)

	out, _, err := runCLI(t, "count")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if out != "2\n" {
		t.Errorf("хотели 2, получили %q", out)
	}
}

func TestCountCommand_CorruptedFile(t *testing.T) {
	setupDataFile(t, "garbage\n")

	if _, _, err := runCLI(t, "count"); err == nil {
		t.Fatal("ожидалась ошибка для нечитаемого файла")
	}
}

func TestChecksumCommand(t *testing.T) {
	setupDataFile(t, testData)

	out, _, err := runCLI(t, "checksum")
	if err != nil {
		t.Fatalf("checksum: %v", err)
	}
	if want := sha256Hex([]byte(testData)) + "\n"; out != want {
		t.Errorf("хотели %q, получили %q", want, out)
	}
}

func TestVerifyCommand(t *testing.T) {
	setupDataFile(t, testData)

	out, _, err := runCLI(t, "verify")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if want := "ok " + sha256Hex([]byte(testData)) + "\n"; out != want {
		t.Errorf("хотели %q, получили %q", want, out)
	}
}

func TestVerifyCommand_BadRow(t *testing.T) {
	setupDataFile(t, testData+"3,300,AZUL,VCP\n")

	out, errOut, err := runCLI(t, "verify")
	if err == nil {
		t.Fatal("ожидалась ошибка для строки с неверным числом колонок")
	}
	if out != "" {
		t.Errorf("stdout должен быть пустым, получили %q", out)
	}
	if !strings.Contains(errOut, "unreadable") {
		t.Errorf("stderr должен называть тип проблемы: %q", errOut)
	}
}

func TestArchiveCommand(t *testing.T) {
	setupDataFile(t, testData)
	target := filepath.Join(t.TempDir(), "out.zip")

	_, errOut, err := runCLI(t, "archive", "-o", target)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if !strings.Contains(errOut, target) {
		t.Errorf("stderr должен содержать путь архива: %q", errOut)
	}

	zr, err := zip.OpenReader(target)
	if err != nil {
		t.Fatalf("Ошибка открытия архива: %v", err)
	}
	defer zr.Close()
	if len(zr.File) != 1 || zr.File[0].Name != "flights.csv" {
		t.Fatalf("ожидалась одна запись flights.csv, получено %d", len(zr.File))
	}
	rc, err := zr.File[0].Open()
	if err != nil {
		t.Fatalf("Ошибка открытия записи: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("Ошибка чтения записи: %v", err)
	}
	if string(data) != testData {
		t.Errorf("содержимое архива не совпадает с файлом данных")
	}
}

func TestArchiveCommand_Stdout(t *testing.T) {
	setupDataFile(t, testData)

	out, _, err := runCLI(t, "archive", "-o", "-")
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	zr, err := zip.NewReader(strings.NewReader(out), int64(len(out)))
	if err != nil {
		t.Fatalf("stdout не является ZIP-архивом: %v", err)
	}
	if len(zr.File) != 1 {
		t.Errorf("ожидалась одна запись в архиве, получено %d", len(zr.File))
	}
}
