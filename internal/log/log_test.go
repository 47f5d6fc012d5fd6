package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"
)

func TestMoneyHandlerFormatsDecimal(t *testing.T) {
	t.Parallel()
	out := logSingleField(t, "revenue", decimal.RequireFromString("16"))
	require.Equal(t, "16.00", out["revenue"])
}

func TestMoneyHandlerFormatsDecimalPointer(t *testing.T) {
	t.Parallel()
	price := decimal.RequireFromString("2.5")
	out := logSingleField(t, "price", &price)
	require.Equal(t, "2.50", out["price"])
}

func TestMoneyHandlerFormatsNestedGroup(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewMoneyHandler(base))
	logger.Info("order", slog.Group("totals", slog.Any("profit", decimal.RequireFromString("13.456"))))

	out := map[string]any{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &out))
	totals, ok := out["totals"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "13.46", totals["profit"])
}

func TestMoneyHandlerFormatsWithAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewMoneyHandler(base)).With("total", decimal.NewFromInt(40))
	logger.Info("created")

	out := map[string]any{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &out))
	require.Equal(t, "40.00", out["total"])
}

func TestOtherFieldsPassThrough(t *testing.T) {
	t.Parallel()
	out := logSingleField(t, "category", "food")
	require.Equal(t, "food", out["category"])
}

func TestNewLoggerJSONRespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, closer, err := NewLogger(Options{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = closer.Close() })

	logger.Info("hidden")
	logger.Warn("shown", "quantity", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	out := map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &out))
	require.Equal(t, "shown", out["msg"])
	require.EqualValues(t, 3, out["quantity"])
}

func TestNewLoggerTextFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, closer, err := NewLogger(Options{Level: "debug"}, &buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = closer.Close() })

	logger.Debug("migrated", "version", 7)
	require.Contains(t, buf.String(), "msg=migrated")
	require.Contains(t, buf.String(), "version=7")
}

func TestNewLoggerWritesToFile(t *testing.T) {
	t.Parallel()

	logPath := filepath.Join(t.TempDir(), "logs", "pos.log")
	logger, closer, err := NewLogger(Options{Level: "info", Format: "json", File: logPath}, nil)
	require.NoError(t, err)

	logger.Info("opened", "path", "pos.db")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"opened"`)
}

func TestNewLoggerRejectsUnknownSettings(t *testing.T) {
	t.Parallel()

	_, _, err := NewLogger(Options{Level: "loud"}, nil)
	require.Error(t, err)

	_, _, err = NewLogger(Options{Format: "xml"}, nil)
	require.Error(t, err)
}

func TestLogRotationCreatesNewFileAfterTenMiB(t *testing.T) {
	logDir := t.TempDir()
	logPath := filepath.Join(logDir, "pos.log")

	writer, err := NewRotatingWriter(RotationConfig{
		File:      logPath,
		MaxSizeMB: 10,
		MaxFiles:  5,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })

	chunk := bytes.Repeat([]byte("a"), 1024*1024)
	for i := 0; i < 11; i++ {
		_, err = writer.Write(chunk)
		require.NoError(t, err)
	}

	files, err := filepath.Glob(filepath.Join(logDir, "pos*"))
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(files), 2)
}

func TestLogRotationRetainsMaxFiveFiles(t *testing.T) {
	logDir := t.TempDir()
	logPath := filepath.Join(logDir, "pos.log")

	writer, err := NewRotatingWriter(RotationConfig{
		File:      logPath,
		MaxSizeMB: 10,
		MaxFiles:  5,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })

	chunk := bytes.Repeat([]byte("b"), 1024*1024)
	for i := 0; i < 80; i++ {
		_, err := writer.Write(chunk)
		require.NoError(t, err)
	}

	files, err := filepath.Glob(filepath.Join(logDir, "pos*"))
	require.NoError(t, err)

	backupCount := 0
	for _, f := range files {
		if f == logPath {
			continue
		}
		backupCount++
	}
	require.LessOrEqual(t, backupCount, 5)
}

func TestRotatingWriterAppliesDefaults(t *testing.T) {
	t.Parallel()

	logPath := filepath.Join(t.TempDir(), "nested", "pos.log")
	writer, err := NewRotatingWriter(RotationConfig{File: logPath})
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })

	require.Equal(t, DefaultMaxSizeMB, writer.MaxSize)
	require.Equal(t, DefaultMaxFiles, writer.MaxBackups)
	require.True(t, writer.LocalTime)
	require.False(t, writer.Compress)

	info, err := os.Stat(logPath)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestRotatingWriterRejectsBadSettings(t *testing.T) {
	t.Parallel()

	_, err := NewRotatingWriter(RotationConfig{})
	require.Error(t, err)

	_, err = NewRotatingWriter(RotationConfig{File: filepath.Join(t.TempDir(), "pos.log"), MaxFiles: -1})
	require.ErrorContains(t, err, "must not be negative")

	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	_, err = NewRotatingWriter(RotationConfig{File: filepath.Join(blocker, "pos.log")})
	require.Error(t, err)
}

func TestNewLoggerPassesCompressToWriter(t *testing.T) {
	t.Parallel()

	logPath := filepath.Join(t.TempDir(), "pos.log")
	_, closer, err := NewLogger(Options{File: logPath, MaxSizeMB: 1, MaxFiles: 2, Compress: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = closer.Close() })

	writer, ok := closer.(*lumberjack.Logger)
	require.True(t, ok)
	require.True(t, writer.Compress)
	require.Equal(t, 1, writer.MaxSize)
	require.Equal(t, 2, writer.MaxBackups)
}

func logSingleField(t *testing.T, key string, value any) map[string]any {
	t.Helper()

	var buf bytes.Buffer
	base := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewMoneyHandler(base))
	logger.Info("test", key, value)

	line := bytes.TrimSpace(buf.Bytes())
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(line, &out))
	return out
}
