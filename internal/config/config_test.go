package config

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"
)

// setEnvVars устанавливает переменные окружения для теста и возвращает
// функцию очистки. Всегда вызывать defer cleanup().
func setEnvVars(t *testing.T, vars map[string]string) func() {
	t.Helper()

	// Сохраняем оригинальные значения
	originals := make(map[string]string)
	origSet := make(map[string]bool)
	for k := range vars {
		if v, ok := os.LookupEnv(k); ok {
			originals[k] = v
			origSet[k] = true
		}
	}

	// Устанавливаем новые
	for k, v := range vars {
		os.Setenv(k, v)
	}

	return func() {
		for k := range vars {
			if origSet[k] {
				os.Setenv(k, originals[k])
			} else {
				os.Unsetenv(k)
			}
		}
	}
}

// clearAllPHEnvVars очищает все переменные окружения PH_* для чистого теста.
func clearAllPHEnvVars(t *testing.T) func() {
	t.Helper()
	keys := []string{
		"PH_PORT", "PH_LOG_LEVEL", "PH_LOG_FORMAT",
		"PH_HTTP_READ_TIMEOUT", "PH_HTTP_WRITE_TIMEOUT", "PH_HTTP_IDLE_TIMEOUT",
		"PH_SHUTDOWN_TIMEOUT",
		"PH_DB_HOST", "PH_DB_PORT", "PH_DB_NAME", "PH_DB_USER",
		"PH_DB_PASSWORD", "PH_DB_SSL_MODE",
		"PH_DATA_DIR", "PH_MAX_FILE_SIZE",
		"PH_CHANNEL_TITLE", "PH_CHANNEL_DESCRIPTION", "PH_BASE_URL",
		"PH_JWKS_URL", "PH_CA_CERT_PATH", "PH_TLS_SKIP_VERIFY",
		"PH_JWKS_CLIENT_TIMEOUT", "PH_JWKS_REFRESH_INTERVAL", "PH_JWT_LEEWAY",
	}
	originals := make(map[string]string)
	origSet := make(map[string]bool)
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			originals[k] = v
			origSet[k] = true
		}
		os.Unsetenv(k)
	}
	return func() {
		for _, k := range keys {
			if origSet[k] {
				os.Setenv(k, originals[k])
			} else {
				os.Unsetenv(k)
			}
		}
	}
}

// requiredEnvVars возвращает минимальный набор обязательных переменных.
func requiredEnvVars() map[string]string {
	return map[string]string{
		"PH_DB_HOST":             "localhost",
		"PH_DB_NAME":             "podcasts",
		"PH_DB_USER":             "podcasts",
		"PH_DB_PASSWORD":         "secret",
		"PH_DATA_DIR":            "/tmp/audiofiles",
		"PH_CHANNEL_TITLE":       "Домашние аудиокниги",
		"PH_CHANNEL_DESCRIPTION": "Главы аудиокниг для семейного прослушивания",
		"PH_BASE_URL":            "https://podcasts.example.com",
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	cleanup := clearAllPHEnvVars(t)
	defer cleanup()

	cleanupVars := setEnvVars(t, requiredEnvVars())
	defer cleanupVars()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернула ошибку: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, ожидался 8080", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, ожидался info", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, ожидался json", cfg.LogFormat)
	}
	if cfg.HTTPReadTimeout != 30*time.Second {
		t.Errorf("HTTPReadTimeout = %v, ожидался 30s", cfg.HTTPReadTimeout)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, ожидался 5s", cfg.ShutdownTimeout)
	}
	if cfg.DBPort != 5432 {
		t.Errorf("DBPort = %d, ожидался 5432", cfg.DBPort)
	}
	if cfg.DBSSLMode != "disable" {
		t.Errorf("DBSSLMode = %q, ожидался disable", cfg.DBSSLMode)
	}
	if cfg.MaxFileSize != 512*1024*1024 {
		t.Errorf("MaxFileSize = %d, ожидался 512 MiB", cfg.MaxFileSize)
	}
	if cfg.JWKSURL != "" {
		t.Errorf("JWKSURL = %q, ожидалась пустая строка", cfg.JWKSURL)
	}
	if cfg.JWKSClientTimeout != 10*time.Second {
		t.Errorf("JWKSClientTimeout = %v, ожидался 10s", cfg.JWKSClientTimeout)
	}
	if cfg.JWKSRefreshInterval != time.Hour {
		t.Errorf("JWKSRefreshInterval = %v, ожидался 1h", cfg.JWKSRefreshInterval)
	}
	if cfg.JWTLeeway != 30*time.Second {
		t.Errorf("JWTLeeway = %v, ожидался 30s", cfg.JWTLeeway)
	}
}

func TestLoad_MissingRequiredVars(t *testing.T) {
	required := []string{
		"PH_DB_HOST", "PH_DB_NAME", "PH_DB_USER", "PH_DB_PASSWORD",
		"PH_DATA_DIR", "PH_CHANNEL_TITLE", "PH_CHANNEL_DESCRIPTION", "PH_BASE_URL",
	}

	for _, missing := range required {
		t.Run(missing, func(t *testing.T) {
			cleanup := clearAllPHEnvVars(t)
			defer cleanup()

			vars := requiredEnvVars()
			delete(vars, missing)
			cleanupVars := setEnvVars(t, vars)
			defer cleanupVars()

			_, err := Load()
			if err == nil {
				t.Fatalf("Load() должна вернуть ошибку при отсутствии %s", missing)
			}
			if !strings.Contains(err.Error(), missing) {
				t.Errorf("ошибка %q не упоминает %s", err.Error(), missing)
			}
		})
	}
}

func TestLoad_BaseURLTrailingSlash(t *testing.T) {
	cleanup := clearAllPHEnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["PH_BASE_URL"] = "https://podcasts.example.com/"
	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернула ошибку: %v", err)
	}
	if cfg.BaseURL != "https://podcasts.example.com" {
		t.Errorf("BaseURL = %q, завершающий слэш должен быть убран", cfg.BaseURL)
	}
}

func TestLoad_InvalidBaseURL(t *testing.T) {
	cleanup := clearAllPHEnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["PH_BASE_URL"] = "not-a-url"
	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	if _, err := Load(); err == nil {
		t.Fatal("Load() должна вернуть ошибку для некорректного PH_BASE_URL")
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	cleanup := clearAllPHEnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["PH_PORT"] = "not-a-number"
	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	if _, err := Load(); err == nil {
		t.Fatal("Load() должна вернуть ошибку для некорректного PH_PORT")
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	cleanup := clearAllPHEnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["PH_LOG_LEVEL"] = "verbose"
	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	if _, err := Load(); err == nil {
		t.Fatal("Load() должна вернуть ошибку для недопустимого PH_LOG_LEVEL")
	}
}

func TestLoad_InvalidLogFormat(t *testing.T) {
	cleanup := clearAllPHEnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["PH_LOG_FORMAT"] = "xml"
	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	if _, err := Load(); err == nil {
		t.Fatal("Load() должна вернуть ошибку для недопустимого PH_LOG_FORMAT")
	}
}

func TestLoad_InvalidSSLMode(t *testing.T) {
	cleanup := clearAllPHEnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["PH_DB_SSL_MODE"] = "maybe"
	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	if _, err := Load(); err == nil {
		t.Fatal("Load() должна вернуть ошибку для недопустимого PH_DB_SSL_MODE")
	}
}

func TestLoad_InvalidMaxFileSize(t *testing.T) {
	cleanup := clearAllPHEnvVars(t)
	defer cleanup()

	for _, val := range []string{"abc", "0", "-1"} {
		vars := requiredEnvVars()
		vars["PH_MAX_FILE_SIZE"] = val
		cleanupVars := setEnvVars(t, vars)

		_, err := Load()
		cleanupVars()
		if err == nil {
			t.Errorf("Load() должна вернуть ошибку для PH_MAX_FILE_SIZE=%q", val)
		}
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	cleanup := clearAllPHEnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["PH_SHUTDOWN_TIMEOUT"] = "5 seconds"
	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	if _, err := Load(); err == nil {
		t.Fatal("Load() должна вернуть ошибку для некорректной длительности")
	}
}

func TestLoad_AllCustomValues(t *testing.T) {
	cleanup := clearAllPHEnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["PH_PORT"] = "9090"
	vars["PH_LOG_LEVEL"] = "debug"
	vars["PH_LOG_FORMAT"] = "text"
	vars["PH_DB_PORT"] = "15432"
	vars["PH_DB_SSL_MODE"] = "require"
	vars["PH_MAX_FILE_SIZE"] = "1048576"
	vars["PH_JWKS_URL"] = "https://auth.example.com/jwks.json"
	vars["PH_JWT_LEEWAY"] = "1m"
	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернула ошибку: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, ожидался 9090", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, ожидался debug", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q, ожидался text", cfg.LogFormat)
	}
	if cfg.DBPort != 15432 {
		t.Errorf("DBPort = %d, ожидался 15432", cfg.DBPort)
	}
	if cfg.MaxFileSize != 1048576 {
		t.Errorf("MaxFileSize = %d, ожидался 1048576", cfg.MaxFileSize)
	}
	if cfg.JWKSURL != "https://auth.example.com/jwks.json" {
		t.Errorf("JWKSURL = %q", cfg.JWKSURL)
	}
	if cfg.JWTLeeway != time.Minute {
		t.Errorf("JWTLeeway = %v, ожидался 1m", cfg.JWTLeeway)
	}
}

func TestDatabaseDSN(t *testing.T) {
	cfg := &Config{
		DBHost:     "db.local",
		DBPort:     5433,
		DBName:     "podcasts",
		DBUser:     "app",
		DBPassword: "pw",
		DBSSLMode:  "disable",
	}

	dsn := cfg.DatabaseDSN()
	expected := "host=db.local port=5433 dbname=podcasts user=app password=pw sslmode=disable"
	if dsn != expected {
		t.Errorf("DatabaseDSN() = %q, ожидалось %q", dsn, expected)
	}
}

func TestSetupLogger(t *testing.T) {
	cfg := &Config{LogLevel: slog.LevelWarn, LogFormat: "text"}

	logger := SetupLogger(cfg)
	if logger == nil {
		t.Fatal("SetupLogger() вернула nil")
	}
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("уровень info не должен быть включён при LogLevel=warn")
	}
	if !logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("уровень error должен быть включён при LogLevel=warn")
	}
}
