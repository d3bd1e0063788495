package config

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"envsensor/backend/pkg/dialect"
)

type EnvKey string

const (
	EnvGenerate EnvKey = "GENERATE"

	EnvPort      EnvKey = "PORT"
	EnvDataDir   EnvKey = "DATA_DIR"
	EnvLogLevel  EnvKey = "LOG_LEVEL"
	EnvLogToFile EnvKey = "LOG_TO_FILE"

	EnvDBDialect EnvKey = "DB_DIALECT"
	EnvDBHost    EnvKey = "DB_HOST"
	EnvDBPort    EnvKey = "DB_PORT"
	EnvDBName    EnvKey = "DB_NAME"
	EnvDBUser    EnvKey = "DB_USER"
	EnvDBPass    EnvKey = "DB_PASSWORD"
	EnvDBSSLMode EnvKey = "DB_SSLMODE"

	EnvMQTTServerEnabled EnvKey = "MQTT_SERVER_ENABLED"
	EnvMQTTBrokerPort    EnvKey = "MQTT_SERVER_PORT"

	EnvMQTTBroker   EnvKey = "MQTT_BROKER"
	EnvMQTTClientID EnvKey = "MQTT_CLIENT_ID"
	EnvMQTTUsername EnvKey = "MQTT_USERNAME"
	EnvMQTTPassword EnvKey = "MQTT_PASSWORD"

	EnvDedupCapacity EnvKey = "DEDUP_CAPACITY"
	EnvScanOnStart   EnvKey = "SCAN_ON_START"
	EnvAllowList     EnvKey = "ALLOWLIST"
)

const (
	logFileName     = "envsensor.log"
	logMaxSizeMB    = 10
	logMaxBackups   = 5
	logMaxAgeDays   = 28
	sqliteFileName  = "envsensor.sqlite"
	defaultClientID = "envsensor-gateway"
)

type Config struct {
	Port      int
	Generate  bool
	DataDir   string
	Database  string
	Dialect   dialect.Dialect
	LogLevel  slog.Leveler
	LogOutput io.Writer

	// Embedded MQTT broker
	MQTTServerEnabled bool
	MQTTBrokerPort    int

	// MQTT client
	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string

	// DedupCapacity of 0 keeps every (device, nonce) key until the next scan.
	DedupCapacity int
	// ScanOnStart is the default when no stored setting exists.
	ScanOnStart bool
	// AllowList seeds an empty persisted allow-list.
	AllowList []string
}

func New() (*Config, error) {
	dataDir := getStringEnv(EnvDataDir, "data")

	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	var logOutput io.Writer = os.Stdout

	if getBoolEnv(EnvLogToFile, false) {
		logOutput = &lumberjack.Logger{
			Filename:   filepath.Join(dataDir, logFileName),
			MaxSize:    logMaxSizeMB,
			MaxBackups: logMaxBackups,
			MaxAge:     logMaxAgeDays,
			Compress:   true,
		}
	}

	dbDialect, err := dialect.Parse(getStringEnv(EnvDBDialect, dialect.SQLite.String()))
	if err != nil {
		return nil, fmt.Errorf("invalid database dialect: %w", err)
	}

	dedupCapacity := getIntEnv(EnvDedupCapacity, 0)
	if dedupCapacity < 0 {
		return nil, fmt.Errorf("%s must not be negative, got %d", EnvDedupCapacity, dedupCapacity)
	}

	return &Config{
		Port:              getIntEnv(EnvPort, 8080),
		Generate:          getBoolEnv(EnvGenerate, false),
		DataDir:           dataDir,
		Database:          connString(dbDialect, dataDir),
		Dialect:           dbDialect,
		LogLevel:          getLogLevelEnv(EnvLogLevel, slog.LevelInfo),
		LogOutput:         logOutput,
		MQTTServerEnabled: getBoolEnv(EnvMQTTServerEnabled, true),
		MQTTBrokerPort:    getIntEnv(EnvMQTTBrokerPort, 1883),
		MQTTBroker:        getStringEnv(EnvMQTTBroker, "tcp://127.0.0.1:1883"),
		MQTTClientID:      getStringEnv(EnvMQTTClientID, defaultClientID),
		MQTTUsername:      getStringEnv(EnvMQTTUsername, ""),
		MQTTPassword:      getStringEnv(EnvMQTTPassword, ""),
		DedupCapacity:     dedupCapacity,
		ScanOnStart:       getBoolEnv(EnvScanOnStart, true),
		AllowList:         getListEnv(EnvAllowList),
	}, nil
}

func connString(d dialect.Dialect, dataDir string) string {
	if d == dialect.SQLite {
		return filepath.Join(dataDir, sqliteFileName)
	}

	host := getStringEnv(EnvDBHost, "localhost")
	port := getIntEnv(EnvDBPort, 5432)
	dbName := getStringEnv(EnvDBName, "envsensor")
	user := getStringEnv(EnvDBUser, "envsensor")
	password := getStringEnv(EnvDBPass, "")
	sslmode := getStringEnv(EnvDBSSLMode, "disable")

	return fmt.Sprintf(
		"postgresql://%s:%s@%s/%s?sslmode=%s",
		url.QueryEscape(user),
		url.QueryEscape(password),
		net.JoinHostPort(host, strconv.Itoa(port)),
		dbName, sslmode,
	)
}

func (c *Config) Close() error {
	if c.LogOutput == nil {
		return nil
	}

	if lj, ok := c.LogOutput.(*lumberjack.Logger); ok {
		return lj.Close()
	}

	return nil
}

func getStringEnv(key EnvKey, defaultVal string) string {
	val, exists := os.LookupEnv(string(key))
	if !exists {
		return defaultVal
	}

	return val
}

func getBoolEnv(key EnvKey, defaultVal bool) bool {
	val, exists := os.LookupEnv(string(key))
	if !exists {
		return defaultVal
	}

	switch strings.ToLower(val) {
	case "true", "1":
		return true
	default:
		return false
	}
}

func getIntEnv(key EnvKey, defaultVal int) int {
	val, exists := os.LookupEnv(string(key))
	if !exists {
		return defaultVal
	}

	if intVal, err := strconv.Atoi(val); err == nil {
		return intVal
	}

	return defaultVal
}

// getListEnv splits a comma separated value, dropping blank items.
func getListEnv(key EnvKey) []string {
	val, exists := os.LookupEnv(string(key))
	if !exists {
		return nil
	}

	var items []string

	for item := range strings.SplitSeq(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}

	return items
}

func getLogLevelEnv(key EnvKey, defaultVal slog.Leveler) slog.Leveler {
	val, exists := os.LookupEnv(string(key))
	if !exists {
		return defaultVal
	}

	switch strings.ToUpper(val) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	}

	return defaultVal
}
