package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/fpl-livescore/internal/platform/logging"
)

const (
	CacheBackendMemory   = "memory"
	CacheBackendFile     = "file"
	CacheBackendRedis    = "redis"
	CacheBackendPostgres = "postgres"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv                     string
	ServiceName                string
	ServiceVersion             string
	HTTPAddr                   string
	ReadTimeout                time.Duration
	WriteTimeout               time.Duration
	LogLevel                   logging.Level
	CORSAllowedOrigins         []string
	InternalJobToken           string
	FPLBaseURL                 string
	FPLUserAgent               string
	FPLTimeout                 time.Duration
	FPLMaxConcurrency          int
	FPLMaxAttempts             int
	FPLBaseBackoff             time.Duration
	FPLCircuitEnabled          bool
	FPLCircuitFailureCount     int
	FPLCircuitOpenTimeout      time.Duration
	FPLCircuitHalfOpenMaxReq   int
	CacheBackend               string
	CacheDir                   string
	RedisURL                   string
	RedisKeyPrefix             string
	DBURL                      string
	DBDisablePreparedBinary    bool
	CacheRetentionGameweeks    int
	CacheSweepInterval         time.Duration
	LivePollInterval           time.Duration
	WarmLeagueIDs              []int64
	SyncMaxWorkers             int
	ScoringMaxWorkers          int
	PprofEnabled               bool
	PprofAddr                  string
	UptraceEnabled             bool
	UptraceDSN                 string
	UptraceCaptureRequestBody  bool
	UptraceRequestBodyMaxBytes int
	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	readTimeout, err := getEnvAsPositiveDuration("APP_READ_TIMEOUT", "10s")
	if err != nil {
		return Config{}, err
	}
	// Scoring a large league on a cold cache can take a while.
	writeTimeout, err := getEnvAsPositiveDuration("APP_WRITE_TIMEOUT", "60s")
	if err != nil {
		return Config{}, err
	}

	fplTimeout, err := getEnvAsPositiveDuration("FPL_TIMEOUT", "20s")
	if err != nil {
		return Config{}, err
	}
	fplMaxConcurrency, err := getEnvAsMinInt("FPL_MAX_CONCURRENCY", 10, 1)
	if err != nil {
		return Config{}, err
	}
	fplMaxAttempts, err := getEnvAsMinInt("FPL_MAX_ATTEMPTS", 3, 1)
	if err != nil {
		return Config{}, err
	}
	fplBaseBackoff, err := getEnvAsPositiveDuration("FPL_BASE_BACKOFF", "1s")
	if err != nil {
		return Config{}, err
	}
	fplCircuitEnabled, err := strconv.ParseBool(getEnv("FPL_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse FPL_CIRCUIT_ENABLED: %w", err)
	}
	fplCircuitFailureCount, err := getEnvAsMinInt("FPL_CIRCUIT_FAILURE_COUNT", 5, 1)
	if err != nil {
		return Config{}, err
	}
	fplCircuitOpenTimeout, err := getEnvAsPositiveDuration("FPL_CIRCUIT_OPEN_TIMEOUT", "30s")
	if err != nil {
		return Config{}, err
	}
	fplCircuitHalfOpenMaxReq, err := getEnvAsMinInt("FPL_CIRCUIT_HALF_OPEN_MAX_REQ", 1, 1)
	if err != nil {
		return Config{}, err
	}

	cacheBackend, err := parseCacheBackend(getEnv("CACHE_BACKEND", CacheBackendFile))
	if err != nil {
		return Config{}, err
	}
	cacheDir := strings.TrimSpace(getEnv("CACHE_DIR", "./.cache/fpl"))
	redisURL := strings.TrimSpace(getEnv("REDIS_URL", ""))
	dbURL := strings.TrimSpace(getEnv("DB_URL", ""))
	switch cacheBackend {
	case CacheBackendFile:
		if cacheDir == "" {
			return Config{}, fmt.Errorf("CACHE_DIR is required when CACHE_BACKEND=file")
		}
	case CacheBackendRedis:
		if redisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL is required when CACHE_BACKEND=redis")
		}
	case CacheBackendPostgres:
		if dbURL == "" {
			return Config{}, fmt.Errorf("DB_URL is required when CACHE_BACKEND=postgres")
		}
	}
	dbDisablePreparedBinary, err := strconv.ParseBool(getEnv("DB_DISABLE_PREPARED_BINARY_RESULT", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_DISABLE_PREPARED_BINARY_RESULT: %w", err)
	}

	cacheRetention, err := getEnvAsMinInt("CACHE_RETENTION_GAMEWEEKS", 2, 0)
	if err != nil {
		return Config{}, err
	}
	cacheSweepInterval, err := getEnvAsPositiveDuration("CACHE_SWEEP_INTERVAL", "1h")
	if err != nil {
		return Config{}, err
	}
	livePollInterval, err := getEnvAsPositiveDuration("LIVE_POLL_INTERVAL", "2m")
	if err != nil {
		return Config{}, err
	}
	warmLeagueIDs, err := parseIDList(getEnv("WARM_LEAGUE_IDS", ""))
	if err != nil {
		return Config{}, fmt.Errorf("parse WARM_LEAGUE_IDS: %w", err)
	}
	syncMaxWorkers, err := getEnvAsMinInt("SYNC_MAX_WORKERS", 10, 1)
	if err != nil {
		return Config{}, err
	}
	scoringMaxWorkers, err := getEnvAsMinInt("SCORING_MAX_WORKERS", 16, 1)
	if err != nil {
		return Config{}, err
	}

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && pprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceDSN == "" {
		uptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}
	uptraceCaptureRequestBody, err := strconv.ParseBool(getEnv("UPTRACE_CAPTURE_REQUEST_BODY", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_CAPTURE_REQUEST_BODY: %w", err)
	}
	uptraceRequestBodyMaxBytes, err := getEnvAsMinInt("UPTRACE_REQUEST_BODY_MAX_BYTES", 8192, 1)
	if err != nil {
		return Config{}, err
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := getEnvAsPositiveDuration("PYROSCOPE_UPLOAD_RATE", "15s")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:                     appEnv,
		ServiceName:                getEnv("APP_SERVICE_NAME", "fpl-livescore-api"),
		ServiceVersion:             getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:                   getEnv("APP_HTTP_ADDR", ":8080"),
		ReadTimeout:                readTimeout,
		WriteTimeout:               writeTimeout,
		LogLevel:                   logging.ParseLevel(getEnv("APP_LOG_LEVEL", "info")),
		CORSAllowedOrigins:         splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		InternalJobToken:           strings.TrimSpace(getEnv("INTERNAL_JOB_TOKEN", "")),
		FPLBaseURL:                 strings.TrimSpace(getEnv("FPL_BASE_URL", "https://fantasy.premierleague.com/api")),
		FPLUserAgent:               strings.TrimSpace(getEnv("FPL_USER_AGENT", "")),
		FPLTimeout:                 fplTimeout,
		FPLMaxConcurrency:          fplMaxConcurrency,
		FPLMaxAttempts:             fplMaxAttempts,
		FPLBaseBackoff:             fplBaseBackoff,
		FPLCircuitEnabled:          fplCircuitEnabled,
		FPLCircuitFailureCount:     fplCircuitFailureCount,
		FPLCircuitOpenTimeout:      fplCircuitOpenTimeout,
		FPLCircuitHalfOpenMaxReq:   fplCircuitHalfOpenMaxReq,
		CacheBackend:               cacheBackend,
		CacheDir:                   cacheDir,
		RedisURL:                   redisURL,
		RedisKeyPrefix:             getEnv("REDIS_KEY_PREFIX", "fpl:"),
		DBURL:                      dbURL,
		DBDisablePreparedBinary:    dbDisablePreparedBinary,
		CacheRetentionGameweeks:    cacheRetention,
		CacheSweepInterval:         cacheSweepInterval,
		LivePollInterval:           livePollInterval,
		WarmLeagueIDs:              warmLeagueIDs,
		SyncMaxWorkers:             syncMaxWorkers,
		ScoringMaxWorkers:          scoringMaxWorkers,
		PprofEnabled:               pprofEnabled,
		PprofAddr:                  pprofAddr,
		UptraceEnabled:             uptraceEnabled,
		UptraceDSN:                 uptraceDSN,
		UptraceCaptureRequestBody:  uptraceCaptureRequestBody,
		UptraceRequestBodyMaxBytes: uptraceRequestBodyMaxBytes,
		PyroscopeEnabled:           pyroscopeEnabled,
		PyroscopeServerAddress:     pyroscopeServerAddress,
		PyroscopeAuthToken:         strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:     strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword: strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:        pyroscopeUploadRate,
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}
	if cfg.FPLBaseURL == "" {
		return Config{}, fmt.Errorf("FPL_BASE_URL cannot be empty")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func getEnvAsMinInt(key string, fallback, minimum int) (int, error) {
	out, err := getEnvAsInt(key, fallback)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if out < minimum {
		return 0, fmt.Errorf("%s must be >= %d", key, minimum)
	}
	return out, nil
}

func getEnvAsPositiveDuration(key, fallback string) (time.Duration, error) {
	out, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if out <= 0 {
		return 0, fmt.Errorf("%s must be > 0", key)
	}
	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func parseIDList(raw string) ([]int64, error) {
	items := splitCSV(raw)
	out := make([]int64, 0, len(items))
	for _, item := range items {
		value, err := strconv.ParseInt(item, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", item, err)
		}
		if value <= 0 {
			return nil, fmt.Errorf("id must be > 0, got %q", item)
		}
		out = append(out, value)
	}
	return out, nil
}

func parseCacheBackend(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case CacheBackendMemory, CacheBackendFile, CacheBackendRedis, CacheBackendPostgres:
		return value, nil
	default:
		return "", fmt.Errorf("invalid CACHE_BACKEND %q: valid values are %s, %s, %s, %s",
			v, CacheBackendMemory, CacheBackendFile, CacheBackendRedis, CacheBackendPostgres)
	}
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
