package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/playpulse/playpulse/internal/platform/logging"
)

// Config stores runtime configuration for the analysis service.
type Config struct {
	AppEnv         string
	ServiceName    string
	ServiceVersion string
	LogLevel       logging.Level

	StatsBombBaseURL        string
	StatsBombAPIToken       string
	StatsBombTimeout        time.Duration
	StatsBombMaxAttempts    int
	StatsBombRetryBaseDelay time.Duration
	SourceCacheTTL          time.Duration

	CacheBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JobTTL            time.Duration
	ResultTTL         time.Duration
	TaskRetries       int
	RetryDelay        time.Duration
	WorkerPoolSize    int
	DefaultMaxMatches int

	ResolverCompetitionLimit  int
	ResolverMatchSample       int
	CollectorCompetitionLimit int
	CollectorFetchConcurrency int

	AnomalyThreshold   float64
	DeclineThreshold   float64
	PredictionWindow   int
	MemoryOptimization bool

	DBEnabled               bool
	DBURL                   string
	DBDisablePreparedBinary bool

	UptraceEnabled     bool
	UptraceDSN         string
	UptraceLogsEnabled bool

	BetterStackEnabled  bool
	BetterStackEndpoint string
	BetterStackToken    string
	BetterStackTimeout  time.Duration
	BetterStackMinLevel logging.Level

	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration

	PprofEnabled bool
	PprofAddr    string
}

// Job store backends selectable via CACHE_BACKEND.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	statsBombTimeout, err := time.ParseDuration(getEnv("STATSBOMB_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse STATSBOMB_TIMEOUT: %w", err)
	}
	if statsBombTimeout <= 0 {
		return Config{}, fmt.Errorf("STATSBOMB_TIMEOUT must be > 0")
	}
	statsBombMaxAttempts, err := getEnvAsInt("STATSBOMB_MAX_ATTEMPTS", 3)
	if err != nil {
		return Config{}, fmt.Errorf("parse STATSBOMB_MAX_ATTEMPTS: %w", err)
	}
	if statsBombMaxAttempts < 1 {
		return Config{}, fmt.Errorf("STATSBOMB_MAX_ATTEMPTS must be >= 1")
	}
	statsBombRetryBaseDelay, err := time.ParseDuration(getEnv("STATSBOMB_RETRY_BASE_DELAY", "1s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse STATSBOMB_RETRY_BASE_DELAY: %w", err)
	}
	if statsBombRetryBaseDelay <= 0 {
		return Config{}, fmt.Errorf("STATSBOMB_RETRY_BASE_DELAY must be > 0")
	}
	sourceCacheTTL, err := time.ParseDuration(getEnv("SOURCE_CACHE_TTL", "15m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SOURCE_CACHE_TTL: %w", err)
	}
	if sourceCacheTTL <= 0 {
		return Config{}, fmt.Errorf("SOURCE_CACHE_TTL must be > 0")
	}

	cacheBackend, err := parseCacheBackend(getEnv("CACHE_BACKEND", CacheBackendMemory))
	if err != nil {
		return Config{}, err
	}
	redisAddr := strings.TrimSpace(getEnv("REDIS_ADDR", ""))
	if cacheBackend == CacheBackendRedis && redisAddr == "" {
		return Config{}, fmt.Errorf("REDIS_ADDR is required when CACHE_BACKEND=redis")
	}
	redisDB, err := getEnvAsInt("REDIS_DB", 0)
	if err != nil {
		return Config{}, fmt.Errorf("parse REDIS_DB: %w", err)
	}
	if redisDB < 0 {
		return Config{}, fmt.Errorf("REDIS_DB must be >= 0")
	}

	jobTTL, err := time.ParseDuration(getEnv("JOB_TTL", "10m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse JOB_TTL: %w", err)
	}
	if jobTTL <= 0 {
		return Config{}, fmt.Errorf("JOB_TTL must be > 0")
	}
	resultTTL, err := time.ParseDuration(getEnv("RESULT_TTL", "24h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse RESULT_TTL: %w", err)
	}
	if resultTTL <= 0 {
		return Config{}, fmt.Errorf("RESULT_TTL must be > 0")
	}
	taskRetries, err := getEnvAsInt("PIPELINE_TASK_RETRIES", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse PIPELINE_TASK_RETRIES: %w", err)
	}
	if taskRetries < 0 {
		return Config{}, fmt.Errorf("PIPELINE_TASK_RETRIES must be >= 0")
	}
	retryDelay, err := time.ParseDuration(getEnv("PIPELINE_RETRY_DELAY", "5s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PIPELINE_RETRY_DELAY: %w", err)
	}
	if retryDelay <= 0 {
		return Config{}, fmt.Errorf("PIPELINE_RETRY_DELAY must be > 0")
	}
	workerPoolSize, err := getEnvAsInt("WORKER_POOL_SIZE", 8)
	if err != nil {
		return Config{}, fmt.Errorf("parse WORKER_POOL_SIZE: %w", err)
	}
	if workerPoolSize < 1 {
		return Config{}, fmt.Errorf("WORKER_POOL_SIZE must be >= 1")
	}
	defaultMaxMatches, err := getEnvAsInt("DEFAULT_MAX_MATCHES", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse DEFAULT_MAX_MATCHES: %w", err)
	}
	if defaultMaxMatches < 1 || defaultMaxMatches > 50 {
		return Config{}, fmt.Errorf("DEFAULT_MAX_MATCHES must be within [1,50]")
	}

	resolverCompetitionLimit, err := getEnvAsInt("RESOLVER_COMPETITION_LIMIT", 15)
	if err != nil {
		return Config{}, fmt.Errorf("parse RESOLVER_COMPETITION_LIMIT: %w", err)
	}
	if resolverCompetitionLimit < 1 {
		return Config{}, fmt.Errorf("RESOLVER_COMPETITION_LIMIT must be >= 1")
	}
	resolverMatchSample, err := getEnvAsInt("RESOLVER_MATCH_SAMPLE", 3)
	if err != nil {
		return Config{}, fmt.Errorf("parse RESOLVER_MATCH_SAMPLE: %w", err)
	}
	if resolverMatchSample < 1 {
		return Config{}, fmt.Errorf("RESOLVER_MATCH_SAMPLE must be >= 1")
	}
	collectorCompetitionLimit, err := getEnvAsInt("COLLECTOR_COMPETITION_LIMIT", 3)
	if err != nil {
		return Config{}, fmt.Errorf("parse COLLECTOR_COMPETITION_LIMIT: %w", err)
	}
	if collectorCompetitionLimit < 1 {
		return Config{}, fmt.Errorf("COLLECTOR_COMPETITION_LIMIT must be >= 1")
	}
	collectorFetchConcurrency, err := getEnvAsInt("COLLECTOR_FETCH_CONCURRENCY", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse COLLECTOR_FETCH_CONCURRENCY: %w", err)
	}
	if collectorFetchConcurrency < 1 {
		return Config{}, fmt.Errorf("COLLECTOR_FETCH_CONCURRENCY must be >= 1")
	}

	anomalyThreshold, err := getEnvAsFloat("ANOMALY_THRESHOLD", 2.0)
	if err != nil {
		return Config{}, fmt.Errorf("parse ANOMALY_THRESHOLD: %w", err)
	}
	if anomalyThreshold <= 0 {
		return Config{}, fmt.Errorf("ANOMALY_THRESHOLD must be > 0")
	}
	declineThreshold, err := getEnvAsFloat("DECLINE_THRESHOLD", 0.05)
	if err != nil {
		return Config{}, fmt.Errorf("parse DECLINE_THRESHOLD: %w", err)
	}
	if declineThreshold <= 0 {
		return Config{}, fmt.Errorf("DECLINE_THRESHOLD must be > 0")
	}
	predictionWindow, err := getEnvAsInt("PREDICTION_WINDOW", 3)
	if err != nil {
		return Config{}, fmt.Errorf("parse PREDICTION_WINDOW: %w", err)
	}
	if predictionWindow < 1 {
		return Config{}, fmt.Errorf("PREDICTION_WINDOW must be >= 1")
	}
	memoryOptimization, err := strconv.ParseBool(getEnv("MEMORY_OPTIMIZATION", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse MEMORY_OPTIMIZATION: %w", err)
	}

	dbEnabled, err := strconv.ParseBool(getEnv("DB_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_ENABLED: %w", err)
	}
	dbURL := strings.TrimSpace(getEnv("DB_URL", ""))
	if dbEnabled && dbURL == "" {
		return Config{}, fmt.Errorf("DB_URL is required when DB_ENABLED=true")
	}
	dbDisablePreparedBinary, err := strconv.ParseBool(getEnv("DB_DISABLE_PREPARED_BINARY_RESULT", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_DISABLE_PREPARED_BINARY_RESULT: %w", err)
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
	uptraceLogsEnabled, err := strconv.ParseBool(getEnv("UPTRACE_LOGS_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_LOGS_ENABLED: %w", err)
	}

	betterStackEnabled, err := strconv.ParseBool(getEnv("BETTERSTACK_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse BETTERSTACK_ENABLED: %w", err)
	}
	betterStackEndpoint := strings.TrimSpace(getEnv("BETTERSTACK_ENDPOINT", ""))
	if betterStackEnabled && betterStackEndpoint == "" {
		return Config{}, fmt.Errorf("BETTERSTACK_ENDPOINT is required when BETTERSTACK_ENABLED=true")
	}
	betterStackTimeout, err := time.ParseDuration(getEnv("BETTERSTACK_TIMEOUT", "3s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse BETTERSTACK_TIMEOUT: %w", err)
	}
	if betterStackTimeout <= 0 {
		return Config{}, fmt.Errorf("BETTERSTACK_TIMEOUT must be > 0")
	}
	betterStackMinLevel := parseLogLevel(getEnv("BETTERSTACK_MIN_LEVEL", "error"))

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && pprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	cfg := Config{
		AppEnv:                     appEnv,
		ServiceName:                getEnv("SERVICE_NAME", "playpulse-analysis"),
		ServiceVersion:             getEnv("SERVICE_VERSION", "dev"),
		LogLevel:                   parseLogLevel(getEnv("LOG_LEVEL", "info")),
		StatsBombBaseURL:           strings.TrimSpace(getEnv("STATSBOMB_BASE_URL", "https://raw.githubusercontent.com/statsbomb/open-data/master/data")),
		StatsBombAPIToken:          strings.TrimSpace(getEnv("STATSBOMB_API_TOKEN", "")),
		StatsBombTimeout:           statsBombTimeout,
		StatsBombMaxAttempts:       statsBombMaxAttempts,
		StatsBombRetryBaseDelay:    statsBombRetryBaseDelay,
		SourceCacheTTL:             sourceCacheTTL,
		CacheBackend:               cacheBackend,
		RedisAddr:                  redisAddr,
		RedisPassword:              getEnv("REDIS_PASSWORD", ""),
		RedisDB:                    redisDB,
		JobTTL:                     jobTTL,
		ResultTTL:                  resultTTL,
		TaskRetries:                taskRetries,
		RetryDelay:                 retryDelay,
		WorkerPoolSize:             workerPoolSize,
		DefaultMaxMatches:          defaultMaxMatches,
		ResolverCompetitionLimit:   resolverCompetitionLimit,
		ResolverMatchSample:        resolverMatchSample,
		CollectorCompetitionLimit:  collectorCompetitionLimit,
		CollectorFetchConcurrency:  collectorFetchConcurrency,
		AnomalyThreshold:           anomalyThreshold,
		DeclineThreshold:           declineThreshold,
		PredictionWindow:           predictionWindow,
		MemoryOptimization:         memoryOptimization,
		DBEnabled:                  dbEnabled,
		DBURL:                      dbURL,
		DBDisablePreparedBinary:    dbDisablePreparedBinary,
		UptraceEnabled:             uptraceEnabled,
		UptraceDSN:                 uptraceDSN,
		UptraceLogsEnabled:         uptraceLogsEnabled,
		BetterStackEnabled:         betterStackEnabled,
		BetterStackEndpoint:        betterStackEndpoint,
		BetterStackToken:           strings.TrimSpace(getEnv("BETTERSTACK_TOKEN", "")),
		BetterStackTimeout:         betterStackTimeout,
		BetterStackMinLevel:        betterStackMinLevel,
		PyroscopeEnabled:           pyroscopeEnabled,
		PyroscopeServerAddress:     pyroscopeServerAddress,
		PyroscopeAuthToken:         strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:     strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword: strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:        pyroscopeUploadRate,
		PprofEnabled:               pprofEnabled,
		PprofAddr:                  pprofAddr,
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}

	return cfg, nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func parseCacheBackend(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case CacheBackendMemory, CacheBackendRedis:
		return value, nil
	default:
		return "", fmt.Errorf("invalid CACHE_BACKEND %q: valid values are %s, %s", v, CacheBackendMemory, CacheBackendRedis)
	}
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

func getEnvAsFloat(key string, fallback float64) (float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}

	return out, nil
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
