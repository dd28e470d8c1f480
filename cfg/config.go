package cfg

import (
	"errors"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type TBOClientConfig struct {
	SearchBaseURL  string
	BookingBaseURL string
	SharedBaseURL  string
	ClientID       string
	Username       string
	Password       string
	EndUserIP      string
}

type ResAvenueClientConfig struct {
	BaseURL     string
	RequestorID string
	Password    string
}

type HobseClientConfig struct {
	BaseURL      string
	ClientToken  string
	AccessToken  string
	ProductToken string
}

type Config struct {
	AppEnv            string
	AppPort           string
	RedisConfig       RedisConfig
	Postgres          PostgresConfig
	TBOClientConfig   TBOClientConfig
	ResAvenueConfig   ResAvenueClientConfig
	HobseConfig       HobseClientConfig
	SearchTimeoutSecs int
	AuthTimeoutSecs   int
	CacheTTLMinutes   int
	SnowflakeNodeID   int
}

func Load() (*Config, error) {
	var errs []error

	err := godotenv.Load()
	if err != nil {
		return nil, errors.New("failed load cfg: " + err.Error())
	}

	appEnv := mustEnv("APP_ENV", &errs)
	appPort := mustEnv("APP_PORT", &errs)

	redisHost := mustEnv("REDIS_HOST", &errs)
	redisPort := mustEnv("REDIS_PORT", &errs)
	redisPassword := mustEnv("REDIS_PASSWORD", &errs)

	pgHost := mustEnv("POSTGRES_HOST", &errs)
	pgPort := mustEnv("POSTGRES_PORT", &errs)
	pgUser := mustEnv("POSTGRES_USER", &errs)
	pgPassword := mustEnv("POSTGRES_PASSWORD", &errs)
	pgDBName := mustEnv("POSTGRES_DB", &errs)
	pgSSLMode := mustEnv("POSTGRES_SSLMODE", &errs)

	tboSearchURL := mustEnv("TBO_SEARCH_BASE_URL", &errs)
	tboBookingURL := mustEnv("TBO_BOOKING_BASE_URL", &errs)
	tboSharedURL := mustEnv("TBO_SHARED_BASE_URL", &errs)
	tboClientID := mustEnv("TBO_CLIENT_ID", &errs)
	tboUsername := mustEnv("TBO_USERNAME", &errs)
	tboPassword := mustEnv("TBO_PASSWORD", &errs)
	tboEndUserIP := mustEnv("TBO_END_USER_IP", &errs)

	resAvenueBaseURL := mustEnv("RESAVENUE_BASE_URL", &errs)
	resAvenueRequestorID := mustEnv("RESAVENUE_REQUESTOR_ID", &errs)
	resAvenuePassword := mustEnv("RESAVENUE_PASSWORD", &errs)

	hobseBaseURL := mustEnv("HOBSE_BASE_URL", &errs)
	hobseClientToken := mustEnv("HOBSE_CLIENT_TOKEN", &errs)
	hobseAccessToken := mustEnv("HOBSE_ACCESS_TOKEN", &errs)
	hobseProductToken := mustEnv("HOBSE_PRODUCT_TOKEN", &errs)

	searchTimeout := mustEnvInt("SEARCH_TIMEOUT_SECS", &errs)
	authTimeout := mustEnvInt("AUTH_TIMEOUT_SECS", &errs)
	cacheTTLMinutes := mustEnvInt("CACHE_TTL_MINUTES", &errs)
	snowflakeNodeID := mustEnvInt("SNOWFLAKE_NODE_ID", &errs)

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return &Config{
		AppEnv:  appEnv,
		AppPort: appPort,
		RedisConfig: RedisConfig{
			Host:     redisHost,
			Port:     redisPort,
			Password: redisPassword,
		},
		Postgres: PostgresConfig{
			Host:     pgHost,
			Port:     pgPort,
			User:     pgUser,
			Password: pgPassword,
			DBName:   pgDBName,
			SSLMode:  pgSSLMode,
		},
		TBOClientConfig: TBOClientConfig{
			SearchBaseURL:  tboSearchURL,
			BookingBaseURL: tboBookingURL,
			SharedBaseURL:  tboSharedURL,
			ClientID:       tboClientID,
			Username:       tboUsername,
			Password:       tboPassword,
			EndUserIP:      tboEndUserIP,
		},
		ResAvenueConfig: ResAvenueClientConfig{
			BaseURL:     resAvenueBaseURL,
			RequestorID: resAvenueRequestorID,
			Password:    resAvenuePassword,
		},
		HobseConfig: HobseClientConfig{
			BaseURL:      hobseBaseURL,
			ClientToken:  hobseClientToken,
			AccessToken:  hobseAccessToken,
			ProductToken: hobseProductToken,
		},
		SearchTimeoutSecs: searchTimeout,
		AuthTimeoutSecs:   authTimeout,
		CacheTTLMinutes:   cacheTTLMinutes,
		SnowflakeNodeID:   snowflakeNodeID,
	}, nil
}

func mustEnv(key string, errs *[]error) string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		*errs = append(*errs, errors.New("missing env: "+key))
	}
	return value
}

func mustEnvInt(key string, errs *[]error) int {
	raw := mustEnv(key, errs)
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, errors.New("conversion failed env: "+key))
	}
	return value
}
