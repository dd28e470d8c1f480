package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"tripdesk/cfg"
	"tripdesk/internal/hotel"
	"tripdesk/internal/obs"
	"tripdesk/pkg/cache"
	"tripdesk/pkg/db"
	"tripdesk/pkg/hotelclient"
	"tripdesk/pkg/idgen"
	"tripdesk/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/lib/pq"
)

func main() {
	// ============
	// config
	// ============
	config, errCfg := cfg.Load()
	if errCfg != nil {
		log.Fatal(errCfg)
	}

	// ============
	// logger
	// ============
	zlogger := logger.NewZeroLog(config.AppEnv)

	// ============
	// Cache
	// ============
	redisAddr := config.RedisConfig.Host + ":" + config.RedisConfig.Port
	redis := cache.NewRedisCache(redisAddr)

	// ============
	// Database
	// ============
	pg := config.Postgres
	pgDSN := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		pg.User, pg.Password, pg.Host, pg.Port, pg.DBName, pg.SSLMode,
	)
	sqlClient, err := db.NewSQLClient("postgres", pgDSN)
	if err != nil {
		log.Fatal(err)
	}

	searchResults := hotel.NewSQLSearchResultStore(sqlClient)
	confirmations := hotel.NewSQLConfirmationStore(sqlClient)
	cityStore := hotel.NewSQLCityStore(sqlClient)
	hotelMaster := hotel.NewSQLHotelMasterStore(sqlClient)

	// ============
	// Metrics / ID generation
	// ============
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := obs.NewMetrics(registry)

	idGenerator, err := idgen.NewSnowflakeGenerator(int64(config.SnowflakeNodeID))
	if err != nil {
		log.Fatal(err)
	}

	// ============
	// External Service
	// ============
	httpClient := &http.Client{
		Timeout: time.Duration(config.SearchTimeoutSecs) * time.Second,
	}
	authTimeout := time.Duration(config.AuthTimeoutSecs) * time.Second
	cityResolver := hotel.NewCityResolver(cityStore, zlogger)
	tboClient := hotelclient.NewTBOClient(httpClient, config.TBOClientConfig, authTimeout, hotelMaster, zlogger)
	resAvenueClient := hotelclient.NewResAvenueClient(httpClient, config.ResAvenueConfig, cityResolver, zlogger)
	hobseClient := hotelclient.NewHobseClient(httpClient, config.HobseConfig, authTimeout, cityResolver, zlogger)

	providers := hotel.NewRegistry(tboClient, resAvenueClient, hobseClient)

	// ============
	// Internal Service
	// ============
	orchestrator := hotel.NewOrchestrator(providers,
		time.Duration(config.SearchTimeoutSecs)*time.Second, metrics, zlogger)
	searchSvc := hotel.NewService(orchestrator, searchResults, redis, config.CacheTTLMinutes, metrics, zlogger)
	packageBuilder := hotel.NewPackageBuilder(searchSvc, cityResolver, zlogger)
	bookingSvc := hotel.NewBookingService(providers, searchResults, confirmations, idGenerator, metrics, zlogger)
	hotelHandler := hotel.NewHandler(searchSvc, packageBuilder, bookingSvc)

	// ============
	// HTTP
	// ============
	r := gin.Default()

	hotelHandler.RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	addr := fmt.Sprintf(":%s", config.AppPort)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
