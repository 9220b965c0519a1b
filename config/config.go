package config

import (
	"log"

	"github.com/spf13/viper"

	"ridelink/models"
)

// Config holds all configuration values.
type Config struct {
	AppPort      string `mapstructure:"APP_PORT"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`
	Env          string `mapstructure:"ENV"`
	LogLevel     string `mapstructure:"LOG_LEVEL"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisOfferDB  int    `mapstructure:"REDIS_OFFER_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Dispatch tuning.
	OfferWindowSec        int `mapstructure:"OFFER_WINDOW_SEC"`
	CandidateLimit        int `mapstructure:"CANDIDATE_LIMIT"`
	InterRegionalLimit    int `mapstructure:"INTER_REGIONAL_LIMIT"`
	RedispatchDelaySec    int `mapstructure:"REDISPATCH_DELAY_SEC"`
	MaxDispatchDistanceKm int `mapstructure:"MAX_DISPATCH_DISTANCE_KM"`

	// Shared-ride pooling.
	PoolRecencyWindowMin int     `mapstructure:"POOL_RECENCY_WINDOW_MIN"`
	PoolScoreThreshold   float64 `mapstructure:"POOL_SCORE_THRESHOLD"`
	PoolMaxCapacity      int     `mapstructure:"POOL_MAX_CAPACITY"`

	// Geo.
	ZoneChangeThresholdDeg float64 `mapstructure:"ZONE_CHANGE_THRESHOLD_DEG"`
	AvgCitySpeedKmh        float64 `mapstructure:"AVG_CITY_SPEED_KMH"`

	// Cancellation.
	CustomerCancelFeeRate float64 `mapstructure:"CUSTOMER_CANCEL_FEE_RATE"`

	// Firebase service account for push delivery.
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
}

var AppConfig Config

// Commission is the per-service commission table. The legacy system repeated
// these rates at every call site; they are configuration now.
var Commission = map[models.ServiceKind]float64{
	models.KindRide:        0.18,
	models.KindTaxi:        0.18,
	models.KindDelivery:    0.18,
	models.KindSharedRide:  0.18,
	models.KindDayBooking:  0.15,
	models.KindHouseMoving: 0.15,
}

// CommissionRate returns the platform cut for a service kind.
func CommissionRate(kind models.ServiceKind) float64 {
	if r, ok := Commission[kind]; ok {
		return r
	}
	return 0.18
}

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "ridelink")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_OFFER_DB", 1)
	viper.SetDefault("REDIS_QUEUE_DB", 2)
	viper.SetDefault("OFFER_WINDOW_SEC", 60)
	viper.SetDefault("CANDIDATE_LIMIT", 5)
	viper.SetDefault("INTER_REGIONAL_LIMIT", 3)
	viper.SetDefault("REDISPATCH_DELAY_SEC", 90)
	viper.SetDefault("MAX_DISPATCH_DISTANCE_KM", 10)
	viper.SetDefault("POOL_RECENCY_WINDOW_MIN", 15)
	viper.SetDefault("POOL_SCORE_THRESHOLD", 0.7)
	viper.SetDefault("POOL_MAX_CAPACITY", 4)
	viper.SetDefault("ZONE_CHANGE_THRESHOLD_DEG", 0.1)
	viper.SetDefault("AVG_CITY_SPEED_KMH", 40.0)
	viper.SetDefault("CUSTOMER_CANCEL_FEE_RATE", 0.10)
	viper.SetDefault("FIREBASE_CREDENTIALS_FILE", "serviceAccountKey.json")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
