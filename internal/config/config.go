package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"

	StorageMinio      = "minio"
	StorageCloudinary = "cloudinary"
	StorageMemory     = "memory"
)

type Config struct {
	App struct {
		Port    string `mapstructure:"port"`
		Env     string `mapstructure:"env"`
		Backend string `mapstructure:"backend"`
	} `mapstructure:"app"`
	DB struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"db"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
	} `mapstructure:"redis"`
	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
		GroupID string   `mapstructure:"group_id"`
	} `mapstructure:"kafka"`
	Auth struct {
		JWTSecret     string        `mapstructure:"jwt_secret"`
		TokenLifespan time.Duration `mapstructure:"token_lifespan"`
		RefreshWindow time.Duration `mapstructure:"refresh_window"`
		SessionTTL    time.Duration `mapstructure:"session_ttl"`
	} `mapstructure:"auth"`
	Storage struct {
		Provider      string `mapstructure:"provider"`
		Bucket        string `mapstructure:"bucket"`
		BackupBucket  string `mapstructure:"backup_bucket"`
		PublicBaseURL string `mapstructure:"public_base_url"`
	} `mapstructure:"storage"`
	Minio struct {
		Endpoint  string `mapstructure:"endpoint"`
		AccessKey string `mapstructure:"access_key"`
		SecretKey string `mapstructure:"secret_key"`
		UseSSL    bool   `mapstructure:"use_ssl"`
	} `mapstructure:"minio"`
	Cloudinary struct {
		CloudName string `mapstructure:"cloud_name"`
		ApiKey    string `mapstructure:"api_key"`
		ApiSecret string `mapstructure:"api_secret"`
	} `mapstructure:"cloudinary"`
	Jaeger struct {
		OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	} `mapstructure:"jaeger"`
	Owner struct {
		Email    string `mapstructure:"email"`
		Password string `mapstructure:"password"`
	} `mapstructure:"owner"`
	Cache struct {
		SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"`
	} `mapstructure:"cache"`
}

// LoadConfig reads .env, then config.yaml from the given paths (or the
// working directory), then environment variables.
func LoadConfig(paths ...string) (cfg Config, err error) {
	v := viper.New()

	envFiles := []string{".env"}
	for _, p := range paths {
		envFiles = append(envFiles, strings.TrimSuffix(p, "/")+"/.env")
	}
	if err = godotenv.Load(envFiles...); err != nil {
		log.Println("warning: .env file not found, use default.")
	}

	setDefaults(v)

	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if err = v.ReadInConfig(); err != nil {
		log.Printf("note: config.yaml not found, read .env only. Error: %v", err)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string]string{
		"app.port":                "APP_PORT",
		"app.env":                 "APP_ENV",
		"app.backend":             "APP_BACKEND",
		"db.dsn":                  "DB_DSN",
		"redis.addr":              "REDIS_ADDR",
		"redis.password":          "REDIS_PASSWORD",
		"kafka.brokers":           "KAFKA_BROKERS",
		"kafka.group_id":          "KAFKA_GROUP_ID",
		"auth.jwt_secret":         "JWT_SECRET",
		"auth.token_lifespan":     "TOKEN_LIFESPAN",
		"auth.refresh_window":     "TOKEN_REFRESH_WINDOW",
		"auth.session_ttl":        "SESSION_TTL",
		"storage.provider":        "STORAGE_PROVIDER",
		"storage.bucket":          "STORAGE_BUCKET",
		"storage.backup_bucket":   "STORAGE_BACKUP_BUCKET",
		"storage.public_base_url": "STORAGE_PUBLIC_BASE_URL",
		"minio.endpoint":          "MINIO_ENDPOINT",
		"minio.access_key":        "MINIO_ACCESS_KEY",
		"minio.secret_key":        "MINIO_SECRET_KEY",
		"minio.use_ssl":           "MINIO_USE_SSL",
		"cloudinary.cloud_name":   "CLOUDINARY_CLOUD_NAME",
		"cloudinary.api_key":      "CLOUDINARY_API_KEY",
		"cloudinary.api_secret":   "CLOUDINARY_API_SECRET",
		"jaeger.otlp_endpoint":    "OTEL_EXPORTER_OTLP_ENDPOINT",
		"owner.email":             "OWNER_EMAIL",
		"owner.password":          "OWNER_PASSWORD",
		"cache.snapshot_ttl":      "SNAPSHOT_TTL",
	}
	for key, env := range bindings {
		if err = v.BindEnv(key, env); err != nil {
			return cfg, err
		}
	}

	err = v.Unmarshal(&cfg)
	return
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.backend", BackendPostgres)
	v.SetDefault("kafka.group_id", "portfolio-invalidator")
	v.SetDefault("auth.token_lifespan", time.Hour)
	v.SetDefault("auth.refresh_window", 5*time.Minute)
	v.SetDefault("auth.session_ttl", 12*time.Hour)
	v.SetDefault("storage.provider", StorageMinio)
	v.SetDefault("storage.bucket", "skills")
	v.SetDefault("storage.backup_bucket", "backups")
	v.SetDefault("cache.snapshot_ttl", 10*time.Minute)
}
