package config

import (
	"flag"
	"log"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env           string     `yaml:"env" env:"ENV" env-default:"production"`
	StorageDriver string     `yaml:"storage_driver" env:"STORAGE_DRIVER" env-default:"postgres"`
	PGSQL         PQSQL      `yaml:"pgsql"`
	Redis         Redis      `yaml:"redis"`
	MinIO         MinIO      `yaml:"minio"`
	Media         Media      `yaml:"media"`
	HTTPServer    HTTPServer `yaml:"http_server"`
	JWTSecret     string     `yaml:"jwt_secret" env:"JWT_SECRET" env-default:"super_secret_key"`
}

type HTTPServer struct {
	Address string `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
}

type PQSQL struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env-default:"postgres"`
	Password string `yaml:"password" env-default:"password"`
	DBName   string `yaml:"dbname" env-default:"status_db"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`
}

type Redis struct {
	Address  string `yaml:"address" env:"REDIS_ADDRESS" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
	DB       int    `yaml:"db" env-default:"0"`
}

type MinIO struct {
	Endpoint        string `yaml:"endpoint" env-default:"localhost:9000"`
	AccessKeyID     string `yaml:"access_key_id" env:"MINIO_ACCESS_KEY" env-default:"minioadmin"`
	SecretAccessKey string `yaml:"secret_access_key" env:"MINIO_SECRET_KEY" env-default:"minioadmin"`
	BucketName      string `yaml:"bucket_name" env-default:"status-media"`
	UseSSL          bool   `yaml:"use_ssl" env-default:"false"`
}

type Media struct {
	// PresignedURLTTL is how long a download link stays valid, in seconds.
	PresignedURLTTL int `yaml:"presigned_url_ttl" env-default:"900"`
}

func MustLoad() *Config {
	var configPath string

	configPath = os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to config file")
		flag.Parse()
		configPath = *flags

		if configPath == "" {
			log.Fatal("config path must be provided")
		}
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exist at path: %s", configPath)
	}

	var cfg Config

	err := cleanenv.ReadConfig(configPath, &cfg)

	if err != nil {
		log.Fatalf("failed to read config: %s", err)
	}

	return &cfg
}
