package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string

	DBDriver string
	DBDSN    string

	BlobDriver   string // fs|minio
	BlobBasePath string // for fs

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	AdminUser     string
	AdminPassword string // plain; hashed at startup
	AdminPassHash string // bcrypt
	HMACSecret    string

	CORSOrigins []string

	LogLevel string
	LogFile  string

	SeedQuestions    bool
	LoginRatePerMin  int
	MaxQuizQuestions int
	// AllowQuizSeed accepts a client-chosen selection seed. Test rigs only.
	AllowQuizSeed bool
}

// AdminEnabled reports whether any admin credential was configured.
func (c Config) AdminEnabled() bool {
	return c.AdminPassword != "" || c.AdminPassHash != ""
}

// FromEnv reads the process environment only.
func FromEnv() Config {
	return build(source{})
}

// Load reads an optional .env file, then an optional YAML file (path, or
// CONFIG_FILE when path is empty). Environment variables win over the file.
func Load(path string) (Config, error) {
	// .env is optional; a missing file is the normal case.
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	src := source{}
	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		src.file = v
	}
	return build(src), nil
}

func build(s source) Config {
	mode := Mode(s.envOr("MODE", string(ModeOffline)))
	return Config{
		Mode:           mode,
		HTTPAddr:       s.envOr("HTTP_ADDR", ":8080"),
		DBDriver:       s.envOr("DB_DRIVER", "sqlite"),
		DBDSN:          s.envOr("DB_DSN", ""),
		BlobDriver:     s.envOr("BLOB_DRIVER", "fs"),
		BlobBasePath:   s.envOr("BLOB_BASE_PATH", "./data"),
		MinioEndpoint:  s.envOr("MINIO_ENDPOINT", ""),
		MinioAccessKey: s.envOr("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: s.envOr("MINIO_SECRET_KEY", ""),
		MinioBucket:    s.envOr("MINIO_BUCKET", "ledgerquiz"),
		MinioUseSSL:    s.envBool("MINIO_USE_SSL", false),

		AdminUser:     s.envOr("ADMIN_USER", "admin"),
		AdminPassword: s.envOr("ADMIN_PASSWORD", ""),
		AdminPassHash: s.envOr("ADMIN_PASS_HASH", ""),
		HMACSecret:    s.envOr("AUTH_HMAC_SECRET", ""),

		CORSOrigins: s.csvOr("CORS_ORIGINS", "http://localhost:3000"),

		LogLevel: s.envOr("LOG_LEVEL", "info"),
		LogFile:  s.envOr("LOG_FILE", "logs/ledgerquiz.log"),

		SeedQuestions:    s.envBool("SEED_QUESTIONS", true),
		LoginRatePerMin:  s.envInt("LOGIN_RATE_PER_MIN", 10),
		MaxQuizQuestions: s.envInt("MAX_QUIZ_QUESTIONS", 50),
		AllowQuizSeed:    s.envBool("ALLOW_QUIZ_SEED", false),
	}
}

// source resolves a key from the environment first, then the YAML file.
// File keys are the env names in any case (viper is case-insensitive).
type source struct {
	file *viper.Viper
}

func (s source) get(k string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	if s.file != nil && s.file.IsSet(k) {
		return s.file.GetString(k)
	}
	return ""
}

func (s source) envOr(k, def string) string {
	v := s.get(k)
	if v == "" {
		return def
	}
	return v
}

func (s source) envBool(k string, def bool) bool {
	switch strings.ToLower(s.get(k)) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return def
	}
}

func (s source) envInt(k string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s.get(k)))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func (s source) csvOr(k, def string) []string {
	v := s.envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
