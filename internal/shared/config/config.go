package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreS3    = "s3"
	StoreLocal = "local"

	MetadataPostgres = "postgres"
	MetadataMongo    = "mongo"
	MetadataMemory   = "memory"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string

	ObjectStoreType  string
	LocalStoreDir    string
	LocalSigningKey  string
	PublicBaseURL    string
	AWSRegion        string
	S3Bucket         string
	S3Prefix         string
	S3Endpoint       string
	S3ForcePathStyle bool
	SSEKMSKeyID      string

	MetadataStore   string
	DatabaseURL     string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	PresignTTL         time.Duration
	PresignConcurrency int
	MaxUploadBytes     int64

	EventsQueueURL string
	TraceStdout    bool

	UploadRateLimit float64
	UploadBurst     int
}

// Load reads configuration from the environment, after best-effort loading
// of local .env files.
func Load() Config {
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")
	mongoURI := os.Getenv("MONGO_URI")

	cfg := Config{
		Port:            getEnv("PORT", "5000"),
		Env:             env,
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173,http://localhost:3000")),

		ObjectStoreType:  normalizeStoreType(getEnv("OBJECT_STORE", StoreLocal)),
		LocalStoreDir:    getEnv("LOCAL_STORE_DIR", "./data"),
		LocalSigningKey:  getEnv("LOCAL_SIGNING_KEY", ""),
		PublicBaseURL:    strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),
		AWSRegion:        getEnv("AWS_REGION", ""),
		S3Bucket:         firstNonEmpty(os.Getenv("S3_BUCKET"), os.Getenv("AWS_BUCKET_NAME")),
		S3Prefix:         getEnv("S3_PREFIX", ""),
		S3Endpoint:       getEnv("S3_ENDPOINT", ""),
		S3ForcePathStyle: getBool("S3_FORCE_PATH_STYLE", false),
		SSEKMSKeyID:      getEnv("SSE_KMS_KEY_ID", ""),

		MetadataStore:   normalizeMetadataStore(os.Getenv("METADATA_STORE"), dbURL, mongoURI),
		DatabaseURL:     dbURL,
		MongoURI:        mongoURI,
		MongoDatabase:   getEnv("MONGO_DATABASE", "s3drive"),
		MongoCollection: getEnv("MONGO_COLLECTION", "files"),

		PresignTTL:         getDuration("PRESIGN_TTL", time.Hour),
		PresignConcurrency: getInt("PRESIGN_CONCURRENCY", 16),
		MaxUploadBytes:     int64(getInt("MAX_UPLOAD_BYTES", 50<<20)),

		EventsQueueURL: getEnv("EVENTS_QUEUE_URL", ""),
		TraceStdout:    getBool("TRACE_STDOUT", false),

		UploadRateLimit: getFloat("RATE_LIMIT_UPLOAD_RPS", 0),
		UploadBurst:     getInt("RATE_LIMIT_UPLOAD_BURST", 10),
	}

	if env == "production" && cfg.MetadataStore == MetadataMemory {
		log.Printf("config: no DATABASE_URL or MONGO_URI set in production; metadata will not survive restarts")
	}
	return cfg
}

// IsDevLike reports whether env is a developer environment.
func (c Config) IsDevLike() bool {
	return c.Env == "dev" || c.Env == "local"
}

func getEnv(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config: %s invalid int %q, using %d", key, raw, def)
		return def
	}
	return v
}

func getFloat(key string, def float64) float64 {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("config: %s invalid number %q, using %v", key, raw, def)
		return def
	}
	return v
}

func getBool(key string, def bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("config: %s invalid bool %q, using %v", key, raw, def)
		return def
	}
	return v
}

// getDuration accepts Go durations ("90m") or a bare number of seconds ("3600").
func getDuration(key string, def time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		log.Printf("config: %s invalid duration %q, using %s", key, raw, def)
		return def
	}
	return v
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case StoreS3:
		return StoreS3
	default:
		return StoreLocal
	}
}

// normalizeMetadataStore honours an explicit METADATA_STORE, otherwise picks
// whichever connection string is present.
func normalizeMetadataStore(raw, dbURL, mongoURI string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "postgres", "pg":
		return MetadataPostgres
	case "mongo", "mongodb":
		return MetadataMongo
	case "memory":
		return MetadataMemory
	}
	switch {
	case strings.TrimSpace(dbURL) != "":
		return MetadataPostgres
	case strings.TrimSpace(mongoURI) != "":
		return MetadataMongo
	default:
		return MetadataMemory
	}
}
