package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type ScyllaConfig struct {
	Hosts       []string
	Username    string
	Password    string
	Consistency string
	Timeout     time.Duration
	NumConns    int
	// création des keyspaces et tables au démarrage (dev)
	AutoSchema        bool
	ReplicationFactor int
	// keyspaces par domaine
	UsersKeyspace    string
	ProductsKeyspace string
	OrdersKeyspace   string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

type ElasticConfig struct {
	Addresses []string
	Username  string
	Password  string
	Index     string
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type StripeConfig struct {
	SecretKey string
	Currency  string
}

type OAuthConfig struct {
	BaseURL              string
	SessionSecret        string
	GoogleClientID       string
	GoogleClientSecret   string
	FacebookClientID     string
	FacebookClientSecret string
}

type ShopConfig struct {
	FreeShippingAbove decimal.Decimal
	ShippingFee       decimal.Decimal
	CompanyName       string
	IBAN              string
	BIC               string
}

type RateLimitConfig struct {
	Window time.Duration
	Orders int
	Auth   int
}

type Config struct {
	Env         string
	Port        string
	JWTSecret   string
	JWTTTL      time.Duration
	CORSOrigins []string

	Scylla    ScyllaConfig
	Redis     RedisConfig
	Elastic   ElasticConfig
	MinIO     MinIOConfig
	SMTP      SMTPConfig
	Stripe    StripeConfig
	OAuth     OAuthConfig
	Shop      ShopConfig
	RateLimit RateLimitConfig
}

// Load charge le fichier .env s'il existe puis lit l'environnement
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  Aucun fichier .env trouvé, on continue avec les variables d'environnement du système")
	} else {
		log.Println("✅ Fichier .env chargé avec succès")
	}
	return FromEnv(os.Getenv)
}

// FromEnv construit la configuration à partir d'une fonction de lecture
func FromEnv(getenv func(string) string) (*Config, error) {
	r := reader{getenv: getenv}

	cfg := &Config{
		Env:         r.str("APP_ENV", "development"),
		Port:        r.str("PORT", "8080"),
		JWTSecret:   r.str("JWT_SECRET", ""),
		JWTTTL:      r.duration("JWT_TTL", 24*time.Hour),
		CORSOrigins: r.list("CORS_ORIGINS", "http://localhost:3000"),
		Scylla: ScyllaConfig{
			Hosts:             r.list("SCYLLA_HOSTS", "127.0.0.1"),
			Username:          r.str("SCYLLA_USERNAME", ""),
			Password:          r.str("SCYLLA_PASSWORD", ""),
			Consistency:       r.str("SCYLLA_CONSISTENCY", "QUORUM"),
			Timeout:           r.duration("SCYLLA_TIMEOUT", 5*time.Second),
			NumConns:          r.int("SCYLLA_NUM_CONNS", 20),
			AutoSchema:        r.bool("SCYLLA_AUTO_SCHEMA", false),
			ReplicationFactor: r.int("SCYLLA_REPLICATION_FACTOR", 1),
			UsersKeyspace:     r.str("SCYLLA_KS_USERS_KEYSPACE", "shop_users"),
			ProductsKeyspace:  r.str("SCYLLA_KS_PRODUCTS_KEYSPACE", "shop_products"),
			OrdersKeyspace:    r.str("SCYLLA_KS_ORDERS_KEYSPACE", "shop_orders"),
		},
		Redis: RedisConfig{
			Addr:     r.str("REDIS_HOST", "localhost:6379"),
			Password: r.str("REDIS_PASSWORD", ""),
			DB:       r.int("REDIS_DB", 0),
			CacheTTL: r.duration("CACHE_TTL", 5*time.Minute),
		},
		Elastic: ElasticConfig{
			Addresses: r.list("ELASTIC_ADDRESSES", ""),
			Username:  r.str("ELASTIC_USERNAME", ""),
			Password:  r.str("ELASTIC_PASSWORD", ""),
			Index:     r.str("ELASTIC_PRODUCTS_INDEX", "products"),
		},
		MinIO: MinIOConfig{
			Endpoint:  r.str("MINIO_ENDPOINT", ""),
			AccessKey: r.str("MINIO_ACCESS_KEY", ""),
			SecretKey: r.str("MINIO_SECRET_KEY", ""),
			Bucket:    r.str("MINIO_BUCKET", "product-images"),
			UseSSL:    r.bool("MINIO_USE_SSL", false),
			PublicURL: r.str("MINIO_PUBLIC_URL", ""),
		},
		SMTP: SMTPConfig{
			Host:     r.str("SMTP_HOST", ""),
			Port:     r.int("SMTP_PORT", 587),
			Username: r.str("SMTP_USERNAME", ""),
			Password: r.str("SMTP_PASSWORD", ""),
			From:     r.str("SMTP_FROM", "noreply@shop.local"),
		},
		Stripe: StripeConfig{
			SecretKey: r.str("STRIPE_SECRET_KEY", ""),
			Currency:  r.str("STRIPE_CURRENCY", "usd"),
		},
		OAuth: OAuthConfig{
			BaseURL:              r.str("BASE_URL", "http://localhost:8080"),
			SessionSecret:        r.str("SESSION_SECRET", ""),
			GoogleClientID:       r.str("GOOGLE_CLIENT_ID", ""),
			GoogleClientSecret:   r.str("GOOGLE_CLIENT_SECRET", ""),
			FacebookClientID:     r.str("FACEBOOK_CLIENT_ID", ""),
			FacebookClientSecret: r.str("FACEBOOK_CLIENT_SECRET", ""),
		},
		Shop: ShopConfig{
			FreeShippingAbove: r.decimal("SHOP_FREE_SHIPPING_ABOVE", "200"),
			ShippingFee:       r.decimal("SHOP_SHIPPING_FEE", "15"),
			CompanyName:       r.str("COMPANY_NAME", "Shop"),
			IBAN:              r.str("COMPANY_IBAN", ""),
			BIC:               r.str("COMPANY_BIC", ""),
		},
		RateLimit: RateLimitConfig{
			Window: r.duration("RATE_LIMIT_WINDOW", time.Minute),
			Orders: r.int("RATE_LIMIT_ORDERS", 10),
			Auth:   r.int("RATE_LIMIT_AUTH", 10),
		},
	}

	if len(r.errs) > 0 {
		return nil, fmt.Errorf("configuration invalide: %s", strings.Join(r.errs, "; "))
	}
	if cfg.JWTSecret == "" {
		if cfg.Env != "development" {
			return nil, fmt.Errorf("JWT_SECRET manquant")
		}
		log.Println("⚠️  JWT_SECRET absent, secret de développement utilisé")
		cfg.JWTSecret = "dev-secret-change-me"
	}
	return cfg, nil
}

// IsProduction indique si l'application tourne en production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

type reader struct {
	getenv func(string) string
	errs   []string
}

func (r *reader) str(key, fallback string) string {
	if v := strings.TrimSpace(r.getenv(key)); v != "" {
		return v
	}
	return fallback
}

func (r *reader) list(key, fallback string) []string {
	raw := r.str(key, fallback)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (r *reader) int(key string, fallback int) int {
	raw := r.str(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("%s: %v", key, err))
		return fallback
	}
	return n
}

func (r *reader) bool(key string, fallback bool) bool {
	raw := r.str(key, "")
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("%s: %v", key, err))
		return fallback
	}
	return b
}

func (r *reader) duration(key string, fallback time.Duration) time.Duration {
	raw := r.str(key, "")
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("%s: %v", key, err))
		return fallback
	}
	return d
}

func (r *reader) decimal(key, fallback string) decimal.Decimal {
	raw := r.str(key, fallback)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("%s: %v", key, err))
		return decimal.RequireFromString(fallback)
	}
	return d
}
