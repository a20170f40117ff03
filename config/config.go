package config

import (
	"errors"
	"flag"
	"net"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

type Config struct {
	Addr          string
	DBUrl         string
	TokenSecret   string
	TokenTTL      time.Duration
	Debug         bool
	Store         string
	RedisAddr     string
	RedisPrefix   string
	RedisTTL      time.Duration
	TemplatesDir  string
	AdminUser     string
	AdminPassword string
}

// ParseFlags reads the command line. Flag defaults come from QWIZ_*
// environment variables, which may be set in a .env file.
func ParseFlags() (Config, error) {
	return Parse(flag.CommandLine, os.Args[1:])
}

func Parse(fs *flag.FlagSet, args []string) (cfg Config, err error) {
	_ = godotenv.Load() // a missing .env is fine

	var host string
	fs.StringVar(&host, "host", env("QWIZ_HOST", "0.0.0.0"), "listen host name")
	var port uint
	fs.UintVar(&port, "port", uint(envInt("QWIZ_PORT", 80)), "listen port number")
	fs.StringVar(&cfg.DBUrl, "db-url", env("QWIZ_DB_URL", "qwizard.sqlite"), "path to SQLite3 DB file")
	fs.StringVar(&cfg.TokenSecret, "token-secret", env("QWIZ_TOKEN_SECRET", ""), "secret key for token encryption and decryption")
	var ttl uint
	fs.UintVar(&ttl, "token-ttl", uint(envInt("QWIZ_TOKEN_TTL", 120)), "token TTL in seconds")
	fs.BoolVar(&cfg.Debug, "debug", env("QWIZ_DEBUG", "") == "true", "log at DEBUG level")
	fs.StringVar(&cfg.Store, "store", env("QWIZ_STORE", StoreSQLite), "submission store: sqlite or redis")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", env("QWIZ_REDIS_ADDR", "localhost:6379"), "Redis address, with -store redis")
	fs.StringVar(&cfg.RedisPrefix, "redis-prefix", env("QWIZ_REDIS_PREFIX", "qwizard"), "Redis key prefix")
	var redisTTL uint
	fs.UintVar(&redisTTL, "redis-ttl", uint(envInt("QWIZ_REDIS_TTL", 0)), "expire idle in-progress submissions after this many hours (0 = never)")
	fs.StringVar(&cfg.TemplatesDir, "templates", env("QWIZ_TEMPLATES", ""), "directory of YAML/JSON templates to import at startup")
	fs.StringVar(&cfg.AdminUser, "admin-user", env("QWIZ_ADMIN_USER", "admin"), "admin account name")
	fs.StringVar(&cfg.AdminPassword, "admin-password", env("QWIZ_ADMIN_PASSWORD", ""), "create or reset the admin account with this password")
	if err = fs.Parse(args); err != nil {
		return
	}

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.TokenTTL = time.Duration(ttl) * time.Second
	cfg.RedisTTL = time.Duration(redisTTL) * time.Hour

	switch {
	case cfg.TokenSecret == "":
		err = errors.New("missing parameter -token-secret")
	case cfg.Store != StoreSQLite && cfg.Store != StoreRedis:
		err = errors.New("-store must be sqlite or redis")
	}

	return
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}

func env(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}
