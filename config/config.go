package config

import (
	"flag"
	"net"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

type Config struct {
	Addr          string
	DBDriver      string
	DBUrl         string
	TokenSecret   string
	TokenTTL      time.Duration
	AdminUser     string
	AdminPassword string
	Debug         bool
}

// environment provides the defaults of the command-line flags.
type environment struct {
	Host          string `env:"QFEEDBACK_HOST" envDefault:"0.0.0.0"`
	Port          uint   `env:"QFEEDBACK_PORT" envDefault:"80"`
	DBDriver      string `env:"QFEEDBACK_DB_DRIVER" envDefault:"sqlite3"`
	DBUrl         string `env:"QFEEDBACK_DB_URL" envDefault:"qfeedback.sqlite"`
	TokenSecret   string `env:"QFEEDBACK_TOKEN_SECRET"`
	TokenTTL      uint   `env:"QFEEDBACK_TOKEN_TTL" envDefault:"120"`
	AdminUser     string `env:"QFEEDBACK_ADMIN_USER"`
	AdminPassword string `env:"QFEEDBACK_ADMIN_PASSWORD"`
	Debug         bool   `env:"QFEEDBACK_DEBUG"`
}

var drivers = map[string]bool{"sqlite3": true, "sqlite": true}

func ParseFlags() (Config, error) {
	return Parse(flag.CommandLine, nil)
}

// Parse reads the environment, then lets args override it through fs.
// A nil args slice means os.Args[1:].
func Parse(fs *flag.FlagSet, args []string) (cfg Config, err error) {
	var e environment
	if err = env.Parse(&e); err != nil {
		return cfg, errors.Wrap(err, "parse env")
	}

	var host string
	fs.StringVar(&host, "host", e.Host, "listen host name")
	var port uint
	fs.UintVar(&port, "port", e.Port, "listen port number")
	fs.StringVar(&cfg.DBDriver, "db-driver", e.DBDriver, "SQLite driver: sqlite3 (cgo) or sqlite (pure Go)")
	fs.StringVar(&cfg.DBUrl, "db-url", e.DBUrl, "path to SQLite DB file")
	fs.StringVar(&cfg.TokenSecret, "token-secret", e.TokenSecret, "secret key for token encryption and decryption")
	var ttl uint
	fs.UintVar(&ttl, "token-ttl", e.TokenTTL, "token TTL in seconds")
	fs.StringVar(&cfg.AdminUser, "admin-user", e.AdminUser, "create or update this admin account at startup")
	fs.StringVar(&cfg.AdminPassword, "admin-password", e.AdminPassword, "password for -admin-user")
	fs.BoolVar(&cfg.Debug, "debug", e.Debug, "log at DEBUG level")

	if args == nil {
		args = os.Args[1:]
	}
	if err = fs.Parse(args); err != nil {
		return cfg, err
	}

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.TokenTTL = time.Duration(ttl) * time.Second

	switch {
	case cfg.TokenSecret == "":
		err = errors.New("missing parameter -token-secret")
	case !drivers[cfg.DBDriver]:
		err = errors.Errorf("unknown -db-driver %q", cfg.DBDriver)
	case cfg.AdminUser != "" && cfg.AdminPassword == "":
		err = errors.New("missing parameter -admin-password for -admin-user")
	}
	return
}

var reAnyHost = regexp.MustCompile(`^0\.0\.0\.0`)

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = reAnyHost.ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}
