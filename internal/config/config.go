package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultLobbyPort   = 8864
	DefaultBroadcastIP = "255.255.255.255"
	DefaultTick        = 5 * time.Second
)

// Backends for accounts and the archive.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendNone     = "none"
)

// StoreConfig selects the account and archive backends.
type StoreConfig struct {
	AccountsBackend    string
	ArchiveBackend     string
	RedisURL           string
	DatabaseURL        string
	SQLitePath         string
	SeedFile           string
	ArchiveRecentLimit int
	ArchiveTTL         time.Duration
}

type ServerConfig struct {
	ListenIP    string
	ListenPort  int
	BroadcastIP string
	UDPPort     int
	Advertise   bool
	WSAddr      string
	AdminAddr   string
	Tick        time.Duration

	Store StoreConfig
}

type ClientConfig struct {
	ServerIP string
	Port     int
	Username string
	Password string
	WSURL    string
	MsgDir   string
}

// LoadStore reads store settings from the environment.
func LoadStore() (StoreConfig, error) {
	cfg := StoreConfig{
		AccountsBackend:    BackendMemory,
		ArchiveBackend:     BackendMemory,
		SQLitePath:         "checkers.db",
		ArchiveRecentLimit: 100,
		ArchiveTTL:         30 * 24 * time.Hour,
	}
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("ACCOUNTS_BACKEND"))); v != "" {
		cfg.AccountsBackend = v
	}
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("ARCHIVE_BACKEND"))); v != "" {
		cfg.ArchiveBackend = v
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if v := strings.TrimSpace(os.Getenv("SQLITE_PATH")); v != "" {
		cfg.SQLitePath = v
	}
	cfg.SeedFile = strings.TrimSpace(os.Getenv("ACCOUNTS_SEED_FILE"))
	if v := strings.TrimSpace(os.Getenv("ARCHIVE_RECENT_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ArchiveRecentLimit = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ARCHIVE_TTL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ArchiveTTL = d
		}
	}
	return cfg, cfg.Validate()
}

func (c StoreConfig) Validate() error {
	switch c.AccountsBackend {
	case BackendMemory, BackendRedis, BackendPostgres, BackendSQLite:
	default:
		return fmt.Errorf("ACCOUNTS_BACKEND %q is not one of memory|redis|postgres|sqlite", c.AccountsBackend)
	}
	switch c.ArchiveBackend {
	case BackendMemory, BackendRedis, BackendPostgres, BackendNone:
	default:
		return fmt.Errorf("ARCHIVE_BACKEND %q is not one of memory|redis|postgres|none", c.ArchiveBackend)
	}
	if (c.AccountsBackend == BackendRedis || c.ArchiveBackend == BackendRedis) && c.RedisURL == "" {
		return errors.New("REDIS_URL is required for the redis backend")
	}
	if (c.AccountsBackend == BackendPostgres || c.ArchiveBackend == BackendPostgres) && c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required for the postgres backend")
	}
	return nil
}

// LoadServer reads server settings from the environment. Command-line flags
// are applied on top by the caller, which then calls Validate.
func LoadServer() (*ServerConfig, error) {
	store, err := LoadStore()
	if err != nil {
		return nil, err
	}
	cfg := &ServerConfig{
		ListenIP:    "0.0.0.0",
		ListenPort:  DefaultLobbyPort,
		BroadcastIP: DefaultBroadcastIP,
		Advertise:   true,
		Tick:        DefaultTick,
		Store:       store,
	}
	if v := strings.TrimSpace(os.Getenv("LISTEN_IP")); v != "" {
		cfg.ListenIP = v
	}
	if v := strings.TrimSpace(os.Getenv("LISTEN_PORT")); v != "" {
		n, err := ParsePort(v)
		if err != nil {
			return nil, fmt.Errorf("LISTEN_PORT: %w", err)
		}
		cfg.ListenPort = n
	}
	if v := strings.TrimSpace(os.Getenv("BROADCAST_IP")); v != "" {
		cfg.BroadcastIP = v
	}
	if v := strings.TrimSpace(os.Getenv("UDP_PORT")); v != "" {
		n, err := ParsePort(v)
		if err != nil {
			return nil, fmt.Errorf("UDP_PORT: %w", err)
		}
		cfg.UDPPort = n
	}
	if v := strings.TrimSpace(os.Getenv("ADVERTISE")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Advertise = b
		}
	}
	cfg.WSAddr = strings.TrimSpace(os.Getenv("WS_ADDR"))
	cfg.AdminAddr = strings.TrimSpace(os.Getenv("ADMIN_ADDR"))
	if v := strings.TrimSpace(os.Getenv("QUEUE_TICK")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Tick = d
		}
	}
	return cfg, nil
}

func (c *ServerConfig) Validate() error {
	if err := validPort(c.ListenPort); err != nil {
		return fmt.Errorf("listen port: %w", err)
	}
	if err := validPort(c.UDPPort); err != nil {
		return fmt.Errorf("udp port: %w", err)
	}
	if c.Tick <= 0 {
		return errors.New("queue tick must be positive")
	}
	return c.Store.Validate()
}

// LoadClient reads client defaults from the environment.
func LoadClient() (*ClientConfig, error) {
	cfg := &ClientConfig{Port: DefaultLobbyPort}
	cfg.ServerIP = strings.TrimSpace(os.Getenv("CHECKERS_SERVER_IP"))
	if v := strings.TrimSpace(os.Getenv("CHECKERS_PORT")); v != "" {
		n, err := ParsePort(v)
		if err != nil {
			return nil, fmt.Errorf("CHECKERS_PORT: %w", err)
		}
		cfg.Port = n
	}
	cfg.Username = strings.TrimSpace(os.Getenv("CHECKERS_USERNAME"))
	cfg.Password = os.Getenv("CHECKERS_PASSWORD")
	cfg.WSURL = strings.TrimSpace(os.Getenv("CHECKERS_WS_URL"))
	cfg.MsgDir = strings.TrimSpace(os.Getenv("MSGCAT_DIR"))
	return cfg, nil
}

func (c *ClientConfig) Validate() error {
	return validPort(c.Port)
}

// ParsePort parses and range-checks a port number.
func ParsePort(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	return n, validPort(n)
}

func validPort(n int) error {
	if n < 0 || n > 65535 {
		return fmt.Errorf("port %d out of range 0..65535", n)
	}
	return nil
}
