package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	Database DatabaseConfig `json:"database" yaml:"database"`
	Redis    RedisConfig    `json:"redis" yaml:"redis"`
	Sales    SalesConfig    `json:"sales" yaml:"sales"`
	Schema   SchemaConfig   `json:"schema" yaml:"schema"`
	Catalog  CatalogConfig  `json:"catalog" yaml:"catalog"`
	Log      LogConfig      `json:"log" yaml:"log"`
	Tracing  TracingConfig  `json:"tracing" yaml:"tracing"`
}

type ServerConfig struct {
	Host           string   `json:"host" yaml:"host"`
	Port           int      `json:"port" yaml:"port"`
	RequestTimeout Duration `json:"request_timeout" yaml:"request_timeout"`
	// MetricsPort serves /metrics on its own listener when non-zero.
	MetricsPort    int      `json:"metrics_port" yaml:"metrics_port"`
}

type DatabaseConfig struct {
	Driver           string   `json:"driver" yaml:"driver"`
	Host             string   `json:"host" yaml:"host"`
	Port             int      `json:"port" yaml:"port"`
	User             string   `json:"user" yaml:"user"`
	Password         string   `json:"password" yaml:"password"`
	DBName           string   `json:"dbname" yaml:"dbname"`
	SSLMode          string   `json:"sslmode" yaml:"sslmode"`
	MigrationsPath   string   `json:"migrations_path" yaml:"migrations_path"`
	MaxOpenConns     int      `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns     int      `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime  Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	StatementTimeout Duration `json:"statement_timeout" yaml:"statement_timeout"`
}

type RedisConfig struct {
	Host     string   `json:"host" yaml:"host"`
	Port     int      `json:"port" yaml:"port"`
	Password string   `json:"password" yaml:"password"`
	DB       int      `json:"db" yaml:"db"`
	CacheTTL Duration `json:"cache_ttl" yaml:"cache_ttl"`
}

type SalesConfig struct {
	// Timeout bounds one whole sale transaction, begin to commit.
	Timeout  Duration `json:"timeout" yaml:"timeout"`
	LockRows bool     `json:"lock_rows" yaml:"lock_rows"`
}

type SchemaConfig struct {
	// CacheTTL of zero probes the catalog inside every sale transaction.
	CacheTTL        Duration `json:"cache_ttl" yaml:"cache_ttl"`
	RefreshInterval Duration `json:"refresh_interval" yaml:"refresh_interval"`
}

type CatalogConfig struct {
	DefaultLimit int `json:"default_limit" yaml:"default_limit"`
	MaxLimit     int `json:"max_limit" yaml:"max_limit"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"`
}

type TracingConfig struct {
	Endpoint    string  `json:"endpoint" yaml:"endpoint"`
	Insecure    bool    `json:"insecure" yaml:"insecure"`
	ServiceName string  `json:"service_name" yaml:"service_name"`
	SampleRatio float64 `json:"sample_ratio" yaml:"sample_ratio"`
}

// Duration accepts "5s"-style strings or integer milliseconds in both JSON and YAML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	return d.set(raw)
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw interface{}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	return d.set(raw)
}

func (d *Duration) set(raw interface{}) error {
	switch v := raw.(type) {
	case nil:
		d.Duration = 0
	case float64:
		d.Duration = time.Duration(v) * time.Millisecond
	case int:
		d.Duration = time.Duration(v) * time.Millisecond
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		d.Duration = parsed
	default:
		return fmt.Errorf("invalid duration %v", raw)
	}
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := config.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("LEGACY_DB_HOST"); ok && strings.TrimSpace(v) != "" {
		c.Database.Host = strings.TrimSpace(v)
	}
	if v, ok := lookup("LEGACY_DB_PORT"); ok && strings.TrimSpace(v) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid LEGACY_DB_PORT %q", v)
		}
		c.Database.Port = port
	}
	if v, ok := lookup("LEGACY_DB_USER"); ok && strings.TrimSpace(v) != "" {
		c.Database.User = strings.TrimSpace(v)
	}
	if v, ok := lookup("LEGACY_DB_PASSWORD"); ok && v != "" {
		c.Database.Password = v
	}
	if v, ok := lookup("LEGACY_DB_NAME"); ok && strings.TrimSpace(v) != "" {
		c.Database.DBName = strings.TrimSpace(v)
	}
	if v, ok := lookup("LEGACY_DB_SSLMODE"); ok && strings.TrimSpace(v) != "" {
		c.Database.SSLMode = strings.TrimSpace(v)
	}
	if v, ok := lookup("REDIS_ADDR"); ok && strings.TrimSpace(v) != "" {
		host, portStr, found := strings.Cut(strings.TrimSpace(v), ":")
		c.Redis.Host = host
		if found {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return fmt.Errorf("invalid REDIS_ADDR %q", v)
			}
			c.Redis.Port = port
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.RequestTimeout.Duration == 0 {
		c.Server.RequestTimeout.Duration = 30 * time.Second
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 10
	}
	if c.Database.ConnMaxLifetime.Duration == 0 {
		c.Database.ConnMaxLifetime.Duration = time.Hour
	}
	if c.Database.StatementTimeout.Duration == 0 {
		c.Database.StatementTimeout.Duration = 5 * time.Second
	}

	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Redis.CacheTTL.Duration == 0 {
		c.Redis.CacheTTL.Duration = 30 * time.Second
	}

	if c.Sales.Timeout.Duration == 0 {
		c.Sales.Timeout.Duration = 10 * time.Second
	}

	if c.Schema.CacheTTL.Duration > 0 && c.Schema.RefreshInterval.Duration == 0 {
		c.Schema.RefreshInterval.Duration = c.Schema.CacheTTL.Duration / 2
	}

	if c.Catalog.DefaultLimit == 0 {
		c.Catalog.DefaultLimit = 100
	}
	if c.Catalog.MaxLimit == 0 {
		c.Catalog.MaxLimit = 2000
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "pdv-service"
	}
	if c.Tracing.SampleRatio == 0 {
		c.Tracing.SampleRatio = 1
	}
}

func (c *DatabaseConfig) GetDSN() string {
	dsn := "host=" + quoteConnValue(c.Host) +
		" port=" + strconv.Itoa(c.Port) +
		" user=" + quoteConnValue(c.User) +
		" password=" + quoteConnValue(c.Password) +
		" dbname=" + quoteConnValue(c.DBName) +
		" sslmode=" + c.SSLMode

	if c.StatementTimeout.Duration > 0 {
		dsn += " statement_timeout=" + strconv.FormatInt(c.StatementTimeout.Milliseconds(), 10)
	}
	return dsn
}

// GetURL is the pgx-style URL form of the same connection settings.
func (c *DatabaseConfig) GetURL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.DBName,
	}
	q := url.Values{}
	q.Set("sslmode", c.SSLMode)
	if c.StatementTimeout.Duration > 0 {
		q.Set("statement_timeout", strconv.FormatInt(c.StatementTimeout.Milliseconds(), 10))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

type DatabaseInfo struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	SSLMode  string `json:"sslmode"`
}

func (c *DatabaseConfig) Info() DatabaseInfo {
	return DatabaseInfo{
		Host:     c.Host,
		Port:     c.Port,
		Database: c.DBName,
		User:     c.User,
		SSLMode:  c.SSLMode,
	}
}

func quoteConnValue(v string) string {
	if v == "" {
		return "''"
	}
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

func (c *RedisConfig) Enabled() bool {
	return c.Host != ""
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
