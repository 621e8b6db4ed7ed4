// Package config centralizes pipeline configuration. Every tunable lives
// outside the code and is resolved in three layers:
//
//  1. Defaults compiled into Defaults().
//  2. An optional YAML overlay named by PIPELINE_CONFIG.
//  3. Environment variables, which always win. A .env file in the working
//     directory is loaded into the process environment first (existing
//     variables are not overwritten).
//
// Typical usage:
//
//	cfg, err := config.Load() // reads .env, $PIPELINE_CONFIG and os.Getenv
//
// For tests, prefer LoadFromEnv to keep them hermetic:
//
//	getenv := func(k string) string { return testEnv[k] }
//	cfg, err := config.LoadFromEnv(getenv)
//
// Loading never fails because a stage's settings are missing; stages call
// Require for the sections they use so that a run only fails when it reaches
// a stage that cannot work.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"datapipe/internal/etlerr"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all process configuration. Exported fields are plain values;
// copies share the record of environment values that failed to parse.
type Config struct {
	// Job labels metrics and log lines for a run.
	Job string `yaml:"job"`

	ObjectStore ObjectStore `yaml:"object_store"`
	Source      Source      `yaml:"source"`
	Relational  Relational  `yaml:"relational"`
	Snowflake   Snowflake   `yaml:"snowflake"`
	Paths       Paths       `yaml:"paths"`
	HTTP        HTTP        `yaml:"http"`
	Runtime     Runtime     `yaml:"runtime"`
	Metrics     Metrics     `yaml:"metrics"`

	// envIssues are environment values ApplyEnv could not parse, keyed by
	// the section that reports them.
	envIssues map[Section][]Issue
}

// ObjectStore is the S3-compatible store the employee CSV goes through
// (RustFS in the reference deployment).
type ObjectStore struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
}

// Source is the cloud bucket holding the NPPES sample and receiving API
// payloads. Credentials come from the AWS default chain.
type Source struct {
	Profile string `yaml:"profile"`
	Region  string `yaml:"region"`
	Bucket  string `yaml:"bucket"`
	Prefix  string `yaml:"prefix"`
}

// Relational is the upsert destination for the employee table.
type Relational struct {
	// Kind is a registered storage kind: postgres, mysql, mssql or sqlite.
	Kind string `yaml:"kind"`
	// DSN, when set, is used verbatim. Otherwise a Postgres URL is built from
	// the discrete fields below.
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// Snowflake holds warehouse credentials.
type Snowflake struct {
	Account   string `yaml:"account"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	Warehouse string `yaml:"warehouse"`
	Database  string `yaml:"database"`
	Schema    string `yaml:"schema"`
	Role      string `yaml:"role"`
}

// Paths are local files the stages read or write.
type Paths struct {
	SampleData  string `yaml:"sample_data"`
	DuckDBSeed  string `yaml:"duckdb_seed"`
	DuckDBNPPES string `yaml:"duckdb_nppes"`
}

// HTTP configures the public API fetch.
type HTTP struct {
	PokeAPIURL string        `yaml:"pokeapi_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Runtime bounds how long and how often stages run.
type Runtime struct {
	ObjectStoreTimeout time.Duration `yaml:"object_store_timeout"`
	StageTimeout       time.Duration `yaml:"stage_timeout"`
	StageRetries       int           `yaml:"stage_retries"`
	BatchSize          int           `yaml:"batch_size"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is one of pushgateway, datadog or none.
	Backend        string   `yaml:"backend"`
	PushgatewayURL string   `yaml:"pushgateway_url"`
	DatadogAddr    string   `yaml:"datadog_addr"`
	Tags           []string `yaml:"tags"`
}

// DefaultAPIPrefix is the folder API payloads land in when Source.Prefix is
// empty.
const DefaultAPIPrefix = "Raines"

// Defaults returns the compiled-in configuration.
func Defaults() Config {
	return Config{
		Job: "datapipe",
		ObjectStore: ObjectStore{
			Endpoint: "http://localhost:9000",
			Region:   "us-east-1",
		},
		Source: Source{Region: "us-east-1"},
		Relational: Relational{
			Kind:    "postgres",
			Host:    "localhost",
			Port:    "5432",
			SSLMode: "disable",
		},
		Paths: Paths{
			SampleData:  "sample_data.csv",
			DuckDBSeed:  "duck_db/database.duckdb",
			DuckDBNPPES: "s3_duckdb/nppes_data.duckdb",
		},
		HTTP: HTTP{
			PokeAPIURL: "https://pokeapi.co/api/v2/pokemon?limit=151",
			Timeout:    30 * time.Second,
		},
		Runtime: Runtime{
			ObjectStoreTimeout: 60 * time.Second,
			StageTimeout:       10 * time.Minute,
			BatchSize:          500,
		},
		Metrics: Metrics{Backend: "none"},
	}
}

// Load is the production entry point: .env, then $PIPELINE_CONFIG, then the
// process environment.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	return LoadFromEnv(os.Getenv)
}

// LoadFromEnv builds a Config from defaults, the YAML file named by
// getenv("PIPELINE_CONFIG") if any, and environment overrides read through
// getenv.
func LoadFromEnv(getenv func(string) string) (*Config, error) {
	cfg := Defaults()
	if path := strings.TrimSpace(getenv("PIPELINE_CONFIG")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, etlerr.Configuration("config.load", fmt.Errorf("read %s: %w", path, err))
		}
		if err := cfg.ApplyYAML(data); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv(getenv)
	return &cfg, nil
}

// ApplyYAML overlays fields present in data onto c.
func (c *Config) ApplyYAML(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return etlerr.Configuration("config.yaml", err)
	}
	return nil
}

// ApplyEnv overrides c with every non-empty variable getenv returns. A value
// that does not parse leaves the field unchanged and is reported as an
// error-level issue by Validate for the owning section.
func (c *Config) ApplyEnv(getenv func(string) string) {
	str := func(dst *string, k string) {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			*dst = v
		}
	}
	dur := func(dst *time.Duration, s Section, path, k string) {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			d, ok := parseDuration(v)
			if !ok {
				c.invalidEnv(s, path, k, fmt.Sprintf("invalid duration %q", v))
				return
			}
			*dst = d
		}
	}
	num := func(dst *int, s Section, path, k string) {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			i, err := strconv.Atoi(v)
			if err != nil {
				c.invalidEnv(s, path, k, fmt.Sprintf("invalid integer %q", v))
				return
			}
			*dst = i
		}
	}

	str(&c.Job, "PIPELINE_JOB")

	str(&c.ObjectStore.Endpoint, "RUSTFS_ENDPOINT")
	str(&c.ObjectStore.AccessKey, "RUSTFS_ROOT_USER")
	str(&c.ObjectStore.SecretKey, "RUSTFS_ROOT_PASSWORD")
	str(&c.ObjectStore.Bucket, "RUSTFS_BUCKET")
	str(&c.ObjectStore.Region, "RUSTFS_REGION")

	str(&c.Source.Profile, "AWS_PROFILE")
	str(&c.Source.Region, "AWS_REGION")
	str(&c.Source.Bucket, "S3_BUCKET_NAME")
	str(&c.Source.Prefix, "S3_FOLDER_PREFIX")

	str(&c.Relational.Kind, "RELATIONAL_KIND")
	str(&c.Relational.DSN, "RELATIONAL_DSN")
	str(&c.Relational.Host, "POSTGRES_HOST")
	str(&c.Relational.Port, "POSTGRES_PORT")
	str(&c.Relational.Database, "POSTGRES_DB")
	str(&c.Relational.User, "POSTGRES_USER")
	str(&c.Relational.Password, "POSTGRES_PASSWORD")
	str(&c.Relational.SSLMode, "POSTGRES_SSLMODE")

	str(&c.Snowflake.Account, "SNOWFLAKE_ACCOUNT")
	str(&c.Snowflake.User, "SNOWFLAKE_USER")
	str(&c.Snowflake.Password, "SNOWFLAKE_PASSWORD")
	str(&c.Snowflake.Warehouse, "SNOWFLAKE_WAREHOUSE")
	str(&c.Snowflake.Database, "SNOWFLAKE_DATABASE")
	str(&c.Snowflake.Schema, "SNOWFLAKE_SCHEMA")
	str(&c.Snowflake.Role, "SNOWFLAKE_ROLE")

	str(&c.Paths.SampleData, "SAMPLE_DATA_PATH")
	str(&c.Paths.DuckDBSeed, "DUCKDB_SEED_PATH")
	str(&c.Paths.DuckDBNPPES, "DUCKDB_NPPES_PATH")

	str(&c.HTTP.PokeAPIURL, "POKEAPI_URL")
	dur(&c.HTTP.Timeout, SectionHTTP, "http.timeout", "HTTP_TIMEOUT")

	dur(&c.Runtime.ObjectStoreTimeout, SectionRuntime, "runtime.object_store_timeout", "OBJECT_STORE_TIMEOUT")
	dur(&c.Runtime.StageTimeout, SectionRuntime, "runtime.stage_timeout", "STAGE_TIMEOUT")
	num(&c.Runtime.StageRetries, SectionRuntime, "runtime.stage_retries", "PIPELINE_STAGE_RETRIES")
	num(&c.Runtime.BatchSize, SectionRuntime, "runtime.batch_size", "BATCH_SIZE")

	str(&c.Metrics.Backend, "METRICS_BACKEND")
	str(&c.Metrics.PushgatewayURL, "PUSHGATEWAY_URL")
	str(&c.Metrics.DatadogAddr, "DD_AGENT_ADDR")
	if v := strings.TrimSpace(getenv("METRICS_TAGS")); v != "" {
		c.Metrics.Tags = splitList(v)
	}
}

func (c *Config) invalidEnv(s Section, path, env, msg string) {
	if c.envIssues == nil {
		c.envIssues = make(map[Section][]Issue)
	}
	c.envIssues[s] = append(c.envIssues[s], Issue{
		Severity: SeverityError,
		Path:     path,
		Env:      env,
		Message:  msg,
	})
}

// RelationalDSN returns Relational.DSN, or a Postgres URL assembled from the
// discrete connection fields.
func (c *Config) RelationalDSN() string {
	r := c.Relational
	if r.DSN != "" {
		return r.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   r.Host + ":" + r.Port,
		Path:   "/" + r.Database,
	}
	if r.User != "" {
		u.User = url.UserPassword(r.User, r.Password)
	}
	if r.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {r.SSLMode}}.Encode()
	}
	return u.String()
}

// APIPrefix is the key prefix for fetched API payloads.
func (c *Config) APIPrefix() string {
	if c.Source.Prefix != "" {
		return c.Source.Prefix
	}
	return DefaultAPIPrefix
}

// loadDotEnv loads path into the process environment when it exists.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return etlerr.Configuration("config.dotenv", err)
	}
	return nil
}

// parseDuration accepts Go durations ("90s") and bare seconds ("90").
func parseDuration(s string) (time.Duration, bool) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, true
	}
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, true
	}
	return 0, false
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
