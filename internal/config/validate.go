package config

import (
	"fmt"
	"net/url"
	"strings"

	"datapipe/internal/etlerr"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks the stage that needs the section.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is logged but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding. Path is the dotted YAML path
// of the offending field; Env names the variable that overrides it.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Env      string
	Message  string
}

func (i Issue) Error() string {
	if i.Env != "" {
		return fmt.Sprintf("%s at %s (%s): %s", i.Severity, i.Path, i.Env, i.Message)
	}
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Section names a group of settings a stage depends on.
type Section string

const (
	SectionObjectStore Section = "object_store"
	SectionSource      Section = "source"
	SectionRelational  Section = "relational"
	SectionSnowflake   Section = "snowflake"
	SectionHTTP        Section = "http"
	SectionRuntime     Section = "runtime"
	SectionMetrics     Section = "metrics"
)

// Validate returns the issues found in one section, including environment
// values that failed to parse. It never mutates c.
func (c *Config) Validate(s Section) []Issue {
	var issues []Issue
	switch s {
	case SectionObjectStore:
		issues = c.validateObjectStore()
	case SectionSource:
		issues = c.validateSource()
	case SectionRelational:
		issues = c.validateRelational()
	case SectionSnowflake:
		issues = c.validateSnowflake()
	case SectionHTTP:
		issues = c.validateHTTP()
	case SectionRuntime:
		issues = c.validateRuntime()
	case SectionMetrics:
		issues = c.validateMetrics()
	default:
		return []Issue{{Severity: SeverityError, Path: string(s), Message: "unknown configuration section"}}
	}
	return append(append([]Issue(nil), c.envIssues[s]...), issues...)
}

// ValidateAll lints every section.
func (c *Config) ValidateAll() []Issue {
	var issues []Issue
	for _, s := range []Section{SectionObjectStore, SectionSource, SectionRelational,
		SectionSnowflake, SectionHTTP, SectionRuntime, SectionMetrics} {
		issues = append(issues, c.Validate(s)...)
	}
	return issues
}

// Require returns a configuration error listing every error-level issue of
// the given sections, or nil when they are usable.
func (c *Config) Require(sections ...Section) error {
	var msgs []string
	for _, s := range sections {
		for _, iss := range c.Validate(s) {
			if iss.Severity == SeverityError {
				msgs = append(msgs, iss.Error())
			}
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return etlerr.Errorf(etlerr.KindConfiguration, "config.require", "%s", strings.Join(msgs, "; "))
}

func required(issues []Issue, path, env, val string) []Issue {
	if strings.TrimSpace(val) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path,
			Env:      env,
			Message:  "must not be empty",
		})
	}
	return issues
}

func (c *Config) validateObjectStore() []Issue {
	var issues []Issue
	o := c.ObjectStore
	issues = required(issues, "object_store.endpoint", "RUSTFS_ENDPOINT", o.Endpoint)
	issues = required(issues, "object_store.access_key", "RUSTFS_ROOT_USER", o.AccessKey)
	issues = required(issues, "object_store.secret_key", "RUSTFS_ROOT_PASSWORD", o.SecretKey)
	issues = required(issues, "object_store.bucket", "RUSTFS_BUCKET", o.Bucket)
	if o.Endpoint != "" {
		if u, err := url.Parse(o.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "object_store.endpoint",
				Env:      "RUSTFS_ENDPOINT",
				Message:  fmt.Sprintf("endpoint %q must be an absolute URL", o.Endpoint),
			})
		}
	}
	return issues
}

func (c *Config) validateSource() []Issue {
	var issues []Issue
	issues = required(issues, "source.bucket", "S3_BUCKET_NAME", c.Source.Bucket)
	if c.Source.Profile == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "source.profile",
			Env:      "AWS_PROFILE",
			Message:  "no profile set; the AWS default credential chain will be used",
		})
	}
	return issues
}

func (c *Config) validateRelational() []Issue {
	var issues []Issue
	r := c.Relational
	switch r.Kind {
	case "postgres":
		if r.DSN == "" {
			issues = required(issues, "relational.host", "POSTGRES_HOST", r.Host)
			issues = required(issues, "relational.port", "POSTGRES_PORT", r.Port)
			issues = required(issues, "relational.database", "POSTGRES_DB", r.Database)
			issues = required(issues, "relational.user", "POSTGRES_USER", r.User)
		}
	case "mysql", "mssql", "sqlite":
		issues = required(issues, "relational.dsn", "RELATIONAL_DSN", r.DSN)
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "relational.kind",
			Env:      "RELATIONAL_KIND",
			Message:  fmt.Sprintf("unsupported kind %q; want postgres, mysql, mssql or sqlite", r.Kind),
		})
	}
	return issues
}

func (c *Config) validateSnowflake() []Issue {
	var issues []Issue
	s := c.Snowflake
	issues = required(issues, "snowflake.account", "SNOWFLAKE_ACCOUNT", s.Account)
	issues = required(issues, "snowflake.user", "SNOWFLAKE_USER", s.User)
	issues = required(issues, "snowflake.password", "SNOWFLAKE_PASSWORD", s.Password)
	issues = required(issues, "snowflake.database", "SNOWFLAKE_DATABASE", s.Database)
	issues = required(issues, "snowflake.schema", "SNOWFLAKE_SCHEMA", s.Schema)
	if s.Warehouse == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "snowflake.warehouse",
			Env:      "SNOWFLAKE_WAREHOUSE",
			Message:  "no warehouse set; the user's default warehouse will be used",
		})
	}
	return issues
}

func (c *Config) validateHTTP() []Issue {
	var issues []Issue
	issues = required(issues, "http.pokeapi_url", "POKEAPI_URL", c.HTTP.PokeAPIURL)
	if c.HTTP.Timeout <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "http.timeout",
			Env:      "HTTP_TIMEOUT",
			Message:  "timeout must be > 0",
		})
	}
	return issues
}

func (c *Config) validateRuntime() []Issue {
	var issues []Issue
	r := c.Runtime
	if r.StageTimeout <= 0 {
		issues = append(issues, Issue{Severity: SeverityError, Path: "runtime.stage_timeout", Env: "STAGE_TIMEOUT", Message: "must be > 0"})
	}
	if r.ObjectStoreTimeout <= 0 {
		issues = append(issues, Issue{Severity: SeverityError, Path: "runtime.object_store_timeout", Env: "OBJECT_STORE_TIMEOUT", Message: "must be > 0"})
	}
	if r.StageRetries < 0 {
		issues = append(issues, Issue{Severity: SeverityError, Path: "runtime.stage_retries", Env: "PIPELINE_STAGE_RETRIES", Message: "must be >= 0"})
	}
	if r.BatchSize <= 0 {
		issues = append(issues, Issue{Severity: SeverityError, Path: "runtime.batch_size", Env: "BATCH_SIZE", Message: "must be > 0"})
	}
	if strings.TrimSpace(c.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "job",
			Env:      "PIPELINE_JOB",
			Message:  "job is empty; metrics will be unlabeled",
		})
	}
	return issues
}

func (c *Config) validateMetrics() []Issue {
	var issues []Issue
	m := c.Metrics
	switch m.Backend {
	case "", "none":
	case "pushgateway":
		issues = required(issues, "metrics.pushgateway_url", "PUSHGATEWAY_URL", m.PushgatewayURL)
	case "datadog":
		issues = required(issues, "metrics.datadog_addr", "DD_AGENT_ADDR", m.DatadogAddr)
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics.backend",
			Env:      "METRICS_BACKEND",
			Message:  fmt.Sprintf("unknown backend %q; want pushgateway, datadog or none", m.Backend),
		})
	}
	return issues
}
