package mongodb

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/redbco/mongostore/pkg/resource"
)

const (
	// DefaultHost and DefaultPort are applied when neither the explicit
	// fields nor the URI supply a value.
	DefaultHost = "127.0.0.1"
	DefaultPort = 27017

	// DefaultDatabase is the fallback when the process-wide environment
	// default is unset too.
	DefaultDatabase = "test"

	// EnvDatabase names the environment variable holding the process-wide
	// default database name.
	EnvDatabase = "MONGODB_DATABASE"
)

// Config carries the raw, possibly partial configuration for a store.
// Explicit fields and the URI feed the same defaulting; where both supply a
// value, the URI wins.
type Config struct {
	// Collection names the collection this store operates on. Required
	// unless OnConnect is set. It may also arrive as a collection query
	// parameter on the URI.
	Collection string

	// OnConnect, when set, makes this store open the connection itself
	// whenever no handle exists yet for the target identity. The opening
	// store invokes it exactly once: with nil after the connection is
	// ready and the deferred queue for its identity has drained, or with
	// the error that ended the attempt. When a handle already exists the
	// store reuses it and OnConnect is not invoked. Required unless
	// Collection is set.
	OnConnect func(error)

	// URI is a compact target description in host[:port] form, optionally
	// prefixed with user:pass@ and suffixed with /database?query. A scheme
	// is accepted but not required. Query parameters may carry any
	// configuration key (collection, host, port, database, auth, safe)
	// and override the rest of the URI.
	URI string

	Host     string
	Port     int
	Database string

	// Auth is a combined "user:pass" credential. Username and Password are
	// its split form; URI credentials override both.
	Auth     string
	Username string
	Password string

	// Safe requests acknowledged writes. The value may be stringly typed:
	// it is true only when its string form is exactly "true".
	Safe interface{}
}

// ConnectionSpec is the resolved, immutable description of one connection
// target. Two specs with the same Identity refer to the same logical target
// no matter how their configurations were expressed.
type ConnectionSpec struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Safe     bool

	// Identity is the canonical target key,
	// mongodb://[user:pass@]host:port/database, kept in raw form. It is a
	// registry key rather than a parseable URI; the driver receives
	// clientURI instead.
	Identity string
}

// HasAuth reports whether the spec carries credentials.
func (s ConnectionSpec) HasAuth() bool {
	return s.Username != ""
}

// Address returns host:port/database, safe for log lines (no credentials).
func (s ConnectionSpec) Address() string {
	return fmt.Sprintf("%s:%d/%s", s.Host, s.Port, s.Database)
}

// clientURI returns the driver connection string for the spec. Unlike the
// raw Identity key, credentials are percent-encoded so reserved characters
// in a password survive the driver's URI parsing.
func (s ConnectionSpec) clientURI() string {
	if !s.HasAuth() {
		return fmt.Sprintf("mongodb://%s:%d/%s", s.Host, s.Port, s.Database)
	}

	return fmt.Sprintf("mongodb://%s@%s:%d/%s", url.UserPassword(s.Username, s.Password).String(), s.Host, s.Port, s.Database)
}

// ResolveConfig normalizes cfg into a ConnectionSpec. The returned Config
// is cfg with URI components merged in and combined auth credentials split
// into Username and Password; the Store operates on this merged form, so a
// collection name may arrive through the URI as well.
// It fails with a ConfigurationError when the merged configuration carries
// neither a collection name nor an OnConnect callback: a store must either
// know what to fetch or be told when to hook itself up.
func ResolveConfig(cfg Config) (Config, ConnectionSpec, error) {
	if cfg.Auth != "" {
		cfg.Username, cfg.Password = splitAuth(cfg.Auth)
		cfg.Auth = ""
	}

	cfg, err := mergeURI(cfg)
	if err != nil {
		return Config{}, ConnectionSpec{}, err
	}

	if cfg.Collection == "" && cfg.OnConnect == nil {
		return Config{}, ConnectionSpec{}, resource.NewConfigurationError("", "either a collection name or an OnConnect callback is required")
	}

	spec := ConnectionSpec{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Database: cfg.Database,
		Username: cfg.Username,
		Password: cfg.Password,
	}

	if spec.Host == "" {
		spec.Host = DefaultHost
	}
	if spec.Port == 0 {
		spec.Port = DefaultPort
	}
	if spec.Database == "" {
		spec.Database = getEnvOrDefault(EnvDatabase, DefaultDatabase)
	}
	spec.Safe = coerceBool(cfg.Safe)
	spec.Identity = buildIdentity(spec)

	return cfg, spec, nil
}

// splitAuth splits a combined "user:pass" credential. A value without a
// separator is a bare username.
func splitAuth(auth string) (string, string) {
	parts := strings.SplitN(auth, ":", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}

	return parts[0], ""
}

// mergeURI parses cfg.URI and overlays its components onto the
// configuration: credentials, host, port and path database first, then the
// query parameters. A query parameter may carry any configuration key, so a
// URI alone can express a complete configuration; query values win over the
// authority parts they repeat. URI-derived values participate in the same
// defaulting as explicit fields.
func mergeURI(cfg Config) (Config, error) {
	if cfg.URI == "" {
		return cfg, nil
	}

	raw := cfg.URI
	if !strings.Contains(raw, "://") {
		raw = "mongodb://" + raw
	}

	parsedURL, err := url.Parse(raw)
	if err != nil {
		return Config{}, resource.NewConfigurationError("uri", fmt.Sprintf("invalid connection URI: %v", err))
	}

	if parsedURL.Hostname() != "" {
		cfg.Host = parsedURL.Hostname()
	}

	if parsedURL.Port() != "" {
		port, err := strconv.Atoi(parsedURL.Port())
		if err != nil {
			return Config{}, resource.NewConfigurationError("port", fmt.Sprintf("invalid port number: %s", parsedURL.Port()))
		}
		cfg.Port = port
	}

	if parsedURL.User != nil {
		cfg.Username = parsedURL.User.Username()
		if password, hasPassword := parsedURL.User.Password(); hasPassword {
			cfg.Password = password
		} else {
			cfg.Password = ""
		}
	}

	path := strings.Trim(parsedURL.Path, "/")
	if path != "" {
		cfg.Database = path
	}

	for key, values := range parsedURL.Query() {
		if len(values) == 0 {
			continue
		}
		value := values[0]
		switch key {
		case "collection":
			cfg.Collection = value
		case "host":
			cfg.Host = value
		case "port":
			port, err := strconv.Atoi(value)
			if err != nil {
				return Config{}, resource.NewConfigurationError("port", fmt.Sprintf("invalid port number: %s", value))
			}
			cfg.Port = port
		case "database":
			cfg.Database = value
		case "auth":
			cfg.Username, cfg.Password = splitAuth(value)
		case "safe":
			cfg.Safe = value
		}
	}

	return cfg, nil
}

// buildIdentity derives the canonical target identity for a spec. The result
// is deterministic and independent of how the values were supplied.
func buildIdentity(spec ConnectionSpec) string {
	var identity strings.Builder

	identity.WriteString("mongodb://")
	if spec.HasAuth() {
		fmt.Fprintf(&identity, "%s:%s@", spec.Username, spec.Password)
	}
	fmt.Fprintf(&identity, "%s:%d/%s", spec.Host, spec.Port, spec.Database)

	return identity.String()
}

// coerceBool coerces a possibly stringly-typed flag to a boolean: only a
// value whose string form is exactly "true" counts as true.
func coerceBool(v interface{}) bool {
	if v == nil {
		return false
	}
	return fmt.Sprint(v) == "true"
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value
}
