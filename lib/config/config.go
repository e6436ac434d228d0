// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/yaswanth65/task3Backend/lib/gateway"
	"github.com/yaswanth65/task3Backend/lib/logging"
	"github.com/yaswanth65/task3Backend/lib/membership"
	"github.com/yaswanth65/task3Backend/lib/sessiontoken"
)

// Environment is the deployment type.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// Membership modes.
const (
	MembershipOpen   = "open"
	MembershipStatic = "static"
	MembershipMongo  = "mongo"
)

// AnyOrigin in the origin list admits every browser origin.
const AnyOrigin = "*"

// DefaultAllowedOrigins are accepted on websocket upgrade when neither
// FRONTEND_URL nor server.allowed_origins is set.
var DefaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"https://task3frontend.vercel.app",
}

// Config is the complete gateway configuration.
type Config struct {
	Environment Environment      `yaml:"environment"`
	Server      ServerConfig     `yaml:"server"`
	Gateway     GatewayConfig    `yaml:"gateway"`
	Auth        AuthConfig       `yaml:"auth"`
	Membership  MembershipConfig `yaml:"membership"`
	Inbound     InboundConfig    `yaml:"inbound"`
	Logging     LoggingConfig    `yaml:"logging"`

	Development *Overrides `yaml:"development,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides holds the sections an environment block may replace.
// Only non-zero fields take effect.
type Overrides struct {
	Server     *ServerConfig     `yaml:"server,omitempty"`
	Gateway    *GatewayConfig    `yaml:"gateway,omitempty"`
	Membership *MembershipConfig `yaml:"membership,omitempty"`
	Logging    *LoggingConfig    `yaml:"logging,omitempty"`
}

type ServerConfig struct {
	// Address is the HTTP listen address.
	Address string `yaml:"address"`

	// FrontendURL is a comma-separated list of extra allowed origins.
	FrontendURL string `yaml:"frontend_url"`

	AllowedOrigins []string `yaml:"allowed_origins"`

	// IngressSocket is the Unix socket for the internal publish
	// protocol. Empty disables it.
	IngressSocket string `yaml:"ingress_socket"`

	ShutdownTimeoutMS int64 `yaml:"shutdown_timeout_ms"`
}

// GatewayConfig is the file form of gateway.Config.
type GatewayConfig struct {
	HeartbeatIntervalMS   int64  `yaml:"heartbeat_interval_ms"`
	PresenceGraceWindowMS int64  `yaml:"presence_grace_window_ms"`
	OutboundQueueCapacity int    `yaml:"outbound_queue_capacity"`
	OverflowPolicy        string `yaml:"overflow_policy"`
	HandshakeTimeoutMS    int64  `yaml:"handshake_timeout_ms"`
}

type AuthConfig struct {
	// PublicKeyFile holds the Ed25519 key that verifies session tokens.
	PublicKeyFile string `yaml:"public_key_file"`

	// Audience is the audience client tokens must carry.
	Audience string `yaml:"audience"`

	// IngressAudience is the audience tokens on the ingress socket
	// must carry.
	IngressAudience string `yaml:"ingress_audience"`

	RevocationCapacity int `yaml:"revocation_capacity"`

	// TokenTTLMS is the longest token lifetime in use; revocations are
	// remembered this long.
	TokenTTLMS int64 `yaml:"token_ttl_ms"`
}

type MembershipConfig struct {
	Mode       string      `yaml:"mode"`
	StaticFile string      `yaml:"static_file"`
	Mongo      MongoConfig `yaml:"mongo"`
}

type MongoConfig struct {
	URI                     string `yaml:"uri"`
	Database                string `yaml:"database"`
	TasksCollection         string `yaml:"tasks_collection"`
	ConversationsCollection string `yaml:"conversations_collection"`
	TimeoutMS               int64  `yaml:"timeout_ms"`
}

// InboundConfig locates the CRUD API that receives chat sends. An
// empty APIURL disables inbound messages.
type InboundConfig struct {
	APIURL string `yaml:"api_url"`
	Secret string `yaml:"secret"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`

	// Format is json or console. Unset means json in production and
	// console elsewhere.
	Format string `yaml:"format"`
}

// Default returns the development configuration.
func Default() *Config {
	defaults := gateway.DefaultConfig()
	return &Config{
		Environment: "${TASKFLOW_ENV:-development}",
		Server: ServerConfig{
			Address:           "${HOST:-0.0.0.0}:${PORT:-5000}",
			FrontendURL:       "${FRONTEND_URL:-}",
			IngressSocket:     "/run/taskflow/gateway.sock",
			ShutdownTimeoutMS: 10_000,
		},
		Gateway: GatewayConfig{
			HeartbeatIntervalMS:   defaults.HeartbeatInterval.Milliseconds(),
			PresenceGraceWindowMS: defaults.PresenceGraceWindow.Milliseconds(),
			OutboundQueueCapacity: defaults.OutboundQueueCapacity,
			OverflowPolicy:        string(defaults.OverflowPolicy),
			HandshakeTimeoutMS:    defaults.HandshakeTimeout.Milliseconds(),
		},
		Auth: AuthConfig{
			PublicKeyFile:      "/etc/taskflow/session-signing-key.pub",
			Audience:           sessiontoken.DefaultAudience,
			IngressAudience:    "taskflow-ingress",
			RevocationCapacity: 10_000,
			TokenTTLMS:         (24 * time.Hour).Milliseconds(),
		},
		Membership: MembershipConfig{
			Mode: MembershipOpen,
			Mongo: MongoConfig{
				URI:                     "${MONGODB_URI:-}",
				Database:                "taskflow",
				TasksCollection:         "tasks",
				ConversationsCollection: "conversations",
				TimeoutMS:               5_000,
			},
		},
		Inbound: InboundConfig{
			APIURL: "${API_URL:-}",
			Secret: "${INBOUND_SECRET:-}",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the file named by TASKFLOW_CONFIG, or returns the
// defaults (with expansion and overrides applied) when it is unset.
func Load() (*Config, error) {
	if path := os.Getenv("TASKFLOW_CONFIG"); path != "" {
		return LoadFile(path)
	}
	cfg := Default()
	cfg.finish()
	return cfg, nil
}

// LoadFile reads path over the defaults. It does not validate.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// JSON is YAML, so the comment-stripped document decodes
		// through the same tags.
		data = jsonc.ToJSON(data)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.finish()
	return cfg, nil
}

func (c *Config) finish() {
	c.Environment = Environment(expandVars(string(c.Environment)))
	c.applyEnvironmentOverrides()
	c.expandVariables()
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
	}
	if overrides != nil {
		c.mergeOverrides(overrides)
	}

	if c.Logging.Format == "" {
		c.Logging.Format = string(logging.FormatConsole)
		if c.Environment == Production {
			c.Logging.Format = string(logging.FormatJSON)
		}
	}
}

func (c *Config) mergeOverrides(overrides *Overrides) {
	if o := overrides.Server; o != nil {
		setString(&c.Server.Address, o.Address)
		setString(&c.Server.FrontendURL, o.FrontendURL)
		setString(&c.Server.IngressSocket, o.IngressSocket)
		setNumber(&c.Server.ShutdownTimeoutMS, o.ShutdownTimeoutMS)
		if len(o.AllowedOrigins) > 0 {
			c.Server.AllowedOrigins = o.AllowedOrigins
		}
	}
	if o := overrides.Gateway; o != nil {
		setNumber(&c.Gateway.HeartbeatIntervalMS, o.HeartbeatIntervalMS)
		setNumber(&c.Gateway.PresenceGraceWindowMS, o.PresenceGraceWindowMS)
		setNumber(&c.Gateway.OutboundQueueCapacity, o.OutboundQueueCapacity)
		setString(&c.Gateway.OverflowPolicy, o.OverflowPolicy)
		setNumber(&c.Gateway.HandshakeTimeoutMS, o.HandshakeTimeoutMS)
	}
	if o := overrides.Membership; o != nil {
		setString(&c.Membership.Mode, o.Mode)
		setString(&c.Membership.StaticFile, o.StaticFile)
		setString(&c.Membership.Mongo.URI, o.Mongo.URI)
		setString(&c.Membership.Mongo.Database, o.Mongo.Database)
		setString(&c.Membership.Mongo.TasksCollection, o.Mongo.TasksCollection)
		setString(&c.Membership.Mongo.ConversationsCollection, o.Mongo.ConversationsCollection)
		setNumber(&c.Membership.Mongo.TimeoutMS, o.Mongo.TimeoutMS)
	}
	if o := overrides.Logging; o != nil {
		setString(&c.Logging.Level, o.Level)
		setString(&c.Logging.Format, o.Format)
	}
}

func setString(target *string, value string) {
	if value != "" {
		*target = value
	}
}

func setNumber[T int | int64](target *T, value T) {
	if value != 0 {
		*target = value
	}
}

func (c *Config) expandVariables() {
	for _, field := range []*string{
		&c.Server.Address,
		&c.Server.FrontendURL,
		&c.Server.IngressSocket,
		&c.Auth.PublicKeyFile,
		&c.Membership.StaticFile,
		&c.Membership.Mongo.URI,
		&c.Inbound.APIURL,
		&c.Inbound.Secret,
	} {
		*field = expandVars(*field)
	}
	for i, origin := range c.Server.AllowedOrigins {
		c.Server.AllowedOrigins[i] = expandVars(origin)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars replaces ${VAR} and ${VAR:-default}. Unset or empty
// variables take the default, or the empty string.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Origins returns the allowed websocket origins: every entry of
// FrontendURL plus AllowedOrigins, deduplicated. When neither names an
// origin the defaults apply. An entry of AnyOrigin admits every origin.
func (s ServerConfig) Origins() []string {
	origins := append(strings.Split(s.FrontendURL, ","), s.AllowedOrigins...)
	for i, origin := range origins {
		origins[i] = strings.TrimRight(strings.TrimSpace(origin), "/")
	}
	origins = slices.DeleteFunc(origins, func(origin string) bool { return origin == "" })
	if len(origins) == 0 {
		origins = slices.Clone(DefaultAllowedOrigins)
	}
	slices.Sort(origins)
	return slices.Compact(origins)
}

func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutMS) * time.Millisecond
}

// Config converts the file form to gateway.Config.
func (g GatewayConfig) Config() gateway.Config {
	return gateway.Config{
		HeartbeatInterval:     time.Duration(g.HeartbeatIntervalMS) * time.Millisecond,
		PresenceGraceWindow:   time.Duration(g.PresenceGraceWindowMS) * time.Millisecond,
		OutboundQueueCapacity: g.OutboundQueueCapacity,
		OverflowPolicy:        gateway.OverflowPolicy(g.OverflowPolicy),
		HandshakeTimeout:      time.Duration(g.HandshakeTimeoutMS) * time.Millisecond,
	}
}

func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLMS) * time.Millisecond
}

// Config converts the file form to membership.MongoConfig.
func (m MongoConfig) Config() membership.MongoConfig {
	return membership.MongoConfig{
		URI:                     m.URI,
		Database:                m.Database,
		TasksCollection:         m.TasksCollection,
		ConversationsCollection: m.ConversationsCollection,
		Timeout:                 time.Duration(m.TimeoutMS) * time.Millisecond,
		AppName:                 "taskflow-gateway",
	}
}

// LoggingConfig converts to logging.Config.
func (l LoggingConfig) Config() logging.Config {
	return logging.Config{
		Level:  l.Level,
		Format: logging.Format(l.Format),
		Color:  logging.Format(l.Format) == logging.FormatConsole,
	}
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %q", c.Environment))
	}
	if c.Server.Address == "" {
		errs = append(errs, errors.New("server.address is required"))
	}
	if c.Server.ShutdownTimeoutMS < 0 {
		errs = append(errs, errors.New("server.shutdown_timeout_ms must not be negative"))
	}
	if err := c.Gateway.Config().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("gateway: %w", err))
	}

	if c.Auth.PublicKeyFile == "" {
		errs = append(errs, errors.New("auth.public_key_file is required"))
	}
	if c.Auth.Audience == "" {
		errs = append(errs, errors.New("auth.audience is required"))
	}
	if c.Server.IngressSocket != "" && c.Auth.IngressAudience == "" {
		errs = append(errs, errors.New("auth.ingress_audience is required when server.ingress_socket is set"))
	}
	if c.Auth.RevocationCapacity < 1 {
		errs = append(errs, errors.New("auth.revocation_capacity must be at least 1"))
	}
	if c.Auth.TokenTTLMS <= 0 {
		errs = append(errs, errors.New("auth.token_ttl_ms must be positive"))
	}

	switch c.Membership.Mode {
	case MembershipOpen:
	case MembershipStatic:
		if c.Membership.StaticFile == "" {
			errs = append(errs, errors.New("membership.static_file is required in static mode"))
		}
	case MembershipMongo:
		if c.Membership.Mongo.URI == "" || c.Membership.Mongo.Database == "" {
			errs = append(errs, errors.New("membership.mongo.uri and membership.mongo.database are required in mongo mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("membership.mode must be one of %s, %s, %s; got %q",
			MembershipOpen, MembershipStatic, MembershipMongo, c.Membership.Mode))
	}

	if c.Inbound.APIURL != "" && c.Inbound.Secret == "" {
		errs = append(errs, errors.New("inbound.secret is required when inbound.api_url is set"))
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	switch logging.Format(c.Logging.Format) {
	case logging.FormatJSON, logging.FormatConsole:
	default:
		errs = append(errs, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}
