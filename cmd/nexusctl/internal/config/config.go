package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Ayushhgit/biomind-nexus/cmd/nexusctl/internal/client"
)

type contextKey string

const configKey contextKey = "nexusctl-config"

const (
	// EnvPrefix prefixes every environment variable nexusctl reads.
	EnvPrefix = "NEXUS"

	// DefaultServerURL is the API root of a local backend.
	DefaultServerURL = "http://localhost:8000/api/v1"
	// DefaultProfile names the credential directory used without --profile.
	DefaultProfile = "default"
	// DefaultTimeout bounds each backend call.
	DefaultTimeout = 30 * time.Second

	configDirName  = ".nexus"
	configFileName = "config.yaml"
)

// Keys in the config file and their NEXUS_* environment equivalents.
const (
	KeyServerURL      = "server_url"
	KeyProfile        = "profile"
	KeyTimeout        = "timeout"
	KeyNonInteractive = "non_interactive"
	KeyDebug          = "debug"
	KeyConfigDir      = "config_dir"
)

// flagKeys maps root persistent flags onto config keys.
var flagKeys = map[string]string{
	"server":          KeyServerURL,
	"profile":         KeyProfile,
	"timeout":         KeyTimeout,
	"non-interactive": KeyNonInteractive,
	"debug":           KeyDebug,
}

var profilePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// GlobalConfig holds shared configuration for all nexusctl commands.
// This is injected into the cobra command context by the root command's
// PersistentPreRunE hook and consumed by all subcommands.
type GlobalConfig struct {
	ServerURL      string
	Profile        string
	Timeout        time.Duration
	NonInteractive bool
	Debug          bool
	// ConfigDir is the nexusctl home (~/.nexus by default).
	ConfigDir      string
	ClientProvider *client.Provider
}

// CredentialDir is where the active profile keeps its credentials.
func (c *GlobalConfig) CredentialDir() string {
	return filepath.Join(c.ConfigDir, c.Profile)
}

// Load resolves configuration from, in increasing precedence: defaults,
// $NEXUS_CONFIG_DIR/config.yaml (~/.nexus/config.yaml), NEXUS_* environment
// variables and explicitly set flags. flags may be nil.
func Load(flags *pflag.FlagSet) (*GlobalConfig, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyServerURL, DefaultServerURL)
	v.SetDefault(KeyProfile, DefaultProfile)
	v.SetDefault(KeyTimeout, DefaultTimeout)
	v.SetDefault(KeyNonInteractive, false)
	v.SetDefault(KeyDebug, false)

	configDir := v.GetString(KeyConfigDir)
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		configDir = filepath.Join(home, configDirName)
	}

	v.SetConfigFile(filepath.Join(configDir, configFileName))
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind --%s: %w", name, err)
				}
			}
		}
	}

	cfg := &GlobalConfig{
		ServerURL:      strings.TrimRight(v.GetString(KeyServerURL), "/"),
		Profile:        v.GetString(KeyProfile),
		Timeout:        v.GetDuration(KeyTimeout),
		NonInteractive: v.GetBool(KeyNonInteractive),
		Debug:          v.GetBool(KeyDebug),
		ConfigDir:      configDir,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the resolved values.
func (c *GlobalConfig) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid server URL %q: must be an http(s) URL such as %s", c.ServerURL, DefaultServerURL)
	}
	if !profilePattern.MatchString(c.Profile) {
		return fmt.Errorf("invalid profile %q: use letters, digits, '-' or '_'", c.Profile)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

// InjectConfig adds config to the cobra command context.
// This should be called in the root command's PersistentPreRunE.
func InjectConfig(ctx context.Context, cfg *GlobalConfig) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from the cobra command context.
// Returns (nil, false) if config is not present.
func FromContext(ctx context.Context) (*GlobalConfig, bool) {
	cfg, ok := ctx.Value(configKey).(*GlobalConfig)
	return cfg, ok
}

// MustFromContext retrieves config from context or panics.
// This should only be used in command RunE functions where we know
// the config has been injected by the root command.
func MustFromContext(ctx context.Context) *GlobalConfig {
	cfg, ok := FromContext(ctx)
	if !ok {
		panic("nexusctl: config not found in context - this is a bug in nexusctl")
	}
	return cfg
}
