// Package config provides configuration loading for the manage CLI.
// It supports loading from INI files with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"
	"gopkg.in/ini.v1"

	"github.com/mayo-dayo/manage/instance"
	"github.com/mayo-dayo/manage/lifecycle"
	"github.com/mayo-dayo/manage/registry"
	"github.com/mayo-dayo/manage/versioning"
)

// Config holds all configuration options.
type Config struct {
	DockerHost string
	LogLevel   string `validate:"oneof=debug info warn error"`
	LogFormat  string `validate:"oneof=console json"`

	Registry      RegistryConfig
	Compatibility CompatibilityConfig
	Instance      InstanceConfig
}

// RegistryConfig locates the workload image repository.
type RegistryConfig struct {
	Host       string `validate:"required,hostname_port|hostname"`
	Namespace  string `validate:"required"`
	Repository string `validate:"required"`
	Insecure   bool
}

// CompatibilityConfig holds the caret constraints of the compatibility contract.
type CompatibilityConfig struct {
	Tool     string `validate:"required,semverconstraint"`
	Workload string `validate:"required,semverconstraint"`
}

// InstanceConfig holds container settings applied to every instance.
type InstanceConfig struct {
	DataPath   string `validate:"required,startswith=/"`
	NamePrefix string `validate:"required,alphanum"`
}

// defaultConfig returns a Config with hardcoded defaults.
func defaultConfig() *Config {
	return &Config{
		LogLevel:  "warn",
		LogFormat: "console",
		Registry: RegistryConfig{
			Host:       registry.DefaultHost,
			Namespace:  registry.DefaultNamespace,
			Repository: registry.DefaultRepository,
		},
		Compatibility: CompatibilityConfig{
			Tool:     versioning.DefaultToolConstraint,
			Workload: versioning.DefaultWorkloadConstraint,
		},
		Instance: InstanceConfig{
			DataPath:   lifecycle.DefaultDataPath,
			NamePrefix: instance.DefaultNaming().Prefix,
		},
	}
}

// LoadConfig loads configuration from the specified file path.
// Environment variables override file values.
// Precedence: environment variables > config file > defaults
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			iniFile, err := ini.Load(path)
			if err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
			if err := applyFile(cfg, iniFile); err != nil {
				return nil, fmt.Errorf("invalid config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("cannot access config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultPaths returns the locations LoadConfigWithDefaults checks, in order.
func DefaultPaths() []string {
	var paths []string
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "mayo", "manage.conf"))
	}
	return append(paths, "/etc/mayo/manage.conf")
}

// LoadConfigWithDefaults loads the first config file found in DefaultPaths, falling back
// to hardcoded defaults. Environment variables override file values.
func LoadConfigWithDefaults() (*Config, error) {
	for _, path := range DefaultPaths() {
		if _, err := os.Stat(path); err == nil {
			return LoadConfig(path)
		}
	}
	return LoadConfig("")
}

func applyFile(cfg *Config, f *ini.File) error {
	root := f.Section("")
	setString(root, "docker_host", &cfg.DockerHost)
	setString(root, "log_level", &cfg.LogLevel)
	setString(root, "log_format", &cfg.LogFormat)

	reg := f.Section("registry")
	setString(reg, "host", &cfg.Registry.Host)
	setString(reg, "namespace", &cfg.Registry.Namespace)
	setString(reg, "repository", &cfg.Registry.Repository)
	if reg.HasKey("insecure") {
		insecure, err := reg.Key("insecure").Bool()
		if err != nil {
			return fmt.Errorf("registry.insecure: %w", err)
		}
		cfg.Registry.Insecure = insecure
	}

	compat := f.Section("compatibility")
	setString(compat, "tool", &cfg.Compatibility.Tool)
	setString(compat, "workload", &cfg.Compatibility.Workload)

	inst := f.Section("instance")
	setString(inst, "data_path", &cfg.Instance.DataPath)
	setString(inst, "name_prefix", &cfg.Instance.NamePrefix)
	return nil
}

func setString(section *ini.Section, key string, dst *string) {
	if section.HasKey(key) {
		*dst = strings.TrimSpace(section.Key(key).String())
	}
}

func applyEnv(cfg *Config) {
	overrides := []struct {
		env string
		dst *string
	}{
		{"MAYO_DOCKER_HOST", &cfg.DockerHost},
		{"MAYO_LOG_LEVEL", &cfg.LogLevel},
		{"MAYO_LOG_FORMAT", &cfg.LogFormat},
		{"MAYO_REGISTRY_HOST", &cfg.Registry.Host},
		{"MAYO_REGISTRY_NAMESPACE", &cfg.Registry.Namespace},
		{"MAYO_REGISTRY_REPOSITORY", &cfg.Registry.Repository},
		{"MAYO_TOOL_CONSTRAINT", &cfg.Compatibility.Tool},
		{"MAYO_WORKLOAD_CONSTRAINT", &cfg.Compatibility.Workload},
		{"MAYO_DATA_PATH", &cfg.Instance.DataPath},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}

	if v := os.Getenv("MAYO_REGISTRY_INSECURE"); v != "" {
		v = strings.ToLower(v)
		cfg.Registry.Insecure = v == "true" || v == "1" || v == "yes"
	}
}

func (c *Config) validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("semverconstraint", func(fl validator.FieldLevel) bool {
		_, err := semver.NewConstraint(fl.Field().String())
		return err == nil
	})

	if err := v.Struct(c); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			msgs := make([]string, 0, len(fieldErrors))
			for _, fe := range fieldErrors {
				msgs = append(msgs, fmt.Sprintf("%s: invalid value %q (%s)", fe.Namespace(), fe.Value(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Contract parses the compatibility constraints.
func (c *Config) Contract() (versioning.Contract, error) {
	return versioning.NewContract(c.Compatibility.Tool, c.Compatibility.Workload)
}

// Coordinates returns the workload repository location.
func (c *Config) Coordinates() registry.Coordinates {
	return registry.Coordinates{
		Host:       c.Registry.Host,
		Namespace:  c.Registry.Namespace,
		Repository: c.Registry.Repository,
	}
}

// RegistryOptions returns client options for the configured registry.
func (c *Config) RegistryOptions() []registry.Option {
	if c.Registry.Insecure {
		return []registry.Option{registry.WithInsecure()}
	}
	return nil
}

// Settings returns the container settings for the lifecycle orchestrator.
func (c *Config) Settings() lifecycle.Settings {
	return lifecycle.Settings{
		Naming:      instance.Naming{Prefix: c.Instance.NamePrefix},
		DataPath:    c.Instance.DataPath,
		ToolVersion: versioning.ToolVersion,
	}
}
