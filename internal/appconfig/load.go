package appconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"pkt.systems/termfolio/schema"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := setDefaults(v, cfg); err != nil {
		return Config{}, err
	}

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.InConfig("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
		// Lists in the file replace the built-in ones instead of being
		// merged index by index.
		if v.InConfig("profile") {
			cfg.Profile = schema.Profile{}
		}
		if v.InConfig("terminal.loader") {
			cfg.Terminal.Loader = nil
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := loadEnvFile(path, cfg.EnvFile); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validateHTTPConfig(cfg.HTTP); err != nil {
		return Config{}, err
	}
	if err := validateSSHConfig(cfg.SSH); err != nil {
		return Config{}, err
	}
	if _, err := cfg.ServiceConfig(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// listDefaults are replaced wholesale by the file instead of being merged key
// by key, so they are not registered as viper defaults. config_version must
// come from the file itself.
var listDefaults = map[string]bool{
	"config_version":  true,
	"profile":         true,
	"variants":        true,
	"terminal.loader": true,
}

// setDefaults registers every scalar of cfg with v under the dotted key the
// YAML file uses for it.
func setDefaults(v *viper.Viper, cfg Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return fmt.Errorf("decode defaults: %w", err)
	}
	var walk func(prefix string, node map[string]any)
	walk = func(prefix string, node map[string]any) {
		for name, value := range node {
			key := prefix + name
			if listDefaults[key] {
				continue
			}
			if child, ok := value.(map[string]any); ok {
				walk(key+".", child)
				continue
			}
			v.SetDefault(key, value)
		}
	}
	walk("", tree)
	return nil
}

// loadEnvFile loads the dotenv file into the process environment without
// overriding variables that are already set. An empty name means ".env" next
// to the config file; a missing default file is not an error.
func loadEnvFile(configPath, name string) error {
	explicit := strings.TrimSpace(name) != ""
	if !explicit {
		name = ".env"
	}
	name = expandEnv(name)
	if !filepath.IsAbs(name) {
		name = filepath.Join(filepath.Dir(configPath), name)
	}
	if _, err := os.Stat(name); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("env_file: %w", err)
	}
	if err := godotenv.Load(name); err != nil {
		return fmt.Errorf("load env_file %s: %w", name, err)
	}
	return nil
}

func validateHTTPConfig(cfg HTTPConfig) error {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL != "" {
		parsed, err := url.Parse(baseURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("http.base_url must include scheme and host (e.g. https://example.com)")
		}
	}
	basePath := strings.TrimSpace(cfg.BasePath)
	if basePath != "" {
		if strings.Contains(basePath, "://") {
			return fmt.Errorf("http.base_path must be a path prefix, not a URL")
		}
		if strings.ContainsAny(basePath, "?#") {
			return fmt.Errorf("http.base_path must not include query or fragment")
		}
	}
	if theme := strings.TrimSpace(cfg.Theme); theme != "" {
		if _, ok := schema.NormalizeThemeName(theme); !ok {
			return fmt.Errorf("unsupported http.theme %q", theme)
		}
	}
	return nil
}

func validateSSHConfig(cfg SSHConfig) error {
	if webURL := strings.TrimSpace(cfg.WebURL); webURL != "" {
		parsed, err := url.Parse(webURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("ssh.web_url must include scheme and host (e.g. https://example.com)")
		}
	}
	if theme := strings.TrimSpace(cfg.Theme); theme != "" {
		if _, ok := schema.NormalizeThemeName(theme); !ok {
			return fmt.Errorf("unsupported ssh.theme %q", theme)
		}
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.StateDir = expandEnv(cfg.StateDir)
	cfg.SSH.HostKeyPath = expandEnv(cfg.SSH.HostKeyPath)
	cfg.Stats.Path = expandEnv(cfg.Stats.Path)
	cfg.Stats.Salt = expandEnvStrict(cfg.Stats.Salt)
}

// expandEnvStrict expands like expandEnv but drops unset variables, for
// secrets that must not fall back to their placeholder text.
func expandEnvStrict(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		val, _ := lookupEnv(key)
		return val
	})
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
