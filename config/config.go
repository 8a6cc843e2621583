package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Minio      MinioConfig      `yaml:"minio"`
	Mineru     MineruConfig     `yaml:"mineru"`
	Auth       AuthConfig       `yaml:"auth"`
	Store      StoreConfig      `yaml:"store"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Users      []User           `yaml:"users"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MinioConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Bucket     string `yaml:"bucket"`
	UseSSL     bool   `yaml:"use_ssl"`
	ExpireDays int    `yaml:"expire_days"`
}

type MineruConfig struct {
	APIURL       string `yaml:"api_url"`
	APIToken     string `yaml:"api_token"`
	ModelVersion string `yaml:"model_version"`
	CallbackURL  string `yaml:"callback_url"`
	Seed         string `yaml:"seed"`
	// UID is the MinerU account id used in callback checksums. Callbacks
	// are verified only when both Seed and UID are set.
	UID string `yaml:"uid"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

// StoreConfig bounds the in-memory edital registry.
type StoreConfig struct {
	MaxEditais int `yaml:"max_editais"`
}

// ExtractionConfig tunes the extraction engine. Term lists and patterns
// live in the rules file at RulesPath.
type ExtractionConfig struct {
	RulesPath        string `yaml:"rules_path"`
	MaxItems         int    `yaml:"max_items"`
	MaxLocations     int    `yaml:"max_locations"`
	LocationCap      int    `yaml:"location_cap"`
	ExportFormat     string `yaml:"export_format"`
	ConcurrentLayers *bool  `yaml:"concurrent_layers"`
	Candidates       int    `yaml:"candidates"`
}

// Concurrent reports whether item layers run in parallel. Defaults to true.
func (e ExtractionConfig) Concurrent() bool {
	return e.ConcurrentLayers == nil || *e.ConcurrentLayers
}

type User struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Tenant   string `yaml:"tenant"`
}

var GlobalConfig *Config

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	GlobalConfig = &cfg
	return &cfg, nil
}

// Default returns a configuration with every default applied, for tools
// that run without a config file.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Minio.ExpireDays == 0 {
		cfg.Minio.ExpireDays = 7
	}
	if cfg.Auth.TokenExpireHours == 0 {
		cfg.Auth.TokenExpireHours = 24
	}
	if cfg.Mineru.ModelVersion == "" {
		cfg.Mineru.ModelVersion = "vlm"
	}
	if cfg.Store.MaxEditais == 0 {
		cfg.Store.MaxEditais = 100
	}
	if cfg.Extraction.MaxItems == 0 {
		cfg.Extraction.MaxItems = 800
	}
	if cfg.Extraction.MaxLocations == 0 {
		cfg.Extraction.MaxLocations = 100
	}
	if cfg.Extraction.LocationCap == 0 {
		cfg.Extraction.LocationCap = 20
	}
	if cfg.Extraction.ExportFormat == "" {
		cfg.Extraction.ExportFormat = "txt"
	}
	if cfg.Extraction.Candidates == 0 {
		cfg.Extraction.Candidates = 3
	}
}

// FindUser finds a user by username
func (c *Config) FindUser(username string) *User {
	for i := range c.Users {
		if c.Users[i].Username == username {
			return &c.Users[i]
		}
	}
	return nil
}
