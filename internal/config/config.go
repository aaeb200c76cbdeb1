// Package config provides file based configuration with environment overrides.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vbc-logbook/backend/internal/importer"
	"github.com/vbc-logbook/backend/internal/storage"
)

// AppConfig represents the root configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"VBCLogbook" yaml:"-"`

	Server   ServerConfig   `xml:"Server" yaml:"server"`
	Storage  StorageConfig  `xml:"Storage" yaml:"storage"`
	Import   ImportConfig   `xml:"Import" yaml:"import"`
	Advanced AdvancedConfig `xml:"Advanced" yaml:"advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `xml:"Port" yaml:"port"`
	BindAddress  string `xml:"BindAddress" yaml:"bindAddress"`
	EnableCORS   bool   `xml:"EnableCORS" yaml:"enableCORS"`
	AllowOrigins string `xml:"AllowOrigins" yaml:"allowOrigins"`
	ReadTimeout  int    `xml:"ReadTimeoutSeconds" yaml:"readTimeoutSeconds"`
	WriteTimeout int    `xml:"WriteTimeoutSeconds" yaml:"writeTimeoutSeconds"`
	IdleTimeout  int    `xml:"IdleTimeoutSeconds" yaml:"idleTimeoutSeconds"`
	BodyLimit    string `xml:"BodyLimit" yaml:"bodyLimit"`
}

// StorageConfig selects and locates the database
type StorageConfig struct {
	Driver        string `xml:"Driver" yaml:"driver"` // duckdb, sqlite or pgx
	DataDirectory string `xml:"DataDirectory" yaml:"dataDirectory"`
	DatabasePath  string `xml:"DatabasePath" yaml:"databasePath"` // relative to DataDirectory
	DSN           string `xml:"DSN" yaml:"dsn"`                   // pgx only
}

// ImportConfig contains controller discovery and import settings
type ImportConfig struct {
	RootPath       string `xml:"RootPath" yaml:"rootPath"`
	HardcodeFile   string `xml:"HardcodeFile" yaml:"hardcodeFile"`
	MarkerFile     string `xml:"MarkerFile" yaml:"markerFile"`
	VolumesDir     string `xml:"VolumesDirectory" yaml:"volumesDirectory"`
	MountTable     string `xml:"MountTable" yaml:"mountTable"`
	ParseWorkers   int    `xml:"ParseWorkers" yaml:"parseWorkers"`
	ProgressBuffer int    `xml:"ProgressBuffer" yaml:"progressBuffer"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel             string `xml:"LogLevel" yaml:"logLevel"`
	Development          bool   `xml:"Development" yaml:"development"`
	EnableRequestLogging bool   `xml:"EnableRequestLogging" yaml:"enableRequestLogging"`
	DuckDBThreads        int    `xml:"DuckDBThreads" yaml:"duckdbThreads"`
	DuckDBMemoryLimit    string `xml:"DuckDBMemoryLimit" yaml:"duckdbMemoryLimit"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8089,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "8M",
		},
		Storage: StorageConfig{
			Driver:        storage.DriverDuckDB,
			DataDirectory: "./data",
			DatabasePath:  "logbook.duckdb",
		},
		Import: ImportConfig{
			HardcodeFile:   "hardcode",
			MarkerFile:     importer.MarkerFile,
			VolumesDir:     "/Volumes",
			MountTable:     "/etc/mtab",
			ParseWorkers:   4,
			ProgressBuffer: 64,
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			EnableRequestLogging: true,
			DuckDBThreads:        4,
			DuckDBMemoryLimit:    "1GB",
		},
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// LoadConfig loads configuration from an XML or YAML file, chosen by
// extension. A missing file is created with defaults.
func LoadConfig(configPath string) (*AppConfig, error) {
	configDir := filepath.Dir(configPath)
	_ = godotenv.Load(filepath.Join(configDir, ".env"))

	var config *AppConfig
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config = DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		config = DefaultConfig()
		if isYAML(configPath) {
			err = yaml.Unmarshal(data, config)
		} else {
			err = xml.Unmarshal(data, config)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	config.applyEnvironmentOverrides()
	config.resolvePaths(configDir)

	return config, nil
}

// Save writes the configuration as YAML or XML depending on the extension.
func (c *AppConfig) Save(configPath string) error {
	var content []byte
	if isYAML(configPath) {
		out, err := yaml.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		content = append([]byte("# VBC Logbook configuration, generated on first run\n"), out...)
	} else {
		out, err := xml.MarshalIndent(c, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		header := []byte(xml.Header + "\n<!-- VBC Logbook Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
		content = append(header, out...)
	}

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Storage.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Storage.DSN = dsn
	}
	if root := os.Getenv("VCONTROL_ROOT"); root != "" {
		c.Import.RootPath = root
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Advanced.LogLevel = level
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Storage.DataDirectory) {
		c.Storage.DataDirectory = filepath.Join(configDir, c.Storage.DataDirectory)
	}
	if c.Storage.DatabasePath != "" && !filepath.IsAbs(c.Storage.DatabasePath) {
		c.Storage.DatabasePath = filepath.Join(c.Storage.DataDirectory, c.Storage.DatabasePath)
	}
	if c.Import.HardcodeFile != "" && !filepath.IsAbs(c.Import.HardcodeFile) {
		c.Import.HardcodeFile = filepath.Join(configDir, c.Import.HardcodeFile)
	}
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// EnsureDirectories creates the data directory
func (c *AppConfig) EnsureDirectories() error {
	if err := os.MkdirAll(c.Storage.DataDirectory, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", c.Storage.DataDirectory, err)
	}
	return nil
}

// StoreConfig returns the storage settings in the form storage.Open expects.
func (c *AppConfig) StoreConfig() storage.Config {
	return storage.Config{
		Driver:            c.Storage.Driver,
		Path:              c.Storage.DatabasePath,
		DSN:               c.Storage.DSN,
		DuckDBThreads:     c.Advanced.DuckDBThreads,
		DuckDBMemoryLimit: c.Advanced.DuckDBMemoryLimit,
	}
}

// Roots returns the controller root lookup chain: an explicit root path,
// the hardcode file, then marker scans of mounted volumes.
func (c *AppConfig) Roots() importer.RootProvider {
	marker := c.Import.MarkerFile
	if marker == "" {
		marker = importer.MarkerFile
	}
	providers := []importer.RootProvider{}
	if c.Import.RootPath != "" {
		providers = append(providers, importer.StaticRoot(c.Import.RootPath))
	}
	if c.Import.HardcodeFile != "" {
		providers = append(providers, importer.HardcodeRoot(c.Import.HardcodeFile))
	}
	if c.Import.VolumesDir != "" {
		providers = append(providers, importer.VolumeRoot(c.Import.VolumesDir, marker))
	}
	if c.Import.MountTable != "" {
		providers = append(providers, importer.MountRoot(c.Import.MountTable, marker))
	}
	return importer.FirstRoot(providers...)
}
