package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"github.com/tmdojo/viewer/internal/frame"
	"github.com/tmdojo/viewer/internal/playback"
	"github.com/tmdojo/viewer/internal/telemetry"
)

// FileName is the config file looked up in the config directory.
const FileName = "replay_viewer.cfg.json"

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// SetDefaults registers the default value of every key.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("api.serverUrl", "http://localhost:80")
	viper.SetDefault("api.apiKey", "")
	viper.SetDefault("api.timeout", "30s")

	viper.SetDefault("decoder.layout", "legacy")
	viper.SetDefault("decoder.strict", false)
	viper.SetDefault("decoder.requireSamples", true)

	viper.SetDefault("playback.fps", 60)
	viper.SetDefault("playback.speed", 1.0)
	viper.SetDefault("playback.endPolicy", "freeze")
	viper.SetDefault("playback.workers", 0)
	viper.SetDefault("playback.commandQueue", 64)

	def := frame.DefaultParams()
	viper.SetDefault("frame.frontWheelRestY", def.FrontWheelRestY)
	viper.SetDefault("frame.rearWheelRestY", def.RearWheelRestY)
	viper.SetDefault("frame.damperScale", def.DamperScale)
	viper.SetDefault("frame.normalScale", def.NormalScale)
	viper.SetDefault("frame.hoverScale", def.HoverScale)
	viper.SetDefault("frame.scaleSmoothing", def.ScaleSmoothing)
	viper.SetDefault("frame.orbitSmoothing", def.OrbitSmoothing)
	viper.SetDefault("frame.cameraSmoothing", def.CameraSmoothing)
	viper.SetDefault("frame.cameraMode", def.CameraMode.String())
	viper.SetDefault("frame.velocityLeadDivisor", def.VelocityLeadDivisor)
	viper.SetDefault("frame.cameraBackBase", def.CameraBackBase)
	viper.SetDefault("frame.cameraBackSpeedDivisor", def.CameraBackSpeedDivisor)
	viper.SetDefault("frame.cameraUpBase", def.CameraUpBase)
	viper.SetDefault("frame.cameraUpSpeedDivisor", def.CameraUpSpeedDivisor)

	viper.SetDefault("loader.concurrency", 4)
	viper.SetDefault("loader.blockPadding", 1)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.maxEntries", 256)
	viper.SetDefault("storage.sqlite.path", "./replays.db")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.postgres.host", "localhost")
	viper.SetDefault("storage.postgres.port", "5432")
	viper.SetDefault("storage.postgres.username", "postgres")
	viper.SetDefault("storage.postgres.password", "postgres")
	viper.SetDefault("storage.postgres.database", "tmdojo")
	viper.SetDefault("storage.postgres.sslMode", "disable")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "tmdojo")
	viper.SetDefault("influx.bucket", "playback")

	viper.SetDefault("stream.enabled", false)
	viper.SetDefault("stream.url", "ws://localhost:8080/render")
	viper.SetDefault("stream.secret", "")
	viper.SetDefault("stream.sendBuffer", 256)
	viper.SetDefault("stream.reconnectMin", "1s")
	viper.SetDefault("stream.reconnectMax", "30s")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "replay-viewer")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// APIConfig holds the replay API client settings.
type APIConfig struct {
	ServerURL string        `json:"serverUrl" mapstructure:"serverUrl"`
	APIKey    string        `json:"apiKey" mapstructure:"apiKey"`
	Timeout   time.Duration `json:"timeout" mapstructure:"timeout"`
}

// GetAPIConfig returns the API client settings.
func GetAPIConfig() APIConfig {
	return APIConfig{
		ServerURL: viper.GetString("api.serverUrl"),
		APIKey:    viper.GetString("api.apiKey"),
		Timeout:   viper.GetDuration("api.timeout"),
	}
}

// DecoderConfig holds telemetry decoding settings.
type DecoderConfig struct {
	Layout         telemetry.Layout
	Strict         bool
	RequireSamples bool
}

// Options converts the config into decoder options.
func (c DecoderConfig) Options() []telemetry.Option {
	opts := []telemetry.Option{telemetry.WithLayout(c.Layout)}
	if c.Strict {
		opts = append(opts, telemetry.WithStrict())
	}
	if c.RequireSamples {
		opts = append(opts, telemetry.WithRequireSamples())
	}
	return opts
}

// GetDecoderConfig returns the decoder settings.
func GetDecoderConfig() (DecoderConfig, error) {
	layout, err := telemetry.ParseLayout(viper.GetString("decoder.layout"))
	if err != nil {
		return DecoderConfig{}, fmt.Errorf("decoder.layout: %w", err)
	}
	return DecoderConfig{
		Layout:         layout,
		Strict:         viper.GetBool("decoder.strict"),
		RequireSamples: viper.GetBool("decoder.requireSamples"),
	}, nil
}

// PlaybackConfig holds the playback loop settings. Workers of 0 or 1 updates
// traces sequentially.
type PlaybackConfig struct {
	FPS          int
	Speed        float64
	EndPolicy    playback.EndPolicy
	Workers      int
	CommandQueue int
}

// FrameInterval returns the wall-clock duration of one frame.
func (c PlaybackConfig) FrameInterval() time.Duration {
	if c.FPS <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(c.FPS)
}

// GetPlaybackConfig returns the playback loop settings.
func GetPlaybackConfig() (PlaybackConfig, error) {
	policy, err := playback.ParseEndPolicy(viper.GetString("playback.endPolicy"))
	if err != nil {
		return PlaybackConfig{}, fmt.Errorf("playback.endPolicy: %w", err)
	}
	return PlaybackConfig{
		FPS:          viper.GetInt("playback.fps"),
		Speed:        viper.GetFloat64("playback.speed"),
		EndPolicy:    policy,
		Workers:      viper.GetInt("playback.workers"),
		CommandQueue: viper.GetInt("playback.commandQueue"),
	}, nil
}

// GetFrameParams returns the per-frame tuning constants.
func GetFrameParams() (frame.Params, error) {
	mode, err := frame.ParseCameraMode(viper.GetString("frame.cameraMode"))
	if err != nil {
		return frame.Params{}, fmt.Errorf("frame.cameraMode: %w", err)
	}
	return frame.Params{
		FrontWheelRestY:        viper.GetFloat64("frame.frontWheelRestY"),
		RearWheelRestY:         viper.GetFloat64("frame.rearWheelRestY"),
		DamperScale:            viper.GetFloat64("frame.damperScale"),
		NormalScale:            viper.GetFloat64("frame.normalScale"),
		HoverScale:             viper.GetFloat64("frame.hoverScale"),
		ScaleSmoothing:         viper.GetFloat64("frame.scaleSmoothing"),
		OrbitSmoothing:         viper.GetFloat64("frame.orbitSmoothing"),
		CameraSmoothing:        viper.GetFloat64("frame.cameraSmoothing"),
		CameraMode:             mode,
		VelocityLeadDivisor:    viper.GetFloat64("frame.velocityLeadDivisor"),
		CameraBackBase:         viper.GetFloat64("frame.cameraBackBase"),
		CameraBackSpeedDivisor: viper.GetFloat64("frame.cameraBackSpeedDivisor"),
		CameraUpBase:           viper.GetFloat64("frame.cameraUpBase"),
		CameraUpSpeedDivisor:   viper.GetFloat64("frame.cameraUpSpeedDivisor"),
	}, nil
}

// LoaderConfig holds replay loading settings.
type LoaderConfig struct {
	Concurrency  int `json:"concurrency" mapstructure:"concurrency"`
	BlockPadding int `json:"blockPadding" mapstructure:"blockPadding"`
}

// GetLoaderConfig returns the loader settings.
func GetLoaderConfig() LoaderConfig {
	return LoaderConfig{
		Concurrency:  viper.GetInt("loader.concurrency"),
		BlockPadding: viper.GetInt("loader.blockPadding"),
	}
}

// MemoryConfig holds in-memory storage backend settings.
type MemoryConfig struct {
	MaxEntries int `json:"maxEntries" mapstructure:"maxEntries"`
}

// SQLiteConfig holds SQLite storage backend settings.
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// PostgresConfig holds Postgres storage backend settings.
type PostgresConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
	SSLMode  string `json:"sslMode" mapstructure:"sslMode"`
}

// DSN returns the connection string for the gorm postgres driver.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.Database, c.SSLMode)
}

// StorageConfig selects and configures the replay cache backend.
type StorageConfig struct {
	Type     string         `json:"type" mapstructure:"type"`
	Memory   MemoryConfig   `json:"memory" mapstructure:"memory"`
	SQLite   SQLiteConfig   `json:"sqlite" mapstructure:"sqlite"`
	Postgres PostgresConfig `json:"postgres" mapstructure:"postgres"`
}

// GetStorageConfig returns the storage settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			MaxEntries: viper.GetInt("storage.memory.maxEntries"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("storage.postgres.host"),
			Port:     viper.GetString("storage.postgres.port"),
			Username: viper.GetString("storage.postgres.username"),
			Password: viper.GetString("storage.postgres.password"),
			Database: viper.GetString("storage.postgres.database"),
			SSLMode:  viper.GetString("storage.postgres.sslMode"),
		},
	}
}

// InfluxConfig holds the playback metrics sink settings.
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

// URL returns the server URL.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// GetInfluxConfig returns the InfluxDB settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// StreamConfig holds the render-state websocket settings.
type StreamConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	URL          string        `json:"url" mapstructure:"url"`
	Secret       string        `json:"secret" mapstructure:"secret"`
	SendBuffer   int           `json:"sendBuffer" mapstructure:"sendBuffer"`
	ReconnectMin time.Duration `json:"reconnectMin" mapstructure:"reconnectMin"`
	ReconnectMax time.Duration `json:"reconnectMax" mapstructure:"reconnectMax"`
}

// GetStreamConfig returns the websocket publisher settings.
func GetStreamConfig() StreamConfig {
	return StreamConfig{
		Enabled:      viper.GetBool("stream.enabled"),
		URL:          viper.GetString("stream.url"),
		Secret:       viper.GetString("stream.secret"),
		SendBuffer:   viper.GetInt("stream.sendBuffer"),
		ReconnectMin: viper.GetDuration("stream.reconnectMin"),
		ReconnectMax: viper.GetDuration("stream.reconnectMax"),
	}
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}
