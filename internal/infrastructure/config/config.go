package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Role values for RuntimeConfig.Role.
const (
	RoleSurvivor = "survivor"
	RoleKiller   = "killer"
)

// Mode values for RuntimeConfig.Mode (killer only).
const (
	ModeRandom = "random"
	ModeFixed  = "fixed"
)

// Predicate identifiers used by the control loop.
const (
	PredicateMatchingHall = "matching_hall"
	PredicateReadyHall    = "ready_hall"
	PredicateSettlement   = "settlement"
	PredicateRites        = "rites"
	PredicateSeasonReset  = "season_reset"
	PredicateDisconnect   = "disconnect"
	PredicateDailyRitual  = "daily_ritual_main"
	PredicateMainPage     = "main_page"
	PredicateNews         = "news"
)

const (
	defaultThresholdFloor  = 30
	defaultThresholdStep   = 10
	defaultWatchdogNudgeXY = 10
)

// Config is the root configuration structure for afkloop.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Runtime     RuntimeConfig     `yaml:"runtime"`
	Window      WindowConfig      `yaml:"window"`
	Perception  PerceptionConfig  `yaml:"perception"`
	Coordinates CoordinatesConfig `yaml:"coordinates"`
	Stages      StagesConfig      `yaml:"stages"`
	Recovery    RecoveryConfig    `yaml:"recovery"`
	Workers     WorkersConfig     `yaml:"workers"`
	Script      ScriptConfig      `yaml:"script"`
	Database    DatabaseConfig    `yaml:"database"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	API         APIConfig         `yaml:"api"`
	WebSocket   WebSocketConfig   `yaml:"websocket"`
	InfluxDB    InfluxDBConfig    `yaml:"influxdb"`
	Logging     LoggingConfig     `yaml:"logging"`
	Security    SecurityConfig    `yaml:"security"`
}

// RuntimeConfig selects what the control loop plays and how.
type RuntimeConfig struct {
	// Role is "survivor" or "killer".
	Role string `yaml:"role"`

	// Mode selects the built-in killer routine: "random" or "fixed".
	Mode string `yaml:"mode"`

	// Debug skips the ready stage and disables the disconnect predicate.
	Debug bool `yaml:"debug"`

	// Calibrate enables the threshold sweep for unsolved predicates.
	Calibrate bool `yaml:"calibrate"`

	// Characters is the killer rotation, typed into the in-game search box.
	Characters []string `yaml:"characters"`

	// Loadout selects loadout slot 1-3 during the first rotation. 0 disables.
	Loadout int `yaml:"loadout"`

	// PostMatchMessage is typed into chat after each killer match. Empty disables.
	PostMatchMessage string `yaml:"post_match_message"`
}

// WindowConfig positions the game client on screen.
type WindowConfig struct {
	// X and Y are the screen coordinates of the client area's top-left corner.
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// PerceptionConfig holds recognition settings and every named predicate.
type PerceptionConfig struct {
	// Language is "chinese", "english" or "mixed".
	Language string `yaml:"language"`

	// Scale upscales captures before binarising. Values <= 1 disable it.
	Scale float64 `yaml:"scale"`

	// DebugDir, if set, receives a PNG of every binarised capture.
	DebugDir string `yaml:"debug_dir"`

	// ConfirmKeywords are single-glyph hits used to click disconnect dialogs.
	ConfirmKeywords []string `yaml:"confirm_keywords"`

	Predicates map[string]PredicateConfig `yaml:"predicates"`
}

// PredicateConfig describes one recognition check.
type PredicateConfig struct {
	// Region is [x1, y1, x2, y2] in client coordinates.
	Region   [4]int   `yaml:"region"`
	Keywords []string `yaml:"keywords"`

	// Threshold is the starting binarisation threshold.
	Threshold int `yaml:"threshold"`

	// Ceiling is where the sweep wraps to after passing Floor.
	Ceiling int `yaml:"ceiling"`
	Floor   int `yaml:"floor"`
}

// Point is a client-area coordinate.
type Point struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// CoordinatesConfig holds the named click targets.
type CoordinatesConfig struct {
	SafePoint         Point    `yaml:"safe_point"`
	BlankArea         Point    `yaml:"blank_area"`
	StartButton       Point    `yaml:"start_button"`
	ReadyButton       Point    `yaml:"ready_button"`
	ContinueButton    Point    `yaml:"continue_button"`
	RitesComplete     [2]Point `yaml:"rites_complete"`
	SeasonResetButton Point    `yaml:"season_reset_button"`
	RitualClose       Point    `yaml:"ritual_close"`
	NewsClose         Point    `yaml:"news_close"`
	MainStart         Point    `yaml:"main_start"`
	MainSurvivor      Point    `yaml:"main_survivor"`
	MainKiller        Point    `yaml:"main_killer"`
	CharacterButton   Point    `yaml:"character_button"`
	SearchBox         Point    `yaml:"search_box"`
	FirstCharacter    Point    `yaml:"first_character"`
	LoadoutButton     Point    `yaml:"loadout_button"`
	LoadoutSlots      [3]Point `yaml:"loadout_slots"`
}

// StagesConfig holds the watchdog dwell thresholds in seconds.
type StagesConfig struct {
	Matching  int `yaml:"matching"`
	Ready     int `yaml:"ready"`
	InGame    int `yaml:"in_game"`
	Reconnect int `yaml:"reconnect"`
}

// RecoveryConfig controls disconnect handling.
type RecoveryConfig struct {
	// Timeout bounds a major reconnect in seconds. 0 disables the bound.
	Timeout int `yaml:"timeout"`

	// SweepStart, SweepStop and SweepStep drive the dialog threshold sweep.
	SweepStart int `yaml:"sweep_start"`
	SweepStop  int `yaml:"sweep_stop"`
	SweepStep  int `yaml:"sweep_step"`

	// PollInterval is the pause between recovery iterations in milliseconds.
	PollInterval int `yaml:"poll_interval"`
}

// WorkersConfig controls the in-match workers.
type WorkersConfig struct {
	// GracefulTimeout is how long Stop waits before cancelling, in milliseconds.
	GracefulTimeout int `yaml:"graceful_timeout"`

	KeepaliveKey string `yaml:"keepalive_key"`

	// KeepaliveHold is how long the keepalive key stays down, in milliseconds.
	KeepaliveHold int `yaml:"keepalive_hold"`

	// SuspendSettle is the wait after releasing keys on prepare-suspend, in milliseconds.
	SuspendSettle int `yaml:"suspend_settle"`
}

// ScriptConfig locates the custom command script.
type ScriptConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`

	// Output is stdout, stderr or file.
	Output string `yaml:"output"`

	// File is the session log path used when Output is "file".
	File string `yaml:"file"`
}

// SecurityConfig protects the control API.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`

	// OperatorPasswordHash is an argon2id PHC string. Empty disables token issuance.
	OperatorPasswordHash string `yaml:"operator_password_hash"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (a 1920x1080 client layout)
//  2. YAML file values (override defaults)
//  3. A .env file beside the YAML file (never overrides the real environment)
//  4. Environment variables (override file values)
//
// Environment variables follow the pattern: AFKLOOP_SECTION_KEY
// For example: AFKLOOP_DATABASE_PATH, AFKLOOP_RUNTIME_ROLE
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.fillPredicateDefaults()

	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config populated with the stock layout for a 1920x1080 client.
func Default() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			Role:      RoleKiller,
			Mode:      ModeRandom,
			Calibrate: true,
		},
		Perception: PerceptionConfig{
			Language:        "mixed",
			Scale:           1,
			ConfirmKeywords: []string{"好", "关", "继", "K", "C"},
			Predicates:      defaultPredicates(),
		},
		Coordinates: CoordinatesConfig{
			SafePoint:         Point{defaultWatchdogNudgeXY, defaultWatchdogNudgeXY},
			BlankArea:         Point{20, 689},
			StartButton:       Point{1742, 931},
			ReadyButton:       Point{1742, 931},
			ContinueButton:    Point{1761, 1009},
			RitesComplete:     [2]Point{{396, 718}, {140, 880}},
			SeasonResetButton: Point{1468, 843},
			RitualClose:       Point{545, 880},
			NewsClose:         Point{1413, 992},
			MainStart:         Point{320, 100},
			MainSurvivor:      Point{339, 320},
			MainKiller:        Point{328, 224},
			CharacterButton:   Point{139, 93},
			SearchBox:         Point{666, 254},
			FirstCharacter:    Point{366, 402},
			LoadoutButton:     Point{140, 200},
			LoadoutSlots:      [3]Point{{900, 60}, {950, 60}, {1000, 60}},
		},
		Stages: StagesConfig{
			Matching:  600,
			Ready:     600,
			InGame:    900,
			Reconnect: 300,
		},
		Recovery: RecoveryConfig{
			Timeout:      1800,
			SweepStart:   130,
			SweepStop:    90,
			SweepStep:    defaultThresholdStep,
			PollInterval: 1000,
		},
		Workers: WorkersConfig{
			GracefulTimeout: 3000,
			KeepaliveKey:    "space",
			KeepaliveHold:   5000,
			SuspendSettle:   100,
		},
		Script: ScriptConfig{
			Path: "./custom_command.txt",
		},
		Database: DatabaseConfig{
			Path:        "./data/afkloop.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "afkloop",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8089,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 60,
			},
		},
	}
}

// defaultPredicates returns the stock regions, keywords and thresholds.
func defaultPredicates() map[string]PredicateConfig {
	p := func(region [4]int, threshold int, keywords ...string) PredicateConfig {
		return PredicateConfig{
			Region:    region,
			Keywords:  keywords,
			Threshold: threshold,
			Ceiling:   130,
			Floor:     defaultThresholdFloor,
		}
	}
	return map[string]PredicateConfig{
		PredicateMatchingHall: p([4]int{1446, 771, 1920, 1080}, 120, "开始游戏", "PLAY"),
		PredicateReadyHall:    p([4]int{1446, 771, 1920, 1080}, 120, "准备就绪", "READY"),
		PredicateSettlement:   p([4]int{56, 46, 370, 172}, 70, "比赛", "得分", "你的", "MATCH", "SCORE"),
		PredicateRites:        p([4]int{106, 267, 430, 339}, 120, "每日", "DAILY RITUALS"),
		PredicateSeasonReset:  p([4]int{192, 194, 426, 291}, 120, "重置", "RESET"),
		PredicateDisconnect:   p([4]int{457, 530, 1488, 796}, 110, "好的", "关闭", "CLOSE", "继续", "CONTINUE"),
		PredicateDailyRitual:  p([4]int{441, 255, 666, 343}, 120, "每日", "DAILY RITUALS"),
		PredicateMainPage:     p([4]int{203, 78, 365, 135}, 120, "开始", "PLAY"),
		PredicateNews:         p([4]int{548, 4, 1476, 256}, 120, "新内容", "NEW CONTENT"),
	}
}

// fillPredicateDefaults completes predicates that a YAML file only partially overrides.
// yaml.v3 replaces map values wholesale, so a file that sets only a threshold
// would otherwise lose its region and keywords.
func (c *Config) fillPredicateDefaults() {
	defaults := defaultPredicates()
	if c.Perception.Predicates == nil {
		c.Perception.Predicates = defaults
		return
	}
	for id, def := range defaults {
		p, ok := c.Perception.Predicates[id]
		if !ok {
			c.Perception.Predicates[id] = def
			continue
		}
		if p.Region == [4]int{} {
			p.Region = def.Region
		}
		if len(p.Keywords) == 0 {
			p.Keywords = def.Keywords
		}
		if p.Threshold == 0 {
			p.Threshold = def.Threshold
		}
		if p.Ceiling == 0 {
			p.Ceiling = def.Ceiling
		}
		if p.Floor == 0 {
			p.Floor = def.Floor
		}
		c.Perception.Predicates[id] = p
	}
}

// loadDotEnv exports the variables in path, if it exists.
// Variables already set in the process environment win.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: AFKLOOP_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Runtime
	if v := os.Getenv("AFKLOOP_RUNTIME_ROLE"); v != "" {
		cfg.Runtime.Role = v
	}
	if v := os.Getenv("AFKLOOP_RUNTIME_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Runtime.Debug = b
		}
	}

	// Script
	if v := os.Getenv("AFKLOOP_SCRIPT_PATH"); v != "" {
		cfg.Script.Path = v
	}

	// Database
	if v := os.Getenv("AFKLOOP_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("AFKLOOP_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("AFKLOOP_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("AFKLOOP_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("AFKLOOP_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Security
	if v := os.Getenv("AFKLOOP_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
	if v := os.Getenv("AFKLOOP_OPERATOR_PASSWORD_HASH"); v != "" {
		cfg.Security.OperatorPasswordHash = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	switch c.Runtime.Role {
	case RoleSurvivor, RoleKiller:
	default:
		errs = append(errs, "runtime.role must be survivor or killer")
	}
	switch c.Runtime.Mode {
	case ModeRandom, ModeFixed:
	default:
		errs = append(errs, "runtime.mode must be random or fixed")
	}
	if c.Runtime.Loadout < 0 || c.Runtime.Loadout > len(c.Coordinates.LoadoutSlots) {
		errs = append(errs, "runtime.loadout must be between 0 and 3")
	}

	for id, p := range c.Perception.Predicates {
		if p.Region[2] <= p.Region[0] || p.Region[3] <= p.Region[1] {
			errs = append(errs, fmt.Sprintf("perception.predicates.%s.region must have x2>x1 and y2>y1", id))
		}
		if len(p.Keywords) == 0 {
			errs = append(errs, fmt.Sprintf("perception.predicates.%s.keywords is required", id))
		}
		if p.Floor < 0 || p.Ceiling > 255 || p.Floor >= p.Ceiling {
			errs = append(errs, fmt.Sprintf("perception.predicates.%s needs 0 <= floor < ceiling <= 255", id))
		} else if p.Threshold < p.Floor || p.Threshold > p.Ceiling {
			errs = append(errs, fmt.Sprintf("perception.predicates.%s.threshold must be between floor %d and ceiling %d", id, p.Floor, p.Ceiling))
		}
	}

	if c.Stages.Matching <= 0 || c.Stages.Ready <= 0 || c.Stages.InGame <= 0 || c.Stages.Reconnect <= 0 {
		errs = append(errs, "stages thresholds must be positive")
	}
	if c.Recovery.SweepStep <= 0 || c.Recovery.SweepStart < c.Recovery.SweepStop {
		errs = append(errs, "recovery sweep needs step > 0 and start >= stop")
	}

	if c.Script.Enabled && c.Script.Path == "" {
		errs = append(errs, "script.path is required when script.enabled is set")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled {
		if c.API.Port < 1 || c.API.Port > 65535 {
			errs = append(errs, "api.port must be between 1 and 65535")
		}
		// An open control API would let anyone on the network drive the input devices.
		const minJWTSecretLength = 32
		if len(c.Security.JWT.Secret) < minJWTSecretLength {
			errs = append(errs, "security.jwt.secret must be at least 32 characters when api.enabled is set (set AFKLOOP_JWT_SECRET)")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// StageThreshold returns a stage dwell threshold as a Duration.
func StageThreshold(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

// Millis converts a millisecond setting to a Duration.
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
