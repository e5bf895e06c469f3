package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables overriding file settings
const EnvPrefix = "FACEWATCH_"

type Config struct {
	Camera    CameraConfig    `yaml:"camera"`
	Reference ReferenceConfig `yaml:"reference"`
	Detect    DetectConfig    `yaml:"detect"`
	Verify    VerifyConfig    `yaml:"verify"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Display   DisplayConfig   `yaml:"display"`
	Render    RenderConfig    `yaml:"render"`
	Audit     AuditConfig     `yaml:"audit"`
}

type CameraConfig struct {
	// Device is a camera index such as "0" or a video file path or stream URL
	Device string `yaml:"device"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	// Loop rewinds a video file when it ends
	Loop bool `yaml:"loop"`
}

type ReferenceConfig struct {
	Path string `yaml:"path"`
}

type DetectConfig struct {
	// Cascade is the Haar cascade file, searched for in the OpenCV data
	// directories when empty
	Cascade      string  `yaml:"cascade"`
	ScaleFactor  float64 `yaml:"scale_factor"`
	MinNeighbors int     `yaml:"min_neighbors"`
	MinSize      int     `yaml:"min_size"`
	MaxSize      int     `yaml:"max_size"`
}

type VerifyConfig struct {
	// Backend is "deepface" to use the verify endpoint or "embedding" to
	// compare embeddings locally
	Backend  string        `yaml:"backend"`
	URL      string        `yaml:"url"`
	Model    string        `yaml:"model"`
	Detector string        `yaml:"detector"`
	Metric   string        `yaml:"metric"`
	Timeout  time.Duration `yaml:"timeout"`
	// Threshold is the embedding distance cutoff, zero uses the model default
	Threshold         float64 `yaml:"threshold"`
	UseLibraryVerdict bool    `yaml:"use_library_verdict"`
	// MaxDistance is an additional distance cutoff, zero disables it
	MaxDistance float64 `yaml:"max_distance"`
}

type ScheduleConfig struct {
	// Period is the number of frames between verification attempts
	Period int `yaml:"period"`
}

type DisplayConfig struct {
	// Mode is one of "window", "mjpeg" or "both"
	Mode    string `yaml:"mode"`
	Title   string `yaml:"title"`
	QuitKey string `yaml:"quit_key"`
	Addr    string `yaml:"addr"`
	Quality int    `yaml:"quality"`
}

type RenderConfig struct {
	// Placement is "tracked" or "pinned"
	Placement string `yaml:"placement"`
	// Trail is the number of face box centers drawn, zero disables the trail
	Trail int `yaml:"trail"`
	// Font is an optional TrueType font for status text
	Font     string  `yaml:"font"`
	FontSize float64 `yaml:"font_size"`
}

type AuditConfig struct {
	// DatabaseURL is the PostgreSQL connection URL, empty disables auditing
	DatabaseURL string        `yaml:"database_url"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Camera: CameraConfig{
			Device: "0",
			Width:  640,
			Height: 480,
		},
		Reference: ReferenceConfig{
			Path: "reference.jpg",
		},
		Detect: DetectConfig{
			ScaleFactor:  1.05,
			MinNeighbors: 6,
			MinSize:      30,
			MaxSize:      300,
		},
		Verify: VerifyConfig{
			Backend:           "deepface",
			URL:               "http://localhost:5005",
			Model:             "VGG-Face",
			Detector:          "opencv",
			Metric:            "cosine",
			Timeout:           10 * time.Second,
			UseLibraryVerdict: true,
		},
		Schedule: ScheduleConfig{
			Period: 30,
		},
		Display: DisplayConfig{
			Mode:    "window",
			Title:   "video",
			QuitKey: "q",
			Addr:    "127.0.0.1:8080",
			Quality: 80,
		},
		Render: RenderConfig{
			Placement: "tracked",
			FontSize:  14,
		},
		Audit: AuditConfig{
			Timeout: 5 * time.Second,
		},
	}
}

// Load reads the YAML configuration file at path over the defaults then
// applies environment overrides.  An empty path uses the defaults only.
func Load(path string) (*Config, error) {

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)

		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv overrides settings from FACEWATCH_ prefixed environment variables
func (c *Config) applyEnv() {
	c.Camera.Device = envString("CAMERA_DEVICE", c.Camera.Device)
	c.Camera.Width = envInt("CAMERA_WIDTH", c.Camera.Width)
	c.Camera.Height = envInt("CAMERA_HEIGHT", c.Camera.Height)
	c.Reference.Path = envString("REFERENCE", c.Reference.Path)
	c.Detect.Cascade = envString("CASCADE", c.Detect.Cascade)
	c.Verify.Backend = envString("VERIFY_BACKEND", c.Verify.Backend)
	c.Verify.URL = envString("VERIFY_URL", c.Verify.URL)
	c.Verify.Model = envString("VERIFY_MODEL", c.Verify.Model)
	c.Verify.Detector = envString("VERIFY_DETECTOR", c.Verify.Detector)
	c.Verify.Metric = envString("VERIFY_METRIC", c.Verify.Metric)
	c.Schedule.Period = envInt("PERIOD", c.Schedule.Period)
	c.Display.Mode = envString("DISPLAY_MODE", c.Display.Mode)
	c.Display.Addr = envString("DISPLAY_ADDR", c.Display.Addr)

	// DATABASE_URL is honoured without the prefix like other tools expect
	c.Audit.DatabaseURL = envString("DATABASE_URL", os.Getenv("DATABASE_URL"), c.Audit.DatabaseURL)
}

// envString returns the value of the prefixed environment variable key, or
// the first non empty fallback
func envString(key string, fallbacks ...string) string {
	if s := os.Getenv(EnvPrefix + key); s != "" {
		return s
	}
	for _, f := range fallbacks {
		if f != "" {
			return f
		}
	}
	return ""
}

// envInt reads a prefixed environment variable and parses it as a positive
// integer.  Returns the default value if the env var is unset, empty, or
// invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(EnvPrefix + key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {

	var errs []error

	if c.Camera.Device == "" {
		errs = append(errs, errors.New("camera.device must be set"))
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		errs = append(errs, fmt.Errorf("invalid camera resolution %dx%d", c.Camera.Width, c.Camera.Height))
	}
	if c.Reference.Path == "" {
		errs = append(errs, errors.New("reference.path must be set"))
	}
	if c.Detect.ScaleFactor <= 1 {
		errs = append(errs, fmt.Errorf("detect.scale_factor must be greater than 1, got %v", c.Detect.ScaleFactor))
	}
	if c.Detect.MinNeighbors < 0 {
		errs = append(errs, fmt.Errorf("detect.min_neighbors must not be negative"))
	}
	if c.Detect.MaxSize > 0 && c.Detect.MaxSize < c.Detect.MinSize {
		errs = append(errs, fmt.Errorf("detect.max_size %d is smaller than min_size %d", c.Detect.MaxSize, c.Detect.MinSize))
	}
	if !oneOf(c.Verify.Backend, "deepface", "embedding") {
		errs = append(errs, fmt.Errorf("unknown verify.backend %q", c.Verify.Backend))
	}
	if !oneOf(c.Verify.Metric, "cosine", "euclidean", "euclidean_l2") {
		errs = append(errs, fmt.Errorf("unknown verify.metric %q", c.Verify.Metric))
	}
	if c.Verify.Timeout < 0 {
		errs = append(errs, errors.New("verify.timeout must not be negative"))
	}
	if c.Verify.MaxDistance < 0 {
		errs = append(errs, errors.New("verify.max_distance must not be negative"))
	}
	if !c.Verify.UseLibraryVerdict && c.Verify.MaxDistance == 0 {
		errs = append(errs, errors.New("verify policy has no criterion, enable use_library_verdict or set max_distance"))
	}
	if c.Schedule.Period < 1 {
		errs = append(errs, fmt.Errorf("schedule.period must be at least 1, got %d", c.Schedule.Period))
	}
	if !oneOf(c.Display.Mode, "window", "mjpeg", "both") {
		errs = append(errs, fmt.Errorf("unknown display.mode %q", c.Display.Mode))
	}
	if len([]rune(c.Display.QuitKey)) != 1 {
		errs = append(errs, fmt.Errorf("display.quit_key must be a single character, got %q", c.Display.QuitKey))
	}
	if c.Display.Mode != "window" && c.Display.Addr == "" {
		errs = append(errs, errors.New("display.addr must be set for mjpeg output"))
	}
	if !oneOf(c.Render.Placement, "tracked", "pinned") {
		errs = append(errs, fmt.Errorf("unknown render.placement %q", c.Render.Placement))
	}
	if c.Render.Trail < 0 {
		errs = append(errs, errors.New("render.trail must not be negative"))
	}

	return errors.Join(errs...)
}

// QuitRune returns the configured quit key
func (c *DisplayConfig) QuitRune() rune {
	for _, r := range c.QuitKey {
		return r
	}
	return 'q'
}

// ShowWindow returns true if frames are shown in a desktop window
func (c *DisplayConfig) ShowWindow() bool {
	return c.Mode == "window" || c.Mode == "both"
}

// ServeMJPEG returns true if frames are streamed over HTTP
func (c *DisplayConfig) ServeMJPEG() bool {
	return c.Mode == "mjpeg" || c.Mode == "both"
}

func oneOf(s string, options ...string) bool {
	for _, o := range options {
		if s == o {
			return true
		}
	}
	return false
}
