package grass

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"github.com/gekko3d/grass/grassrt/rt/core"
	"github.com/gekko3d/grass/grassrt/rt/scatter"
)

type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

type GrassConfig struct {
	InstanceCount int        `yaml:"instance_count"`
	Pivot         [3]float32 `yaml:"pivot"`
	DrawDistance  float32    `yaml:"draw_distance"`
	CellSizeX     float32    `yaml:"cell_size_x"`
	CellSizeZ     float32    `yaml:"cell_size_z"`
	BatchDispatch bool       `yaml:"batch_dispatch"`
	RebuildPolicy string     `yaml:"rebuild_policy"`
	Seed          int64      `yaml:"seed"`
	Workers       int        `yaml:"workers"`
}

type CameraConfig struct {
	FovY        float32 `yaml:"fov_y"`
	Near        float32 `yaml:"near"`
	Far         float32 `yaml:"far"`
	OrbitRadius float32 `yaml:"orbit_radius"`
	OrbitHeight float32 `yaml:"orbit_height"`
	OrbitSpeed  float32 `yaml:"orbit_speed"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Prefix string `yaml:"prefix"`
}

type Config struct {
	Log    LogConfig    `yaml:"log"`
	Window WindowConfig `yaml:"window"`
	Grass  GrassConfig  `yaml:"grass"`
	Camera CameraConfig `yaml:"camera"`
}

// DefaultConfig matches the reference scene: a million blades, seed 123,
// 10x10 cells and a 125 unit draw distance.
func DefaultConfig() Config {
	s := core.DefaultSettings()
	return Config{
		Log:    LogConfig{Level: "info", Prefix: "grass"},
		Window: WindowConfig{Width: 1280, Height: 720, Title: "Grass"},
		Grass: GrassConfig{
			InstanceCount: 1_000_000,
			DrawDistance:  s.DrawDistance,
			CellSizeX:     s.CellSizeX,
			CellSizeZ:     s.CellSizeZ,
			BatchDispatch: s.BatchDispatch,
			RebuildPolicy: s.Policy.String(),
			Seed:          123,
		},
		Camera: CameraConfig{
			FovY:        60,
			Near:        0.3,
			Far:         1000,
			OrbitRadius: 60,
			OrbitHeight: 12,
			OrbitSpeed:  0.1,
		},
	}
}

// LoadConfig reads a YAML file over DefaultConfig; keys missing from the
// file keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height))
	}
	if c.Grass.InstanceCount < 0 {
		errs = append(errs, fmt.Errorf("grass.instance_count must not be negative, got %d", c.Grass.InstanceCount))
	}
	if _, err := c.Settings(); err != nil {
		errs = append(errs, err)
	}
	if c.Camera.FovY <= 0 || c.Camera.FovY >= 180 {
		errs = append(errs, fmt.Errorf("camera.fov_y must be in (0, 180) degrees, got %v", c.Camera.FovY))
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		errs = append(errs, fmt.Errorf("camera clip planes must satisfy 0 < near < far, got %v, %v", c.Camera.Near, c.Camera.Far))
	}
	return errors.Join(errs...)
}

// LoggingModule builds the logger described by the log section.
func (c Config) LoggingModule(debug bool) LoggingModule {
	level, _ := ParseLevel(c.Log.Level)
	return LoggingModule{Prefix: c.Log.Prefix, Debug: debug || level == LevelDebug, Level: level}
}

// Settings converts the grass section into renderer settings.
func (c Config) Settings() (core.Settings, error) {
	policy, err := core.ParseRebuildPolicy(c.Grass.RebuildPolicy)
	if err != nil {
		return core.Settings{}, err
	}
	s := core.Settings{
		CellSizeX:     c.Grass.CellSizeX,
		CellSizeZ:     c.Grass.CellSizeZ,
		DrawDistance:  c.Grass.DrawDistance,
		BatchDispatch: c.Grass.BatchDispatch,
		Policy:        policy,
	}
	return s, s.Validate()
}

func (c Config) ScatterParams() scatter.Params {
	return scatter.Params{
		Count: c.Grass.InstanceCount,
		Pivot: mgl32.Vec3(c.Grass.Pivot),
		Seed:  c.Grass.Seed,
	}
}
