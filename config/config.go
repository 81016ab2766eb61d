package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"mazeworld/geometry"
)

// EnvPrefix 环境变量前缀，例如 MAZEWORLD_SIMULATOR_URL
const EnvPrefix = "MAZEWORLD"

type LogConfig struct {
	File       string `mapstructure:"file"`
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // console | json
	Console    bool   `mapstructure:"console"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type SimulatorConfig struct {
	URL            string        `mapstructure:"url"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	ConnectRetries int           `mapstructure:"connect_retries"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	AckTimeout     time.Duration `mapstructure:"ack_timeout"`
	DefaultFloor   string        `mapstructure:"default_floor"`
}

// Config 启动时解析一次，之后只读
type Config struct {
	Addr          string            `mapstructure:"addr"`
	Log           LogConfig         `mapstructure:"log"`
	Simulator     SimulatorConfig   `mapstructure:"simulator"`
	ModelRoot     string            `mapstructure:"model_root"`
	Assets        map[string]string `mapstructure:"assets"`
	FailurePolicy string            `mapstructure:"failure_policy"`
	PlanCacheSize int64             `mapstructure:"plan_cache_size"` // 按指令条数计
}

// DefaultAssets 资源到模型文件（相对 ModelRoot）
var DefaultAssets = map[geometry.Asset]string{
	geometry.TopWall:    "walls/top_wall.ttm",
	geometry.RightWall:  "walls/right_wall.ttm",
	geometry.BottomWall: "walls/bottom_wall.ttm",
	geometry.LeftWall:   "walls/left_wall.ttm",

	geometry.TopExternal:    "walls/top_external.ttm",
	geometry.RightExternal:  "walls/right_external.ttm",
	geometry.BottomExternal: "walls/bottom_external.ttm",
	geometry.LeftExternal:   "walls/left_external.ttm",

	geometry.TopRightCorner:    "walls/corner_top_right.ttm",
	geometry.BottomRightCorner: "walls/corner_bottom_right.ttm",
	geometry.BottomLeftCorner:  "walls/corner_bottom_left.ttm",
	geometry.TopLeftCorner:     "walls/corner_top_left.ttm",

	geometry.LeftNotch:  "walls/notch_left.ttm",
	geometry.RightNotch: "walls/notch_right.ttm",

	geometry.CheckpointTile: "tiles/checkpoint_tile.ttm",
	geometry.TrapTile:       "tiles/hole_tile.ttm",
	geometry.GoalTile:       "tiles/start_tile.ttm",
	geometry.SwampTile:      "tiles/speed_bump.ttm",
	geometry.WhiteTile:      "tiles/tile_white.ttm",

	geometry.Robot:       "robots/simplus_e-puck.ttm",
	geometry.GameManager: "game_manager.ttm",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("log.file", "app.log")
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.console", false)
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 7)
	v.SetDefault("simulator.url", "ws://127.0.0.1:12345/scene")
	v.SetDefault("simulator.connect_timeout", "5s")
	v.SetDefault("simulator.connect_retries", 2)
	v.SetDefault("simulator.retry_delay", "1s")
	v.SetDefault("simulator.ack_timeout", "10s")
	v.SetDefault("simulator.default_floor", "ResizableFloor_5_25")
	v.SetDefault("model_root", "")
	v.SetDefault("failure_policy", "abort")
	v.SetDefault("plan_cache_size", 1<<20)
}

// Load 依次读取 .env、配置文件（可选）与 MAZEWORLD_* 环境变量
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.ModelRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		cfg.ModelRoot = ResolveModelRoot(runtime.GOOS, wd)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验取值范围
func (c *Config) Validate() error {
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	switch c.FailurePolicy {
	case "abort", "skip":
	default:
		return fmt.Errorf("failure_policy must be abort or skip, got %q", c.FailurePolicy)
	}
	for name := range c.Assets {
		if !knownAsset(geometry.Asset(name)) {
			return fmt.Errorf("assets: unknown asset %q", name)
		}
	}
	return nil
}

func knownAsset(a geometry.Asset) bool {
	for _, k := range geometry.Assets {
		if k == a {
			return true
		}
	}
	return false
}

// ResolveModelRoot 工作目录的上一级下的 generator/models；
// macOS 打包运行时先去掉 *.app/Contents/MacOS 后缀
func ResolveModelRoot(goos, wd string) string {
	base := filepath.Clean(wd)
	if goos == "darwin" {
		if i := strings.Index(base, ".app"+string(filepath.Separator)+"Contents"); i >= 0 {
			base = filepath.Dir(base[:i+len(".app")])
		}
	}
	return filepath.Join(filepath.Dir(base), "generator", "models")
}

// ModelPath 实现 scene.Catalog；配置中的 assets 覆盖默认表
func (c *Config) ModelPath(asset geometry.Asset) (string, error) {
	rel, ok := c.Assets[string(asset)]
	if !ok {
		rel, ok = DefaultAssets[asset]
	}
	if !ok {
		return "", fmt.Errorf("no model registered for asset %q", asset)
	}
	if filepath.IsAbs(rel) {
		return rel, nil
	}
	return filepath.Join(c.ModelRoot, rel), nil
}
