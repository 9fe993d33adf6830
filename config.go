package anm

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator"
)

// Config 导出配置，可由 JSON 文件加载，命令行参数优先
type Config struct {
	Input       string   `json:"input" validate:"required"`
	Output      string   `json:"output" validate:"required"`
	Inject      bool     `json:"inject"`
	ChunkPath   string   `json:"chunk_path" validate:"required"`
	FPS         float64  `json:"fps" validate:"gt=0,lte=240"`
	Loop        bool     `json:"loop"`
	Animations  []string `json:"animations"`
	ManifestDir string   `json:"manifest_dir"`

	ExportMaterialAnimations bool `json:"export_material_animations"`
	ExportAmbient            bool `json:"export_ambient"`
	ExportFog                bool `json:"export_fog"`
}

// Flags 命令行参数
type Flags struct {
	Input     string
	Output    string
	ChunkPath string
	FPS       float64
	Inject    bool
	Loop      bool
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve 合并命令行参数并补默认值
func (c *Config) Resolve(flags Flags) {
	if flags.Input != "" {
		c.Input = flags.Input
	}
	if flags.Output != "" {
		c.Output = flags.Output
	}
	if flags.ChunkPath != "" {
		c.ChunkPath = flags.ChunkPath
	}
	if flags.FPS > 0 {
		c.FPS = flags.FPS
	}
	if flags.Inject {
		c.Inject = true
	}
	if flags.Loop {
		c.Loop = true
	}

	if c.FPS <= 0 {
		c.FPS = 30
	}
	if c.Output == "" && c.Input != "" {
		c.Output = strings.TrimSuffix(c.Input, filepath.Ext(c.Input)) + XFBIN_EXT
	}
	if c.ChunkPath == "" && c.Input != "" {
		base := strings.TrimSuffix(filepath.Base(c.Input), filepath.Ext(c.Input))
		c.ChunkPath = "c/" + base + "/max/" + base + ".max"
	}
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (c *Config) Options() Options {
	return Options{
		ExportMaterialAnimations: c.ExportMaterialAnimations,
		ExportAmbient:            c.ExportAmbient,
		ExportFog:                c.ExportFog,
	}
}

// Selected 未指定动作列表时全部导出
func (c *Config) Selected(name string) bool {
	if len(c.Animations) == 0 {
		return true
	}
	for _, a := range c.Animations {
		if a == name {
			return true
		}
	}
	return false
}
