package anm

import (
	"os"
	"path/filepath"
	"testing"
)

// TestConfigResolve 测试默认值与命令行覆盖
func TestConfigResolve(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		flags Flags
		want  Config
	}{
		{
			"Defaults",
			Config{},
			Flags{Input: "scenes/1nrt.glb"},
			Config{Input: "scenes/1nrt.glb", Output: "scenes/1nrt.xfbin", ChunkPath: "c/1nrt/max/1nrt.max", FPS: 30},
		},
		{
			"FlagsOverride",
			Config{Input: "a.gltf", Output: "a.xfbin", FPS: 24, ChunkPath: "p"},
			Flags{Output: "b.xfbin", FPS: 60, Inject: true, Loop: true},
			Config{Input: "a.gltf", Output: "b.xfbin", ChunkPath: "p", FPS: 60, Inject: true, Loop: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.cfg
			c.Resolve(tt.flags)
			if c.Input != tt.want.Input || c.Output != tt.want.Output || c.ChunkPath != tt.want.ChunkPath ||
				c.FPS != tt.want.FPS || c.Inject != tt.want.Inject || c.Loop != tt.want.Loop {
				t.Errorf("Expected %+v, got %+v", tt.want, c)
			}
		})
	}
}

// TestConfigValidate 测试配置校验
func TestConfigValidate(t *testing.T) {
	valid := Config{Input: "a.glb", Output: "a.xfbin", ChunkPath: "c/a/max/a.max", FPS: 30}
	if err := valid.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}

	tests := []struct {
		name string
		edit func(c *Config)
	}{
		{"NoInput", func(c *Config) { c.Input = "" }},
		{"NoOutput", func(c *Config) { c.Output = "" }},
		{"ZeroFPS", func(c *Config) { c.FPS = 0 }},
		{"HighFPS", func(c *Config) { c.FPS = 1000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.edit(&c)
			if err := c.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

// TestLoadConfig 测试从文件加载
func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"input": "walk.glb", "fps": 24, "animations": ["Walk"], "export_fog": true}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if c.Input != "walk.glb" || c.FPS != 24 || !c.ExportFog {
		t.Errorf("Unexpected config %+v", c)
	}
	if !c.Selected("Walk") || c.Selected("Run") {
		t.Error("Animation selection mismatch")
	}
	if !c.Options().ExportFog || c.Options().ExportAmbient {
		t.Error("Options mismatch")
	}
	if !(&Config{}).Selected("Anything") {
		t.Error("Empty selection should export everything")
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "none.json")); err == nil {
		t.Error("Expected error for missing file")
	}
	bad := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(bad, []byte("{"), 0644)
	if _, err := LoadConfig(bad); err == nil {
		t.Error("Expected error for bad json")
	}
}
