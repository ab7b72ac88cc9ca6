package server

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config 服务端运行配置；零值字段由 withDefaults 补齐
type Config struct {
	Addr       string  `yaml:"addr"`         // 监听地址，默认 ":8080"
	MapFile    string  `yaml:"map_file"`     // 地图文件路径，空则使用内置地图
	TickRate   int     `yaml:"tick_rate"`    // 每秒广播节拍数，默认 20
	MoveStep   float32 `yaml:"move_step"`    // 每次输入移动的像素步长，默认 16
	TileSizePx int     `yaml:"tile_size_px"` // 瓦片边长（像素），默认 32
	MaxChatLen int     `yaml:"max_chat_len"` // 聊天文本长度上限，默认 100
}

// DefaultConfig 返回全部取默认值的配置
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

// LoadConfig 从 YAML 文件加载配置，缺省字段补默认值
func LoadConfig(path string) (Config, error) {
	var c Config
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("config %s: %w", path, err)
	}
	return c.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.TickRate <= 0 {
		c.TickRate = 20
	}
	if c.MoveStep <= 0 {
		c.MoveStep = 16
	}
	if c.TileSizePx <= 0 {
		c.TileSizePx = 32
	}
	if c.MaxChatLen <= 0 {
		c.MaxChatLen = 100
	}
	return c
}
