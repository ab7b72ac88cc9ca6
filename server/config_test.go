package server

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	if c.Addr != ":8080" || c.TickRate != 20 || c.MoveStep != 16 ||
		c.TileSizePx != 32 || c.MaxChatLen != 100 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
}

func TestLoadConfig_PartialFileFillsDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte("addr: \":9000\"\ntick_rate: 30\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	c, err := LoadConfig(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Addr != ":9000" || c.TickRate != 30 {
		t.Fatalf("explicit fields lost: %+v", c)
	}
	if c.MoveStep != 16 || c.MaxChatLen != 100 {
		t.Fatalf("defaults not filled: %+v", c)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("missing file accepted")
	}
	p := filepath.Join(t.TempDir(), "bad.yaml")
	_ = os.WriteFile(p, []byte(":\n:::"), 0o644)
	if _, err := LoadConfig(p); err == nil {
		t.Fatal("malformed yaml accepted")
	}
}
