package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_FullFile(t *testing.T) {
	content := `
server:
  port: 9000
  title: "Stations"
cluster:
  grid_size: 40
  max_zoom: 14
  min_cluster_size: 3
  average_center: false
  class_name: "poi"
  styles:
    - url: "/icons/a.png"
      width: 30
      height: 30
      text_color: "white"
cache:
  icon_size_mb: 16
viewport:
  width: 640
  height: 480
`
	cfg := loadFromString(t, content)

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Cluster.GridSize != 40 {
		t.Errorf("expected grid size 40, got %v", cfg.Cluster.GridSize)
	}
	if *cfg.Cluster.AverageCenter {
		t.Errorf("expected average_center false")
	}
	if !*cfg.Cluster.ZoomOnClick {
		t.Errorf("expected zoom_on_click to default to true")
	}
	if len(cfg.Cluster.Styles) != 1 || cfg.Cluster.Styles[0].TextColor != "white" {
		t.Errorf("unexpected styles: %+v", cfg.Cluster.Styles)
	}
	if cfg.Viewport.Width != 640 || cfg.Viewport.Height != 480 {
		t.Errorf("unexpected viewport: %+v", cfg.Viewport)
	}

	eng := cfg.Cluster.Engine()
	if eng.MinClusterSize != 3 || eng.MaxZoom != 14 || eng.AverageCenter {
		t.Errorf("unexpected engine config: %+v", eng)
	}
	if eng.ClassName != "poi" {
		t.Errorf("expected class name poi, got %q", eng.ClassName)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	content := `
server:
  port: 0
`
	cfg := loadFromString(t, content)

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Cluster.GridSize != 60 {
		t.Errorf("expected default grid size 60, got %v", cfg.Cluster.GridSize)
	}
	if cfg.Cluster.MaxZoom != 17 {
		t.Errorf("expected default max zoom 17, got %d", cfg.Cluster.MaxZoom)
	}
	if !*cfg.Cluster.AverageCenter {
		t.Errorf("expected average_center to default to true")
	}
	if cfg.Cache.IconSizeMB != 64 {
		t.Errorf("expected default icon cache size 64, got %d", cfg.Cache.IconSizeMB)
	}
	if cfg.Render.MaxIconSize != 256 {
		t.Errorf("expected default icon size 256, got %d", cfg.Render.MaxIconSize)
	}
	if cfg.Server.SessionTTLMinutes != 60 {
		t.Errorf("expected default session ttl 60, got %d", cfg.Server.SessionTTLMinutes)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("expected defaults, got error: %v", err)
	}
	if cfg.Cluster.ImageExtension != "png" {
		t.Errorf("expected png, got %q", cfg.Cluster.ImageExtension)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [1, 2"), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected a parse error")
	}
}

func loadFromString(t *testing.T, content string) *Config {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	return cfg
}
