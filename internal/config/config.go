// Package config handles configuration loading for the clusterer server.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/atlasmap-sc/clusterer/internal/cluster"
	"github.com/atlasmap-sc/clusterer/internal/clusterer"
)

// Config represents the server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Cluster  ClusterConfig  `yaml:"cluster"`
	Cache    CacheConfig    `yaml:"cache"`
	Render   RenderConfig   `yaml:"render"`
	Viewport ViewportConfig `yaml:"viewport"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
	Title       string   `yaml:"title"`

	MaxSessions       int `yaml:"max_sessions"`
	SessionTTLMinutes int `yaml:"session_ttl_minutes"`
}

// ClusterConfig contains the clustering options applied to new sessions.
type ClusterConfig struct {
	GridSize       float64         `yaml:"grid_size"`
	MinZoom        int             `yaml:"min_zoom"`
	MaxZoom        int             `yaml:"max_zoom"`
	MinClusterSize int             `yaml:"min_cluster_size"`
	AverageCenter  *bool           `yaml:"average_center"`
	ClassName      string          `yaml:"class_name"`
	ZoomOnClick    *bool           `yaml:"zoom_on_click"`
	ImagePath      string          `yaml:"image_path"`
	ImageExtension string          `yaml:"image_extension"`
	Styles         []cluster.Style `yaml:"styles"`
}

// CacheConfig contains caching settings.
type CacheConfig struct {
	IconSizeMB     int `yaml:"icon_size_mb"`
	IconTTLMinutes int `yaml:"icon_ttl_minutes"`
	QueryCacheSize int `yaml:"query_cache_size"`
}

// RenderConfig contains icon rendering settings.
type RenderConfig struct {
	MaxIconSize     int    `yaml:"max_icon_size"`
	DefaultColormap string `yaml:"default_colormap"`
}

// ViewportConfig is the viewport size used when a request omits it.
type ViewportConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		// Return default config if file doesn't exist
		return DefaultConfig(), nil
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	on := true
	zoomOnClick := true
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			Title:       "Feature Clusterer",

			MaxSessions:       256,
			SessionTTLMinutes: 60,
		},
		Cluster: ClusterConfig{
			GridSize:       clusterer.DefaultGridSize,
			MinZoom:        clusterer.DefaultMinZoom,
			MaxZoom:        clusterer.DefaultMaxZoom,
			MinClusterSize: clusterer.DefaultMinClusterSize,
			AverageCenter:  &on,
			ClassName:      clusterer.DefaultClassName,
			ZoomOnClick:    &zoomOnClick,
			ImagePath:      clusterer.DefaultImagePath,
			ImageExtension: clusterer.DefaultImageExtension,
		},
		Cache: CacheConfig{
			IconSizeMB:     64,
			IconTTLMinutes: 10,
			QueryCacheSize: 1024,
		},
		Render: RenderConfig{
			MaxIconSize:     256,
			DefaultColormap: "viridis",
		},
		Viewport: ViewportConfig{
			Width:  1024,
			Height: 768,
		},
	}
}

// Engine converts the cluster section into engine options.
func (c ClusterConfig) Engine() clusterer.Config {
	cfg := clusterer.DefaultConfig()
	cfg.GridSize = c.GridSize
	cfg.MinZoom = c.MinZoom
	cfg.MaxZoom = c.MaxZoom
	cfg.MinClusterSize = c.MinClusterSize
	cfg.ClassName = c.ClassName
	cfg.ImagePath = c.ImagePath
	cfg.ImageExtension = c.ImageExtension
	cfg.Styles = append([]cluster.Style(nil), c.Styles...)
	if c.AverageCenter != nil {
		cfg.AverageCenter = *c.AverageCenter
	}
	if c.ZoomOnClick != nil {
		cfg.ZoomOnClick = *c.ZoomOnClick
	}
	return cfg
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = defaults.Server.CORSOrigins
	}
	if cfg.Server.Title == "" {
		cfg.Server.Title = defaults.Server.Title
	}
	if cfg.Server.MaxSessions == 0 {
		cfg.Server.MaxSessions = defaults.Server.MaxSessions
	}
	if cfg.Server.SessionTTLMinutes == 0 {
		cfg.Server.SessionTTLMinutes = defaults.Server.SessionTTLMinutes
	}

	if cfg.Cluster.GridSize <= 0 {
		cfg.Cluster.GridSize = defaults.Cluster.GridSize
	}
	if cfg.Cluster.MaxZoom == 0 {
		cfg.Cluster.MaxZoom = defaults.Cluster.MaxZoom
	}
	if cfg.Cluster.MinClusterSize == 0 {
		cfg.Cluster.MinClusterSize = defaults.Cluster.MinClusterSize
	}
	if cfg.Cluster.AverageCenter == nil {
		cfg.Cluster.AverageCenter = defaults.Cluster.AverageCenter
	}
	if cfg.Cluster.ZoomOnClick == nil {
		cfg.Cluster.ZoomOnClick = defaults.Cluster.ZoomOnClick
	}
	if cfg.Cluster.ClassName == "" {
		cfg.Cluster.ClassName = defaults.Cluster.ClassName
	}
	if cfg.Cluster.ImagePath == "" {
		cfg.Cluster.ImagePath = defaults.Cluster.ImagePath
	}
	if cfg.Cluster.ImageExtension == "" {
		cfg.Cluster.ImageExtension = defaults.Cluster.ImageExtension
	}

	if cfg.Cache.IconSizeMB == 0 {
		cfg.Cache.IconSizeMB = defaults.Cache.IconSizeMB
	}
	if cfg.Cache.IconTTLMinutes == 0 {
		cfg.Cache.IconTTLMinutes = defaults.Cache.IconTTLMinutes
	}
	if cfg.Cache.QueryCacheSize == 0 {
		cfg.Cache.QueryCacheSize = defaults.Cache.QueryCacheSize
	}

	if cfg.Render.MaxIconSize == 0 {
		cfg.Render.MaxIconSize = defaults.Render.MaxIconSize
	}
	if cfg.Render.DefaultColormap == "" {
		cfg.Render.DefaultColormap = defaults.Render.DefaultColormap
	}

	if cfg.Viewport.Width == 0 {
		cfg.Viewport.Width = defaults.Viewport.Width
	}
	if cfg.Viewport.Height == 0 {
		cfg.Viewport.Height = defaults.Viewport.Height
	}
}
