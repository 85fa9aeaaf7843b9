package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flowsmith/flowsmith-backend/internal/domain"
	"github.com/flowsmith/flowsmith-backend/internal/platform/envutil"
	"github.com/flowsmith/flowsmith-backend/internal/platform/logger"
	"github.com/flowsmith/flowsmith-backend/internal/scopetag"
)

type Config struct {
	HTTPAddr        string
	AllowOrigins    []string
	JWTSecretKey    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	LicensePlan     domain.LicensePlan
	UpgradeURL      string
	Plugins         map[string]scopetag.PluginState
	ScopeTagTTL     time.Duration
	JobQueueSize    int
	Environment     string
	Version         string
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		HTTPAddr:        envutil.String("HTTP_ADDR", ":8080"),
		JWTSecretKey:    envutil.String("JWT_SECRET_KEY", "defaultsecret"),
		AccessTokenTTL:  envutil.DurationSeconds("ACCESS_TOKEN_TTL", 3600),
		RefreshTokenTTL: envutil.DurationSeconds("REFRESH_TOKEN_TTL", 86400),
		LicensePlan:     domain.LicensePlan(envutil.String("LICENSE_PLAN", string(domain.PlanFree))),
		UpgradeURL:      envutil.String("UPGRADE_URL", "https://flowsmith.dev/pricing"),
		ScopeTagTTL:     envutil.DurationSeconds("SCOPE_TAG_TTL", 300),
		JobQueueSize:    envutil.Int("JOB_QUEUE_SIZE", 64),
		Environment:     envutil.String("APP_ENV", "development"),
		Version:         envutil.String("APP_VERSION", "dev"),
	}
	if origins := envutil.String("ALLOW_ORIGINS", ""); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowOrigins = append(cfg.AllowOrigins, o)
			}
		}
	}

	plugins, err := loadPluginStates(envutil.String("PLUGIN_STATE_FILE", ""))
	if err != nil {
		log.Warn("Plugin state file unreadable; companion plugins treated as absent", "error", err)
	}
	cfg.Plugins = plugins
	return cfg
}

// loadPluginStates reads the companion plugin inventory the plugin
// dependency resolver consults. The file is optional.
func loadPluginStates(path string) (map[string]scopetag.PluginState, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Plugins map[string]struct {
			Installed bool   `yaml:"installed"`
			Active    bool   `yaml:"active"`
			Version   string `yaml:"version"`
		} `yaml:"plugins"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse plugin state: %w", err)
	}
	out := make(map[string]scopetag.PluginState, len(doc.Plugins))
	for name, p := range doc.Plugins {
		out[name] = scopetag.PluginState{Installed: p.Installed, Active: p.Active, Version: p.Version}
	}
	return out, nil
}
