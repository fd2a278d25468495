package config

import (
	"os"
	"strconv"
	"strings"
)

// applyEnv overrides file settings with environment variables
func applyEnv(cfg *Config) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if dir := os.Getenv("TUBEWATCH_DATA_DIR"); dir != "" {
		cfg.Data.Dir = dir
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.Server.CORSOrigins = splitList(origins)
	}
	if mode := os.Getenv("GIN_MODE"); mode != "" {
		cfg.Server.GinMode = mode
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	// LLM settings keep the variable names the summarizer has always used
	if v, ok := os.LookupEnv("AI_MODEL"); ok {
		cfg.LLM.Model = v
	}
	if v, ok := os.LookupEnv("AI_HOST"); ok {
		cfg.LLM.Host = v
	}
	if v, ok := os.LookupEnv("AI_ENDPOINT"); ok {
		cfg.LLM.Endpoint = v
	}
	if v, ok := os.LookupEnv("AI_APIKEY"); ok {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("AI_TEMPERATURE"); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.LLM.Temperature = t
		}
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
