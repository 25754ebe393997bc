package config

import "strings"

type RealtimeConfig interface {
	GetAllowedWSOrigins() []string
}

type Realtime struct{}

var _ RealtimeConfig = Realtime{}

func (Realtime) GetAllowedWSOrigins() []string {
	raw := strings.TrimSpace(GetEnv("WS_ALLOWED_ORIGINS", ""))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
