package config

type Config interface {
	EnvConfig
	DatabaseConfig
	AuthConfig
	SecurityConfig
	RealtimeConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	Database
	Auth
	Security
	Realtime
}

func New() Config {
	return mainConfig{}
}
