package config

// Config holds all configuration for the application.
type Config struct {
	DBName        string
	MigrationsDir string
	Port          string
	Slack         SlackConfig
	Turso         TursoConfig
	Engine        EngineConfig
	ProjectID     string
}
type SlackConfig struct {
	Token     string
	ChannelID string
}
type TursoConfig struct {
	PrimaryURL string
	AuthToken  string
}

// EngineConfig carries the tunables of the balancing engine.
type EngineConfig struct {
	// SideSize is the number of players per team on a default sheet.
	SideSize int
}
