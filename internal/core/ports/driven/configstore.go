package driven

// ConfigStore holds the flat, dotted-key settings behind config.toml.
// Keys look like "remote.base_url" or "schema.observations"; the settings
// service owns their meaning and defaults.
type ConfigStore interface {
	// Get returns the raw value for key and whether it is set.
	Get(key string) (any, bool)

	// GetString returns "" when key is unset or not a string.
	GetString(key string) string

	// GetInt returns 0 when key is unset or not numeric.
	GetInt(key string) int

	// GetBool returns false when key is unset or not a boolean.
	GetBool(key string) bool

	// GetStringSlice returns nil when key is unset or not a list.
	// Option lists such as form.referral_options are read this way.
	GetStringSlice(key string) []string

	// Set stores value under key and persists it immediately.
	Set(key string, value any) error

	// Save writes the current settings to storage.
	Save() error

	// Load re-reads settings from storage, replacing what is in memory.
	Load() error

	// Path returns where settings are persisted, or "" for in-memory stores.
	Path() string
}
