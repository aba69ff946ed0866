package config

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Observer ObserverConfig `json:"observer"`
	Lineage  LineageConfig  `json:"lineage,omitempty"`
	Storage  *StorageConfig `json:"storage,omitempty"`
	Digest   *DigestConfig  `json:"digest,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`

	// Channel is the numeric chat id new-build announcements are posted to.
	// If empty, the observer is not started (query commands still work).
	Channel string `json:"channel,omitempty"`

	// GroupLog is the numeric chat id receiving mirrored log records.
	GroupLog    string `json:"group_log,omitempty"`
	LogThreadID int    `json:"log_thread_id,omitempty"`

	// PollTimeout is a Go duration string (e.g. "10s").
	PollTimeout string `json:"poll_timeout,omitempty"`

	// Admins lists user ids allowed to run the updates admin sub-commands.
	Admins []int64 `json:"admins,omitempty"`
}

type LoggingConfig struct {
	Level    string            `json:"level,omitempty"`
	Console  bool              `json:"console"`
	File     FileConfig        `json:"file,omitempty"`
	Telegram TelegramLogConfig `json:"telegram,omitempty"`
}

type FileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

type TelegramLogConfig struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

// ObserverConfig controls the update polling loop.
//
// All durations are Go duration strings (e.g. "30s", "10m").
//
// Enabled is a pointer so we can distinguish "omitted" (default true when a
// channel is configured) from an explicit false, which starts the observer
// gated until an admin enables it.
type ObserverConfig struct {
	Enabled *bool `json:"enabled,omitempty"`

	// Interval between polling cycles. Default "10m".
	Interval string `json:"interval,omitempty"`

	// CallTimeout bounds each upstream roster/build/post call. Default "30s".
	CallTimeout string `json:"call_timeout,omitempty"`

	// RatePerSec caps announcement posts. Default 1.
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

// LineageConfig overrides the upstream endpoints, mainly for tests and mirrors.
type LineageConfig struct {
	APIBase    string `json:"api_base,omitempty"`
	HudsonURL  string `json:"hudson_url,omitempty"`
	WikiBase   string `json:"wiki_base,omitempty"`
	Timeout    string `json:"timeout,omitempty"`
	MaxVariant int    `json:"max_variant,omitempty"`
}

type StorageConfig struct {
	Enabled     bool   `json:"enabled"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// DigestConfig schedules a periodic observer status summary to a chat.
type DigestConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule,omitempty"` // five-field cron spec, default "0 9 * * *"
	Chat     string `json:"chat,omitempty"`     // defaults to telegram.group_log
}
