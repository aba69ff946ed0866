package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validYAML = `telegram:
  token: "12345:abc"
  channel: "-1001234"
  admins: [42, 99]
  poll_timeout: "10s"
logging:
  level: INFO
  console: true
observer:
  interval: "5m"
  call_timeout: "15s"
storage:
  enabled: true
  path: "./data/history.db"
  busy_timeout: "2s"
`

func TestLoadYAML(t *testing.T) {
	t.Parallel()

	m := NewManager(writeConfig(t, "config.yaml", validYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Telegram.Token != "12345:abc" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if len(cfg.Telegram.Admins) != 2 || cfg.Telegram.Admins[0] != 42 {
		t.Fatalf("admins = %v", cfg.Telegram.Admins)
	}
	if cfg.Observer.Interval != "5m" {
		t.Fatalf("interval = %q", cfg.Observer.Interval)
	}
	if cfg.Storage == nil || !cfg.Storage.Enabled {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get should return the committed snapshot")
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	m := NewManager(writeConfig(t, "config.yaml", validYAML+"mystery_key: true\n"))
	if _, err := m.Load(); err == nil {
		t.Fatal("expected unknown key rejection")
	}
}

func TestLoadRejectsMissingToken(t *testing.T) {
	t.Parallel()

	m := NewManager(writeConfig(t, "config.yaml", "telegram:\n  channel: \"-100\"\nlogging:\n  console: true\nobserver: {}\n"))
	if _, err := m.Load(); err == nil {
		t.Fatal("expected missing token rejection")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Parallel()

	body := "telegram:\n  token: \"t\"\nlogging:\n  console: true\nobserver:\n  interval: \"soon\"\n"
	m := NewManager(writeConfig(t, "config.yaml", body))
	if _, err := m.Load(); err == nil {
		t.Fatal("expected invalid duration rejection")
	}
}

func TestLoadRejectsBadChatID(t *testing.T) {
	t.Parallel()

	body := "telegram:\n  token: \"t\"\n  channel: \"@notnumeric\"\nlogging:\n  console: true\nobserver: {}\n"
	m := NewManager(writeConfig(t, "config.yaml", body))
	if _, err := m.Load(); err == nil {
		t.Fatal("expected invalid chat id rejection")
	}
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()

	body := `{"telegram":{"token":"t","channel":"-100"},"logging":{"console":true},"observer":{}}`
	m := NewManager(writeConfig(t, "config.json", body))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Channel != "-100" {
		t.Fatalf("channel = %q", cfg.Telegram.Channel)
	}
}

func TestLoadRejectsTrailingJSON(t *testing.T) {
	t.Parallel()

	body := `{"telegram":{"token":"t"},"logging":{},"observer":{}}{"extra":1}`
	m := NewManager(writeConfig(t, "config.json", body))
	if _, err := m.Load(); err == nil {
		t.Fatal("expected trailing data rejection")
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{name: "empty is zero", raw: "", want: 0},
		{name: "minutes", raw: "10m", want: 10 * time.Minute},
		{name: "trimmed", raw: " 30s ", want: 30 * time.Second},
		{name: "negative rejected", raw: "-5s", wantErr: true},
		{name: "garbage rejected", raw: "tomorrow", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseDurationField("test.field", tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()

	got, err := ParseDurationOrDefault("f", "", 10*time.Minute)
	if err != nil || got != 10*time.Minute {
		t.Fatalf("got %v, %v", got, err)
	}
	got, err = ParseDurationOrDefault("f", "1m", 10*time.Minute)
	if err != nil || got != time.Minute {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestParseChatID(t *testing.T) {
	t.Parallel()

	if id, err := ParseChatID("f", ""); err != nil || id != 0 {
		t.Fatalf("empty: %d, %v", id, err)
	}
	if id, err := ParseChatID("f", "-1001234"); err != nil || id != -1001234 {
		t.Fatalf("numeric: %d, %v", id, err)
	}
	if _, err := ParseChatID("f", "abc"); err == nil {
		t.Fatal("expected error for non-numeric id")
	}
}
