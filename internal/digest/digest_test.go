package digest

import (
	"context"
	"strings"
	"testing"
	"time"

	"losbot/internal/observer"
	"losbot/internal/transport"
	logx "losbot/pkg/logx"
)

type nopAdapter struct{}

func (nopAdapter) Start(ctx context.Context, out chan<- transport.Update) error { return nil }
func (nopAdapter) Stop(ctx context.Context) error                               { return nil }
func (nopAdapter) SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error) {
	return transport.MessageRef{}, nil
}
func (nopAdapter) SendDocument(ctx context.Context, to transport.ChatTarget, filename string, data []byte, caption string) (transport.MessageRef, error) {
	return transport.MessageRef{}, nil
}
func (nopAdapter) ChatUsername(ctx context.Context, chatID int64) (string, error) { return "", nil }

func TestRender(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	st := observer.Status{
		Enabled: true,
		Devices: map[string]time.Time{
			"bacon":     now.Add(-2 * time.Hour),  // announced today
			"guacamole": now.Add(-48 * time.Hour), // stale
			"lemonade":  now.Add(-23 * time.Hour), // just inside the window
		},
	}

	out := Render(st, now)
	for _, want := range []string{
		"Enabled: true",
		"Devices tracked: 3",
		"Announced in the last 24h: 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("digest missing %q:\n%s", want, out)
		}
	}
}

func TestRenderEmpty(t *testing.T) {
	t.Parallel()

	out := Render(observer.Status{}, time.Now())
	for _, want := range []string{"Enabled: false", "Devices tracked: 0", "Announced in the last 24h: 0"} {
		if !strings.Contains(out, want) {
			t.Fatalf("digest missing %q:\n%s", want, out)
		}
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	t.Parallel()

	s := New(Config{Schedule: "every tuesday"}, nopAdapter{}, func() observer.Status { return observer.Status{} }, logx.Nop())
	if err := s.Start(); err == nil {
		t.Fatal("expected schedule parse error")
	}
}

func TestStopWithoutStart(t *testing.T) {
	t.Parallel()

	s := New(Config{}, nopAdapter{}, func() observer.Status { return observer.Status{} }, logx.Nop())
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
