package router

import (
	"context"
	"sync"
	"testing"
	"time"

	kit "losbot/internal/transport"
	logx "losbot/pkg/logx"
)

type fakeAdapter struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeAdapter) Start(ctx context.Context, out chan<- kit.Update) error { return nil }
func (f *fakeAdapter) Stop(ctx context.Context) error                         { return nil }

func (f *fakeAdapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return kit.MessageRef{}, nil
}

func (f *fakeAdapter) SendDocument(ctx context.Context, to kit.ChatTarget, filename string, data []byte, caption string) (kit.MessageRef, error) {
	return kit.MessageRef{}, nil
}

func (f *fakeAdapter) ChatUsername(ctx context.Context, chatID int64) (string, error) {
	return "", nil
}

func (f *fakeAdapter) replies() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func msgUpdate(fromID int64, text string) kit.Update {
	return kit.Update{Message: &kit.Message{
		ID:     1,
		ChatID: 100,
		FromID: fromID,
		Text:   text,
	}}
}

func TestSplitCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		cmd  string
		args []string
		ok   bool
	}{
		{name: "plain", text: "/start", cmd: "start", ok: true},
		{name: "with args", text: "/lineageos bacon", cmd: "lineageos", args: []string{"bacon"}, ok: true},
		{name: "bot suffix", text: "/start@losbot", cmd: "start", ok: true},
		{name: "suffix and args", text: "/lineageos_updates@losbot enable", cmd: "lineageos_updates", args: []string{"enable"}, ok: true},
		{name: "not a command", text: "hello there", ok: false},
		{name: "bare slash", text: "/", ok: false},
		{name: "leading spaces", text: "  /when bacon", cmd: "when", args: []string{"bacon"}, ok: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cmd, args, ok := splitCommand(tt.text)
			if ok != tt.ok {
				t.Fatalf("ok = %t, want %t", ok, tt.ok)
			}
			if !ok {
				return
			}
			if cmd != tt.cmd {
				t.Fatalf("cmd = %q, want %q", cmd, tt.cmd)
			}
			if len(args) != len(tt.args) {
				t.Fatalf("args = %v, want %v", args, tt.args)
			}
			for i := range args {
				if args[i] != tt.args[i] {
					t.Fatalf("args = %v, want %v", args, tt.args)
				}
			}
		})
	}
}

func TestDispatchRoutesToHandler(t *testing.T) {
	t.Parallel()

	ad := &fakeAdapter{}
	r := New(ad, logx.Nop(), nil)

	var gotArgs []string
	r.Register(Command{
		Name: "echo",
		Handle: func(ctx context.Context, req *Request) error {
			gotArgs = req.Args
			return req.Reply(ctx, "echoed")
		},
	})

	r.Dispatch(context.Background(), msgUpdate(1, "/echo a b"))

	if len(gotArgs) != 2 || gotArgs[0] != "a" {
		t.Fatalf("handler args = %v", gotArgs)
	}
	if replies := ad.replies(); len(replies) != 1 || replies[0] != "echoed" {
		t.Fatalf("replies = %v", replies)
	}
}

func TestDispatchIgnoresUnknownAndPlainText(t *testing.T) {
	t.Parallel()

	ad := &fakeAdapter{}
	r := New(ad, logx.Nop(), nil)
	r.Register(Command{Name: "known", Handle: func(ctx context.Context, req *Request) error { return nil }})

	r.Dispatch(context.Background(), msgUpdate(1, "/unknown"))
	r.Dispatch(context.Background(), msgUpdate(1, "just chatting"))
	r.Dispatch(context.Background(), kit.Update{})

	if replies := ad.replies(); len(replies) != 0 {
		t.Fatalf("expected silence, got %v", replies)
	}
}

func TestDispatchAdminGate(t *testing.T) {
	t.Parallel()

	ad := &fakeAdapter{}
	r := New(ad, logx.Nop(), []int64{42})

	var handled bool
	r.Register(Command{
		Name:   "admin_only",
		Access: AccessAdminOnly,
		Handle: func(ctx context.Context, req *Request) error {
			handled = true
			return req.Reply(ctx, "ok")
		},
	})

	r.Dispatch(context.Background(), msgUpdate(7, "/admin_only"))
	if handled {
		t.Fatal("handler ran for unauthorized caller")
	}
	replies := ad.replies()
	if len(replies) != 1 || replies[0] != "Error: You are not authorized to use this command" {
		t.Fatalf("replies = %v", replies)
	}

	r.Dispatch(context.Background(), msgUpdate(42, "/admin_only"))
	if !handled {
		t.Fatal("handler did not run for admin")
	}
}

func TestDispatchRecoversPanic(t *testing.T) {
	t.Parallel()

	ad := &fakeAdapter{}
	r := New(ad, logx.Nop(), nil)
	r.Register(Command{
		Name:   "boom",
		Handle: func(ctx context.Context, req *Request) error { panic("kaboom") },
	})

	// Must not crash the dispatcher.
	r.Dispatch(context.Background(), msgUpdate(1, "/boom"))
}

func TestDispatchAppliesTimeout(t *testing.T) {
	t.Parallel()

	ad := &fakeAdapter{}
	r := New(ad, logx.Nop(), nil)

	var ctxErr error
	done := make(chan struct{})
	r.Register(Command{
		Name:    "slow",
		Timeout: 10 * time.Millisecond,
		Handle: func(ctx context.Context, req *Request) error {
			<-ctx.Done()
			ctxErr = ctx.Err()
			close(done)
			return ctx.Err()
		},
	})

	r.Dispatch(context.Background(), msgUpdate(1, "/slow"))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler context never expired")
	}
	if ctxErr != context.DeadlineExceeded {
		t.Fatalf("ctx err = %v, want DeadlineExceeded", ctxErr)
	}
}

func TestMenuCommands(t *testing.T) {
	t.Parallel()

	r := New(&fakeAdapter{}, logx.Nop(), nil)
	r.Register(
		Command{Name: "visible", Description: "shown", InMenu: true, Handle: noop},
		Command{Name: "hidden", Description: "not shown", Handle: noop},
		Command{Name: "also_visible", Description: "shown too", InMenu: true, Handle: noop},
	)

	menu := r.MenuCommands()
	if len(menu) != 2 {
		t.Fatalf("menu = %v, want 2 entries", menu)
	}
	if menu[0].Command != "visible" || menu[1].Command != "also_visible" {
		t.Fatalf("menu order = %v, want registration order", menu)
	}
}

func noop(ctx context.Context, req *Request) error { return nil }
