// Package router dispatches incoming chat commands to handlers through a
// middleware chain (panic recovery, request logging, timeouts, access gate).
package router

import (
	"context"
	"time"

	kit "losbot/internal/transport"
	logx "losbot/pkg/logx"
)

type Access int

const (
	AccessEveryone Access = iota
	AccessAdminOnly
)

type HandlerFunc func(ctx context.Context, req *Request) error

type Middleware func(next HandlerFunc) HandlerFunc

func Chain(h HandlerFunc, m ...Middleware) HandlerFunc {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

type Command struct {
	Name        string
	Description string
	Usage       string
	Access      Access
	Timeout     time.Duration // optional per-command override

	// InMenu includes the command in the platform command menu.
	InMenu bool

	Handle HandlerFunc
}

type Request struct {
	Msg     kit.Message
	Chat    kit.ChatTarget
	Command string
	Args    []string

	Adapter kit.Adapter
	Logger  logx.Logger
	Admins  []int64
}

func (r *Request) IsAdmin() bool {
	for _, id := range r.Admins {
		if id == r.Msg.FromID {
			return true
		}
	}
	return false
}

func (r *Request) Reply(ctx context.Context, text string) error {
	_, err := r.Adapter.SendText(ctx, r.Chat, text, nil)
	return err
}

func (r *Request) ReplyMarkdown(ctx context.Context, text string) error {
	_, err := r.Adapter.SendText(ctx, r.Chat, text, &kit.SendOptions{ParseMode: kit.ParseModeMarkdownV2})
	return err
}

func (r *Request) ReplyNoPreview(ctx context.Context, text string) error {
	_, err := r.Adapter.SendText(ctx, r.Chat, text, &kit.SendOptions{DisablePreview: true})
	return err
}

func (r *Request) ReplyDocument(ctx context.Context, filename string, data []byte, caption string) error {
	_, err := r.Adapter.SendDocument(ctx, r.Chat, filename, data, caption)
	return err
}
