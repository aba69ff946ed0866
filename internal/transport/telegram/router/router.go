package router

import (
	"context"
	"strings"
	"time"

	kit "losbot/internal/transport"
	logx "losbot/pkg/logx"
)

type Router struct {
	ad     kit.Adapter
	log    logx.Logger
	admins []int64

	cmds  map[string]*Command
	order []string

	defaultTimeout time.Duration
}

func New(ad kit.Adapter, log logx.Logger, admins []int64) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Router{
		ad:             ad,
		log:            log,
		admins:         admins,
		cmds:           make(map[string]*Command),
		defaultTimeout: 30 * time.Second,
	}
}

func (r *Router) Register(cmds ...Command) {
	for i := range cmds {
		c := cmds[i]
		if c.Name == "" || c.Handle == nil {
			continue
		}
		if _, dup := r.cmds[c.Name]; !dup {
			r.order = append(r.order, c.Name)
		}
		r.cmds[c.Name] = &c
	}
}

// MenuCommands returns the menu entries in registration order.
func (r *Router) MenuCommands() []kit.BotCommand {
	out := make([]kit.BotCommand, 0, len(r.order))
	for _, name := range r.order {
		c := r.cmds[name]
		if c.InMenu {
			out = append(out, kit.BotCommand{Command: name, Description: c.Description})
		}
	}
	return out
}

// Dispatch routes one update. Non-command text and unknown commands are
// ignored: the bot lives in public groups and must not answer every message.
func (r *Router) Dispatch(ctx context.Context, up kit.Update) {
	if up.Message == nil {
		return
	}
	name, args, ok := splitCommand(up.Message.Text)
	if !ok {
		return
	}
	cmd, ok := r.cmds[name]
	if !ok {
		return
	}

	req := &Request{
		Msg:     *up.Message,
		Chat:    kit.ChatTarget{ChatID: up.Message.ChatID, ThreadID: up.Message.ThreadID},
		Command: name,
		Args:    args,
		Adapter: r.ad,
		Logger:  r.log.With(logx.String("cmd", name)),
		Admins:  r.admins,
	}

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}

	h := Chain(cmd.Handle,
		MWPanicRecover(r.log),
		MWRequestLog(r.log),
		MWTimeout(timeout),
		MWAccess(cmd.Access),
	)
	if err := h(ctx, req); err != nil {
		r.log.Warn("command handler error", logx.String("cmd", name), logx.Err(err))
	}
}

// splitCommand parses "/cmd@botname arg1 arg2". The @botname suffix is how
// Telegram disambiguates commands in groups; any suffix is accepted since
// non-matching commands never reach this bot.
func splitCommand(text string) (name string, args []string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", nil, false
	}
	fields := strings.Fields(text)
	name = strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	if name == "" {
		return "", nil, false
	}
	return name, fields[1:], true
}
