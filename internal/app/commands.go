package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"losbot/internal/lineage"
	"losbot/internal/observer"
	"losbot/internal/poster"
	"losbot/internal/transport/telegram/router"
)

const dumpTimeFormat = "2006/01/02, 15:04:05"

func (a *App) registerCommands() {
	a.router.Register(
		router.Command{
			Name:        "start",
			Description: "Check that the bot is up",
			Handle:      a.cmdStart,
		},
		router.Command{
			Name:        "device_info",
			Description: "Get device informations and specs",
			Usage:       "/device_info <codename>",
			InMenu:      true,
			Handle:      a.cmdDeviceInfo,
		},
		router.Command{
			Name:        "lineageos",
			Description: "Get the latest LineageOS build for a device",
			Usage:       "/lineageos <codename>",
			InMenu:      true,
			Handle:      a.cmdLineageOS,
		},
		router.Command{
			Name:        "when",
			Description: "Get when the next update for a device will be available",
			Usage:       "/when <codename>",
			InMenu:      true,
			Handle:      a.cmdWhen,
		},
		router.Command{
			Name:        "lineageos_updates",
			Description: "Manage the updates observer",
			Usage:       "/lineageos_updates <command> [args]",
			Access:      router.AccessAdminOnly,
			Handle:      a.cmdUpdates,
		},
	)
}

func (a *App) cmdStart(ctx context.Context, req *router.Request) error {
	return req.Reply(ctx, "LineageOS updates bot up and running")
}

func (a *App) cmdDeviceInfo(ctx context.Context, req *router.Request) error {
	if len(req.Args) < 1 {
		return req.Reply(ctx, "Device codename not specified")
	}
	codename := req.Args[0]

	data, err := a.client.DeviceData(ctx, codename)
	if err != nil {
		if errors.Is(err, lineage.ErrNotFound) {
			return req.Reply(ctx, "Error: Device not found")
		}
		return err
	}
	return req.ReplyNoPreview(ctx, data.Render())
}

func (a *App) cmdLineageOS(ctx context.Context, req *router.Request) error {
	if len(req.Args) < 1 {
		return req.Reply(ctx, "Device codename not specified")
	}
	codename := req.Args[0]

	info, err := a.client.Device(ctx, codename)
	if err != nil {
		return req.Reply(ctx, "Error: Device not found")
	}
	if len(info.Versions) == 0 {
		return req.Reply(ctx, fmt.Sprintf("No LineageOS versions found for %s", codename))
	}

	builds, err := a.client.Builds(ctx, codename)
	if err != nil || len(builds) == 0 {
		return req.Reply(ctx, fmt.Sprintf("Error: no updates found for %s", codename))
	}

	return req.ReplyMarkdown(ctx, poster.RenderLatest(info, observer.Latest(builds)))
}

func (a *App) cmdWhen(ctx context.Context, req *router.Request) error {
	if len(req.Args) < 1 {
		return req.Reply(ctx, "Device codename not specified")
	}
	codename := req.Args[0]

	info, err := a.client.Device(ctx, codename)
	if err != nil {
		return req.Reply(ctx, "Error: Device not found")
	}

	targets, err := a.client.ListTargets(ctx)
	if err != nil {
		return req.Reply(ctx, "Error: Device not found")
	}
	var target *lineage.BuildTarget
	for i := range targets {
		if targets[i].Device == codename {
			target = &targets[i]
			break
		}
	}
	if target == nil {
		return req.Reply(ctx, "Error: Device not found")
	}

	next := lineage.NextBuildDate(*target, time.Now())
	return req.Reply(ctx, fmt.Sprintf("The next build for %s %s (%s) will be on %s",
		info.OEM, info.Name, codename, next.Format("2006-01-02")))
}

// ---- lineageos_updates sub-commands ----

var updatesSubcommands = []string{
	"disable",
	"dump",
	"enable",
	"history",
	"set_start_date",
	"test_post",
}

func updatesHelpText() string {
	return "Available commands:\n" + strings.Join(updatesSubcommands, "\n")
}

func (a *App) cmdUpdates(ctx context.Context, req *router.Request) error {
	if len(req.Args) == 0 {
		return req.Reply(ctx, "Error: No argument provided\n\n"+updatesHelpText())
	}

	sub, args := req.Args[0], req.Args[1:]
	switch sub {
	case "enable":
		return a.subEnable(ctx, req)
	case "disable":
		return a.subDisable(ctx, req)
	case "dump":
		return a.subDump(ctx, req)
	case "set_start_date":
		return a.subSetStartDate(ctx, req, args)
	case "test_post":
		return a.subTestPost(ctx, req, args)
	case "history":
		return a.subHistory(ctx, req, args)
	default:
		return req.Reply(ctx, fmt.Sprintf("Error: Unknown command %s\n\n%s", sub, updatesHelpText()))
	}
}

func (a *App) subEnable(ctx context.Context, req *router.Request) error {
	if a.obs == nil {
		return req.Reply(ctx, "Observer not ready yet")
	}
	a.obs.Enable()
	return req.Reply(ctx, "Observer enabled")
}

func (a *App) subDisable(ctx context.Context, req *router.Request) error {
	if a.obs == nil {
		return req.Reply(ctx, "Observer not ready yet")
	}
	a.obs.Disable()
	return req.Reply(ctx, "Observer disabled")
}

func (a *App) subDump(ctx context.Context, req *router.Request) error {
	if a.obs == nil {
		return req.Reply(ctx, "Observer not ready yet")
	}
	st := a.obs.Status()

	caption := fmt.Sprintf("Status:\nEnabled: %t\n", st.Enabled)
	if len(st.Devices) == 0 {
		return req.Reply(ctx, caption)
	}

	devices := make([]string, 0, len(st.Devices))
	for d := range st.Devices {
		devices = append(devices, d)
	}
	sort.Strings(devices)

	var sb strings.Builder
	sb.WriteString("Device | Last post\n")
	for _, d := range devices {
		fmt.Fprintf(&sb, "%s | %s\n", d, st.Devices[d].Format(dumpTimeFormat))
	}

	caption += "List of devices:\n"
	return req.ReplyDocument(ctx, "output.txt", []byte(sb.String()), caption)
}

func (a *App) subSetStartDate(ctx context.Context, req *router.Request, args []string) error {
	if a.obs == nil {
		return req.Reply(ctx, "Observer not ready yet")
	}
	if len(args) < 1 {
		return req.Reply(ctx, "Error: No timestamp provided")
	}

	// Timestamp parsing stays at the boundary; the observer only ever sees
	// a valid time.
	unix, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return req.Reply(ctx, fmt.Sprintf("Error: Invalid timestamp: %s", args[0]))
	}
	date := time.Unix(unix, 0)

	if err := a.obs.SetStartDate(ctx, date); err != nil {
		return req.Reply(ctx, fmt.Sprintf("Error: Could not set start date: %v", err))
	}
	return req.Reply(ctx, fmt.Sprintf("Start date set to %s", date.Format(dumpTimeFormat)))
}

func (a *App) subTestPost(ctx context.Context, req *router.Request, args []string) error {
	if len(args) < 1 {
		return req.Reply(ctx, "Error: No device provided")
	}
	device := args[0]

	builds, err := a.client.Builds(ctx, device)
	if err != nil || len(builds) == 0 {
		return req.Reply(ctx, fmt.Sprintf("No updates for %s", device))
	}
	latest := observer.Latest(builds)

	if err := a.post.PostTo(ctx, req.Chat, device, latest); err != nil {
		return req.Reply(ctx, fmt.Sprintf("Error: Could not post %s %s", device, latest.Datetime.Format(dumpTimeFormat)))
	}
	return nil
}

func (a *App) subHistory(ctx context.Context, req *router.Request, args []string) error {
	if a.store == nil {
		return req.Reply(ctx, "History is not enabled")
	}

	limit := 20
	if len(args) >= 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return req.Reply(ctx, fmt.Sprintf("Error: Invalid count: %s", args[0]))
		}
		limit = n
	}

	entries, err := a.store.RecentAnnouncements(ctx, limit)
	if err != nil {
		return req.Reply(ctx, fmt.Sprintf("Error: Could not read history: %v", err))
	}
	if len(entries) == 0 {
		return req.Reply(ctx, "No announcements recorded yet")
	}

	var sb strings.Builder
	sb.WriteString("Recent announcements:\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "%s | %s | %s | %s (%s)\n",
			e.At.Format(dumpTimeFormat), e.Device, e.Version, e.Filename,
			humanize.Bytes(uint64(e.Size)))
	}
	return req.Reply(ctx, sb.String())
}
