package lineage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	logx "losbot/pkg/logx"
)

const (
	defaultAPIBase   = "https://download.lineageos.org/api/v2"
	defaultHudsonURL = "https://raw.githubusercontent.com/LineageOS/hudson/main/lineage-build-targets"
	defaultWikiBase  = "https://raw.githubusercontent.com/LineageOS/lineage_wiki/main/_data/devices"

	defaultTimeout = 30 * time.Second
)

type Options struct {
	APIBase   string
	HudsonURL string
	WikiBase  string
	Timeout   time.Duration

	// MaxVariant bounds the wiki variant probe (codename_variant1..N).
	MaxVariant int
}

type Client struct {
	http *http.Client
	log  logx.Logger

	apiBase    string
	hudsonURL  string
	wikiBase   string
	maxVariant int
}

func NewClient(opt Options, log logx.Logger) *Client {
	if opt.APIBase == "" {
		opt.APIBase = defaultAPIBase
	}
	if opt.HudsonURL == "" {
		opt.HudsonURL = defaultHudsonURL
	}
	if opt.WikiBase == "" {
		opt.WikiBase = defaultWikiBase
	}
	if opt.Timeout <= 0 {
		opt.Timeout = defaultTimeout
	}
	if opt.MaxVariant <= 0 {
		opt.MaxVariant = 4
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		http:       &http.Client{Timeout: opt.Timeout},
		log:        log,
		apiBase:    strings.TrimRight(opt.APIBase, "/"),
		hudsonURL:  opt.HudsonURL,
		wikiBase:   strings.TrimRight(opt.WikiBase, "/"),
		maxVariant: opt.MaxVariant,
	}
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", url, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	resp, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// ListTargets fetches the hudson roster. Lines are "device branch period",
// comments and blanks skipped.
func (c *Client) ListTargets(ctx context.Context) ([]BuildTarget, error) {
	resp, err := c.get(ctx, c.hudsonURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var targets []BuildTarget
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		targets = append(targets, BuildTarget{
			Device: fields[0],
			Branch: fields[1],
			Period: fields[2],
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", c.hudsonURL, err)
	}
	return targets, nil
}

type wireFile struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
}

type wireBuild struct {
	Date     string     `json:"date"`
	Datetime int64      `json:"datetime"`
	Version  string     `json:"version"`
	Type     string     `json:"type"`
	Files    []wireFile `json:"files"`
}

// Builds fetches the published builds for a device, oldest first (upstream
// order preserved).
func (c *Client) Builds(ctx context.Context, device string) ([]Build, error) {
	var wire []wireBuild
	url := fmt.Sprintf("%s/devices/%s/builds", c.apiBase, device)
	if err := c.getJSON(ctx, url, &wire); err != nil {
		return nil, err
	}
	builds := make([]Build, 0, len(wire))
	for _, w := range wire {
		b := Build{
			Date:     w.Date,
			Datetime: time.Unix(w.Datetime, 0).UTC(),
			Version:  w.Version,
			Type:     w.Type,
		}
		for _, f := range w.Files {
			b.Files = append(b.Files, BuildFile{Filename: f.Filename, URL: f.URL, Size: f.Size})
		}
		builds = append(builds, b)
	}
	return builds, nil
}

type wireDevice struct {
	Name     string   `json:"name"`
	OEM      string   `json:"oem"`
	InfoURL  string   `json:"info_url"`
	Versions []string `json:"versions"`
}

func (c *Client) Device(ctx context.Context, codename string) (DeviceInfo, error) {
	var w wireDevice
	url := fmt.Sprintf("%s/devices/%s", c.apiBase, codename)
	if err := c.getJSON(ctx, url, &w); err != nil {
		return DeviceInfo{}, err
	}
	return DeviceInfo{
		Codename: codename,
		OEM:      w.OEM,
		Name:     w.Name,
		InfoURL:  w.InfoURL,
		Versions: w.Versions,
	}, nil
}

// NextBuildDate derives the next scheduled build from the target's period
// code, relative to now (UTC).
func NextBuildDate(t BuildTarget, now time.Time) time.Time {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch strings.ToUpper(t.Period) {
	case "W":
		next := midnight.AddDate(0, 0, 1)
		for next.Weekday() != time.Monday {
			next = next.AddDate(0, 0, 1)
		}
		return next
	case "M":
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	default: // nightly
		return midnight.AddDate(0, 0, 1)
	}
}
