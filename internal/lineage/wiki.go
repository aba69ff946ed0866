package lineage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	yaml "go.yaml.in/yaml/v3"

	logx "losbot/pkg/logx"
)

// DeviceData is the wiki spec sheet for a device: free-form key/value
// attributes rendered for humans, not interpreted.
type DeviceData struct {
	Codename string
	Attrs    map[string]any
}

// DeviceData fetches the wiki device page. Some devices are split into
// variants (codename_variant1, _variant2, ...); the probe is bounded by
// MaxVariant and exhausting it means not found, same as a plain miss.
func (c *Client) DeviceData(ctx context.Context, codename string) (DeviceData, error) {
	d, err := c.fetchDeviceData(ctx, codename)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return DeviceData{}, err
	}

	for i := 1; i <= c.maxVariant; i++ {
		variant := fmt.Sprintf("%s_variant%d", codename, i)
		d, err = c.fetchDeviceData(ctx, variant)
		if err == nil {
			d.Codename = codename
			return d, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return DeviceData{}, err
		}
	}
	return DeviceData{}, fmt.Errorf("%s: %w", codename, ErrNotFound)
}

func (c *Client) fetchDeviceData(ctx context.Context, codename string) (DeviceData, error) {
	url := fmt.Sprintf("%s/%s.yml", c.wikiBase, codename)
	resp, err := c.get(ctx, url)
	if err != nil {
		return DeviceData{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return DeviceData{}, fmt.Errorf("read %s: %w", url, err)
	}

	var attrs map[string]any
	if err := yaml.Unmarshal(body, &attrs); err != nil {
		return DeviceData{}, fmt.Errorf("decode %s: %w", url, err)
	}
	c.log.Debug("wiki device data fetched", logx.String("codename", codename), logx.Int("attrs", len(attrs)))
	return DeviceData{Codename: codename, Attrs: attrs}, nil
}

// Render flattens the spec sheet into "key: value" lines, scalar attributes
// only, sorted for stable output.
func (d DeviceData) Render() string {
	keys := make([]string, 0, len(d.Attrs))
	for k := range d.Attrs {
		if renderable(d.Attrs[k]) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "Device: %s\n", d.Codename)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, renderValue(d.Attrs[k]))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderable(v any) bool {
	switch x := v.(type) {
	case string, int, int64, uint64, float64, bool:
		return true
	case []any:
		// Lists render only when every element is a scalar; lists of
		// nested maps (cameras, variants) are skipped entirely.
		for _, e := range x {
			switch e.(type) {
			case string, int, int64, uint64, float64, bool:
			default:
				return false
			}
		}
		return len(x) > 0
	default:
		return false
	}
}

func renderValue(v any) string {
	switch x := v.(type) {
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			parts = append(parts, fmt.Sprint(e))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(v)
	}
}
