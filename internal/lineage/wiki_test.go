package lineage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	logx "losbot/pkg/logx"
)

const wikiBody = `codename: bacon
vendor: OnePlus
name: One
release: 2014-06-06
maintainers:
  - alice
  - bob
ram: 3 GB
cameras:
  - info: 13 MP
    flash: LED
`

func wikiClient(t *testing.T, handler http.Handler, maxVariant int) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{
		APIBase:    srv.URL + "/api/v2",
		HudsonURL:  srv.URL + "/hudson",
		WikiBase:   srv.URL + "/wiki",
		Timeout:    2 * time.Second,
		MaxVariant: maxVariant,
	}, logx.Nop())
}

func TestDeviceDataDirectHit(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/wiki/bacon.yml", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(wikiBody))
	})
	c := wikiClient(t, mux, 4)

	data, err := c.DeviceData(context.Background(), "bacon")
	if err != nil {
		t.Fatalf("DeviceData: %v", err)
	}

	out := data.Render()
	for _, want := range []string{"Device: bacon", "vendor: OnePlus", "maintainers: alice, bob", "ram: 3 GB"} {
		if !strings.Contains(out, want) {
			t.Fatalf("render missing %q:\n%s", want, out)
		}
	}
	// Nested structures are not flattened into the spec sheet.
	if strings.Contains(out, "cameras") {
		t.Fatalf("render should skip nested attributes:\n%s", out)
	}
}

func TestDeviceDataVariantProbe(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/wiki/guacamole_variant2.yml", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("codename: guacamole_variant2\nvendor: OnePlus\n"))
	})
	c := wikiClient(t, mux, 4)

	data, err := c.DeviceData(context.Background(), "guacamole")
	if err != nil {
		t.Fatalf("DeviceData: %v", err)
	}
	// The probe reports the requested codename, not the variant page name.
	if data.Codename != "guacamole" {
		t.Fatalf("Codename = %q, want guacamole", data.Codename)
	}
}

func TestDeviceDataProbeIsBounded(t *testing.T) {
	t.Parallel()

	var requests atomic.Int64
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.NotFound(w, r)
	})
	c := wikiClient(t, h, 3)

	_, err := c.DeviceData(context.Background(), "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	// Plain codename plus exactly MaxVariant probes, then give up.
	if got := requests.Load(); got != 4 {
		t.Fatalf("probe made %d requests, want 4", got)
	}
}

func TestDeviceDataUpstreamErrorStopsProbe(t *testing.T) {
	t.Parallel()

	var requests atomic.Int64
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	c := wikiClient(t, h, 4)

	_, err := c.DeviceData(context.Background(), "ghost")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want StatusError", err)
	}
	if got := requests.Load(); got != 1 {
		t.Fatalf("non-404 failures must not trigger variant probing, got %d requests", got)
	}
}
