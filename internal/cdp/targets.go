package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ibridge/internal/domain"
)

// inspectorURLMarker identifies the protocol inspector's own pages, which
// must never be selected as the editor window.
const inspectorURLMarker = "devtools://"

// Target is a remote-debuggable page/window exposed by the editor.
// Targets are discovered fresh per resolution and never cached.
type Target struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	DebuggerURL string `json:"webSocketDebuggerUrl"`
}

// VersionInfo is the endpoint's advertised version metadata.
type VersionInfo struct {
	Browser         string `json:"Browser"`
	ProtocolVersion string `json:"Protocol-Version"`
	UserAgent       string `json:"User-Agent"`
}

// Discovery locates debuggable targets on the editor's debugging endpoint.
type Discovery struct {
	baseURL         string
	client          *http.Client
	product         string
	secondaryMarker string
}

// NewDiscovery creates a Discovery for the debugging endpoint at host:port.
// product is the editor's product name as it appears in window titles;
// secondaryMarker is a title substring identifying secondary windows to
// skip (e.g. launcher or settings panels).
func NewDiscovery(host string, port int, product, secondaryMarker string) *Discovery {
	return &Discovery{
		baseURL:         fmt.Sprintf("http://%s:%d", host, port),
		client:          &http.Client{Timeout: ReadCallTimeout},
		product:         product,
		secondaryMarker: secondaryMarker,
	}
}

// ListTargets fetches the current target list from /json/list.
func (d *Discovery) ListTargets(ctx context.Context) ([]Target, error) {
	var targets []Target
	if err := d.getJSON(ctx, "/json/list", &targets); err != nil {
		return nil, domain.NewCDPError("list targets", err)
	}
	return targets, nil
}

// Version fetches endpoint metadata from /json/version.
func (d *Discovery) Version(ctx context.Context) (VersionInfo, error) {
	var info VersionInfo
	if err := d.getJSON(ctx, "/json/version", &info); err != nil {
		return VersionInfo{}, domain.NewCDPError("version", err)
	}
	return info, nil
}

// ResolveEditorTarget selects the editor's main window among the
// debuggable targets. Preference order: a page-typed target whose title
// contains the product name, excludes the secondary-window marker, and
// whose URL is not an inspector page; else the first page target; else
// nil. A nil result with nil error means automation is unavailable, not
// that something failed.
func (d *Discovery) ResolveEditorTarget(ctx context.Context) (*Target, error) {
	targets, err := d.ListTargets(ctx)
	if err != nil {
		return nil, err
	}

	var firstPage *Target
	for i := range targets {
		t := &targets[i]
		if t.Type != "page" {
			continue
		}
		if firstPage == nil {
			firstPage = t
		}
		if !strings.Contains(t.Title, d.product) {
			continue
		}
		if d.secondaryMarker != "" && strings.Contains(t.Title, d.secondaryMarker) {
			continue
		}
		if strings.Contains(t.URL, inspectorURLMarker) {
			continue
		}
		return t, nil
	}

	return firstPage, nil
}

func (d *Discovery) getJSON(ctx context.Context, path string, v interface{}) error {
	reqCtx, cancel := context.WithTimeout(ctx, ReadCallTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, d.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

// Endpoint returns the base HTTP URL of the debugging endpoint.
func (d *Discovery) Endpoint() string {
	return d.baseURL
}

// Reachable reports whether the debugging endpoint responds at all.
func (d *Discovery) Reachable(ctx context.Context) bool {
	reqCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, d.baseURL+"/json/version", nil)
	if err != nil {
		return false
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
