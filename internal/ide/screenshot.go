package ide

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"ibridge/internal/cdp"
	"ibridge/internal/domain"
)

// Screenshot captures the editor window as a PNG via the page domain.
// The connection is opened for the single capture and closed after.
func (a *Automator) Screenshot(ctx context.Context) ([]byte, string, error) {
	target := a.resolveTarget(ctx)
	if target == nil {
		return nil, "", domain.ErrNoEditorTarget
	}

	conn, err := cdp.Dial(target.DebuggerURL, nil)
	if err != nil {
		return nil, "", domain.NewCDPError("screenshot", err)
	}
	defer conn.Close()

	raw, err := conn.Call(ctx, "Page.captureScreenshot", map[string]interface{}{
		"format": "png",
	}, cdp.MutateCallTimeout)
	if err != nil {
		return nil, "", err
	}

	var res struct {
		Data string `json:"data"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, "", domain.NewCDPError("screenshot", err)
	}

	img, err := base64.StdEncoding.DecodeString(res.Data)
	if err != nil {
		return nil, "", domain.NewCDPError("screenshot", err)
	}
	return img, "png", nil
}
