// Package pairing handles mobile device pairing via QR codes.
package pairing

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
)

// PairingInfo contains the information encoded in the QR code.
type PairingInfo struct {
	WebSocket string `json:"ws"`
	SessionID string `json:"session"`
	Workspace string `json:"workspace,omitempty"`
}

// QRGenerator generates QR codes for mobile pairing.
type QRGenerator struct {
	host          string
	port          int
	sessionID     string
	workspace     string
	externalWSURL string // Optional: override WebSocket URL (tunnels, port forwarding)
}

// NewQRGenerator creates a new QR code generator.
func NewQRGenerator(host string, port int, sessionID string) *QRGenerator {
	return &QRGenerator{
		host:      host,
		port:      port,
		sessionID: sessionID,
	}
}

// SetExternalURL sets the external/public WebSocket URL. When set, it is
// encoded in the QR code instead of the local host:port URL.
func (g *QRGenerator) SetExternalURL(wsURL string) {
	g.externalWSURL = wsURL
}

// SetWorkspace sets the workspace name shown to the pairing client.
func (g *QRGenerator) SetWorkspace(name string) {
	g.workspace = name
}

// GetPairingInfo returns the pairing information.
func (g *QRGenerator) GetPairingInfo() *PairingInfo {
	wsURL := fmt.Sprintf("ws://%s:%d/ws", g.host, g.port)
	if g.externalWSURL != "" {
		wsURL = g.externalWSURL
	}

	return &PairingInfo{
		WebSocket: wsURL,
		SessionID: g.sessionID,
		Workspace: g.workspace,
	}
}

// GenerateJSON returns the pairing info as JSON.
func (g *QRGenerator) GenerateJSON() (string, error) {
	data, err := json.Marshal(g.GetPairingInfo())
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// GenerateTerminal generates a QR code for terminal display.
func (g *QRGenerator) GenerateTerminal() (string, error) {
	jsonData, err := g.GenerateJSON()
	if err != nil {
		return "", err
	}

	qr, err := qrcode.New(jsonData, qrcode.Medium)
	if err != nil {
		return "", err
	}
	return qr.ToSmallString(false), nil
}

// GeneratePNG generates a PNG image of the QR code.
func (g *QRGenerator) GeneratePNG(size int) ([]byte, error) {
	jsonData, err := g.GenerateJSON()
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(jsonData, qrcode.Medium, size)
}

// PrintToTerminal prints the QR code to the terminal with a header.
func (g *QRGenerator) PrintToTerminal() {
	qrStr, err := g.GenerateTerminal()
	if err != nil {
		fmt.Printf("  [Error generating QR code: %v]\n", err)
		return
	}

	info := g.GetPairingInfo()
	fmt.Println()
	fmt.Println("  Scan to pair your mobile device:")
	fmt.Println()
	for _, line := range strings.Split(qrStr, "\n") {
		fmt.Printf("  %s\n", line)
	}
	fmt.Printf("  WebSocket: %s\n", info.WebSocket)
	fmt.Printf("  Session:   %s\n", info.SessionID)
	fmt.Println()
}
