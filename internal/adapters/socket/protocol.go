// Package socket implements a JSON-over-Unix-socket protocol for the intake daemon.
// The protocol uses newline-delimited JSON: each message is one JSON object + \n.
package socket

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"
	"time"

	"github.com/corey/intake/internal/domain/inbound"
)

// SocketPath returns the default Unix socket path for a watched directory.
// Format: /tmp/intake-{first12hex}.sock
func SocketPath(directory string) string {
	abs, err := filepath.Abs(directory)
	if err != nil {
		abs = directory
	}
	h := sha256.Sum256([]byte(abs))
	return fmt.Sprintf("/tmp/intake-%x.sock", h[:6])
}

// Method names for the protocol.
const (
	MethodReceive  = "receive"
	MethodFail     = "fail"
	MethodAck      = "ack"
	MethodHealth   = "health"
	MethodStats    = "stats"
	MethodShutdown = "shutdown"
)

// Request is the wire format for client-to-server messages.
type Request struct {
	ID     string      `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

// Response is the wire format for server-to-client messages.
type Response struct {
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// MessageResult is the result of a receive request. Found is false when no
// file is available right now.
type MessageResult struct {
	Found     bool              `json:"found"`
	ID        string            `json:"id,omitempty"`
	Payload   string            `json:"payload,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	Timestamp int64             `json:"timestamp,omitempty"`
}

// FailParams hands a received file back. RelativePath should be the
// file_relativePath header of the original message.
type FailParams struct {
	ID           string `json:"id,omitempty"`
	Payload      string `json:"payload"`
	RelativePath string `json:"relative_path,omitempty"`
}

// AckParams releases the claim on a processed file.
type AckParams struct {
	Path string `json:"path"`
}

// HealthResult is the result of a health request.
type HealthResult struct {
	Status    string `json:"status"`
	Running   bool   `json:"running"`
	Directory string `json:"directory"`
	Uptime    string `json:"uptime"`
}

// StatsResult is the result of a stats request.
type StatsResult struct {
	Running       bool   `json:"running"`
	Directory     string `json:"directory"`
	QueueDepth    int    `json:"queue_depth"`
	Scans         int64  `json:"scans"`
	Enqueued      int64  `json:"enqueued"`
	Received      int64  `json:"received"`
	Refused       int64  `json:"refused"`
	Requeued      int64  `json:"requeued"`
	Registrations int    `json:"registrations"`
	StoreEntries  int    `json:"store_entries"`
	StoreBytes    int64  `json:"store_bytes"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// NewMessageResult converts a received message to its wire form.
func NewMessageResult(m *inbound.Message) MessageResult {
	if m == nil {
		return MessageResult{}
	}
	return MessageResult{
		Found:     true,
		ID:        m.ID,
		Payload:   m.Payload,
		Headers:   m.Headers,
		Timestamp: m.Timestamp.UnixMilli(),
	}
}

// Message rebuilds the domain message from its wire form.
func (p FailParams) Message() *inbound.Message {
	m := &inbound.Message{
		ID:        p.ID,
		Payload:   p.Payload,
		Headers:   map[string]string{},
		Timestamp: time.Now(),
	}
	if p.RelativePath != "" {
		m.Headers[inbound.HeaderRelativePath] = p.RelativePath
	}
	return m
}
