package inbound

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Header keys set on every received Message.
const (
	HeaderRelativePath = "file_relativePath"
	HeaderFilename     = "file_name"
	HeaderOriginalFile = "file_originalFile"
)

// Message is a received file plus the headers describing where it came from.
type Message struct {
	ID        string
	Payload   string // absolute path of the file
	Headers   map[string]string
	Timestamp time.Time
}

// NewMessage builds the Message handed to consumers for c.
func NewMessage(c Candidate) *Message {
	return &Message{
		ID:      uuid.NewString(),
		Payload: c.File,
		Headers: map[string]string{
			HeaderRelativePath: c.RelativePath(),
			HeaderFilename:     filepath.Base(c.File),
			HeaderOriginalFile: c.File,
		},
		Timestamp: time.Now(),
	}
}

// RelativePath returns the relative-path header, or "" if absent.
func (m *Message) RelativePath() string {
	if m == nil || m.Headers == nil {
		return ""
	}
	return m.Headers[HeaderRelativePath]
}

// candidateFor rebuilds the Candidate a failed message was created from.
// The root is the payload with the relative path stripped off the end;
// without a usable relative path it is the payload's parent directory.
func candidateFor(m *Message) Candidate {
	file := m.Payload
	if abs, err := filepath.Abs(file); err == nil {
		file = abs
	}
	rel := m.RelativePath()
	sep := string(filepath.Separator)
	if rel != "" && strings.HasSuffix(file, sep+rel) {
		root := strings.TrimSuffix(file, sep+rel)
		if root == "" {
			root = sep
		}
		return Candidate{File: file, Root: root}
	}
	return Candidate{File: file, Root: filepath.Dir(file)}
}
