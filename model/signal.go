package model

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SignalSource describes where the text of a signal came from.
type SignalSource string

const (
	SignalSourceWeb   SignalSource = "web"
	SignalSourceStdin SignalSource = "stdin"
	SignalSourceFile  SignalSource = "file"
)

const (
	// MaxContentLength is the number of runes kept as display content.
	MaxContentLength = 5000
	// MaxTitleLength is the number of runes kept of a derived title.
	MaxTitleLength = 120
	// DefaultTitle is used when no title can be derived.
	DefaultTitle = "No Title"
)

// ErrEmptyText is returned when a signal would be created from blank text.
var ErrEmptyText = errors.New("no input text")

// Signal is one ingested unit of source text.
// ID is the insertion sequence and orders ties in retrieval, RID is the opaque global identifier.
type Signal struct {
	ID        int64        `json:"id"`
	RID       uuid.UUID    `json:"rid"`
	Title     string       `json:"title"`
	URL       *string      `json:"url,omitempty"`
	Content   string       `json:"content"`
	RawText   string       `json:"raw_text,omitempty"`
	Source    SignalSource `json:"source"`
	Date      time.Time    `json:"date"`
	Embedding []float32    `json:"embedding,omitempty"`
	CreatedAt time.Time    `json:"created_at"`

	// Distance is only set on retrieval results.
	Distance float64 `json:"distance,omitempty"`
}

// HasVector reports whether the signal carries an embedding.
func (s *Signal) HasVector() bool {
	return len(s.Embedding) > 0
}

// NewSignalFromText creates a signal from raw text. The title is the first
// non-empty line, the content is the text truncated to MaxContentLength runes.
func NewSignalFromText(text string, source SignalSource) (*Signal, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrEmptyText
	}

	return &Signal{
		Title:   titleFromText(trimmed),
		Content: Truncate(trimmed, MaxContentLength),
		RawText: text,
		Source:  source,
		Date:    time.Now().UTC(),
	}, nil
}

// NewWebSignal creates a signal for a fetched page.
func NewWebSignal(url string, title string, text string) (*Signal, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrEmptyText
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}

	return &Signal{
		Title:   Truncate(title, MaxTitleLength),
		URL:     &url,
		Content: Truncate(trimmed, MaxContentLength),
		RawText: text,
		Source:  SignalSourceWeb,
		Date:    time.Now().UTC(),
	}, nil
}

// NewSignalFromFile reads a file and creates a signal from its content.
// The title defaults to the file name without extension.
func NewSignalFromFile(filePath string) (*Signal, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	signal, err := NewSignalFromText(string(content), SignalSourceFile)
	if err != nil {
		return nil, err
	}

	filename := filepath.Base(filePath)
	title := filename[:len(filename)-len(filepath.Ext(filename))]
	if title == "" {
		title = filename
	}
	signal.Title = title

	return signal, nil
}

func titleFromText(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return Truncate(line, MaxTitleLength)
		}
	}
	return DefaultTitle
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
