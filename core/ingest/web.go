package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/siherrmann/radar/helper"
	"github.com/siherrmann/radar/model"
	"golang.org/x/net/html"
	"golang.org/x/sync/singleflight"
)

// UserAgent identifies the crawler to the fetched sites.
const UserAgent = "Mozilla/5.0 (compatible; RadarBot/0.1; +http://github.com/charles-forsyth/radar)"

const (
	maxBodySize  = 10 << 20
	fetchTimeout = 30 * time.Second
)

var (
	ErrUnsupportedURL   = errors.New("unsupported url")
	ErrUnexpectedStatus = errors.New("unexpected http status")
)

// WebIngestor fetches pages and turns them into signals.
// Concurrent fetches of the same URL share one request.
type WebIngestor struct {
	client *http.Client
	logger *slog.Logger
	group  singleflight.Group
}

// NewWebIngestor creates a web ingestor. A nil client gets a 30 second timeout.
func NewWebIngestor(client *http.Client, logger *slog.Logger) *WebIngestor {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebIngestor{
		client: client,
		logger: logger,
	}
}

// Fetch downloads rawURL and builds a web signal from its readable text.
// Callers fetching the same URL at once share one request; cancelling ctx
// only ends this caller's wait.
func (w *WebIngestor) Fetch(ctx context.Context, rawURL string) (*model.Signal, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, helper.NewError("parse url", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, helper.NewError("parse url", fmt.Errorf("%w: %s", ErrUnsupportedURL, rawURL))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w.logger.Info("Ingesting", slog.String("url", u.String()))

	// The shared request outlives any single caller. Each caller stops
	// waiting on its own context.
	results := w.group.DoChan(u.String(), func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		return w.fetch(fetchCtx, u)
	})

	var result singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result = <-results:
	}
	if result.Err != nil {
		return nil, result.Err
	}

	signal := *result.Val.(*model.Signal)
	w.logger.Info("Parsed signal", slog.String("title", signal.Title))

	return &signal, nil
}

func (w *WebIngestor) fetch(ctx context.Context, u *url.URL) (*model.Signal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, helper.NewError("create request", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, helper.NewError("fetch url", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, helper.NewError("fetch url", fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, helper.NewError("read body", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "html") {
		return model.NewWebSignal(u.String(), "", string(body))
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, helper.NewError("parse html", err)
	}

	text := w.readableText(body, u)
	if text == "" {
		text = visibleText(doc)
	}

	return model.NewWebSignal(u.String(), pageTitle(doc), text)
}

// readableText returns the main article text or "" if readability finds none.
func (w *WebIngestor) readableText(body []byte, u *url.URL) string {
	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		w.logger.Debug("Readability failed, using visible text", slog.String("url", u.String()), slog.String("error", err.Error()))
		return ""
	}

	var builder strings.Builder
	err = article.RenderText(&builder)
	if err != nil {
		w.logger.Debug("Rendering article failed, using visible text", slog.String("url", u.String()), slog.String("error", err.Error()))
		return ""
	}

	return strings.TrimSpace(builder.String())
}

func pageTitle(doc *html.Node) string {
	var find func(n *html.Node) string
	find = func(n *html.Node) string {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil {
				return strings.TrimSpace(n.FirstChild.Data)
			}
			return ""
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if title := find(c); title != "" {
				return title
			}
		}
		return ""
	}
	return find(doc)
}

// visibleText joins all text nodes outside head, script and style, one per line.
func visibleText(doc *html.Node) string {
	lines := []string{}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "head", "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			if line := strings.TrimSpace(n.Data); line != "" {
				lines = append(lines, line)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.Join(lines, "\n")
}
