package client

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/youruser/spotdeck/internal/util"
)

// Alerter shows a message to the user.
type Alerter interface {
	Alert(msg string)
}

// AlertFunc adapts a function to Alerter.
type AlertFunc func(msg string)

func (f AlertFunc) Alert(msg string) { f(msg) }

// WriterAlerter prints alerts to W, one per line.
type WriterAlerter struct {
	W io.Writer
}

func (a WriterAlerter) Alert(msg string) {
	fmt.Fprintln(a.W, msg)
}

// Navigator performs a full page navigation to url.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// DefaultExportName is used when the server names no attachment.
const DefaultExportName = "spotit_deck.pdf"

// DownloadNavigator stands in for browser navigation to a download: it
// fetches the url and saves the body into Dir.
type DownloadNavigator struct {
	Dir    string
	Client *http.Client
	Log    *zap.Logger
}

// Download fetches url and returns the path the body was saved to.
func (n DownloadNavigator) Download(ctx context.Context, url string) (string, error) {
	body, header, err := util.Fetch(ctx, n.Client, url)
	if err != nil {
		return "", err
	}
	name := DefaultExportName
	if _, params, err := mime.ParseMediaType(header.Get("Content-Disposition")); err == nil {
		if safe, err := util.SafeName(params["filename"]); err == nil {
			name = safe
		}
	}
	dir := n.Dir
	if dir == "" {
		dir = "."
	}
	if err := util.EnsureDir(dir); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("save export: %w", err)
	}
	if n.Log != nil {
		n.Log.Info("saved export", zap.String("path", path), zap.Int("bytes", len(body)))
	}
	return path, nil
}

func (n DownloadNavigator) Navigate(ctx context.Context, url string) error {
	_, err := n.Download(ctx, url)
	return err
}
