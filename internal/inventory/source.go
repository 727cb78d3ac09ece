package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Source fetches raw stock records.
type Source interface {
	Fetch(ctx context.Context) ([]Record, error)
}

// HTTPSource reads records from a JSON endpoint.
type HTTPSource struct {
	URL        string
	HTTPClient *http.Client
}

// NewHTTPSource creates a source for the given URL with a bounded timeout.
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		URL:        strings.TrimRight(url, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Fetch performs a GET against the source URL.
func (s *HTTPSource) Fetch(ctx context.Context) ([]Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid inventory url: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := s.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inventory request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("inventory api error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory response: %w", err)
	}
	return DecodeRecords(body)
}

// DecodeRecords accepts either a bare JSON array of records or an object
// carrying them under "items" or "InventoryItem".
func DecodeRecords(data []byte) ([]Record, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	if data[0] == '[' {
		var out []Record
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("failed to decode inventory: %w", err)
		}
		return out, nil
	}
	var wrapped struct {
		Items         []Record `json:"items"`
		InventoryItem []Record `json:"InventoryItem"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode inventory: %w", err)
	}
	if len(wrapped.Items) > 0 {
		return wrapped.Items, nil
	}
	return wrapped.InventoryItem, nil
}

// FileSource reads records from a JSON snapshot on disk.
type FileSource struct {
	Path string
}

// Fetch reads and decodes the snapshot file.
func (s FileSource) Fetch(ctx context.Context) ([]Record, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}
	return DecodeRecords(data)
}

// DefaultSnapshotPath returns ~/.subtrack/inventory.json.
func DefaultSnapshotPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".subtrack", "inventory.json"), nil
}

// SaveSnapshot writes records to path as indented JSON, creating parent
// directories when needed.
func SaveSnapshot(path string, records []Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// StaticSource serves a fixed set of records.
type StaticSource []Record

// Fetch returns the records.
func (s StaticSource) Fetch(context.Context) ([]Record, error) {
	return s, nil
}
