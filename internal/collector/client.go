package collector

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// CatalogClient fetches the raw offer catalog from an HTTP endpoint
type CatalogClient struct {
	client *resty.Client
	url    string
}

// NewCatalogClient creates a catalog client for url
func NewCatalogClient(url string, timeout time.Duration, retries int) *CatalogClient {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(retries)
	client.SetRetryWaitTime(500 * time.Millisecond)
	client.SetHeader("Accept", "application/json, text/csv")
	return &CatalogClient{client: client, url: url}
}

// Fetch downloads the catalog and decodes it into untyped items. JSON bodies
// must be an array of objects; CSV bodies carry a header row.
func (c *CatalogClient) Fetch(ctx context.Context) ([]map[string]interface{}, error) {
	resp, err := c.client.R().SetContext(ctx).Get(c.url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("catalog request failed: %s", resp.Status())
	}

	contentType := strings.ToLower(resp.Header().Get("Content-Type"))
	if strings.Contains(contentType, "csv") || strings.HasSuffix(strings.ToLower(c.url), ".csv") {
		return decodeCSV(resp.Body())
	}
	return decodeJSON(resp.Body())
}

func decodeJSON(body []byte) ([]map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var items []map[string]interface{}
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to parse catalog json: %w", err)
	}
	return items, nil
}

func decodeCSV(body []byte) ([]map[string]interface{}, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return []map[string]interface{}{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	var items []map[string]interface{}
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog csv: %w", err)
		}
		item := make(map[string]interface{}, len(header))
		for i, col := range header {
			if i < len(row) && row[i] != "" {
				item[col] = row[i]
			}
		}
		items = append(items, item)
	}
	return items, nil
}
