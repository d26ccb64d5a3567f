package infer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/arjunmahishi/rsdoc/types"
)

// maxResponseBytes caps how much of an inference response is read.
const maxResponseBytes = 1 << 20

// HTTP posts descriptors as JSON to an external inference service.
//
// Request body:  {"item_kind", "name", "signature_text", "field_names", "is_unsafe", "is_public"}
// Response body: {"summary", "sections": [{"heading", "lines"}]}
//
// A 204 status or a response with "refused" set is reported as ErrRefused.
type HTTP struct {
	Endpoint string
	Client   *http.Client
}

// NewHTTP creates an adapter for the given endpoint.
func NewHTTP(endpoint string, client *http.Client) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{Endpoint: endpoint, Client: client}
}

func (h *HTTP) Infer(ctx context.Context, d types.Descriptor) (types.DocBlock, error) {
	body, err := json.Marshal(d)
	if err != nil {
		return types.DocBlock{}, fmt.Errorf("encode descriptor: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.Endpoint, bytes.NewReader(body))
	if err != nil {
		return types.DocBlock{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := h.Client.Do(req)
	if err != nil {
		return types.DocBlock{}, fmt.Errorf("inference request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return types.DocBlock{}, ErrRefused
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return types.DocBlock{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return types.DocBlock{}, fmt.Errorf("inference service returned %s", resp.Status)
	}

	var out Response
	if err := json.Unmarshal(data, &out); err != nil {
		return types.DocBlock{}, fmt.Errorf("decode response: %w", err)
	}
	if out.Refused {
		return types.DocBlock{}, ErrRefused
	}
	if out.Error != "" {
		return types.DocBlock{}, errors.New(out.Error)
	}
	return out.Block(), nil
}
