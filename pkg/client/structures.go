package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Diagram is a rendered structure image.
type Diagram struct {
	PNG     []byte
	Cached  bool
	Attempt string
}

// RenderError reports a notation the server could not draw.
type RenderError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Phase   string `json:"phase"`
	Reason  string `json:"reason"`
	SMILES  string `json:"smiles"`
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("dti: %s: %s (%s)", e.Code, e.Message, e.SMILES)
}

// StructuresClient fetches structure diagrams.
type StructuresClient struct {
	client *Client
}

// Render draws smiles. Zero width or height selects the server default.
func (s *StructuresClient) Render(ctx context.Context, smiles string, width, height int) (*Diagram, error) {
	q := url.Values{"smiles": {smiles}}
	if width > 0 {
		q.Set("width", strconv.Itoa(width))
	}
	if height > 0 {
		q.Set("height", strconv.Itoa(height))
	}

	raw, err := s.client.send(ctx, http.MethodGet, "/api/v1/structures/render?"+q.Encode(), nil, "image/png",
		func(status int, body []byte) error {
			if status != http.StatusUnprocessableEntity {
				return nil
			}
			var re RenderError
			if json.Unmarshal(body, &re) != nil || re.Reason == "" {
				return nil
			}
			return &re
		})
	if err != nil {
		return nil, err
	}
	return &Diagram{
		PNG:     raw.body,
		Cached:  raw.header.Get("X-Diagram-Cache") == "hit",
		Attempt: raw.header.Get("X-Render-Attempt"),
	}, nil
}

//Personal.AI order the ending
