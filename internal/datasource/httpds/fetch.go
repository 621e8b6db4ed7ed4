package httpds

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"datapipe/internal/etlerr"
)

// FetchJSON GETs url and returns the body after checking it is valid JSON.
// Request failures come back as transport errors wrapping *RequestError;
// a body that is not JSON is a data error.
func (c *Client) FetchJSON(ctx context.Context, url string) (json.RawMessage, error) {
	const op = "httpds.FetchJSON"

	resp, err := c.Get(ctx, url, http.Header{"Accept": []string{"application/json"}})
	if err != nil {
		var re *RequestError
		if !errors.As(err, &re) {
			re = transportError(url, err)
		}
		return nil, etlerr.Transport(op, re)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, etlerr.Transport(op, statusError(url, resp.StatusCode))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, etlerr.Transport(op, transportError(url, err))
	}
	if !json.Valid(body) {
		return nil, etlerr.Data(op, fmt.Errorf("response from %s is not valid JSON", url))
	}
	log.Printf("httpds: fetched %s status=%d bytes=%d", url, resp.StatusCode, len(body))
	return json.RawMessage(body), nil
}

// Pretty re-indents raw JSON with two spaces, keeping key order.
func Pretty(raw json.RawMessage) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, etlerr.Data("httpds.Pretty", err)
	}
	return buf.Bytes(), nil
}
