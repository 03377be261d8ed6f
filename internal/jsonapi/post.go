package jsonapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Response is an answer in the {data, error, message} envelope that both
// the donation backend and the QRIS gateway use.
type Response struct {
	StatusCode int
	Data       json.RawMessage
	Error      string
	Message    string

	decodeErr error
}

func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

// Post sends body as JSON with the extra headers. A non-2xx answer is not
// an error here; callers turn it into their own error type.
func Post(ctx context.Context, hc *http.Client, url string, header http.Header, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var env struct {
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
		Message string          `json:"message"`
	}
	r := &Response{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(raw, &env); err != nil {
		r.decodeErr = err
	} else {
		r.Data, r.Error, r.Message = env.Data, env.Error, env.Message
	}
	return r, nil
}

// Decode unmarshals data into out and reports false when there is none.
func (r *Response) Decode(out any) (bool, error) {
	if r.decodeErr != nil {
		return false, fmt.Errorf("unmarshal response: %w", r.decodeErr)
	}
	if len(r.Data) == 0 || string(r.Data) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(r.Data, out); err != nil {
		return false, fmt.Errorf("unmarshal data: %w", err)
	}
	return true, nil
}
