package device

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"cdi-tuner.klederson.com/internal/curve"
	"cdi-tuner.klederson.com/internal/grid"
)

const maxBody = 1 << 20

// Client is the HTTP transport for a real device.
type Client struct {
	base        string
	http        *http.Client
	timeout     time.Duration
	liveTimeout time.Duration
	log         zerolog.Logger
}

// NewClient creates a client for base ("http://host[:port]"). Map and
// status calls are bounded by timeout, live calls by liveTimeout.
func NewClient(base string, timeout, liveTimeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		base:        base,
		http:        &http.Client{},
		timeout:     timeout,
		liveTimeout: liveTimeout,
		log:         log.With().Str("component", "device").Str("host", base).Logger(),
	}
}

// Name returns the base URL.
func (c *Client) Name() string {
	return c.base
}

func (c *Client) do(ctx context.Context, timeout time.Duration, method, path string, body any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("path", path).Msg("request failed")
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()
	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).Msg("request")

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNotImplemented:
		return fmt.Errorf("%w: %s", ErrUnsupported, path)
	case resp.StatusCode >= 300 && !(resp.StatusCode == http.StatusBadRequest && method == http.MethodPost):
		return fmt.Errorf("%w: %s returned %s", ErrRejected, path, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	return nil
}

// Status fetches /status.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var st Status
	err := c.do(ctx, c.timeout, http.MethodGet, "/status", nil, &st)
	return st, err
}

// ReadMap fetches /map and checks every curve against the grid.
func (c *Client) ReadMap(ctx context.Context) (curve.Payload, error) {
	var p curve.Payload
	if err := c.do(ctx, c.timeout, http.MethodGet, "/map", nil, &p); err != nil {
		return curve.Payload{}, err
	}
	if err := CheckPayload(p); err != nil {
		return curve.Payload{}, err
	}
	return p, nil
}

// CheckPayload rejects payloads without maps or with curves that do not
// match the grid.
func CheckPayload(p curve.Payload) error {
	if len(p.Maps) == 0 {
		return fmt.Errorf("%w: %w", ErrMalformed, curve.ErrMapCount)
	}
	for i, m := range p.Maps {
		if len(m.Curve) != grid.Count {
			return fmt.Errorf("%w: map %d: %w", ErrMalformed, i, curve.ErrCurveLength)
		}
	}
	return nil
}

// SendMap posts the payload to /map. A device refusal returns the result
// together with ErrRejected.
func (c *Client) SendMap(ctx context.Context, p curve.Payload) (SendResult, error) {
	var res SendResult
	if err := c.do(ctx, c.timeout, http.MethodPost, "/map", p, &res); err != nil {
		return res, err
	}
	if !res.OK {
		return res, fmt.Errorf("%w: %s", ErrRejected, res.Reason)
	}
	return res, nil
}

// LiveRPM fetches /live-rpm.
func (c *Client) LiveRPM(ctx context.Context) (float64, error) {
	var raw json.RawMessage
	if err := c.do(ctx, c.liveTimeout, http.MethodGet, "/live-rpm", nil, &raw); err != nil {
		return 0, err
	}
	return decodeReading(raw, "rpm")
}

// LiveAFR fetches /live-afr for the given rpm.
func (c *Client) LiveAFR(ctx context.Context, rpm int) (float64, error) {
	var raw json.RawMessage
	path := "/live-afr?rpm=" + strconv.Itoa(rpm)
	if err := c.do(ctx, c.liveTimeout, http.MethodGet, path, nil, &raw); err != nil {
		return 0, err
	}
	return decodeReading(raw, "afr")
}

// Peers fetches the devices known to this one.
func (c *Client) Peers(ctx context.Context) ([]Peer, error) {
	var res ScanResponse
	err := c.do(ctx, c.timeout, http.MethodGet, "/scan", nil, &res)
	return res.Devices, err
}

// decodeReading accepts either a bare number or an object holding the
// number under key.
func decodeReading(raw json.RawMessage, key string) (float64, error) {
	var v float64
	if err := json.Unmarshal(raw, &v); err == nil {
		return v, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	field, ok := obj[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing %q", ErrMalformed, key)
	}
	if err := json.Unmarshal(field, &v); err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrMalformed, key, err)
	}
	return v, nil
}

// IsOffline reports whether err means the device could not be reached.
func IsOffline(err error) bool {
	return errors.Is(err, ErrUnreachable)
}
