// Package device talks to the CDI box over its HTTP API and provides the
// simulated and null stand-ins used when no box is reachable.
package device

import (
	"context"
	"errors"

	"cdi-tuner.klederson.com/internal/curve"
)

var (
	ErrUnreachable = errors.New("device: unreachable")
	ErrUnsupported = errors.New("device: endpoint not supported")
	ErrRejected    = errors.New("device: request rejected")
	ErrMalformed   = errors.New("device: malformed response")
)

// Status is the device heartbeat.
type Status struct {
	Online        bool `json:"online"`
	EngineRunning bool `json:"engineRunning"`
	ActiveProfile int  `json:"activeProfile"`
}

// SendResult is the device answer to a map upload.
type SendResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// Peer is a device announced by another device's /scan endpoint.
type Peer struct {
	Host string `json:"host"`
	Name string `json:"name"`
}

// ScanResponse is the body of GET /scan.
type ScanResponse struct {
	Devices []Peer `json:"devices"`
}

// Transport is everything the tuner needs from a CDI box. Every call may
// block on the network and must honor ctx.
type Transport interface {
	Name() string
	Status(ctx context.Context) (Status, error)
	ReadMap(ctx context.Context) (curve.Payload, error)
	SendMap(ctx context.Context, p curve.Payload) (SendResult, error)
	LiveRPM(ctx context.Context) (float64, error)
	LiveAFR(ctx context.Context, rpm int) (float64, error)
}

// Null is the transport used when no device is selected.
type Null struct{}

func (Null) Name() string { return "none" }

func (Null) Status(context.Context) (Status, error) { return Status{}, nil }

func (Null) ReadMap(context.Context) (curve.Payload, error) {
	return curve.Payload{}, ErrUnreachable
}

func (Null) SendMap(context.Context, curve.Payload) (SendResult, error) {
	return SendResult{Reason: "no device selected"}, ErrUnreachable
}

func (Null) LiveRPM(context.Context) (float64, error) { return 0, ErrUnsupported }

func (Null) LiveAFR(context.Context, int) (float64, error) { return 0, ErrUnsupported }

// Fallback answers live AFR requests from Backup when Primary fails.
// Live RPM, status and map transfers always come from Primary, so a dead
// device's RPM feed surfaces as an error instead of a simulated reading.
type Fallback struct {
	Primary Transport
	Backup  Transport
}

func (f *Fallback) Name() string { return f.Primary.Name() }

func (f *Fallback) Status(ctx context.Context) (Status, error) { return f.Primary.Status(ctx) }

func (f *Fallback) ReadMap(ctx context.Context) (curve.Payload, error) {
	return f.Primary.ReadMap(ctx)
}

func (f *Fallback) SendMap(ctx context.Context, p curve.Payload) (SendResult, error) {
	return f.Primary.SendMap(ctx, p)
}

func (f *Fallback) LiveRPM(ctx context.Context) (float64, error) {
	return f.Primary.LiveRPM(ctx)
}

func (f *Fallback) LiveAFR(ctx context.Context, rpm int) (float64, error) {
	if v, err := f.Primary.LiveAFR(ctx, rpm); err == nil {
		return v, nil
	}
	return f.Backup.LiveAFR(ctx, rpm)
}
