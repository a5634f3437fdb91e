package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"cdi-tuner.klederson.com/internal/curve"
	"cdi-tuner.klederson.com/internal/device"
	"cdi-tuner.klederson.com/internal/grid"
)

// Op is a device operation that blocks its own trigger while running.
type Op int

const (
	OpNone Op = iota
	OpRead
	OpSend
)

func (o Op) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpSend:
		return "send"
	}
	return "none"
}

// ErrBusy is returned when a read or send is already running.
var ErrBusy = errors.New("session: device operation in progress")

// ErrInput is returned for table input that cannot be parsed.
var ErrInput = errors.New("session: invalid number")

// Busy returns the running operation.
func (s *Session) Busy() Op {
	return s.busy
}

// BeginRead claims the device for a read.
func (s *Session) BeginRead() error {
	if s.busy != OpNone {
		return fmt.Errorf("%w: %s", ErrBusy, s.busy)
	}
	s.busy = OpRead
	return nil
}

// ApplyRead releases the read claim and replaces every map with p. On any
// error the local maps are left exactly as they were.
func (s *Session) ApplyRead(p curve.Payload, err error) error {
	if s.busy == OpRead {
		s.busy = OpNone
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("read failed")
		return fmt.Errorf("read map: %w", err)
	}
	if err := s.Set.Apply(p); err != nil {
		s.log.Warn().Err(err).Msg("read rejected")
		return fmt.Errorf("read map: %w", err)
	}
	if s.drag != nil {
		s.drag.Reset(s.Set)
	}
	s.log.Info().Int("maps", len(p.Maps)).Float64("pickup", s.Set.Pickup).Msg("map read")
	return nil
}

// BeginSend claims the device for a send and returns the payload to push.
func (s *Session) BeginSend() (curve.Payload, error) {
	if s.busy != OpNone {
		return curve.Payload{}, fmt.Errorf("%w: %s", ErrBusy, s.busy)
	}
	s.busy = OpSend
	return s.Set.Payload(), nil
}

// FinishSend releases the send claim and turns the outcome into an error.
func (s *Session) FinishSend(res device.SendResult, err error) error {
	if s.busy == OpSend {
		s.busy = OpNone
	}
	if err == nil && !res.OK {
		err = fmt.Errorf("%w: %s", device.ErrRejected, res.Reason)
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("send failed")
		return fmt.Errorf("send map: %w", err)
	}
	s.log.Info().Msg("map sent")
	return nil
}

// Read fetches the device map and applies it.
func (s *Session) Read(ctx context.Context) error {
	if err := s.BeginRead(); err != nil {
		return err
	}
	p, err := s.transport.ReadMap(ctx)
	return s.ApplyRead(p, err)
}

// Send pushes the local maps to the device.
func (s *Session) Send(ctx context.Context) error {
	p, err := s.BeginSend()
	if err != nil {
		return err
	}
	res, err := s.transport.SendMap(ctx, p)
	return s.FinishSend(res, err)
}

func parseNumber(text string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInput, text)
	}
	return v, nil
}

// MoveCursor moves the table cursor by delta samples.
func (s *Session) MoveCursor(delta int) {
	s.Cursor = grid.ClampIndex(s.Cursor + delta)
}

// NudgeCursor adds delta degrees at the cursor of the active map.
func (s *Session) NudgeCursor(delta float64) (float64, bool) {
	return s.Set.Nudge(s.Set.Active, s.Cursor, delta)
}

// EditCursor sets the value at the cursor from user text. Out of range
// values are clamped; unparsable text leaves the value unchanged.
func (s *Session) EditCursor(text string) (float64, error) {
	v, err := parseNumber(text)
	if err != nil {
		return s.Set.ActiveMap().Curve[s.Cursor], err
	}
	got, ok := s.Set.SetValue(s.Set.Active, s.Cursor, v)
	if !ok {
		return got, fmt.Errorf("%d rpm is past the limiter", grid.RPM(s.Cursor))
	}
	return got, nil
}

// EditPickup sets the shared timing cap from user text.
func (s *Session) EditPickup(text string) (float64, error) {
	v, err := parseNumber(text)
	if err != nil {
		return s.Set.Pickup, err
	}
	s.Set.SetPickup(v)
	return s.Set.Pickup, nil
}

// EditLimiter sets the active map's limiter from user text.
func (s *Session) EditLimiter(text string) (int, error) {
	v, err := parseNumber(text)
	if err != nil {
		return s.Set.ActiveMap().Limiter, err
	}
	s.Set.SetLimiter(s.Set.Active, v)
	return s.Set.ActiveMap().Limiter, nil
}

// CycleMap makes the next map active.
func (s *Session) CycleMap() int {
	if s.drag != nil {
		s.drag.Reset(s.Set)
	}
	s.Set.CycleActive()
	return s.Set.Active
}
