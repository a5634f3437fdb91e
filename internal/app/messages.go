package app

import (
	"time"

	"cdi-tuner.klederson.com/internal/curve"
	"cdi-tuner.klederson.com/internal/device"
	"cdi-tuner.klederson.com/internal/session"
)

// FrameMsg is one animation frame of the live chain started at Epoch.
type FrameMsg struct {
	Epoch uint64
	At    time.Time
}

// StatusTickMsg asks for the next status poll of a polling epoch.
type StatusTickMsg struct {
	Epoch uint64
}

// StatusMsg carries a status poll result.
type StatusMsg struct {
	Epoch  uint64
	Status device.Status
	Err    error
}

// AFRMsg carries a live AFR reading.
type AFRMsg struct {
	Req   session.AFRRequest
	Value float64
	Err   error
	At    time.Time
}

// RPMMsg carries a live RPM reading.
type RPMMsg struct {
	Value float64
	Err   error
}

// ReadMsg carries the map read from the device.
type ReadMsg struct {
	Payload curve.Payload
	Err     error
}

// SendMsg carries the outcome of a map send.
type SendMsg struct {
	Result device.SendResult
	Err    error
}

// ProbeMsg reports whether the selected host answers.
type ProbeMsg struct {
	Host   string
	Result device.Reachability
}

// NoticeExpiredMsg clears a transient notice.
type NoticeExpiredMsg time.Time
