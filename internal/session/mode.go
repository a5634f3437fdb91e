package session

import "time"

// The coarse AFR overlay and the detail panel's centered AFR readout never
// render together. Enabling the overlay suppresses the readout; opening the
// panel turns the overlay off. The recorded history is never touched.

// SetOverlay turns the coarse AFR overlay on or off. Turning it off drops
// the zones, which are only meaningful while it is shown.
func (s *Session) SetOverlay(on bool) {
	if on == s.overlay {
		return
	}
	s.overlay = on
	if !on {
		s.Zones.Clear()
	}
}

// ToggleOverlay flips the overlay.
func (s *Session) ToggleOverlay() bool {
	s.SetOverlay(!s.overlay)
	return s.overlay
}

// Overlay reports whether the coarse overlay is shown.
func (s *Session) Overlay() bool {
	return s.overlay
}

// SetPanel opens or closes the AFR detail panel.
func (s *Session) SetPanel(open bool) {
	if open == s.panel {
		return
	}
	s.panel = open
	if open {
		s.SetOverlay(false)
	}
}

// TogglePanel flips the detail panel.
func (s *Session) TogglePanel() bool {
	s.SetPanel(!s.panel)
	return s.panel
}

// Panel reports whether the detail panel is open.
func (s *Session) Panel() bool {
	return s.panel
}

// CenterText reports whether the large centered AFR readout is drawn.
func (s *Session) CenterText() bool {
	return s.panel && !s.overlay
}

// NoticeKind classifies a transient notice.
type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeSuccess
	NoticeError
)

// Notice is a transient status line message.
type Notice struct {
	Text  string
	Kind  NoticeKind
	Until time.Time
}

// Notify replaces the current notice. It expires ttl after now.
func (s *Session) Notify(kind NoticeKind, text string, now time.Time, ttl time.Duration) {
	s.notice = Notice{Text: text, Kind: kind, Until: now.Add(ttl)}
}

// Notice returns the notice still showing at now.
func (s *Session) Notice(now time.Time) (Notice, bool) {
	if s.notice.Text == "" || !now.Before(s.notice.Until) {
		return Notice{}, false
	}
	return s.notice, true
}

// ExpireNotice clears the notice if it has expired at now.
func (s *Session) ExpireNotice(now time.Time) bool {
	if s.notice.Text != "" && !now.Before(s.notice.Until) {
		s.notice = Notice{}
		return true
	}
	return false
}
