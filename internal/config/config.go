package config

import "time"

const (
	// RPM grid
	RPMMin  = 500
	RPMMax  = 20000
	RPMStep = 250

	// Timing bounds (degrees BTDC)
	TimingMin     = 0.0
	TimingMax     = 60.0 // Upper bound accepted for the pickup cap
	DefaultPickup = 35.0
	TimingNudge   = 0.5 // +/- step for keyboard edits

	DefaultLimiter = 14000

	// AFR history and overlay resolution
	HistoryStep = 100 // Live RPM is recorded into 100-RPM cells
	ZoneStep    = 500 // Coarse overlay buckets

	// Live signal
	LiveSpeedRPM     = 4000.0 // Target sweep speed in RPM per second
	LiveEase         = 0.18   // Exponential smoothing factor for the visual marker
	LiveSnapTol      = 25.0   // Within this many RPM of a bound the marker snaps onto it
	MinFrameDelta    = time.Millisecond
	MaxFrameDelta    = 250 * time.Millisecond
	AFRInterval      = 80 * time.Millisecond
	RPMInterval      = 80 * time.Millisecond
	AFRSafeMin       = 11.5
	AFRSafeMax       = 17.5
	AFRStoich        = 14.7
	AFRTraceCapacity = 120

	// Canvas geometry (logical pixels)
	CellWidthPx    = 8  // One terminal column in logical pixels
	CellHeightPx   = 16 // One terminal row in logical pixels
	HitRadiusMouse = 10.0
	HitRadiusTouch = 22.0
	MinPlotPx      = 2.0 // Rects this small or smaller are degenerate

	PlotMarginLeft   = 40.0
	PlotMarginRight  = 12.0
	PlotMarginTop    = 16.0
	PlotMarginBottom = 32.0

	// App
	TargetFPS      = 30
	StatusInterval = 3 * time.Second
	NoticeTTL      = 3 * time.Second

	AppName    = "CDI-TUNER"
	AppVersion = "1.0"
)
