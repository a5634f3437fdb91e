package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"github.com/rs/zerolog"

	"cdi-tuner.klederson.com/internal/config"
	"cdi-tuner.klederson.com/internal/device"
	"cdi-tuner.klederson.com/internal/drag"
	"cdi-tuner.klederson.com/internal/grid"
	"cdi-tuner.klederson.com/internal/plot"
	"cdi-tuner.klederson.com/internal/session"
	"cdi-tuner.klederson.com/internal/store"
	"cdi-tuner.klederson.com/internal/ui"
)

// shared holds state shared between the Bubble Tea model copies and main.go.
// Because Bubble Tea uses value receivers, pointer fields ensure all copies
// see the same underlying data. It is also the drag surface: the plot
// geometry of the last View is what pointer events are resolved against.
type shared struct {
	ctx    context.Context
	cancel context.CancelFunc

	sess     *session.Session
	drag     *drag.Controller
	renderer *plot.Renderer
	main     *plot.CellCanvas
	detail   *plot.CellCanvas
	prober   *device.Prober
	store    *store.File
	dial     func(host string) device.Transport

	mapper   plot.Mapper
	mapperOK bool
	scroll   bool
	captured int
	redraws  int
}

func (s *shared) Mapper() (plot.Mapper, bool) { return s.mapper, s.mapperOK }

func (s *shared) SetScrollEnabled(enabled bool) { s.scroll = enabled }

func (s *shared) CapturePointer(id int) { s.captured = id }

func (s *shared) ReleasePointer(id int) {
	if s.captured == id {
		s.captured = -1
	}
}

func (s *shared) Redraw() { s.redraws++ }

type editField int

const (
	editNone editField = iota
	editValue
	editPickup
	editLimiter
	editHost
)

func (f editField) String() string {
	switch f {
	case editValue:
		return "advance"
	case editPickup:
		return "pickup"
	case editLimiter:
		return "limiter"
	case editHost:
		return "host"
	}
	return ""
}

// Options wires a Model.
type Options struct {
	Session *session.Session
	Host    string
	Store   *store.File
	// Dial builds the transport for a host typed in the TUI.
	Dial   func(host string) device.Transport
	Prober *device.Prober
	Log    zerolog.Logger
	Now    func() time.Time
}

// Model is the root Bubble Tea model of the tuner.
type Model struct {
	width  int
	height int

	host    string
	keys    keyMap
	help    help.Model
	input   textinput.Model
	editing editField

	log zerolog.Logger
	now func() time.Time

	shared *shared
}

// New creates the model. The session stays inactive until Init.
func New(opts Options) Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Session == nil {
		opts.Session = session.New(session.Options{Log: opts.Log})
	}
	ctx, cancel := context.WithCancel(context.Background())
	sh := &shared{
		ctx:      ctx,
		cancel:   cancel,
		sess:     opts.Session,
		renderer: plot.NewRenderer(),
		main:     plot.NewCellCanvas(),
		detail:   plot.NewCellCanvas(),
		prober:   opts.Prober,
		store:    opts.Store,
		dial:     opts.Dial,
		scroll:   true,
		captured: -1,
	}
	sh.drag = opts.Session.AttachSurface(sh)

	in := textinput.New()
	in.CharLimit = 64
	in.Prompt = "> "

	return Model{
		host:   opts.Host,
		keys:   defaultKeys(),
		help:   help.New(),
		input:  in,
		log:    opts.Log.With().Str("component", "app").Logger(),
		now:    opts.Now,
		shared: sh,
	}
}

// Session returns the session the model drives.
func (m Model) Session() *session.Session {
	return m.shared.sess
}

func (m Model) Init() tea.Cmd {
	epoch, _ := m.shared.sess.Activate()
	cmds := []tea.Cmd{statusCmd(m.shared.ctx, m.shared.sess.Transport(), epoch)}
	if m.host != "" && m.shared.prober != nil {
		cmds = append(cmds, probeCmd(m.shared.ctx, m.shared.prober, m.host))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	sess := m.shared.sess
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = m.layout().plotW - 4
		return m, nil

	case tea.KeyMsg:
		if m.editing != editNone {
			return m.handleEditKey(msg)
		}
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case FrameMsg:
		if !sess.Frame(msg.Epoch, msg.At) {
			return m, nil
		}
		cmds := []tea.Cmd{frameCmd(msg.Epoch)}
		if req, ok := sess.BeginAFR(msg.At); ok {
			cmds = append(cmds, afrCmd(m.shared.ctx, sess.Transport(), req))
		}
		if sess.BeginRPM(msg.At) {
			cmds = append(cmds, rpmCmd(m.shared.ctx, sess.Transport()))
		}
		return m, tea.Batch(cmds...)

	case AFRMsg:
		sess.CompleteAFR(msg.Req, msg.Value, msg.Err, msg.At)
		return m, nil

	case RPMMsg:
		sess.CompleteRPM(msg.Value, msg.Err)
		return m, nil

	case StatusTickMsg:
		if !sess.StatusDue(msg.Epoch) {
			return m, nil
		}
		return m, statusCmd(m.shared.ctx, sess.Transport(), msg.Epoch)

	case StatusMsg:
		if !sess.StatusDue(msg.Epoch) {
			return m, nil
		}
		sess.CompleteStatus(msg.Status, msg.Err)
		return m, statusTickCmd(msg.Epoch)

	case ReadMsg:
		if err := sess.ApplyRead(msg.Payload, msg.Err); err != nil {
			return m, m.notify(session.NoticeError, describe(err))
		}
		return m, m.notify(session.NoticeSuccess, "Map read from device")

	case SendMsg:
		if err := sess.FinishSend(msg.Result, msg.Err); err != nil {
			return m, m.notify(session.NoticeError, describe(err))
		}
		return m, m.notify(session.NoticeSuccess, "Map sent to device")

	case ProbeMsg:
		if msg.Host != m.host {
			return m, nil
		}
		if !msg.Result.Reachable {
			return m, m.notify(session.NoticeError, fmt.Sprintf("%s is not answering", msg.Host))
		}
		return m, m.notify(session.NoticeInfo, fmt.Sprintf("%s reachable (%s %s)",
			msg.Host, msg.Result.Method, msg.Result.RTT.Round(time.Millisecond)))

	case NoticeExpiredMsg:
		sess.ExpireNotice(time.Time(msg))
		return m, nil
	}

	if m.editing != editNone {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sess := m.shared.sess
	switch {
	case key.Matches(msg, m.keys.Quit):
		sess.Deactivate()
		m.shared.cancel()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Read):
		return m, m.startRead()
	case key.Matches(msg, m.keys.Send):
		return m, m.startSend()
	case key.Matches(msg, m.keys.Live):
		return m, m.toggleLive()
	case key.Matches(msg, m.keys.Overlay):
		sess.ToggleOverlay()
	case key.Matches(msg, m.keys.Panel):
		sess.TogglePanel()
	case key.Matches(msg, m.keys.Cancel):
		sess.SetPanel(false)
	case key.Matches(msg, m.keys.Map):
		sess.CycleMap()
	case key.Matches(msg, m.keys.Variant):
		return m, m.toggleVariant()
	case key.Matches(msg, m.keys.Up):
		sess.MoveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		sess.MoveCursor(1)
	case key.Matches(msg, m.keys.PageUp):
		sess.MoveCursor(-10)
	case key.Matches(msg, m.keys.PageDown):
		sess.MoveCursor(10)
	case key.Matches(msg, m.keys.Inc):
		return m, m.nudge(config.TimingNudge)
	case key.Matches(msg, m.keys.Dec):
		return m, m.nudge(-config.TimingNudge)
	case key.Matches(msg, m.keys.Edit):
		m = m.startEdit(editValue, strconv.FormatFloat(sess.Set.ActiveMap().Curve[sess.Cursor], 'f', 1, 64))
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Pickup):
		m = m.startEdit(editPickup, strconv.FormatFloat(sess.Set.Pickup, 'f', 1, 64))
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Limiter):
		m = m.startEdit(editLimiter, strconv.Itoa(sess.Set.ActiveMap().Limiter))
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Host):
		m = m.startEdit(editHost, m.host)
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Clear):
		sess.ClearHistory()
		return m, m.notify(session.NoticeInfo, "AFR history cleared")
	case key.Matches(msg, m.keys.ZoomIn):
		sess.View = sess.View.Zoom(sess.Cursor, 0.5)
	case key.Matches(msg, m.keys.ZoomOut):
		sess.View = sess.View.Zoom(sess.Cursor, 2)
	case key.Matches(msg, m.keys.PanLeft):
		sess.View = sess.View.Pan(-(sess.View.Hi - sess.View.Lo) / 4)
	case key.Matches(msg, m.keys.PanRight):
		sess.View = sess.View.Pan((sess.View.Hi - sess.View.Lo) / 4)
	case key.Matches(msg, m.keys.Reset):
		sess.View = plot.FullView()
	}
	return m, nil
}

func (m Model) startEdit(f editField, value string) Model {
	m.editing = f
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Placeholder = f.String()
	m.input.Focus()
	return m
}

func (m Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Apply):
		field, text := m.editing, m.input.Value()
		m.editing = editNone
		m.input.Blur()
		return m.applyEdit(field, text)
	case key.Matches(msg, m.keys.Cancel):
		m.editing = editNone
		m.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) applyEdit(f editField, text string) (tea.Model, tea.Cmd) {
	sess := m.shared.sess
	var err error
	switch f {
	case editValue:
		_, err = sess.EditCursor(text)
	case editPickup:
		_, err = sess.EditPickup(text)
	case editLimiter:
		_, err = sess.EditLimiter(text)
	case editHost:
		return m.setHost(text)
	}
	if err != nil {
		return m, m.notify(session.NoticeError, fmt.Sprintf("%s not changed: %v", f, err))
	}
	return m, nil
}

func (m Model) setHost(text string) (tea.Model, tea.Cmd) {
	norm, err := store.NormalizeHost(text)
	if err != nil {
		return m, m.notify(session.NoticeError, describe(err))
	}
	if m.shared.store != nil {
		if _, err := m.shared.store.SetLastHost(norm); err != nil {
			m.log.Warn().Err(err).Msg("persist host")
		}
	}
	m.host = norm
	if m.shared.dial != nil {
		m.shared.sess.SetTransport(m.shared.dial(norm))
	}
	cmds := []tea.Cmd{m.notify(session.NoticeInfo, "Device set to "+norm)}
	if m.shared.prober != nil {
		cmds = append(cmds, probeCmd(m.shared.ctx, m.shared.prober, norm))
	}
	return m, tea.Batch(cmds...)
}

func (m Model) startRead() tea.Cmd {
	sess := m.shared.sess
	if err := sess.BeginRead(); err != nil {
		return m.notify(session.NoticeError, describe(err))
	}
	return tea.Batch(readCmd(m.shared.ctx, sess.Transport()), m.notify(session.NoticeInfo, "Reading map..."))
}

func (m Model) startSend() tea.Cmd {
	sess := m.shared.sess
	p, err := sess.BeginSend()
	if err != nil {
		return m.notify(session.NoticeError, describe(err))
	}
	return tea.Batch(sendCmd(m.shared.ctx, sess.Transport(), p), m.notify(session.NoticeInfo, "Sending map..."))
}

func (m Model) toggleLive() tea.Cmd {
	sess := m.shared.sess
	if sess.Live() {
		sess.StopLive()
		return nil
	}
	return frameCmd(sess.StartLive(m.now()))
}

func (m Model) toggleVariant() tea.Cmd {
	sess := m.shared.sess
	next := config.VariantDual
	if sess.Variant == config.VariantDual {
		next = config.VariantBasic
	}
	epoch, started := sess.SwitchVariant(next)
	cmds := []tea.Cmd{m.notify(session.NoticeInfo, fmt.Sprintf("Switched to %s (%d maps)", next, next.MapCount()))}
	if started {
		cmds = append(cmds, statusCmd(m.shared.ctx, sess.Transport(), epoch))
	}
	return tea.Batch(cmds...)
}

func (m Model) nudge(delta float64) tea.Cmd {
	sess := m.shared.sess
	if _, ok := sess.NudgeCursor(delta); !ok {
		return m.notify(session.NoticeError, fmt.Sprintf("%d rpm is past the limiter", grid.RPM(sess.Cursor)))
	}
	return nil
}

func (m Model) notify(kind session.NoticeKind, text string) tea.Cmd {
	m.shared.sess.Notify(kind, text, m.now(), config.NoticeTTL)
	return tea.Tick(config.NoticeTTL, func(t time.Time) tea.Msg {
		return NoticeExpiredMsg(t)
	})
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing CDI tuner..."
	}
	sess := m.shared.sess
	lay := m.layout()

	scene := sess.Scene()
	vp := plot.CellViewport(lay.canvasCols, lay.canvasRows)
	mp, ok := m.shared.renderer.DrawMain(m.shared.main, vp, scene)
	m.shared.mapper, m.shared.mapperOK = mp, ok
	canvas := m.shared.main.String()
	if !ok {
		canvas = ui.StyleHelp.Render("plot area too small")
	}

	title := fmt.Sprintf("IGNITION MAP %d/%d  pickup %.1f deg  limiter %d rpm",
		sess.Set.Active+1, len(sess.Set.Maps), sess.Set.Pickup, sess.Set.ActiveMap().Limiter)
	plotPanel := ui.RenderPlotPanel(lay.plotW, lay.bodyH, title, canvas, m.footer())

	var side string
	if sess.Panel() {
		side = m.renderDetail(lay)
	} else {
		liveRow := -1
		if sess.Live() {
			liveRow = grid.Nearest(sess.Sim.Visual)
		}
		side = ui.RenderTablePanel(sess.Set, lay.sideW, lay.bodyH, ui.TableState{Cursor: sess.Cursor, LiveRow: liveRow})
	}

	menu := ui.RenderMenuBar(m.width, ui.MenuState{
		Variant:  sess.Variant,
		Active:   sess.Set.Active,
		Maps:     len(sess.Set.Maps),
		Live:     sess.Live(),
		Overlay:  sess.Overlay(),
		Panel:    sess.Panel(),
		Busy:     busyLabel(sess.Busy()),
		HostName: m.hostLabel(),
	})

	st := sess.Status()
	afr, hasAFR := sess.AFR()
	info := ui.StatusInfo{
		Online:  st.Online,
		Engine:  st.EngineRunning,
		Profile: device.ProfileName(st.ActiveProfile),
		Live:    sess.Live(),
		RPM:     sess.Sim.RPM(),
		AFR:     afr,
		HasAFR:  hasAFR,
		Cells:   sess.History.Len(),
	}
	if n, ok := sess.Notice(m.now()); ok {
		info.Notice = n.Text
		info.IsError = n.Kind == session.NoticeError
	}
	status := ui.RenderStatusBar(m.width, info)

	return zone.Scan(ui.ComposeLayout(menu, plotPanel, side, status))
}

func (m Model) renderDetail(lay layout) string {
	sess := m.shared.sess
	afr, hasAFR := sess.AFR()
	d := ui.DetailInfo{
		Live:    sess.Live(),
		RPM:     sess.Sim.Visual,
		AFR:     afr,
		HasAFR:  hasAFR,
		Timing:  sess.Set.TimingAt(sess.Set.Active, sess.Sim.Visual),
		Limiter: sess.Set.ActiveMap().Limiter,
		Cells:   sess.History.Len(),
		Trace:   sess.Trace.Values(),
	}
	vp := plot.CellViewport(lay.sideW-4, detailRows)
	if m.shared.renderer.DrawDetail(m.shared.detail, vp, sess.Scene()) {
		d.Canvas = m.shared.detail.String()
	}
	return ui.RenderDetailPanel(d, lay.sideW, lay.bodyH)
}

func (m Model) footer() string {
	if m.editing != editNone {
		return ui.StyleInput.Render(m.editing.String()+" ") + m.input.View()
	}
	return m.help.View(m.keys)
}

func (m Model) hostLabel() string {
	if m.host == "" {
		return m.shared.sess.Transport().Name()
	}
	return m.host
}

func busyLabel(op session.Op) string {
	if op == session.OpNone {
		return ""
	}
	return op.String()
}

const detailRows = 7

// layout is the screen geometry shared by View and mouse handling.
type layout struct {
	plotW, sideW, bodyH    int
	canvasCols, canvasRows int
	originX, originY       int // Screen cell of canvas cell (0, 0)
}

func (m Model) layout() layout {
	bodyH := max(m.height-2, 8)
	sideW := 38
	if m.width < 100 {
		sideW = max(26, m.width/3)
	}
	plotW := max(m.width-sideW, 20)

	footerH := 1
	if m.editing == editNone {
		footerH = lipgloss.Height(m.help.View(m.keys))
	}
	return layout{
		plotW:      plotW,
		sideW:      sideW,
		bodyH:      bodyH,
		canvasCols: plotW - 2,
		canvasRows: max(bodyH-3-footerH, 0),
		originX:    1,
		originY:    3, // menu bar, border, title
	}
}

// describe turns an error into a one-line notice.
func describe(err error) string {
	if device.IsOffline(err) {
		return "Device unreachable, local map unchanged"
	}
	return err.Error()
}
