package hotkeys

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/mousebind"
	"github.com/BurntSushi/xgbutil/xevent"
)

type grabKey struct {
	mods uint16
	code byte
}

// X11Source grabs each bound chord on the root window with XGrabKey (or
// XGrabButton for mouse buttons). Events arrive on the xevent main loop the
// platform backend runs.
type X11Source struct {
	xu     *xgbutil.XUtil
	root   xproto.Window
	logger *slog.Logger

	mu       sync.Mutex
	emit     func(KeyEvent)
	bound    []Chord
	keys     map[grabKey]Chord
	buttons  map[grabKey]Chord
	pressed  map[xproto.Keycode]string
	suppress map[xproto.Keycode]bool
	warned   map[Chord]bool
	closed   bool
}

var ignoreModsOnce sync.Once

// NewX11Source hooks key, button and mapping events on root.
func NewX11Source(xu *xgbutil.XUtil, root xproto.Window, logger *slog.Logger) *X11Source {
	if logger == nil {
		logger = slog.Default()
	}
	ignoreModsOnce.Do(func() {
		configureIgnoreMods(xu)
	})

	s := &X11Source{
		xu:       xu,
		root:     root,
		logger:   logger,
		keys:     make(map[grabKey]Chord),
		buttons:  make(map[grabKey]Chord),
		pressed:  make(map[xproto.Keycode]string),
		suppress: make(map[xproto.Keycode]bool),
		warned:   make(map[Chord]bool),
	}

	xevent.KeyPressFun(s.onKeyPress).Connect(xu, root)
	xevent.KeyReleaseFun(s.onKeyRelease).Connect(xu, root)
	xevent.ButtonPressFun(s.onButtonPress).Connect(xu, root)
	xevent.ButtonReleaseFun(s.onButtonRelease).Connect(xu, root)
	xevent.MappingNotifyFun(s.onMapping).Connect(xu, xevent.NoWindow)
	return s
}

func (s *X11Source) Name() string { return "x11" }

// Bind ungrabs the previous chords and grabs the new ones. Every chord that
// could not be grabbed is reported in the joined error; the rest stay active.
func (s *X11Source) Bind(chords []Chord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("x11 hotkey source closed")
	}
	s.ungrabLocked()
	s.bound = append([]Chord(nil), chords...)
	return s.grabLocked()
}

// Run stores emit and waits for ctx; delivery happens on the event loop.
func (s *X11Source) Run(ctx context.Context, emit func(KeyEvent)) error {
	s.mu.Lock()
	s.emit = emit
	s.mu.Unlock()

	<-ctx.Done()

	s.mu.Lock()
	s.emit = nil
	s.mu.Unlock()
	return ctx.Err()
}

// Close releases every grab.
func (s *X11Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.ungrabLocked()
	return nil
}

func (s *X11Source) grabLocked() error {
	var errs []error
	for _, chord := range s.bound {
		if err := s.grabChordLocked(chord); err != nil {
			if !s.warned[chord] {
				s.warned[chord] = true
				errs = append(errs, fmt.Errorf("%s: %w: %v", chord, ErrHotkeyGrabFailed, err))
			}
			continue
		}
		delete(s.warned, chord)
	}
	return errors.Join(errs...)
}

func (s *X11Source) grabChordLocked(chord Chord) error {
	spec := chord.xbindString()
	if chord.IsButton() {
		mods, button, err := mousebind.ParseString(s.xu, spec)
		if err != nil {
			return err
		}
		if err := mousebind.GrabChecked(s.xu, s.root, mods, button, false); err != nil {
			return err
		}
		s.buttons[grabKey{mods: mods, code: byte(button)}] = chord
		return nil
	}

	mods, codes, err := keybind.ParseString(s.xu, spec)
	if err != nil {
		return err
	}
	for _, code := range codes {
		if err := keybind.GrabChecked(s.xu, s.root, mods, code); err != nil {
			var access xproto.AccessError
			if errors.As(err, &access) {
				return fmt.Errorf("already grabbed by another client")
			}
			return err
		}
		s.keys[grabKey{mods: mods, code: byte(code)}] = chord
	}
	return nil
}

func (s *X11Source) ungrabLocked() {
	for k := range s.keys {
		keybind.Ungrab(s.xu, s.root, k.mods, xproto.Keycode(k.code))
	}
	for k := range s.buttons {
		mousebind.Ungrab(s.xu, s.root, k.mods, xproto.Button(k.code))
	}
	s.keys = make(map[grabKey]Chord)
	s.buttons = make(map[grabKey]Chord)
	s.pressed = make(map[xproto.Keycode]string)
	s.suppress = make(map[xproto.Keycode]bool)
}

func (s *X11Source) deliver(ev KeyEvent) {
	s.mu.Lock()
	emit := s.emit
	s.mu.Unlock()
	if emit != nil {
		emit(ev)
	}
}

func (s *X11Source) onKeyPress(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
	mods, code := keybind.DeduceKeyInfo(ev.State, ev.Detail)

	s.mu.Lock()
	chord, ok := s.keys[grabKey{mods: mods, code: byte(code)}]
	repeat := s.suppress[code]
	delete(s.suppress, code)
	if ok {
		s.pressed[code] = chord.Key
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	s.deliver(KeyEvent{Key: chord.Key, Mods: chord.Mods, Down: true, Repeat: repeat})
}

func (s *X11Source) onKeyRelease(xu *xgbutil.XUtil, ev xevent.KeyReleaseEvent) {
	// Auto-repeat shows up as a release immediately followed by a press with
	// the same keycode and timestamp.
	if s.isAutoRepeat(ev) {
		s.mu.Lock()
		s.suppress[ev.Detail] = true
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	key, ok := s.pressed[ev.Detail]
	delete(s.pressed, ev.Detail)
	s.mu.Unlock()
	if ok {
		s.deliver(KeyEvent{Key: key, Down: false})
	}
}

func (s *X11Source) isAutoRepeat(ev xevent.KeyReleaseEvent) bool {
	for _, queued := range xevent.Peek(s.xu) {
		if queued.Err != nil {
			continue
		}
		press, ok := queued.Event.(xproto.KeyPressEvent)
		if ok && press.Detail == ev.Detail && press.Time == ev.Time {
			return true
		}
	}
	return false
}

func (s *X11Source) onButtonPress(xu *xgbutil.XUtil, ev xevent.ButtonPressEvent) {
	mods, button := mousebind.DeduceButtonInfo(ev.State, ev.Detail)

	s.mu.Lock()
	chord, ok := s.buttons[grabKey{mods: mods, code: byte(button)}]
	s.mu.Unlock()
	if ok {
		s.deliver(KeyEvent{Key: chord.Key, Mods: chord.Mods, Down: true})
	}
}

func (s *X11Source) onButtonRelease(xu *xgbutil.XUtil, ev xevent.ButtonReleaseEvent) {
	s.deliver(KeyEvent{Key: fmt.Sprintf("Button%d", ev.Detail), Down: false})
}

// onMapping re-grabs after a keyboard mapping change, since keycodes may have
// moved.
func (s *X11Source) onMapping(xu *xgbutil.XUtil, ev xevent.MappingNotifyEvent) {
	if ev.Request != xproto.MappingKeyboard {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.ungrabLocked()
	if err := s.grabLocked(); err != nil {
		s.logger.Warn("hotkey re-grab after keyboard mapping change failed", "error", err)
	}
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	unique := make(map[uint16]struct{})
	add := func(mask uint16) {
		unique[mask] = struct{}{}
	}

	add(0)
	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}

	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		add(mask)
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}

	xevent.IgnoreMods = ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
