//go:build linux

package hotkeys

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unsafe"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sys/unix"
)

// DefaultInputDir is where evdev device nodes live.
const DefaultInputDir = "/dev/input"

// Device filter values.
const (
	DeviceFilterAll  = "all"
	DeviceFilterAuto = "auto"
)

const (
	evKey        = 0x01
	evdevBtnSide = 0x113
	evdevKeyMax  = 0x2ff
)

var inputEventSize = int(unsafe.Sizeof(unix.Timeval{})) + 8

type inputEvent struct {
	Type  uint16
	Code  uint16
	Value int32
}

type deviceEvent struct {
	path string
	ev   inputEvent
}

// deviceLoss names the exact file a reader gave up on, so a late report
// cannot evict a newer open of the same node.
type deviceLoss struct {
	path string
	f    *os.File
}

// EvdevSource reads key events straight from /dev/input/event* devices. It
// does not take exclusive grabs, so keys still reach the focused window. The
// user needs read access to the device nodes (the input group).
type EvdevSource struct {
	dir    string
	filter string
	logger *slog.Logger

	mu      sync.Mutex
	devices map[string]*os.File
	warned  map[string]bool
	buttons bool
	closed  bool
}

// NewEvdevSource creates a source for dir (usually DefaultInputDir) with a
// device filter of "all", "auto" (keyboards only) or a /dev/input/by-id name.
func NewEvdevSource(dir, filter string, logger *slog.Logger) *EvdevSource {
	if dir == "" {
		dir = DefaultInputDir
	}
	if filter == "" {
		filter = DeviceFilterAuto
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EvdevSource{
		dir:     dir,
		filter:  filter,
		logger:  logger,
		devices: make(map[string]*os.File),
		warned:  make(map[string]bool),
	}
}

func (s *EvdevSource) Name() string { return "evdev" }

// Bind only notes whether mouse buttons are bound, which widens the auto
// filter to pointers with side buttons. Every key is read regardless.
func (s *EvdevSource) Bind(chords []Chord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buttons = false
	for _, c := range chords {
		if c.IsButton() {
			s.buttons = true
		}
	}
	return nil
}

// Run opens matching devices, follows hotplug through fsnotify and delivers
// transitions until ctx is done.
func (s *EvdevSource) Run(ctx context.Context, emit func(KeyEvent)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create input device watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.dir, err)
	}

	events := make(chan deviceEvent, 256)
	gone := make(chan deviceLoss, 8)
	tr := newEvdevTranslator()

	s.enumerate(ctx, events, gone)
	defer s.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasPrefix(filepath.Base(ev.Name), "event") {
				continue
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Chmod) || ev.Has(fsnotify.Remove) {
				s.enumerate(ctx, events, gone)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("input device watcher error", "error", err)

		case loss := <-gone:
			if !s.forget(ctx, loss, events, gone) {
				continue
			}
			for _, key := range tr.releaseDevice(loss.path) {
				emit(key)
			}
			s.logger.Info("input device removed", "device", loss.path)

		case de := <-events:
			if key, ok := tr.translate(de.path, de.ev); ok {
				emit(key)
			}
		}
	}
}

// Close closes every open device.
func (s *EvdevSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for path, f := range s.devices {
		f.Close()
		delete(s.devices, path)
	}
	return nil
}

// candidates lists the device nodes the filter admits before capability
// checks.
func (s *EvdevSource) candidates() ([]string, error) {
	switch s.filter {
	case DeviceFilterAll, DeviceFilterAuto:
		paths, err := filepath.Glob(filepath.Join(s.dir, "event*"))
		if err != nil {
			return nil, err
		}
		sort.Strings(paths)
		return paths, nil
	default:
		link := filepath.Join(s.dir, "by-id", s.filter)
		target, err := filepath.EvalSymlinks(link)
		if err != nil {
			return nil, fmt.Errorf("input device %q: %w", s.filter, err)
		}
		return []string{target}, nil
	}
}

func (s *EvdevSource) enumerate(ctx context.Context, events chan<- deviceEvent, gone chan<- deviceLoss) {
	paths, err := s.candidates()
	if err != nil {
		s.warnOnce(s.filter, "input device not available", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	for _, path := range paths {
		if _, open := s.devices[path]; open {
			continue
		}
		f, err := openDevice(path)
		if err != nil {
			msg := "cannot open input device"
			if errors.Is(err, fs.ErrPermission) {
				msg = "cannot open input device; is the user in the input group?"
			}
			s.warnOnceLocked(path, msg, fmt.Errorf("%w: %v", ErrHotkeyGrabFailed, err))
			continue
		}
		if s.filter == DeviceFilterAuto && !s.wantedLocked(f) {
			f.Close()
			continue
		}

		delete(s.warned, path)
		s.devices[path] = f
		s.logger.Info("listening on input device", "device", path, "name", deviceName(f))
		go readDevice(ctx, path, f, events, gone)
	}
}

func (s *EvdevSource) wantedLocked(f *os.File) bool {
	bits, err := keyBits(f)
	if err != nil {
		return false
	}
	if hasBit(bits, evdevKeyTab) {
		return true
	}
	return s.buttons && hasBit(bits, evdevBtnSide)
}

// forget removes a lost device if loss.f is still the open file for its
// path, then enumerates again: a node re-created before its old reader hit
// EOF was skipped as already open. It reports whether the entry was current.
func (s *EvdevSource) forget(ctx context.Context, loss deviceLoss, events chan<- deviceEvent, gone chan<- deviceLoss) bool {
	s.mu.Lock()
	current := s.devices[loss.path] == loss.f
	if current {
		delete(s.devices, loss.path)
	}
	s.mu.Unlock()
	loss.f.Close()

	s.enumerate(ctx, events, gone)
	return current
}

func (s *EvdevSource) warnOnce(key, msg string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnOnceLocked(key, msg, err)
}

func (s *EvdevSource) warnOnceLocked(key, msg string, err error) {
	if s.warned[key] {
		return
	}
	s.warned[key] = true
	s.logger.Warn(msg, "device", key, "error", err)
}

func openDevice(path string) (*os.File, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: path, Err: err}
	}
	// A non-blocking fd gives a pollable *os.File, so Close unblocks Read.
	return os.NewFile(uintptr(fd), path), nil
}

func readDevice(ctx context.Context, path string, f *os.File, events chan<- deviceEvent, gone chan<- deviceLoss) {
	buf := make([]byte, inputEventSize*64)
	for {
		n, err := f.Read(buf)
		if err != nil {
			select {
			case gone <- deviceLoss{path: path, f: f}:
			case <-ctx.Done():
			}
			return
		}
		for _, ev := range decodeEvents(buf[:n]) {
			select {
			case events <- deviceEvent{path: path, ev: ev}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// decodeEvents splits a read into input_event records, skipping the timeval.
func decodeEvents(buf []byte) []inputEvent {
	out := make([]inputEvent, 0, len(buf)/inputEventSize)
	head := inputEventSize - 8
	for off := 0; off+inputEventSize <= len(buf); off += inputEventSize {
		rec := buf[off+head : off+inputEventSize]
		out = append(out, inputEvent{
			Type:  binary.NativeEndian.Uint16(rec[0:2]),
			Code:  binary.NativeEndian.Uint16(rec[2:4]),
			Value: int32(binary.NativeEndian.Uint32(rec[4:8])),
		})
	}
	return out
}

// ioctl request encoding from <asm-generic/ioctl.h>.
func ioc(dir, typ, nr, size uintptr) uintptr {
	return dir<<30 | size<<16 | typ<<8 | nr
}

const iocRead = 2

func ioctlBuffer(f *os.File, req uintptr, buf []byte) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), req, uintptr(unsafe.Pointer(&buf[0])))
	if errno != 0 {
		return errno
	}
	return nil
}

// keyBits returns the EV_KEY capability bitmap (EVIOCGBIT).
func keyBits(f *os.File) ([]byte, error) {
	buf := make([]byte, evdevKeyMax/8+1)
	req := ioc(iocRead, 'E', 0x20+evKey, uintptr(len(buf)))
	if err := ioctlBuffer(f, req, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// deviceName returns the kernel device name (EVIOCGNAME).
func deviceName(f *os.File) string {
	buf := make([]byte, 256)
	if err := ioctlBuffer(f, ioc(iocRead, 'E', 0x06, uintptr(len(buf))), buf); err != nil {
		return ""
	}
	return strings.TrimRight(string(buf), "\x00")
}

func hasBit(bits []byte, code int) bool {
	i := code / 8
	return i < len(bits) && bits[i]&(1<<(code%8)) != 0
}

// evdevTranslator turns raw key events into KeyEvents with modifier state
// pooled across devices.
type evdevTranslator struct {
	mods    map[uint16]bool
	pressed map[string]map[uint16]bool
}

func newEvdevTranslator() *evdevTranslator {
	return &evdevTranslator{
		mods:    make(map[uint16]bool),
		pressed: make(map[string]map[uint16]bool),
	}
}

func (t *evdevTranslator) modifiers() Modifier {
	var m Modifier
	for code, down := range t.mods {
		if down {
			m |= evdevModifiers[code]
		}
	}
	return m
}

func (t *evdevTranslator) translate(device string, ev inputEvent) (KeyEvent, bool) {
	if ev.Type != evKey {
		return KeyEvent{}, false
	}
	if _, ok := evdevModifiers[ev.Code]; ok {
		t.mods[ev.Code] = ev.Value != 0
		return KeyEvent{}, false
	}
	name, ok := evdevKeyNames[ev.Code]
	if !ok {
		return KeyEvent{}, false
	}

	held := t.pressed[device]
	if held == nil {
		held = make(map[uint16]bool)
		t.pressed[device] = held
	}
	switch ev.Value {
	case 0:
		delete(held, ev.Code)
		return KeyEvent{Key: name, Mods: t.modifiers()}, true
	case 2:
		return KeyEvent{Key: name, Mods: t.modifiers(), Down: true, Repeat: true}, true
	default:
		held[ev.Code] = true
		return KeyEvent{Key: name, Mods: t.modifiers(), Down: true}, true
	}
}

// releaseDevice synthesizes releases for keys held on a vanished device so
// the dispatcher does not treat them as held forever.
func (t *evdevTranslator) releaseDevice(device string) []KeyEvent {
	var out []KeyEvent
	for code := range t.pressed[device] {
		out = append(out, KeyEvent{Key: evdevKeyNames[code]})
	}
	delete(t.pressed, device)
	// Modifier state cannot be attributed to a device; clear it.
	for code := range t.mods {
		delete(t.mods, code)
	}
	return out
}
