package platform

import (
	"fmt"
	"sort"
	"strings"
)

// KeyCode is a macOS virtual key code (Carbon Events.h).
type KeyCode uint16

// Modifiers is a set of modifier keys. The bit values equal the CGEventFlags
// device-independent masks so the event tap can pass flags through unchanged.
type Modifiers uint64

const (
	ModShift   Modifiers = 0x00020000
	ModControl Modifiers = 0x00040000
	ModOption  Modifiers = 0x00080000
	ModCommand Modifiers = 0x00100000

	// ModMask selects the modifier bits that take part in chord matching.
	ModMask = ModShift | ModControl | ModOption | ModCommand
)

// Has reports whether all modifiers in o are set in m.
func (m Modifiers) Has(o Modifiers) bool {
	return m&o == o
}

func (m Modifiers) String() string {
	var parts []string
	if m.Has(ModControl) {
		parts = append(parts, "ctrl")
	}
	if m.Has(ModOption) {
		parts = append(parts, "alt")
	}
	if m.Has(ModShift) {
		parts = append(parts, "shift")
	}
	if m.Has(ModCommand) {
		parts = append(parts, "cmd")
	}
	return strings.Join(parts, "+")
}

// KeyEventType distinguishes raw keyboard events.
type KeyEventType int

const (
	KeyDown KeyEventType = iota
	KeyUp
	// FlagsChanged is emitted when a modifier key is pressed or released.
	FlagsChanged
)

// KeyEvent is a raw keyboard event as delivered by the event tap.
type KeyEvent struct {
	Type      KeyEventType
	Code      KeyCode
	Modifiers Modifiers
	Repeat    bool
}

// Chord is a key plus a modifier set.
type Chord struct {
	Code      KeyCode
	Modifiers Modifiers
}

func (c Chord) String() string {
	name := keyName(c.Code)
	if mods := c.Modifiers.String(); mods != "" {
		return mods + "+" + name
	}
	return name
}

// macOS virtual key codes from Carbon Events.h.
var keyCodeMap = map[string]KeyCode{
	"a": 0x00, "b": 0x0B, "c": 0x08, "d": 0x02, "e": 0x0E, "f": 0x03,
	"g": 0x05, "h": 0x04, "i": 0x22, "j": 0x26, "k": 0x28, "l": 0x25,
	"m": 0x2E, "n": 0x2D, "o": 0x1F, "p": 0x23, "q": 0x0C, "r": 0x0F,
	"s": 0x01, "t": 0x11, "u": 0x20, "v": 0x09, "w": 0x0D, "x": 0x07,
	"y": 0x10, "z": 0x06,
	"0": 0x1D, "1": 0x12, "2": 0x13, "3": 0x14, "4": 0x15,
	"5": 0x17, "6": 0x16, "7": 0x1A, "8": 0x1C, "9": 0x19,
	"return": 0x24, "enter": 0x24, "tab": 0x30, "space": 0x31,
	"delete": 0x33, "backspace": 0x33, "escape": 0x35, "esc": 0x35,
	"grave": 0x32, "`": 0x32,
	"up": 0x7E, "down": 0x7D, "left": 0x7B, "right": 0x7C,
	"home": 0x73, "end": 0x77, "pageup": 0x74, "pagedown": 0x79,
	"f1": 0x7A, "f2": 0x78, "f3": 0x63, "f4": 0x76, "f5": 0x60,
	"f6": 0x61, "f7": 0x62, "f8": 0x64, "f9": 0x65, "f10": 0x6D,
	"f11": 0x67, "f12": 0x6F,
}

var modifierMap = map[string]Modifiers{
	"cmd": ModCommand, "command": ModCommand,
	"shift": ModShift,
	"ctrl":  ModControl, "control": ModControl,
	"alt": ModOption, "opt": ModOption, "option": ModOption,
}

// canonicalKeyNames holds one preferred name per key code, for printing.
var canonicalKeyNames = func() map[KeyCode]string {
	aliases := map[string]bool{"enter": true, "backspace": true, "esc": true, "`": true}
	names := make([]string, 0, len(keyCodeMap))
	for name := range keyCodeMap {
		names = append(names, name)
	}
	sort.Strings(names)
	m := make(map[KeyCode]string, len(keyCodeMap))
	for _, name := range names {
		if aliases[name] {
			continue
		}
		if _, ok := m[keyCodeMap[name]]; !ok {
			m[keyCodeMap[name]] = name
		}
	}
	return m
}()

func keyName(code KeyCode) string {
	if name, ok := canonicalKeyNames[code]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", uint16(code))
}

// LookupKey returns the key code for a key name such as "tab" or "f5".
func LookupKey(name string) (KeyCode, bool) {
	code, ok := keyCodeMap[strings.ToLower(strings.TrimSpace(name))]
	return code, ok
}

// ParseChord parses a chord such as "alt+tab" or "cmd+shift+`".
// Exactly one non-modifier key is required.
func ParseChord(s string) (Chord, error) {
	if strings.TrimSpace(s) == "" {
		return Chord{}, fmt.Errorf("empty chord")
	}
	var c Chord
	found := false
	for _, k := range strings.Split(s, "+") {
		k = strings.ToLower(strings.TrimSpace(k))
		if mod, ok := modifierMap[k]; ok {
			c.Modifiers |= mod
			continue
		}
		code, ok := keyCodeMap[k]
		if !ok {
			return Chord{}, fmt.Errorf("unknown key %q in chord %q", k, s)
		}
		if found {
			return Chord{}, fmt.Errorf("chord %q has more than one key", s)
		}
		c.Code = code
		found = true
	}
	if !found {
		return Chord{}, fmt.Errorf("no key specified in chord %q, only modifiers", s)
	}
	return c, nil
}
