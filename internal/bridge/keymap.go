package bridge

import "github.com/yasincandan35/remotedesk/internal/input"

const (
	ButtonLeft   = "left"
	ButtonMiddle = "middle"
	ButtonRight  = "right"
)

// DOM button numbers.
var buttons = map[int]string{
	0: ButtonLeft,
	1: ButtonMiddle,
	2: ButtonRight,
}

// DOM key names that are tapped rather than typed.
var namedKeys = map[string]string{
	"Enter":      "enter",
	"Backspace":  "backspace",
	"Delete":     "delete",
	"Tab":        "tab",
	"Escape":     "escape",
	"ArrowUp":    "up",
	"ArrowDown":  "down",
	"ArrowLeft":  "left",
	"ArrowRight": "right",
	"Space":      "space",
}

func ButtonName(button int) (string, bool) {
	name, ok := buttons[button]
	return name, ok
}

func NamedKey(key string) (string, bool) {
	name, ok := namedKeys[key]
	return name, ok
}

// Modifiers lists the held modifier keys of ev in a fixed order.
func Modifiers(ev input.Event) []string {
	var mods []string
	if ev.Ctrl {
		mods = append(mods, "control")
	}
	if ev.Shift {
		mods = append(mods, "shift")
	}
	if ev.Alt {
		mods = append(mods, "alt")
	}
	if ev.Meta {
		mods = append(mods, "command")
	}
	return mods
}
