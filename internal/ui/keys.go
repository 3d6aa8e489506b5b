package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/yasincandan35/remotedesk/internal/input"
)

// Terminal keys with a DOM name of their own.
var domKeys = map[tea.KeyType]string{
	tea.KeyEnter:     "Enter",
	tea.KeyBackspace: "Backspace",
	tea.KeyDelete:    "Delete",
	tea.KeyTab:       "Tab",
	tea.KeyEsc:       "Escape",
	tea.KeyUp:        "ArrowUp",
	tea.KeyDown:      "ArrowDown",
	tea.KeyLeft:      "ArrowLeft",
	tea.KeyRight:     "ArrowRight",
	tea.KeySpace:     " ",
}

// KeyEvent converts a terminal key press into a keydown event named the way
// a browser would name it.
func KeyEvent(msg tea.KeyMsg) (input.Event, bool) {
	var ev input.Event

	if name, ok := domKeys[msg.Type]; ok {
		ev = input.Key(name, input.ActionKeyDown)
	} else {
		switch {
		case msg.Type == tea.KeyRunes && len(msg.Runes) == 1:
			ev = input.Key(string(msg.Runes), input.ActionKeyDown)
		case msg.Type >= tea.KeyCtrlA && msg.Type <= tea.KeyCtrlZ:
			ev = input.Key(string(rune('a'+int(msg.Type-tea.KeyCtrlA))), input.ActionKeyDown)
			ev.Ctrl = true
		default:
			return input.Event{}, false
		}
	}

	ev.Alt = msg.Alt
	return ev, true
}

// MouseEvents converts a terminal mouse event into input events. The
// terminal's cell grid is the frame the coordinates are relative to.
func MouseEvents(msg tea.MouseMsg, width, height int) []input.Event {
	if width <= 0 || height <= 0 {
		return nil
	}
	x, y := float64(msg.X), float64(msg.Y)
	fw, fh := float64(width), float64(height)

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		return []input.Event{input.Scroll(0, -1, 0)}
	case tea.MouseButtonWheelDown:
		return []input.Event{input.Scroll(0, 1, 0)}
	case tea.MouseButtonWheelLeft:
		return []input.Event{input.Scroll(-1, 0, 0)}
	case tea.MouseButtonWheelRight:
		return []input.Event{input.Scroll(1, 0, 0)}
	}

	switch msg.Action {
	case tea.MouseActionMotion:
		return []input.Event{input.Move(x, y, fw, fh)}
	case tea.MouseActionPress, tea.MouseActionRelease:
		button, ok := mouseButtons[msg.Button]
		if !ok {
			// Releases often arrive without a button.
			if msg.Action != tea.MouseActionRelease {
				return nil
			}
			button = 0
		}
		action := input.ActionDown
		if msg.Action == tea.MouseActionRelease {
			action = input.ActionUp
		}
		return []input.Event{input.Click(button, action, x, y, fw, fh)}
	}
	return nil
}

var mouseButtons = map[tea.MouseButton]int{
	tea.MouseButtonLeft:   0,
	tea.MouseButtonMiddle: 1,
	tea.MouseButtonRight:  2,
}
