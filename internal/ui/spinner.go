package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// Spinner draws a one-line progress indicator until stopped.
type Spinner struct {
	message string
	frames  spinner.Spinner

	mu   sync.Mutex
	done chan struct{}
	once sync.Once
}

func NewSpinner(message string) *Spinner {
	return &Spinner{message: message, frames: spinner.Dot, done: make(chan struct{})}
}

// NewConnectionSpinner uses the globe frames for network waits.
func NewConnectionSpinner(message string) *Spinner {
	return &Spinner{message: message, frames: spinner.Globe, done: make(chan struct{})}
}

func (s *Spinner) Start() {
	go func() {
		ticker := time.NewTicker(s.frames.FPS)
		defer ticker.Stop()

		for i := 0; ; i++ {
			s.mu.Lock()
			select {
			case <-s.done:
				s.mu.Unlock()
				return
			default:
			}
			frame := SpinnerStyle.Render(s.frames.Frames[i%len(s.frames.Frames)])
			fmt.Printf("\r%s %s", frame, s.message)
			s.mu.Unlock()

			select {
			case <-s.done:
				return
			case <-ticker.C:
			}
		}
	}()
}

func (s *Spinner) Stop() {
	s.once.Do(func() {
		close(s.done)
		s.mu.Lock()
		fmt.Print("\r\033[K")
		s.mu.Unlock()
	})
}

func (s *Spinner) SetMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

func (s *Spinner) Success(message string) {
	s.Stop()
	PrintSuccess(message)
}

// RunConnectionSpinner starts a spinner and returns its stop function.
func RunConnectionSpinner(message string) func() {
	sp := NewConnectionSpinner(message)
	sp.Start()
	return sp.Stop
}
