// Package tray provides a system tray control for the hipcheck exercise
// monitor.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/hipcheck/internal/app"
	"github.com/ayusman/hipcheck/internal/motion"
)

// Tray shows the current attempt state and offers a restart control.
type Tray struct {
	onRestart   func()
	onDashboard func()
	onQuit      func()
	mu          sync.RWMutex

	state  motion.State
	reason string

	menuState  *systray.MenuItem
	menuReason *systray.MenuItem
}

// New creates a Tray showing the Quiet state.
func New() *Tray {
	return &Tray{state: motion.Quiet}
}

// OnRestart sets the callback for the "Restart attempt" item.
func (t *Tray) OnRestart(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRestart = fn
}

// OnDashboard sets the callback for the "Open dashboard" item.
func (t *Tray) OnDashboard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDashboard = fn
}

// OnQuit sets the callback run before the tray exits.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray. It blocks until Quit is called and must run on
// the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit stops the tray loop.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("hipcheck")
	systray.SetTooltip("Hip movement monitor")

	t.mu.Lock()
	t.menuState = systray.AddMenuItem(stateTitle(t.state), "Current attempt state")
	t.menuState.Disable()
	t.menuReason = systray.AddMenuItem(reasonTitle(t.reason), "Last deviation")
	t.menuReason.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuRestart := systray.AddMenuItem("Restart attempt", "Start a new attempt from the current position")
	menuDashboard := systray.AddMenuItem("Open dashboard", "Open the dashboard in a browser")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit hipcheck")

	go func() {
		for {
			select {
			case <-menuRestart.ClickedCh:
				t.call(func(t *Tray) func() { return t.onRestart })
			case <-menuDashboard.ClickedCh:
				t.call(func(t *Tray) func() { return t.onDashboard })
			case <-menuQuit.ClickedCh:
				t.call(func(t *Tray) func() { return t.onQuit })
				systray.Quit()
				return
			}
		}
	}()
}

// call runs the selected callback outside the lock.
func (t *Tray) call(pick func(*Tray) func()) {
	t.mu.RLock()
	fn := pick(t)
	t.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// Update reflects an observation in the menu. The reason line keeps the last
// deviation until a new attempt starts.
func (t *Tray) Update(obs app.Observation) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if obs.Result.State == motion.GoingBack && t.state != motion.GoingBack {
		t.reason = ""
	}
	t.state = obs.Result.State
	if obs.Result.Status.Kind == motion.Error {
		t.reason = obs.Result.Status.Reason
	}

	if t.menuState != nil {
		t.menuState.SetTitle(stateTitle(t.state))
		t.menuReason.SetTitle(reasonTitle(t.reason))
	}
}

// Follow applies observations until the channel closes.
func (t *Tray) Follow(observations <-chan app.Observation) {
	for obs := range observations {
		t.Update(obs)
	}
}

// State returns the last state shown and the last deviation reason.
func (t *Tray) State() (motion.State, string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state, t.reason
}

func stateTitle(s motion.State) string {
	return fmt.Sprintf("State: %s", s)
}

func reasonTitle(reason string) string {
	if reason == "" {
		return "Last deviation: none"
	}
	return "Last deviation: " + reason
}
