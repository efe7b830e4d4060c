package client

import "sync"

// CallState is a snapshot of the floating video-call overlay. Minimized
// and Room are meaningful only while Open is true.
type CallState struct {
	Open      bool
	Minimized bool
	Room      string
}

// CallController drives the overlay's closed / maximized / minimized
// lifecycle. It is a rendering concern only: the embedded call widget
// manages its own transport and no classroom messages pass through here.
type CallController struct {
	mu    sync.Mutex
	state CallState
}

// NewCallController creates a closed controller.
func NewCallController() *CallController {
	return &CallController{}
}

// StartCall opens the overlay maximized for the given room. Starting
// while a call is open switches to the new room.
func (c *CallController) StartCall(room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = CallState{Open: true, Minimized: false, Room: room}
}

// EndCall closes the overlay from any state.
func (c *CallController) EndCall() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = CallState{}
}

// ToggleMinimize flips between maximized and minimized. A no-op while
// closed, keeping the minimized flag meaningless outside an open call.
func (c *CallController) ToggleMinimize() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Open {
		return
	}
	c.state.Minimized = !c.state.Minimized
}

// State returns the current overlay snapshot.
func (c *CallController) State() CallState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
