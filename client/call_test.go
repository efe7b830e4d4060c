package client

import "testing"

func TestCallController_StartCall(t *testing.T) {
	c := NewCallController()

	c.StartCall("course-42-hall")

	state := c.State()
	if !state.Open || state.Minimized || state.Room != "course-42-hall" {
		t.Errorf("expected open maximized call in course-42-hall, got %+v", state)
	}
}

func TestCallController_ToggleMinimize(t *testing.T) {
	c := NewCallController()
	c.StartCall("sala")

	c.ToggleMinimize()
	if state := c.State(); !state.Open || !state.Minimized {
		t.Errorf("expected minimized, got %+v", state)
	}

	c.ToggleMinimize()
	if state := c.State(); !state.Open || state.Minimized {
		t.Errorf("expected maximized again, got %+v", state)
	}
}

func TestCallController_ToggleWhileClosedIsNoOp(t *testing.T) {
	c := NewCallController()

	c.ToggleMinimize()

	if state := c.State(); state.Open || state.Minimized {
		t.Errorf("minimized is meaningless while closed, got %+v", state)
	}
}

func TestCallController_EndCallFromAnyState(t *testing.T) {
	c := NewCallController()
	c.StartCall("sala")
	c.ToggleMinimize()

	c.EndCall()

	state := c.State()
	if state.Open || state.Minimized || state.Room != "" {
		t.Errorf("expected fully closed state, got %+v", state)
	}
}

func TestCallController_RestartSwitchesRoom(t *testing.T) {
	c := NewCallController()
	c.StartCall("sala-a")
	c.ToggleMinimize()

	c.StartCall("sala-b")

	state := c.State()
	if !state.Open || state.Minimized || state.Room != "sala-b" {
		t.Errorf("restart should open the new room maximized, got %+v", state)
	}
}
