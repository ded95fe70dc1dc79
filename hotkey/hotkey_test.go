package hotkey

import (
	"testing"
	"time"
)

var _ Hotkey = (*FakeHotkey)(nil)

func TestFakeToggleDelivery(t *testing.T) {
	fk := NewFake()
	if err := fk.Register(); err != nil {
		t.Fatalf("Register() = %v", err)
	}
	defer fk.Unregister()

	fk.SimToggle()
	select {
	case <-fk.Toggled():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for toggle")
	}

	// nothing pending after the event is consumed
	select {
	case <-fk.Toggled():
		t.Fatal("unexpected second toggle")
	default:
	}
}
