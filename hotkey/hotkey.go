// Package hotkey watches for the global toggle gesture (Ctrl+Shift+Space).
package hotkey

type Hotkey interface {
	Register() error
	Unregister()
	// Toggled fires once per press; holding the combo does not repeat.
	Toggled() <-chan struct{}
}
