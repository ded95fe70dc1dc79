//go:build darwin

package clipboard

import "github.com/micmonay/keybd_event"

// Init is a no-op on macOS; key injection needs no handle here.
func Init() error { return nil }

func sendPaste() error {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return err
	}
	kb.SetKeys(keybd_event.VK_V)
	kb.HasSuper(true) // Cmd+V on macOS
	return kb.Launching()
}
