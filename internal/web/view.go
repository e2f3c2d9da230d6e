package web

import (
	"sync"

	"github.com/eventsphere/eventsphere/internal/greeter"
)

// pageView is the greeting form of one rendered page. It backs the form
// submission path that works without JavaScript.
type pageView struct {
	mu       sync.Mutex
	name     string
	disabled bool
	greeting string
}

func newPageView(name string) *pageView {
	return &pageView{name: name}
}

func (v *pageView) Name() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.name
}

func (v *pageView) SetDisabled(disabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.disabled = disabled
}

func (v *pageView) SetGreeting(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.greeting = text
}

func (v *pageView) data(assets assetInfo) pageData {
	v.mu.Lock()
	defer v.mu.Unlock()
	return pageData{
		Name:         v.name,
		Disabled:     v.disabled,
		Greeting:     v.greeting,
		Wasm:         assets.wasm,
		AssetVersion: assets.version,
	}
}

type pageData struct {
	Name         string
	Disabled     bool
	Greeting     string
	Wasm         bool
	AssetVersion string
}

var _ greeter.View = (*pageView)(nil)
