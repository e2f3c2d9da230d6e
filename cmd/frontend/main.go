//go:build js && wasm

// Command frontend is the browser side of the greeting page. It is built with
// GOOS=js GOARCH=wasm into main.wasm and served next to wasm_exec.js.
package main

import (
	"context"
	"os"
	"syscall/js"

	"github.com/rs/zerolog"

	"github.com/eventsphere/eventsphere/internal/client"
	"github.com/eventsphere/eventsphere/internal/greeter"
)

const servicePath = "/rpc/eventsphere.Backend.v1"

// domView binds the page elements rendered by the web server.
type domView struct {
	input    js.Value
	button   js.Value
	greeting js.Value
}

func (v *domView) Name() string {
	return v.input.Get("value").String()
}

func (v *domView) SetDisabled(disabled bool) {
	v.button.Set("disabled", disabled)
}

func (v *domView) SetGreeting(text string) {
	v.greeting.Set("textContent", text)
}

type domEvent struct {
	event js.Value
}

func (e domEvent) PreventDefault() {
	e.event.Call("preventDefault")
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, NoColor: true}).
		With().Timestamp().Logger().
		Level(zerolog.InfoLevel)

	doc := js.Global().Get("document")
	form := doc.Call("querySelector", "form")
	if form.IsNull() {
		logger.Error().Msg("greeting form not found")
		return
	}

	view := &domView{
		input:    doc.Call("getElementById", "name"),
		button:   form.Call("querySelector", "button"),
		greeting: doc.Call("getElementById", "greeting"),
	}

	origin := js.Global().Get("location").Get("origin").String()
	remote := client.New(origin+servicePath, client.WithLogger(logger))
	fg := greeter.NewFormGreeter(view, remote, greeter.WithLogger(logger))

	// The callback must return before the fetch can run, so only the
	// synchronous part of the submission happens here.
	onSubmit := js.FuncOf(func(this js.Value, args []js.Value) any {
		var ev greeter.SubmitEvent
		if len(args) > 0 {
			ev = domEvent{event: args[0]}
		}
		fg.Submit(context.Background(), ev)
		return false
	})
	form.Call("addEventListener", "submit", onSubmit)

	logger.Info().Msg("greeting form ready")
	select {}
}
