package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/rs/zerolog"

	"github.com/eventsphere/eventsphere/internal/client"
	"github.com/eventsphere/eventsphere/internal/greeter"
)

// ErrInterrupted is returned when the user aborts the prompt or the wait.
var ErrInterrupted = errors.New("interrupted")

// GreetOptions configure the greet command
type GreetOptions struct {
	// Name is sent as-is when NameSet is true; otherwise it is prompted for.
	Name    string
	NameSet bool

	// Endpoint overrides the configured service endpoint.
	Endpoint string

	// Plain disables the prompt decorations and the spinner.
	Plain bool
}

// Greet asks a running server for a greeting and prints it.
func (c *Controller) Greet(ctx context.Context, opts GreetOptions) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	endpoint := cfg.Client.Endpoint
	if opts.Endpoint != "" {
		endpoint = opts.Endpoint
	}

	remote := client.New(endpoint,
		client.WithMaxRetries(cfg.Client.MaxRetries),
		client.WithLogger(c.Logger),
	)

	return NewGreetCommand(remote, os.Stdout, c.Logger).Run(ctx, opts)
}

// GreetCommand drives a FormGreeter from the terminal
type GreetCommand struct {
	greeter greeter.Greeter
	out     io.Writer
	logger  zerolog.Logger

	// programOptions are passed to every bubbletea program, for tests.
	programOptions []tea.ProgramOption
}

// NewGreetCommand creates a greet command printing to out
func NewGreetCommand(g greeter.Greeter, out io.Writer, logger zerolog.Logger) *GreetCommand {
	return &GreetCommand{
		greeter: g,
		out:     out,
		logger:  logger,
	}
}

// WithProgramOptions sets options for the prompt and spinner programs
func (gc *GreetCommand) WithProgramOptions(opts ...tea.ProgramOption) *GreetCommand {
	gc.programOptions = opts
	return gc
}

// Run submits the name once and prints the greeting
func (gc *GreetCommand) Run(ctx context.Context, opts GreetOptions) error {
	name := opts.Name
	if !opts.NameSet {
		var err error
		name, err = gc.promptName(ctx)
		if err != nil {
			return err
		}
	}

	view := newTerminalView(name, gc.out)
	fg := greeter.NewFormGreeter(view, gc.greeter, greeter.WithLogger(gc.logger))
	sub := fg.Submit(ctx, nil)

	if !opts.Plain {
		if err := gc.spin(ctx, sub); err != nil {
			return err
		}
	}

	if _, err := sub.WaitContext(ctx); err != nil {
		return err
	}
	return nil
}

func (gc *GreetCommand) promptName(ctx context.Context) (string, error) {
	var name string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Enter your name").
				Value(&name),
		),
	).WithProgramOptions(gc.programOptions...)

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", ErrInterrupted
		}
		return "", fmt.Errorf("failed to read name: %w", err)
	}

	return name, nil
}

func (gc *GreetCommand) spin(ctx context.Context, sub *greeter.Submission) error {
	opts := append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithOutput(os.Stderr)}, gc.programOptions...)

	final, err := tea.NewProgram(newWaitModel(sub), opts...).Run()
	if err != nil {
		if errors.Is(err, tea.ErrInterrupted) {
			return ErrInterrupted
		}
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to render progress: %w", err)
	}

	if m, ok := final.(waitModel); ok && m.interrupted {
		return ErrInterrupted
	}
	return nil
}

type resolvedMsg struct{}

// waitModel shows a spinner until a submission resolves.
type waitModel struct {
	spinner     spinner.Model
	sub         *greeter.Submission
	done        bool
	interrupted bool
}

func newWaitModel(sub *greeter.Submission) waitModel {
	return waitModel{
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		sub:     sub,
	}
}

func (m waitModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		<-m.sub.Done()
		return resolvedMsg{}
	})
}

func (m waitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case resolvedMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			m.interrupted = true
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m waitModel) View() string {
	if m.done || m.interrupted {
		return ""
	}
	return m.spinner.View() + " Fetching greeting...\n"
}

// terminalView prints the greeting on its own line. The button state has no
// terminal counterpart and is only tracked.
type terminalView struct {
	mu       sync.Mutex
	name     string
	disabled bool
	out      io.Writer
}

func newTerminalView(name string, out io.Writer) *terminalView {
	return &terminalView{name: name, out: out}
}

func (v *terminalView) Name() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.name
}

func (v *terminalView) SetDisabled(disabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.disabled = disabled
}

func (v *terminalView) SetGreeting(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintln(v.out, text)
}

var _ greeter.View = (*terminalView)(nil)
