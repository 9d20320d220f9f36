package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"controlling_relay/internal/logger"
)

// CommandName is an externally issued command.
type CommandName string

const (
	CmdPowerOn         CommandName = "PowerOn"
	CmdPowerOnAutoOff  CommandName = "PowerOnAutoOff"
	CmdPowerOff        CommandName = "PowerOff"
	CmdPowerOffDelayed CommandName = "PowerOffDelayed"
	CmdPowerToggle     CommandName = "PowerToggle"
	CmdEnableAutoOff   CommandName = "EnableAutoOff"
	CmdDisableAutoOff  CommandName = "DisableAutoOff"
	CmdSetAutoOffTime  CommandName = "SetAutoOffTime"
)

// Bounds for every minute-valued command parameter.
const (
	MinMinutes = 0
	MaxMinutes = 1440
)

var (
	ErrUnknownCommand    = errors.New("unknown command")
	ErrInvalidArgument   = errors.New("invalid command argument")
	ErrQueueFull         = errors.New("command queue is full")
	ErrDispatcherStopped = errors.New("command dispatcher stopped")
)

// commandsWithMinutes take one integer minutes parameter.
var commandsWithMinutes = map[CommandName]bool{
	CmdPowerOnAutoOff:  true,
	CmdPowerOffDelayed: true,
	CmdSetAutoOffTime:  true,
}

var knownCommands = map[CommandName]bool{
	CmdPowerOn:         true,
	CmdPowerOnAutoOff:  true,
	CmdPowerOff:        true,
	CmdPowerOffDelayed: true,
	CmdPowerToggle:     true,
	CmdEnableAutoOff:   true,
	CmdDisableAutoOff:  true,
	CmdSetAutoOffTime:  true,
}

// Command is a validated request for the relay.
type Command struct {
	Name    CommandName
	Minutes int // PowerOnAutoOff, PowerOffDelayed, SetAutoOffTime
}

// Validate checks the command name and its minutes parameter.
func (c Command) Validate() error {
	if !knownCommands[c.Name] {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, string(c.Name))
	}
	if commandsWithMinutes[c.Name] && (c.Minutes < MinMinutes || c.Minutes > MaxMinutes) {
		return fmt.Errorf("%w: %s minutes %d outside %d..%d", ErrInvalidArgument, c.Name, c.Minutes, MinMinutes, MaxMinutes)
	}
	return nil
}

// ParseCommand builds a Command from a name and string parameters.
func ParseCommand(name string, params []string) (Command, error) {
	cmd := Command{Name: CommandName(strings.TrimSpace(name))}
	if !knownCommands[cmd.Name] {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	if commandsWithMinutes[cmd.Name] {
		if len(params) == 0 {
			return Command{}, fmt.Errorf("%w: %s requires a minutes parameter", ErrInvalidArgument, cmd.Name)
		}
		m, err := strconv.Atoi(strings.TrimSpace(params[0]))
		if err != nil {
			return Command{}, fmt.Errorf("%w: %s minutes %q is not an integer", ErrInvalidArgument, cmd.Name, params[0])
		}
		cmd.Minutes = m
	}
	if err := cmd.Validate(); err != nil {
		return Command{}, err
	}
	return cmd, nil
}

// RelayController is the relay surface the dispatcher drives.
type RelayController interface {
	RequestOn()
	RequestOnWith(autoOff bool, autoOffTime int)
	RequestOff()
	ScheduleDelayedOff(minutes int)
	Toggle()
	SetAutoOff(v bool)
	SetAutoOffTime(minutes int)
}

// DispatcherOptions sizes the worker pool and its queue.
type DispatcherOptions struct {
	Workers   int
	QueueSize int
}

const (
	defaultWorkers   = 4
	defaultQueueSize = 64
)

// Dispatcher runs commands off the caller's goroutine on a bounded worker pool.
// Commands are not ordered relative to each other; RelayService serializes them.
type Dispatcher struct {
	relay   RelayController
	log     *logger.Logger
	queue   chan Command
	workers int

	// mu makes the stopped check and the enqueue one step against Run's final drain.
	mu      sync.RWMutex
	stopped bool
}

func NewDispatcher(relay RelayController, log *logger.Logger, opts DispatcherOptions) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{
		relay:   relay,
		log:     log,
		queue:   make(chan Command, opts.QueueSize),
		workers: opts.Workers,
	}
}

// Submit validates cmd and queues it without blocking.
func (d *Dispatcher) Submit(cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrDispatcherStopped
	}
	select {
	case d.queue <- cmd:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run executes queued commands until ctx is canceled, then drains what was
// already accepted so each accepted command runs exactly once.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case cmd := <-d.queue:
					d.execute(cmd)
				}
			}
		}()
	}
	<-ctx.Done()
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
	wg.Wait()

	for {
		select {
		case cmd := <-d.queue:
			d.execute(cmd)
		default:
			return
		}
	}
}

func (d *Dispatcher) execute(cmd Command) {
	switch cmd.Name {
	case CmdPowerOn:
		d.relay.RequestOn()
	case CmdPowerOnAutoOff:
		d.relay.RequestOnWith(true, cmd.Minutes)
	case CmdPowerOff:
		d.relay.RequestOff()
	case CmdPowerOffDelayed:
		d.relay.ScheduleDelayedOff(cmd.Minutes)
	case CmdPowerToggle:
		d.relay.Toggle()
	case CmdEnableAutoOff:
		d.relay.SetAutoOff(true)
	case CmdDisableAutoOff:
		d.relay.SetAutoOff(false)
	case CmdSetAutoOffTime:
		d.relay.SetAutoOffTime(cmd.Minutes)
	default:
		d.log.Warnw("command_dropped", "command", string(cmd.Name))
		return
	}
	d.log.Infow("command_executed", "command", string(cmd.Name), "minutes", cmd.Minutes)
}
