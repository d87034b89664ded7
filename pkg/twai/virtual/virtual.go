package virtual

import (
	"sync"
	"time"

	"github.com/giga993/TWAI-Tester/pkg/twai"
)

// Virtual TWAI driver backed by in-memory queues, primarily used for testing.
// Frames and alert batches are injected from the test side, transmitted frames
// are recorded for inspection. Safe for concurrent use.

func init() {
	twai.RegisterDriver("virtual", NewVirtualDriver)
}

type Driver struct {
	mu          sync.Mutex
	channel     string
	installed   bool
	started     bool
	config      twai.Config
	alertMask   uint32
	rxQueue     chan twai.Frame
	alertQueue  chan uint32
	transmitted []twai.Frame
	loopback    bool
	transmitErr error
	status      twai.StatusInfo
	statusErr   error
	startCalls  int
	recoveries  int
}

func NewVirtualDriver(channel string) (twai.Driver, error) {
	return &Driver{channel: channel}, nil
}

func (d *Driver) Install(config twai.Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.installed {
		return twai.ErrInvalidState
	}
	rxLen := config.General.RxQueueLen
	if rxLen <= 0 {
		rxLen = 1
	}
	d.config = config
	d.alertMask = config.General.AlertsEnabled
	d.rxQueue = make(chan twai.Frame, rxLen)
	d.alertQueue = make(chan uint32, 64)
	d.installed = true
	d.started = false
	d.status.State = twai.StateStopped
	return nil
}

func (d *Driver) Uninstall() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.installed {
		return twai.ErrNotInstalled
	}
	d.installed = false
	d.started = false
	return nil
}

// Start is idempotent, calling it on a running driver is a no-op
func (d *Driver) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.installed {
		return twai.ErrNotInstalled
	}
	d.startCalls++
	d.started = true
	d.status.State = twai.StateRunning
	return nil
}

func (d *Driver) InitiateRecovery() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.installed {
		return twai.ErrNotInstalled
	}
	d.recoveries++
	d.started = false
	d.status.State = twai.StateRecovering
	d.raiseLocked(twai.AlertRecoveryInProgress)
	return nil
}

func (d *Driver) Transmit(frame twai.Frame, timeout time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.installed {
		return twai.ErrNotInstalled
	}
	if !d.started {
		return twai.ErrInvalidState
	}
	if d.transmitErr != nil {
		return d.transmitErr
	}
	d.transmitted = append(d.transmitted, frame)
	if d.loopback {
		select {
		case d.rxQueue <- frame:
		default:
			d.raiseLocked(twai.AlertRxQueueFull)
		}
	}
	return nil
}

func (d *Driver) Receive(timeout time.Duration) (twai.Frame, error) {
	d.mu.Lock()
	if !d.installed {
		d.mu.Unlock()
		return twai.Frame{}, twai.ErrNotInstalled
	}
	queue := d.rxQueue
	d.mu.Unlock()

	if timeout < 0 {
		return <-queue, nil
	}
	select {
	case frame := <-queue:
		return frame, nil
	case <-time.After(timeout):
		return twai.Frame{}, twai.ErrTimeout
	}
}

func (d *Driver) ReadAlerts(timeout time.Duration) (uint32, error) {
	d.mu.Lock()
	if !d.installed {
		d.mu.Unlock()
		return 0, twai.ErrNotInstalled
	}
	queue := d.alertQueue
	d.mu.Unlock()

	if timeout < 0 {
		return <-queue, nil
	}
	select {
	case batch := <-queue:
		return batch, nil
	case <-time.After(timeout):
		return 0, twai.ErrTimeout
	}
}

func (d *Driver) ReconfigureAlerts(mask uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.installed {
		return twai.ErrNotInstalled
	}
	d.alertMask = mask
	return nil
}

func (d *Driver) StatusInfo() (twai.StatusInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.installed {
		return twai.StatusInfo{}, twai.ErrNotInstalled
	}
	if d.statusErr != nil {
		return twai.StatusInfo{}, d.statusErr
	}
	return d.status, nil
}

// Test-side injection and inspection helpers

// Raise an alert batch as the hardware would, filtered by the enabled mask
func (d *Driver) RaiseAlerts(bits uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.raiseLocked(bits)
}

func (d *Driver) raiseLocked(bits uint32) {
	bits &= d.alertMask
	if bits == 0 || d.alertQueue == nil {
		return
	}
	select {
	case d.alertQueue <- bits:
	default:
	}
}

// Inject an inbound frame as if received from the bus
func (d *Driver) InjectFrame(frame twai.Frame) {
	d.mu.Lock()
	queue := d.rxQueue
	d.mu.Unlock()
	if queue == nil {
		return
	}
	select {
	case queue <- frame:
	default:
		d.RaiseAlerts(twai.AlertRxQueueFull)
	}
}

// Deliver transmitted frames back to the receive queue
func (d *Driver) SetLoopback(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loopback = enabled
}

// Force an error on subsequent Transmit calls, nil restores normal behaviour
func (d *Driver) SetTransmitError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.transmitErr = err
}

func (d *Driver) SetStatusInfo(status twai.StatusInfo) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status = status
}

// Force an error on subsequent StatusInfo calls, nil restores normal behaviour
func (d *Driver) SetStatusError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.statusErr = err
}

func (d *Driver) Transmitted() []twai.Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	frames := make([]twai.Frame, len(d.transmitted))
	copy(frames, d.transmitted)
	return frames
}

func (d *Driver) StartCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.startCalls
}

func (d *Driver) RecoveryInitiations() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.recoveries
}

func (d *Driver) IsStarted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.started
}
