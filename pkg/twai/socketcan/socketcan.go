package socketcan

import (
	"sync"
	"time"

	"github.com/brutella/can"
	"github.com/giga993/TWAI-Tester/pkg/twai"
	log "github.com/sirupsen/logrus"
)

// TWAI driver backed by socketcan (this uses the brutella/can implementation).
// A socketcan interface does not expose the controller alert register, so the
// alert stream is synthesized from what the socket can observe : received
// frames, transmit results and receive queue overflows. Bus-off handling stays
// with the kernel driver on this backend.

func init() {
	twai.RegisterDriver("socketcan", NewSocketcanDriver)
}

type Driver struct {
	mu         sync.Mutex
	name       string
	bus        *can.Bus
	installed  bool
	started    bool
	alertMask  uint32
	rxQueue    chan twai.Frame
	alertQueue chan uint32
	status     twai.StatusInfo
}

func NewSocketcanDriver(channel string) (twai.Driver, error) {
	return &Driver{name: channel}, nil
}

func (d *Driver) Install(config twai.Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.installed {
		return twai.ErrInvalidState
	}
	bus, err := can.NewBusForInterfaceWithName(d.name)
	if err != nil {
		return err
	}
	rxLen := config.General.RxQueueLen
	if rxLen <= 0 {
		rxLen = 1
	}
	d.bus = bus
	d.alertMask = config.General.AlertsEnabled
	d.rxQueue = make(chan twai.Frame, rxLen)
	d.alertQueue = make(chan uint32, 64)
	// brutella/can defines a "Handle" interface for handling received CAN frames
	d.bus.Subscribe(d)
	d.installed = true
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
	return d.bus.Disconnect()
}

func (d *Driver) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.installed {
		return twai.ErrNotInstalled
	}
	if d.started {
		return nil
	}
	go d.bus.ConnectAndPublish()
	d.started = true
	d.status.State = twai.StateRunning
	return nil
}

// Bus-off recovery is handled by the kernel driver on socketcan, the
// controller reports recovery immediately
func (d *Driver) InitiateRecovery() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.installed {
		return twai.ErrNotInstalled
	}
	d.started = false
	d.status.State = twai.StateRecovering
	d.raiseLocked(twai.AlertBusRecovered)
	return nil
}

func (d *Driver) Transmit(frame twai.Frame, timeout time.Duration) error {
	d.mu.Lock()
	if !d.installed {
		d.mu.Unlock()
		return twai.ErrNotInstalled
	}
	if !d.started {
		d.mu.Unlock()
		return twai.ErrInvalidState
	}
	bus := d.bus
	d.mu.Unlock()

	err := bus.Publish(can.Frame{
		ID:     frame.ID,
		Length: frame.DLC,
		Flags:  frame.Flags,
		Res0:   0,
		Res1:   0,
		Data:   frame.Data,
	})
	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.status.TxFailedCount++
		d.raiseLocked(twai.AlertTxFailed)
		return err
	}
	d.raiseLocked(twai.AlertTxSuccess)
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
	return d.status, nil
}

// brutella/can specific "Handle" implementation
func (d *Driver) Handle(frame can.Frame) {
	d.mu.Lock()
	if !d.installed {
		d.mu.Unlock()
		return
	}
	queue := d.rxQueue
	d.mu.Unlock()

	select {
	case queue <- twai.Frame{ID: frame.ID, DLC: frame.Length, Flags: frame.Flags, Data: frame.Data}:
		d.raise(twai.AlertRxData)
	default:
		log.Warnf("[TWAI] receive queue full on %v, frame x%x dropped", d.name, frame.ID)
		d.mu.Lock()
		d.status.RxMissedCount++
		d.mu.Unlock()
		d.raise(twai.AlertRxQueueFull)
	}
}

func (d *Driver) raise(bits uint32) {
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
