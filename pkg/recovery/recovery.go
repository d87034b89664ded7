// Package recovery owns the bus lifecycle state machine and the control task
// that drives it from the driver alert stream.
package recovery

import (
	"fmt"
	"sync"
	"time"

	"github.com/giga993/TWAI-Tester/internal/gate"
	"github.com/giga993/TWAI-Tester/pkg/alert"
	"github.com/giga993/TWAI-Tester/pkg/twai"
	log "github.com/sirupsen/logrus"
)

// Bus lifecycle states
type State uint8

const (
	StateRunning State = iota
	StateBusOffDetected
	StateRecoveryInProgress
	StateRecovered
)

var stateDescription = map[State]string{
	StateRunning:            "RUNNING",
	StateBusOffDetected:     "BUS-OFF-DETECTED",
	StateRecoveryInProgress: "RECOVERY-IN-PROGRESS",
	StateRecovered:          "RECOVERED",
}

func (s State) String() string {
	description, ok := stateDescription[s]
	if ok {
		return description
	}
	return "UNKNOWN"
}

// Number of settle ticks before issuing the recovery command after bus-off.
// This is a deliberate settle period, each tick is logged as a countdown.
const CountdownTicks = 3

const DefaultCountdownTick = 1 * time.Second
const DefaultPollTimeout = 500 * time.Millisecond

// Controller polls the driver alert stream and owns the bus lifecycle state.
// It is the only writer of that state. All transient poll failures are
// recovered locally, only the initial driver start failure is escalated.
type Controller struct {
	mu            sync.Mutex
	driver        twai.Driver
	classifier    *alert.Classifier
	startGate     *gate.Gate
	state         State
	countdownTick time.Duration
	pollTimeout   time.Duration
}

// Create a new Controller. The start gate is released once the driver is
// started, releasing the transmit task.
func NewController(driver twai.Driver, classifier *alert.Classifier, startGate *gate.Gate) *Controller {
	if classifier == nil {
		classifier = alert.NewClassifier(nil, driver)
	}
	return &Controller{
		driver:        driver,
		classifier:    classifier,
		startGate:     startGate,
		state:         StateRunning,
		countdownTick: DefaultCountdownTick,
		pollTimeout:   DefaultPollTimeout,
	}
}

// Shorten the settle tick, used to speed up tests
func (c *Controller) SetCountdownTick(tick time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.countdownTick = tick
}

func (c *Controller) SetPollTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pollTimeout = timeout
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(state State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

// Run starts the driver, releases the transmit task and processes alert
// batches until exit is closed. The initial start failure is fatal and
// returned, everything after that is recovered locally.
func (c *Controller) Run(exit <-chan bool) error {
	if err := c.driver.Start(); err != nil {
		return fmt.Errorf("driver start : %w", err)
	}
	log.Infof("[CTRL] driver started")
	log.Infof("[CTRL] starting transmissions")
	c.startGate.Release()

	if err := c.driver.ReconfigureAlerts(twai.AlertAll); err != nil {
		log.Warnf("[CTRL] could not reconfigure alerts : %v", err)
	}

	c.mu.Lock()
	pollTimeout := c.pollTimeout
	c.mu.Unlock()

	for {
		select {
		case <-exit:
			log.Infof("[CTRL] exited control task")
			return nil
		default:
		}
		// Poll failures and timeouts are a no-op for the cycle, re-poll
		batch, err := c.driver.ReadAlerts(pollTimeout)
		if err != nil || batch == 0 {
			continue
		}
		c.classifier.Report(batch)
		if err := c.ProcessBatch(batch); err != nil {
			return err
		}
	}
}

// ProcessBatch evaluates the lifecycle transitions for one alert batch.
// Bus-off and bus-recovered are mutually exclusive within one batch by
// hardware contract and are evaluated independently of reporting.
func (c *Controller) ProcessBatch(batch uint32) error {
	if batch&twai.AlertBusOff != 0 {
		c.setState(StateBusOffDetected)
		log.Infof("[CTRL] bus off state")
		c.mu.Lock()
		tick := c.countdownTick
		c.mu.Unlock()
		for i := CountdownTicks; i > 0; i-- {
			log.Warnf("[CTRL] initiate bus recovery in %d", i)
			time.Sleep(tick)
		}
		// Recovery needs 128 occurrences of the bus free signal,
		// completion arrives as a BUS_RECOVERED alert
		if err := c.driver.InitiateRecovery(); err != nil {
			log.Errorf("[CTRL] could not initiate recovery : %v", err)
		}
		log.Infof("[CTRL] initiate bus recovery")
		c.setState(StateRecoveryInProgress)
	}
	if batch&twai.AlertBusRecovered != 0 {
		c.setState(StateRecovered)
		log.Infof("[CTRL] bus recovered")
		if err := c.driver.Start(); err != nil {
			return fmt.Errorf("driver restart : %w", err)
		}
		log.Infof("[CTRL] driver started again")
		c.setState(StateRunning)
	}
	return nil
}
