// Package node ties the tasks together : periodic transmit, receive with
// payload validation and the recovery control task, sequenced over a single
// TWAI driver.
package node

import (
	"fmt"
	"sync"
	"time"

	"github.com/giga993/TWAI-Tester/internal/gate"
	"github.com/giga993/TWAI-Tester/pkg/alert"
	"github.com/giga993/TWAI-Tester/pkg/config"
	"github.com/giga993/TWAI-Tester/pkg/recovery"
	"github.com/giga993/TWAI-Tester/pkg/twai"
	log "github.com/sirupsen/logrus"
)

// A Node runs the three tasks around one driver. Startup ordering is
// enforced with gates : the control task starts the driver, then releases
// the transmit task. The receive task has no ordering dependency.
type Node struct {
	driver     twai.Driver
	cfg        *config.NodeConfig
	controller *recovery.Controller

	txGate   *gate.Gate
	ctrlGate *gate.Gate
	doneGate *gate.Gate

	txFrame  twai.Frame
	expected []byte

	exit      chan bool
	wgProcess sync.WaitGroup

	mu            sync.Mutex
	matchCount    uint32
	mismatchCount uint32
	runErr        error
}

func NewNode(driver twai.Driver, cfg *config.NodeConfig) (*Node, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	txFrame, err := cfg.TxFrame()
	if err != nil {
		return nil, err
	}
	expected, err := cfg.ExpectedPayload()
	if err != nil {
		return nil, err
	}
	node := &Node{
		driver:   driver,
		cfg:      cfg,
		txGate:   gate.New(),
		ctrlGate: gate.New(),
		doneGate: gate.New(),
		txFrame:  txFrame,
		expected: expected,
		exit:     make(chan bool),
	}
	classifier := alert.NewClassifier(nil, driver)
	node.controller = recovery.NewController(driver, classifier, node.txGate)
	node.controller.SetCountdownTick(cfg.Recovery.CountdownTick)
	node.controller.SetPollTimeout(cfg.Recovery.PollTimeout)
	return node, nil
}

// Run installs the driver, launches the tasks and blocks until Stop is
// called. Install and uninstall failures are fatal and returned with the
// failing call identified. In normal operation nothing signals completion,
// the node runs until externally stopped.
func (node *Node) Run() error {
	node.launch("tx", node.transmitTask)
	node.launch("rx", node.receiveTask)
	node.launch("ctrl", node.controlTask)

	if err := node.driver.Install(node.cfg.DriverConfig()); err != nil {
		node.teardownTasks()
		return fmt.Errorf("driver install : %w", err)
	}
	log.Infof("[MAIN] driver installed")

	// Start control task
	node.ctrlGate.Release()
	time.Sleep(node.cfg.Driver.StartupSettle)

	// Wait for completion, never signalled in normal operation
	node.doneGate.Acquire()

	node.teardownTasks()
	if err := node.driver.Uninstall(); err != nil {
		return fmt.Errorf("driver uninstall : %w", err)
	}
	log.Infof("[MAIN] driver uninstalled")

	node.mu.Lock()
	defer node.mu.Unlock()
	return node.runErr
}

// Stop signals the completion gate and tears the node down
func (node *Node) Stop() {
	node.doneGate.Release()
}

func (node *Node) Controller() *recovery.Controller {
	return node.controller
}

// Silent counter of valid data-check frames
func (node *Node) MatchCount() uint32 {
	node.mu.Lock()
	defer node.mu.Unlock()
	return node.matchCount
}

func (node *Node) MismatchCount() uint32 {
	node.mu.Lock()
	defer node.mu.Unlock()
	return node.mismatchCount
}

func (node *Node) launch(name string, task func()) {
	log.Debugf("[MAIN] launching %v task", name)
	node.wgProcess.Add(1)
	go func() {
		defer node.wgProcess.Done()
		task()
	}()
}

func (node *Node) teardownTasks() {
	select {
	case <-node.exit:
	default:
		close(node.exit)
	}
	// Unblock tasks still waiting on their start gates
	node.txGate.Release()
	node.ctrlGate.Release()
	node.wgProcess.Wait()
}

func (node *Node) controlTask() {
	node.ctrlGate.Acquire()
	select {
	case <-node.exit:
		return
	default:
	}
	if err := node.controller.Run(node.exit); err != nil {
		log.Errorf("[CTRL] control task aborted : %v", err)
		node.mu.Lock()
		node.runErr = err
		node.mu.Unlock()
		node.doneGate.Release()
	}
}
