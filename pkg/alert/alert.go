// Package alert classifies controller alert batches against the static
// descriptor registry and reports them on the log stream.
package alert

import (
	"github.com/giga993/TWAI-Tester/pkg/twai"
	log "github.com/sirupsen/logrus"
)

// Severity of a classified alert event
type Severity uint8

const (
	SeverityDebug Severity = iota
	SeverityDiagnostic
)

func (s Severity) String() string {
	if s == SeverityDiagnostic {
		return "DIAGNOSTIC"
	}
	return "DEBUG"
}

// Static description of one alert condition the controller can raise
type Descriptor struct {
	Bit    uint32
	Name   string
	Report bool
}

// A classified alert event
type Event struct {
	Name     string
	Bit      uint32
	Severity Severity
}

// The descriptor registry, one entry per hardware alert flag, in the order
// events are reported. Bits are unique and map 1:1 to the controller flags.
func DefaultRegistry() []Descriptor {
	return []Descriptor{
		{twai.AlertTxIdle, "TX_IDLE", false},
		{twai.AlertTxSuccess, "TX_SUCCESS", false},
		{twai.AlertRxData, "RX_DATA", false},
		{twai.AlertBelowErrWarn, "BELOW_ERR_WARN", false},
		{twai.AlertErrActive, "ERR_ACTIVE", false},
		{twai.AlertRecoveryInProgress, "RECOVERY_IN_PROGRESS", true},
		{twai.AlertBusRecovered, "BUS_RECOVERED", true},
		{twai.AlertArbLost, "ARB_LOST", false},
		{twai.AlertAboveErrWarn, "ABOVE_ERR_WARN", false},
		{twai.AlertBusError, "BUS_ERROR", false},
		{twai.AlertTxFailed, "TX_FAILED", true},
		{twai.AlertRxQueueFull, "RX_QUEUE_FULL", true},
		{twai.AlertErrPass, "ERR_PASS", true},
		{twai.AlertBusOff, "BUS_OFF", true},
		{twai.AlertRxFifoOverrun, "RX_FIFO_OVERRUN", true},
		{twai.AlertTxRetried, "TX_RETRIED", true},
		{twai.AlertPeriphReset, "PERIPH_RESET", true},
	}
}

// Provides status snapshots for diagnostic reporting
type StatusReader interface {
	StatusInfo() (twai.StatusInfo, error)
}

// Classifier maps alert batches to named events and reports them.
// The registry is immutable after construction.
type Classifier struct {
	registry []Descriptor
	status   StatusReader
}

// Create a new Classifier. The status reader may be nil, in which case
// diagnostic events are reported without a status snapshot.
func NewClassifier(registry []Descriptor, status StatusReader) *Classifier {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Classifier{registry: registry, status: status}
}

// Classify returns one event per set bit that has a descriptor, in registry
// order. Bits with no descriptor are ignored.
func (c *Classifier) Classify(batch uint32) []Event {
	events := make([]Event, 0, 4)
	for _, descriptor := range c.registry {
		if batch&descriptor.Bit == 0 {
			continue
		}
		severity := SeverityDebug
		if descriptor.Report {
			severity = SeverityDiagnostic
		}
		events = append(events, Event{Name: descriptor.Name, Bit: descriptor.Bit, Severity: severity})
	}
	return events
}

// Report logs every classified event in the batch. The first diagnostic event
// triggers a single status snapshot fetch for the whole batch. A failed fetch
// is logged and reporting continues.
func (c *Classifier) Report(batch uint32) []Event {
	events := c.Classify(batch)
	statusLogged := false
	for _, event := range events {
		if event.Severity == SeverityDiagnostic {
			if !statusLogged {
				c.logStatus()
				statusLogged = true
			}
			log.Errorf("[CTRL] !!! ALERT !!!: %s (x%x/x%x)", event.Name, event.Bit, batch)
		} else {
			log.Debugf("[CTRL] !!! ALERT !!!: %s (x%x/x%x)", event.Name, event.Bit, batch)
		}
	}
	return events
}

func (c *Classifier) logStatus() {
	if c.status == nil {
		return
	}
	status, err := c.status.StatusInfo()
	if err != nil {
		log.Warnf("[CTRL] could not get twai status : %v", err)
		return
	}
	log.Warnf("[CTRL] TWAI state : %v | msgs_to_tx : %v | msgs_to_rx : %v | tx_error_counter : %v"+
		" | rx_error_counter : %v | tx_failed_count : %v | rx_missed_count : %v"+
		" | rx_overrun_count : %v | arb_lost_count : %v | bus_error_count : %v",
		status.State, status.MsgsToTx, status.MsgsToRx,
		status.TxErrorCounter, status.RxErrorCounter,
		status.TxFailedCount, status.RxMissedCount,
		status.RxOverrunCount, status.ArbLostCount, status.BusErrorCount)
}
