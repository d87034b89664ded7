// Package twai defines the contract with a TWAI (CAN-class) controller driver.
// Concrete drivers live in subpackages and register themselves with [RegisterDriver].
package twai

import "time"

// Passing WaitForever as a timeout blocks until the operation completes
const WaitForever time.Duration = -1

const FrameFlagExtended uint8 = 0x01
const FrameFlagRTR uint8 = 0x02

// Alert bits raised by the controller on state or error transitions.
// Values match the hardware-defined flags, one bit per condition.
const (
	AlertTxIdle             uint32 = 0x00000001
	AlertTxSuccess          uint32 = 0x00000002
	AlertRxData             uint32 = 0x00000004
	AlertBelowErrWarn       uint32 = 0x00000008
	AlertErrActive          uint32 = 0x00000010
	AlertRecoveryInProgress uint32 = 0x00000020
	AlertBusRecovered       uint32 = 0x00000040
	AlertArbLost            uint32 = 0x00000080
	AlertAboveErrWarn       uint32 = 0x00000100
	AlertBusError           uint32 = 0x00000200
	AlertTxFailed           uint32 = 0x00000400
	AlertRxQueueFull        uint32 = 0x00000800
	AlertErrPass            uint32 = 0x00001000
	AlertBusOff             uint32 = 0x00002000
	AlertRxFifoOverrun      uint32 = 0x00004000
	AlertTxRetried          uint32 = 0x00008000
	AlertPeriphReset        uint32 = 0x00010000

	AlertNone uint32 = 0x00000000
	AlertAll  uint32 = 0x0001FFFF
)

// A TWAI frame
type Frame struct {
	ID    uint32
	Flags uint8
	DLC   uint8
	Data  [8]byte
}

func NewFrame(id uint32, flags uint8, dlc uint8) Frame {
	return Frame{ID: id, Flags: flags, DLC: dlc}
}

// Controller state as reported in a status snapshot
type State uint8

const (
	StateStopped State = iota
	StateRunning
	StateBusOff
	StateRecovering
)

var stateDescription = map[State]string{
	StateStopped:    "STOPPED",
	StateRunning:    "RUNNING",
	StateBusOff:     "BUS-OFF",
	StateRecovering: "RECOVERING",
}

func (s State) String() string {
	description, ok := stateDescription[s]
	if ok {
		return description
	}
	return "UNKNOWN"
}

// Point-in-time copy of the controller counters, fetched on demand.
// Never cached across alert cycles.
type StatusInfo struct {
	State          State
	MsgsToTx       uint32
	MsgsToRx       uint32
	TxErrorCounter uint32
	RxErrorCounter uint32
	TxFailedCount  uint32
	RxMissedCount  uint32
	RxOverrunCount uint32
	ArbLostCount   uint32
	BusErrorCount  uint32
}

// A TWAI controller driver.
// Transmit, Receive and ReadAlerts block up to the given timeout and are safe
// for concurrent use from different goroutines. Start is idempotent.
type Driver interface {
	Install(config Config) error
	Uninstall() error
	Start() error
	InitiateRecovery() error
	Transmit(frame Frame, timeout time.Duration) error
	Receive(timeout time.Duration) (Frame, error)
	ReadAlerts(timeout time.Duration) (uint32, error)
	ReconfigureAlerts(mask uint32) error
	StatusInfo() (StatusInfo, error)
}
