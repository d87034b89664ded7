// Package config holds the node configuration with defaults matching the
// reference hardware setup, optionally overridden from an INI file.
package config

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/giga993/TWAI-Tester/pkg/twai"
	"gopkg.in/ini.v1"
)

type DriverSection struct {
	Interface     string        `ini:"interface"`
	Channel       string        `ini:"channel"`
	Bitrate       int           `ini:"bitrate"`
	TxPin         int           `ini:"tx_pin"`
	RxPin         int           `ini:"rx_pin"`
	TxQueueLen    int           `ini:"tx_queue_len"`
	RxQueueLen    int           `ini:"rx_queue_len"`
	StartupSettle time.Duration `ini:"startup_settle"`
}

type TransmitSection struct {
	ID       uint32        `ini:"id"`
	Extended bool          `ini:"extended"`
	Payload  string        `ini:"payload"`
	Period   time.Duration `ini:"period"`
	Timeout  time.Duration `ini:"timeout"`
	Backoff  time.Duration `ini:"backoff"`
}

type ReceiveSection struct {
	Timeout       time.Duration `ini:"timeout"`
	DataCheckID   uint32        `ini:"data_check_id"`
	Expected      string        `ini:"expected"`
	StrictCheck   bool          `ini:"strict_check"`
	StrictCheckID uint32        `ini:"strict_check_id"`
}

type RecoverySection struct {
	CountdownTick time.Duration `ini:"countdown_tick"`
	PollTimeout   time.Duration `ini:"poll_timeout"`
}

type NodeConfig struct {
	Driver   DriverSection   `ini:"driver"`
	Transmit TransmitSection `ini:"transmit"`
	Receive  ReceiveSection  `ini:"receive"`
	Recovery RecoverySection `ini:"recovery"`
}

// Default reproduces the reference setup : 125 kbit, TX pin 33, RX pin 32,
// queues of 20, 100ms transmit cadence with 500ms not-ready backoff,
// 1s receive timeout, 3x1s recovery countdown.
func Default() *NodeConfig {
	return &NodeConfig{
		Driver: DriverSection{
			Interface:     "virtual",
			Channel:       "twai0",
			Bitrate:       125_000,
			TxPin:         33,
			RxPin:         32,
			TxQueueLen:    20,
			RxQueueLen:    20,
			StartupSettle: 100 * time.Millisecond,
		},
		Transmit: TransmitSection{
			ID:       0x5000,
			Extended: true,
			Payload:  "0123456789abcdef",
			Period:   100 * time.Millisecond,
			Timeout:  100 * time.Millisecond,
			Backoff:  500 * time.Millisecond,
		},
		Receive: ReceiveSection{
			Timeout:       1000 * time.Millisecond,
			DataCheckID:   0x10000,
			Expected:      "abcdef0123456789",
			StrictCheck:   false,
			StrictCheckID: 0x01,
		},
		Recovery: RecoverySection{
			CountdownTick: 1 * time.Second,
			PollTimeout:   500 * time.Millisecond,
		},
	}
}

// Load reads an INI file over the defaults
func Load(path string) (*NodeConfig, error) {
	cfg := Default()
	err := ini.MapTo(cfg, path)
	if err != nil {
		return nil, fmt.Errorf("could not load config %v : %w", path, err)
	}
	if _, err := cfg.TxFrame(); err != nil {
		return nil, err
	}
	if _, err := cfg.ExpectedPayload(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DriverConfig builds the driver install configuration
func (c *NodeConfig) DriverConfig() twai.Config {
	return twai.Config{
		General: twai.GeneralConfig{
			Mode:          twai.ModeNormal,
			TxPin:         c.Driver.TxPin,
			RxPin:         c.Driver.RxPin,
			TxQueueLen:    c.Driver.TxQueueLen,
			RxQueueLen:    c.Driver.RxQueueLen,
			AlertsEnabled: twai.AlertAll,
		},
		Timing: twai.TimingConfig{Bitrate: c.Driver.Bitrate},
		Filter: twai.FilterAcceptAll(),
	}
}

// TxFrame builds the periodic frame from the transmit section
func (c *NodeConfig) TxFrame() (twai.Frame, error) {
	payload, err := parsePayload(c.Transmit.Payload)
	if err != nil {
		return twai.Frame{}, fmt.Errorf("transmit payload : %w", err)
	}
	var flags uint8
	if c.Transmit.Extended {
		flags |= twai.FrameFlagExtended
	}
	frame := twai.Frame{ID: c.Transmit.ID, Flags: flags, DLC: uint8(len(payload))}
	copy(frame.Data[:], payload)
	return frame, nil
}

// ExpectedPayload parses the data-check reference payload
func (c *NodeConfig) ExpectedPayload() ([]byte, error) {
	payload, err := parsePayload(c.Receive.Expected)
	if err != nil {
		return nil, fmt.Errorf("receive expected payload : %w", err)
	}
	return payload, nil
}

func parsePayload(value string) ([]byte, error) {
	cleaned := strings.NewReplacer(" ", "", ":", "").Replace(value)
	payload, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, err
	}
	if len(payload) > 8 {
		return nil, fmt.Errorf("payload longer than 8 bytes : %v", value)
	}
	return payload, nil
}
