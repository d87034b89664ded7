package node

import (
	"strings"
	"testing"
	"time"

	"github.com/giga993/TWAI-Tester/pkg/twai"
	"github.com/giga993/TWAI-Tester/pkg/twai/virtual"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func countLogMessages(hook *test.Hook, substring string) int {
	count := 0
	for _, entry := range hook.AllEntries() {
		if strings.Contains(entry.Message, substring) {
			count++
		}
	}
	return count
}

var sampleData = [8]byte{0xAB, 0xCD, 0xEF, 0x01, 0x23, 0x45, 0x67, 0x89}

func dataCheckFrame(data [8]byte) twai.Frame {
	return twai.Frame{ID: 0x10000, Flags: twai.FrameFlagExtended, DLC: 8, Data: data}
}

func TestReceiveDataCheck(t *testing.T) {
	node, driver := createNodeTest(t)
	done := make(chan error, 1)
	go func() { done <- node.Run() }()
	defer func() {
		node.Stop()
		<-done
	}()

	assert.Eventually(t, func() bool {
		return driver.IsStarted()
	}, time.Second, 5*time.Millisecond)

	t.Run("matching payload increments the silent counter", func(t *testing.T) {
		driver.InjectFrame(dataCheckFrame(sampleData))
		assert.Eventually(t, func() bool {
			return node.MatchCount() == 1
		}, time.Second, 5*time.Millisecond)
		assert.EqualValues(t, 0, node.MismatchCount())
	})

	t.Run("single byte deviation is one mismatch event", func(t *testing.T) {
		corrupted := sampleData
		corrupted[3] ^= 0x01
		driver.InjectFrame(dataCheckFrame(corrupted))
		assert.Eventually(t, func() bool {
			return node.MismatchCount() == 1
		}, time.Second, 5*time.Millisecond)
		assert.EqualValues(t, 1, node.MatchCount())
	})

	t.Run("short frame is a mismatch", func(t *testing.T) {
		frame := dataCheckFrame(sampleData)
		frame.DLC = 4
		driver.InjectFrame(frame)
		assert.Eventually(t, func() bool {
			return node.MismatchCount() == 2
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("other identifiers do not touch the counters", func(t *testing.T) {
		driver.InjectFrame(twai.Frame{ID: 0x42, DLC: 3, Data: [8]byte{1, 2, 3}})
		time.Sleep(50 * time.Millisecond)
		assert.EqualValues(t, 1, node.MatchCount())
		assert.EqualValues(t, 2, node.MismatchCount())
	})

	t.Run("oversized length is a mismatch, not a panic", func(t *testing.T) {
		frame := dataCheckFrame(sampleData)
		frame.DLC = 12
		driver.InjectFrame(frame)
		assert.Eventually(t, func() bool {
			return node.MismatchCount() == 3
		}, time.Second, 5*time.Millisecond)

		driver.InjectFrame(twai.Frame{ID: 0x42, DLC: 15})
		// The task keeps consuming frames afterwards
		driver.InjectFrame(dataCheckFrame(sampleData))
		assert.Eventually(t, func() bool {
			return node.MatchCount() == 2
		}, time.Second, 5*time.Millisecond)
	})
}

func TestReceiveStrictCheck(t *testing.T) {
	previousLevel := log.GetLevel()
	log.SetLevel(log.DebugLevel)
	defer log.SetLevel(previousLevel)
	hook := test.NewGlobal()
	defer hook.Reset()

	cfg := createConfigTest()
	cfg.Receive.StrictCheck = true
	d, err := virtual.NewVirtualDriver("test")
	assert.Nil(t, err)
	driver := d.(*virtual.Driver)
	node, err := NewNode(driver, cfg)
	assert.Nil(t, err)

	done := make(chan error, 1)
	go func() { done <- node.Run() }()
	defer func() {
		node.Stop()
		<-done
	}()

	assert.Eventually(t, func() bool {
		return driver.IsStarted()
	}, time.Second, 5*time.Millisecond)

	t.Run("matching payload is logged as correct", func(t *testing.T) {
		frame := twai.Frame{ID: 0x01, DLC: 8, Data: [8]byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xAB, 0xCD, 0xEF}}
		driver.InjectFrame(frame)
		assert.Eventually(t, func() bool {
			return countLogMessages(hook, "got correct message") == 1
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("deviating payload is logged as wrong", func(t *testing.T) {
		frame := twai.Frame{ID: 0x01, DLC: 8, Data: [8]byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xAB, 0xCD, 0x00}}
		driver.InjectFrame(frame)
		assert.Eventually(t, func() bool {
			return countLogMessages(hook, "got wrong message") == 1
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("strict check frames do not touch the data check counters", func(t *testing.T) {
		assert.EqualValues(t, 0, node.MatchCount())
		assert.EqualValues(t, 0, node.MismatchCount())
	})
}
