package alert

import (
	"testing"

	"github.com/giga993/TWAI-Tester/pkg/twai"
	"github.com/stretchr/testify/assert"
)

type countingStatusReader struct {
	calls int
	err   error
}

func (r *countingStatusReader) StatusInfo() (twai.StatusInfo, error) {
	r.calls++
	if r.err != nil {
		return twai.StatusInfo{}, r.err
	}
	return twai.StatusInfo{State: twai.StateRunning}, nil
}

func TestClassify(t *testing.T) {
	classifier := NewClassifier(nil, nil)

	t.Run("empty batch", func(t *testing.T) {
		assert.Empty(t, classifier.Classify(0))
	})

	t.Run("severity follows reportable flag", func(t *testing.T) {
		events := classifier.Classify(twai.AlertBusOff)
		assert.Len(t, events, 1)
		assert.Equal(t, "BUS_OFF", events[0].Name)
		assert.Equal(t, SeverityDiagnostic, events[0].Severity)

		events = classifier.Classify(twai.AlertTxSuccess)
		assert.Len(t, events, 1)
		assert.Equal(t, "TX_SUCCESS", events[0].Name)
		assert.Equal(t, SeverityDebug, events[0].Severity)
	})

	t.Run("registry order is stable", func(t *testing.T) {
		batch := twai.AlertBusOff | twai.AlertTxSuccess | twai.AlertBusError
		events := classifier.Classify(batch)
		assert.Len(t, events, 3)
		assert.Equal(t, "TX_SUCCESS", events[0].Name)
		assert.Equal(t, "BUS_ERROR", events[1].Name)
		assert.Equal(t, "BUS_OFF", events[2].Name)
	})

	t.Run("unknown bits are ignored", func(t *testing.T) {
		events := classifier.Classify(0x80000000 | twai.AlertBusOff)
		assert.Len(t, events, 1)
		assert.Equal(t, "BUS_OFF", events[0].Name)
	})

	t.Run("full registry", func(t *testing.T) {
		registry := DefaultRegistry()
		events := classifier.Classify(twai.AlertAll)
		assert.Len(t, events, len(registry))
		for i, descriptor := range registry {
			assert.Equal(t, descriptor.Name, events[i].Name)
			assert.Equal(t, descriptor.Bit, events[i].Bit)
		}
	})
}

func TestReportStatusFetch(t *testing.T) {
	t.Run("one fetch per batch with several diagnostic bits", func(t *testing.T) {
		status := &countingStatusReader{}
		classifier := NewClassifier(nil, status)
		events := classifier.Report(twai.AlertBusOff | twai.AlertErrPass | twai.AlertTxFailed)
		assert.Len(t, events, 3)
		assert.Equal(t, 1, status.calls)
	})

	t.Run("no fetch without diagnostic bits", func(t *testing.T) {
		status := &countingStatusReader{}
		classifier := NewClassifier(nil, status)
		classifier.Report(twai.AlertTxSuccess | twai.AlertRxData)
		assert.Equal(t, 0, status.calls)
	})

	t.Run("fetch failure does not stop reporting", func(t *testing.T) {
		status := &countingStatusReader{err: twai.ErrFail}
		classifier := NewClassifier(nil, status)
		events := classifier.Report(twai.AlertBusOff | twai.AlertErrPass)
		assert.Len(t, events, 2)
		assert.Equal(t, 1, status.calls)
	})

	t.Run("nil status reader", func(t *testing.T) {
		classifier := NewClassifier(nil, nil)
		events := classifier.Report(twai.AlertBusOff)
		assert.Len(t, events, 1)
	})
}
