package node

import (
	"bytes"
	"errors"

	"github.com/giga993/TWAI-Tester/pkg/twai"
	log "github.com/sirupsen/logrus"
)

// Receive task : drains inbound frames and validates data-check payloads.
// Pure observer, never touches the bus lifecycle state. Timeouts and
// transport errors are logged and the loop continues.
func (node *Node) receiveTask() {
	log.Infof("[RX] receive task started")

	for {
		select {
		case <-node.exit:
			log.Infof("[RX] exited receive task")
			return
		default:
		}
		frame, err := node.driver.Receive(node.cfg.Receive.Timeout)
		switch {
		case err == nil:
			node.handleFrame(frame)
		case errors.Is(err, twai.ErrTimeout):
			log.Errorf("[RX] receive timed out")
		default:
			log.Errorf("[RX] error receiving frame : %v", err)
		}
	}
}

// Clamp the payload view, a misbehaving driver may report DLC > 8
func payload(frame twai.Frame) []byte {
	if frame.DLC > 8 {
		return frame.Data[:]
	}
	return frame.Data[:frame.DLC]
}

func (node *Node) handleFrame(frame twai.Frame) {
	switch frame.ID {
	case node.cfg.Receive.DataCheckID:
		node.checkDataFrame(frame)
	default:
		if node.cfg.Receive.StrictCheck && frame.ID == node.cfg.Receive.StrictCheckID {
			node.strictCheckFrame(frame)
			return
		}
		log.Errorf("[RX] message id x%x (%d), len %d, data % X",
			frame.ID, frame.ID, frame.DLC, payload(frame))
	}
}

// Compare a data-check frame against the expected payload. A match is a
// silent counter increment, any deviation is exactly one error event
// carrying the running match count.
func (node *Node) checkDataFrame(frame twai.Frame) {
	if int(frame.DLC) == len(node.expected) && bytes.Equal(payload(frame), node.expected) {
		node.mu.Lock()
		node.matchCount++
		node.mu.Unlock()
		return
	}
	node.mu.Lock()
	node.mismatchCount++
	count := node.matchCount
	node.mu.Unlock()
	log.Errorf("[RX] message id x%x (%d), len %d, data % X, msg cnt %d",
		frame.ID, frame.ID, frame.DLC, payload(frame), count)
}

// Secondary strict checker, off by default. Logs match and mismatch rather
// than counting silently.
func (node *Node) strictCheckFrame(frame twai.Frame) {
	expected := node.txFrame.Data
	if frame.Data == expected {
		log.Debugf("[RX] got correct message id %d data % X", frame.ID, frame.Data[:])
		return
	}
	log.Errorf("[RX] got wrong message id %d data % X", frame.ID, frame.Data[:])
}
