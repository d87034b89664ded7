package node

import (
	"errors"
	"time"

	"github.com/giga993/TWAI-Tester/pkg/twai"
	log "github.com/sirupsen/logrus"
)

// Transmit task : waits once on the start gate, then offers the periodic
// frame at a fixed cadence. A not-ready rejection backs off without
// advancing the schedule, the cadence grid stays where it was.
func (node *Node) transmitTask() {
	node.txGate.Acquire()
	select {
	case <-node.exit:
		return
	default:
	}
	log.Infof("[TX] transmit task started, frame x%x every %v", node.txFrame.ID, node.cfg.Transmit.Period)

	period := node.cfg.Transmit.Period
	backoff := node.cfg.Transmit.Backoff
	next := time.Now()
	for {
		select {
		case <-node.exit:
			log.Infof("[TX] exited transmit task")
			return
		default:
		}
		err := node.driver.Transmit(node.txFrame, node.cfg.Transmit.Timeout)
		if errors.Is(err, twai.ErrInvalidState) {
			// Driver not started yet, retry on the same schedule
			log.Debugf("[TX] driver not ready, backing off %v", backoff)
			time.Sleep(backoff)
			continue
		}
		if err != nil {
			log.Debugf("[TX] transmit error : %v", err)
		}
		next = next.Add(period)
		if wait := time.Until(next); wait > 0 {
			time.Sleep(wait)
		}
		// Resync the grid to the actual wake time
		next = time.Now()
	}
}
