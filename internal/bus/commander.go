package bus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/AshrafMahmoudS/ALPR-Barrier-Control-System/internal/domain/alpr"
)

// Commander puts barrier commands onto the command topic. The detection
// orchestrator talks to barriers only through this channel, never directly.
type Commander struct {
	pub   Publisher
	topic string
}

func NewCommander(pub Publisher, topic string) *Commander {
	return &Commander{pub: pub, topic: topic}
}

func (c *Commander) SendCommand(barrierID, action string) error {
	cmd := alpr.BarrierCommand{
		BarrierID: barrierID,
		Action:    action,
		Timestamp: time.Now().UTC(),
	}
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal barrier command: %w", err)
	}
	return c.pub.Publish(c.topic, payload)
}
