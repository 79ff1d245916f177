package bus

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/AshrafMahmoudS/ALPR-Barrier-Control-System/internal/domain/alpr"
)

// BarrierDispatcher is what the listener needs from the barrier registry.
type BarrierDispatcher interface {
	Open(key string, duration time.Duration) error
	Close(key string) error
	Stats(key string) (alpr.BarrierStats, error)
}

// Listener consumes barrier commands from the command topic, dispatches
// them, and publishes the barrier's status after every command.
type Listener struct {
	barriers    BarrierDispatcher
	pub         Publisher
	statusTopic string
	log         zerolog.Logger
}

func NewListener(barriers BarrierDispatcher, pub Publisher, statusTopic string, log zerolog.Logger) *Listener {
	return &Listener{
		barriers:    barriers,
		pub:         pub,
		statusTopic: statusTopic,
		log:         log,
	}
}

// HandleMessage processes one raw command payload. Malformed or failing
// commands are logged and dropped; the listener itself never fails.
func (l *Listener) HandleMessage(payload []byte) {
	var cmd alpr.BarrierCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		l.log.Error().Err(err).Str("payload", string(payload)).Msg("invalid command format")
		return
	}

	l.log.Info().Str("barrier", cmd.BarrierID).Str("action", cmd.Action).Msg("command received")

	var err error
	switch cmd.Action {
	case "open":
		err = l.barriers.Open(cmd.BarrierID, 0)
	case "close":
		err = l.barriers.Close(cmd.BarrierID)
	default:
		l.log.Error().Str("action", cmd.Action).Msg("unknown command action")
		return
	}
	if err != nil {
		l.log.Error().Err(err).Str("barrier", cmd.BarrierID).Str("action", cmd.Action).Msg("command failed")
	}

	l.publishStatus(cmd.BarrierID)
}

// BarrierStateChanged pushes a status update for every barrier transition,
// so subscribers see intermediate states, not just post-command snapshots.
func (l *Listener) BarrierStateChanged(name string, from, to alpr.BarrierState) {
	l.log.Debug().Str("barrier", name).Str("from", string(from)).Str("to", string(to)).Msg("barrier state changed")
	l.publishStatus(name)
}

func (l *Listener) publishStatus(barrierID string) {
	stats, err := l.barriers.Stats(barrierID)
	if err != nil {
		l.log.Error().Err(err).Str("barrier", barrierID).Msg("cannot publish status for unknown barrier")
		return
	}
	payload, err := json.Marshal(stats)
	if err != nil {
		l.log.Error().Err(err).Msg("marshal barrier status")
		return
	}
	if err := l.pub.Publish(l.statusTopic, payload); err != nil {
		l.log.Error().Err(err).Str("barrier", barrierID).Msg("failed to publish barrier status")
	}
}
