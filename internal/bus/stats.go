package bus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// RetainedPublisher publishes last-known-state documents.
type RetainedPublisher interface {
	PublishRetained(topic string, payload []byte) error
}

// StatsSource produces the service-wide stats document.
type StatsSource func() interface{}

// StatsPublisher periodically publishes the combined service stats as a
// retained message, so late subscribers see the last report immediately.
type StatsPublisher struct {
	pub      RetainedPublisher
	topic    string
	interval time.Duration
	source   StatsSource
	log      zerolog.Logger
}

func NewStatsPublisher(pub RetainedPublisher, topic string, interval time.Duration, source StatsSource, log zerolog.Logger) *StatsPublisher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &StatsPublisher{
		pub:      pub,
		topic:    topic,
		interval: interval,
		source:   source,
		log:      log,
	}
}

// Run publishes until the context is canceled.
func (p *StatsPublisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			payload, err := json.Marshal(p.source())
			if err != nil {
				p.log.Error().Err(err).Msg("marshal stats")
				continue
			}
			if err := p.pub.PublishRetained(p.topic, payload); err != nil {
				p.log.Error().Err(err).Msg("failed to publish stats")
			}
		}
	}
}
