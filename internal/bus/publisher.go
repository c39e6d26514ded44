// Package bus mirrors broadcast envelopes onto NATS so external consumers
// (recorders, overflow displays, integrations) can follow event rooms
// without holding a WebSocket to this process.
package bus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/cronology/cronology/internal/events"
)

// DefaultSubjectPrefix is the prefix for per-event subjects; envelopes for
// event 42 land on "cronology.events.42".
const DefaultSubjectPrefix = "cronology.events"

// Publisher publishes broadcast envelopes to per-event NATS subjects.
// Publishing is fire-and-forget; a broker outage never blocks a mutation.
type Publisher struct {
	nc            *nats.Conn
	subjectPrefix string
}

// Connect dials NATS and returns a publisher.
func Connect(url, subjectPrefix string) (*Publisher, error) {
	if subjectPrefix == "" {
		subjectPrefix = DefaultSubjectPrefix
	}

	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	log.Info().Str("url", url).Str("subject_prefix", subjectPrefix).Msg("NATS event mirror connected")
	return &Publisher{nc: nc, subjectPrefix: subjectPrefix}, nil
}

// Broadcast implements events.Broadcaster.
func (p *Publisher) Broadcast(eventID int64, env *events.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Int64("event_id", eventID).Msg("failed to marshal envelope for NATS")
		return
	}

	subject := fmt.Sprintf("%s.%d", p.subjectPrefix, eventID)
	if err := p.nc.Publish(subject, data); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("failed to publish envelope to NATS")
	}
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
