// Package eventbus mirrors chat client events onto a watermill topic so an external
// rendering container (or `wizchat tail`) can follow a session.
package eventbus

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/wizchat/pkg/webchat"
)

const DefaultTopic = "wizchat.events"

// Forwarder is a webchat.Observer that queues events and publishes them from Run.
// OnEvent never blocks: when the queue is full the event is dropped and counted.
type Forwarder struct {
	pub     message.Publisher
	topic   string
	queue   chan webchat.Event
	dropped atomic.Uint64
}

var _ webchat.Observer = &Forwarder{}

func NewForwarder(pub message.Publisher, topic string, buffer int) *Forwarder {
	if topic == "" {
		topic = DefaultTopic
	}
	if buffer <= 0 {
		buffer = 256
	}
	return &Forwarder{pub: pub, topic: topic, queue: make(chan webchat.Event, buffer)}
}

func (f *Forwarder) Topic() string { return f.topic }

func (f *Forwarder) OnEvent(ev webchat.Event) {
	select {
	case f.queue <- ev:
	default:
		if n := f.dropped.Add(1); n == 1 || n%100 == 0 {
			log.Warn().Str("component", "eventbus").Uint64("dropped", n).Msg("forwarder queue full, dropping events")
		}
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (f *Forwarder) Dropped() uint64 { return f.dropped.Load() }

// Run publishes queued events until ctx is done. Remaining queued events are
// published before returning.
func (f *Forwarder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case ev := <-f.queue:
					f.publish(ev)
				default:
					return nil
				}
			}
		case ev := <-f.queue:
			f.publish(ev)
		}
	}
}

func (f *Forwarder) publish(ev webchat.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Warn().Err(err).Str("component", "eventbus").Str("kind", string(ev.Kind)).Msg("failed to encode event")
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("kind", string(ev.Kind))
	msg.Metadata.Set("session_id", ev.SessionID)
	if err := f.pub.Publish(f.topic, msg); err != nil {
		log.Warn().Err(err).Str("component", "eventbus").Str("topic", f.topic).Msg("publish failed")
	}
}

// Consume subscribes to topic and hands every decoded event to fn until ctx is done
// or the subscription closes. Undecodable messages are acked and skipped; an error
// from fn nacks the message and stops consumption.
func Consume(ctx context.Context, sub message.Subscriber, topic string, fn func(webchat.Event) error) error {
	if topic == "" {
		topic = DefaultTopic
	}
	ch, err := sub.Subscribe(ctx, topic)
	if err != nil {
		return errors.Wrapf(err, "subscribe %s", topic)
	}
	log.Debug().Str("component", "eventbus").Str("topic", topic).Msg("consuming events")
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev webchat.Event
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				log.Warn().Err(err).Str("component", "eventbus").Str("uuid", msg.UUID).Msg("failed to decode event")
				msg.Ack()
				continue
			}
			if err := fn(ev); err != nil {
				msg.Nack()
				return err
			}
			msg.Ack()
		}
	}
}
