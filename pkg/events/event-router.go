package events

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// EventRouter carries graph events over an in-process gochannel pubsub.
//
// Publishing blocks until the subscriber acknowledged the message, so a run
// that returned has had all its events consumed. Handlers added with
// AddHandler only receive messages while Run is active; Subscribe works
// without it.
type EventRouter struct {
	logger watermill.LoggerAdapter
	pubSub *gochannel.GoChannel
	router *message.Router
}

type EventRouterOption func(*EventRouter)

func WithLogger(logger watermill.LoggerAdapter) EventRouterOption {
	return func(r *EventRouter) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewEventRouter(options ...EventRouterOption) (*EventRouter, error) {
	ret := &EventRouter{logger: watermill.NopLogger{}}
	for _, o := range options {
		o(ret)
	}

	ret.pubSub = gochannel.NewGoChannel(gochannel.Config{
		BlockPublishUntilSubscriberAck: true,
	}, ret.logger)

	router, err := message.NewRouter(message.RouterConfig{}, ret.logger)
	if err != nil {
		return nil, errors.Wrap(err, "create watermill router")
	}
	ret.router = router
	return ret, nil
}

// Sink returns an EventSink publishing to topic.
func (e *EventRouter) Sink(topic string) *WatermillSink {
	return NewWatermillSink(e.pubSub, topic)
}

// Subscribe returns the message channel of topic. It is closed when ctx is done.
func (e *EventRouter) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return e.pubSub.Subscribe(ctx, topic)
}

// AddHandler registers f for topic. Handlers ack their messages themselves.
func (e *EventRouter) AddHandler(name string, topic string, f func(msg *message.Message) error) {
	e.router.AddNoPublisherHandler(name, topic, e.pubSub, f)
}

func (e *EventRouter) Running() chan struct{} {
	return e.router.Running()
}

func (e *EventRouter) Run(ctx context.Context) error {
	return e.router.Run(ctx)
}

// Close shuts down the pubsub first so blocked publishers return, then the router.
func (e *EventRouter) Close() error {
	if err := e.pubSub.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close pubsub")
	}
	if err := e.router.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close router")
		return err
	}
	log.Debug().Msg("Event router closed")
	return nil
}
