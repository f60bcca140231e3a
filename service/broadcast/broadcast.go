// Package broadcast publishes auction events over redis pubsub. Delivery is
// fire-and-forget: a failed publish is counted and logged, never surfaced to
// the operation that produced the event. Consumers that miss an event
// reconcile by re-reading auction state.
package broadcast

import (
	"encoding/json"

	"github.com/gomodule/redigo/redis"
	"github.com/viney-shih/goroutines"

	"github.com/bidhaus/goapi/base/ctx"
	"github.com/bidhaus/goapi/base/log"
	"github.com/bidhaus/goapi/base/metrics"
	"github.com/bidhaus/goapi/domain"
)

const dispatchPoolSize = 64

type envelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

type impl struct {
	pool *redis.Pool
	met  metrics.Service
	disp *goroutines.Pool
}

// New builds a redis-backed publisher with a bounded dispatch pool.
func New(pool *redis.Pool) domain.Publisher {
	return &impl{
		pool: pool,
		met:  metrics.New("broadcast"),
		disp: goroutines.NewPool(dispatchPoolSize),
	}
}

func (im *impl) Publish(context ctx.Ctx, channel, event string, payload interface{}) {
	msg, err := json.Marshal(envelope{Event: event, Payload: payload})
	if err != nil {
		im.met.BumpSum("marshal.err", 1, "event", event)
		context.WithFields(log.Fields{"err": err, "event": event}).Error("failed to marshal event payload")
		return
	}

	if err := im.disp.Schedule(func() {
		im.publish(context, channel, event, msg)
	}); err != nil {
		im.met.BumpSum("schedule.err", 1, "event", event)
		context.WithFields(log.Fields{"err": err, "event": event}).Warn("event dispatch pool saturated, dropping event")
	}
}

func (im *impl) publish(context ctx.Ctx, channel, event string, msg []byte) {
	defer im.met.BumpTime("publish.latency", "event", event).End()

	conn := im.pool.Get()
	defer conn.Close()

	if _, err := conn.Do("PUBLISH", channel, msg); err != nil {
		im.met.BumpSum("publish.err", 1, "event", event)
		context.WithFields(log.Fields{
			"err":     err,
			"channel": channel,
			"event":   event,
		}).Error("failed to publish event")
	}
}

// Noop discards every event. Used when no redis is configured.
type Noop struct{}

func (Noop) Publish(ctx.Ctx, string, string, interface{}) {}
