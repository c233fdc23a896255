package profile

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/plumeapp/plume/model"
	Logger "github.com/plumeapp/plume/utils/log"
)

// BehaviorTopic is the event bus topic behavior events travel on.
const BehaviorTopic = "behavior_event"

// Event is one engagement event emitted by the read path.
type Event struct {
	UserID string               `json:"userId"`
	PostID string               `json:"postId"`
	Action model.BehaviorAction `json:"action"`
}

// BehaviorRecorder is the slice of Store the tracker consumes, split out so
// tests can observe consumption without a database.
type BehaviorRecorder interface {
	RecordBehavior(ctx context.Context, userId string, postId string, action model.BehaviorAction) error
}

// Tracker decouples behavior tracking from the request that triggered it.
// Handlers publish an event and move on; the tracker consumes the bus and
// updates profiles. Failures on either side are logged and swallowed: a
// page view must never be slowed or failed by profile bookkeeping, and the
// profile is allowed to lag or miss an event.
type Tracker struct {
	Recorder BehaviorRecorder
	Bus      *gochannel.GoChannel
}

func NewTracker(recorder BehaviorRecorder, bus *gochannel.GoChannel) *Tracker {
	return &Tracker{Recorder: recorder, Bus: bus}
}

// Publish emits one event to the bus, fire-and-forget.
func (t *Tracker) Publish(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		Logger.Log.Error("fail to encode behavior event: ", err)
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	if err := t.Bus.Publish(BehaviorTopic, msg); err != nil {
		Logger.Log.Error("fail to publish behavior event: ", err)
	}
}

// Run consumes behavior events until ctx is cancelled. Events are acked up
// front: a failed profile update is not worth a redelivery loop.
func (t *Tracker) Run(ctx context.Context) error {
	messages, err := t.Bus.Subscribe(ctx, BehaviorTopic)
	if err != nil {
		return err
	}

	for msg := range messages {
		msg.Ack()

		var event Event
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			Logger.Log.Error("malformed behavior event, dropping: ", err)
			continue
		}

		if err := t.Recorder.RecordBehavior(ctx, event.UserID, event.PostID, event.Action); err != nil {
			Logger.Log.Error("fail to record behavior: ", err)
		}
	}

	return nil
}
