package bus

import "context"

// One channel per authenticated user, one shared channel per staff group.
// A courier is addressed through its user channel like any other user.
const (
	userTopicPrefix  = "notify:user:"
	groupTopicPrefix = "notify:group:"
)

func UserTopic(userID string) string { return userTopicPrefix + userID }

func GroupTopic(tag string) string { return groupTopicPrefix + tag }

type Message struct {
	Topic   string
	Payload []byte
}

// Bus is the real-time push transport. Publish is best-effort: callers treat
// errors as log-and-continue, never as a business failure.
type Bus interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	// Subscribe binds the connection to its topics once; membership is not
	// re-evaluated afterwards. The returned func closes the subscription.
	Subscribe(ctx context.Context, topics ...string) (<-chan Message, func() error, error)
}
