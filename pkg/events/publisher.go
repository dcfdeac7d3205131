// Package events carries anonymized execution announcements out of the
// engine. Transports (websocket hub, gossipsub) implement Publisher; the
// engine never knows who is listening.
package events

// Execution is the public shape of a settled match: token, price, amount,
// time. No commitments, no nullifiers, no party identity.
type Execution struct {
	Token     string `json:"token"`
	Price     int64  `json:"price"`
	Amount    int64  `json:"amount"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

type Publisher interface {
	Publish(topic string, ev Execution)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(string, Execution) {}

// Fanout publishes to every member in order.
type Fanout []Publisher

func (f Fanout) Publish(topic string, ev Execution) {
	for _, p := range f {
		if p != nil {
			p.Publish(topic, ev)
		}
	}
}
