package model

// ChannelRates is the only channel served by the gateway.
const ChannelRates = "rates"

// Envelope event types.
const (
	EventData      = "data"      // reply to a single subscriber's fetch
	EventUpdate    = "update"    // periodic broadcast to all subscribers
	EventError     = "error"     // validation or fetch failure reply
	EventSubscribe = "subscribe" // inbound request from a subscriber
)

// Envelope is the message wrapper exchanged with real-time subscribers.
// Data is set for "data"/"update" events, Message for "error" events.
type Envelope struct {
	Channel string `json:"channel"`
	Event   string `json:"event"`
	Data    []Rate `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// DataEnvelope wraps rates as a reply to one subscriber.
func DataEnvelope(rates []Rate) Envelope {
	return Envelope{Channel: ChannelRates, Event: EventData, Data: rates}
}

// UpdateEnvelope wraps rates as a periodic broadcast.
func UpdateEnvelope(rates []Rate) Envelope {
	return Envelope{Channel: ChannelRates, Event: EventUpdate, Data: rates}
}

// ErrorEnvelope wraps a failure message for one subscriber.
func ErrorEnvelope(message string) Envelope {
	return Envelope{Channel: ChannelRates, Event: EventError, Message: message}
}
