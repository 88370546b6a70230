package gateway

// Dispatcher is the interface the service layer uses to fan out change
// events. The concrete Manager implements it; tests substitute a recorder.
type Dispatcher interface {
	// Dispatch delivers an event to every subscriber of the topic, in
	// dispatch order per topic. Delivery is best-effort: a subscriber
	// whose buffer is full misses the event and reconciles by re-fetching.
	Dispatch(topic Topic, event string, change Change)

	// DispatchExcept is Dispatch minus one user, used when the acting
	// client already has the result from the direct response.
	DispatchExcept(topic Topic, exceptUserID int64, event string, change Change)

	// DispatchToUser delivers an event to a single user's connection.
	DispatchToUser(userID int64, event string, change Change)

	// SubscribeUser routes a topic's events to the user's connection.
	SubscribeUser(userID int64, topic Topic)

	// UnsubscribeUser stops routing a topic's events to the user.
	UnsubscribeUser(userID int64, topic Topic)
}
