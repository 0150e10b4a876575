package gateway

// Dispatcher pushes events to connected WebSocket clients. The engine only
// addresses individual users; fan-out to a container is the caller's loop.
type Dispatcher interface {
	DispatchToUser(userID int64, event string, data any)
}
