package core

// Client is a connected chat participant as seen by the core layer. It is
// exclusively owned by its transport connection: the transport writes
// Commands and drains Events for the lifetime of the underlying socket.
type Client struct {
	ID          string
	Name        string
	DefaultRoom string
	Commands    chan *Command
	Events      chan *Event
	Rooms       map[string]struct{}

	// done is closed by the hub when the client is unregistered; it stops
	// the command pump and lets the transport observe teardown.
	done chan struct{}
}

// NewClient constructs a client with initialized channels.
func NewClient(id, name string) *Client {
	if name == "" {
		name = id
	}
	return &Client{
		ID:          id,
		Name:        name,
		DefaultRoom: GlobalRoomCode,
		Commands:    make(chan *Command, 16),
		Events:      make(chan *Event, 64),
		Rooms:       make(map[string]struct{}),
		done:        make(chan struct{}),
	}
}

// Done is closed once the hub has unregistered the client.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// send delivers an event without blocking. A slow consumer loses events
// rather than stalling the hub loop.
func (c *Client) send(ev *Event) bool {
	select {
	case c.Events <- ev:
		return true
	default:
		return false
	}
}
