package messages

// JoinRequest is sent by a client after connecting to request joining the game.
type JoinRequest struct {
	Version    string
	PlayerName string
}

// JoinAccepted is sent by the server when a client's join request is accepted.
// It carries the tuning the client must predict with so both sides integrate
// with identical parameters.
type JoinAccepted struct {
	EntityID     uint32
	ServerName   string
	TickRate     int
	Speed        float64
	Extent       float64
	HalfW, HalfH float64
	StunDuration float64
	SpawnX       float64
	SpawnY       float64

	Epsilon        float64 // Divergence tolerated before the client replays
	BufferCapacity int     // Prediction ring size
}

// JoinRejected is sent by the server when a client's join request is rejected.
type JoinRejected struct {
	Reason string
}
