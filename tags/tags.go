package tags

import "github.com/yohamta/donburi"

var (
	Controlled = donburi.NewTag().SetName("Controlled")
	Passive    = donburi.NewTag().SetName("Passive")
	Session    = donburi.NewTag().SetName("Session")
)

// Resolv tags for spawn clearance
const (
	ResolvBody  = "body"
	ResolvSpawn = "spawn"
)
