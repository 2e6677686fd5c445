package archetypes

import (
	"github.com/automoto/stunsync/components"
	cfg "github.com/automoto/stunsync/config"
	"github.com/automoto/stunsync/tags"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/ecs"
)

var (
	// Session is the client's singleton entity: connection, predicted
	// session and the per-frame input and effect state.
	Session = newArchetype(
		tags.Session,
		components.NetSession,
		components.Input,
		components.Settings,
		components.StunFlash,
	)
)

type archetype struct {
	components []donburi.IComponentType
}

func newArchetype(cs ...donburi.IComponentType) *archetype {
	return &archetype{
		components: cs,
	}
}

func (a *archetype) Spawn(ecs *ecs.ECS, cs ...donburi.IComponentType) *donburi.Entry {
	e := ecs.World.Entry(ecs.Create(
		cfg.Default,
		append(a.components, cs...)...,
	))
	return e
}
