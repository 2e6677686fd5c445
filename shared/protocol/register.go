package protocol

import (
	"github.com/automoto/stunsync/shared/netcomponents"
	"github.com/leap-fish/necs/esync"
)

// Sync ID constants - ID 1 is reserved by necs for NetworkId
const (
	SyncIDNetPosition uint = 10
	SyncIDNetVelocity uint = 11
	SyncIDNetBody     uint = 12
	SyncIDNetAck      uint = 13
	SyncIDNetSession  uint = 14
)

// RegisterComponents registers all network components with necs for serialization.
// This must be called by both server and client before any network operations.
// Nothing is interpolated: clients reconcile and catch up on their own.
func RegisterComponents() error {
	if err := esync.RegisterComponent(
		SyncIDNetPosition,
		netcomponents.NetPositionData{},
		netcomponents.NetPosition,
	); err != nil {
		return err
	}

	if err := esync.RegisterComponent(
		SyncIDNetVelocity,
		netcomponents.NetVelocityData{},
		netcomponents.NetVelocity,
	); err != nil {
		return err
	}

	if err := esync.RegisterComponent(
		SyncIDNetBody,
		netcomponents.NetBodyData{},
		netcomponents.NetBody,
	); err != nil {
		return err
	}

	if err := esync.RegisterComponent(
		SyncIDNetAck,
		netcomponents.NetAckData{},
		netcomponents.NetAck,
	); err != nil {
		return err
	}

	// Session: discrete stun state, one entity per world
	if err := esync.RegisterComponent(
		SyncIDNetSession,
		netcomponents.NetSessionData{},
		netcomponents.NetSession,
	); err != nil {
		return err
	}

	return nil
}
