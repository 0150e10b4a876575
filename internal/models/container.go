package models

import (
	"errors"
	"fmt"
)

// NoContainer is the wire sentinel for the unused side of a (channel_id, dm_id) pair.
const NoContainer int64 = -1

type ContainerKind int

const (
	ContainerChannel ContainerKind = 1
	ContainerDM      ContainerKind = 2
)

func (k ContainerKind) String() string {
	switch k {
	case ContainerChannel:
		return "channel"
	case ContainerDM:
		return "dm"
	default:
		return fmt.Sprintf("ContainerKind(%d)", int(k))
	}
}

// Container is the scope a message belongs to: exactly one channel or one DM.
type Container struct {
	Kind ContainerKind
	ID   int64
}

var ErrInvalidContainer = errors.New("exactly one of channel_id and dm_id must be set")

func Channel(id int64) Container { return Container{Kind: ContainerChannel, ID: id} }

func DM(id int64) Container { return Container{Kind: ContainerDM, ID: id} }

// ContainerFromIDs resolves a (channelID, dmID) pair where the unused side is NoContainer.
func ContainerFromIDs(channelID, dmID int64) (Container, error) {
	switch {
	case channelID != NoContainer && dmID == NoContainer:
		return Channel(channelID), nil
	case dmID != NoContainer && channelID == NoContainer:
		return DM(dmID), nil
	default:
		return Container{}, ErrInvalidContainer
	}
}

func (c Container) IsChannel() bool { return c.Kind == ContainerChannel }

func (c Container) IsDM() bool { return c.Kind == ContainerDM }

// ChannelID returns the channel id, or NoContainer for a DM.
func (c Container) ChannelID() int64 {
	if c.IsChannel() {
		return c.ID
	}
	return NoContainer
}

// DMID returns the DM id, or NoContainer for a channel.
func (c Container) DMID() int64 {
	if c.IsDM() {
		return c.ID
	}
	return NoContainer
}

func (c Container) String() string {
	return fmt.Sprintf("%s:%d", c.Kind, c.ID)
}
