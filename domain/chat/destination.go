package chat

import "fmt"

// GroupRoomPrefix distinguishes group room keys from personal room keys
// (which are raw user ids).
const GroupRoomPrefix = "group:"

// Destination identifies the conversation a message belongs to: either a
// direct (sender, receiver) pair or a group. The flat stored row keeps two
// nullable columns; this union exists only at the application layer and is
// converted at the store boundary.
type Destination interface {
	// RoomKey returns the registry room key events for this destination
	// are broadcast to.
	RoomKey() string

	isDestination()
}

// DirectTo targets a single receiving user.
type DirectTo struct {
	UserID string
}

func (d DirectTo) RoomKey() string { return d.UserID }
func (DirectTo) isDestination()    {}

// GroupTo targets a group room.
type GroupTo struct {
	GroupID string
}

func (g GroupTo) RoomKey() string { return GroupRoomPrefix + g.GroupID }
func (GroupTo) isDestination()    {}

// GroupRoomKey returns the room key for a group id.
func GroupRoomKey(groupID string) string {
	return GroupRoomPrefix + groupID
}

// destinationFromRow converts the flat (receiverID, groupID) column pair
// into the union, rejecting rows that set both or neither.
func destinationFromRow(receiverID, groupID *string) (Destination, error) {
	switch {
	case receiverID != nil && groupID != nil:
		return nil, fmt.Errorf("%w: message targets both a receiver and a group", ErrValidation)
	case receiverID != nil:
		return DirectTo{UserID: *receiverID}, nil
	case groupID != nil:
		return GroupTo{GroupID: *groupID}, nil
	default:
		return nil, fmt.Errorf("%w: message targets neither a receiver nor a group", ErrValidation)
	}
}

// RowColumns converts a destination back to the flat stored representation.
func RowColumns(dest Destination) (receiverID, groupID *string) {
	switch d := dest.(type) {
	case DirectTo:
		return &d.UserID, nil
	case GroupTo:
		return nil, &d.GroupID
	}
	return nil, nil
}
