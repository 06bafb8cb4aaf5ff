package relay

import "time"

// Room groups the participants of one live presentation. The member slice
// keeps join order; the first member is the presenter who created the room.
// Only the hub goroutine touches a Room, so no locking is needed here.
type Room struct {
	// ID is the unique room code participants share to meet here.
	ID string

	// Creator is the participant ID of the presenter.
	Creator string

	// CreatedAt records when the presenter opened the room.
	CreatedAt time.Time

	members []*Client
	lastSeq uint64
}

func newRoom(id string, creator *Client) *Room {
	return &Room{
		ID:        id,
		Creator:   creator.ID,
		CreatedAt: time.Now(),
		members:   []*Client{creator},
	}
}

// add appends a participant, preserving join order.
func (r *Room) add(c *Client) {
	r.members = append(r.members, c)
}

// remove deletes a participant and reports whether it was a member.
func (r *Room) remove(c *Client) bool {
	for i, m := range r.members {
		if m == c {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return true
		}
	}
	return false
}

// member returns the client with the given participant ID, or nil.
func (r *Room) member(id string) *Client {
	for _, m := range r.members {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// peerIDs lists member IDs in join order, excluding the given client.
func (r *Room) peerIDs(exclude *Client) []string {
	ids := make([]string, 0, len(r.members))
	for _, m := range r.members {
		if m != exclude {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

func (r *Room) empty() bool {
	return len(r.members) == 0
}

// nextSeq hands out the next chat sequence number, starting at 1.
func (r *Room) nextSeq() uint64 {
	r.lastSeq++
	return r.lastSeq
}
