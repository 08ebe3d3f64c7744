package domain

// Snapshot is the full state of a room sent wholesale to reconcile clients.
type Snapshot struct {
	RoomID           string
	Members          []Player
	Status           RoomStatus
	Winner           *Player
	LastCalledNumber int
	CalledNumbers    []int
}

func (r *Room) Snapshot() Snapshot {
	c := r.Clone()
	s := Snapshot{
		RoomID:           c.ID,
		Members:          c.Members,
		Status:           c.Status,
		LastCalledNumber: c.LastCalledNumber,
		CalledNumbers:    c.CalledNumbers,
	}
	if w, ok := c.Winner(); ok {
		s.Winner = &w
	}
	return s
}
