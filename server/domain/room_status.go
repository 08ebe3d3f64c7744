package domain

import "fmt"

type RoomStatus int

const (
	RoomStatusWaiting RoomStatus = iota
	RoomStatusPlaying
	RoomStatusFinished
)

func (s RoomStatus) String() string {
	switch s {
	case RoomStatusWaiting:
		return "waiting"
	case RoomStatusPlaying:
		return "playing"
	case RoomStatusFinished:
		return "finished"
	default:
		return "unknown"
	}
}

func ParseRoomStatus(s string) (RoomStatus, error) {
	switch s {
	case "waiting":
		return RoomStatusWaiting, nil
	case "playing":
		return RoomStatusPlaying, nil
	case "finished":
		return RoomStatusFinished, nil
	default:
		return RoomStatusWaiting, fmt.Errorf("unknown room status %q", s)
	}
}
