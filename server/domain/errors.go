package domain

import "errors"

var (
	ErrRoomFull         = errors.New("room full")
	ErrNameTaken        = errors.New("name taken")
	ErrPlayerNotFound   = errors.New("player not found")
	ErrNotHost          = errors.New("player is not the host")
	ErrNotEnoughPlayers = errors.New("not enough players")
	ErrWrongStatus      = errors.New("action not allowed in current status")
	ErrInvalidBoard     = errors.New("invalid board")
	ErrInvalidIndex     = errors.New("invalid cell index")
	ErrInvalidNumber    = errors.New("invalid number")
	ErrInvalidName      = errors.New("invalid name")
	ErrAlreadyJoined    = errors.New("connection already joined this room")
)
