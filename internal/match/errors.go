package match

import "errors"

var (
	// ErrRoomNotFound means no match document exists for the code.
	ErrRoomNotFound = errors.New("match: room not found")
	// ErrRoomFull means the guest seat is already taken by another player.
	ErrRoomFull = errors.New("match: room is full")
	// ErrNotInRoom means the acting player holds neither seat.
	ErrNotInRoom = errors.New("match: player is not in this room")
	// ErrNotYourTurn rejects an out-of-turn move.
	ErrNotYourTurn = errors.New("match: not your turn")
	// ErrNotStarted rejects moves before both players are ready.
	ErrNotStarted = errors.New("match: match has not started")
	// ErrMatchFinished is the terminal latch: no move is accepted once a
	// winner is set or the match was abandoned.
	ErrMatchFinished = errors.New("match: match already finished")
	// ErrStaleWrite means the write was based on an out-of-date snapshot
	// of the document. Callers should re-read and retry deliberately.
	ErrStaleWrite = errors.New("match: stale write rejected")
	// ErrCodeSpaceExhausted means code generation kept colliding.
	ErrCodeSpaceExhausted = errors.New("match: could not allocate a room code")
)
