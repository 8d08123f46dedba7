package service

import (
	"errors"
	"fmt"
)

// ErrorKind 호출자가 분기할 수 있는 닫힌 에러 분류
type ErrorKind string

const (
	KindNotFound     ErrorKind = "not_found"
	KindConflict     ErrorKind = "conflict"
	KindInvalidState ErrorKind = "invalid_state"
	KindForbidden    ErrorKind = "forbidden"
	KindInvalid      ErrorKind = "invalid"
	KindUnavailable  ErrorKind = "unavailable"
	KindInternal     ErrorKind = "internal"
)

// Error 분류가 붙은 서비스 에러
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 같은 Kind와 Message면 같은 에러로 본다 (errors.Is로 센티널 비교)
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

func newError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// wrap 센티널에 원인 에러를 붙인다
func wrap(sentinel *Error, err error) *Error {
	return &Error{Kind: sentinel.Kind, Message: sentinel.Message, Err: err}
}

// unavailable 빠른 저장소/DB 장애
func unavailable(op string, err error) *Error {
	return &Error{Kind: KindUnavailable, Message: op, Err: err}
}

// KindOf 에러 분류 (분류가 없으면 internal)
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Common service errors
var (
	ErrInvalidInput = newError(KindInvalid, "invalid input")
	ErrUnavailable  = newError(KindUnavailable, "backing store unavailable")
)

// Player
var (
	ErrPlayerNotFound = newError(KindNotFound, "player not found")
)

// Matchmaking
var (
	ErrAlreadyQueued   = newError(KindConflict, "player already in queue")
	ErrAlreadyInBattle = newError(KindConflict, "player already in battle")
)

// Battle
var (
	ErrMatchNotFound      = newError(KindNotFound, "match not found")
	ErrNotParticipant     = newError(KindForbidden, "player is not a participant of this match")
	ErrMatchResolved      = newError(KindInvalidState, "match already resolved")
	ErrInsufficientEnergy = newError(KindInvalidState, "insufficient energy")
	ErrInvalidAction      = newError(KindInvalid, "invalid action")
	ErrBattleBusy         = newError(KindConflict, "battle is being updated, retry")
	ErrNoActiveBattle     = newError(KindNotFound, "player has no active battle")
)

// Settlement
var (
	ErrAlreadySettled = newError(KindConflict, "match already settled")
	ErrInvalidWinner  = newError(KindInvalidState, "winner is not a participant")
)

// Ranking / Season
var (
	ErrInvalidCategory = newError(KindInvalid, "unknown ranking category")
	ErrNotRanked       = newError(KindNotFound, "player is not ranked")
	ErrSeasonNotFound  = newError(KindNotFound, "season not found")
	ErrInvalidSeason   = newError(KindInvalid, "season must end after it starts")
)
