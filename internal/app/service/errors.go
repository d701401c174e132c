package service

import "errors"

var (
	ErrSessionExists    = errors.New("there is already an active session for this guild")
	ErrAlreadyHosting   = errors.New("you are already hosting the active session")
	ErrNoSession        = errors.New("no active session")
	ErrNotHost          = errors.New("only the session host can do this")
	ErrNotVerified      = errors.New("player is not verified")
	ErrRoleNotAvailable = errors.New("player has not verified this role")
	ErrUnknownCharacter = errors.New("unknown character for this role")
	ErrInvalidFormation = errors.New("invalid formation")
	ErrChannelGone      = errors.New("voice channel no longer exists")
)
