package services

import "errors"

var (
	ErrParticipantNotFound = errors.New("participant not found")
	ErrArtifactNotFound    = errors.New("reward artifact not found")
	ErrArtifactExists      = errors.New("reward artifact already exists for this tier and kind")
	ErrNoSession           = errors.New("no active bulk upload session")
	ErrRecipientBlocked    = errors.New("recipient blocked the bot")
	ErrEmptyCatalog        = errors.New("reward catalog is empty")
	ErrBackupDisabled      = errors.New("catalog backup is not configured")
)
