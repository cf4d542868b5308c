package models

import (
	"errors"
)

// Ledger error taxonomy. Callers wrap these with fmt.Errorf("%w: ...") and
// classify them with errors.Is or KindOf.
var (
	ErrUnauthorized           = errors.New("unauthorized")
	ErrInvalidState           = errors.New("invalid campaign state")
	ErrInsufficientDeposit    = errors.New("insufficient initial deposit")
	ErrAlreadyDeposited       = errors.New("already deposited")
	ErrParticipantBlacklisted = errors.New("participant is blacklisted")
	ErrNoRewardsAvailable     = errors.New("no rewards to withdraw")
	ErrCustodianFailure       = errors.New("custodian failure")

	ErrInvalidArgument  = errors.New("invalid argument")
	ErrUnsupportedAsset = errors.New("unsupported reward asset")
	ErrBudgetExceeded   = errors.New("deposit exceeds total budget")
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrPersistence      = errors.New("ledger persistence failure")
)

// ErrorKind is the wire name of an error class.
type ErrorKind string

const (
	KindUnauthorized           ErrorKind = "UNAUTHORIZED"
	KindInvalidState           ErrorKind = "INVALID_STATE"
	KindInsufficientDeposit    ErrorKind = "INSUFFICIENT_DEPOSIT"
	KindAlreadyDeposited       ErrorKind = "ALREADY_DEPOSITED"
	KindParticipantBlacklisted ErrorKind = "PARTICIPANT_BLACKLISTED"
	KindNoRewardsAvailable     ErrorKind = "NO_REWARDS_AVAILABLE"
	KindCustodianFailure       ErrorKind = "CUSTODIAN_FAILURE"
	KindInvalidArgument        ErrorKind = "INVALID_ARGUMENT"
	KindUnsupportedAsset       ErrorKind = "UNSUPPORTED_ASSET"
	KindBudgetExceeded         ErrorKind = "BUDGET_EXCEEDED"
	KindCampaignNotFound       ErrorKind = "CAMPAIGN_NOT_FOUND"
	KindPersistence            ErrorKind = "PERSISTENCE"
	KindInternal               ErrorKind = "INTERNAL"
)

var errorKinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrUnauthorized, KindUnauthorized},
	{ErrInvalidState, KindInvalidState},
	{ErrInsufficientDeposit, KindInsufficientDeposit},
	{ErrAlreadyDeposited, KindAlreadyDeposited},
	{ErrParticipantBlacklisted, KindParticipantBlacklisted},
	{ErrNoRewardsAvailable, KindNoRewardsAvailable},
	{ErrCustodianFailure, KindCustodianFailure},
	{ErrInvalidArgument, KindInvalidArgument},
	{ErrUnsupportedAsset, KindUnsupportedAsset},
	{ErrBudgetExceeded, KindBudgetExceeded},
	{ErrCampaignNotFound, KindCampaignNotFound},
	{ErrPersistence, KindPersistence},
}

// KindOf classifies err. Unknown errors are KindInternal.
func KindOf(err error) ErrorKind {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// Retryable reports whether retrying the same operation id may succeed.
// Every other kind is permanent for the given input.
func Retryable(err error) bool {
	return errors.Is(err, ErrCustodianFailure) || errors.Is(err, ErrPersistence)
}
