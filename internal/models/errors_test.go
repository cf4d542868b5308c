package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"unauthorized", ErrUnauthorized, KindUnauthorized},
		{"wrapped state", fmt.Errorf("%w: campaign is PAUSED", ErrInvalidState), KindInvalidState},
		{"insufficient", ErrInsufficientDeposit, KindInsufficientDeposit},
		{"blacklisted", fmt.Errorf("%w: eve", ErrParticipantBlacklisted), KindParticipantBlacklisted},
		{"persistence over cause", fmt.Errorf("%w: save: %w", ErrPersistence, errors.New("conn reset")), KindPersistence},
		{"custodian", ErrCustodianFailure, KindCustodianFailure},
		{"unknown", errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(fmt.Errorf("%w: timeout", ErrCustodianFailure)))
	assert.True(t, Retryable(ErrPersistence))
	assert.False(t, Retryable(ErrInvalidState))
	assert.False(t, Retryable(ErrNoRewardsAvailable))
	assert.False(t, Retryable(errors.New("boom")))
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse(fmt.Errorf("%w: USDT", ErrUnsupportedAsset))

	assert.Equal(t, "unsupported reward asset: USDT", resp.Error)
	assert.Equal(t, KindUnsupportedAsset, resp.Kind)
	assert.False(t, resp.Retryable)
}
