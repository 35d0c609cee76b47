package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"

	"github.com/gatehouse/gatehouse/internal/apperr"
)

func canceledWith(codes ...string) error {
	reasons := make([]types.CancellationReason, 0, len(codes))
	for _, code := range codes {
		reasons = append(reasons, types.CancellationReason{Code: aws.String(code)})
	}
	return fmt.Errorf("transact failed: %w", &types.TransactionCanceledException{
		CancellationReasons: reasons,
	})
}

func TestMapCancellation(t *testing.T) {
	failures := map[int]error{
		1: apperr.ErrEmailTaken,
		2: apperr.ErrPhoneTaken,
	}

	t.Run("email guard failed", func(t *testing.T) {
		err := canceledWith("None", "ConditionalCheckFailed", "None")
		assert.ErrorIs(t, mapCancellation(err, failures), apperr.ErrEmailTaken)
	})

	t.Run("phone guard failed", func(t *testing.T) {
		err := canceledWith("None", "None", "ConditionalCheckFailed")
		assert.ErrorIs(t, mapCancellation(err, failures), apperr.ErrPhoneTaken)
	})

	t.Run("unregistered index", func(t *testing.T) {
		err := canceledWith("ConditionalCheckFailed", "None", "None")
		assert.NoError(t, mapCancellation(err, failures))
	})

	t.Run("not a cancellation", func(t *testing.T) {
		assert.NoError(t, mapCancellation(errors.New("throughput exceeded"), failures))
	})

	t.Run("nil reason codes", func(t *testing.T) {
		err := fmt.Errorf("wrapped: %w", &types.TransactionCanceledException{
			CancellationReasons: []types.CancellationReason{{}, {}},
		})
		assert.NoError(t, mapCancellation(err, failures))
	})
}

func TestPageSlice(t *testing.T) {
	all := []int{1, 2, 3, 4, 5}

	assert.Equal(t, []int{1, 2, 3}, pageSlice(all, 1, 3))
	assert.Equal(t, []int{4, 5}, pageSlice(all, 2, 3))
	assert.Equal(t, []int{}, pageSlice(all, 3, 3))
	assert.Equal(t, []int{1, 2, 3}, pageSlice(all, 0, 3), "page below 1 clamps to the first")
	assert.Equal(t, []int{}, pageSlice([]int{}, 1, 3))
}
