package profile

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumeapp/plume/model"
)

func TestApplyBehaviorNewAndExistingTags(t *testing.T) {
	now := time.Now()

	interests := ApplyBehavior(nil, []string{"t1"}, model.ActionView, now)
	require.Len(t, interests, 1)
	assert.Equal(t, "t1", interests[0].TagId)
	assert.InDelta(t, 0.05, interests[0].Weight, 1e-9)

	interests = ApplyBehavior(interests, []string{"t1", "t2"}, model.ActionLike, now)
	require.Len(t, interests, 2)
	// view (1) then like (3) on t1: 0.05 + 0.15.
	assert.InDelta(t, 0.20, interests[0].Weight, 1e-9)
	assert.InDelta(t, 0.15, interests[1].Weight, 1e-9)
}

func TestApplyBehaviorClampsAtOne(t *testing.T) {
	now := time.Now()
	interests := []model.InterestEntry{{TagId: "t1", Weight: 0.9}}

	interests = ApplyBehavior(interests, []string{"t1"}, model.ActionCollect, now)
	assert.Equal(t, 1.0, interests[0].Weight)

	// Further events keep it pinned.
	interests = ApplyBehavior(interests, []string{"t1"}, model.ActionShare, now)
	assert.Equal(t, 1.0, interests[0].Weight)
}

func TestApplyBehaviorTrimsLowestWeight(t *testing.T) {
	now := time.Now()
	var interests []model.InterestEntry
	for i := 0; i < MaxInterests; i++ {
		interests = append(interests, model.InterestEntry{
			TagId:  fmt.Sprintf("t%d", i),
			Weight: 0.5,
		})
	}
	interests = append(interests, model.InterestEntry{TagId: "weak", Weight: 0.01})

	interests = ApplyBehavior(interests, []string{"strong"}, model.ActionCollect, now)

	assert.Len(t, interests, MaxInterests)
	for _, entry := range interests {
		assert.NotEqual(t, "weak", entry.TagId)
	}
}

func TestAppendBehaviorIsFIFOBounded(t *testing.T) {
	var history []model.BehaviorRecord
	for i := 0; i < MaxBehaviorHistory+10; i++ {
		history = AppendBehavior(history, model.BehaviorRecord{
			Action: model.ActionView,
			PostId: fmt.Sprintf("post-%d", i),
		})
	}
	require.Len(t, history, MaxBehaviorHistory)
	assert.Equal(t, "post-10", history[0].PostId)
	assert.Equal(t, fmt.Sprintf("post-%d", MaxBehaviorHistory+9), history[len(history)-1].PostId)
}

func TestTopTagIds(t *testing.T) {
	interests := []model.InterestEntry{
		{TagId: "low", Weight: 0.1},
		{TagId: "high", Weight: 0.9},
		{TagId: "mid", Weight: 0.5},
	}
	assert.Equal(t, []string{"high", "mid"}, TopTagIds(interests, 2))
	assert.Equal(t, []string{"high", "mid", "low"}, TopTagIds(interests, 10))
	assert.Empty(t, TopTagIds(nil, 5))
}
