// Package profile maintains the per-user weighted-tag interest vector that
// drives the personalized feed phase.
package profile

import (
	"sort"
	"time"

	"github.com/plumeapp/plume/model"
)

const (
	// LearningRate scales how far one engagement event moves a weight.
	LearningRate = 0.05
	// MaxInterests bounds the interest vector, trimmed lowest weight first.
	MaxInterests = 50
	// MaxBehaviorHistory bounds the behavior log, trimmed oldest first.
	MaxBehaviorHistory = 100
)

func clamp01(w float64) float64 {
	if w < 0 {
		return 0
	}
	if w > 1 {
		return 1
	}
	return w
}

// ApplyBehavior folds one engagement event into the interest vector:
// newWeight = min(1, oldWeight + score * LearningRate) for known tags,
// min(1, score * LearningRate) for new ones. Weights never decay on their
// own; LastUpdated is maintained but not read back.
func ApplyBehavior(interests []model.InterestEntry, tagIds []string, action model.BehaviorAction, now time.Time) []model.InterestEntry {
	delta := float64(action.Score()) * LearningRate
	for _, tagId := range tagIds {
		updated := false
		for i := range interests {
			if interests[i].TagId == tagId {
				interests[i].Weight = clamp01(interests[i].Weight + delta)
				interests[i].LastUpdated = now
				updated = true
				break
			}
		}
		if !updated {
			interests = append(interests, model.InterestEntry{
				TagId:       tagId,
				Weight:      clamp01(delta),
				LastUpdated: now,
			})
		}
	}
	return trimLowestWeight(interests)
}

func trimLowestWeight(interests []model.InterestEntry) []model.InterestEntry {
	if len(interests) <= MaxInterests {
		return interests
	}
	sort.SliceStable(interests, func(i, j int) bool {
		return interests[i].Weight > interests[j].Weight
	})
	return interests[:MaxInterests]
}

// AppendBehavior appends one record to the FIFO-bounded behavior log.
func AppendBehavior(history []model.BehaviorRecord, record model.BehaviorRecord) []model.BehaviorRecord {
	history = append(history, record)
	if len(history) > MaxBehaviorHistory {
		history = history[len(history)-MaxBehaviorHistory:]
	}
	return history
}

// TopTagIds returns the ids of the k highest weighted interest entries.
func TopTagIds(interests []model.InterestEntry, k int) []string {
	sorted := append([]model.InterestEntry(nil), interests...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Weight > sorted[j].Weight
	})
	if len(sorted) > k {
		sorted = sorted[:k]
	}
	ids := make([]string, 0, len(sorted))
	for _, entry := range sorted {
		ids = append(ids, entry.TagId)
	}
	return ids
}
