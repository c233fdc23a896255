package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// BehaviorAction is an engagement event type recorded against a post.
type BehaviorAction string

const (
	ActionView    BehaviorAction = "view"
	ActionLike    BehaviorAction = "like"
	ActionCollect BehaviorAction = "collect"
	ActionShare   BehaviorAction = "share"
)

// Score maps an action to its engagement strength. Stronger engagement
// moves interest weights faster: view < like < share < collect.
func (a BehaviorAction) Score() int {
	switch a {
	case ActionView:
		return 1
	case ActionLike:
		return 3
	case ActionShare:
		return 4
	case ActionCollect:
		return 5
	}
	return 0
}

// Valid reports whether a is one of the recognized actions.
func (a BehaviorAction) Valid() bool {
	return a.Score() > 0
}

// InterestEntry is one element of the Interests JSON document.
// LastUpdated is maintained on every write but not read back for decay,
// matching the source behavior.
type InterestEntry struct {
	TagId       string    `json:"tagId"`
	Weight      float64   `json:"weight"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// BehaviorRecord is one element of the Behaviors JSON document.
type BehaviorRecord struct {
	Action    BehaviorAction `json:"action"`
	PostId    string         `json:"postId"`
	TagIds    []string       `json:"tagIds"`
	Timestamp time.Time      `json:"timestamp"`
}

/*

UserProfile is the per-user interest document driving the personalized feed

UserID: primary key, one profile per user
Interests: JSON list of InterestEntry, bounded, trimmed lowest weight first
Behaviors: JSON list of BehaviorRecord, bounded, trimmed oldest first
PreferredTags:
BlockedTags: user managed preference lists, persisted but not yet consumed
	by any ranking path

The whole row is read then saved on every behavior event without optimistic
locking, so concurrent events for one user are last-write-wins. Accepted
limitation carried over from the source.

*/
type UserProfile struct {
	UserID        string `gorm:"primaryKey"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Interests     datatypes.JSON
	Behaviors     datatypes.JSON
	PreferredTags datatypes.JSON
	BlockedTags   datatypes.JSON
}

func (p *UserProfile) InterestList() ([]InterestEntry, error) {
	if len(p.Interests) == 0 {
		return []InterestEntry{}, nil
	}
	var interests []InterestEntry
	if err := json.Unmarshal(p.Interests, &interests); err != nil {
		return nil, err
	}
	return interests, nil
}

func (p *UserProfile) SetInterests(interests []InterestEntry) error {
	data, err := json.Marshal(interests)
	if err != nil {
		return err
	}
	p.Interests = datatypes.JSON(data)
	return nil
}

func (p *UserProfile) BehaviorList() ([]BehaviorRecord, error) {
	if len(p.Behaviors) == 0 {
		return []BehaviorRecord{}, nil
	}
	var behaviors []BehaviorRecord
	if err := json.Unmarshal(p.Behaviors, &behaviors); err != nil {
		return nil, err
	}
	return behaviors, nil
}

func (p *UserProfile) SetBehaviors(behaviors []BehaviorRecord) error {
	data, err := json.Marshal(behaviors)
	if err != nil {
		return err
	}
	p.Behaviors = datatypes.JSON(data)
	return nil
}
