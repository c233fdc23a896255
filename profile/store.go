package profile

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/plumeapp/plume/content"
	"github.com/plumeapp/plume/model"
)

// Store reads and writes UserProfile documents. Writes go through a plain
// read-then-save of the whole row without optimistic locking, so concurrent
// events for one user are last-write-wins. The tracker consumes events
// sequentially which narrows the window, but it is an accepted limitation.
type Store struct {
	DB *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

// GetOrCreate returns the user's profile, creating an empty one on first
// access. Idempotent.
func (s *Store) GetOrCreate(ctx context.Context, userId string) (*model.UserProfile, error) {
	var profile model.UserProfile
	err := s.DB.WithContext(ctx).
		Where(model.UserProfile{UserID: userId}).
		FirstOrCreate(&profile).Error
	if err != nil {
		return nil, errors.Wrapf(err, "fail to get or create profile for user %s", userId)
	}
	return &profile, nil
}

// TopTags returns the user's k highest weighted interest tag ids. A missing
// profile or an empty vector yields an empty slice, which routes the feed
// straight to fallback.
func (s *Store) TopTags(ctx context.Context, userId string, k int) ([]string, error) {
	var profile model.UserProfile
	err := s.DB.WithContext(ctx).First(&profile, "user_id = ?", userId).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "fail to load profile for user %s", userId)
	}
	interests, err := profile.InterestList()
	if err != nil {
		return nil, errors.Wrap(err, "fail to decode interests")
	}
	return TopTagIds(interests, k), nil
}

// RecordBehavior folds one engagement event into the user's profile: the
// event is appended to the bounded history log, then every tag on the post
// gets its interest weight bumped. A post without tags but with a topic has
// the topic name materialized into a tag first, and that materialization is
// persisted back onto the post so later events score directly.
func (s *Store) RecordBehavior(ctx context.Context, userId string, postId string, action model.BehaviorAction) error {
	if !action.Valid() {
		return errors.Errorf("unknown behavior action %q", action)
	}

	var post model.Post
	err := s.DB.WithContext(ctx).
		Preload("Tags").
		Preload("Topic").
		First(&post, "id = ?", postId).Error
	if err != nil {
		return errors.Wrapf(err, "fail to load post %s for behavior", postId)
	}

	tagIds := post.TagIds()
	if len(tagIds) == 0 && post.Topic != nil {
		attached, err := content.AttachTags(ctx, s.DB, &post, []string{post.Topic.Name})
		if err != nil {
			return errors.Wrap(err, "fail to materialize topic tag")
		}
		for _, tag := range attached {
			tagIds = append(tagIds, tag.Id)
		}
	}

	profile, err := s.GetOrCreate(ctx, userId)
	if err != nil {
		return err
	}

	now := time.Now()

	history, err := profile.BehaviorList()
	if err != nil {
		return errors.Wrap(err, "fail to decode behavior history")
	}
	history = AppendBehavior(history, model.BehaviorRecord{
		Action:    action,
		PostId:    postId,
		TagIds:    tagIds,
		Timestamp: now,
	})
	if err := profile.SetBehaviors(history); err != nil {
		return err
	}

	if len(tagIds) > 0 {
		interests, err := profile.InterestList()
		if err != nil {
			return errors.Wrap(err, "fail to decode interests")
		}
		if err := profile.SetInterests(ApplyBehavior(interests, tagIds, action, now)); err != nil {
			return err
		}
	}

	if err := s.DB.WithContext(ctx).Save(profile).Error; err != nil {
		return errors.Wrapf(err, "fail to save profile for user %s", userId)
	}
	return nil
}
