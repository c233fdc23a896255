package content

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/plumeapp/plume/model"
)

// EnsureTag looks up a tag by normalized name, creating it on first use.
// The popularity counter is not touched here: it moves on association, see
// AttachTags.
func EnsureTag(ctx context.Context, db *gorm.DB, name string) (*model.Tag, error) {
	normalized := model.NormalizeLabel(name)
	if normalized == "" {
		return nil, errors.New("empty tag name")
	}
	var tag model.Tag
	err := db.WithContext(ctx).
		Where(model.Tag{Name: normalized}).
		Attrs(model.Tag{Id: uuid.NewString()}).
		FirstOrCreate(&tag).Error
	if err != nil {
		return nil, errors.Wrapf(err, "fail to ensure tag %s", normalized)
	}
	return &tag, nil
}

// EnsureTopic is the topic counterpart of EnsureTag.
func EnsureTopic(ctx context.Context, db *gorm.DB, name string) (*model.Topic, error) {
	normalized := model.NormalizeLabel(name)
	if normalized == "" {
		return nil, errors.New("empty topic name")
	}
	var topic model.Topic
	err := db.WithContext(ctx).
		Where(model.Topic{Name: normalized}).
		Attrs(model.Topic{Id: uuid.NewString()}).
		FirstOrCreate(&topic).Error
	if err != nil {
		return nil, errors.Wrapf(err, "fail to ensure topic %s", normalized)
	}
	return &topic, nil
}

// AttachTags associates the named tags with the post and bumps each tag's
// popularity counter atomically. Tags already on the post are skipped so a
// repeated attachment never double counts. Counters are intentionally never
// decremented on post deletion: popularity measures lifetime association
// volume, and ranking depends on that staying monotonic.
func AttachTags(ctx context.Context, db *gorm.DB, post *model.Post, names []string) ([]*model.Tag, error) {
	existing := map[string]struct{}{}
	for _, t := range post.Tags {
		existing[t.Id] = struct{}{}
	}

	var attached []*model.Tag
	for _, name := range names {
		tag, err := EnsureTag(ctx, db, name)
		if err != nil {
			return nil, err
		}
		if _, ok := existing[tag.Id]; ok {
			continue
		}
		if err := db.WithContext(ctx).Model(post).Association("Tags").Append(tag); err != nil {
			return nil, errors.Wrapf(err, "fail to attach tag %s", tag.Name)
		}
		err = db.WithContext(ctx).Model(&model.Tag{}).
			Where("id = ?", tag.Id).
			UpdateColumn("post_count", gorm.Expr("post_count + ?", 1)).Error
		if err != nil {
			return nil, errors.Wrapf(err, "fail to bump tag counter %s", tag.Name)
		}
		existing[tag.Id] = struct{}{}
		attached = append(attached, tag)
	}
	return attached, nil
}

// bumpTopicCounter increments a topic's association counter.
func bumpTopicCounter(ctx context.Context, db *gorm.DB, topicId string) error {
	return db.WithContext(ctx).Model(&model.Topic{}).
		Where("id = ?", topicId).
		UpdateColumn("post_count", gorm.Expr("post_count + ?", 1)).Error
}
