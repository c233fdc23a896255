package feed

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/plumeapp/plume/model"
)

// CandidateSource is the query layer behind the composer: three independent
// retrieval strategies, each returning one page of posts plus whether more
// rows remain in that strategy. Abstracted so the composer's state machine
// can be tested against an in-memory implementation.
type CandidateSource interface {
	// Chronological is the terminal fallback strategy: all posts excluding
	// the exclusion set, newest first.
	Chronological(ctx context.Context, key *PageKey, limit int, exclude []string) ([]*model.Post, bool, error)

	// ByInterest retrieves posts whose tag set intersects the given tag ids.
	ByInterest(ctx context.Context, tagIds []string, key *PageKey, limit int, exclude []string) ([]*model.Post, bool, error)

	// Related retrieves posts sharing a tag or the topic with the seed post,
	// the seed itself excluded.
	Related(ctx context.Context, seed *model.Post, key *PageKey, limit int, exclude []string) ([]*model.Post, bool, error)
}

// GormCandidateSource runs the candidate strategies against Postgres. All
// three share the same discipline: order by (created_at desc, id desc) for
// stable tie-breaking, resume via a row-value keyset comparison, and fetch
// limit+1 rows to detect hasMore without a count query.
type GormCandidateSource struct {
	DB *gorm.DB
}

func NewGormCandidateSource(db *gorm.DB) *GormCandidateSource {
	return &GormCandidateSource{DB: db}
}

func (s *GormCandidateSource) base(ctx context.Context, key *PageKey, exclude []string) *gorm.DB {
	q := s.DB.WithContext(ctx).Model(&model.Post{}).
		Preload("Author").
		Preload("Tags").
		Preload("Topic")
	if key != nil {
		q = q.Where("(posts.created_at, posts.id) < (?, ?)", time.UnixMicro(key.CreatedAt), key.Id)
	}
	if len(exclude) > 0 {
		q = q.Where("posts.id NOT IN ?", exclude)
	}
	return q.Order("posts.created_at desc, posts.id desc")
}

func (s *GormCandidateSource) Chronological(ctx context.Context, key *PageKey, limit int, exclude []string) ([]*model.Post, bool, error) {
	var posts []*model.Post
	err := s.base(ctx, key, exclude).Limit(limit + 1).Find(&posts).Error
	if err != nil {
		return nil, false, errors.Wrap(err, "chronological candidate query")
	}
	return trimOverfetch(posts, limit)
}

func (s *GormCandidateSource) ByInterest(ctx context.Context, tagIds []string, key *PageKey, limit int, exclude []string) ([]*model.Post, bool, error) {
	if len(tagIds) == 0 {
		return []*model.Post{}, false, nil
	}
	var posts []*model.Post
	err := s.base(ctx, key, exclude).
		Distinct("posts.*").
		Joins("JOIN post_tags ON post_tags.post_id = posts.id").
		Where("post_tags.tag_id IN ?", tagIds).
		Limit(limit + 1).
		Find(&posts).Error
	if err != nil {
		return nil, false, errors.Wrap(err, "interest candidate query")
	}
	return trimOverfetch(posts, limit)
}

func (s *GormCandidateSource) Related(ctx context.Context, seed *model.Post, key *PageKey, limit int, exclude []string) ([]*model.Post, bool, error) {
	tagIds := seed.TagIds()
	if len(tagIds) == 0 && seed.TopicID == nil {
		return []*model.Post{}, false, nil
	}

	match := s.DB.Where("post_tags.tag_id IN ?", tagIds)
	if len(tagIds) == 0 {
		match = s.DB.Where("posts.topic_id = ?", *seed.TopicID)
	} else if seed.TopicID != nil {
		match = match.Or("posts.topic_id = ?", *seed.TopicID)
	}

	var posts []*model.Post
	err := s.base(ctx, key, exclude).
		Distinct("posts.*").
		Joins("LEFT JOIN post_tags ON post_tags.post_id = posts.id").
		Where("posts.id <> ?", seed.Id).
		Where(match).
		Limit(limit + 1).
		Find(&posts).Error
	if err != nil {
		return nil, false, errors.Wrap(err, "related candidate query")
	}
	return trimOverfetch(posts, limit)
}

// trimOverfetch converts a limit+1 result into (page, hasMore).
func trimOverfetch(posts []*model.Post, limit int) ([]*model.Post, bool, error) {
	if len(posts) > limit {
		return posts[:limit], true, nil
	}
	return posts, false, nil
}

// keyOf extracts the keyset position of a post row.
func keyOf(p *model.Post) *PageKey {
	return &PageKey{CreatedAt: p.CreatedAt.UnixMicro(), Id: p.Id}
}
