// Package content owns the post lifecycle: publish, edit, delete and the
// tag/topic bookkeeping the feed engine ranks on.
package content

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/plumeapp/plume/classify"
	"github.com/plumeapp/plume/feed"
	"github.com/plumeapp/plume/filestore"
	"github.com/plumeapp/plume/model"
	Logger "github.com/plumeapp/plume/utils/log"
)

var (
	ErrPostNotFound = errors.New("post not found")
	ErrNotAuthor    = errors.New("only the author can modify a post")
)

// Service wires the post lifecycle to its collaborators. Classifier and
// Images are best-effort: their failures degrade a write, never fail it.
// Cache is invalidated on every successful write since a stale first page
// is user visible.
type Service struct {
	DB         *gorm.DB
	Classifier classify.Classifier
	Images     filestore.ImageStore
	Cache      feed.FirstPageCache
}

func NewService(db *gorm.DB, classifier classify.Classifier, images filestore.ImageStore, cache feed.FirstPageCache) *Service {
	return &Service{DB: db, Classifier: classifier, Images: images, Cache: cache}
}

// PostInput is the author-supplied part of a post write. Empty Topic and
// Tags on create mean "let the classifier decide".
type PostInput struct {
	Content string
	Images  []model.PostImage
	Topic   string
	Tags    []string
}

// Create publishes a new post. Classification runs only when the author
// supplied neither tags nor topic; a classifier failure is logged and the
// post is created unlabeled.
func (s *Service) Create(ctx context.Context, authorId string, input PostInput) (*model.Post, error) {
	post := &model.Post{
		Id:             uuid.NewString(),
		AuthorID:       authorId,
		Content:        input.Content,
		ContentPreview: model.MakePreview(input.Content),
	}
	if err := post.SetImages(input.Images); err != nil {
		return nil, err
	}

	topicName := input.Topic
	tagNames := input.Tags
	if topicName == "" && len(tagNames) == 0 && s.Classifier != nil {
		result, err := s.Classifier.Classify(ctx, input.Content)
		if err != nil {
			Logger.Log.Warn("classification failed, creating post unlabeled: ", err)
		} else if result != nil {
			topicName = result.Topic
			tagNames = result.Tags
		}
	}

	if topicName != "" {
		topic, err := EnsureTopic(ctx, s.DB, topicName)
		if err != nil {
			return nil, err
		}
		post.TopicID = &topic.Id
		post.Topic = topic
	}

	if err := s.DB.WithContext(ctx).Omit("Tags", "Topic", "Author").Create(post).Error; err != nil {
		return nil, errors.Wrap(err, "fail to create post")
	}
	if post.TopicID != nil {
		if err := bumpTopicCounter(ctx, s.DB, *post.TopicID); err != nil {
			return nil, err
		}
	}
	if len(tagNames) > 0 {
		if _, err := AttachTags(ctx, s.DB, post, tagNames); err != nil {
			return nil, err
		}
	}

	s.Cache.Invalidate(ctx)
	return s.Get(ctx, post.Id)
}

// Update edits content, images or topic of an author's own post. Tags are
// fixed at publish time. CoverRatio and the preview are recomputed.
func (s *Service) Update(ctx context.Context, authorId string, postId string, input PostInput) (*model.Post, error) {
	post, err := s.Get(ctx, postId)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != authorId {
		return nil, ErrNotAuthor
	}

	post.Content = input.Content
	post.ContentPreview = model.MakePreview(input.Content)
	if err := post.SetImages(input.Images); err != nil {
		return nil, err
	}

	if input.Topic != "" {
		topic, err := EnsureTopic(ctx, s.DB, input.Topic)
		if err != nil {
			return nil, err
		}
		if post.TopicID == nil || *post.TopicID != topic.Id {
			post.TopicID = &topic.Id
			post.Topic = topic
			if err := bumpTopicCounter(ctx, s.DB, topic.Id); err != nil {
				return nil, err
			}
		}
	}

	if err := s.DB.WithContext(ctx).Omit("Tags", "Topic", "Author").Save(post).Error; err != nil {
		return nil, errors.Wrap(err, "fail to update post")
	}

	s.Cache.Invalidate(ctx)
	return s.Get(ctx, post.Id)
}

// Delete removes an author's own post and cascades to its stored image
// objects. Object deletion is best effort: the post is already gone, a
// leaked object is an ops follow-up, not a user facing failure. Tag and
// topic counters are never decremented.
func (s *Service) Delete(ctx context.Context, authorId string, postId string) error {
	post, err := s.Get(ctx, postId)
	if err != nil {
		return err
	}
	if post.AuthorID != authorId {
		return ErrNotAuthor
	}

	images, err := post.ImageList()
	if err != nil {
		return errors.Wrap(err, "fail to decode post images")
	}

	if err := s.DB.WithContext(ctx).Delete(post).Error; err != nil {
		return errors.Wrap(err, "fail to delete post")
	}

	if s.Images != nil {
		var keys []string
		for _, img := range images {
			if key, ok := s.Images.KeyFromUrl(img.Url); ok {
				keys = append(keys, key)
			}
		}
		if len(keys) > 0 {
			if err := s.Images.DeleteKeys(keys); err != nil {
				Logger.Log.Warn("fail to delete image objects for post ", postId, ": ", err)
			}
		}
	}

	s.Cache.Invalidate(ctx)
	return nil
}

// Get loads one post with its associations. Returns ErrPostNotFound for
// unknown or deleted ids.
func (s *Service) Get(ctx context.Context, postId string) (*model.Post, error) {
	var post model.Post
	err := s.DB.WithContext(ctx).
		Preload("Author").
		Preload("Tags").
		Preload("Topic").
		First(&post, "id = ?", postId).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "fail to load post")
	}
	return &post, nil
}
