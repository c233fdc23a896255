package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// A post can carry at most this many images.
const MaxImagesPerPost = 18

// MaxPreviewRunes is the length ContentPreview is truncated to.
const MaxPreviewRunes = 200

// CoverRatio classifies the shape of a post's cover (first) image. The
// client uses it to reserve layout space before images load.
type CoverRatio string

const (
	CoverRatioLandscape CoverRatio = "landscape"
	CoverRatioPortrait  CoverRatio = "portrait"
	CoverRatioSquare    CoverRatio = "square"
	CoverRatioNone      CoverRatio = "none"
)

// PostImage is one entry of the Images JSON column. Width/Height are pixel
// dimensions reported at upload time.
type PostImage struct {
	Url    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

/*

Post is a piece of user generated content

Id: primary key
CreatedAt: time when entity is created
UpdatedAt: time when entity is last edited
DeletedAt: time when entity is deleted
AuthorID:
Author: user who published this post, "belongs-to" relation

Content: rich text body
ContentPreview: plain text truncation of Content, used by list views
Images: ordered JSON list of PostImage, at most MaxImagesPerPost entries
CoverRatio: derived from the first image's width/height, "none" if no image.
	Must be recomputed whenever Images change, never set directly.
Tags: labels attached on publish or edit, "many-to-many" relation
TopicID:
Topic: at most one primary topic, "belongs-to" relation
CommentCount: denormalized count of comments under this post

*/
type Post struct {
	Id             string `gorm:"primaryKey"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      gorm.DeletedAt
	AuthorID       string `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	Author         User   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	Content        string
	ContentPreview string
	Images         datatypes.JSON
	CoverRatio     CoverRatio
	Tags           []*Tag `json:"tags" gorm:"many2many:post_tags;"`
	TopicID        *string
	Topic          *Topic
	CommentCount   int64
}

// ImageList decodes the Images JSON column. A null or empty column decodes
// to an empty list.
func (p *Post) ImageList() ([]PostImage, error) {
	if len(p.Images) == 0 {
		return []PostImage{}, nil
	}
	var images []PostImage
	if err := json.Unmarshal(p.Images, &images); err != nil {
		return nil, err
	}
	return images, nil
}

// SetImages replaces the image list and recomputes CoverRatio, keeping the
// two in sync. Returns ErrTooManyImages when the list exceeds
// MaxImagesPerPost.
func (p *Post) SetImages(images []PostImage) error {
	if len(images) > MaxImagesPerPost {
		return ErrTooManyImages
	}
	data, err := json.Marshal(images)
	if err != nil {
		return err
	}
	p.Images = datatypes.JSON(data)
	p.CoverRatio = DeriveCoverRatio(images)
	return nil
}

// HasTagsOrTopic reports whether the post can seed a relatedness query.
func (p *Post) HasTagsOrTopic() bool {
	return len(p.Tags) > 0 || p.TopicID != nil
}

// TagIds returns the ids of all tags attached to the post.
func (p *Post) TagIds() []string {
	ids := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		ids = append(ids, t.Id)
	}
	return ids
}

// DeriveCoverRatio classifies the first image's aspect ratio. Ratios within
// 5% of a perfect square count as square so slightly cropped uploads don't
// flip the layout.
func DeriveCoverRatio(images []PostImage) CoverRatio {
	if len(images) == 0 {
		return CoverRatioNone
	}
	first := images[0]
	if first.Width <= 0 || first.Height <= 0 {
		return CoverRatioNone
	}
	ratio := float64(first.Width) / float64(first.Height)
	switch {
	case ratio > 1.05:
		return CoverRatioLandscape
	case ratio < 0.95:
		return CoverRatioPortrait
	default:
		return CoverRatioSquare
	}
}

// MakePreview produces the plain text preview stored alongside the rich
// text body, truncated to MaxPreviewRunes.
func MakePreview(content string) string {
	runes := []rune(content)
	if len(runes) <= MaxPreviewRunes {
		return content
	}
	return string(runes[:MaxPreviewRunes])
}
