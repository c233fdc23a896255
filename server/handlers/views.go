package handlers

import (
	"time"

	"github.com/plumeapp/plume/feed"
	"github.com/plumeapp/plume/model"
	Logger "github.com/plumeapp/plume/utils/log"
)

// The wire contract, stable across all feed endpoints:
// { posts: [...], pagination: { nextCursor, hasNextPage, limit } }.
// nextCursor is opaque; hasNextPage false with nextCursor null is the only
// terminal signal.

type authorView struct {
	Id        string `json:"id"`
	Name      string `json:"name"`
	AvatarUrl string `json:"avatarUrl"`
}

type postView struct {
	Id             string            `json:"id"`
	Author         authorView        `json:"author"`
	Content        string            `json:"content"`
	ContentPreview string            `json:"contentPreview"`
	Images         []model.PostImage `json:"images"`
	CoverRatio     model.CoverRatio  `json:"coverRatio"`
	Tags           []string          `json:"tags"`
	Topic          *string           `json:"topic"`
	CommentCount   int64             `json:"commentCount"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

type paginationView struct {
	NextCursor  *string `json:"nextCursor"`
	HasNextPage bool    `json:"hasNextPage"`
	Limit       int     `json:"limit"`
}

type pageView struct {
	Posts      []postView     `json:"posts"`
	Pagination paginationView `json:"pagination"`
}

func toPostView(p *model.Post) postView {
	images, err := p.ImageList()
	if err != nil {
		// A corrupt image column should not fail the whole page.
		Logger.Log.Warn("fail to decode images for post ", p.Id, ": ", err)
		images = []model.PostImage{}
	}

	tags := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		tags = append(tags, t.Name)
	}

	var topic *string
	if p.Topic != nil {
		topic = &p.Topic.Name
	}

	return postView{
		Id: p.Id,
		Author: authorView{
			Id:        p.Author.Id,
			Name:      p.Author.Name,
			AvatarUrl: p.Author.AvatarUrl,
		},
		Content:        p.Content,
		ContentPreview: p.ContentPreview,
		Images:         images,
		CoverRatio:     p.CoverRatio,
		Tags:           tags,
		Topic:          topic,
		CommentCount:   p.CommentCount,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func toPageView(page *feed.Page) pageView {
	posts := make([]postView, 0, len(page.Posts))
	for _, p := range page.Posts {
		posts = append(posts, toPostView(p))
	}

	var nextCursor *string
	if page.NextCursor != nil {
		token := feed.EncodeCursor(page.NextCursor)
		nextCursor = &token
	}

	return pageView{
		Posts: posts,
		Pagination: paginationView{
			NextCursor:  nextCursor,
			HasNextPage: page.HasNext,
			Limit:       page.Limit,
		},
	}
}
