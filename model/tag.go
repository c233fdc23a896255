package model

import (
	"strings"
	"time"
)

/*

Tag is a normalized label attached to posts

Id: primary key
Name: normalized (lowercased, whitespace trimmed) label, unique
PostCount: number of posts ever associated with this tag, used to rank tag
	popularity. Incremented on each association, intentionally never
	decremented on post deletion.

*/
type Tag struct {
	Id        string `gorm:"primaryKey"`
	CreatedAt time.Time
	Name      string `gorm:"uniqueIndex"`
	PostCount int64
}

/*

Topic is the single primary subject of a post, same normalization and
counter semantics as Tag

*/
type Topic struct {
	Id        string `gorm:"primaryKey"`
	CreatedAt time.Time
	Name      string `gorm:"uniqueIndex"`
	PostCount int64
}

// NormalizeLabel canonicalizes a tag or topic name before lookup or
// insertion so that "  Golang " and "golang" resolve to the same row.
func NormalizeLabel(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
