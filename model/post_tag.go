package model

import "time"

// PostTag is the explicit join table behind the Post<->Tag many-to-many
// relation. CreatedAt records when the tag was attached, which keeps the
// association auditable.
type PostTag struct {
	PostId    string `gorm:"primaryKey"`
	TagId     string `gorm:"primaryKey"`
	CreatedAt time.Time
}
