package model

import "time"

type User struct {
	Id        string `gorm:"primaryKey"`
	CreatedAt time.Time
	DeletedAt time.Time
	Name      string
	AvatarUrl string
}
