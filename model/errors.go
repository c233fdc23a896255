package model

import "github.com/pkg/errors"

// ErrTooManyImages is returned when a post's image list exceeds
// MaxImagesPerPost.
var ErrTooManyImages = errors.New("post exceeds the maximum number of images")
