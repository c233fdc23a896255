// Package filestore holds the stored image objects behind post image URLs.
// The core only needs two things from it: turning stored keys into public
// URLs, and removing a deleted post's objects.
package filestore

// ImageStore abstracts the object storage holding post images.
type ImageStore interface {
	// GetUrlFromKey maps a stored object key to its public (CDN) URL.
	GetUrlFromKey(key string) string

	// KeyFromUrl is the inverse mapping. The second return is false for
	// URLs not served from this store (e.g. external images), which must be
	// left alone on deletion.
	KeyFromUrl(url string) (string, bool)

	// DeleteKeys removes stored objects, used when a post deletion cascades
	// to its images.
	DeleteKeys(keys []string) error
}
