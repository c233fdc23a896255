// Package classify wraps the external NLP collaborator that labels a post
// body with a primary topic and a handful of tags. Callers treat failures
// as non-fatal: a post is still publishable without labels.
package classify

import "context"

// MaxTags caps how many tags one classification may yield.
const MaxTags = 4

type Result struct {
	Topic string
	Tags  []string
}

type Classifier interface {
	// Classify extracts a primary topic label and 1-4 tag labels from the
	// post body text.
	Classify(ctx context.Context, body string) (*Result, error)
}
