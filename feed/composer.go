package feed

import (
	"context"

	"github.com/DataDog/datadog-go/statsd"

	"github.com/plumeapp/plume/model"
)

const (
	// DefaultPageLimit is used when the request does not specify a limit.
	DefaultPageLimit = 10
	// MaxPageLimit caps the per-page limit accepted from clients.
	MaxPageLimit = 50
	// topInterestTagCount is how many of the user's highest weighted tags
	// feed the interest-weighted strategy.
	topInterestTagCount = 10
)

// InterestSource exposes the slice of a user's interest profile the
// composer needs: the top-k highest weighted tag ids.
type InterestSource interface {
	TopTags(ctx context.Context, userId string, k int) ([]string, error)
}

// Request is one inbound page request after transport-level parsing.
// Seed is non-nil only for the related-posts flow.
type Request struct {
	UserID  string
	Seed    *model.Post
	Limit   int
	Cursor  *Cursor
	Exclude *ExclusionSet
}

// Page is one composed feed page. NextCursor is nil iff every phase is
// exhausted, which is the only terminal signal.
type Page struct {
	Posts      []*model.Post `json:"posts"`
	NextCursor *Cursor       `json:"nextCursor"`
	HasNext    bool          `json:"hasNextPage"`
	Limit      int           `json:"limit"`
}

// Composer sequences the candidate strategies into a single page per
// request. The full state machine lives in the cursor the client round
// trips, so the composer itself is stateless and requests are independent.
//
// Phase order is related -> profile -> fallback for the seed-scoped flow
// and profile -> fallback for the home timeline. Fallback is terminal: once
// a cursor says fallback the session paginates chronologically forever and
// never re-probes the earlier phases.
type Composer struct {
	Source   CandidateSource
	Profiles InterestSource
	Statsd   *statsd.Client
}

func NewComposer(source CandidateSource, profiles InterestSource, statsdClient *statsd.Client) *Composer {
	return &Composer{Source: source, Profiles: profiles, Statsd: statsdClient}
}

// ClampLimit normalizes a client supplied limit into [1, MaxPageLimit].
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageLimit
	}
	if limit > MaxPageLimit {
		return MaxPageLimit
	}
	return limit
}

// session carries per-request scratch state, mainly the lazily loaded top
// interest tags so one request never fetches them twice.
type session struct {
	req        *Request
	topTags    []string
	tagsLoaded bool
}

func (s *session) interestTags(ctx context.Context, c *Composer) ([]string, error) {
	if s.tagsLoaded {
		return s.topTags, nil
	}
	tags, err := c.Profiles.TopTags(ctx, s.req.UserID, topInterestTagCount)
	if err != nil {
		return nil, err
	}
	s.topTags = tags
	s.tagsLoaded = true
	return tags, nil
}

// Compose produces one page and the cursor to resume from.
func (c *Composer) Compose(ctx context.Context, req *Request) (*Page, error) {
	limit := ClampLimit(req.Limit)
	if req.Exclude == nil {
		req.Exclude = NewExclusionSet()
	}
	sess := &session{req: req}

	phase, key := c.entryState(req)

	picked := map[string]struct{}{}
	posts, next, err := c.fill(ctx, sess, phase, key, limit, picked)
	if err != nil {
		return nil, err
	}

	return &Page{
		Posts:      posts,
		NextCursor: next,
		HasNext:    next != nil,
		Limit:      limit,
	}, nil
}

// entryState decides where a request resumes. A decoded cursor wins; a
// cursor whose phase cannot apply to this flow (e.g. a related cursor on
// the home timeline) degrades to the start of fallback, the same policy as
// a corrupt token.
func (c *Composer) entryState(req *Request) (Phase, *PageKey) {
	if req.Cursor != nil {
		phase := req.Cursor.Phase
		if phase == PhaseRelated && req.Seed == nil {
			return PhaseFallback, nil
		}
		return phase, req.Cursor.position()
	}
	if req.Seed != nil {
		return PhaseRelated, nil
	}
	return PhaseProfile, nil
}

// next returns the phase that follows p. Fallback has no successor.
func (c *Composer) nextPhase(p Phase) Phase {
	if p == PhaseRelated {
		return PhaseProfile
	}
	return PhaseFallback
}

// resolve skips phases that cannot produce anything for this request
// without issuing their query: a seed with neither tags nor topic cannot
// seed relatedness, and an anonymous or interest-less user has no profile
// phase. Skipped phases lose their keyset position since the replacement
// phase starts fresh.
func (c *Composer) resolve(ctx context.Context, sess *session, phase Phase, key *PageKey) (Phase, *PageKey, error) {
	for {
		switch phase {
		case PhaseRelated:
			if sess.req.Seed != nil && sess.req.Seed.HasTagsOrTopic() {
				return phase, key, nil
			}
		case PhaseProfile:
			if sess.req.UserID == "" {
				break
			}
			tags, err := sess.interestTags(ctx, c)
			if err != nil {
				return phase, key, err
			}
			if len(tags) > 0 {
				return phase, key, nil
			}
		default:
			return PhaseFallback, key, nil
		}
		phase = c.nextPhase(phase)
		key = nil
	}
}

// fill implements the per-request transition rule. Given a phase and its
// resume position it queries that phase for up to limit items, then:
//
//   - full page and the phase has more: stay, cursor advances in-phase.
//   - zero items: skip straight to the next phase for the full limit.
//   - some but not enough: supplement the shortfall from the next phase,
//     deduplicating against what this response already picked, and let the
//     supplement decide the outgoing cursor.
//   - full page but the phase is exhausted: declare the next phase in the
//     cursor so the following request does not re-probe an empty phase.
//
// picked accumulates every id chosen in this response; supplement queries
// exclude it so one response never repeats an id across phases.
func (c *Composer) fill(ctx context.Context, sess *session, phase Phase, key *PageKey, limit int, picked map[string]struct{}) ([]*model.Post, *Cursor, error) {
	phase, key, err := c.resolve(ctx, sess, phase, key)
	if err != nil {
		return nil, nil, err
	}

	items, hasMore, err := c.query(ctx, sess, phase, key, limit, picked)
	if err != nil {
		return nil, nil, err
	}
	c.countPhase(phase, len(items))

	if len(items) == 0 {
		if phase == PhaseFallback {
			return []*model.Post{}, nil, nil
		}
		return c.fill(ctx, sess, c.nextPhase(phase), nil, limit, picked)
	}

	for _, p := range items {
		picked[p.Id] = struct{}{}
	}
	last := keyOf(items[len(items)-1])

	if len(items) == limit {
		if hasMore {
			return items, cursorFor(phase, last), nil
		}
		if phase == PhaseFallback {
			return items, nil, nil
		}
		return items, &Cursor{Phase: c.nextPhase(phase)}, nil
	}

	// Shortfall: this phase is exhausted. Supplement from the next phase so
	// the client never sees a short page while data remains elsewhere.
	if phase == PhaseFallback {
		return items, nil, nil
	}
	supplement, next, err := c.fill(ctx, sess, c.nextPhase(phase), nil, limit-len(items), picked)
	if err != nil {
		return nil, nil, err
	}
	return append(items, supplement...), next, nil
}

func (c *Composer) query(ctx context.Context, sess *session, phase Phase, key *PageKey, limit int, picked map[string]struct{}) ([]*model.Post, bool, error) {
	exclude := sess.req.Exclude.Ids()
	for id := range picked {
		exclude = append(exclude, id)
	}

	switch phase {
	case PhaseRelated:
		return c.Source.Related(ctx, sess.req.Seed, key, limit, exclude)
	case PhaseProfile:
		tags, err := sess.interestTags(ctx, c)
		if err != nil {
			return nil, false, err
		}
		return c.Source.ByInterest(ctx, tags, key, limit, exclude)
	default:
		return c.Source.Chronological(ctx, key, limit, exclude)
	}
}

func cursorFor(phase Phase, key *PageKey) *Cursor {
	if phase == PhaseFallback {
		return &Cursor{Phase: phase, Inner: key}
	}
	return &Cursor{Phase: phase, Key: key}
}

func (c *Composer) countPhase(phase Phase, served int) {
	if c.Statsd == nil {
		return
	}
	// Best effort metric, ignore submission errors.
	_ = c.Statsd.Incr("plume.feed.phase_query", []string{"phase:" + string(phase)}, 1)
	_ = c.Statsd.Count("plume.feed.phase_served", int64(served), []string{"phase:" + string(phase)}, 1)
}
