package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumeapp/plume/feed"
	"github.com/plumeapp/plume/model"
)

// fakeFeedSource serves the fallback and interest strategies from fixed
// slices, counting fallback invocations so tests can observe whether the
// cache absorbed a request.
type fakeFeedSource struct {
	posts    []*model.Post
	interest []*model.Post
	calls    int
}

func servePage(items []*model.Post, key *feed.PageKey, limit int, exclude []string) ([]*model.Post, bool, error) {
	skip := map[string]struct{}{}
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	var matched []*model.Post
	for _, p := range items {
		if key != nil {
			ts := p.CreatedAt.UnixMicro()
			if !(ts < key.CreatedAt || (ts == key.CreatedAt && p.Id < key.Id)) {
				continue
			}
		}
		if _, ok := skip[p.Id]; ok {
			continue
		}
		matched = append(matched, p)
	}
	if len(matched) > limit {
		return matched[:limit], true, nil
	}
	return matched, false, nil
}

func (f *fakeFeedSource) Chronological(_ context.Context, key *feed.PageKey, limit int, exclude []string) ([]*model.Post, bool, error) {
	f.calls++
	return servePage(f.posts, key, limit, exclude)
}

func (f *fakeFeedSource) ByInterest(_ context.Context, _ []string, key *feed.PageKey, limit int, exclude []string) ([]*model.Post, bool, error) {
	return servePage(f.interest, key, limit, exclude)
}

func (f *fakeFeedSource) Related(context.Context, *model.Post, *feed.PageKey, int, []string) ([]*model.Post, bool, error) {
	return []*model.Post{}, false, nil
}

type noInterests struct{}

func (noInterests) TopTags(context.Context, string, int) ([]string, error) {
	return []string{}, nil
}

type fixedInterests struct {
	tags []string
}

func (f fixedInterests) TopTags(context.Context, string, int) ([]string, error) {
	return f.tags, nil
}

type wirePage struct {
	Posts []struct {
		Id string `json:"id"`
	} `json:"posts"`
	Pagination struct {
		NextCursor  *string `json:"nextCursor"`
		HasNextPage bool    `json:"hasNextPage"`
		Limit       int     `json:"limit"`
	} `json:"pagination"`
}

func newFeedRouter(t *testing.T, postCount int) (*gin.Engine, *fakeFeedSource) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	source := &fakeFeedSource{}
	base := time.Now()
	for i := 0; i < postCount; i++ {
		source.posts = append(source.posts, &model.Post{
			Id:        fmt.Sprintf("post-%d", i+1),
			CreatedAt: base.Add(-time.Duration(i) * time.Minute),
		})
	}

	composer := feed.NewComposer(source, noInterests{}, nil)
	handler := NewHandler(nil, composer, feed.NewMemoryFirstPageCache(), nil, nil, nil)
	router := gin.New()
	handler.RegisterRoutes(router)
	return router, source
}

func getFeed(t *testing.T, router *gin.Engine, query string, userId string) (*httptest.ResponseRecorder, wirePage) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/feed"+query, nil)
	if userId != "" {
		req.Header.Set("sub", userId)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var page wirePage
	if w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	}
	return w, page
}

func TestGetFeedAnonymousFirstPageIsCached(t *testing.T) {
	router, source := newFeedRouter(t, 15)

	w, first := getFeed(t, router, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, first.Posts, 10)
	assert.True(t, first.Pagination.HasNextPage)
	require.Equal(t, 1, source.calls)

	w, second := getFeed(t, router, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, first, second)
	// Served from cache, the query layer was not consulted again.
	assert.Equal(t, 1, source.calls)
}

func TestGetFeedAuthenticatedRequestSkipsCache(t *testing.T) {
	router, source := newFeedRouter(t, 15)

	for i := 0; i < 2; i++ {
		w, _ := getFeed(t, router, "", "user-1")
		require.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, 2, source.calls)
}

func TestGetFeedCursorPaginatesToEnd(t *testing.T) {
	router, _ := newFeedRouter(t, 15)

	w, first := getFeed(t, router, "?limit=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, first.Posts, 10)
	require.NotNil(t, first.Pagination.NextCursor)

	w, second := getFeed(t, router, "?limit=10&cursor="+*first.Pagination.NextCursor, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, second.Posts, 5)
	assert.False(t, second.Pagination.HasNextPage)
	assert.Nil(t, second.Pagination.NextCursor)

	// No overlap across the two pages.
	seen := map[string]struct{}{}
	for _, p := range first.Posts {
		seen[p.Id] = struct{}{}
	}
	for _, p := range second.Posts {
		_, dup := seen[p.Id]
		assert.False(t, dup)
	}
}

func TestGetFeedExclusionSkipsCacheAndFilters(t *testing.T) {
	router, source := newFeedRouter(t, 5)

	w, page := getFeed(t, router, "?excludeIds=post-1,post-3", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, source.calls)
	for _, p := range page.Posts {
		assert.NotEqual(t, "post-1", p.Id)
		assert.NotEqual(t, "post-3", p.Id)
	}

	// An exclusion-bearing request must never be answered from the cache.
	getFeed(t, router, "?excludeIds=post-1,post-3", "")
	assert.Equal(t, 2, source.calls)
}

func TestGetFeedCorruptCursorDegradesToFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)

	source := &fakeFeedSource{}
	base := time.Now()
	for i := 0; i < 3; i++ {
		ts := base.Add(-time.Duration(i) * time.Minute)
		source.interest = append(source.interest, &model.Post{Id: fmt.Sprintf("personal-%d", i+1), CreatedAt: ts})
		source.posts = append(source.posts, &model.Post{Id: fmt.Sprintf("chrono-%d", i+1), CreatedAt: ts})
	}
	composer := feed.NewComposer(source, fixedInterests{tags: []string{"t1"}}, nil)
	handler := NewHandler(nil, composer, feed.NewMemoryFirstPageCache(), nil, nil, nil)
	router := gin.New()
	handler.RegisterRoutes(router)

	// Without a cursor the personalized phase leads.
	w, page := getFeed(t, router, "", "user-1")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, page.Posts)
	assert.Equal(t, "personal-1", page.Posts[0].Id)

	// A supplied-but-corrupt token belongs to a session already underway:
	// it resumes at the start of fallback instead of regressing into the
	// personalized phases and re-serving their content.
	w, page = getFeed(t, router, "?cursor=not-a-real-token", "user-1")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, page.Posts, 3)
	assert.Equal(t, "chrono-1", page.Posts[0].Id)
	for _, p := range page.Posts {
		assert.NotContains(t, p.Id, "personal")
	}
}

func TestGetFeedClampsLimit(t *testing.T) {
	router, _ := newFeedRouter(t, 5)

	w, page := getFeed(t, router, "?limit=-3", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, feed.DefaultPageLimit, page.Pagination.Limit)

	w, page = getFeed(t, router, "?limit=1000", "user-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, feed.MaxPageLimit, page.Pagination.Limit)
}
