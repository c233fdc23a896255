package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumeapp/plume/classify"
	"github.com/plumeapp/plume/content"
	"github.com/plumeapp/plume/feed"
	"github.com/plumeapp/plume/filestore"
	"github.com/plumeapp/plume/model"
	"github.com/plumeapp/plume/profile"
	"github.com/plumeapp/plume/utils"
	"github.com/plumeapp/plume/utils/dotenv"
)

func TestMain(m *testing.M) {
	dotenv.LoadDotEnvsInTests()
	os.Exit(m.Run())
}

type testServer struct {
	router     *gin.Engine
	profiles   *profile.Store
	classifier *classify.FakeClassifier
}

// newTestServer wires the whole stack against a temp database, with the
// auth middleware left off so tests pass the user id directly.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, _ := utils.CreateTempDB(t)
	require.NoError(t, db.Create(&model.User{Id: "alice", Name: "Alice"}).Error)
	require.NoError(t, db.Create(&model.User{Id: "bob", Name: "Bob"}).Error)

	cache := feed.NewMemoryFirstPageCache()
	classifier := &classify.FakeClassifier{}
	profiles := profile.NewStore(db)
	composer := feed.NewComposer(feed.NewGormCandidateSource(db), profiles, nil)
	contentService := content.NewService(db, classifier, &filestore.FakeImageStore{Prefix: "https://cdn.test/"}, cache)

	bus := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	tracker := profile.NewTracker(profiles, bus)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go tracker.Run(ctx)
	time.Sleep(10 * time.Millisecond)

	handler := NewHandler(db, composer, cache, contentService, tracker, nil)
	router := gin.New()
	handler.RegisterRoutes(router)

	return &testServer{router: router, profiles: profiles, classifier: classifier}
}

func (s *testServer) do(t *testing.T, method, path, userId string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userId != "" {
		req.Header.Set("sub", userId)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodePost(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (s *testServer) createPost(t *testing.T, userId string, body gin.H) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/posts", userId, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id, _ := decodePost(t, w)["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestPostLifecycle(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/posts", "", gin.H{"content": "hi"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	id := s.createPost(t, "alice", gin.H{
		"content": "sunrise over the bay",
		"topic":   "Photography",
		"tags":    []string{"Sunrise", "bay"},
	})

	w = s.do(t, http.MethodGet, "/api/posts/"+id, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decodePost(t, w)
	assert.Equal(t, "sunrise over the bay", view["content"])
	assert.Equal(t, "photography", view["topic"])

	// Only the author may edit.
	w = s.do(t, http.MethodPut, "/api/posts/"+id, "bob", gin.H{"content": "defaced"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPut, "/api/posts/"+id, "alice", gin.H{"content": "sunset actually"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sunset actually", decodePost(t, w)["content"])

	w = s.do(t, http.MethodDelete, "/api/posts/"+id, "bob", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodDelete, "/api/posts/"+id, "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/posts/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRelatedPostsEndpoint(t *testing.T) {
	s := newTestServer(t)

	seed := s.createPost(t, "alice", gin.H{"content": "seed", "tags": []string{"shared"}})
	relatedId := s.createPost(t, "alice", gin.H{"content": "related", "tags": []string{"shared"}})
	otherId := s.createPost(t, "alice", gin.H{"content": "unrelated", "tags": []string{"other"}})

	w := s.do(t, http.MethodGet, "/api/posts/"+seed+"/related", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// The related match leads; the short page is topped up from fallback.
	// The seed itself never appears under its own related feed.
	var page wirePage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Posts, 2)
	assert.Equal(t, relatedId, page.Posts[0].Id)
	assert.Equal(t, otherId, page.Posts[1].Id)

	w = s.do(t, http.MethodGet, "/api/posts/no-such-post/related", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFeedReflectsNewPosts(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/feed", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var empty wirePage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &empty))
	assert.Empty(t, empty.Posts)

	// A write invalidates the cached first page immediately.
	id := s.createPost(t, "alice", gin.H{"content": "fresh"})

	w = s.do(t, http.MethodGet, "/api/feed", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page wirePage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Posts, 1)
	assert.Equal(t, id, page.Posts[0].Id)
}

func TestBehaviorEndpointUpdatesProfile(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	postId := s.createPost(t, "alice", gin.H{"content": "c", "tags": []string{"golang"}})

	w := s.do(t, http.MethodPost, "/api/behavior", "", gin.H{"postId": postId, "action": "like"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/behavior", "bob", gin.H{"postId": postId, "action": "teleport"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/behavior", "bob", gin.H{"postId": postId, "action": "like"})
	require.Equal(t, http.StatusAccepted, w.Code)

	// The event lands asynchronously.
	assert.Eventually(t, func() bool {
		tags, err := s.profiles.TopTags(ctx, "bob", 10)
		return err == nil && len(tags) == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestPersonalizedFeedPrefersInterestMatches(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	liked := s.createPost(t, "alice", gin.H{"content": "about golang", "tags": []string{"golang"}})
	match := s.createPost(t, "alice", gin.H{"content": "more golang", "tags": []string{"golang"}})
	s.createPost(t, "alice", gin.H{"content": "gardening", "tags": []string{"plants"}})

	w := s.do(t, http.MethodPost, "/api/behavior", "bob", gin.H{"postId": liked, "action": "like"})
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Eventually(t, func() bool {
		tags, err := s.profiles.TopTags(ctx, "bob", 10)
		return err == nil && len(tags) > 0
	}, 2*time.Second, 20*time.Millisecond)

	// Limit 2: the profile phase fills the page with the tagged posts before
	// the fallback ever runs.
	w = s.do(t, http.MethodGet, "/api/feed?limit=2", "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page wirePage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Posts, 2)
	ids := map[string]bool{page.Posts[0].Id: true, page.Posts[1].Id: true}
	assert.True(t, ids[liked])
	assert.True(t, ids[match])
}
