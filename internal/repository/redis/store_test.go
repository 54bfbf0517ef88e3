package redis

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrepo/internal/repository"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, "test"), srv
}

func TestCollection_CRUD(t *testing.T) {
	ctx := context.Background()
	store, srv := newTestStore(t)

	require.NoError(t, store.Ping(ctx))

	coll, err := store.Collection(ctx, "notes")
	require.NoError(t, err)
	assert.Equal(t, "test:notes", coll.(*Collection).Key())

	require.NoError(t, coll.InsertOne(ctx, repository.Document{"_id": "n1", "title": "a", "views": 1}))
	assert.ErrorIs(t, coll.InsertOne(ctx, repository.Document{"_id": "n1", "title": "b"}), repository.ErrDuplicateKey)
	assert.True(t, srv.Exists("test:notes"))

	doc, err := coll.FindOne(ctx, repository.ByID("n1"))
	require.NoError(t, err)
	assert.Equal(t, "a", doc["title"])
	assert.Equal(t, float64(1), doc["views"])

	_, err = coll.FindOne(ctx, repository.ByID("missing"))
	assert.ErrorIs(t, err, repository.ErrNoDocument)

	res, err := coll.UpdateOne(ctx, repository.ByID("n1"), repository.Document{"_id": "n1", "title": "b"})
	require.NoError(t, err)
	assert.Equal(t, repository.UpdateResult{Matched: 1, Modified: 1}, res)

	res, err = coll.UpdateOne(ctx, repository.ByID("n1"), repository.Document{"_id": "n1", "title": "b"})
	require.NoError(t, err)
	assert.Equal(t, repository.UpdateResult{Matched: 1, Modified: 0}, res)

	res, err = coll.UpdateOne(ctx, repository.ByID("missing"), repository.Document{"title": "x"})
	require.NoError(t, err)
	assert.Equal(t, repository.UpdateResult{}, res)

	doc, err = coll.FindOne(ctx, repository.ByID("n1"))
	require.NoError(t, err)
	assert.Equal(t, "b", doc["title"])
	assert.Equal(t, float64(1), doc["views"])

	n, err := coll.DeleteOne(ctx, repository.ByID("n1"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = coll.DeleteOne(ctx, repository.ByID("n1"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCollection_FindPages(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	coll, err := store.Collection(ctx, "notes")
	require.NoError(t, err)

	want := map[string]bool{}
	for i := range 250 {
		id := fmt.Sprintf("n%03d", i)
		want[id] = true
		require.NoError(t, coll.InsertOne(ctx, repository.Document{"_id": id}))
	}

	cur, err := coll.Find(ctx)
	require.NoError(t, err)
	defer cur.Close(ctx)

	got := map[string]bool{}
	for cur.Next(ctx) {
		doc, err := cur.Document()
		require.NoError(t, err)
		got[doc.ID()] = true
	}
	require.NoError(t, cur.Err())
	assert.Equal(t, want, got)
}

func TestCursor_SkipsRepeatedFields(t *testing.T) {
	ctx := context.Background()
	// A finished scan whose buffered page repeats a field, as HSCAN does
	// during a rehash.
	cur := &cursor{started: true, page: []string{
		"a1", `{"_id":"a1"}`,
		"b2", `{"_id":"b2"}`,
		"a1", `{"_id":"a1"}`,
	}}

	var ids []string
	for cur.Next(ctx) {
		doc, err := cur.Document()
		require.NoError(t, err)
		ids = append(ids, doc.ID())
	}

	require.NoError(t, cur.Err())
	assert.Equal(t, []string{"a1", "b2"}, ids)
}

func TestCollection_FindEmpty(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	coll, err := store.Collection(ctx, "empty")
	require.NoError(t, err)

	cur, err := coll.Find(ctx)
	require.NoError(t, err)
	assert.False(t, cur.Next(ctx))
	assert.NoError(t, cur.Err())
}

func TestCollection_ConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	coll, err := store.Collection(ctx, "notes")
	require.NoError(t, err)
	require.NoError(t, coll.InsertOne(ctx, repository.Document{"_id": "n1"}))

	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			field := fmt.Sprintf("f%d", i)
			_, err := coll.UpdateOne(ctx, repository.ByID("n1"), repository.Document{field: i})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	doc, err := coll.FindOne(ctx, repository.ByID("n1"))
	require.NoError(t, err)
	for i := range 4 {
		assert.Equal(t, float64(i), doc[fmt.Sprintf("f%d", i)])
	}
}

func TestStore_EmptyCollectionName(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Collection(context.Background(), "")
	assert.Error(t, err)
}

func TestTypedRepository_OverRedis(t *testing.T) {
	type task struct {
		ID   string `json:"_id"`
		Name string `json:"name"`
	}
	ctx := context.Background()
	store, _ := newTestStore(t)

	repo, err := repository.New[task, string](ctx, store, repository.JSONCodec[task]{Name: "tasks"})
	require.NoError(t, err)

	_, err = repo.Write(ctx, task{ID: "t7", Name: "seven"})
	require.NoError(t, err)
	got, err := repo.Load(ctx, "t7")
	require.NoError(t, err)
	assert.Equal(t, task{ID: "t7", Name: "seven"}, got)

	require.NoError(t, repo.Delete(ctx, got))
	_, err = repo.Load(ctx, "t7")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
