package repository_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"docrepo/internal/repository"
	"docrepo/internal/repository/memory"
)

type item struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

var itemCodec = repository.JSONCodec[item]{Name: "items"}

// account has a uuid identifier and a hand-written codec.
type account struct {
	ID      uuid.UUID
	Owner   string
	Balance int
}

type accountCodec struct{}

func (accountCodec) Encode(a account) (repository.Document, error) {
	return repository.Document{"_id": a.ID, "owner": a.Owner, "balance": a.Balance}, nil
}

func (accountCodec) Decode(doc repository.Document) (account, error) {
	id, err := uuid.Parse(doc.ID())
	if err != nil {
		return account{}, err
	}
	owner, _ := doc["owner"].(string)
	var balance int
	switch v := doc["balance"].(type) {
	case float64:
		balance = int(v)
	case int:
		balance = v
	default:
		return account{}, fmt.Errorf("balance: unexpected %T", v)
	}
	return account{ID: id, Owner: owner, Balance: balance}, nil
}

func newItemRepo(t *testing.T) (*repository.TypedRepository[item, string], *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	repo, err := repository.New[item, string](context.Background(), store, itemCodec)
	require.NoError(t, err)
	return repo, store
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	t.Run("collection from named codec", func(t *testing.T) {
		repo, err := repository.New[item, string](ctx, store, itemCodec)
		require.NoError(t, err)
		assert.Equal(t, "items", repo.Collection())
	})

	t.Run("explicit collection wins", func(t *testing.T) {
		repo, err := repository.New[item, string](ctx, store, itemCodec, repository.WithCollection("archive"))
		require.NoError(t, err)
		assert.Equal(t, "archive", repo.Collection())
	})

	t.Run("nil codec", func(t *testing.T) {
		_, err := repository.New[item, string](ctx, store, nil)
		assert.ErrorIs(t, err, repository.ErrInvalidRecordType)
	})

	t.Run("codec without collection name", func(t *testing.T) {
		_, err := repository.New[account, uuid.UUID](ctx, store, accountCodec{})
		assert.ErrorIs(t, err, repository.ErrInvalidRecordType)
	})

	t.Run("nil store", func(t *testing.T) {
		_, err := repository.New[item, string](ctx, nil, itemCodec)
		assert.Error(t, err)
	})
}

func TestTypedRepository_Scenario(t *testing.T) {
	repo, _ := newItemRepo(t)
	ctx := context.Background()

	in := item{ID: "a1", Name: "x"}
	out, err := repo.Write(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	got, err := repo.Load(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, item{ID: "a1", Name: "x"}, got)

	_, err = repo.Update(ctx, item{ID: "a1", Name: "y"})
	require.NoError(t, err)

	got, err = repo.Load(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, item{ID: "a1", Name: "y"}, got)

	require.NoError(t, repo.DeleteByID(ctx, "a1"))

	_, err = repo.Load(ctx, "a1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTypedRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repo, err := repository.New[account, uuid.UUID](ctx, store, accountCodec{}, repository.WithCollection("accounts"))
	require.NoError(t, err)

	accounts := []account{
		{ID: uuid.New(), Owner: "ana", Balance: 10},
		{ID: uuid.New(), Owner: "bo", Balance: -3},
		{ID: uuid.New(), Owner: "", Balance: 0},
	}
	for _, a := range accounts {
		written, err := repo.Write(ctx, a)
		require.NoError(t, err)

		loaded, err := repo.Load(ctx, written.ID)
		require.NoError(t, err)
		assert.Equal(t, a, loaded)
	}
	assert.Equal(t, len(accounts), store.Len("accounts"))
}

func TestTypedRepository_Write(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate id is rejected", func(t *testing.T) {
		repo, store := newItemRepo(t)
		_, err := repo.Write(ctx, item{ID: "dup", Name: "first"})
		require.NoError(t, err)

		_, err = repo.Write(ctx, item{ID: "dup", Name: "second"})
		assert.ErrorIs(t, err, repository.ErrAlreadyExists)
		assert.Equal(t, 1, store.Len("items"))

		got, err := repo.Load(ctx, "dup")
		require.NoError(t, err)
		assert.Equal(t, "first", got.Name)
	})

	t.Run("missing id", func(t *testing.T) {
		repo, store := newItemRepo(t)
		_, err := repo.Write(ctx, item{Name: "anonymous"})
		assert.ErrorIs(t, err, repository.ErrInvalidID)
		assert.Equal(t, 0, store.Len("items"))
	})
}

func TestTypedRepository_Load(t *testing.T) {
	repo, _ := newItemRepo(t)
	ctx := context.Background()

	_, err := repo.Load(ctx, "never-written")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.Load(ctx, "")
	assert.ErrorIs(t, err, repository.ErrInvalidID)
}

func TestTypedRepository_LoadAll(t *testing.T) {
	repo, _ := newItemRepo(t)
	ctx := context.Background()

	want := map[string]item{}
	for i := range 5 {
		it := item{ID: fmt.Sprintf("d%d", i), Name: fmt.Sprintf("name-%d", i)}
		want[it.ID] = it
		_, err := repo.Write(ctx, it)
		require.NoError(t, err)
	}

	seq := repo.LoadAll(ctx)
	for pass := range 2 {
		got := map[string]item{}
		for it, err := range seq {
			require.NoError(t, err)
			got[it.ID] = it
		}
		assert.Equal(t, want, got, "pass %d", pass)
	}

	t.Run("early break", func(t *testing.T) {
		n := 0
		for _, err := range repo.LoadAll(ctx) {
			require.NoError(t, err)
			n++
			if n == 2 {
				break
			}
		}
		assert.Equal(t, 2, n)
	})

	t.Run("sees later writes", func(t *testing.T) {
		_, err := repo.Write(ctx, item{ID: "late", Name: "late"})
		require.NoError(t, err)
		n := 0
		for _, err := range seq {
			require.NoError(t, err)
			n++
		}
		assert.Equal(t, 6, n)
	})
}

func TestTypedRepository_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("missing document", func(t *testing.T) {
		repo, store := newItemRepo(t)
		_, err := repo.Update(ctx, item{ID: "ghost", Name: "boo"})
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.Equal(t, 0, store.Len("items"))
	})

	t.Run("idempotent", func(t *testing.T) {
		repo, _ := newItemRepo(t)
		_, err := repo.Write(ctx, item{ID: "u1", Name: "before"})
		require.NoError(t, err)

		upd := item{ID: "u1", Name: "after"}
		for range 2 {
			out, err := repo.Update(ctx, upd)
			require.NoError(t, err)
			assert.Equal(t, upd, out)
		}
		got, err := repo.Load(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, upd, got)
	})
}

func TestTypedRepository_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("delete then delete again", func(t *testing.T) {
		repo, store := newItemRepo(t)
		r := item{ID: "r1", Name: "x"}
		_, err := repo.Write(ctx, r)
		require.NoError(t, err)

		require.NoError(t, repo.Delete(ctx, r))
		assert.Equal(t, 0, store.Len("items"))

		err = repo.Delete(ctx, r)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("delete and delete by id are equivalent", func(t *testing.T) {
		byRecord, _ := newItemRepo(t)
		byID, _ := newItemRepo(t)
		r := item{ID: "same", Name: "x"}

		for _, repo := range []*repository.TypedRepository[item, string]{byRecord, byID} {
			_, err := repo.Write(ctx, r)
			require.NoError(t, err)
		}

		errRecord := byRecord.Delete(ctx, r)
		errID := byID.DeleteByID(ctx, r.ID)
		assert.Equal(t, errRecord == nil, errID == nil)

		errRecord = byRecord.Delete(ctx, r)
		errID = byID.DeleteByID(ctx, r.ID)
		assert.ErrorIs(t, errRecord, repository.ErrNotFound)
		assert.ErrorIs(t, errID, repository.ErrNotFound)
	})

	t.Run("empty id", func(t *testing.T) {
		repo, _ := newItemRepo(t)
		assert.ErrorIs(t, repo.DeleteByID(ctx, ""), repository.ErrInvalidID)
	})
}

type failingCollection struct {
	repository.Collection
	err error
}

func (f failingCollection) FindOne(context.Context, repository.Filter) (repository.Document, error) {
	return nil, f.err
}

func (f failingCollection) Find(context.Context) (repository.Cursor, error) {
	return nil, f.err
}

type failingStore struct{ coll repository.Collection }

func (s failingStore) Collection(context.Context, string) (repository.Collection, error) {
	return s.coll, nil
}

func (s failingStore) Ping(context.Context) error { return nil }

func TestTypedRepository_StoreErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection reset")
	repo, err := repository.New[item, string](ctx, failingStore{coll: failingCollection{err: boom}}, itemCodec)
	require.NoError(t, err)

	_, err = repo.Load(ctx, "x")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, repository.ErrNotFound)

	var calls int
	for _, err := range repo.LoadAll(ctx) {
		calls++
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, 1, calls)
}

type counter struct {
	ID    int    `json:"_id"`
	Label string `json:"label"`
}

type ledgerEntry struct {
	ID     int64 `json:"_id"`
	Amount int   `json:"amount"`
}

func TestTypedRepository_NumericIDs(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	t.Run("int", func(t *testing.T) {
		repo, err := repository.New[counter, int](ctx, store, repository.JSONCodec[counter]{Name: "counters"})
		require.NoError(t, err)

		for _, id := range []int{42, 1234567, -3} {
			in := counter{ID: id, Label: fmt.Sprintf("c%d", id)}
			_, err := repo.Write(ctx, in)
			require.NoError(t, err)

			got, err := repo.Load(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, in, got)
		}

		coll, err := store.Collection(ctx, "counters")
		require.NoError(t, err)
		doc, err := coll.FindOne(ctx, repository.ByID("1234567"))
		require.NoError(t, err)
		assert.Equal(t, "1234567", doc.ID())

		require.NoError(t, repo.DeleteByID(ctx, 1234567))
		_, err = repo.Load(ctx, 1234567)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("int64 update and list", func(t *testing.T) {
		repo, err := repository.New[ledgerEntry, int64](ctx, store, repository.JSONCodec[ledgerEntry]{Name: "ledger"})
		require.NoError(t, err)

		_, err = repo.Write(ctx, ledgerEntry{ID: 9007199254740993, Amount: 1})
		require.NoError(t, err)
		_, err = repo.Update(ctx, ledgerEntry{ID: 9007199254740993, Amount: 5})
		require.NoError(t, err)

		var all []ledgerEntry
		for e, err := range repo.LoadAll(ctx) {
			require.NoError(t, err)
			all = append(all, e)
		}
		assert.Equal(t, []ledgerEntry{{ID: 9007199254740993, Amount: 5}}, all)
	})

	t.Run("non-numeric stored id", func(t *testing.T) {
		_, err := repository.JSONCodec[counter]{}.Decode(repository.Document{"_id": "abc"})
		assert.ErrorContains(t, err, "unmarshal document")
	})
}

func TestTypedRepository_Spans(t *testing.T) {
	ctx := context.Background()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	repo, err := repository.New[item, string](ctx, memory.NewStore(), itemCodec, repository.WithTracer(tp.Tracer("test")))
	require.NoError(t, err)

	_, err = repo.Write(ctx, item{Name: "no id"})
	require.ErrorIs(t, err, repository.ErrInvalidID)
	_, err = repo.Update(ctx, item{Name: "no id"})
	require.ErrorIs(t, err, repository.ErrInvalidID)
	require.ErrorIs(t, repo.Delete(ctx, item{}), repository.ErrInvalidID)
	require.ErrorIs(t, repo.DeleteByID(ctx, ""), repository.ErrInvalidID)

	spans := rec.Ended()
	require.Len(t, spans, 4)
	for i, name := range []string{"repository.Write", "repository.Update", "repository.Delete", "repository.DeleteByID"} {
		assert.Equal(t, name, spans[i].Name())
		assert.Equal(t, codes.Error, spans[i].Status().Code)
	}
}

func TestKeyString(t *testing.T) {
	id := uuid.MustParse("6f1c1a9e-3d0b-4c57-9b0e-1c2d3e4f5a6b")
	tests := []struct {
		name string
		in   any
		want string
	}{
		{name: "string", in: "abc", want: "abc"},
		{name: "bytes", in: []byte("raw"), want: "raw"},
		{name: "stringer", in: id, want: "6f1c1a9e-3d0b-4c57-9b0e-1c2d3e4f5a6b"},
		{name: "int", in: 42, want: "42"},
		{name: "int64", in: int64(-7), want: "-7"},
		{name: "large float", in: float64(1234567), want: "1234567"},
		{name: "nil", in: nil, want: ""},
		{name: "nil pointer", in: (*uuid.UUID)(nil), want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repository.KeyString(tt.in))
		})
	}
}
