package dataloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/graph-gophers/dataloader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/studyabroad-realtime/internal/domain"
	"github.com/UkralStul/studyabroad-realtime/internal/storage"
	"github.com/UkralStul/studyabroad-realtime/internal/storage/inmemory"
)

// countingStore считает батч-запросы голосов.
type countingStore struct {
	storage.Storage
	batches atomic.Int32
}

func (s *countingStore) GetVotesByPostIDs(ctx context.Context, postIDs []string) (map[string][]*domain.PollVote, error) {
	s.batches.Add(1)
	return s.Storage.GetVotesByPostIDs(ctx, postIDs)
}

func TestLoaders_PollVotesBatches(t *testing.T) {
	ctx := context.Background()
	mem := inmemory.New()
	require.NoError(t, mem.UpsertVote(ctx, &domain.PollVote{PostID: "p1", UserID: "a", OptionID: "1"}))
	require.NoError(t, mem.UpsertVote(ctx, &domain.PollVote{PostID: "p1", UserID: "b", OptionID: "2"}))
	require.NoError(t, mem.UpsertVote(ctx, &domain.PollVote{PostID: "p2", UserID: "a", OptionID: "1"}))
	store := &countingStore{Storage: mem}

	votes, err := NewLoaders(store, dataloader.WithWait(50*time.Millisecond)).PollVotes(ctx, []string{"p1", "p2", "p3"})
	require.NoError(t, err)

	assert.EqualValues(t, 1, store.batches.Load())
	assert.Len(t, votes["p1"], 2)
	assert.Len(t, votes["p2"], 1)
	assert.Empty(t, votes["p3"])
}

func TestMiddleware_InjectsLoaders(t *testing.T) {
	assert.Nil(t, For(context.Background()))

	var got *Loaders
	h := Middleware(inmemory.New(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = For(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, got)
	assert.NotNil(t, got.PollVotesByPostID)
}
