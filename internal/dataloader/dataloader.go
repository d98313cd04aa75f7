package dataloader

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/graph-gophers/dataloader"

	"github.com/UkralStul/studyabroad-realtime/internal/domain"
	"github.com/UkralStul/studyabroad-realtime/internal/storage"
)

type contextKey string

const key = contextKey("dataloaders")

// Loaders содержит все дата-лоадеры запроса.
type Loaders struct {
	PollVotesByPostID *dataloader.Loader
}

// NewLoaders создает лоадеры поверх хранилища; они живут один запрос.
// opts применяются после значений по умолчанию.
func NewLoaders(store storage.Storage, opts ...dataloader.Option) *Loaders {
	// Создаем батч-функцию для лоадера
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		postIDs := keys.Keys()

		// Вызываем метод хранилища, который делает ОДИН запрос к БД
		votesMap, err := store.GetVotesByPostIDs(ctx, postIDs)
		if err != nil {
			// В случае ошибки, возвращаем ее для всех ключей
			results := make([]*dataloader.Result, len(keys))
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		// Формируем результат в том же порядке, что и ключи
		results := make([]*dataloader.Result, len(keys))
		for i, postID := range postIDs {
			results[i] = &dataloader.Result{Data: votesMap[postID]}
		}
		return results
	}

	defaults := []dataloader.Option{
		dataloader.WithWait(time.Millisecond * 1),
		dataloader.WithCache(&dataloader.NoCache{}),
	}
	return &Loaders{
		PollVotesByPostID: dataloader.NewBatchedLoader(batchFn, append(defaults, opts...)...),
	}
}

// Middleware для внедрения лоадеров в контекст запроса.
func Middleware(store storage.Storage, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), key, NewLoaders(store))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// For извлекает лоадеры из контекста; nil, если Middleware не подключен.
func For(ctx context.Context) *Loaders {
	loaders, _ := ctx.Value(key).(*Loaders)
	return loaders
}

// PollVotes загружает голоса всех постов одним батчем. Для постов без
// голосов возвращается пустой слайс.
func (l *Loaders) PollVotes(ctx context.Context, postIDs []string) (map[string][]*domain.PollVote, error) {
	// все Load до первого thunk(), иначе батч разобьется
	thunks := make([]dataloader.Thunk, len(postIDs))
	for i, id := range postIDs {
		thunks[i] = l.PollVotesByPostID.Load(ctx, dataloader.StringKey(id))
	}

	out := make(map[string][]*domain.PollVote, len(postIDs))
	for i, thunk := range thunks {
		data, err := thunk()
		if err != nil {
			return nil, fmt.Errorf("load poll votes: %w", err)
		}
		votes, _ := data.([]*domain.PollVote)
		out[postIDs[i]] = votes
	}
	return out, nil
}
