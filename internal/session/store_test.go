package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dish struct {
	Title string `json:"title"`
}

// exerciseStore runs the behaviour every back end must share.
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()
	id := uuid.NewString()

	t.Run("unknown session", func(t *testing.T) {
		_, err := s.Snapshot(ctx, uuid.NewString())
		require.ErrorIs(t, err, ErrNotFound)

		var out []dish
		ok, err := s.Get(ctx, uuid.NewString(), KeyRecipes, &out)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("set and get", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, id, KeyRecipes, []dish{{Title: "Dal"}, {Title: "Pho"}}))
		require.NoError(t, s.Set(ctx, id, KeyFinderError, "none"))
		require.NoError(t, s.Set(ctx, id, KeyFinderError, "No recipes found matching your criteria."))

		var out []dish
		ok, err := s.Get(ctx, id, KeyRecipes, &out)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, []dish{{Title: "Dal"}, {Title: "Pho"}}, out)

		var msg string
		ok, err = s.Get(ctx, id, KeyFinderError, &msg)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "No recipes found matching your criteria.", msg)

		ok, err = s.Get(ctx, id, KeyMealPlan, nil)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("events keep order", func(t *testing.T) {
		for _, tool := range []string{"recipes.search", "recipes.nutrition", "recipes.meal_plan"} {
			require.NoError(t, s.AddEvent(ctx, id, Event{Tool: tool, Kind: "ok", Duration: "1ms"}))
		}
		st, err := s.Snapshot(ctx, id)
		require.NoError(t, err)
		require.Equal(t, id, st.ID)
		require.Len(t, st.Events, 3)
		require.Equal(t, "recipes.search", st.Events[0].Tool)
		require.Equal(t, "recipes.meal_plan", st.Events[2].Tool)
		require.False(t, st.Events[0].Time.IsZero())
		require.JSONEq(t, `[{"title":"Dal"},{"title":"Pho"}]`, string(st.Values[KeyRecipes]))
	})

	t.Run("snapshot is a copy", func(t *testing.T) {
		st, err := s.Snapshot(ctx, id)
		require.NoError(t, err)
		st.Events[0].Tool = "hacked"
		st.Values[KeyRecipes][2] = 'X'
		delete(st.Values, KeyFinderError)

		again, err := s.Snapshot(ctx, id)
		require.NoError(t, err)
		require.Equal(t, "recipes.search", again.Events[0].Tool)
		require.JSONEq(t, `[{"title":"Dal"},{"title":"Pho"}]`, string(again.Values[KeyRecipes]))
		require.Contains(t, again.Values, KeyFinderError)
	})

	t.Run("empty id rejected", func(t *testing.T) {
		require.Error(t, s.Set(ctx, "", "k", 1))
		require.Error(t, s.Append(ctx, "", "k", 1))
		require.Error(t, s.AddEvent(ctx, "", Event{}))
	})

	t.Run("append builds a list", func(t *testing.T) {
		aid := uuid.NewString()
		require.NoError(t, s.Append(ctx, aid, KeyHealthErrors, map[string]any{"recipe_id": 1}))
		require.NoError(t, s.Append(ctx, aid, KeyHealthErrors, map[string]any{"recipe_id": 2}))

		var out []map[string]int
		ok, err := s.Get(ctx, aid, KeyHealthErrors, &out)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, []map[string]int{{"recipe_id": 1}, {"recipe_id": 2}}, out)

		require.NoError(t, s.Set(ctx, aid, KeyFinderError, "text"))
		require.Error(t, s.Append(ctx, aid, KeyFinderError, 1), "a scalar value cannot be appended to")
	})

	t.Run("concurrent appends are all kept", func(t *testing.T) {
		aid := uuid.NewString()
		const n = 20
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				assert.NoError(t, s.Append(ctx, aid, KeyHealthErrors, i))
			}(i)
		}
		wg.Wait()

		var out []int
		_, err := s.Get(ctx, aid, KeyHealthErrors, &out)
		require.NoError(t, err)
		require.ElementsMatch(t, func() []int {
			want := make([]int, n)
			for i := range want {
				want[i] = i
			}
			return want
		}(), out)
	})

	t.Run("concurrent writers", func(t *testing.T) {
		cid := uuid.NewString()
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_ = s.AddEvent(ctx, cid, Event{Tool: "t", Kind: "ok"})
				_ = s.Set(ctx, cid, NutritionKey(i), map[string]string{"calories": "1"})
			}(i)
		}
		wg.Wait()
		st, err := s.Snapshot(ctx, cid)
		require.NoError(t, err)
		require.Len(t, st.Events, 10)
		require.Len(t, st.Values, 10)
	})
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestBoltStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sessions.db")
	s, err := NewBoltStore(path)
	require.NoError(t, err)
	exerciseStore(t, s)
	require.NoError(t, s.Close())

	// state survives a reopen
	ctx := context.Background()
	id := uuid.NewString()
	s, err = NewBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, id, KeyMealPlan, map[string]any{"meals": []any{}}))
	require.NoError(t, s.Close())

	s, err = NewBoltStore(path)
	require.NoError(t, err)
	defer s.Close()
	found, err := s.Get(ctx, id, KeyMealPlan, nil)
	require.NoError(t, err)
	require.True(t, found)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	s, err := NewRedisStore(context.Background(), &redis.Options{Addr: addr}, time.Minute)
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	_, err := NewRedisStore(context.Background(), &redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1}, 0)
	require.Error(t, err)
}

func TestNutritionKey(t *testing.T) {
	require.Equal(t, "nutrition:716429", NutritionKey(716429))
}

func TestHandler(t *testing.T) {
	s := NewMemoryStore()
	id := uuid.NewString()
	ctx := context.Background()
	require.NoError(t, s.AddEvent(ctx, id, Event{Time: time.Now().Add(time.Second), Tool: "second"}))
	require.NoError(t, s.AddEvent(ctx, id, Event{Time: time.Now(), Tool: "first"}))
	require.NoError(t, s.Set(ctx, id, KeyFinderError, "nothing"))

	h := Handler(s)

	t.Run("ok", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h(rr, httptest.NewRequest(http.MethodGet, "/session?id="+id, nil))
		require.Equal(t, http.StatusOK, rr.Code)
		require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

		var st State
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &st))
		require.Equal(t, "first", st.Events[0].Tool)
		require.Equal(t, "second", st.Events[1].Tool)
		require.JSONEq(t, `"nothing"`, string(st.Values[KeyFinderError]))
	})

	cases := map[string]struct {
		method, target string
		code           int
	}{
		"missing id":   {http.MethodGet, "/session", http.StatusBadRequest},
		"invalid id":   {http.MethodGet, "/session?id=../../etc", http.StatusBadRequest},
		"unknown id":   {http.MethodGet, "/session?id=" + uuid.NewString(), http.StatusNotFound},
		"wrong method": {http.MethodPost, "/session?id=" + id, http.StatusMethodNotAllowed},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h(rr, httptest.NewRequest(tc.method, tc.target, nil))
			require.Equal(t, tc.code, rr.Code)
		})
	}
}
