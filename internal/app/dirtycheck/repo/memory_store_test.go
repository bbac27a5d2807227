package repo

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/dirtycheck-service/internal/pkg/stream"
)

type item struct {
	Name  string `json:"name"`
	Price int    `json:"price"`
}

// emission records the order in which both streams fired.
type emission struct {
	kind string
	ids  []string
	snap map[string]item
}

func watch(t *testing.T, s *MemoryStore[string, item]) *[]emission {
	t.Helper()
	var log []emission
	stream.Listen(s.SelectIDs(), func(ids []string) {
		log = append(log, emission{kind: "ids", ids: ids})
	})
	stream.Listen(s.SelectEntities(), func(m map[string]item) {
		log = append(log, emission{kind: "entities", snap: m})
	})
	return &log
}

func newStore() *MemoryStore[string, item] {
	return NewMemoryStore(
		Entry[string, item]{ID: "a", Entity: item{Name: "apple", Price: 1}},
		Entry[string, item]{ID: "b", Entity: item{Name: "banana", Price: 2}},
	)
}

func TestMemoryStore_Reads(t *testing.T) {
	s := newStore()

	assert.Equal(t, []string{"a", "b"}, s.IDs())
	assert.Equal(t, 2, s.Count())
	assert.True(t, s.HasEntity("a"))
	assert.False(t, s.HasEntity("z"))

	e, ok := s.GetEntity("b")
	require.True(t, ok)
	assert.Equal(t, "banana", e.Name)

	_, ok = s.GetEntity("z")
	assert.False(t, ok)
}

func TestMemoryStore_ReplaysOnSubscribe(t *testing.T) {
	s := newStore()
	log := watch(t, s)

	require.Len(t, *log, 2)
	assert.Equal(t, []string{"a", "b"}, (*log)[0].ids)
	assert.Len(t, (*log)[1].snap, 2)
}

func TestMemoryStore_Add(t *testing.T) {
	s := newStore()
	log := watch(t, s)
	*log = nil

	added := s.Add(
		Entry[string, item]{ID: "a", Entity: item{Name: "ignored"}},
		Entry[string, item]{ID: "c", Entity: item{Name: "cherry", Price: 3}},
	)

	assert.Equal(t, 1, added)
	require.Len(t, *log, 2)
	assert.Equal(t, "ids", (*log)[0].kind, "membership publishes before content")
	assert.Equal(t, []string{"a", "b", "c"}, (*log)[0].ids)
	assert.Equal(t, "entities", (*log)[1].kind)
	assert.Equal(t, "apple", (*log)[1].snap["a"].Name)

	*log = nil
	assert.Zero(t, s.Add(Entry[string, item]{ID: "a"}))
	assert.Empty(t, *log, "no-op add publishes nothing")
}

func TestMemoryStore_Upsert(t *testing.T) {
	s := newStore()
	log := watch(t, s)

	t.Run("overwrite only publishes content", func(t *testing.T) {
		*log = nil
		s.Upsert(Entry[string, item]{ID: "a", Entity: item{Name: "apricot"}})

		require.Len(t, *log, 1)
		assert.Equal(t, "entities", (*log)[0].kind)
		assert.Equal(t, "apricot", (*log)[0].snap["a"].Name)
	})

	t.Run("insert publishes membership too", func(t *testing.T) {
		*log = nil
		s.Upsert(Entry[string, item]{ID: "d", Entity: item{Name: "date"}})

		require.Len(t, *log, 2)
		assert.Equal(t, []string{"a", "b", "d"}, (*log)[0].ids)
	})
}

func TestMemoryStore_UpdateAndReplace(t *testing.T) {
	s := newStore()
	log := watch(t, s)
	*log = nil

	ok := s.Update("a", func(i item) item {
		i.Price = 10
		return i
	})
	require.True(t, ok)
	require.Len(t, *log, 1)
	assert.Equal(t, 10, (*log)[0].snap["a"].Price)

	assert.True(t, s.Replace("b", item{Name: "blueberry"}))
	e, _ := s.GetEntity("b")
	assert.Equal(t, "blueberry", e.Name)

	*log = nil
	assert.False(t, s.Replace("z", item{}))
	assert.False(t, s.HasEntity("z"))
	assert.Empty(t, *log)
}

func TestMemoryStore_Remove(t *testing.T) {
	s := newStore()
	log := watch(t, s)
	*log = nil

	assert.Equal(t, 1, s.Remove("a", "z"))
	require.Len(t, *log, 2)
	assert.Equal(t, []string{"b"}, (*log)[0].ids)
	assert.NotContains(t, (*log)[1].snap, "a")

	*log = nil
	assert.Zero(t, s.Remove("z"))
	assert.Empty(t, *log)
}

func TestMemoryStore_Set(t *testing.T) {
	s := newStore()
	s.Set(
		Entry[string, item]{ID: "x", Entity: item{Name: "xigua"}},
		Entry[string, item]{ID: "x", Entity: item{Name: "xigua 2"}},
	)

	assert.Equal(t, []string{"x"}, s.IDs())
	e, _ := s.GetEntity("x")
	assert.Equal(t, "xigua 2", e.Name)
}

func TestMemoryStore_SnapshotsAreCopies(t *testing.T) {
	s := newStore()
	snap := s.Entities()
	snap["a"] = item{Name: "mutated"}

	e, _ := s.GetEntity("a")
	assert.Equal(t, "apple", e.Name)
}

func TestMemoryStore_NestedMutationKeepsOrder(t *testing.T) {
	s := newStore()
	var seen [][]string
	stream.Listen(s.SelectIDs(), func(ids []string) {
		seen = append(seen, ids)
		if len(ids) == 3 {
			s.Add(Entry[string, item]{ID: "d"})
		}
	})

	s.Add(Entry[string, item]{ID: "c"})

	assert.Equal(t, [][]string{{"a", "b"}, {"a", "b", "c"}, {"a", "b", "c", "d"}}, seen)
	assert.Equal(t, []string{"a", "b", "c", "d"}, s.IDs())
}

func TestMemoryStore_ConcurrentMutationsPublishInOrder(t *testing.T) {
	s := NewMemoryStore[string, item]()

	var mu sync.Mutex
	var sizes []int
	stream.Listen(s.SelectIDs(), func(ids []string) {
		mu.Lock()
		sizes = append(sizes, len(ids))
		mu.Unlock()
	})

	const writers, perWriter = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				s.Add(Entry[string, item]{ID: strconv.Itoa(w) + "-" + strconv.Itoa(i)})
			}
		}(w)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, sizes, writers*perWriter+1)
	for i, n := range sizes {
		assert.Equal(t, i, n, "membership snapshots arrive in mutation order")
	}

	var latest []string
	stream.Listen(s.SelectIDs(), func(ids []string) { latest = ids })
	assert.Len(t, latest, writers*perWriter, "replayed value is the newest snapshot")
}
