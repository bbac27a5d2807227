package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profile struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

type user struct {
	ID      string   `json:"id"`
	Profile profile  `json:"profile"`
	Tags    []string `json:"tags,omitempty"`
}

func TestDefaultComparator(t *testing.T) {
	base := user{ID: "1", Profile: profile{Name: "Ada", Age: 36}}

	tests := []struct {
		name    string
		head    any
		current any
		dirty   bool
	}{
		{"identical structs", base, base, false},
		{"changed nested field", base, user{ID: "1", Profile: profile{Name: "Grace", Age: 36}}, true},
		{"pointer and value encode the same", &base, base, false},
		{"both nil", nil, nil, false},
		{"nil against value", nil, "x", true},
		{"numbers", 1, 2, true},
		{"maps with same content", map[string]int{"a": 1, "b": 2}, map[string]int{"b": 2, "a": 1}, false},
		{"unencodable values fall back to DeepEqual", make(chan int), make(chan int), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.dirty, DefaultComparator(tt.head, tt.current))
		})
	}
}

func TestDeepEqualComparator(t *testing.T) {
	assert.False(t, DeepEqualComparator([]int{1, 2}, []int{1, 2}))
	assert.True(t, DeepEqualComparator([]int{1, 2}, []int{2, 1}))
}

type counter struct {
	hits int
}

func TestComparators_UnexportedFields(t *testing.T) {
	head, current := counter{hits: 1}, counter{hits: 2}

	assert.False(t, DefaultComparator(head, current), "json encoding ignores unexported fields")
	assert.True(t, DeepEqualComparator(head, current))
}

func TestGetNestedPath(t *testing.T) {
	u := user{ID: "1", Profile: profile{Name: "Ada", Age: 36}, Tags: []string{"math", "engines"}}

	assert.Equal(t, "Ada", GetNestedPath(u, "profile.name"))
	assert.Equal(t, float64(36), GetNestedPath(u, "profile.age"))
	assert.Equal(t, "engines", GetNestedPath(u, "tags.1"))
	assert.Nil(t, GetNestedPath(u, "profile.missing"))
	assert.Nil(t, GetNestedPath(nil, "profile.name"))
	assert.Nil(t, GetNestedPath(make(chan int), "x"))
}

func TestResetParams_Resolve(t *testing.T) {
	head := user{ID: "1", Profile: profile{Name: "Ada", Age: 36}, Tags: []string{"math"}}
	current := user{ID: "1", Profile: profile{Name: "Grace", Age: 40}, Tags: []string{"navy"}}

	t.Run("default restores the whole baseline", func(t *testing.T) {
		got, err := ResetParams[user]{}.Resolve(head, current)
		require.NoError(t, err)
		assert.Equal(t, head, got)
	})

	t.Run("update function wins", func(t *testing.T) {
		params := ResetParams[user]{
			UpdateFn: func(h, c user) user {
				c.Profile.Name = h.Profile.Name
				return c
			},
			Paths: []string{"tags"},
		}
		got, err := params.Resolve(head, current)
		require.NoError(t, err)
		assert.Equal(t, "Ada", got.Profile.Name)
		assert.Equal(t, 40, got.Profile.Age)
		assert.Equal(t, []string{"navy"}, got.Tags)
	})

	t.Run("paths restore selected fields only", func(t *testing.T) {
		got, err := ResetParams[user]{Paths: []string{"profile.name"}}.Resolve(head, current)
		require.NoError(t, err)
		assert.Equal(t, "Ada", got.Profile.Name)
		assert.Equal(t, 40, got.Profile.Age)
		assert.Equal(t, []string{"navy"}, got.Tags)
	})

	t.Run("path missing from baseline is removed", func(t *testing.T) {
		noTags := user{ID: "1", Profile: head.Profile}
		got, err := ResetParams[user]{Paths: []string{"tags"}}.Resolve(noTags, current)
		require.NoError(t, err)
		assert.Nil(t, got.Tags)
		assert.Equal(t, "Grace", got.Profile.Name)
	})

	t.Run("pointer entities", func(t *testing.T) {
		got, err := RestorePaths(&head, &current, []string{"profile.age"})
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 36, got.Profile.Age)
		assert.Equal(t, "Grace", got.Profile.Name)
	})

	t.Run("unencodable entity", func(t *testing.T) {
		_, err := RestorePaths[any](make(chan int), 1, []string{"x"})
		assert.ErrorIs(t, err, ErrEncodeEntity)
	})
}

func TestDiffFields(t *testing.T) {
	head := user{ID: "1", Profile: profile{Name: "Ada", Age: 36}}

	t.Run("no changes", func(t *testing.T) {
		ct, err := DiffFields(head, head)
		require.NoError(t, err)
		assert.False(t, ct.HasChanges())
		assert.Empty(t, ct.DirtyFields())
	})

	t.Run("changed and added fields", func(t *testing.T) {
		current := head
		current.Profile.Name = "Grace"
		current.Tags = []string{"navy"}

		ct, err := DiffFields(head, current)
		require.NoError(t, err)
		assert.Equal(t, []string{"profile", "tags"}, ct.DirtyFields())
		assert.True(t, ct.Dirty("profile"))
		assert.False(t, ct.Dirty("id"))
	})

	t.Run("removed field", func(t *testing.T) {
		ct, err := DiffFields(map[string]any{"a": 1, "b": 2}, map[string]any{"a": 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, ct.DirtyFields())
	})

	t.Run("scalars compare as root", func(t *testing.T) {
		ct, err := DiffFields(1, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{RootField}, ct.DirtyFields())
	})

	t.Run("clear", func(t *testing.T) {
		ct := NewChangeTracker()
		ct.MarkDirty("x")
		ct.Clear()
		assert.False(t, ct.HasChanges())
	})
}

func TestDocument(t *testing.T) {
	t.Run("parse compacts and validates", func(t *testing.T) {
		doc, err := ParseDocument([]byte(`{ "name" : "Ada",  "age": 36 }`))
		require.NoError(t, err)
		assert.Equal(t, `{"name":"Ada","age":36}`, doc.String())

		_, err = ParseDocument([]byte(`{"name":`))
		assert.ErrorIs(t, err, ErrDecodeEntity)
	})

	t.Run("clone shares no memory", func(t *testing.T) {
		doc := Document(`{"a":1}`)
		c := doc.Clone()
		c[5] = '2'
		assert.Equal(t, `{"a":1}`, doc.String())
	})

	t.Run("works with path helpers", func(t *testing.T) {
		head := Document(`{"profile":{"name":"Ada"},"age":36}`)
		current := Document(`{"profile":{"name":"Grace"},"age":36}`)

		assert.Equal(t, "Ada", GetNestedPath(head, "profile.name"))
		assert.True(t, DefaultComparator(head, current))

		restored, err := RestorePaths(head, current, []string{"profile.name"})
		require.NoError(t, err)
		assert.JSONEq(t, string(head), restored.String())

		ct, err := DiffFields(head, current)
		require.NoError(t, err)
		assert.Equal(t, []string{"profile"}, ct.DirtyFields())
	})

	t.Run("empty document encodes as null", func(t *testing.T) {
		data, err := ToJSON(Document(nil))
		require.NoError(t, err)
		assert.Equal(t, "null", string(data))
	})
}

func TestVersionBook(t *testing.T) {
	b := NewVersionBook()
	assert.Zero(t, b.Get("1"))

	b.Set("1", 3)
	b.Set("0", 1)
	assert.Equal(t, int64(3), b.Get("1"))
	assert.Equal(t, []string{"0", "1"}, b.IDs())

	b.Forget("1")
	assert.Zero(t, b.Get("1"))
	assert.Equal(t, []string{"0"}, b.IDs())
}
