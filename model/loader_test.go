package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cookieranger/transis/mapper"
)

func TestLoad(t *testing.T) {
	t.Run("load requires an id", func(t *testing.T) {
		space := NewSpace()
		basic := space.MustRegister("BasicModel")
		require.NoError(t, basic.Attr("str", "string"))

		_, err := basic.Load(mapper.Payload{"str": "s"})
		require.Error(t, err)
		assert.True(t, IsMissingID(err))

		_, err = basic.Load(mapper.Payload{"id": nil, "str": "s"})
		require.Error(t, err)
		assert.True(t, IsMissingID(err))
	})

	t.Run("load sets attributes and state", func(t *testing.T) {
		_, _, post, _ := setupBlogSpace(t)

		rec, err := post.Load(mapper.Payload{"id": 1, "title": "t", "body": "b"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), rec.ID())
		assert.Equal(t, "t", rec.Get("title"))
		assert.Equal(t, "b", rec.Get("body"))
		assert.Equal(t, StateLoaded, rec.State())
		assert.False(t, rec.IsBusy())
	})

	t.Run("loading twice returns the same instance", func(t *testing.T) {
		_, _, post, _ := setupBlogSpace(t)

		first, err := post.Load(mapper.Payload{"id": 2, "title": "one"})
		require.NoError(t, err)
		second, err := post.Load(mapper.Payload{"id": 2, "title": "two"})
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.Equal(t, "two", first.Get("title"))
		assert.Equal(t, StateLoaded, first.State())
	})

	t.Run("unknown keys are ignored", func(t *testing.T) {
		_, _, post, _ := setupBlogSpace(t)

		rec, err := post.Load(mapper.Payload{"id": 3, "title": "t", "mystery": 42})
		require.NoError(t, err)
		assert.Nil(t, rec.Get("mystery"))
	})

	t.Run("loading into an empty placeholder fills it in place", func(t *testing.T) {
		_, _, post, _ := setupBlogSpace(t)

		placeholder, err := post.Local(4)
		require.NoError(t, err)
		assert.Equal(t, StateEmpty, placeholder.State())

		loaded, err := post.Load(mapper.Payload{"id": 4, "title": "t"})
		require.NoError(t, err)
		assert.Same(t, placeholder, loaded)
		assert.Equal(t, StateLoaded, placeholder.State())
	})
}

func TestLoadAssociations(t *testing.T) {
	t.Run("nested payloads load recursively with inverses", func(t *testing.T) {
		_, _, post, tagClass := setupBlogSpace(t)

		rec, err := post.Load(mapper.Payload{
			"id": 200, "title": "t", "body": "b",
			"tags": []interface{}{
				mapper.Payload{"id": 10, "name": "tag a"},
				mapper.Payload{"id": 11, "name": "tag b"},
			},
		})
		require.NoError(t, err)

		tags := rec.Many("tags")
		require.Len(t, tags, 2)
		assert.Equal(t, "tag a", tags[0].Get("name"))
		assert.Equal(t, StateLoaded, tags[0].State())

		for _, tag := range tags {
			posts := tag.Many("posts")
			require.Len(t, posts, 1)
			assert.Same(t, rec, posts[0])
		}

		canonical, err := tagClass.Local(10)
		require.NoError(t, err)
		assert.Same(t, tags[0], canonical)
	})

	t.Run("bare ids resolve to empty placeholders", func(t *testing.T) {
		_, _, post, _ := setupBlogSpace(t)

		rec, err := post.Load(mapper.Payload{"id": 100, "tags": []interface{}{12, 13}})
		require.NoError(t, err)

		tags := rec.Many("tags")
		require.Len(t, tags, 2)
		assert.Equal(t, StateEmpty, tags[0].State())
		assert.Equal(t, int64(12), tags[0].ID())
	})

	t.Run("reload replaces hasMany membership wholesale", func(t *testing.T) {
		_, _, post, tagClass := setupBlogSpace(t)

		rec, err := post.Load(mapper.Payload{"id": 150, "tags": []interface{}{12, 13}})
		require.NoError(t, err)
		require.Len(t, rec.Many("tags"), 2)

		_, err = post.Load(mapper.Payload{"id": 150, "tags": []interface{}{13}})
		require.NoError(t, err)

		tags := rec.Many("tags")
		require.Len(t, tags, 1)
		assert.Equal(t, int64(13), tags[0].ID())

		dropped, err := tagClass.Local(12)
		require.NoError(t, err)
		assert.Empty(t, dropped.Many("posts"))
	})

	t.Run("nested hasOne payload", func(t *testing.T) {
		_, _, post, _ := setupBlogSpace(t)

		rec, err := post.Load(mapper.Payload{
			"id":     300,
			"author": mapper.Payload{"id": 5, "first": "Ada"},
		})
		require.NoError(t, err)

		author := rec.One("author")
		require.NotNil(t, author)
		assert.Equal(t, "Ada", author.Get("first"))
		require.Len(t, author.Many("posts"), 1)
		assert.Same(t, rec, author.Many("posts")[0])
	})

	t.Run("foreign key fields are guessed when the key is absent", func(t *testing.T) {
		_, authorClass, post, tagClass := setupBlogSpace(t)

		rec, err := post.Load(mapper.Payload{"id": 400, "authorId": 7, "tagIds": []interface{}{20, 21}})
		require.NoError(t, err)

		author := rec.One("author")
		require.NotNil(t, author)
		assert.Equal(t, int64(7), author.ID())
		require.Len(t, rec.Many("tags"), 2)

		canonicalAuthor, err := authorClass.Local(7)
		require.NoError(t, err)
		assert.Same(t, author, canonicalAuthor)

		canonicalTag, err := tagClass.Local(20)
		require.NoError(t, err)
		require.Len(t, canonicalTag.Many("posts"), 1)
	})

	t.Run("snake_case foreign keys work too", func(t *testing.T) {
		_, _, post, _ := setupBlogSpace(t)

		rec, err := post.Load(mapper.Payload{"id": 401, "author_id": 8, "tag_ids": []interface{}{22}})
		require.NoError(t, err)
		require.NotNil(t, rec.One("author"))
		require.Len(t, rec.Many("tags"), 1)
	})

	t.Run("the association's own key wins over foreign keys", func(t *testing.T) {
		_, _, post, _ := setupBlogSpace(t)

		rec, err := post.Load(mapper.Payload{
			"id":     402,
			"author": mapper.Payload{"id": 30, "first": "Grace"},
			// stale fk field left in the payload
			"authorId": 31,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(30), rec.One("author").ID())
	})

	t.Run("null hasOne foreign key clears the reference", func(t *testing.T) {
		_, authorClass, post, _ := setupBlogSpace(t)

		rec, err := post.Load(mapper.Payload{"id": 403, "authorId": 9})
		require.NoError(t, err)
		require.NotNil(t, rec.One("author"))

		_, err = post.Load(mapper.Payload{"id": 403, "authorId": nil})
		require.NoError(t, err)
		assert.Nil(t, rec.One("author"))

		prev, err := authorClass.Local(9)
		require.NoError(t, err)
		assert.Empty(t, prev.Many("posts"))
	})
}

func TestLoadAll(t *testing.T) {
	_, _, post, _ := setupBlogSpace(t)

	recs, err := post.LoadAll([]mapper.Payload{
		{"id": 1, "title": "a"},
		{"id": 2, "title": "b"},
		{"id": 3, "title": "c"},
	})
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, int64(1), recs[0].ID())
	assert.Equal(t, "c", recs[2].Get("title"))
}

func TestEmptyAndLocal(t *testing.T) {
	t.Run("empty carries only its id", func(t *testing.T) {
		_, _, post, _ := setupBlogSpace(t)

		rec, err := post.Empty(77)
		require.NoError(t, err)
		assert.Equal(t, int64(77), rec.ID())
		assert.Equal(t, StateEmpty, rec.State())
		assert.Nil(t, rec.Get("title"))
	})

	t.Run("local returns the canonical instance when present", func(t *testing.T) {
		_, _, post, _ := setupBlogSpace(t)

		loaded, err := post.Load(mapper.Payload{"id": 88, "title": "t"})
		require.NoError(t, err)

		got, err := post.Local(88)
		require.NoError(t, err)
		assert.Same(t, loaded, got)
		assert.Equal(t, StateLoaded, got.State())
	})

	t.Run("local produces a placeholder for unseen ids", func(t *testing.T) {
		_, _, post, _ := setupBlogSpace(t)

		rec, err := post.Local(99)
		require.NoError(t, err)
		assert.Equal(t, StateEmpty, rec.State())

		// and the placeholder is canonical from then on
		again, err := post.Local(99)
		require.NoError(t, err)
		assert.Same(t, rec, again)
	})

	t.Run("get is cache-or-placeholder and never calls the mapper", func(t *testing.T) {
		_, _, post, _ := setupBlogSpace(t)
		// no mapper is bound at all, so any mapper call would fail loudly

		rec, err := post.Get(55)
		require.NoError(t, err)
		assert.Equal(t, StateEmpty, rec.State())
	})
}

func TestIdentityIsolationBetweenSpaces(t *testing.T) {
	_, _, postA, _ := setupBlogSpace(t)
	_, _, postB, _ := setupBlogSpace(t)

	recA, err := postA.Load(mapper.Payload{"id": 1, "title": "a"})
	require.NoError(t, err)
	recB, err := postB.Load(mapper.Payload{"id": 1, "title": "b"})
	require.NoError(t, err)

	assert.NotSame(t, recA, recB)
	assert.Equal(t, "a", recA.Get("title"))
	assert.Equal(t, "b", recB.Get("title"))
}

func TestLoadForwardReference(t *testing.T) {
	space := NewSpace()
	chicken := space.MustRegister("Chicken")
	require.NoError(t, chicken.Attr("name", "string"))
	require.NoError(t, chicken.HasMany("eggs", "Egg", AssocOpts{Inverse: "chicken"}))

	// Egg is still unregistered: payloads that never mention the
	// association must load anyway, since targets resolve lazily
	rec, err := chicken.Load(mapper.Payload{"id": 1, "name": "Henrietta"})
	require.NoError(t, err)
	assert.Equal(t, "Henrietta", rec.Get("name"))
	assert.Equal(t, StateLoaded, rec.State())

	// A payload that names the association does need the target class
	_, err = chicken.Load(mapper.Payload{"id": 1, "eggIds": []interface{}{5}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownClass)

	egg := space.MustRegister("Egg")
	require.NoError(t, egg.HasOne("chicken", "Chicken", AssocOpts{Inverse: "eggs"}))

	rec2, err := chicken.Load(mapper.Payload{"id": 1, "eggIds": []interface{}{5}})
	require.NoError(t, err)
	assert.Same(t, rec, rec2)
	require.Len(t, rec.Many("eggs"), 1)
	assert.Same(t, rec, rec.Many("eggs")[0].One("chicken"))
}
