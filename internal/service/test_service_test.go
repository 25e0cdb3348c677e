package service

import (
	"context"
	"errors"
	"quizcert/internal/model"
	"quizcert/internal/util"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTestGeneratesUniqueSlugs(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first, err := f.tests.CreateTest(ctx, "My Test", 70)
	require.NoError(t, err)
	second, err := f.tests.CreateTest(ctx, "My Test", 80)
	require.NoError(t, err)
	third, err := f.tests.CreateTest(ctx, "my   test!", 90)
	require.NoError(t, err)

	assert.Equal(t, "my-test", first.Slug)
	assert.Equal(t, "my-test-2", second.Slug)
	assert.Equal(t, "my-test-3", third.Slug)

	for _, want := range []*model.Test{first, second, third} {
		got, err := f.tests.LookupBySlug(ctx, want.Slug)
		require.NoError(t, err)
		assert.Equal(t, want.ID, got.ID)
	}
}

func TestCreateTestConcurrentSameTitle(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	slugs := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			test, err := f.tests.CreateTest(ctx, "Race", 50)
			errs[i] = err
			if err == nil {
				slugs[i] = test.Slug
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[slugs[i]], "duplicate slug %s", slugs[i])
		seen[slugs[i]] = true
	}
}

func TestCreateTestValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.tests.CreateTest(ctx, "   ", 50)
	assert.ErrorIs(t, err, util.ErrValidation)

	_, err = f.tests.CreateTest(ctx, "Quiz", 101)
	assert.ErrorIs(t, err, util.ErrValidation)

	_, err = f.tests.CreateTest(ctx, "Quiz", -1)
	assert.ErrorIs(t, err, util.ErrValidation)

	test, err := f.tests.CreateTest(ctx, "?!", 0)
	require.NoError(t, err)
	assert.Equal(t, "test", test.Slug)
}

func TestRenameTest(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	test, err := f.tests.CreateTest(ctx, "Safety Quiz", 70)
	require.NoError(t, err)
	_, err = f.tests.CreateTest(ctx, "Fire Drill", 70)
	require.NoError(t, err)

	t.Run("same title keeps slug", func(t *testing.T) {
		renamed, err := f.tests.RenameTest(ctx, test.ID, "Safety Quiz", 85)
		require.NoError(t, err)
		assert.Equal(t, "safety-quiz", renamed.Slug)
		assert.Equal(t, 85, renamed.PassScore)
	})

	t.Run("new title re-slugs with collision handling", func(t *testing.T) {
		renamed, err := f.tests.RenameTest(ctx, test.ID, "Fire Drill", 85)
		require.NoError(t, err)
		assert.Equal(t, "fire-drill-2", renamed.Slug)

		_, err = f.tests.LookupBySlug(ctx, "safety-quiz")
		assert.ErrorIs(t, err, util.ErrNotFound)
	})

	t.Run("missing test", func(t *testing.T) {
		_, err := f.tests.RenameTest(ctx, 9999, "Anything", 50)
		assert.ErrorIs(t, err, util.ErrNotFound)
	})
}

func TestDeleteTestCascades(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	test, err := f.tests.CreateTest(ctx, "Doomed", 50)
	require.NoError(t, err)
	q, err := f.questions.AddQuestion(ctx, test.ID, mcq("Q1", "A"))
	require.NoError(t, err)
	_, err = f.attempts.Submit(ctx, test, "Ann", map[uint]string{q.ID: "A"})
	require.NoError(t, err)

	require.NoError(t, f.tests.DeleteTest(ctx, test.ID))

	var questions, attempts int64
	f.db.Model(&model.Question{}).Where("test_id = ?", test.ID).Count(&questions)
	f.db.Model(&model.Attempt{}).Where("test_id = ?", test.ID).Count(&attempts)
	assert.Zero(t, questions)
	assert.Zero(t, attempts)

	err = f.tests.DeleteTest(ctx, test.ID)
	assert.True(t, errors.Is(err, util.ErrNotFound))
}

func TestResolveLegacy(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	test, err := f.tests.CreateTest(ctx, "Legacy Quiz", 50)
	require.NoError(t, err)

	got, redirect, err := f.tests.ResolveLegacy(ctx, "legacy-quiz")
	require.NoError(t, err)
	assert.False(t, redirect)
	assert.Equal(t, test.ID, got.ID)

	got, redirect, err = f.tests.ResolveLegacy(ctx, strconv.FormatUint(uint64(test.ID), 10))
	require.NoError(t, err)
	assert.True(t, redirect)
	assert.Equal(t, "legacy-quiz", got.Slug)

	_, _, err = f.tests.ResolveLegacy(ctx, "nope")
	assert.ErrorIs(t, err, util.ErrNotFound)

	_, _, err = f.tests.ResolveLegacy(ctx, "404")
	assert.ErrorIs(t, err, util.ErrNotFound)
}
