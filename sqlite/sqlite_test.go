package sqlite_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fwojciec/fridge"
	"github.com/fwojciec/fridge/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// tick returns a clock that advances one second per call.
func tick() func() time.Time {
	var mu sync.Mutex
	n := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		n++
		return epoch.Add(time.Duration(n) * time.Second)
	}
}

func openStore(t *testing.T, opts ...sqlite.Option) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(context.Background(), ":memory:", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecipe(name string) fridge.Recipe {
	return fridge.Recipe{
		ID:          fridge.TempIDPrefix + "x",
		Name:        name,
		Description: "家常菜",
		Category:    "中式",
		Difficulty:  "簡單",
		Servings:    2,
		CookTime:    15,
		Ingredients: []fridge.Ingredient{
			{Name: "番茄", Quantity: "2", Unit: "顆", Kind: fridge.IngredientKindMain},
			{Name: "鹽", Quantity: "少許", Kind: fridge.IngredientKindSeasoning},
		},
		Steps: []string{"切", "炒"},
	}
}

func TestStore_SaveAndListRecipes(t *testing.T) {
	t.Parallel()
	s := openStore(t, sqlite.WithClock(tick()))
	ctx := context.Background()

	id, err := s.SaveRecipe(ctx, sampleRecipe("番茄炒蛋"), fridge.SaveContext{Prompt: "晚餐", GroupID: "g1", UserID: "u1"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NotContains(t, id, fridge.TempIDPrefix)

	got, err := s.ListRecipes(ctx, sqlite.RecipeFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)

	want := sampleRecipe("番茄炒蛋")
	want.ID = id
	want.Persisted = true
	assert.Equal(t, want, got[0].Recipe)
	assert.Equal(t, "g1", got[0].GroupID)
	assert.Equal(t, "u1", got[0].UserID)
	assert.Equal(t, "晚餐", got[0].Prompt)
	assert.True(t, epoch.Add(time.Second).Equal(got[0].CreatedAt))
}

func TestStore_ListRecipes_FilterAndOrder(t *testing.T) {
	t.Parallel()
	s := openStore(t, sqlite.WithClock(tick()))
	ctx := context.Background()

	for i, group := range []string{"g1", "g2", "g1", ""} {
		_, err := s.SaveRecipe(ctx, sampleRecipe(fmt.Sprintf("r%d", i)), fridge.SaveContext{GroupID: group})
		require.NoError(t, err)
	}

	all, err := s.ListRecipes(ctx, sqlite.RecipeFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "r3", all[0].Name)

	g1, err := s.ListRecipes(ctx, sqlite.RecipeFilter{GroupID: "g1"})
	require.NoError(t, err)
	require.Len(t, g1, 2)
	assert.Equal(t, "r2", g1[0].Name)
	assert.Equal(t, "r0", g1[1].Name)

	limited, err := s.ListRecipes(ctx, sqlite.RecipeFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStore_ConcurrentSaves(t *testing.T) {
	t.Parallel()
	s := openStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]string, 8)
	errs := make([]error, 8)
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids[i], errs[i] = s.SaveRecipe(ctx, sampleRecipe(fmt.Sprintf("r%d", i)), fridge.SaveContext{})
		}()
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	got, err := s.ListRecipes(ctx, sqlite.RecipeFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 8)
}

func TestStore_Notifications(t *testing.T) {
	t.Parallel()
	s := openStore(t, sqlite.WithClock(tick()))
	ctx := context.Background()

	require.NoError(t, s.Notify(ctx, fridge.Notification{
		GroupID:   "g1",
		UserID:    "u1",
		Title:     "AI 食譜",
		Body:      "新增了 AI 食譜「湯」",
		RecipeIDs: []string{"a"},
		CreatedAt: epoch,
	}))
	require.NoError(t, s.Notify(ctx, fridge.Notification{
		GroupID:   "g1",
		Title:     "AI 食譜",
		Body:      "新增了 2 道 AI 食譜",
		RecipeIDs: []string{"b", "c"},
	}))
	require.NoError(t, s.Notify(ctx, fridge.Notification{GroupID: "g2", Title: "x", Body: "y"}))

	got, err := s.ListNotifications(ctx, "g1", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "新增了 2 道 AI 食譜", got[0].Body)
	assert.Equal(t, []string{"b", "c"}, got[0].RecipeIDs)
	assert.Equal(t, "新增了 AI 食譜「湯」", got[1].Body)
	assert.Equal(t, "u1", got[1].UserID)
	assert.True(t, epoch.Equal(got[1].CreatedAt))

	other, err := s.ListNotifications(ctx, "g2", 10)
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, []string{}, other[0].RecipeIDs)
}

func TestStore_NotifyRequiresGroup(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	err = sqlite.New(db).Notify(context.Background(), fridge.Notification{Title: "x"})
	assert.ErrorContains(t, err, "sqlite: notify")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SaveRecipe_Args(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO recipes").
		WithArgs(
			"r-1", "g1", "u1", "晚餐",
			"蛋", "", "其他", "中等", int64(2), int64(30),
			`[{"name":"蛋","kind":"ingredient"}]`, `["煎"]`,
			epoch.UnixMilli(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	s := sqlite.New(db,
		sqlite.WithClock(func() time.Time { return epoch }),
		sqlite.WithIDGenerator(func() string { return "r-1" }),
	)
	id, err := s.SaveRecipe(context.Background(), fridge.Recipe{
		Name:        "蛋",
		Category:    "其他",
		Difficulty:  "中等",
		Servings:    2,
		CookTime:    30,
		Ingredients: []fridge.Ingredient{{Name: "蛋", Kind: fridge.IngredientKindMain}},
		Steps:       []string{"煎"},
	}, fridge.SaveContext{Prompt: "晚餐", GroupID: "g1", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "r-1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Failures(t *testing.T) {
	t.Parallel()
	dbErr := errors.New("disk I/O error")
	cols := []string{"id", "group_id", "user_id", "prompt", "name", "description", "category", "difficulty", "servings", "cook_time", "ingredients", "steps", "created_at"}

	tests := []struct {
		name        string
		setupMock   func(sqlmock.Sqlmock)
		call        func(*sqlite.Store) error
		errContains string
	}{
		{
			name: "save recipe",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO recipes").WillReturnError(dbErr)
			},
			call: func(s *sqlite.Store) error {
				_, err := s.SaveRecipe(context.Background(), sampleRecipe("x"), fridge.SaveContext{})
				return err
			},
			errContains: "sqlite: save recipe",
		},
		{
			name: "list recipes query",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("FROM recipes").WillReturnError(dbErr)
			},
			call: func(s *sqlite.Store) error {
				_, err := s.ListRecipes(context.Background(), sqlite.RecipeFilter{})
				return err
			},
			errContains: "sqlite: list recipes",
		},
		{
			name: "list recipes corrupt row",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("FROM recipes").
					WillReturnRows(sqlmock.NewRows(cols).
						AddRow("r1", "", "", "", "x", "", "", "", 2, 30, "not json", "[]", epoch.UnixMilli()))
			},
			call: func(s *sqlite.Store) error {
				_, err := s.ListRecipes(context.Background(), sqlite.RecipeFilter{})
				return err
			},
			errContains: "decode ingredients of r1",
		},
		{
			name: "notify",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO notifications").WillReturnError(dbErr)
			},
			call: func(s *sqlite.Store) error {
				return s.Notify(context.Background(), fridge.Notification{GroupID: "g1"})
			},
			errContains: "sqlite: notify",
		},
		{
			name: "list notifications",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("FROM notifications").WillReturnError(dbErr)
			},
			call: func(s *sqlite.Store) error {
				_, err := s.ListNotifications(context.Background(), "g1", 0)
				return err
			},
			errContains: "sqlite: list notifications",
		},
		{
			name: "migrate",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("CREATE TABLE IF NOT EXISTS recipes").WillReturnError(dbErr)
			},
			call: func(s *sqlite.Store) error {
				return s.Migrate(context.Background())
			},
			errContains: "sqlite: migrate",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			tt.setupMock(mock)

			err = tt.call(sqlite.New(db))
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.errContains)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
