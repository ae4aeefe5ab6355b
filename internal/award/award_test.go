package award

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/platelog/internal/kv"
)

type fixedCounter struct{ n int64 }

func (c *fixedCounter) Value(context.Context) int64 { return c.n }

func testCatalog(thresholds ...int64) *Catalog {
	names := []string{"Bronze", "Silver", "Gold", "Platinum"}
	c := &Catalog{}
	for i, th := range thresholds {
		c.Definitions = append(c.Definitions, Definition{
			ID:        names[i],
			Criterion: CriterionRecordsCreated,
			Threshold: th,
		})
	}
	return c
}

func TestBundledCatalogLoads(t *testing.T) {
	c, err := LoadCatalog("")
	require.NoError(t, err)
	require.NotEmpty(t, c.Definitions)
	assert.Equal(t, int64(1), c.Definitions[0].Threshold)

	d, ok := c.Lookup("Ten Plates")
	assert.True(t, ok)
	assert.Equal(t, int64(10), d.Threshold)
}

func TestCatalogValidation(t *testing.T) {
	cases := map[string]string{
		"empty":      "awards: []\n",
		"duplicate":  "awards:\n  - {id: A, criterion: records_created, threshold: 1}\n  - {id: A, criterion: records_created, threshold: 2}\n",
		"descending": "awards:\n  - {id: A, criterion: records_created, threshold: 5}\n  - {id: B, criterion: records_created, threshold: 2}\n",
		"zero":       "awards:\n  - {id: A, criterion: records_created, threshold: 0}\n",
		"criterion":  "awards:\n  - {id: A, criterion: streak_days, threshold: 3}\n",
		"no id":      "awards:\n  - {criterion: records_created, threshold: 3}\n",
		"not yaml":   "awards: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestMustLoadCatalogPanicsOnBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "awards.yaml")
	require.NoError(t, os.WriteFile(path, []byte("awards: []\n"), 0o644))
	assert.Panics(t, func() { MustLoadCatalog(path) })
	assert.Panics(t, func() { MustLoadCatalog(filepath.Join(t.TempDir(), "missing.yaml")) })
	assert.NotPanics(t, func() { MustLoadCatalog("") })
}

func TestCheckReportsOneAwardPerCall(t *testing.T) {
	ctx := context.Background()
	counter := &fixedCounter{n: 10}
	e := NewEvaluator(testCatalog(10, 25, 50), counter, kv.NewMemory(), nil)

	d, ok := e.CheckForNewlyEarned(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(10), d.Threshold)

	_, ok = e.CheckForNewlyEarned(ctx)
	assert.False(t, ok, "no counter change, nothing new")
}

func TestCheckNeverRepeatsCongratulatedAward(t *testing.T) {
	ctx := context.Background()
	counter := &fixedCounter{n: 60}
	store := kv.NewMemory()
	e := NewEvaluator(testCatalog(10, 25, 50), counter, store, nil)

	var got []string
	for range 5 {
		if d, ok := e.CheckForNewlyEarned(ctx); ok {
			got = append(got, d.ID)
		}
	}
	assert.Equal(t, []string{"Bronze", "Silver", "Gold"}, got)

	shown, err := kv.GetList(ctx, store, CongratulatedKey)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Bronze", "Silver", "Gold"}, shown)
}

func TestCheckRespectsSetWrittenElsewhere(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	store.Inject(CongratulatedKey, `["Bronze"]`)
	e := NewEvaluator(testCatalog(10, 25), &fixedCounter{n: 30}, store, nil)

	d, ok := e.CheckForNewlyEarned(ctx)
	require.True(t, ok)
	assert.Equal(t, "Silver", d.ID)
}

func TestCheckFailsSoftOnCorruptSet(t *testing.T) {
	store := kv.NewMemory()
	store.Inject(CongratulatedKey, "not json")
	e := NewEvaluator(testCatalog(1), &fixedCounter{n: 5}, store, nil)

	_, ok := e.CheckForNewlyEarned(context.Background())
	assert.False(t, ok)
}

func TestProgress(t *testing.T) {
	ctx := context.Background()
	counter := &fixedCounter{n: 30}
	e := NewEvaluator(testCatalog(10, 25, 50), counter, kv.NewMemory(), nil)
	_, _ = e.CheckForNewlyEarned(ctx)

	p := e.Progress(ctx)
	require.Len(t, p, 3)
	assert.Equal(t, EarnedAcknowledged, p[0].State)
	assert.Equal(t, EarnedUnacknowledged, p[1].State)
	assert.Equal(t, Locked, p[2].State)
	assert.Equal(t, int64(20), p[2].Remaining)
	assert.Equal(t, "earned_unacknowledged", p[1].State.String())
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	e := NewEvaluator(testCatalog(1), &fixedCounter{n: 1}, kv.NewMemory(), nil)
	_, ok := e.CheckForNewlyEarned(ctx)
	require.True(t, ok)

	require.NoError(t, e.Reset(ctx))
	_, ok = e.CheckForNewlyEarned(ctx)
	assert.True(t, ok)
}
