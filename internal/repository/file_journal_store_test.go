package repository

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tradeledger/configs"
	"tradeledger/internal/domain"
	"tradeledger/internal/service"
)

func newTestStore(t *testing.T) (*FileJournalStore, string) {
	t.Helper()
	dir := t.TempDir()
	registry := service.NewAccountRegistry(configs.DefaultAccounts())
	store, err := NewFileJournalStore(dir, registry, zap.NewNop())
	require.NoError(t, err)
	return store, dir
}

func TestReadCreatesDefaultDocument(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	doc, err := store.Read(ctx, "eci_longA")
	require.NoError(t, err)

	assert.Empty(t, doc.TradeHistory)
	require.NotNil(t, doc.Settings)
	assert.Equal(t, 100.0, doc.Settings.CurrentBalance)
	assert.FileExists(t, filepath.Join(dir, "eci_longA.json"))
}

func TestWriteThenRead(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	doc, err := store.Read(ctx, "easy")
	require.NoError(t, err)

	sl := 95.0
	doc.Append(&domain.Trade{
		ID:        "t1",
		Indicator: "easy_entry",
		Type:      domain.SideBuy,
		Symbol:    "BTCUSDT",
		Price:     100,
		Quantity:  0.01,
		Leverage:  125,
		StopLoss:  &sl,
		StartTime: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, store.Write(ctx, "easy", doc))

	again, err := store.Read(ctx, "easy")
	require.NoError(t, err)
	require.Len(t, again.TradeHistory, 1)
	assert.Equal(t, "t1", again.TradeHistory[0].ID)
	assert.True(t, again.TradeHistory[0].IsOpen())
	assert.Equal(t, 95.0, *again.TradeHistory[0].StopLoss)
}

func TestReadBackfillsMissingFields(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	raw := `{"tradeHistory":[{"id":"old","indicator":"eci_longB","type":"buy","price":10,"quantity":1,"leverage":5,"duration":"n/a","endTime":null}],
	"settings":{"currentBalance":80}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "eci_longB.json"), []byte(raw), 0o644))

	doc, err := store.Read(ctx, "eci_longB")
	require.NoError(t, err)

	require.Len(t, doc.TradeHistory, 1)
	assert.False(t, doc.TradeHistory[0].Duration.Valid)
	assert.NotNil(t, doc.Statistics)
	assert.Equal(t, 80.0, doc.Settings.CurrentBalance)
	assert.Equal(t, 100.0, doc.Settings.MaxBalance)
	assert.Equal(t, 125.0, doc.Settings.Leverage)
	assert.Equal(t, 10.0, doc.Settings.TradePercent)
}

func TestReadRepairsCorruptFile(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	p := filepath.Join(dir, "db.json")
	require.NoError(t, os.WriteFile(p, []byte("{not json"), 0o644))

	doc, err := store.Read(ctx, "db")
	require.NoError(t, err)
	assert.Empty(t, doc.TradeHistory)
	require.NotNil(t, doc.BotSettings)
	assert.True(t, doc.BotSettings.AutoTrade)

	// the corrective write replaced the file and the broken one was kept aside
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tradeHistory")
	matches, _ := filepath.Glob(p + ".corrupt-*")
	assert.Len(t, matches, 1)
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc, err := store.Read(ctx, "utbot")
			if err != nil {
				return
			}
			_ = store.Write(ctx, "utbot", doc)
		}()
	}
	wg.Wait()

	tmps, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	assert.Empty(t, tmps)

	doc, err := store.Read(ctx, "utbot")
	require.NoError(t, err)
	assert.NotNil(t, doc.Statistics)
}

func TestRejectsPathLikeKeys(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Read(context.Background(), "../escape")
	assert.Error(t, err)
	assert.Error(t, store.Write(context.Background(), "a/b", &domain.Document{}))
}
