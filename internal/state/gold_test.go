package state

import (
	"context"
	"math/rand"
	"testing"

	"github.com/VULUxOMID/GoldGames/internal/gateway"
	"github.com/VULUxOMID/GoldGames/internal/gateway/gatewaytest"
	"github.com/VULUxOMID/GoldGames/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestComputeBalance(t *testing.T) {
	txs := []models.GoldTransaction{
		{Amount: decimal.NewFromInt(100), Type: models.Credit},
		{Amount: decimal.RequireFromString("20.5"), Type: models.Debit},
		{Amount: decimal.RequireFromString("0.25"), Type: models.Credit},
	}
	require.Equal(t, "79.75", ComputeBalance(txs).String())
	require.True(t, ComputeBalance(nil).IsZero())
}

// The incrementally maintained balance matches a full fold after any mix of record and reload.
func TestGoldBalanceInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 25; run++ {
		fake := gatewaytest.New()
		g := NewGold(fake)
		ctx := context.Background()

		for step := 0; step < 40; step++ {
			if rng.Intn(5) == 0 {
				require.NoError(t, g.LoadHistory(ctx, "u1"))
			} else {
				typ := models.Credit
				if rng.Intn(2) == 0 {
					typ = models.Debit
				}
				amount := decimal.New(rng.Int63n(100000), -2)
				_, err := g.Record(ctx, models.NewTransaction{UserID: "u1", Amount: amount, Type: typ})
				require.NoError(t, err)
			}
			st := g.Snapshot()
			require.True(t, st.Balance.Equal(ComputeBalance(st.Transactions)),
				"run %d step %d: balance %s != fold %s", run, step, st.Balance, ComputeBalance(st.Transactions))
		}

		require.NoError(t, g.LoadHistory(ctx, "u1"))
		server, err := fake.ListTransactions(ctx, "u1")
		require.NoError(t, err)
		st := g.Snapshot()
		require.Len(t, st.Transactions, len(server))
		require.True(t, st.Balance.Equal(ComputeBalance(server)))
	}
}

func TestGoldRecordFailureLeavesStoreUntouched(t *testing.T) {
	fake := gatewaytest.New()
	g := NewGold(fake)
	ctx := context.Background()

	_, err := g.Record(ctx, models.NewTransaction{UserID: "u1", Amount: decimal.NewFromInt(5), Type: models.Credit})
	require.NoError(t, err)

	fake.Fail("CreateTransaction", gateway.NewError(gateway.CodeTransport, "network down"))
	_, err = g.Record(ctx, models.NewTransaction{UserID: "u1", Amount: decimal.NewFromInt(7), Type: models.Credit})
	require.Error(t, err)

	st := g.Snapshot()
	require.Len(t, st.Transactions, 1)
	require.Equal(t, "5", st.Balance.String())
	require.Equal(t, "network down", st.Error)
	require.False(t, st.Loading)

	g.ClearError()
	require.Empty(t, g.Snapshot().Error)
}

// gatedLedger holds ListTransactions calls until released, so tests can finish them out of order.
type gatedLedger struct {
	*gatewaytest.Fake
	gates chan chan struct{}
}

func (g *gatedLedger) ListTransactions(ctx context.Context, userID string) ([]models.GoldTransaction, error) {
	txs, err := g.Fake.ListTransactions(ctx, userID)
	release := make(chan struct{})
	g.gates <- release
	<-release
	return txs, err
}

func TestGoldStaleHistoryIsDiscarded(t *testing.T) {
	fake := gatewaytest.New()
	gl := &gatedLedger{Fake: fake, gates: make(chan chan struct{})}
	g := NewGold(gl)
	ctx := context.Background()

	// the first load reads an empty ledger
	firstDone := make(chan error)
	go func() { firstDone <- g.LoadHistory(ctx, "u1") }()
	releaseFirst := <-gl.gates

	_, err := fake.CreateTransaction(ctx, models.NewTransaction{UserID: "u1", Amount: decimal.NewFromInt(3), Type: models.Credit})
	require.NoError(t, err)

	// the second load sees the new row and lands first
	secondDone := make(chan error)
	go func() { secondDone <- g.LoadHistory(ctx, "u1") }()
	releaseSecond := <-gl.gates
	require.True(t, g.Snapshot().Loading)
	close(releaseSecond)
	require.NoError(t, <-secondDone)

	close(releaseFirst)
	require.NoError(t, <-firstDone)

	st := g.Snapshot()
	require.Len(t, st.Transactions, 1, "stale empty read must not overwrite the newer list")
	require.Equal(t, "3", st.Balance.String())
	require.False(t, st.Loading)
}

func TestGoldRecordSurvivesOlderReload(t *testing.T) {
	fake := gatewaytest.New()
	gl := &gatedLedger{Fake: fake, gates: make(chan chan struct{})}
	g := NewGold(gl)
	ctx := context.Background()

	loadDone := make(chan error)
	go func() { loadDone <- g.LoadHistory(ctx, "u1") }()
	release := <-gl.gates

	_, err := g.Record(ctx, models.NewTransaction{UserID: "u1", Amount: decimal.NewFromInt(9), Type: models.Credit})
	require.NoError(t, err)

	close(release)
	require.NoError(t, <-loadDone)

	st := g.Snapshot()
	require.Len(t, st.Transactions, 1, "confirmed row is merged back over the older read")
	require.Equal(t, "9", st.Balance.String())
}
