package state

import (
	"context"
	"sync"

	"github.com/VULUxOMID/GoldGames/internal/gateway"
	"github.com/VULUxOMID/GoldGames/internal/models"

	"github.com/shopspring/decimal"
)

// ComputeBalance folds a ledger: credits add, debits subtract.
func ComputeBalance(txs []models.GoldTransaction) decimal.Decimal {
	balance := decimal.Zero
	for _, tx := range txs {
		balance = balance.Add(tx.Signed())
	}
	return balance
}

type GoldState struct {
	Transactions []models.GoldTransaction `json:"transactions"`
	Balance      decimal.Decimal          `json:"balance"`
	Loading      bool                     `json:"loading"`
	Error        string                   `json:"error,omitempty"`
}

// Gold is the wallet store. Its list is newest first and balance always equals
// ComputeBalance(list).
type Gold struct {
	gw gateway.Gateway

	mu      sync.Mutex
	seq     sequencer
	list    []models.GoldTransaction
	balance decimal.Decimal
	err     string

	// rows confirmed by Record that no history load has returned yet
	recent []models.GoldTransaction
}

func NewGold(gw gateway.Gateway) *Gold {
	return &Gold{gw: gw, balance: decimal.Zero}
}

func (g *Gold) Snapshot() GoldState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return GoldState{
		Transactions: append([]models.GoldTransaction(nil), g.list...),
		Balance:      g.balance,
		Loading:      g.seq.busy(),
		Error:        g.err,
	}
}

func (g *Gold) begin() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seq.begin()
}

func (g *Gold) contains(id string) bool {
	for _, tx := range g.list {
		if tx.ID == id {
			return true
		}
	}
	return false
}

// LoadHistory replaces the list with the user's ledger and recomputes the balance.
func (g *Gold) LoadHistory(ctx context.Context, userID string) error {
	t := g.begin()
	txs, err := g.gw.ListTransactions(ctx, userID)

	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.seq.replace(t) {
		return err
	}
	if err != nil {
		g.err = gateway.MessageOf(err)
		return err
	}

	g.list = txs
	g.err = ""
	// a confirmed row the read did not see yet stays merged until a later read includes it
	keep := g.recent[:0]
	for _, tx := range g.recent {
		if tx.UserID != userID {
			continue
		}
		if !g.contains(tx.ID) {
			keep = append(keep, tx)
			g.list = append([]models.GoldTransaction{tx}, g.list...)
		}
	}
	g.recent = keep
	g.balance = ComputeBalance(g.list)
	return nil
}

// Record sends entry to the backend and merges the confirmed row.
func (g *Gold) Record(ctx context.Context, entry models.NewTransaction) (*models.GoldTransaction, error) {
	t := g.begin()
	tx, err := g.gw.CreateTransaction(ctx, entry)

	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.seq.merge(t) {
		return tx, err
	}
	if err != nil {
		g.err = gateway.MessageOf(err)
		return nil, err
	}

	g.err = ""
	g.recent = append(g.recent, *tx)
	if !g.contains(tx.ID) {
		g.list = append([]models.GoldTransaction{*tx}, g.list...)
		g.balance = g.balance.Add(tx.Signed())
	}
	return tx, nil
}

func (g *Gold) ClearError() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = ""
}

// Reset empties the store, e.g. after sign-out.
func (g *Gold) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq.reset()
	g.list = nil
	g.recent = nil
	g.balance = decimal.Zero
	g.err = ""
}
