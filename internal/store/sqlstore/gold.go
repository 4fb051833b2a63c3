package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/VULUxOMID/GoldGames/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func (s *SQLStore) CreateTransaction(ctx context.Context, entry models.NewTransaction) (*models.GoldTransaction, error) {
	if !entry.Type.Valid() {
		return nil, fmt.Errorf("invalid transaction type %q", entry.Type)
	}
	if entry.Amount.IsNegative() {
		return nil, fmt.Errorf("transaction amount must not be negative: %s", entry.Amount)
	}

	tx := models.GoldTransaction{
		ID:          uuid.NewString(),
		UserID:      entry.UserID,
		Amount:      entry.Amount,
		Type:        entry.Type,
		Description: entry.Description,
		CreatedAt:   time.Now().UTC(),
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	query := s.rebind("INSERT INTO gold_transactions (id, user_id, amount, type, description, created_at) VALUES (?, ?, ?, ?, ?, ?)")
	if _, err := dbTx.ExecContext(ctx, query, tx.ID, tx.UserID, tx.Amount.String(), string(tx.Type), tx.Description, formatTime(tx.CreatedAt)); err != nil {
		return nil, fmt.Errorf("failed to insert gold transaction: %w", err)
	}

	// keep the leaderboard total in step with the ledger
	var gold string
	err = dbTx.QueryRowContext(ctx, s.rebind("SELECT total_gold FROM profiles WHERE id = ?"), tx.UserID).Scan(&gold)
	if err == nil {
		total, perr := decimal.NewFromString(gold)
		if perr != nil {
			return nil, fmt.Errorf("failed to parse total_gold '%s': %w", gold, perr)
		}
		total = total.Add(tx.Signed())
		if _, err := dbTx.ExecContext(ctx, s.rebind("UPDATE profiles SET total_gold = ? WHERE id = ?"), total.String(), tx.UserID); err != nil {
			return nil, fmt.Errorf("failed to update total_gold: %w", err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit gold transaction: %w", err)
	}
	return &tx, nil
}

// GetTransactions returns the user's ledger newest first.
func (s *SQLStore) GetTransactions(ctx context.Context, userID string) ([]models.GoldTransaction, error) {
	query := s.rebind(`
		SELECT id, user_id, amount, type, description, created_at
		FROM gold_transactions
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
	`)
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []models.GoldTransaction
	for rows.Next() {
		var (
			t                 models.GoldTransaction
			amount, createdAt string
			txType            string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &amount, &txType, &t.Description, &createdAt); err != nil {
			return nil, err
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("failed to parse amount '%s': %w", amount, err)
		}
		t.Type = models.TransactionType(txType)
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
