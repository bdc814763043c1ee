package nlu

import (
	"context"
	"fmt"
	"strings"

	"github.com/Subham15-Dutta/roadresq/internal/db"
)

// RuleStore persists trained intent rules so they survive restarts. The
// in-process Classifier remains the authority during a run; the store is
// loaded into it at startup.
type RuleStore struct {
	db *db.DB
}

// NewRuleStore creates a rule store backed by the given database.
func NewRuleStore(database *db.DB) *RuleStore {
	return &RuleStore{db: database}
}

// Save records a trained phrase. The phrase is stored in the Classifier's
// normalized form so re-training the same phrase in any casing refreshes the
// one row rather than adding another. Re-saving refreshes recency so the
// newest training wins on overlap.
func (s *RuleStore) Save(ctx context.Context, r Rule) error {
	phrase := strings.ToLower(strings.TrimSpace(r.Phrase))
	if phrase == "" {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning rule transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM intent_rules WHERE phrase = ?`, phrase); err != nil {
		return fmt.Errorf("clearing previous rule: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO intent_rules (phrase, intent_type) VALUES (?, ?)`,
		phrase, r.Intent,
	); err != nil {
		return fmt.Errorf("inserting rule: %w", err)
	}

	return tx.Commit()
}

// LoadAll returns persisted rules oldest first, the order the Classifier
// expects for replay.
func (s *RuleStore) LoadAll(ctx context.Context) ([]Rule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT phrase, intent_type FROM intent_rules ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		var r Rule
		if err := rows.Scan(&r.Phrase, &r.Intent); err != nil {
			return nil, fmt.Errorf("scanning rule: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}
