package overtime

import (
	"context"
	"encoding/json"
	"time"
)

const resetSettingKey = "overtime_reset"

// LastReset returns the recorded payroll reset marker, or nil when no
// reset has run yet.
func (s *Store) LastReset(ctx context.Context) (*ResetState, error) {
	rows, err := s.DB.Query(ctx, `SELECT value_json FROM system_settings WHERE key = $1`, resetSettingKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var raw []byte
	if err := rows.Scan(&raw); err != nil {
		return nil, err
	}
	var state ResetState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Reset closes out the month's ledgers, moving outstanding balances
// into paid hours, and advances the reset marker. Returns the number
// of ledgers closed.
func (s *Store) Reset(ctx context.Context, month string) (int, error) {
	prev, err := s.LastReset(ctx)
	if err != nil {
		return 0, err
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
    UPDATE overtime_balances
    SET paid_hours = paid_hours + balance_hours,
        balance_hours = 0,
        last_reset_at = now(),
        updated_at = now()
    WHERE month = $1 AND balance_hours <> 0
  `, month)
	if err != nil {
		return 0, err
	}

	state := ResetState{
		LastResetDate:  time.Now().UTC(),
		LastResetMonth: month,
		ResetCount:     1,
	}
	if prev != nil {
		state.ResetCount = prev.ResetCount + 1
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return 0, err
	}
	if _, err := tx.Exec(ctx, `
    INSERT INTO system_settings (key, value_json)
    VALUES ($1, $2)
    ON CONFLICT (key) DO UPDATE SET value_json = EXCLUDED.value_json, updated_at = now()
  `, resetSettingKey, raw); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
