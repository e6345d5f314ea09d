package store

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
)

// InsertAgentSignal persists sig as a new row and returns its id. Writes
// are event-sourced: submitting an identical AgentSignal twice yields two
// distinct rows, never a dedup.
func (s *Store) InsertAgentSignal(sig AgentSignal) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO agent_signals
			(agent_id, strategy_name, symbol, action, conviction, price_at_signal, reason, raw_analysis, stop_loss, take_profit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		nullableString(sig.AgentID), nullableString(sig.StrategyName), sig.Symbol, string(sig.Action),
		nullableFloat(sig.Conviction), nullableDecimal(sig.PriceAtSignal), nullableString(sig.Reason),
		nullableString(sig.RawAnalysis), nullableDecimal(sig.StopLoss), nullableDecimal(sig.TakeProfit),
	)
	if err != nil {
		return 0, fmt.Errorf("insert agent signal for %s: %w", sig.Symbol, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// ListAgentSignals returns signals in reverse-chronological order,
// optionally filtered by symbol.
func (s *Store) ListAgentSignals(symbol string, limit int) ([]AgentSignal, error) {
	var rows *sql.Rows
	var err error
	if symbol != "" {
		rows, err = s.db.Query(`
			SELECT id, agent_id, strategy_name, symbol, action, conviction, price_at_signal, reason, raw_analysis, stop_loss, take_profit, created_at
			FROM agent_signals WHERE symbol = ? ORDER BY created_at DESC LIMIT ?
		`, symbol, limit)
	} else {
		rows, err = s.db.Query(`
			SELECT id, agent_id, strategy_name, symbol, action, conviction, price_at_signal, reason, raw_analysis, stop_loss, take_profit, created_at
			FROM agent_signals ORDER BY created_at DESC LIMIT ?
		`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list agent signals: %w", err)
	}
	defer rows.Close()

	var out []AgentSignal
	for rows.Next() {
		var sig AgentSignal
		var agentID, strategyName, reason, rawAnalysis sql.NullString
		var priceAtSignal, stopLoss, takeProfit sql.NullString
		var conviction sql.NullFloat64
		var action string
		if err := rows.Scan(&sig.ID, &agentID, &strategyName, &sig.Symbol, &action, &conviction,
			&priceAtSignal, &reason, &rawAnalysis, &stopLoss, &takeProfit, &sig.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan agent signal row: %w", err)
		}
		sig.Action = SignalAction(action)
		sig.AgentID = stringPtr(agentID)
		sig.StrategyName = stringPtr(strategyName)
		sig.Reason = stringPtr(reason)
		sig.RawAnalysis = stringPtr(rawAnalysis)
		if conviction.Valid {
			v := conviction.Float64
			sig.Conviction = &v
		}
		var err error
		if sig.PriceAtSignal, err = decimalPtr(priceAtSignal); err != nil {
			return nil, err
		}
		if sig.StopLoss, err = decimalPtr(stopLoss); err != nil {
			return nil, err
		}
		if sig.TakeProfit, err = decimalPtr(takeProfit); err != nil {
			return nil, err
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}

func nullableString(p *string) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func nullableFloat(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func nullableDecimal(p *decimal.Decimal) interface{} {
	if p == nil {
		return nil
	}
	return p.String()
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func decimalPtr(ns sql.NullString) (*decimal.Decimal, error) {
	if !ns.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(ns.String)
	if err != nil {
		return nil, fmt.Errorf("parse decimal %q: %w", ns.String, err)
	}
	return &d, nil
}
