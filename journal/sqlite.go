package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordDay(d DaySummary) error {
	_, err := j.db.Exec(`
		INSERT INTO days
		(date, window, realized_pnl, unrealized_pnl, trade_count, win_count, loss_count, order_count, max_drawdown, max_profit, halted, halt_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Date, d.Window, d.RealizedPnL, d.UnrealizedPnL,
		d.TradeCount, d.WinCount, d.LossCount, d.OrderCount,
		d.MaxDrawdown, d.MaxProfit, d.Halted, d.HaltReason,
	)
	return err
}

func (j *SQLite) RecordSession(s SessionLevel) error {
	_, err := j.db.Exec(`
		INSERT INTO session_levels
		(date, session, high, low, bar_count)
		VALUES (?, ?, ?, ?, ?)`,
		s.Date, s.Session, s.High, s.Low, s.BarCount,
	)
	return err
}

// ListDays returns the recorded periods, oldest first.
func (j *SQLite) ListDays() ([]DaySummary, error) {
	rows, err := j.db.Query(`
		SELECT date, window, realized_pnl, unrealized_pnl, trade_count, win_count, loss_count, order_count, max_drawdown, max_profit, halted, halt_reason
		FROM days ORDER BY date, window`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DaySummary
	for rows.Next() {
		var d DaySummary
		if err := rows.Scan(&d.Date, &d.Window, &d.RealizedPnL, &d.UnrealizedPnL,
			&d.TradeCount, &d.WinCount, &d.LossCount, &d.OrderCount,
			&d.MaxDrawdown, &d.MaxProfit, &d.Halted, &d.HaltReason); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListSessions returns the archived session levels for a date.
func (j *SQLite) ListSessions(date string) ([]SessionLevel, error) {
	rows, err := j.db.Query(`
		SELECT date, session, high, low, bar_count
		FROM session_levels WHERE date = ? ORDER BY session`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionLevel
	for rows.Next() {
		var s SessionLevel
		if err := rows.Scan(&s.Date, &s.Session, &s.High, &s.Low, &s.BarCount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
