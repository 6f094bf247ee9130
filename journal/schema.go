package journal

const Schema = `
CREATE TABLE IF NOT EXISTS days (
	date TEXT NOT NULL,
	window TEXT NOT NULL,
	realized_pnl REAL NOT NULL,
	unrealized_pnl REAL NOT NULL,
	trade_count INTEGER NOT NULL,
	win_count INTEGER NOT NULL,
	loss_count INTEGER NOT NULL,
	order_count INTEGER NOT NULL,
	max_drawdown REAL NOT NULL,
	max_profit REAL NOT NULL,
	halted INTEGER NOT NULL,
	halt_reason TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS session_levels (
	date TEXT NOT NULL,
	session TEXT NOT NULL,
	high REAL NOT NULL,
	low REAL NOT NULL,
	bar_count INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_days_date ON days(date);
CREATE INDEX IF NOT EXISTS idx_session_levels_date ON session_levels(date);
`
