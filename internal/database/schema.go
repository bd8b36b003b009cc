package database

// Embedded schemas keyed by database name. All statements are idempotent so
// Migrate can run on every startup.
var schemas = map[string]string{
	"market":   marketSchema,
	"analysis": analysisSchema,
	"cache":    cacheSchema,
}

const marketSchema = `
CREATE TABLE IF NOT EXISTS stocks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL DEFAULT '',
    exchange TEXT NOT NULL DEFAULT '',
    sector TEXT NOT NULL DEFAULT '',
    industry TEXT NOT NULL DEFAULT '',
    market_cap REAL,
    pe_ratio REAL,
    beta REAL,
    dividend_yield REAL,
    fifty_two_week_high REAL,
    fifty_two_week_low REAL,
    current_price REAL,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_stocks_symbol ON stocks(symbol);

CREATE TABLE IF NOT EXISTS stock_prices (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    stock_id INTEGER NOT NULL REFERENCES stocks(id) ON DELETE CASCADE,
    date TEXT NOT NULL,
    open REAL NOT NULL,
    high REAL NOT NULL,
    low REAL NOT NULL,
    close REAL NOT NULL,
    volume INTEGER NOT NULL DEFAULT 0,
    synthetic INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    UNIQUE(stock_id, date)
);

CREATE INDEX IF NOT EXISTS idx_stock_prices_stock_date ON stock_prices(stock_id, date DESC);
`

const analysisSchema = `
CREATE TABLE IF NOT EXISTS ai_analysis (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    stock_id INTEGER NOT NULL,
    analysis_type TEXT NOT NULL,
    content TEXT NOT NULL,
    confidence REAL NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    valid_until TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ai_analysis_stock_type ON ai_analysis(stock_id, analysis_type);
CREATE INDEX IF NOT EXISTS idx_ai_analysis_valid_until ON ai_analysis(valid_until);

CREATE TABLE IF NOT EXISTS stock_recommendations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    stock_id INTEGER NOT NULL,
    symbol TEXT NOT NULL,
    total_score REAL NOT NULL,
    technical_score REAL NOT NULL,
    fundamental_score REAL NOT NULL,
    sentiment_score REAL NOT NULL,
    momentum_score REAL NOT NULL,
    label TEXT NOT NULL,
    risk_level TEXT NOT NULL,
    confidence REAL NOT NULL,
    reasoning TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    expires_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_recommendations_symbol ON stock_recommendations(symbol);
CREATE INDEX IF NOT EXISTS idx_recommendations_score ON stock_recommendations(total_score DESC);
CREATE INDEX IF NOT EXISTS idx_recommendations_expires ON stock_recommendations(expires_at);
`

const cacheSchema = `
CREATE TABLE IF NOT EXISTS analysis_tasks (
    task_id TEXT PRIMARY KEY,
    task_type TEXT NOT NULL,
    symbols TEXT NOT NULL DEFAULT '[]',
    status TEXT NOT NULL DEFAULT 'pending',
    progress REAL NOT NULL DEFAULT 0,
    result BLOB,
    error_message TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    started_at TEXT,
    completed_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_analysis_tasks_status ON analysis_tasks(status);
CREATE INDEX IF NOT EXISTS idx_analysis_tasks_created ON analysis_tasks(created_at);

CREATE TABLE IF NOT EXISTS client_cache (
    cache_key TEXT PRIMARY KEY,
    payload BLOB NOT NULL,
    created_at INTEGER NOT NULL,
    expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_client_cache_expires ON client_cache(expires_at);
`
