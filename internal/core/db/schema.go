package db

func (db *DB) initSchema() error {
	schema := `
	-- Single-row credential table; id is pinned to 1
	CREATE TABLE IF NOT EXISTS credentials (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		token TEXT NOT NULL,
		username TEXT,
		saved_at DATETIME NOT NULL
	);

	-- Report export log
	CREATE TABLE IF NOT EXISTS exports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		dataset_id INTEGER NOT NULL,
		filename TEXT,
		path TEXT NOT NULL,
		size INTEGER DEFAULT 0,
		exported_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_exports_exported_at ON exports(exported_at);
	CREATE INDEX IF NOT EXISTS idx_exports_dataset_id ON exports(dataset_id);
	`

	_, err := db.conn.Exec(schema)
	return err
}
