package db

func (db *DB) initSchema() error {
	schema := `
	-- One row per API server. Token and user are written in the same row so
	-- they can never be observed out of step.
	CREATE TABLE IF NOT EXISTS credentials (
		base_url TEXT PRIMARY KEY,
		token TEXT NOT NULL,
		user_json TEXT NOT NULL,
		saved_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Local preferences (last chat mode, last opened conversation)
	CREATE TABLE IF NOT EXISTS preferences (
		base_url TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (base_url, key)
	);
	`

	_, err := db.conn.Exec(schema)
	return err
}
