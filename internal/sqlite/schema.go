package sqlite

// Schema DDL. Statements are idempotent so Attach can reopen an existing
// database file.
const (
	createTables = `CREATE TABLE IF NOT EXISTS tables (
    name_key TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    created_at TEXT NOT NULL
);`

	createEntities = `CREATE TABLE IF NOT EXISTS entities (
    table_key TEXT NOT NULL,
    partition_key TEXT NOT NULL,
    row_key TEXT NOT NULL,
    etag TEXT NOT NULL,
    timestamp TEXT NOT NULL,
    properties TEXT NOT NULL,
    PRIMARY KEY (table_key, partition_key, row_key),
    FOREIGN KEY (table_key) REFERENCES tables(name_key) ON DELETE CASCADE
);`

	createAccessPolicies = `CREATE TABLE IF NOT EXISTS access_policies (
    table_key TEXT NOT NULL,
    policy_id TEXT NOT NULL,
    start TEXT,
    expiry TEXT,
    permissions TEXT NOT NULL,
    PRIMARY KEY (table_key, policy_id),
    FOREIGN KEY (table_key) REFERENCES tables(name_key) ON DELETE CASCADE
);`
)

// Index DDL for common queries.
const (
	idxEntitiesTimestamp = `CREATE INDEX IF NOT EXISTS idx_entities_timestamp ON entities(table_key, timestamp);`
)

// schemaDDL lists all statements in dependency order.
var schemaDDL = []string{
	createTables,
	createEntities,
	createAccessPolicies,
	idxEntitiesTimestamp,
}
