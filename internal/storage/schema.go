package storage

// schemaMigrations is the ledger's full migration history. A database's
// user_version is the count of entries applied, so order is load-bearing:
// append only, never reorder.
var schemaMigrations = []Migration{
	// v1: base tables
	{
		Up: []string{
			`CREATE TABLE user (
				user_id INTEGER PRIMARY KEY,
				user_email TEXT NOT NULL UNIQUE,
				tz_offset INTEGER NOT NULL DEFAULT 0,
				created_at INTEGER NOT NULL DEFAULT (strftime('%s'))
			)`,
			`CREATE TABLE purchase (
				purchase_id INTEGER PRIMARY KEY,
				user_id INTEGER NOT NULL REFERENCES user(user_id) ON DELETE CASCADE,
				amount_in_cents INTEGER NOT NULL,
				merchant TEXT NOT NULL,
				timestamp INTEGER NOT NULL,
				created_at INTEGER NOT NULL DEFAULT (strftime('%s'))
			)`,
			`CREATE TABLE outbound_email (
				outbound_email_id INTEGER PRIMARY KEY,
				user_id INTEGER NOT NULL REFERENCES user(user_id) ON DELETE CASCADE,
				sender TEXT NOT NULL,
				subject TEXT NOT NULL,
				body TEXT,
				body_html TEXT,
				sent_at INTEGER,
				created_at INTEGER NOT NULL DEFAULT (strftime('%s'))
			)`,
		},
		Down: []string{
			`DROP TABLE outbound_email`,
			`DROP TABLE purchase`,
			`DROP TABLE user`,
		},
	},
	// v2: purchase corrections. At most one amendment per purchase; edits
	// overwrite it in place and undo deletes it, so the base row survives.
	{
		Up: []string{
			`CREATE TABLE purchase_amendment (
				purchase_amendment_id INTEGER PRIMARY KEY,
				purchase_id INTEGER UNIQUE NOT NULL REFERENCES purchase(purchase_id) ON DELETE CASCADE,
				new_amount_in_cents INTEGER NOT NULL,
				new_merchant TEXT NOT NULL,
				created_at INTEGER NOT NULL DEFAULT (strftime('%s'))
			)`,
		},
		Down: []string{
			`DROP TABLE purchase_amendment`,
		},
	},
	// v3: the amended view. Reads go through this so display always sees
	// corrections without the base facts ever being rewritten.
	{
		Up: []string{
			`CREATE VIEW amended_purchase AS
			WITH amend AS (
				SELECT purchase_id, new_amount_in_cents, new_merchant
				FROM purchase_amendment
			)
			SELECT
				p.purchase_id AS purchase_id,
				p.user_id AS user_id,
				COALESCE(a.new_amount_in_cents, p.amount_in_cents) AS amount_in_cents,
				COALESCE(a.new_merchant, p.merchant) AS merchant,
				p.timestamp AS timestamp,
				a.purchase_id IS NOT NULL AS is_amended,
				p.created_at AS created_at
			FROM purchase AS p
			LEFT JOIN amend AS a
			ON a.purchase_id = p.purchase_id`,
		},
		Down: []string{
			`DROP VIEW amended_purchase`,
		},
	},
	// v4: indexes for the period queries and the courier's poll.
	{
		Up: []string{
			`CREATE INDEX idx_purchase_user_timestamp ON purchase(user_id, timestamp)`,
			`CREATE INDEX idx_outbound_email_sent_at ON outbound_email(sent_at)`,
		},
		Down: []string{
			`DROP INDEX idx_outbound_email_sent_at`,
			`DROP INDEX idx_purchase_user_timestamp`,
		},
	},
}
