package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE invoices (
				id VARCHAR(255) PRIMARY KEY,
				purpose VARCHAR(255) NOT NULL,
				record JSONB NOT NULL DEFAULT '{}',
				line_items JSONB NOT NULL DEFAULT '[]',
				total NUMERIC(14, 2) NOT NULL DEFAULT 0,
				currency VARCHAR(8) NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_invoices_purpose ON invoices(purpose);
			CREATE INDEX idx_invoices_created_at ON invoices(created_at);
		`,
		2: `
			-- One row per counter; formats without a sequence key use "format:<format>"
			CREATE TABLE license_sequences (
				key VARCHAR(255) PRIMARY KEY,
				value BIGINT NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
		`,
	}
}
