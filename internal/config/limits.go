package config

import "time"

const (
	// MaxDocumentTitleLength is the maximum length for document titles.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255) and provide
	// reasonable UX (titles should be short and descriptive).
	MaxDocumentTitleLength = 255

	// MaxBlocksPerDocument caps the block list accepted by a single save.
	// Every save rewrites the whole list inside one transaction, so the
	// cap bounds how long the document row stays locked.
	MaxBlocksPerDocument = 2000

	// MaxBlockContentBytes is the largest JSON payload a single block may carry.
	// Images and files are stored in object storage; blocks only hold metadata.
	MaxBlockContentBytes = 256 * 1024

	// MaxRequestBodyBytes bounds request bodies read by handlers.
	// Sized for a full save at the block cap with typical paragraph blocks.
	MaxRequestBodyBytes = 8 << 20

	// DefaultTxTimeout bounds each coordinator transaction.
	DefaultTxTimeout = 10 * time.Second

	// DefaultTxMaxRetries is how many times a transaction that lost a lock race is retried.
	DefaultTxMaxRetries = 3

	// MaxLogFiles is how many server-*.log files SetupLogFile keeps.
	MaxLogFiles = 10
)
