// internal/app/system/limits/limits.go
package limits

// Store-imposed size limits. The document store caps "$in"-style equality
// terms, pages query results, and makes large multi-document transactions
// expensive; everything that fans out over org or user sets chunks its work
// by these constants.
const (
	// MaxInQuery is the maximum number of IDs placed in a single $in clause.
	MaxInQuery = 10

	// MaxTxnWrites is the per-transaction write budget. User batches larger
	// than this are split across sequential transactions.
	MaxTxnWrites = 500

	// QueryPage is the page size for cursor-based continuation when walking
	// large user or assignment result sets.
	QueryPage = 500

	// OrgChunkSize bounds the total reference count of one fan-out chunk.
	// Each chunk becomes an independent sync task.
	OrgChunkSize = 10
)
