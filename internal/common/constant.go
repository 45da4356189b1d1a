package common

const (
	// LogsDirName holds the ledger, session logs, failed items and history db.
	LogsDirName = "logs"
	// DataDirName holds one folder per identifier.
	DataDirName = "data"

	LedgerFileName      = "completed_ledger.txt"
	FailedItemsFileName = "failed_items.txt"
	HistoryDBFileName   = "history.db"

	// PublicBucket is the open-access TCGA bucket; requests against it are
	// sent unsigned unless credentials are configured.
	PublicBucket = "tcga-2-open"
)
