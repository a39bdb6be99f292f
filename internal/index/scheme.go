package index

var (
	bRecords = []byte("records")  // slug -> record JSON
	bIdxSize = []byte("idx_size") // invChars(8) + 0x00 + slug -> 1
	bSources = []byte("sources")  // source path -> slug
	bMeta    = []byte("meta")     // key -> value, survives Rebuild
)

// recordBuckets are dropped and recreated by Rebuild.
var recordBuckets = [][]byte{bRecords, bIdxSize, bSources}

var allBuckets = [][]byte{bRecords, bIdxSize, bSources, bMeta}
