package indexeddb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/mtaran/crdbextract/internal"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/comparer"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// ComparerName is the comparator Chrome records in IndexedDB manifests.
// LevelDB refuses to open a database under a differently named comparer.
const ComparerName = "idb_cmp1"

// StateLive marks records read from the current table state
const StateLive = "live"

// idbComparer orders keys bytewise under Chrome's comparator name. Full
// scans return every live record; only the order differs from Chrome's.
type idbComparer struct {
	comparer.Comparer
}

func (idbComparer) Name() string { return ComparerName }

// Comparer returns the comparer used to open IndexedDB LevelDB directories
func Comparer() comparer.Comparer {
	return idbComparer{comparer.DefaultComparer}
}

// Options control one extraction
type Options struct {
	IncludeDeleted bool
	SafeCopy       bool
}

// Record is one object store entry
type Record struct {
	Key   interface{} `json:"key"`
	Value interface{} `json:"value"`
	State string      `json:"state,omitempty"`
}

// ObjectStore holds the records of one store
type ObjectStore struct {
	Name    string   `json:"name"`
	ID      int64    `json:"id"`
	Records []Record `json:"records"`
	Error   string   `json:"error,omitempty"`
}

// Database is one named IndexedDB database inside an origin
type Database struct {
	Name         string         `json:"name"`
	ID           int64          `json:"id"`
	Origin       string         `json:"origin"`
	ObjectStores []*ObjectStore `json:"object_stores"`
	Error        string         `json:"error,omitempty"`
}

// Result is the extraction of one LevelDB directory. Open failures are
// reported in Error rather than returned.
type Result struct {
	Path      string      `json:"path"`
	Origin    string      `json:"origin"`
	Databases []*Database `json:"databases"`
	Error     string      `json:"error,omitempty"`
}

// Open opens an IndexedDB LevelDB directory read-only
func Open(path string) (*leveldb.DB, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{
		Comparer:       Comparer(),
		ReadOnly:       true,
		ErrorIfMissing: true,
	})
	if err != nil {
		return nil, &internal.ExtractionError{Path: path, Op: "open", Err: err}
	}
	return db, nil
}

// Extract reads every database and object store in path
func Extract(ctx context.Context, path string, opts Options) *Result {
	result := &Result{
		Path:      path,
		Origin:    Origin(path),
		Databases: []*Database{},
	}

	workPath := path
	if opts.SafeCopy {
		tmp, err := copyToTemp(path)
		if err != nil {
			result.Error = err.Error()
			return result
		}
		defer func() { _ = os.RemoveAll(filepath.Dir(tmp)) }()
		workPath = tmp
	}

	db, err := Open(workPath)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer func() { _ = db.Close() }()

	s := newScan()
	iter := db.NewIterator(nil, nil)
	for iter.Next() {
		if err := ctx.Err(); err != nil {
			iter.Release()
			result.Error = err.Error()
			return result
		}
		s.add(iter.Key(), iter.Value(), opts)
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		result.Error = (&internal.ExtractionError{Path: path, Op: "iterate", Err: err}).Error()
	}

	result.Databases = s.databases()
	return result
}

// DatabaseInfo names one database without reading its records
type DatabaseInfo struct {
	Name   string
	ID     int64
	Origin string
}

// ListDatabases reads only the global metadata of path
func ListDatabases(path string) ([]DatabaseInfo, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	// prefix (0,0,0) followed by the database name type byte
	prefix := []byte{0, 0, 0, 0, databaseNameTypeByte}
	iter := db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	var infos []DatabaseInfo
	for iter.Next() {
		origin, name, err := decodeDatabaseName(iter.Key()[len(prefix):])
		if err != nil {
			internal.LogDebug("Skipping database name key in %s: %v", path, err)
			continue
		}
		infos = append(infos, DatabaseInfo{Name: name, ID: decodeInt(iter.Value()), Origin: origin})
	}
	if err := iter.Error(); err != nil {
		return infos, &internal.ExtractionError{Path: path, Op: "iterate", Err: err}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}

func decodeDatabaseName(b []byte) (string, string, error) {
	origin, rest, err := decodeStringWithLength(b)
	if err != nil {
		return "", "", err
	}
	name, _, err := decodeStringWithLength(rest)
	if err != nil {
		return "", "", err
	}
	return origin, name, nil
}

// scan accumulates databases and stores while iterating all keys
type scan struct {
	dbs    map[int64]*Database
	stores map[int64]map[int64]*ObjectStore
}

func newScan() *scan {
	return &scan{
		dbs:    make(map[int64]*Database),
		stores: make(map[int64]map[int64]*ObjectStore),
	}
}

func (s *scan) database(id int64) *Database {
	db, ok := s.dbs[id]
	if !ok {
		db = &Database{ID: id, ObjectStores: []*ObjectStore{}}
		s.dbs[id] = db
	}
	return db
}

func (s *scan) store(dbID, id int64) *ObjectStore {
	stores, ok := s.stores[dbID]
	if !ok {
		stores = make(map[int64]*ObjectStore)
		s.stores[dbID] = stores
	}
	st, ok := stores[id]
	if !ok {
		st = &ObjectStore{ID: id, Records: []Record{}}
		stores[id] = st
	}
	return st
}

func (s *scan) add(key, value []byte, opts Options) {
	prefix, rest, err := decodeKeyPrefix(key)
	if err != nil || len(rest) == 0 {
		return
	}

	switch {
	case prefix.isGlobal():
		if rest[0] != databaseNameTypeByte {
			return
		}
		origin, name, err := decodeDatabaseName(rest[1:])
		if err != nil {
			return
		}
		db := s.database(decodeInt(value))
		db.Name, db.Origin = name, origin

	case prefix.isDatabaseMeta():
		if rest[0] != objectStoreMetaTypeByte {
			return
		}
		storeID, meta, err := decodeVarInt(rest[1:])
		if err != nil || len(meta) == 0 || meta[0] != objectStoreNameMeta {
			return
		}
		s.store(prefix.DatabaseID, storeID).Name = decodeUTF16BE(value)

	case prefix.isObjectStoreData():
		st := s.store(prefix.DatabaseID, prefix.ObjectStoreID)
		k, _, err := decodeIDBKey(rest)
		if err != nil {
			st.Error = fmt.Sprintf("undecodable key: %v", err)
			return
		}
		rec := Record{Key: k, Value: decodeValue(append([]byte(nil), value...))}
		if opts.IncludeDeleted {
			rec.State = StateLive
		}
		st.Records = append(st.Records, rec)
	}
}

// databases returns databases and their stores ordered by id
func (s *scan) databases() []*Database {
	for dbID := range s.stores {
		s.database(dbID)
	}

	out := make([]*Database, 0, len(s.dbs))
	for id, db := range s.dbs {
		for _, st := range s.stores[id] {
			if st.Name == "" {
				st.Name = fmt.Sprintf("store-%d", st.ID)
			}
			db.ObjectStores = append(db.ObjectStores, st)
		}
		sort.Slice(db.ObjectStores, func(i, j int) bool { return db.ObjectStores[i].ID < db.ObjectStores[j].ID })
		out = append(out, db)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// copyToTemp snapshots a directory that a running browser may hold locked.
// The caller removes the parent of the returned path.
func copyToTemp(path string) (string, error) {
	tmp, err := os.MkdirTemp("", "indexeddb_")
	if err != nil {
		return "", &internal.ExtractionError{Path: path, Op: "copy", Err: err}
	}
	dest := filepath.Join(tmp, filepath.Base(path))
	if err := internal.CopyDir(path, dest); err != nil {
		_ = os.RemoveAll(tmp)
		return "", &internal.ExtractionError{Path: path, Op: "copy", Err: err}
	}
	return dest, nil
}
