package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v3"

	"github.com/st3fan/kickoff/pkg/core"
	"github.com/st3fan/kickoff/pkg/manifest"
)

// Key layout:
//
//	pkg#<name>                      JSON Record
//	ref#<lib>#<version>#<owner>     library <lib>@<version> is used by <owner>
//	bin#<entry>                     entry point owned by the value
const (
	pkgPrefix = "pkg#"
	refPrefix = "ref#"
	binPrefix = "bin#"
)

// Store is the installed-package database
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the database in dir. An empty dir keeps the
// database in memory.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database
func (s *Store) Close() error {
	return s.db.Close()
}

func pkgKey(name string) []byte {
	return []byte(pkgPrefix + manifest.CanonicalName(name))
}

func refKey(lib, version, owner string) []byte {
	return []byte(refPrefix + manifest.CanonicalName(lib) + "#" + version + "#" + manifest.CanonicalName(owner))
}

func refVersionPrefix(lib, version string) []byte {
	return []byte(refPrefix + manifest.CanonicalName(lib) + "#" + version + "#")
}

func binKey(entry string) []byte {
	return []byte(binPrefix + entry)
}

// Get returns the record of an installed package
func (s *Store) Get(name string) (*Record, error) {
	var rec *Record
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = getRecord(txn, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func getRecord(txn *badger.Txn, name string) (*Record, error) {
	item, err := txn.Get(pkgKey(name))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, &core.Error{Op: "lookup", Package: name, Err: core.ErrNotInstalled}
		}
		return nil, err
	}

	rec := new(Record)
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, rec)
	})
	if err != nil {
		return nil, fmt.Errorf("decoding record for %s: %w", name, err)
	}
	return rec, nil
}

// List returns every installed package sorted by name
func (s *Store) List() ([]*Record, error) {
	var result []*Record

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(pkgPrefix)
		iter := txn.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			rec := new(Record)
			err := iter.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, rec)
			})
			if err != nil {
				return fmt.Errorf("decoding %s: %w", iter.Item().Key(), err)
			}
			result = append(result, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// Commit stores rec together with its library references and entry points.
// When replaced is set its references are dropped in the same transaction.
func (s *Store) Commit(rec *Record, replaced *Record) error {
	encoded, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if replaced != nil {
			if err := deleteRecord(txn, replaced); err != nil {
				return err
			}
		}

		if err := txn.Set(pkgKey(rec.Name), encoded); err != nil {
			return err
		}
		for _, lib := range rec.Dependencies {
			if err := txn.Set(refKey(lib.Name, lib.Version, rec.Name), []byte{}); err != nil {
				return err
			}
		}
		for _, script := range rec.Scripts {
			if err := txn.Set(binKey(script.Name), []byte(rec.Name)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes an installed package and its references and returns the
// record that was removed.
func (s *Store) Delete(name string) (*Record, error) {
	var rec *Record
	err := s.db.Update(func(txn *badger.Txn) error {
		var err error
		rec, err = getRecord(txn, name)
		if err != nil {
			return err
		}
		return deleteRecord(txn, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func deleteRecord(txn *badger.Txn, rec *Record) error {
	if err := txn.Delete(pkgKey(rec.Name)); err != nil {
		return err
	}
	for _, lib := range rec.Dependencies {
		if err := txn.Delete(refKey(lib.Name, lib.Version, rec.Name)); err != nil {
			return err
		}
	}
	for _, script := range rec.Scripts {
		owner, err := binOwner(txn, script.Name)
		if err != nil {
			return err
		}
		if manifest.CanonicalName(owner) != manifest.CanonicalName(rec.Name) {
			continue
		}
		if err := txn.Delete(binKey(script.Name)); err != nil {
			return err
		}
	}
	return nil
}

// LibraryOwners lists the packages referencing lib at version
func (s *Store) LibraryOwners(lib, version string) ([]string, error) {
	var owners []string
	prefix := refVersionPrefix(lib, version)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := txn.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			key := string(iter.Item().Key())
			owners = append(owners, strings.TrimPrefix(key, string(prefix)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(owners)
	return owners, nil
}

// ScriptOwner returns the package owning an entry point, or "" when free
func (s *Store) ScriptOwner(entry string) (string, error) {
	var owner string
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		owner, err = binOwner(txn, entry)
		return err
	})
	return owner, err
}

func binOwner(txn *badger.Txn, entry string) (string, error) {
	item, err := txn.Get(binKey(entry))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return "", nil
		}
		return "", err
	}

	var owner string
	err = item.Value(func(val []byte) error {
		owner = string(val)
		return nil
	})
	return owner, err
}
