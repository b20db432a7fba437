package database

import (
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
	dbm "github.com/tendermint/tmlibs/db"

	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/errors"
	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/protocol/vm"
)

const logModule = "database"

// A Store keeps named arrays in a key-value database. It satisfies
// vm.ArrayStorage. Every operation on a name holds that name's lock, so
// writers of one slot are serialized while distinct names proceed in
// parallel.
type Store struct {
	db    dbm.DB
	locks nameLocks
	cache *slotCache
}

// NewStore creates and returns a new Store object.
func NewStore(db dbm.DB) *Store {
	fillSlotFn := func(name string) (slot, error) {
		return readSlot(db, name)
	}

	return &Store{
		db:    db,
		locks: nameLocks{m: make(map[string]*sync.Mutex)},
		cache: newSlotCache(fillSlotFn),
	}
}

// DB returns the underlying database.
func (s *Store) DB() dbm.DB {
	return s.db
}

// GetHead returns the slot of name. A name that was never written reads
// as (false, TagNone, null pointer).
func (s *Store) GetHead(name string) (bool, vm.Tag, vm.HeadPointer, error) {
	unlock := s.locks.lock(name)
	defer unlock()

	sl, err := s.cache.lookup(name)
	if err != nil {
		return false, vm.TagNone, vm.HeadPointer{}, err
	}
	return sl.IsArray, sl.ElemType, sl.Head, nil
}

// SetHead overwrites the slot of name. Elements reachable from the old head
// are left in place.
func (s *Store) SetHead(name string, isArray bool, elemType vm.Tag, head vm.HeadPointer) error {
	unlock := s.locks.lock(name)
	defer unlock()

	sl := slot{IsArray: isArray, ElemType: elemType, Head: head}
	writeSlot(s.db, name, sl)
	s.cache.add(name, sl)
	return nil
}

// Declare (re)creates name as an empty array of elemType. Elements of a
// previous array with the same name are deleted.
func (s *Store) Declare(name string, elemType vm.Tag) error {
	unlock := s.locks.lock(name)
	defer unlock()

	old, err := s.cache.lookup(name)
	if err != nil {
		return err
	}

	batch := s.db.NewBatch()
	if err := dropElements(s.db, batch, old); err != nil {
		return err
	}
	sl := slot{IsArray: true, ElemType: elemType, Head: NewHeadPointer(name)}
	writeSlot(batch, name, sl)
	batch.Write()

	s.cache.add(name, sl)
	log.WithFields(log.Fields{"module": logModule, "name": name, "type": elemType, "head": sl.Head}).Debug("declare array")
	return nil
}

func (s *Store) Len(name string) (uint64, error) {
	unlock := s.locks.lock(name)
	defer unlock()

	sl, err := s.cache.lookup(name)
	if err != nil {
		return 0, err
	}
	return readLen(s.db, sl)
}

// Element returns name[index]. Reading past the end fails with vm.ErrRange.
func (s *Store) Element(name string, index uint64) (vm.StackValue, error) {
	unlock := s.locks.lock(name)
	defer unlock()

	sl, err := s.cache.lookup(name)
	if err != nil {
		return vm.StackValue{}, err
	}
	return readElement(s.db, name, sl, index)
}

// Append adds v to the end of name, declaring name as an array of v's type
// if it is not one yet. Appending a value of another type fails with
// vm.ErrTypeMismatch.
func (s *Store) Append(name string, v vm.StackValue) error {
	unlock := s.locks.lock(name)
	defer unlock()

	old, err := s.cache.lookup(name)
	if err != nil {
		return err
	}

	batch := s.db.NewBatch()
	sl, err := appendValue(s.db, batch, name, old, v)
	if err != nil {
		return err
	}
	batch.Write()

	s.cache.add(name, sl)
	return nil
}

// Elements returns every element of name in order.
func (s *Store) Elements(name string) ([]vm.StackValue, error) {
	unlock := s.locks.lock(name)
	defer unlock()

	sl, err := s.cache.lookup(name)
	if err != nil {
		return nil, err
	}

	n, err := readLen(s.db, sl)
	if err != nil {
		return nil, err
	}

	values := make([]vm.StackValue, 0, n)
	for i := uint64(0); i < n; i++ {
		v, err := readElement(s.db, name, sl, i)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s[%d]", name, i)
		}
		values = append(values, v)
	}
	return values, nil
}

// Remove deletes name and its elements. Removing an unknown name is a
// no-op.
func (s *Store) Remove(name string) error {
	unlock := s.locks.lock(name)
	defer unlock()

	sl, err := s.cache.lookup(name)
	if err != nil {
		return err
	}

	batch := s.db.NewBatch()
	if err := dropElements(s.db, batch, sl); err != nil {
		return err
	}
	batch.Delete(calcHeadKey(name))
	batch.Write()

	s.cache.remove(name)
	log.WithFields(log.Fields{"module": logModule, "name": name}).Debug("remove array")
	return nil
}

// Names lists every name with a slot, in key order.
func (s *Store) Names() []string {
	var names []string
	iter := s.db.Iterator(ArrayHeadPrefix, prefixEnd(ArrayHeadPrefix))
	defer iter.Close()

	for ; iter.Valid(); iter.Next() {
		names = append(names, string(iter.Key()[len(ArrayHeadPrefix):]))
	}
	return names
}

// snapshot returns the slot and length of name as one consistent read.
func (s *Store) snapshot(name string) (slot, uint64, error) {
	unlock := s.locks.lock(name)
	defer unlock()

	sl, err := s.cache.lookup(name)
	if err != nil {
		return slot{}, 0, err
	}
	n, err := readLen(s.db, sl)
	return sl, n, err
}

// verify checks that name still has slot and length b. The caller holds
// the name's lock.
func (s *Store) verify(name string, b base) error {
	sl, err := readSlot(s.db, name)
	if err != nil {
		return err
	}
	if sl != b.slot {
		return errors.WithDetailf(ErrConflict, "slot of array %s changed since read", name)
	}

	n, err := readLen(s.db, sl)
	if err != nil {
		return err
	}
	if n != b.length {
		return errors.WithDetailf(ErrConflict, "array %s has length %d, read %d", name, n, b.length)
	}
	return nil
}

// Overlay returns a buffered view of s. See Overlay.
func (s *Store) Overlay() *Overlay {
	return newOverlay(s)
}

// nameLocks hands out one mutex per array name.
type nameLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (l *nameLocks) get(name string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.m[name]
	if !ok {
		m = new(sync.Mutex)
		l.m[name] = m
	}
	return m
}

func (l *nameLocks) lock(name string) func() {
	m := l.get(name)
	m.Lock()
	return m.Unlock
}

// lockAll locks names in sorted order and returns a function unlocking
// them all.
func (l *nameLocks) lockAll(names []string) func() {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	unlocks := make([]func(), 0, len(sorted))
	for i, name := range sorted {
		if i > 0 && name == sorted[i-1] {
			continue
		}
		unlocks = append(unlocks, l.lock(name))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}
