package database

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/errors"
	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/protocol/vm"
)

// ErrConflict is returned by Commit when an array the overlay touched was
// changed in the store after the overlay first read it.
var ErrConflict = errors.New("array changed by a concurrent writer")

// An Overlay is a buffered view of a Store. Reads see the overlay's own
// writes first and fall through to the store; writes stay in memory until
// Commit applies them in one batch. Discard drops them. An Overlay
// satisfies vm.ArrayStorage.
//
// The slot and length of every name are recorded the first time the
// overlay touches it. Commit applies nothing if any of them moved.
type Overlay struct {
	store *Store

	mu    sync.Mutex
	buf   buffer
	bases map[string]base
	names map[string]bool
	puts  int
}

// base is a name's state in the store when an overlay first touched it.
type base struct {
	slot   slot
	length uint64
}

func newOverlay(store *Store) *Overlay {
	o := &Overlay{store: store}
	o.reset()
	return o
}

func (o *Overlay) reset() {
	o.buf = buffer{db: o.store.db, writes: make(map[string][]byte)}
	o.bases = make(map[string]base)
	o.names = make(map[string]bool)
	o.puts = 0
}

func (o *Overlay) slot(name string) (slot, error) {
	if b, ok := o.buf.writes[string(calcHeadKey(name))]; ok {
		return slotFromBytes(b)
	}
	if b, ok := o.bases[name]; ok {
		return b.slot, nil
	}

	sl, n, err := o.store.snapshot(name)
	if err != nil {
		return slot{}, err
	}
	o.bases[name] = base{slot: sl, length: n}
	return sl, nil
}

func (o *Overlay) GetHead(name string) (bool, vm.Tag, vm.HeadPointer, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s, err := o.slot(name)
	return s.IsArray, s.ElemType, s.Head, err
}

func (o *Overlay) SetHead(name string, isArray bool, elemType vm.Tag, head vm.HeadPointer) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, err := o.slot(name); err != nil {
		return err
	}
	writeSlot(&o.buf, name, slot{IsArray: isArray, ElemType: elemType, Head: head})
	o.names[name] = true
	return nil
}

func (o *Overlay) Declare(name string, elemType vm.Tag) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	old, err := o.slot(name)
	if err != nil {
		return err
	}
	if err := dropElements(&o.buf, &o.buf, old); err != nil {
		return err
	}
	writeSlot(&o.buf, name, slot{IsArray: true, ElemType: elemType, Head: NewHeadPointer(name)})
	o.names[name] = true
	return nil
}

func (o *Overlay) Len(name string) (uint64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s, err := o.slot(name)
	if err != nil {
		return 0, err
	}
	return readLen(&o.buf, s)
}

func (o *Overlay) Element(name string, index uint64) (vm.StackValue, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s, err := o.slot(name)
	if err != nil {
		return vm.StackValue{}, err
	}
	return readElement(&o.buf, name, s, index)
}

func (o *Overlay) Append(name string, v vm.StackValue) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	s, err := o.slot(name)
	if err != nil {
		return err
	}
	if _, err := appendValue(&o.buf, &o.buf, name, s, v); err != nil {
		return err
	}
	o.names[name] = true
	return nil
}

// Put buffers a raw key outside the array namespaces, to be written in
// the same batch as the overlay's array changes.
func (o *Overlay) Put(key, value []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.buf.Set(key, value)
	o.puts++
}

// Dirty reports whether the overlay holds uncommitted writes.
func (o *Overlay) Dirty() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	return len(o.buf.writes) > 0
}

// Commit writes every buffered change to the store in one batch and
// empties the overlay. The locks of all touched names are held while the
// recorded bases are checked and the batch is written. If another writer
// changed a touched name in between, nothing is written and Commit fails
// with ErrConflict; the overlay is emptied either way.
func (o *Overlay) Commit() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	defer o.reset()

	names := make([]string, 0, len(o.bases)+len(o.names))
	for name := range o.bases {
		names = append(names, name)
	}
	for name := range o.names {
		names = append(names, name)
	}
	unlock := o.store.locks.lockAll(names)
	defer unlock()

	for name, b := range o.bases {
		if err := o.store.verify(name, b); err != nil {
			log.WithFields(log.Fields{"module": logModule, "name": name, "err": err}).Debug("commit conflict")
			return err
		}
	}

	batch := o.store.db.NewBatch()
	for k, v := range o.buf.writes {
		if v == nil {
			batch.Delete([]byte(k))
		} else {
			batch.Set([]byte(k), v)
		}
	}
	batch.Write()

	for name := range o.names {
		o.store.cache.remove(name)
	}
	log.WithFields(log.Fields{"module": logModule, "keys": len(o.buf.writes), "arrays": len(o.names), "puts": o.puts}).Debug("commit overlay")
	return nil
}

// Discard drops every buffered change.
func (o *Overlay) Discard() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.reset()
}

// buffer records writes over db. A nil value marks a deleted key.
type buffer struct {
	db     getter
	writes map[string][]byte
}

func (b *buffer) Get(key []byte) []byte {
	if v, ok := b.writes[string(key)]; ok {
		return v
	}
	return b.db.Get(key)
}

func (b *buffer) Set(key, value []byte) {
	b.writes[string(key)] = append([]byte{}, value...)
}

func (b *buffer) Delete(key []byte) {
	b.writes[string(key)] = nil
}
