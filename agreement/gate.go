package agreement

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/config"
	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/database"
	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/dsl/compiler"
	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/errors"
	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/event"
	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/protocol/vm"
)

const logModule = "agreement"

var (
	ErrAlreadyExecuted = errors.New("transaction already executed")
	ErrConditionNotMet = errors.New("condition not met")
	ErrUnknownRecord   = errors.New("unknown agreement record")
)

// ExecutedPrefix is the namespace of executed-transaction marks, keyed by
// record id.
var ExecutedPrefix = []byte("TX:")

func calcExecutedKey(id string) []byte {
	return append(append([]byte{}, ExecutedPrefix...), id...)
}

// Effect is the guarded transaction. It runs only after the conditions
// of its record hold, and may change arrays through the storage it is
// given; those changes are kept only if Effect succeeds.
type Effect func(ctx context.Context, arrays vm.ArrayStorage) error

// Gate decides whether agreement transactions may run, and runs each at
// most once.
type Gate struct {
	store    *database.Store
	runLimit int64
	retries  int
	programs *programCache
	events   *event.Dispatcher

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	recordsMu sync.RWMutex
	records   map[string]*Record
}

// NewGate returns a Gate over store configured by cfg.
func NewGate(store *database.Store, cfg *config.Config) *Gate {
	g := &Gate{
		store:    store,
		runLimit: cfg.VM.RunLimit,
		retries:  cfg.Gate.MaxRetries,
		locks:    make(map[string]*sync.Mutex),
		records:  make(map[string]*Record),
		events:   event.NewDispatcher(),
	}
	g.programs = newProgramCache(cfg.Gate.CacheSize, compiler.CompileAll)
	return g
}

// Events returns the dispatcher receiving ExecutedEvent and RejectedEvent.
func (g *Gate) Events() *event.Dispatcher {
	return g.events
}

// Close stops event delivery.
func (g *Gate) Close() {
	g.events.Stop()
}

func (g *Gate) post(ev interface{}) {
	if err := g.events.Post(ev); err != nil {
		log.WithFields(log.Fields{"module": logModule, "err": err}).Debug("event not posted")
	}
}

// AddRecord registers rec, replacing any record with the same id. Its
// conditions must compile.
func (g *Gate) AddRecord(rec *Record) error {
	if err := rec.validate(); err != nil {
		return err
	}
	if _, err := g.Compile(rec); err != nil {
		return err
	}

	g.recordsMu.Lock()
	g.records[rec.ID] = rec
	g.recordsMu.Unlock()
	return nil
}

// Record returns the record registered under id.
func (g *Gate) Record(id string) (*Record, error) {
	g.recordsMu.RLock()
	defer g.recordsMu.RUnlock()

	rec, ok := g.records[id]
	if !ok {
		return nil, errors.WithDetailf(ErrUnknownRecord, "%q", id)
	}
	return rec, nil
}

// Records returns the registered records sorted by id.
func (g *Gate) Records() []*Record {
	g.recordsMu.RLock()
	defer g.recordsMu.RUnlock()

	recs := make([]*Record, 0, len(g.records))
	for _, rec := range g.records {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
	return recs
}

// Compile returns the program of rec's conditions, compiling it on first
// use.
func (g *Gate) Compile(rec *Record) (*compiler.Program, error) {
	if err := rec.validate(); err != nil {
		return nil, err
	}
	prog, err := g.programs.lookup(rec.Conditions)
	if err != nil {
		return nil, errors.Wrapf(err, "compiling record %s", rec.ID)
	}
	return prog, nil
}

// Evaluate runs rec's conditions against app without any lasting effect
// and reports the verdict. The returned context holds the final stack
// for inspection; it is returned even when execution fails.
func (g *Gate) Evaluate(rec *Record, app vm.Application) (bool, *vm.Context, error) {
	prog, err := g.Compile(rec)
	if err != nil {
		return false, nil, err
	}

	overlay := g.store.Overlay()
	defer overlay.Discard()

	return g.run(prog, app, overlay)
}

func (g *Gate) run(prog *compiler.Program, app vm.Application, arrays vm.ArrayStorage) (bool, *vm.Context, error) {
	vmctx := vm.NewContext(app, arrays)
	top, err := vm.Execute(vmctx, prog.Code, g.runLimit)
	if err != nil {
		return false, vmctx, err
	}

	ok, err := vm.Truthy(top)
	if err != nil {
		return false, vmctx, errors.Wrap(err, "reading verdict")
	}
	return ok, vmctx, nil
}

// Executed reports whether the transaction of record id has run.
func (g *Gate) Executed(id string) bool {
	return g.store.DB().Get(calcExecutedKey(id)) != nil
}

// ExecutedMark returns the mark stored when record id executed, or nil.
func (g *Gate) ExecutedMark(id string) (*Mark, error) {
	b := g.store.DB().Get(calcExecutedKey(id))
	if b == nil {
		return nil, nil
	}

	mark := &Mark{}
	if err := json.Unmarshal(b, mark); err != nil {
		return nil, errors.Wrapf(err, "decoding mark of %s", id)
	}
	return mark, nil
}

// Execute runs effect if rec's conditions hold and rec has not executed
// before. Condition programs and effect share one overlay of the array
// store, committed together with the executed mark only when everything
// succeeds. Calls for the same record id are serialized.
//
// If another record changes an array this one read before the commit,
// conditions and effect are run again on the new state, up to the
// configured number of retries. Effect must therefore tolerate being
// called more than once; only the arrays of the final attempt are kept.
func (g *Gate) Execute(ctx context.Context, rec *Record, app vm.Application, effect Effect) (*vm.Context, error) {
	if err := rec.validate(); err != nil {
		return nil, err
	}

	unlock := g.lockRecord(rec.ID)
	defer unlock()

	if g.Executed(rec.ID) {
		return nil, errors.WithDetailf(ErrAlreadyExecuted, "record %s", rec.ID)
	}

	prog, err := g.Compile(rec)
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		vmctx, err := g.attempt(ctx, rec, prog, app, effect)
		if errors.Root(err) != database.ErrConflict {
			return vmctx, err
		}
		if attempt >= g.retries {
			err = errors.Wrapf(err, "record %s after %d attempts", rec.ID, attempt+1)
			g.post(RejectedEvent{ID: rec.ID, Err: err})
			return vmctx, err
		}
		log.WithFields(log.Fields{"module": logModule, "id": rec.ID, "attempt": attempt + 1, "err": err}).Debug("retrying transaction")
	}
}

func (g *Gate) attempt(ctx context.Context, rec *Record, prog *compiler.Program, app vm.Application, effect Effect) (*vm.Context, error) {
	overlay := g.store.Overlay()
	defer overlay.Discard()

	ok, vmctx, err := g.run(prog, app, overlay)
	if err != nil {
		log.WithFields(log.Fields{"module": logModule, "id": rec.ID, "err": err}).Warn("condition failed")
		err = errors.Wrapf(err, "evaluating record %s", rec.ID)
		g.post(RejectedEvent{ID: rec.ID, Err: err})
		return vmctx, err
	}
	if !ok {
		err = errors.WithDetailf(ErrConditionNotMet, "record %s", rec.ID)
		g.post(RejectedEvent{ID: rec.ID, Err: err})
		return vmctx, err
	}

	if effect != nil {
		if err := effect(ctx, overlay); err != nil {
			return vmctx, errors.Wrapf(err, "executing transaction of record %s", rec.ID)
		}
	}

	mark := &Mark{
		Transaction: rec.Transaction,
		ProgramHash: hex.EncodeToString(prog.Hash),
		ExecutedAt:  time.Now().Unix(),
	}
	b, err := json.Marshal(mark)
	if err != nil {
		return vmctx, err
	}
	overlay.Put(calcExecutedKey(rec.ID), b)
	if err := overlay.Commit(); err != nil {
		return vmctx, err
	}
	g.post(ExecutedEvent{ID: rec.ID, Mark: *mark})

	log.WithFields(log.Fields{"module": logModule, "id": rec.ID, "transaction": rec.Transaction}).Info("transaction executed")
	return vmctx, nil
}

// ExecuteByID is Execute for a registered record.
func (g *Gate) ExecuteByID(ctx context.Context, id string, app vm.Application, effect Effect) (*vm.Context, error) {
	rec, err := g.Record(id)
	if err != nil {
		return nil, err
	}
	return g.Execute(ctx, rec, app, effect)
}

func (g *Gate) lockRecord(id string) func() {
	g.locksMu.Lock()
	m, ok := g.locks[id]
	if !ok {
		m = new(sync.Mutex)
		g.locks[id] = m
	}
	g.locksMu.Unlock()

	m.Lock()
	return m.Unlock
}
