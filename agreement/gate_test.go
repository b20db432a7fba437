package agreement

import (
	"context"
	"encoding/hex"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	dbm "github.com/tendermint/tmlibs/db"

	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/config"
	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/database"
	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/dsl/compiler"
	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/dsl/dsltest"
	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/errors"
	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/protocol/vm"
)

func newTestGate() (*Gate, *database.Store) {
	store := database.NewStore(dbm.NewMemDB())
	return NewGate(store, config.DefaultConfig()), store
}

var testApp = vm.Variables{
	"amount": vm.NewUint64(1200),
	"owner":  vm.NewAddress(vm.Address{19: 0xaa}),
	"memo":   vm.NewString("invoice-42"),
}

func TestExecuteOnce(t *testing.T) {
	gate, _ := newTestGate()
	rec := &Record{ID: "loan-1", Conditions: []string{dsltest.AmountAboveMinimum, dsltest.OwnerMatches}, Transaction: "release"}

	runs := 0
	effect := func(ctx context.Context, arrays vm.ArrayStorage) error {
		runs++
		return nil
	}

	vmctx, err := gate.Execute(context.Background(), rec, testApp, effect)
	require.NoError(t, err)
	require.Equal(t, 1, vmctx.Stack.Len())
	require.True(t, gate.Executed(rec.ID))

	_, err = gate.Execute(context.Background(), rec, testApp, effect)
	require.Equal(t, ErrAlreadyExecuted, errors.Root(err))
	require.Equal(t, 1, runs)

	mark, err := gate.ExecutedMark(rec.ID)
	require.NoError(t, err)
	require.Equal(t, "release", mark.Transaction)

	prog, err := gate.Compile(rec)
	require.NoError(t, err)
	require.Len(t, mark.ProgramHash, 64)
	require.Equal(t, mark.ProgramHash, hex.EncodeToString(prog.Hash))
}

func TestExecuteConditionNotMet(t *testing.T) {
	gate, _ := newTestGate()
	rec := &Record{ID: "r", Conditions: []string{dsltest.Satisfied, dsltest.Unsatisfied}}

	called := false
	_, err := gate.Execute(context.Background(), rec, testApp, func(context.Context, vm.ArrayStorage) error {
		called = true
		return nil
	})
	require.Equal(t, ErrConditionNotMet, errors.Root(err))
	require.False(t, called)
	require.False(t, gate.Executed(rec.ID))

	mark, err := gate.ExecutedMark(rec.ID)
	require.NoError(t, err)
	require.Nil(t, mark)
}

func TestExecuteEmptyCondition(t *testing.T) {
	gate, _ := newTestGate()

	_, err := gate.Execute(context.Background(), &Record{ID: "r", Conditions: []string{""}}, testApp, nil)
	require.Equal(t, ErrConditionNotMet, errors.Root(err))
}

func TestExecuteSurfacesErrors(t *testing.T) {
	cases := []struct {
		cond    string
		wantErr error
	}{
		{dsltest.UnmatchedClose, compiler.ErrUnbalancedParentheses},
		{dsltest.BadToken, compiler.ErrBadToken},
		{`memo > 3`, vm.ErrTypeMismatch},
		{`missing == 1`, vm.ErrUndefinedVariable},
		{`1 ==`, vm.ErrStackUnderflow},
		{`payments[0] == 1`, vm.ErrRange},
		{`amount`, nil},
	}
	for _, c := range cases {
		t.Run(c.cond, func(t *testing.T) {
			gate, _ := newTestGate()
			rec := &Record{ID: "r", Conditions: []string{c.cond}}

			_, err := gate.Execute(context.Background(), rec, testApp, nil)
			require.Equal(t, c.wantErr, errors.Root(err))
			require.Equal(t, c.wantErr == nil, gate.Executed(rec.ID))
		})
	}
}

func TestExecuteBudget(t *testing.T) {
	store := database.NewStore(dbm.NewMemDB())
	cfg := config.DefaultConfig()
	cfg.VM.RunLimit = 3
	gate := NewGate(store, cfg)

	_, err := gate.Execute(context.Background(), &Record{ID: "r", Conditions: []string{dsltest.Satisfied}}, testApp, nil)
	require.Equal(t, vm.ErrBudgetExceeded, errors.Root(err))
	require.False(t, gate.Executed("r"))
}

func TestExecuteEffectArrays(t *testing.T) {
	gate, store := newTestGate()
	require.NoError(t, store.Append("payments", vm.NewUint64(1500)))

	rec := &Record{ID: "pay-1", Conditions: []string{dsltest.FirstPaymentCovers}}
	_, err := gate.Execute(context.Background(), rec, testApp, func(ctx context.Context, arrays vm.ArrayStorage) error {
		return arrays.Append("payments", vm.NewUint64(300))
	})
	require.NoError(t, err)

	n, err := store.Len("payments")
	require.NoError(t, err)
	require.Equal(t, uint64(2), n)
}

func TestExecuteEffectFailureRollsBack(t *testing.T) {
	gate, store := newTestGate()
	require.NoError(t, store.Append("payments", vm.NewUint64(1500)))

	failure := errors.New("transfer rejected")
	rec := &Record{ID: "pay-1", Conditions: []string{dsltest.HasPayments}}
	_, err := gate.Execute(context.Background(), rec, testApp, func(ctx context.Context, arrays vm.ArrayStorage) error {
		if err := arrays.Append("payments", vm.NewUint64(300)); err != nil {
			return err
		}
		return failure
	})
	require.Equal(t, failure, errors.Root(err))
	require.False(t, gate.Executed(rec.ID))

	n, err := store.Len("payments")
	require.NoError(t, err)
	require.Equal(t, uint64(1), n)

	// a later attempt may still succeed
	_, err = gate.Execute(context.Background(), rec, testApp, nil)
	require.NoError(t, err)
}

func TestExecuteCanceled(t *testing.T) {
	gate, _ := newTestGate()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gate.Execute(ctx, &Record{ID: "r", Conditions: []string{dsltest.Satisfied}}, testApp, nil)
	require.Equal(t, context.Canceled, errors.Root(err))
	require.False(t, gate.Executed("r"))
}

func TestExecuteConcurrent(t *testing.T) {
	gate, _ := newTestGate()
	rec := &Record{ID: "once", Conditions: []string{dsltest.Satisfied}}

	var (
		mu       sync.Mutex
		runs     int
		executed int
		refused  int
		wg       sync.WaitGroup
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := gate.Execute(context.Background(), rec, testApp, func(context.Context, vm.ArrayStorage) error {
				mu.Lock()
				runs++
				mu.Unlock()
				return nil
			})

			mu.Lock()
			defer mu.Unlock()
			switch errors.Root(err) {
			case nil:
				executed++
			case ErrAlreadyExecuted:
				refused++
			default:
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, runs)
	require.Equal(t, 1, executed)
	require.Equal(t, 15, refused)
}

func TestExecuteSharedArray(t *testing.T) {
	gate, store := newTestGate()
	appendSeven := func(ctx context.Context, arrays vm.ArrayStorage) error {
		return arrays.Append("X", vm.NewUint64(7))
	}

	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	errs := make([]error, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			rec := &Record{ID: id, Conditions: []string{dsltest.Satisfied}}
			_, errs[i] = gate.Execute(context.Background(), rec, testApp, appendSeven)
		}(i, id)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "record %s", ids[i])
		require.True(t, gate.Executed(ids[i]))
	}
	n, err := store.Len("X")
	require.NoError(t, err)
	require.Equal(t, uint64(len(ids)), n)
}

func TestExecuteRetriesConflict(t *testing.T) {
	cases := []struct {
		retries  int
		wantErr  error
		wantRuns int
		wantLen  uint64
	}{
		{retries: 0, wantErr: database.ErrConflict, wantRuns: 1, wantLen: 1},
		{retries: 1, wantErr: nil, wantRuns: 2, wantLen: 2},
	}

	for _, c := range cases {
		store := database.NewStore(dbm.NewMemDB())
		cfg := config.DefaultConfig()
		cfg.Gate.MaxRetries = c.retries
		gate := NewGate(store, cfg)

		runs := 0
		effect := func(ctx context.Context, arrays vm.ArrayStorage) error {
			runs++
			if runs == 1 {
				// another writer gets in between this read and the commit
				if _, err := arrays.Len("X"); err != nil {
					return err
				}
				if err := store.Append("X", vm.NewUint64(1)); err != nil {
					return err
				}
			}
			return arrays.Append("X", vm.NewUint64(2))
		}

		rec := &Record{ID: "r", Conditions: []string{dsltest.Satisfied}}
		_, err := gate.Execute(context.Background(), rec, testApp, effect)
		require.Equal(t, c.wantErr, errors.Root(err), "retries %d", c.retries)
		require.Equal(t, c.wantRuns, runs, "retries %d", c.retries)
		require.Equal(t, c.wantErr == nil, gate.Executed(rec.ID))

		n, err := store.Len("X")
		require.NoError(t, err)
		require.Equal(t, c.wantLen, n, "retries %d", c.retries)
	}
}

func TestExecuteIndependentRecords(t *testing.T) {
	gate, _ := newTestGate()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := &Record{ID: string(rune('a' + i)), Conditions: []string{dsltest.Lending}}
			_, errs[i] = gate.Execute(context.Background(), rec, testApp, nil)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "record %d", i)
		require.True(t, gate.Executed(string(rune('a'+i))))
	}
}

func TestEvaluateHasNoEffect(t *testing.T) {
	gate, store := newTestGate()
	require.NoError(t, store.Append("payments", vm.NewUint64(1500)))

	rec := &Record{ID: "r", Conditions: []string{dsltest.HasPayments}}
	ok, vmctx, err := gate.Evaluate(rec, testApp)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, vmctx.Stack.Len())
	require.False(t, gate.Executed(rec.ID))

	ok, _, err = gate.Evaluate(&Record{ID: "r", Conditions: []string{dsltest.SecondPaymentLate}}, testApp)
	require.Equal(t, vm.ErrRange, errors.Root(err))
	require.False(t, ok)
}

func TestCompileCache(t *testing.T) {
	gate, _ := newTestGate()

	a, err := gate.Compile(&Record{ID: "a", Conditions: []string{dsltest.Satisfied, dsltest.Negation}})
	require.NoError(t, err)
	b, err := gate.Compile(&Record{ID: "b", Conditions: []string{dsltest.Satisfied, dsltest.Negation}})
	require.NoError(t, err)
	require.True(t, a == b, "identical conditions compile once")

	c, err := gate.Compile(&Record{ID: "c", Conditions: []string{dsltest.Negation, dsltest.Satisfied}})
	require.NoError(t, err)
	require.False(t, a == c)
	require.Equal(t, 2, gate.programs.len())
}

func TestRecords(t *testing.T) {
	gate, _ := newTestGate()

	require.Equal(t, ErrBadRecord, errors.Root(gate.AddRecord(&Record{})))
	require.Equal(t, compiler.ErrUnbalancedParentheses, errors.Root(gate.AddRecord(&Record{ID: "bad", Conditions: []string{"("}})))

	require.NoError(t, gate.AddRecord(&Record{ID: "b", Conditions: []string{dsltest.Satisfied}}))
	require.NoError(t, gate.AddRecord(&Record{ID: "a", Conditions: []string{dsltest.Unsatisfied}}))

	recs := gate.Records()
	require.Len(t, recs, 2)
	require.Equal(t, "a", recs[0].ID)

	_, err := gate.Record("missing")
	require.Equal(t, ErrUnknownRecord, errors.Root(err))

	_, err = gate.ExecuteByID(context.Background(), "missing", testApp, nil)
	require.Equal(t, ErrUnknownRecord, errors.Root(err))

	_, err = gate.ExecuteByID(context.Background(), "a", testApp, nil)
	require.Equal(t, ErrConditionNotMet, errors.Root(err))

	_, err = gate.ExecuteByID(context.Background(), "b", testApp, nil)
	require.NoError(t, err)
}

func TestGateEvents(t *testing.T) {
	gate, _ := newTestGate()
	defer gate.Close()

	sub, err := gate.Events().Subscribe(ExecutedEvent{}, RejectedEvent{})
	require.NoError(t, err)

	_, err = gate.Execute(context.Background(), &Record{ID: "no", Conditions: []string{dsltest.Unsatisfied}}, testApp, nil)
	require.Error(t, err)
	_, err = gate.Execute(context.Background(), &Record{ID: "yes", Conditions: []string{dsltest.Satisfied}, Transaction: "pay"}, testApp, nil)
	require.NoError(t, err)
	_, err = gate.Execute(context.Background(), &Record{ID: "yes", Conditions: []string{dsltest.Satisfied}}, testApp, nil)
	require.Equal(t, ErrAlreadyExecuted, errors.Root(err))

	ev := <-sub.Chan()
	rejected, ok := ev.Data.(RejectedEvent)
	require.True(t, ok)
	require.Equal(t, "no", rejected.ID)
	require.Equal(t, ErrConditionNotMet, errors.Root(rejected.Err))

	ev = <-sub.Chan()
	executed, ok := ev.Data.(ExecutedEvent)
	require.True(t, ok)
	require.Equal(t, "yes", executed.ID)
	require.Equal(t, "pay", executed.Transaction)

	select {
	case ev := <-sub.Chan():
		t.Fatalf("unexpected event %+v", ev.Data)
	default:
	}
}
