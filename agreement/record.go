package agreement

import (
	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/errors"
)

// Record is one guarded transaction of an agreement. The transaction may
// run once, after all of its conditions hold.
type Record struct {
	ID          string   `json:"id"`
	Conditions  []string `json:"conditions"`
	Transaction string   `json:"transaction"`
}

// Mark is stored when a record's transaction has executed.
type Mark struct {
	Transaction string `json:"transaction"`
	ProgramHash string `json:"program_hash"`
	ExecutedAt  int64  `json:"executed_at"`
}

// ExecutedEvent is posted after a record's transaction committed.
type ExecutedEvent struct {
	ID string
	Mark
}

// RejectedEvent is posted when a record's conditions did not hold or could
// not be evaluated. Err has root ErrConditionNotMet in the first case.
type RejectedEvent struct {
	ID  string
	Err error
}

var ErrBadRecord = errors.New("bad agreement record")

func (r *Record) validate() error {
	switch {
	case r == nil:
		return errors.WithDetail(ErrBadRecord, "nil record")
	case r.ID == "":
		return errors.WithDetail(ErrBadRecord, "empty id")
	}
	return nil
}
