// Package dsltest holds agreement conditions shared by tests.
package dsltest

const (
	// Satisfied is true against an empty context.
	Satisfied = `(10 <= 20) and (5 == 5)`

	// Unsatisfied is false against an empty context.
	Unsatisfied = `(10 <= 5) or (1 == 2)`

	// Negation inverts a comparison.
	Negation = `! (3 > 4)`

	// Exclusive is true when exactly one side holds.
	Exclusive = `(1 == 1) xor (2 == 3)`
)

// Conditions that read from the application. They expect the variables
// amount (uint256), owner (address) and memo (string).
const (
	AmountAboveMinimum = `amount >= 1000`

	OwnerMatches = `owner == 0x00000000000000000000000000000000000000aa`

	MemoIs = `memo == "invoice-42"`

	Lending = `
(amount > 0) and
(amount <= 5000)
and ! (owner == 0x0000000000000000000000000000000000000000)
`
)

// Conditions over the named array "payments" (uint256 elements).
const (
	HasPayments = `payments.length > 0`

	FirstPaymentCovers = `payments[0] >= amount`

	SecondPaymentLate = `payments.length >= 2 and payments[1] > 100`
)

// Malformed conditions.
const (
	UnmatchedClose = `a )`

	UnclosedOpen = `( a == b`

	BadToken = `amount >= 1.5`
)
