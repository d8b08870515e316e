package state

import "errors"

// Errors returned by StateObject operations (component C). All are wrapped
// with the failing address/key by the caller where useful.
var (
	// ErrTrie names a failure of the backing authenticated KV store. No
	// function in this package returns it: trie.SimpleTrie operations
	// cannot fail.
	ErrTrie = errors.New("state: trie error")
	// ErrCodeMissing names code that is missing for a known, non-empty code
	// hash. No function in this package returns it: stateObject.Code returns
	// nil code when the blob is absent from the code store.
	ErrCodeMissing = errors.New("state: code missing for known hash")
	// ErrBalanceUnderflow is returned by SubBalance when amount exceeds the
	// account's current balance.
	ErrBalanceUnderflow = errors.New("state: balance underflow")
)

// Errors returned by the World State (component D).
var (
	// ErrInsufficientBalance is returned by Transfer when the sender's
	// balance is less than the value being moved.
	ErrInsufficientBalance = errors.New("state: insufficient balance for transfer")
	// ErrCommitWithOpenCheckpoints is returned by Commit when the checkpoint
	// stack is non-empty; the driver must resolve every frame first.
	ErrCommitWithOpenCheckpoints = errors.New("state: commit attempted with open checkpoints")
)
