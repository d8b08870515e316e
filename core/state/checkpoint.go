package state

import "github.com/ethereum/go-ethereum/common"

// entrySnapshot is the recorded pre-image of one address's entry, captured
// the first time that address is mutated after a checkpoint is opened
// (spec §4.D "Snapshot-on-first-write rule").
type entrySnapshot struct {
	existed bool // false => the address had no entry at snapshot time
	object  *stateObject
	dirty   bool
	tomb    bool
}

// checkpointFrame is one entry of the checkpoint stack: the oldest recorded
// pre-image per address touched since it was opened, plus the refund/log
// markers needed to rewind those side channels on revert.
type checkpointFrame struct {
	snapshots      map[common.Address]*entrySnapshot
	selfDestructed map[common.Address]bool // addresses newly added to the self-destruct set in this frame
	refundAt       uint64
	logsLen        int
}

func newCheckpointFrame(refund uint64, logsLen int) checkpointFrame {
	return checkpointFrame{
		snapshots:      make(map[common.Address]*entrySnapshot),
		selfDestructed: make(map[common.Address]bool),
		refundAt:       refund,
		logsLen:        logsLen,
	}
}

// Checkpoint pushes a new snapshot frame and returns its stack index.
func (s *StateDB) Checkpoint() int {
	s.checkpoints = append(s.checkpoints, newCheckpointFrame(s.refund, len(s.logs)))
	return len(s.checkpoints) - 1
}

// snapshotBeforeMutation records addr's current entry into the top
// checkpoint frame, if one is open and addr has not already been recorded
// in it. Must be called before any mutation that sets an entry's dirty bit.
func (s *StateDB) snapshotBeforeMutation(addr common.Address) {
	if len(s.checkpoints) == 0 {
		return
	}
	top := &s.checkpoints[len(s.checkpoints)-1]
	if _, ok := top.snapshots[addr]; ok {
		return
	}
	entry, exists := s.entries[addr]
	if !exists {
		top.snapshots[addr] = &entrySnapshot{existed: false}
		return
	}
	top.snapshots[addr] = &entrySnapshot{
		existed: true,
		object:  entry.object.deepCopy(),
		dirty:   entry.dirty,
		tomb:    entry.tombstone,
	}
}

// noteSelfDestruct records that addr was freshly added to the self-destruct
// set within the current frame, so RevertCheckpoint can undo it even though
// the entry-level snapshot alone cannot distinguish "was already tombstoned"
// from "became tombstoned in this frame".
func (s *StateDB) noteSelfDestruct(addr common.Address) {
	if len(s.checkpoints) == 0 {
		return
	}
	top := &s.checkpoints[len(s.checkpoints)-1]
	if !top.selfDestructed[addr] {
		top.selfDestructed[addr] = true
	}
}

// DiscardCheckpoint merges the top frame into the one below it, retaining
// the oldest prior value per address: an address already recorded in the
// lower frame keeps its value; otherwise the popped frame's record is
// adopted. If there is no frame below, the popped frame's snapshots simply
// become permanent (nothing left to roll back to).
func (s *StateDB) DiscardCheckpoint() {
	n := len(s.checkpoints)
	top := s.checkpoints[n-1]
	s.checkpoints = s.checkpoints[:n-1]
	if n == 1 {
		return
	}
	below := &s.checkpoints[n-2]
	if len(below.snapshots) == 0 {
		below.snapshots = top.snapshots
	} else {
		for addr, snap := range top.snapshots {
			if _, ok := below.snapshots[addr]; !ok {
				below.snapshots[addr] = snap
			}
		}
	}
	for addr := range top.selfDestructed {
		if !below.selfDestructed[addr] {
			below.selfDestructed[addr] = true
		}
	}
}

// RevertCheckpoint pops the top frame and restores every address it
// recorded to its pre-frame value, then rewinds the refund counter, logs,
// and self-destruct set using the markers captured at checkpoint time.
func (s *StateDB) RevertCheckpoint() {
	n := len(s.checkpoints)
	top := s.checkpoints[n-1]
	s.checkpoints = s.checkpoints[:n-1]

	for addr, snap := range top.snapshots {
		if snap.existed {
			s.entries[addr] = &stateEntry{object: snap.object, dirty: snap.dirty, tombstone: snap.tomb}
		} else if cur, ok := s.entries[addr]; ok && cur.dirty {
			delete(s.entries, addr)
		}
	}
	for addr := range top.selfDestructed {
		delete(s.selfDestructSet, addr)
	}
	s.refund = top.refundAt
	s.logs = s.logs[:top.logsLen]
}
