package pk2_test

import (
	"errors"
	"testing"

	"github.com/KarpelesLab/pk2"
)

// writeHeader writes an unencrypted header to s at offset 0.
func writeHeader(t *testing.T, s *memStream) {
	t.Helper()
	h := pk2.NewHeader()
	buf, err := h.MarshalBinary()
	if err != nil {
		t.Fatalf("Header.MarshalBinary: %v", err)
	}
	if _, err := s.WriteAt(buf, 0); err != nil {
		t.Fatalf("WriteAt header: %v", err)
	}
}

// writeBlockAt encodes block and writes it at its own offset.
func writeBlockAt(t *testing.T, s *memStream, block *pk2.Block) {
	t.Helper()
	buf, err := block.MarshalBinary()
	if err != nil {
		t.Fatalf("Block.MarshalBinary: %v", err)
	}
	if _, err := s.WriteAt(buf, int64(block.Offset)); err != nil {
		t.Fatalf("WriteAt block: %v", err)
	}
}

// TestOpenDetectsChainCycle crafts a root block whose last entry's
// NextBlock points back at the root block itself, and checks that
// opening the archive fails with ErrMalformedChain instead of looping
// forever.
func TestOpenDetectsChainCycle(t *testing.T) {
	s := &memStream{}
	writeHeader(t, s)

	root := pk2.NewBlock(pk2.RootBlockOffset)
	self, err := pk2.NewDirectoryEntry(".", pk2.RootBlockOffset, 0)
	if err != nil {
		t.Fatalf("NewDirectoryEntry: %v", err)
	}
	root.Entries[0] = self

	// The last slot of the block doubles as the chain's link to its next
	// block; point it back at the root block to form a cycle.
	linkBack, err := pk2.NewDirectoryEntry("x", 0, pk2.RootBlockOffset)
	if err != nil {
		t.Fatalf("NewDirectoryEntry: %v", err)
	}
	root.Entries[pk2.BlockEntryCount-1] = linkBack

	writeBlockAt(t, s, root)

	if _, err := pk2.Open(s, nil); !errors.Is(err, pk2.ErrMalformedChain) {
		t.Fatalf("Open() error = %v, want ErrMalformedChain", err)
	}
}

// TestOpenDetectsDuplicateChainOffset crafts two sibling directory
// entries that both claim the same child chain offset, and checks that
// opening the archive fails with ErrCorrupt rather than silently
// aliasing the two directories onto one in-memory chain.
func TestOpenDetectsDuplicateChainOffset(t *testing.T) {
	s := &memStream{}
	writeHeader(t, s)

	childOffset := pk2.ChainIndex(uint64(pk2.RootBlockOffset) + pk2.BlockSize)

	root := pk2.NewBlock(pk2.RootBlockOffset)
	self, err := pk2.NewDirectoryEntry(".", pk2.RootBlockOffset, 0)
	if err != nil {
		t.Fatalf("NewDirectoryEntry: %v", err)
	}
	dirA, err := pk2.NewDirectoryEntry("dirA", childOffset, 0)
	if err != nil {
		t.Fatalf("NewDirectoryEntry: %v", err)
	}
	dirB, err := pk2.NewDirectoryEntry("dirB", childOffset, 0)
	if err != nil {
		t.Fatalf("NewDirectoryEntry: %v", err)
	}
	root.Entries[0] = self
	root.Entries[1] = dirA
	root.Entries[2] = dirB
	writeBlockAt(t, s, root)

	child := pk2.NewBlock(childOffset)
	childSelf, err := pk2.NewDirectoryEntry(".", childOffset, 0)
	if err != nil {
		t.Fatalf("NewDirectoryEntry: %v", err)
	}
	childParent, err := pk2.NewDirectoryEntry("..", pk2.RootBlockOffset, 0)
	if err != nil {
		t.Fatalf("NewDirectoryEntry: %v", err)
	}
	child.Entries[0] = childSelf
	child.Entries[1] = childParent
	writeBlockAt(t, s, child)

	if _, err := pk2.Open(s, nil); !errors.Is(err, pk2.ErrCorrupt) {
		t.Fatalf("Open() error = %v, want ErrCorrupt", err)
	}
}
