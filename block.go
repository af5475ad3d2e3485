package pk2

import "fmt"

// ChainIndex identifies a BlockChain by the file offset of its first
// block. It is a defined type rather than a bare uint64 so that it can
// carry its own String method and cannot be confused with an arbitrary
// file offset at the type level — the same role inodeRef plays for the
// teacher's inode references.
type ChainIndex uint64

func (c ChainIndex) String() string {
	return fmt.Sprintf("chain(0x%x)", uint64(c))
}

// Block is a fixed 2560-byte region holding exactly BlockEntryCount
// entries, anchored at a known file offset.
type Block struct {
	Offset  ChainIndex
	Entries [BlockEntryCount]Entry
}

// NewBlock returns a freshly-zeroed block anchored at offset.
func NewBlock(offset ChainIndex) *Block {
	return &Block{Offset: offset}
}

// MarshalBinary encodes the block's entries to BlockSize bytes.
func (b *Block) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, BlockSize)
	for i := range b.Entries {
		enc, err := b.Entries[i].MarshalBinary()
		if err != nil {
			return nil, err
		}
		buf = append(buf, enc...)
	}
	return buf, nil
}

// UnmarshalBinary decodes BlockSize bytes into the block's entries.
func (b *Block) UnmarshalBinary(data []byte) error {
	if len(data) != BlockSize {
		return fmt.Errorf("%w: block must be %d bytes, got %d", ErrCorrupt, BlockSize, len(data))
	}
	for i := 0; i < BlockEntryCount; i++ {
		start := i * EntrySize
		if err := b.Entries[i].UnmarshalBinary(data[start : start+EntrySize]); err != nil {
			return err
		}
	}
	return nil
}

// BlockChain is an ordered, non-empty sequence of blocks belonging to one
// directory, reachable by following next_block from an anchor offset.
type BlockChain struct {
	blocks []*Block
}

// NewBlockChain wraps blocks (which must be non-empty) in a BlockChain.
func NewBlockChain(blocks []*Block) *BlockChain {
	return &BlockChain{blocks: blocks}
}

// ChainIndex returns the chain's identity: the offset of its first block.
func (c *BlockChain) ChainIndex() ChainIndex {
	return c.blocks[0].Offset
}

// NumEntries returns the total number of entry slots across all blocks.
func (c *BlockChain) NumEntries() int {
	return len(c.blocks) * BlockEntryCount
}

// Get returns the entry at index i, or nil if i is out of range.
func (c *BlockChain) Get(i int) *Entry {
	blockIdx, slot := i/BlockEntryCount, i%BlockEntryCount
	if blockIdx < 0 || blockIdx >= len(c.blocks) {
		return nil
	}
	return &c.blocks[blockIdx].Entries[slot]
}

// GetMut is an alias of Get kept for symmetry with the original
// get/get_mut split; Go pointers make the two identical.
func (c *BlockChain) GetMut(i int) *Entry {
	return c.Get(i)
}

// Entries returns every entry in the chain in block-then-slot order.
func (c *BlockChain) Entries() []*Entry {
	out := make([]*Entry, 0, c.NumEntries())
	for _, blk := range c.blocks {
		for i := range blk.Entries {
			out = append(out, &blk.Entries[i])
		}
	}
	return out
}

// FileOffsetForEntry returns the exact file offset at which entry i lives.
func (c *BlockChain) FileOffsetForEntry(i int) (uint64, bool) {
	blockIdx, slot := i/BlockEntryCount, i%BlockEntryCount
	if blockIdx < 0 || blockIdx >= len(c.blocks) {
		return 0, false
	}
	return uint64(c.blocks[blockIdx].Offset) + uint64(slot*EntrySize), true
}

// FindChildChainOf linearly scans the chain's entries for a directory
// entry named name, returning its ChainIndex. It returns ErrNotFound if no
// entry with that name exists, or ErrExpectedDirectory if an entry with
// that name exists but is a file.
func (c *BlockChain) FindChildChainOf(name string) (ChainIndex, error) {
	for _, e := range c.Entries() {
		if e.IsEmpty() {
			continue
		}
		n, err := e.Name()
		if err != nil {
			continue
		}
		if n != name {
			continue
		}
		if !e.IsDirectory() {
			return 0, ErrExpectedDirectory
		}
		return e.ChildrenPosition, nil
	}
	return 0, ErrNotFound
}

// PushAndLink appends newBlock to the in-memory chain and points the
// previous last entry's NextBlock at it. The caller is responsible for
// persisting both the updated last entry and the new block to the
// underlying stream.
func (c *BlockChain) PushAndLink(newBlock *Block) {
	if len(c.blocks) > 0 {
		last := c.blocks[len(c.blocks)-1]
		last.Entries[BlockEntryCount-1].NextBlock = newBlock.Offset
	}
	c.blocks = append(c.blocks, newBlock)
}

// lastEntryIndex returns the index, within the chain, of the last entry of
// the chain's current last block (before any PushAndLink call).
func (c *BlockChain) lastEntryIndex() int {
	return c.NumEntries() - 1
}
