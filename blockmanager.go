package pk2

import (
	"fmt"
	"io"
	"log"
)

// defaultMaxChainBlocks bounds how many blocks the chain reader will
// follow before giving up with ErrMalformedChain. A maliciously crafted
// archive could otherwise cause an infinite loop; this cap combined with
// a seen-offsets set makes the bound exact rather than heuristic.
const defaultMaxChainBlocks = 1 << 20

// BlockManager caches every BlockChain in the archive, keyed by
// ChainIndex (the file offset of each chain's first block). Since
// ChainIndex is already a file offset drawn from the archive itself,
// collisions within one archive are structurally impossible, so the
// built-in Go map already gives identity-hash behavior for this key —
// there is no separate hasher to plug in, unlike a language whose map
// requires one.
type BlockManager struct {
	chains         map[ChainIndex]*BlockChain
	maxChainBlocks int
}

// newBlockManager eagerly traverses the directory graph starting at
// RootBlockOffset, loading every reachable chain into memory.
func newBlockManager(c *Cipher, s io.ReaderAt, maxChainBlocks int) (*BlockManager, error) {
	if maxChainBlocks <= 0 {
		maxChainBlocks = defaultMaxChainBlocks
	}
	bm := &BlockManager{
		chains:         make(map[ChainIndex]*BlockChain, 32),
		maxChainBlocks: maxChainBlocks,
	}

	stack := []ChainIndex{RootBlockOffset}
	for len(stack) > 0 {
		offset := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, ok := bm.chains[offset]; ok {
			return nil, fmt.Errorf("%w: duplicate chain at %s", ErrCorrupt, offset)
		}

		chain, err := readChainFromFileAt(c, s, offset, bm.maxChainBlocks)
		if err != nil {
			return nil, err
		}

		for _, e := range chain.Entries() {
			if e.isNormalLink() {
				stack = append(stack, e.ChildrenPosition)
			}
		}

		bm.chains[offset] = chain
		log.Printf("pk2: loaded chain %s (%d blocks)", offset, chain.NumEntries()/BlockEntryCount)
	}

	return bm, nil
}

// readChainFromFileAt reads a BlockChain starting at offset, following
// each block's last entry's NextBlock until it hits zero. It fails with
// ErrMalformedChain if it revisits an offset or exceeds maxBlocks.
func readChainFromFileAt(c *Cipher, s io.ReaderAt, offset ChainIndex, maxBlocks int) (*BlockChain, error) {
	seen := make(map[ChainIndex]struct{})
	var blocks []*Block

	for {
		if _, dup := seen[offset]; dup {
			return nil, fmt.Errorf("%w: loop detected at %s", ErrMalformedChain, offset)
		}
		seen[offset] = struct{}{}
		if len(blocks) >= maxBlocks {
			return nil, fmt.Errorf("%w: chain exceeds %d blocks", ErrMalformedChain, maxBlocks)
		}

		block, err := readBlockAt(c, s, offset)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)

		next := block.Entries[BlockEntryCount-1].NextBlock
		if next == 0 {
			return NewBlockChain(blocks), nil
		}
		offset = next
	}
}

// Get returns the chain for idx, or nil if unknown.
func (bm *BlockManager) Get(idx ChainIndex) *BlockChain {
	return bm.chains[idx]
}

// GetMut is an alias of Get kept for symmetry with the raw reference
// implementation's get/get_mut split.
func (bm *BlockManager) GetMut(idx ChainIndex) *BlockChain {
	return bm.chains[idx]
}

// Insert registers a newly allocated chain under idx.
func (bm *BlockManager) Insert(idx ChainIndex, chain *BlockChain) {
	bm.chains[idx] = chain
}

// ResolvePathToChain folds path's components starting from start,
// resolving each Normal component via FindChildChainOf, treating "." as
// a no-op and ".." as a move to the chain's ".." entry. A ".." that would
// escape the archive fails with ErrInvalidPath.
func (bm *BlockManager) ResolvePathToChain(start ChainIndex, components []string) (ChainIndex, error) {
	current := start
	for _, comp := range components {
		switch comp {
		case ".":
			// no-op
		case "..":
			chain := bm.chains[current]
			if chain == nil {
				return 0, ErrInvalidChainIndex
			}
			parent, err := chain.FindChildChainOf(parentDirIdent)
			if err != nil {
				return 0, ErrInvalidPath
			}
			current = parent
		default:
			chain := bm.chains[current]
			if chain == nil {
				return 0, ErrInvalidChainIndex
			}
			child, err := chain.FindChildChainOf(comp)
			if err != nil {
				return 0, err
			}
			current = child
		}
	}
	return current, nil
}

// ResolvePathToEntryAndParent splits off path's last component, resolves
// the prefix to a chain, and returns that chain, the matching entry's
// index, and the entry itself. It fails with ErrInvalidPath if path has
// no components, and ErrNotFound if the final component is absent.
func (bm *BlockManager) ResolvePathToEntryAndParent(start ChainIndex, components []string) (*BlockChain, int, *Entry, error) {
	if len(components) == 0 {
		return nil, 0, nil, ErrInvalidPath
	}
	last := components[len(components)-1]
	parentIdx, err := bm.ResolvePathToChain(start, components[:len(components)-1])
	if err != nil {
		return nil, 0, nil, err
	}
	chain := bm.chains[parentIdx]
	if chain == nil {
		return nil, 0, nil, ErrInvalidChainIndex
	}
	for i, e := range chain.Entries() {
		if e.IsEmpty() {
			continue
		}
		n, err := e.Name()
		if err != nil {
			continue
		}
		if n == last {
			return chain, i, e, nil
		}
	}
	return nil, 0, nil, ErrNotFound
}

// ValidateDirPathUntil walks components from start until one is missing,
// returning the chain reached and the index of the first unresolved
// component (len(components) if all resolved). A missing ".." always
// escalates to ErrInvalidPath.
func (bm *BlockManager) ValidateDirPathUntil(start ChainIndex, components []string) (ChainIndex, int, error) {
	chain := start
	for i, comp := range components {
		switch comp {
		case ".":
			continue
		case "..":
			c := bm.chains[chain]
			if c == nil {
				return 0, 0, ErrInvalidChainIndex
			}
			parent, err := c.FindChildChainOf(parentDirIdent)
			if err != nil {
				return 0, 0, ErrInvalidPath
			}
			chain = parent
		default:
			c := bm.chains[chain]
			if c == nil {
				return 0, 0, ErrInvalidChainIndex
			}
			next, err := c.FindChildChainOf(comp)
			if err != nil {
				if err == ErrNotFound {
					return chain, i, nil
				}
				return 0, 0, err
			}
			chain = next
		}
	}
	return chain, len(components), nil
}
