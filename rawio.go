package pk2

import (
	"io"
	"log"
)

// stream is the minimal storage abstraction the raw I/O layer needs: a
// seekable, positioned-read/write byte stream. The teacher takes
// io.ReaderAt as its sole storage abstraction (Superblock.fs); this
// module extends that to the read/write/seek surface a mutable index
// needs.
type stream interface {
	io.ReaderAt
	io.WriterAt
	io.Seeker
}

// readBlockAt seeks to offset, reads BlockSize bytes, decrypts them with c
// (if non-nil), and decodes them into a Block.
func readBlockAt(c *Cipher, s io.ReaderAt, offset ChainIndex) (*Block, error) {
	buf := make([]byte, BlockSize)
	if _, err := s.ReadAt(buf, int64(offset)); err != nil {
		return nil, err
	}
	if c != nil {
		c.Decrypt(buf)
	}
	blk := NewBlock(offset)
	if err := blk.UnmarshalBinary(buf); err != nil {
		return nil, err
	}
	return blk, nil
}

// writeBlock encodes block, encrypts it with c (if non-nil), and writes it
// at block.Offset.
func writeBlock(c *Cipher, s io.WriterAt, block *Block) error {
	buf, err := block.MarshalBinary()
	if err != nil {
		return err
	}
	if c != nil {
		c.Encrypt(buf)
	}
	_, err = s.WriteAt(buf, int64(block.Offset))
	return err
}

// writeEntryAt encodes entry, encrypts it as a stand-alone EntrySize
// region (legal because the cipher runs in ECB mode and entries are
// 8-byte aligned within a block), and writes it at entryFileOffset.
func writeEntryAt(c *Cipher, s io.WriterAt, entryFileOffset uint64, entry *Entry) error {
	buf, err := entry.MarshalBinary()
	if err != nil {
		return err
	}
	if c != nil {
		c.Encrypt(buf)
	}
	_, err = s.WriteAt(buf, int64(entryFileOffset))
	return err
}

// writeChainEntry computes the file offset of entry index in chain and
// writes it there.
func writeChainEntry(c *Cipher, s io.WriterAt, chain *BlockChain, entryIndex int) error {
	off, ok := chain.FileOffsetForEntry(entryIndex)
	if !ok {
		return ErrInvalidChainIndex
	}
	return writeEntryAt(c, s, off, chain.Get(entryIndex))
}

// streamLen returns the current length of s by seeking to its end.
func streamLen(s io.Seeker) (int64, error) {
	return s.Seek(0, io.SeekEnd)
}

// allocateEmptyBlock seeks to end-of-file, writes a freshly-zeroed block
// there, and returns its offset together with the in-memory block.
func allocateEmptyBlock(c *Cipher, s stream) (ChainIndex, *Block, error) {
	end, err := streamLen(s)
	if err != nil {
		return 0, nil, err
	}
	offset := ChainIndex(end)
	block := NewBlock(offset)
	if err := writeBlock(c, s, block); err != nil {
		return 0, nil, err
	}
	log.Printf("pk2: allocated empty block at %s", offset)
	return offset, block, nil
}

// allocateNewBlockChain allocates a new block at end-of-file, seeds it
// with "." and ".." directory entries, persists it, writes the directory
// entry for it into parentChain at entryIdxInParent, and returns the new
// BlockChain.
func allocateNewBlockChain(c *Cipher, s stream, parentChain *BlockChain, dirName string, entryIdxInParent int) (*BlockChain, error) {
	offset, block, err := allocateEmptyBlock(c, s)
	if err != nil {
		return nil, err
	}

	now := Now()
	self, err := NewDirectoryEntry(currentDirIdent, offset, 0)
	if err != nil {
		return nil, err
	}
	self.CreateTime, self.ModifyTime, self.AccessTime = now, now, now
	block.Entries[0] = self

	parent, err := NewDirectoryEntry(parentDirIdent, parentChain.ChainIndex(), 0)
	if err != nil {
		return nil, err
	}
	parent.CreateTime, parent.ModifyTime, parent.AccessTime = now, now, now
	block.Entries[1] = parent

	if err := writeBlock(c, s, block); err != nil {
		return nil, err
	}

	preservedNext := parentChain.Get(entryIdxInParent).NextBlock
	dirEntry, err := NewDirectoryEntry(dirName, offset, preservedNext)
	if err != nil {
		return nil, err
	}
	dirEntry.CreateTime, dirEntry.ModifyTime, dirEntry.AccessTime = now, now, now
	*parentChain.Get(entryIdxInParent) = dirEntry
	if err := writeChainEntry(c, s, parentChain, entryIdxInParent); err != nil {
		return nil, err
	}

	log.Printf("pk2: linked new directory chain %s (%q) into parent %s", offset, dirName, parentChain.ChainIndex())
	return NewBlockChain([]*Block{block}), nil
}
