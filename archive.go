package pk2

import (
	"log"
	"sync"
)

// Archive is the facade over a PK2 index: create/open, file and
// directory resolution, and the mutation operations that allocate new
// chains as directories are created on demand.
//
// The core assumes single-writer access (see the format's concurrency
// model); mu operationalizes that as "no overlapping borrows" on the
// shared stream, the same way the teacher guards its own
// concurrency-sensitive state (inode.go's refcount and cached-inode
// map) rather than leaving every call unsynchronized.
type Archive struct {
	stream stream
	mu     sync.Mutex
	cipher *Cipher
	bm     *BlockManager
}

// CreateNew initializes a brand-new, empty archive on stream, which must
// be positioned at offset 0 and either empty or truncatable. If key is
// non-empty the archive's index is encrypted with it.
func CreateNew(s stream, key []byte, opts ...ArchiveOption) (*Archive, error) {
	cfg := newArchiveConfig(opts)

	var cipher *Cipher
	var header Header
	if len(key) == 0 {
		header = NewHeader()
	} else {
		c, err := NewCipher(key)
		if err != nil {
			return nil, err
		}
		cipher = c
		header = NewEncryptedHeader(c)
	}

	headerBytes, err := header.MarshalBinary()
	if err != nil {
		return nil, err
	}
	if _, err := s.WriteAt(headerBytes, 0); err != nil {
		return nil, err
	}

	root := NewBlock(RootBlockOffset)
	self, err := NewDirectoryEntry(currentDirIdent, RootBlockOffset, 0)
	if err != nil {
		return nil, err
	}
	now := Now()
	self.CreateTime, self.ModifyTime, self.AccessTime = now, now, now
	root.Entries[0] = self

	if err := writeBlock(cipher, s, root); err != nil {
		return nil, err
	}

	bm, err := newBlockManager(cipher, s, cfg.maxChainBlocks)
	if err != nil {
		return nil, err
	}

	log.Printf("pk2: created new archive (encrypted=%v)", cipher != nil)
	return &Archive{stream: s, cipher: cipher, bm: bm}, nil
}

// Open opens an existing archive on stream. It validates the header
// signature and, if the archive is encrypted, verifies key against the
// header's checksum field before loading the index.
func Open(s stream, key []byte, opts ...ArchiveOption) (*Archive, error) {
	cfg := newArchiveConfig(opts)

	headerBytes := make([]byte, HeaderSize)
	if _, err := s.ReadAt(headerBytes, 0); err != nil {
		return nil, err
	}
	var header Header
	if err := header.UnmarshalBinary(headerBytes); err != nil {
		return nil, err
	}
	if err := header.ValidateSignature(); err != nil {
		return nil, err
	}

	var cipher *Cipher
	if header.Encrypted {
		c, err := NewCipher(key)
		if err != nil {
			return nil, err
		}
		if err := header.Verify(c.encryptedChecksum()); err != nil {
			log.Printf("pk2: checksum mismatch opening archive")
			return nil, err
		}
		cipher = c
	}

	bm, err := newBlockManager(cipher, s, cfg.maxChainBlocks)
	if err != nil {
		return nil, err
	}

	log.Printf("pk2: opened archive (encrypted=%v)", cipher != nil)
	return &Archive{stream: s, cipher: cipher, bm: bm}, nil
}

func (a *Archive) isFile(e *Entry) error {
	if !e.IsFile() {
		return ErrExpectedFile
	}
	return nil
}

func (a *Archive) isDir(e *Entry) error {
	if !e.IsDirectory() {
		return ErrExpectedDirectory
	}
	return nil
}

func (a *Archive) resolve(path string) (*BlockChain, int, *Entry, error) {
	components, err := splitPath(path)
	if err != nil {
		return nil, 0, nil, err
	}
	return a.bm.ResolvePathToEntryAndParent(RootBlockOffset, components)
}

// OpenFile resolves path and returns a read-only handle to the file
// entry it names.
func (a *Archive) OpenFile(path string) (*FileView, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	chain, idx, entry, err := a.resolve(path)
	if err != nil {
		return nil, &PathError{Op: "open", Path: path, Err: err}
	}
	if err := a.isFile(entry); err != nil {
		return nil, &PathError{Op: "open", Path: path, Err: err}
	}
	return newFileView(a, chain.ChainIndex(), idx), nil
}

// OpenFileMut resolves path and returns a writable handle to the file
// entry it names.
func (a *Archive) OpenFileMut(path string) (*MutableFileView, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	chain, idx, entry, err := a.resolve(path)
	if err != nil {
		return nil, &PathError{Op: "open", Path: path, Err: err}
	}
	if err := a.isFile(entry); err != nil {
		return nil, &PathError{Op: "open", Path: path, Err: err}
	}
	return newMutableFileView(a, chain.ChainIndex(), idx), nil
}

// OpenDirectory resolves path and returns a handle to the directory
// entry it names. The root path ("/") yields a handle bound to
// RootBlockVirtual, a synthetic parent, since the root has no entry of
// its own in any parent chain.
func (a *Archive) OpenDirectory(path string) (*DirectoryView, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	components, err := splitPath(path)
	if err != nil {
		return nil, &PathError{Op: "open", Path: path, Err: err}
	}
	if len(components) == 0 {
		return newDirectoryView(a, RootBlockOffset, RootBlockVirtual, 0), nil
	}

	chain, idx, entry, err := a.bm.ResolvePathToEntryAndParent(RootBlockOffset, components)
	if err != nil {
		return nil, &PathError{Op: "open", Path: path, Err: err}
	}
	if err := a.isDir(entry); err != nil {
		return nil, &PathError{Op: "open", Path: path, Err: err}
	}
	return newDirectoryView(a, entry.ChildrenPosition, chain.ChainIndex(), idx), nil
}

// DeleteFile resolves path, asserts it names a file, and overwrites its
// entry on disk with all-zero bytes (Empty). The payload bytes
// themselves are left in place; no truncation occurs.
func (a *Archive) DeleteFile(path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	chain, idx, entry, err := a.resolve(path)
	if err != nil {
		return &PathError{Op: "delete", Path: path, Err: err}
	}
	if err := a.isFile(entry); err != nil {
		return &PathError{Op: "delete", Path: path, Err: err}
	}

	entry.Clear()
	if err := writeChainEntry(a.cipher, a.stream, chain, idx); err != nil {
		return err
	}
	log.Printf("pk2: deleted file %s", path)
	return nil
}

// CreateFile traverses path, allocating any directories that do not yet
// exist, and returns a writable handle to a newly created, empty file
// entry at its terminal component. It fails with ErrAlreadyExists if the
// path already fully resolves to an existing entry.
func (a *Archive) CreateFile(path string) (*MutableFileView, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	components, err := splitPath(path)
	if err != nil {
		return nil, &PathError{Op: "create", Path: path, Err: err}
	}
	fileName, _ := splitBase(components)
	if fileName == "" {
		return nil, &PathError{Op: "create", Path: path, Err: ErrInvalidPath}
	}

	chain, idx, err := a.createEntryAt(RootBlockOffset, components)
	if err != nil {
		return nil, &PathError{Op: "create", Path: path, Err: err}
	}

	c := a.bm.Get(chain)
	if c == nil {
		return nil, ErrInvalidChainIndex
	}
	next := c.Get(idx).NextBlock
	entry, err := NewFileEntry(fileName, 0, 0, next)
	if err != nil {
		return nil, err
	}
	now := Now()
	entry.CreateTime, entry.ModifyTime, entry.AccessTime = now, now, now
	*c.Get(idx) = entry
	if err := writeChainEntry(a.cipher, a.stream, c, idx); err != nil {
		return nil, err
	}

	log.Printf("pk2: created file %s", path)
	return newMutableFileView(a, chain, idx), nil
}

// createEntryAt traverses path from chain, creating any intermediate
// directory that does not yet exist, and returns the chain and a free
// entry index for the terminal component. It fails with
// ErrAlreadyExists if an entry of any kind — file or directory —
// already occupies the terminal component's name, and with
// ErrExpectedDirectory if a non-terminal component names a file.
func (a *Archive) createEntryAt(chain ChainIndex, components []string) (ChainIndex, int, error) {
	terminal, dirComponents := splitBase(components)

	current, start, err := a.bm.ValidateDirPathUntil(chain, dirComponents)
	if err != nil {
		return 0, 0, err
	}

	for i := start; i < len(dirComponents); i++ {
		comp := dirComponents[i]
		switch comp {
		case ".":
			continue
		case "..":
			c := a.bm.Get(current)
			if c == nil {
				return 0, 0, ErrInvalidChainIndex
			}
			parent, err := c.FindChildChainOf(parentDirIdent)
			if err != nil {
				return 0, 0, ErrInvalidPath
			}
			current = parent
			continue
		}

		c := a.bm.Get(current)
		if c == nil {
			return 0, 0, ErrInvalidChainIndex
		}

		// A component reached again through ".." may already exist.
		if next, err := c.FindChildChainOf(comp); err == nil {
			current = next
			continue
		} else if err != ErrNotFound {
			return 0, 0, err
		}

		entryIdx := -1
		for j, e := range c.Entries() {
			if e.IsEmpty() {
				entryIdx = j
				break
			}
		}
		if entryIdx == -1 {
			// chain is full, append a new block and link it in
			_, block, err := allocateEmptyBlock(a.cipher, a.stream)
			if err != nil {
				return 0, 0, err
			}
			entryIdx = c.NumEntries()
			c.PushAndLink(block)
			if err := writeChainEntry(a.cipher, a.stream, c, entryIdx-1); err != nil {
				return 0, 0, err
			}
		}

		childChain, err := allocateNewBlockChain(a.cipher, a.stream, c, comp, entryIdx)
		if err != nil {
			return 0, 0, err
		}
		current = childChain.ChainIndex()
		a.bm.Insert(current, childChain)
	}

	// current now names the parent directory for the terminal component.
	// Any existing entry under that name, file or directory, blocks
	// creation — unlike the directory walk above, FindChildChainOf's
	// ErrExpectedDirectory cannot be used as a "missing" signal here.
	c := a.bm.Get(current)
	if c == nil {
		return 0, 0, ErrInvalidChainIndex
	}
	for _, e := range c.Entries() {
		if e.IsEmpty() {
			continue
		}
		name, err := e.Name()
		if err != nil {
			continue
		}
		if name == terminal {
			return 0, 0, ErrAlreadyExists
		}
	}

	entryIdx := -1
	for j, e := range c.Entries() {
		if e.IsEmpty() {
			entryIdx = j
			break
		}
	}
	if entryIdx == -1 {
		_, block, err := allocateEmptyBlock(a.cipher, a.stream)
		if err != nil {
			return 0, 0, err
		}
		entryIdx = c.NumEntries()
		c.PushAndLink(block)
		if err := writeChainEntry(a.cipher, a.stream, c, entryIdx-1); err != nil {
			return 0, 0, err
		}
	}

	return c.ChainIndex(), entryIdx, nil
}

// ForEachFile invokes cb for every file reachable from base, depth-first:
// a directory's own files are visited before any of its subdirectories.
// cb receives each file's path relative to base.
func (a *Archive) ForEachFile(base string, cb func(relPath string, f *FileView) error) error {
	dir, err := a.OpenDirectory(base)
	if err != nil {
		return err
	}
	return a.forEachFile(dir, "", cb)
}

func (a *Archive) forEachFile(dir *DirectoryView, prefix string, cb func(string, *FileView) error) error {
	entries, err := dir.Entries()
	if err != nil {
		return err
	}

	var subdirs []*DirectoryView
	for _, e := range entries {
		if sub, ok := e.Directory(); ok {
			subdirs = append(subdirs, sub)
			continue
		}
		f, _ := e.File()
		name, err := f.Name()
		if err != nil {
			return err
		}
		if err := cb(joinRelPath(prefix, name), f); err != nil {
			return err
		}
	}

	for _, sub := range subdirs {
		name, err := sub.Name()
		if err != nil {
			return err
		}
		if err := a.forEachFile(sub, joinRelPath(prefix, name), cb); err != nil {
			return err
		}
	}
	return nil
}

func joinRelPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
