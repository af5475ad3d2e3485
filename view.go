package pk2

import "io"

// FileView is a read-only handle to a file entry: position and size
// within the archive, plus the attributes every entry carries. It reads
// payload bytes through the archive's shared stream, the same role
// io.SectionReader plays for the teacher's *File wrapped around an
// Inode.
type FileView struct {
	a     *Archive
	chain ChainIndex
	idx   int
}

func newFileView(a *Archive, chain ChainIndex, idx int) *FileView {
	return &FileView{a: a, chain: chain, idx: idx}
}

func (f *FileView) entry() *Entry {
	c := f.a.bm.Get(f.chain)
	if c == nil {
		return nil
	}
	return c.Get(f.idx)
}

// Name returns the entry's decoded name.
func (f *FileView) Name() (string, error) {
	e := f.entry()
	if e == nil {
		return "", ErrInvalidChainIndex
	}
	return e.Name()
}

// Size returns the payload size in bytes, as recorded in the entry.
func (f *FileView) Size() uint32 {
	e := f.entry()
	if e == nil {
		return 0
	}
	return e.Size
}

// Position returns the file offset of the payload's first byte.
func (f *FileView) Position() uint64 {
	e := f.entry()
	if e == nil {
		return 0
	}
	return e.Position
}

// Times returns the entry's access, create, and modify timestamps.
func (f *FileView) Times() (access, create, modify FileTime) {
	e := f.entry()
	if e == nil {
		return FileTime{}, FileTime{}, FileTime{}
	}
	return e.AccessTime, e.CreateTime, e.ModifyTime
}

// ReadAt reads len(p) bytes of payload starting at off bytes into the
// file, through the archive's shared stream. It implements io.ReaderAt.
func (f *FileView) ReadAt(p []byte, off int64) (int, error) {
	f.a.mu.Lock()
	defer f.a.mu.Unlock()

	size := int64(f.Size())
	if off >= size {
		return 0, io.EOF
	}
	short := false
	if off+int64(len(p)) > size {
		p = p[:size-off]
		short = true
	}
	n, err := f.a.stream.ReadAt(p, int64(f.Position())+off)
	if err == nil && short {
		err = io.EOF
	}
	return n, err
}

// MutableFileView is a writable handle to a file entry. Payload writes
// go directly through the shared stream; Write always appends at the
// current end of the archive and then updates and persists the entry's
// position/size, following the same "data before pointer" ordering the
// rest of the core uses for crash safety.
type MutableFileView struct {
	*FileView
}

func newMutableFileView(a *Archive, chain ChainIndex, idx int) *MutableFileView {
	return &MutableFileView{FileView: newFileView(a, chain, idx)}
}

// Write appends data to the end of the archive and repoints the entry at
// it, replacing any previous payload. It returns the new payload
// position.
func (f *MutableFileView) Write(data []byte) (uint64, error) {
	f.a.mu.Lock()
	defer f.a.mu.Unlock()

	pos, err := streamLen(f.a.stream)
	if err != nil {
		return 0, err
	}
	if len(data) > 0 {
		if _, err := f.a.stream.WriteAt(data, pos); err != nil {
			return 0, err
		}
	}

	chain := f.a.bm.Get(f.chain)
	if chain == nil {
		return 0, ErrInvalidChainIndex
	}
	e := chain.Get(f.idx)
	if e == nil {
		return 0, ErrInvalidChainIndex
	}
	e.Position = uint64(pos)
	e.Size = uint32(len(data))
	e.ModifyTime = Now()
	if err := writeChainEntry(f.a.cipher, f.a.stream, chain, f.idx); err != nil {
		return 0, err
	}
	return uint64(pos), nil
}

// DirectoryView is a handle to a directory entry. The root directory is
// represented with a synthetic parent of RootBlockVirtual, per
// OpenDirectory("/")'s contract.
type DirectoryView struct {
	a           *Archive
	self        ChainIndex
	parent      ChainIndex
	idxInParent int
}

func newDirectoryView(a *Archive, self, parent ChainIndex, idxInParent int) *DirectoryView {
	return &DirectoryView{a: a, self: self, parent: parent, idxInParent: idxInParent}
}

// Name returns the directory's name, or "" for the archive root.
func (d *DirectoryView) Name() (string, error) {
	if d.parent == RootBlockVirtual {
		return "", nil
	}
	chain := d.a.bm.Get(d.parent)
	if chain == nil {
		return "", ErrInvalidChainIndex
	}
	e := chain.Get(d.idxInParent)
	if e == nil {
		return "", ErrInvalidChainIndex
	}
	return e.Name()
}

// DirEntry is a directory entry view: either a File or a Directory, the
// Go analogue of the original fs::DirEntry enum.
type DirEntry struct {
	dir  *DirectoryView
	file *FileView
}

// IsDir reports whether this entry is a directory.
func (e DirEntry) IsDir() bool {
	return e.dir != nil
}

// Directory returns the entry as a DirectoryView, if it is one.
func (e DirEntry) Directory() (*DirectoryView, bool) {
	return e.dir, e.dir != nil
}

// File returns the entry as a FileView, if it is one.
func (e DirEntry) File() (*FileView, bool) {
	return e.file, e.file != nil
}

// Entries lists the directory's children, skipping "." and "..".
func (d *DirectoryView) Entries() ([]DirEntry, error) {
	chain := d.a.bm.Get(d.self)
	if chain == nil {
		return nil, ErrInvalidChainIndex
	}

	var out []DirEntry
	for i, e := range chain.Entries() {
		if e.IsEmpty() {
			continue
		}
		name, err := e.Name()
		if err == nil && (name == currentDirIdent || name == parentDirIdent) {
			continue
		}
		if e.IsDirectory() {
			out = append(out, DirEntry{dir: newDirectoryView(d.a, e.ChildrenPosition, d.self, i)})
		} else {
			out = append(out, DirEntry{file: newFileView(d.a, d.self, i)})
		}
	}
	return out, nil
}
