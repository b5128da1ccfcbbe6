package loader

import (
	"context"
	"io"
	"io/fs"
	"sync/atomic"
)

// countingFS reports the bytes read from every file it opens.
type countingFS struct {
	fsys   fs.FS
	report func(Progress)

	loaded atomic.Int64
	total  atomic.Int64
}

func newCountingFS(fsys fs.FS, report func(Progress)) *countingFS {
	return &countingFS{fsys: fsys, report: report}
}

func (c *countingFS) Open(name string) (fs.File, error) {
	f, err := c.fsys.Open(name)
	if err != nil {
		return nil, err
	}
	if st, err := f.Stat(); err == nil {
		c.total.Add(st.Size())
		c.emit()
	}
	return &countingFile{File: f, fs: c}, nil
}

func (c *countingFS) progress() Progress {
	return Progress{Loaded: c.loaded.Load(), Total: c.total.Load()}
}

func (c *countingFS) emit() {
	if c.report != nil {
		c.report(c.progress())
	}
}

type countingFile struct {
	fs.File
	fs *countingFS
}

func (f *countingFile) Read(p []byte) (int, error) {
	n, err := f.File.Read(p)
	if n > 0 {
		f.fs.loaded.Add(int64(n))
		f.fs.emit()
	}
	return n, err
}

// contextReader stops reading once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
