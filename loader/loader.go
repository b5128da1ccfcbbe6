// Package loader imports GLTF models in the background and hands them to the
// render goroutine as scene subtrees.
//
// A Request moves from Pending to exactly one of Succeeded or Failed. Progress
// and the outcome are held by the background goroutine and only delivered to
// callbacks from Poll or Wait, so callbacks run on the caller's goroutine.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/qmuntal/gltf"

	"github.com/toxichemicals/GO/showroom/scene"
)

var (
	// ErrNotFound is returned when the model file does not exist.
	ErrNotFound = errors.New("loader: model not found")
	// ErrNoScene is returned when the document has no scene to instantiate.
	ErrNoScene = errors.New("loader: document has no scene")
	// ErrMalformed is returned for references the document cannot resolve.
	ErrMalformed = errors.New("loader: malformed document")
)

// State of a Request.
type State int

const (
	Pending State = iota
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Progress counts bytes read so far. Total grows as external buffers and
// images are opened.
type Progress struct {
	Loaded int64
	Total  int64
}

// Percent returns Loaded as a share of Total, 0 when Total is unknown.
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Loaded) / float64(p.Total) * 100
}

// Model is a loaded document instantiated as its own scene graph.
type Model struct {
	Path  string
	Graph *scene.Graph
}

// Root returns the node to attach into another graph.
func (m *Model) Root() scene.NodeID { return m.Graph.Root() }

// Callbacks receive the events of one Request. Nil callbacks are skipped.
type Callbacks struct {
	OnSuccess  func(*Model)
	OnProgress func(Progress)
	OnError    func(error)
}

// Loader resolves model names against a base directory.
type Loader struct {
	dir    string
	logger *slog.Logger
}

// New returns a loader reading relative to the working directory.
func New(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// SetPath sets the directory names passed to Load are resolved against.
func (l *Loader) SetPath(dir string) *Loader {
	l.dir = dir
	return l
}

// Load starts reading name in the background. Cancelling ctx aborts the read
// and fails the request.
func (l *Loader) Load(ctx context.Context, name string, cb Callbacks) *Request {
	path := filepath.Join(l.dir, name)
	r := &Request{
		Path:   path,
		cb:     cb,
		notify: make(chan struct{}, 1),
		done:   make(chan outcome, 1),
	}
	go func() {
		m, err := l.Read(ctx, path, r.report)
		r.done <- outcome{model: m, err: err}
	}()
	return r
}

// Read loads path synchronously. report, if not nil, is called as bytes are
// read.
func (l *Loader) Read(ctx context.Context, path string, report func(Progress)) (*Model, error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	fsys := newCountingFS(os.DirFS(dir), report)

	f, err := fsys.Open(base)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var doc gltf.Document
	err = gltf.NewDecoderFS(&contextReader{ctx: ctx, r: f}, fsys).Decode(&doc)
	if cerr := ctx.Err(); cerr != nil {
		return nil, fmt.Errorf("load %s: %w", path, cerr)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	b := newBuilder(&doc, fsys, l.logger.With("model", path))
	g, err := b.build(base)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", path, err)
	}
	l.logger.Debug("model decoded", "path", path, "nodes", g.Len(), "bytes", fsys.progress().Loaded)
	return &Model{Path: path, Graph: g}, nil
}

type outcome struct {
	model *Model
	err   error
}

// Request is one in-flight or finished load.
type Request struct {
	Path string

	cb     Callbacks
	notify chan struct{}
	done   chan outcome

	// pending holds the newest progress not yet delivered.
	mu      sync.Mutex
	pending *Progress

	state State
	last  Progress
	err   error
	model *Model
}

// report runs on the background goroutine. Reports that arrive between two
// deliveries collapse into the newest one, so the read never stalls and the
// final count always reaches the callbacks.
func (r *Request) report(p Progress) {
	r.mu.Lock()
	r.pending = &p
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// State returns the state as of the last Poll or Wait.
func (r *Request) State() State { return r.state }

// Err returns the failure cause once the request has failed.
func (r *Request) Err() error { return r.err }

// Model returns the loaded model once the request has succeeded.
func (r *Request) Model() *Model { return r.model }

// Progress returns the last progress delivered.
func (r *Request) Progress() Progress { return r.last }

// Poll delivers buffered events to the callbacks without blocking and
// returns the resulting state.
func (r *Request) Poll() State {
	if r.state != Pending {
		return r.state
	}
	select {
	case out := <-r.done:
		r.drain()
		r.finish(out)
	default:
		r.drain()
	}
	return r.state
}

// Wait delivers events until the request finishes or ctx is done.
func (r *Request) Wait(ctx context.Context) (State, error) {
	for r.state == Pending {
		select {
		case <-r.notify:
			r.drain()
		case out := <-r.done:
			r.drain()
			r.finish(out)
		case <-ctx.Done():
			return r.state, ctx.Err()
		}
	}
	return r.state, nil
}

func (r *Request) drain() {
	r.mu.Lock()
	p := r.pending
	r.pending = nil
	r.mu.Unlock()
	if p != nil {
		r.deliver(*p)
	}
}

func (r *Request) deliver(p Progress) {
	r.last = p
	if r.cb.OnProgress != nil {
		r.cb.OnProgress(p)
	}
}

func (r *Request) finish(out outcome) {
	if out.err != nil {
		r.state, r.err = Failed, out.err
		if r.cb.OnError != nil {
			r.cb.OnError(out.err)
		}
		return
	}
	r.state, r.model = Succeeded, out.model
	if r.cb.OnSuccess != nil {
		r.cb.OnSuccess(out.model)
	}
}
