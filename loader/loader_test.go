package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toxichemicals/GO/showroom/scene"
)

func findNode(t *testing.T, g *scene.Graph, name string) (scene.NodeID, *scene.Node) {
	t.Helper()
	found := scene.Nil
	g.Traverse(g.Root(), func(id scene.NodeID, n *scene.Node) bool {
		if n.Name == name {
			found = id
		}
		return found == scene.Nil
	})
	require.NotEqual(t, scene.Nil, found, "node %q", name)
	return found, g.Node(found)
}

func TestReadEmbedded(t *testing.T) {
	m, err := New(nil).Read(context.Background(), filepath.Join("testdata", "car.gltf"), nil)
	require.NoError(t, err)

	g := m.Graph
	assert.Equal(t, "car", g.Node(m.Root()).Name)
	assert.Equal(t, 6, g.Len())

	chassisID, chassis := findNode(t, g, "chassis")
	assert.Equal(t, scene.KindGroup, chassis.Kind)
	assert.Equal(t, mgl32.Vec3{0, 0.5, 0}, chassis.Transform.Position)
	assert.Equal(t, 2, g.ChildCount(chassisID))

	_, body := findNode(t, g, "body")
	require.True(t, body.IsMesh())
	assert.Equal(t, mgl32.Vec3{2, 2, 2}, body.Transform.Scale)
	geo := body.Mesh.Geometry
	assert.Equal(t, []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, geo.Positions)
	assert.Equal(t, []uint32{0, 1, 2}, geo.Indices)
	require.Len(t, geo.Normals, 3)
	assert.InDelta(t, 1, geo.Normals[0].Z(), 1e-5, "missing normals are computed")

	mat := body.Mesh.Material
	assert.Equal(t, scene.DoubleSide, mat.Side)
	assert.InDelta(t, 0.8, mat.Color.X(), 1e-6)
	assert.InDelta(t, 0.5, mat.Metallic, 1e-6)
	assert.InDelta(t, 0.25, mat.Roughness, 1e-6)

	wheelsID, wheels := findNode(t, g, "wheels")
	assert.Equal(t, scene.KindGroup, wheels.Kind, "multi primitive meshes become groups")
	require.Equal(t, 2, g.ChildCount(wheelsID))
	for _, c := range wheels.Children() {
		n := g.Node(c)
		require.True(t, n.IsMesh())
		assert.Equal(t, []uint32{0, 1, 2}, n.Mesh.Geometry.Indices)
		assert.Equal(t, scene.FrontSide, n.Mesh.Material.Side)
	}
}

func TestReadExternalReportsProgress(t *testing.T) {
	path := filepath.Join("testdata", "car_external.gltf")
	var last Progress
	calls := 0
	m, err := New(nil).Read(context.Background(), path, func(p Progress) {
		calls++
		assert.LessOrEqual(t, p.Loaded, p.Total)
		last = p
	})
	require.NoError(t, err)
	require.NotNil(t, m)

	doc, err := os.Stat(path)
	require.NoError(t, err)
	bin, err := os.Stat(filepath.Join("testdata", "car.bin"))
	require.NoError(t, err)

	assert.Positive(t, calls)
	assert.Equal(t, doc.Size()+bin.Size(), last.Total)
	assert.Equal(t, last.Total, last.Loaded)
	assert.InDelta(t, 100, last.Percent(), 1e-9)
}

func TestReadErrors(t *testing.T) {
	l := New(nil)
	ctx := context.Background()

	_, err := l.Read(ctx, filepath.Join("testdata", "nope", "scene.gltf"), nil)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = l.Read(ctx, filepath.Join("testdata", "no_scene.gltf"), nil)
	assert.ErrorIs(t, err, ErrNoScene)

	_, err = l.Read(ctx, filepath.Join("testdata", "broken.gltf"), nil)
	assert.ErrorContains(t, err, "decode")

	_, err = l.Read(ctx, filepath.Join("testdata", "missing_buffer.gltf"), nil)
	assert.Error(t, err)
}

func TestReadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(nil).Read(ctx, filepath.Join("testdata", "car.gltf"), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

type recorder struct {
	successes []*Model
	errs      []error
	progress  []Progress
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnSuccess:  func(m *Model) { r.successes = append(r.successes, m) },
		OnProgress: func(p Progress) { r.progress = append(r.progress, p) },
		OnError:    func(err error) { r.errs = append(r.errs, err) },
	}
}

func TestRequestSuccess(t *testing.T) {
	var rec recorder
	req := New(nil).SetPath("testdata").Load(context.Background(), "car_external.gltf", rec.callbacks())
	assert.Equal(t, Pending, req.State())
	assert.Equal(t, filepath.Join("testdata", "car_external.gltf"), req.Path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	state, err := req.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, Succeeded, state)

	require.Len(t, rec.successes, 1)
	assert.Empty(t, rec.errs)
	assert.NotEmpty(t, rec.progress)
	assert.Same(t, rec.successes[0], req.Model())
	assert.Equal(t, rec.progress[len(rec.progress)-1], req.Progress())

	// terminal states never fire again
	assert.Equal(t, Succeeded, req.Poll())
	assert.Len(t, rec.successes, 1)
}

func TestRequestUnreachablePath(t *testing.T) {
	var rec recorder
	req := New(nil).SetPath(filepath.Join("testdata", "nowhere")).Load(context.Background(), "scene.gltf", rec.callbacks())

	require.Eventually(t, func() bool {
		return req.Poll() != Pending
	}, 5*time.Second, time.Millisecond)

	assert.Equal(t, Failed, req.State())
	assert.ErrorIs(t, req.Err(), ErrNotFound)
	require.Len(t, rec.errs, 1)
	assert.Empty(t, rec.successes)
	assert.Nil(t, req.Model())

	for i := 0; i < 3; i++ {
		req.Poll()
	}
	assert.Len(t, rec.errs, 1)
}

// writeManyBuffers writes a document referencing n external 4 byte buffers.
func writeManyBuffers(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	buffers := make([]string, n)
	for i := range buffers {
		name := fmt.Sprintf("b%03d.bin", i)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte{1, 2, 3, 4}, 0o644))
		buffers[i] = fmt.Sprintf(`{"uri":%q,"byteLength":4}`, name)
	}
	doc := fmt.Sprintf(`{"asset":{"version":"2.0"},"scene":0,"scenes":[{"name":"many","nodes":[0]}],"nodes":[{"name":"root"}],"buffers":[%s]}`,
		strings.Join(buffers, ","))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "many.gltf"), []byte(doc), 0o644))
	return dir
}

func TestRequestDeliversFinalProgress(t *testing.T) {
	dir := writeManyBuffers(t, 150)
	var rec recorder
	req := New(nil).SetPath(dir).Load(context.Background(), "many.gltf", rec.callbacks())

	// let every report pile up before the first delivery
	require.Eventually(t, func() bool { return len(req.done) == 1 }, 5*time.Second, time.Millisecond)
	require.Equal(t, Succeeded, req.Poll())

	require.NotEmpty(t, rec.progress)
	last := rec.progress[len(rec.progress)-1]
	assert.Equal(t, last, req.Progress())
	assert.Equal(t, last.Total, last.Loaded)
	assert.InDelta(t, 100, last.Percent(), 1e-9)
	assert.Greater(t, last.Total, int64(150*4))
	require.Len(t, rec.successes, 1)
}

func TestRequestProgressNeverGoesBack(t *testing.T) {
	dir := writeManyBuffers(t, 40)
	var rec recorder
	req := New(nil).SetPath(dir).Load(context.Background(), "many.gltf", rec.callbacks())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	state, err := req.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, Succeeded, state)

	for i := 1; i < len(rec.progress); i++ {
		assert.GreaterOrEqual(t, rec.progress[i].Loaded, rec.progress[i-1].Loaded)
	}
	last := rec.progress[len(rec.progress)-1]
	assert.Equal(t, last.Total, last.Loaded)
}

func TestRequestWaitTimeout(t *testing.T) {
	req := &Request{notify: make(chan struct{}), done: make(chan outcome)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	state, err := req.Wait(ctx)
	assert.Equal(t, Pending, state)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProgressPercent(t *testing.T) {
	assert.Zero(t, Progress{Loaded: 10}.Percent())
	assert.InDelta(t, 25, Progress{Loaded: 1, Total: 4}.Percent(), 1e-9)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "succeeded", Succeeded.String())
	assert.Equal(t, "failed", Failed.String())
}
