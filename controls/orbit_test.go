package controls

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toxichemicals/GO/showroom/camera"
)

func showroomOptions() Options {
	o := DefaultOptions()
	o.EnableDamping = true
	o.EnablePan = false
	o.MinDistance = 5
	o.MaxDistance = 20
	o.MinPolarAngle = 0.5
	o.MaxPolarAngle = 1.5
	o.Target = mgl32.Vec3{0, 1, 0}
	return o
}

func newOrbit(t *testing.T) (*Orbit, *camera.Perspective) {
	t.Helper()
	cam := camera.NewPerspective(45, 16.0/9.0, 1, 1000)
	cam.SetPosition(4, 5, 11)
	o, err := New(cam, showroomOptions())
	require.NoError(t, err)
	o.Update()
	return o, cam
}

func settle(o *Orbit, frames int) {
	for i := 0; i < frames; i++ {
		o.Update()
	}
}

func TestNewRejectsInvertedRanges(t *testing.T) {
	cam := camera.NewPerspective(45, 1, 1, 1000)

	opts := showroomOptions()
	opts.MinDistance, opts.MaxDistance = 20, 5
	_, err := New(cam, opts)
	assert.ErrorIs(t, err, ErrInvalidRange)

	opts = showroomOptions()
	opts.MinPolarAngle, opts.MaxPolarAngle = 1.5, 0.5
	_, err = New(cam, opts)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestInitialUpdateLooksAtTarget(t *testing.T) {
	o, cam := newOrbit(t)
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, cam.Target())
	// (4,4,11) from the target is already inside both ranges
	assert.InDelta(t, 12.37, o.Distance(), 1e-2)
	assert.InDelta(t, 4, cam.Position.X(), 1e-4)
	assert.InDelta(t, 5, cam.Position.Y(), 1e-4)
	assert.InDelta(t, 11, cam.Position.Z(), 1e-4)
}

func TestDistanceClamped(t *testing.T) {
	for _, delta := range []float32{1, 10, 1e3, 1e6, -1, -10, -1e3, -1e6} {
		o, cam := newOrbit(t)
		for i := 0; i < 20; i++ {
			o.Dolly(delta)
			o.Update()
			assert.GreaterOrEqual(t, o.Distance(), float32(5), "delta %g", delta)
			assert.LessOrEqual(t, o.Distance(), float32(20), "delta %g", delta)
			assert.InDelta(t, o.Distance(), cam.Position.Sub(o.Target()).Len(), 1e-3)
		}
	}
}

func TestZoomDirection(t *testing.T) {
	o, _ := newOrbit(t)
	start := o.Distance()
	o.Dolly(1)
	o.Update()
	assert.Less(t, o.Distance(), start)

	o.Dolly(-3)
	o.Update()
	assert.Greater(t, o.Distance(), start)
}

func TestNonFiniteInputIgnored(t *testing.T) {
	nan := math32.NaN()
	inf := math32.Inf(1)

	o, cam := newOrbit(t)
	opts := showroomOptions()
	opts.EnablePan = true
	o.opts = opts
	start := cam.Position

	o.Dolly(nan)
	o.Rotate(nan, 0, 600)
	o.Rotate(0, inf, 600)
	o.Rotate(-inf, 0, 600)
	o.Pan(nan, 1, 600)
	o.Pan(1, inf, 600)
	assert.False(t, o.Update())
	assert.InDelta(t, 0, start.Sub(cam.Position).Len(), 1e-4)

	for _, delta := range []float32{inf, -inf} {
		o.Dolly(delta)
		o.Update()
		assert.False(t, math32.IsNaN(o.Distance()), "delta %g", delta)
		assert.GreaterOrEqual(t, o.Distance(), float32(5), "delta %g", delta)
		assert.LessOrEqual(t, o.Distance(), float32(20), "delta %g", delta)
	}
}

func TestOptionsReflectConfiguration(t *testing.T) {
	o, _ := newOrbit(t)
	assert.Equal(t, showroomOptions(), o.Options())

	opts := showroomOptions()
	opts.EnablePan = true
	o, err := New(camera.NewPerspective(45, 1, 1, 1000), opts)
	require.NoError(t, err)
	assert.True(t, o.Options().EnablePan)
}

func TestPolarAngleClamped(t *testing.T) {
	for _, dy := range []float32{1, 100, 1e4, 1e7, -1, -100, -1e4, -1e7} {
		o, _ := newOrbit(t)
		for i := 0; i < 50; i++ {
			o.Rotate(0, dy, 600)
			o.Update()
			assert.GreaterOrEqual(t, o.PolarAngle(), float32(0.5), "dy %g", dy)
			assert.LessOrEqual(t, o.PolarAngle(), float32(1.5), "dy %g", dy)
		}
	}
}

func TestDampingSpreadsMotion(t *testing.T) {
	o, _ := newOrbit(t)
	start := o.AzimuthalAngle()

	o.Rotate(60, 0, 600)
	moved := o.Update()
	assert.True(t, moved)
	first := start - o.AzimuthalAngle()

	// the rest of the drag is applied over the following frames
	settle(o, 300)
	total := start - o.AzimuthalAngle()
	assert.Greater(t, total, first*5)
	assert.InDelta(t, 2*3.14159265/10, total, 1e-2)

	assert.False(t, o.Update(), "motion must settle")
}

func TestNoDampingAppliesAtOnce(t *testing.T) {
	cam := camera.NewPerspective(45, 1, 1, 1000)
	cam.SetPosition(0, 1, 10)
	opts := showroomOptions()
	opts.EnableDamping = false
	o, err := New(cam, opts)
	require.NoError(t, err)
	o.Update()

	start := o.AzimuthalAngle()
	o.Rotate(60, 0, 600)
	o.Update()
	assert.InDelta(t, 2*3.14159265/10, start-o.AzimuthalAngle(), 1e-4)
	assert.False(t, o.Update())
}

func TestPanDisabled(t *testing.T) {
	o, cam := newOrbit(t)
	before := cam.Position
	o.Pan(100, 100, 600)
	settle(o, 10)
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, o.Target())
	assert.InDelta(t, 0, before.Sub(cam.Position).Len(), 1e-4)
}

func TestPanEnabledMovesTarget(t *testing.T) {
	cam := camera.NewPerspective(45, 1, 1, 1000)
	cam.SetPosition(0, 1, 10)
	opts := showroomOptions()
	opts.EnableDamping = false
	opts.EnablePan = true
	o, err := New(cam, opts)
	require.NoError(t, err)
	o.Update()

	o.Pan(100, 0, 600)
	o.Update()
	assert.Less(t, o.Target().X(), float32(0))
	assert.InDelta(t, 1, o.Target().Y(), 1e-4)
}

func TestAutoRotate(t *testing.T) {
	cam := camera.NewPerspective(45, 1, 1, 1000)
	cam.SetPosition(0, 1, 10)
	opts := showroomOptions()
	opts.EnableDamping = false
	opts.AutoRotate = true
	o, err := New(cam, opts)
	require.NoError(t, err)

	assert.True(t, o.Update())
	assert.Less(t, o.AzimuthalAngle(), float32(0))
}
