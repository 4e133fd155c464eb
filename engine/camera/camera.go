package camera

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// NearPlane is the projection near plane. Corner rays are unprojected onto it.
	NearPlane float32 = 1.0

	// FarPlane is the projection far plane. The tracer never clips against it, it only
	// fixes the depth mapping used when unprojecting.
	FarPlane float32 = 2.0

	// MinFov and MaxFov bound the vertical field of view in radians.
	MinFov float32 = 0.01
	MaxFov float32 = math.Pi - 0.01
)

// Matrices holds the per-frame camera transforms.
// All matrices are column-major (mgl32 convention).
type Matrices struct {
	Projection  mgl32.Mat4
	View        mgl32.Mat4
	InvProjView mgl32.Mat4
}

// DeriveMatrices computes the projection, view and inverse(projection*view) for a camera.
// It has no side effects, identical inputs always produce identical outputs.
//
// Parameters:
//   - eye: the camera position
//   - lookAt: the point the camera faces
//   - up: the world up vector, must not be parallel to eye-lookAt
//   - fov: vertical field of view in radians
//   - aspect: viewport width divided by height
//
// Returns:
//   - Matrices: the derived transforms
func DeriveMatrices(eye, lookAt, up mgl32.Vec3, fov, aspect float32) Matrices {
	projection := mgl32.Perspective(fov, aspect, NearPlane, FarPlane)
	view := mgl32.LookAtV(eye, lookAt, up)
	return Matrices{
		Projection:  projection,
		View:        view,
		InvProjView: projection.Mul4(view).Inv(),
	}
}

// ScreenPointToRay converts a normalized device coordinate into a world-space ray direction.
// The point is unprojected at NDC depth 0, divided by w, and eye is subtracted.
// The result is not normalized.
//
// Parameters:
//   - invProjView: inverse of projection*view
//   - eye: the camera position
//   - ndcX, ndcY: device coordinates in [-1, 1]
//
// Returns:
//   - mgl32.Vec3: the unnormalized ray direction
func ScreenPointToRay(invProjView mgl32.Mat4, eye mgl32.Vec3, ndcX, ndcY float32) mgl32.Vec3 {
	p := invProjView.Mul4x1(mgl32.Vec4{ndcX, ndcY, 0, 1})
	return p.Vec3().Mul(1 / p.W()).Sub(eye)
}

// CornerRays returns the rays through the four screen corners in kernel order:
// ray00 (-1,-1), ray01 (-1,1), ray10 (1,-1), ray11 (1,1).
//
// Parameters:
//   - invProjView: inverse of projection*view
//   - eye: the camera position
//
// Returns:
//   - [4]mgl32.Vec3: the corner ray directions
func CornerRays(invProjView mgl32.Mat4, eye mgl32.Vec3) [4]mgl32.Vec3 {
	return [4]mgl32.Vec3{
		ScreenPointToRay(invProjView, eye, -1, -1),
		ScreenPointToRay(invProjView, eye, -1, 1),
		ScreenPointToRay(invProjView, eye, 1, -1),
		ScreenPointToRay(invProjView, eye, 1, 1),
	}
}

type cameraImpl struct {
	mu *sync.Mutex

	eye           mgl32.Vec3
	lookAt        mgl32.Vec3
	up            mgl32.Vec3
	defaultLookAt mgl32.Vec3
	fov           float32
}

// Camera holds the eye, look-at, up and field of view of the tracer camera and applies
// the mutations driven by input. Matrices are never cached, callers derive them each frame.
type Camera interface {
	// Eye returns the camera position.
	//
	// Returns:
	//   - mgl32.Vec3: world-space eye position
	Eye() mgl32.Vec3

	// LookAt returns the point the camera faces.
	//
	// Returns:
	//   - mgl32.Vec3: world-space look-at target
	LookAt() mgl32.Vec3

	// Up returns the world up vector.
	//
	// Returns:
	//   - mgl32.Vec3: the up vector
	Up() mgl32.Vec3

	// Fov returns the vertical field of view in radians.
	//
	// Returns:
	//   - float32: field of view
	Fov() float32

	// SetEye moves the camera.
	//
	// Parameters:
	//   - eye: the new position
	SetEye(eye mgl32.Vec3)

	// SetLookAt changes the camera target.
	//
	// Parameters:
	//   - lookAt: the new target
	SetLookAt(lookAt mgl32.Vec3)

	// SetFov sets the field of view, clamped to [MinFov, MaxFov].
	//
	// Parameters:
	//   - fov: field of view in radians
	SetFov(fov float32)

	// AddFov changes the field of view by delta, clamped to [MinFov, MaxFov].
	//
	// Parameters:
	//   - delta: change in radians
	AddFov(delta float32)

	// RotateEyeX rotates the eye about the world X axis through the origin.
	//
	// Parameters:
	//   - angle: rotation in radians
	RotateEyeX(angle float32)

	// RotateEyeY rotates the eye about the world Y axis through the origin.
	//
	// Parameters:
	//   - angle: rotation in radians
	RotateEyeY(angle float32)

	// Orbit rotates the eye about X by ay, then about Y by ax.
	//
	// Parameters:
	//   - ax: rotation about Y in radians
	//   - ay: rotation about X in radians
	Orbit(ax, ay float32)

	// Pan swings the look-at target around the eye.
	//
	// Parameters:
	//   - ax: horizontal swing in radians
	//   - ay: vertical swing in radians
	Pan(ax, ay float32)

	// Dolly scales the eye position along itself: eye += eye*amount.
	//
	// Parameters:
	//   - amount: relative distance change, positive moves away from the origin
	Dolly(amount float32)

	// ResetLookAt restores the look-at target the camera was built with.
	ResetLookAt()

	// Matrices derives projection, view and inverse(projection*view) for the current state.
	//
	// Parameters:
	//   - aspect: viewport width divided by height
	//
	// Returns:
	//   - Matrices: the derived transforms
	Matrices(aspect float32) Matrices

	// KernelParams builds the full kernel parameter set for one frame.
	//
	// Parameters:
	//   - aspect: viewport width divided by height
	//   - globalTime: the accumulation exposure time
	//   - frameCount: the accumulation counter
	//
	// Returns:
	//   - KernelParams: the values to upload
	KernelParams(aspect, globalTime float32, frameCount uint32) KernelParams
}

var _ Camera = &cameraImpl{}

// NewCamera creates a camera at (4, 5, 5) looking at (0, 0.5, 0) with a 60 degree field of view.
//
// Parameters:
//   - options: functional options overriding the defaults
//
// Returns:
//   - Camera: the new camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:     &sync.Mutex{},
		eye:    mgl32.Vec3{4, 5, 5},
		lookAt: mgl32.Vec3{0, 0.5, 0},
		up:     mgl32.Vec3{0, 1, 0},
		fov:    math.Pi / 3,
	}
	for _, opt := range options {
		opt(c)
	}
	c.defaultLookAt = c.lookAt
	return c
}

func (c *cameraImpl) Eye() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eye
}

func (c *cameraImpl) LookAt() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookAt
}

func (c *cameraImpl) Up() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) SetEye(eye mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eye = eye
}

func (c *cameraImpl) SetLookAt(lookAt mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookAt = lookAt
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = clampFov(fov)
}

func (c *cameraImpl) AddFov(delta float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = clampFov(c.fov + delta)
}

func (c *cameraImpl) RotateEyeX(angle float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eye = mgl32.Rotate3DX(angle).Mul3x1(c.eye)
}

func (c *cameraImpl) RotateEyeY(angle float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eye = mgl32.Rotate3DY(angle).Mul3x1(c.eye)
}

func (c *cameraImpl) Orbit(ax, ay float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eye = mgl32.Rotate3DY(ax).Mul3x1(mgl32.Rotate3DX(ay).Mul3x1(c.eye))
}

func (c *cameraImpl) Pan(ax, ay float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.eye
	l := c.lookAt.Sub(mgl32.Vec3{e.X(), 0, e.Z()})
	l = mgl32.Rotate3DY(ax).Mul3x1(l)
	l = l.Add(mgl32.Vec3{e.X(), -e.Y(), 0})
	l = mgl32.Rotate3DX(ay).Mul3x1(l)
	c.lookAt = l.Add(mgl32.Vec3{0, e.Y(), e.Z()})
}

func (c *cameraImpl) Dolly(amount float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eye = c.eye.Add(c.eye.Mul(amount))
}

func (c *cameraImpl) ResetLookAt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookAt = c.defaultLookAt
}

func (c *cameraImpl) Matrices(aspect float32) Matrices {
	c.mu.Lock()
	defer c.mu.Unlock()
	return DeriveMatrices(c.eye, c.lookAt, c.up, c.fov, aspect)
}

func (c *cameraImpl) KernelParams(aspect, globalTime float32, frameCount uint32) KernelParams {
	c.mu.Lock()
	eye := c.eye
	m := DeriveMatrices(eye, c.lookAt, c.up, c.fov, aspect)
	c.mu.Unlock()

	return KernelParams{
		Eye:                        eye,
		Rays:                       CornerRays(m.InvProjView, eye),
		GlobalTime:                 globalTime,
		FrameCount:                 int32(frameCount),
		TransposeInverseViewMatrix: m.View.Transpose().Inv().Mat3(),
	}
}

func clampFov(fov float32) float32 {
	return mgl32.Clamp(fov, MinFov, MaxFov)
}
