package scene

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-rig/engine/camera"
	"github.com/Carmen-Shannon/oxy-rig/engine/game_object"
	"github.com/Carmen-Shannon/oxy-rig/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rig/engine/renderer/animator"
	"github.com/Carmen-Shannon/oxy-rig/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-rig/engine/renderer/pipeline"
)

// DefaultPipelineKey is the key the scene registers its skeleton pipeline under.
const DefaultPipelineKey = "skeleton"

// Scene manages the GameObjects of one view, with the Camera they are seen from and the
// Renderer that draws them. Every object is drawn with the scene's skeleton pipeline.
// Scenes can be hot-swapped via the Active flag to switch between different views.
// Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active reports whether the engine updates and draws this scene.
	Active() bool

	// SetActive sets whether the engine updates and draws this scene.
	SetActive(active bool)

	// Camera returns the scene's camera.
	//
	// Returns:
	//   - camera.Camera: the camera
	Camera() camera.Camera

	// SetCamera replaces the scene's camera.
	SetCamera(cam camera.Camera)

	// Renderer returns the renderer the scene draws with.
	//
	// Returns:
	//   - renderer.Renderer: the renderer
	Renderer() renderer.Renderer

	// PipelineKey returns the key of the scene's registered skeleton pipeline.
	//
	// Returns:
	//   - string: the pipeline key
	PipelineKey() string

	// Count returns the number of GameObjects in the scene.
	//
	// Returns:
	//   - int: the object count
	Count() int

	// Add initializes the object's GPU resources against the scene's pipeline and stores it.
	// Objects without an ID are assigned the next free one.
	//
	// Parameters:
	//   - obj: the GameObject to add
	//
	// Returns:
	//   - uint64: the object's ID
	//   - error: an error if GPU resource creation fails, in which case the object is not stored
	Add(obj game_object.GameObject) (uint64, error)

	// Get retrieves a GameObject by its ID.
	// Returns nil if not found.
	//
	// Parameters:
	//   - id: the object's unique ID
	//
	// Returns:
	//   - game_object.GameObject: the object or nil
	Get(id uint64) game_object.GameObject

	// Objects returns the scene's objects in ascending ID order.
	//
	// Returns:
	//   - []game_object.GameObject: the objects
	Objects() []game_object.GameObject

	// Remove releases and removes the GameObject with the given ID.
	//
	// Parameters:
	//   - id: the object's unique ID
	Remove(id uint64)

	// Clear releases and removes every object.
	Clear()

	// Update evaluates every enabled object's skeleton and stages its GPU writes.
	// Objects are prepared in parallel on the scene's worker pool.
	Update()

	// Flush submits all staged writes to the renderer in a single WriteBuffers call.
	//
	// Returns:
	//   - int: the number of writes submitted
	Flush() int

	// DrawCalls draws every enabled object. Must be called between the renderer's BeginFrame and EndFrame.
	//
	// Returns:
	//   - error: the joined errors of any rejected draws
	DrawCalls() error

	// Resize updates the camera aspect ratio for a new surface size.
	//
	// Parameters:
	//   - width, height: the new surface size in pixels
	Resize(width, height int)

	// Release releases every object. The scene is empty afterwards.
	Release()
}

type scene struct {
	mu *sync.RWMutex

	name   string
	active bool

	cam camera.Camera
	r   renderer.Renderer

	pipelineKey string
	pipeline    pipeline.Pipeline

	registry map[uint64]game_object.GameObject
	nextID   uint64
	pending  []game_object.GameObject // objects from WithObjects, added once the pipeline exists

	// writePool is reused each frame to coalesce staged writes.
	writePool []bind_group_provider.BufferWrite

	// prepPool runs the per-object CPU prep of Update. Workers persist across frames.
	prepPool    worker.DynamicWorkerPool
	prepWorkers int
}

// Ensure scene implements Scene interface.
var _ Scene = &scene{}

// NewScene creates a new Scene with the given camera and renderer and registers the skeleton
// pipeline on the renderer. Both are required and NewScene panics if either is nil or the
// pipeline cannot be created.
//
// Parameters:
//   - name: the name of the scene
//   - cam: the camera to attach (must not be nil)
//   - r: the renderer to attach (must not be nil)
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, cam camera.Camera, r renderer.Renderer, options ...SceneBuilderOption) Scene {
	if cam == nil {
		panic("scene: NewScene requires a non-nil Camera")
	}
	if r == nil {
		panic("scene: NewScene requires a non-nil Renderer")
	}

	s := &scene{
		mu:          &sync.RWMutex{},
		name:        name,
		cam:         cam,
		r:           r,
		pipelineKey: DefaultPipelineKey,
		registry:    make(map[uint64]game_object.GameObject),
		nextID:      1,
		prepWorkers: max(runtime.NumCPU()-1, 1),
	}

	for _, option := range options {
		option(s)
	}

	// Queue size of 64 covers a viewer's handful of rigs with headroom.
	s.prepPool = worker.NewDynamicWorkerPool(s.prepWorkers, 64, 1*time.Second)

	s.pipeline = r.Pipeline(s.pipelineKey)
	if s.pipeline == nil {
		s.pipeline = animator.NewSkeletonPipeline(s.pipelineKey)
		if err := r.RegisterPipelines(s.pipeline); err != nil {
			panic(fmt.Sprintf("scene: failed to register skeleton pipeline: %v", err))
		}
	}

	pending := s.pending
	s.pending = nil
	for _, obj := range pending {
		if _, err := s.Add(obj); err != nil {
			panic(fmt.Sprintf("scene: failed to add object: %v", err))
		}
	}
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Camera() camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cam
}

func (s *scene) SetCamera(cam camera.Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cam = cam
}

func (s *scene) Renderer() renderer.Renderer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.r
}

func (s *scene) PipelineKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pipelineKey
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registry)
}

func (s *scene) Add(obj game_object.GameObject) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if obj.ID() == 0 {
		obj.SetID(s.nextID)
	}
	id := obj.ID()
	if _, exists := s.registry[id]; exists {
		return 0, fmt.Errorf("scene %q already holds an object with id %d", s.name, id)
	}
	if err := obj.Init(s.r, s.pipeline); err != nil {
		return 0, fmt.Errorf("scene %q: %w", s.name, err)
	}

	s.registry[id] = obj
	s.nextID = max(s.nextID, id+1)
	return id, nil
}

func (s *scene) Get(id uint64) game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry[id]
}

func (s *scene) Objects() []game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedObjects()
}

// sortedObjects returns the registry in ascending ID order. Caller must hold s.mu.
func (s *scene) sortedObjects() []game_object.GameObject {
	ids := make([]uint64, 0, len(s.registry))
	for id := range s.registry {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	objs := make([]game_object.GameObject, len(ids))
	for i, id := range ids {
		objs[i] = s.registry[id]
	}
	return objs
}

func (s *scene) Remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, exists := s.registry[id]
	if !exists {
		return
	}
	delete(s.registry, id)
	obj.Release()
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, obj := range s.registry {
		obj.Release()
		delete(s.registry, id)
	}
}

func (s *scene) Update() {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objs := s.sortedObjects()
	if len(objs) < 2 {
		for _, obj := range objs {
			obj.PrepareFrame(s.cam)
		}
		return
	}

	var wg sync.WaitGroup
	for i, obj := range objs {
		wg.Add(1)
		s.prepPool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				obj.PrepareFrame(s.cam)
				return nil, nil
			},
		})
	}
	wg.Wait()
}

func (s *scene) Flush() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.writePool = s.writePool[:0]
	for _, obj := range s.sortedObjects() {
		s.writePool = append(s.writePool, obj.StagedWriteData()...)
	}
	if len(s.writePool) == 0 {
		return 0
	}
	s.r.WriteBuffers(s.writePool)
	return len(s.writePool)
}

func (s *scene) DrawCalls() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var errs []error
	for _, obj := range s.sortedObjects() {
		if err := obj.Draw(s.r, s.pipelineKey); err != nil {
			errs = append(errs, fmt.Errorf("object %d: %w", obj.ID(), err))
		}
	}
	return errors.Join(errs...)
}

func (s *scene) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.cam.SetAspect(float32(width) / float32(height))
}

func (s *scene) Release() {
	s.Clear()
}
