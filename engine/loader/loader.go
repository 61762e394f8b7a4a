package loader

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-rig/engine/model"
)

// defaultLoadWorkers is the worker count used by LoadAll when none is configured.
const defaultLoadWorkers = 4

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	modelCache map[string]model.Model

	backends map[LoaderBackendType]loaderBackend

	importOptions ImportOptions
	workers       int
	logNodes      bool
}

// Loader defines the public-facing interface for loading and caching rigged models.
// It hides the file format (glTF, GLB, YAML rig descriptions) behind format backends, builds the
// skeleton hierarchy for every imported scene, and manages a cache of loaded models.
type Loader interface {
	// Load imports a model file, builds its skeleton, and caches the result by path.
	// If the model is already cached, the cached version is returned.
	// The backend is selected from the file extension (.gltf/.glb → glTF, .yaml/.yml → YAML).
	// On failure the error is logged and an unloaded model is returned alongside it.
	//
	// Parameters:
	//   - path: the file path to the model file
	//
	// Returns:
	//   - model.Model: the loaded model, or an unloaded model on failure
	//   - error: error if import or skeleton construction fails
	Load(path string) (model.Model, error)

	// LoadReader imports a model from a reader stream and caches it by the given name.
	//
	// Parameters:
	//   - name: the cache key and scene name for the loaded model
	//   - r: the reader providing model data
	//   - backendType: the format of the stream
	//
	// Returns:
	//   - model.Model: the loaded model, or an unloaded model on failure
	//   - error: error if import or skeleton construction fails
	LoadReader(name string, r io.Reader, backendType LoaderBackendType) (model.Model, error)

	// LoadAll loads several model files in parallel on a worker pool.
	// Each file is an independent Load; failures do not stop the others.
	//
	// Parameters:
	//   - paths: the file paths to load
	//
	// Returns:
	//   - []model.Model: one model per path, in path order (unloaded where loading failed)
	//   - error: the joined errors of every failed load, or nil
	LoadAll(paths []string) ([]model.Model, error)

	// Get retrieves a cached model by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - model.Model: the cached model or nil
	Get(name string) model.Model

	// Models returns a copy of the model cache.
	//
	// Returns:
	//   - map[string]model.Model: all cached models keyed by name
	Models() map[string]model.Model

	// Release releases a cached model's skeleton and removes it from the cache.
	//
	// Parameters:
	//   - name: the cache key of the model
	//
	// Returns:
	//   - bool: true if the model was cached
	Release(name string) bool
}

var _ Loader = &loader{}

// NewLoader creates a new Loader with the glTF and YAML backends registered and the options applied.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided options
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:         sync.RWMutex{},
		modelCache: make(map[string]model.Model),
		backends: map[LoaderBackendType]loaderBackend{
			BackendTypeGLTF: newGLTFLoaderBackend(),
			BackendTypeYAML: newYAMLLoaderBackend(),
		},
		importOptions: DefaultImportOptions(),
		workers:       defaultLoadWorkers,
	}

	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Load(path string) (model.Model, error) {
	if cached := l.Get(path); cached != nil {
		return cached, nil
	}

	m, err := l.load(path, path, func(opts ImportOptions) (*model.ImportedScene, error) {
		backendType, err := backendTypeForPath(path)
		if err != nil {
			return nil, err
		}
		return l.backends[backendType].Import(path, opts)
	})
	if err != nil {
		log.Printf("failed to load model %q: %v", path, err)
		return m, err
	}
	return m, nil
}

func (l *loader) LoadReader(name string, r io.Reader, backendType LoaderBackendType) (model.Model, error) {
	if cached := l.Get(name); cached != nil {
		return cached, nil
	}

	m, err := l.load(name, "", func(opts ImportOptions) (*model.ImportedScene, error) {
		backend, ok := l.backends[backendType]
		if !ok {
			return nil, fmt.Errorf("%w: backend %s", ErrUnsupportedFormat, backendType)
		}
		return backend.ImportReader(name, r, opts)
	})
	if err != nil {
		log.Printf("failed to load model %q: %v", name, err)
		return m, err
	}
	return m, nil
}

func (l *loader) LoadAll(paths []string) ([]model.Model, error) {
	models := make([]model.Model, len(paths))
	errs := make([]error, len(paths))

	pool := worker.NewDynamicWorkerPool(max(l.workers, 1), len(paths)+1, 1*time.Second)

	// The pool's own Wait blocks until workers idle out, so completion is tracked per batch.
	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		idx, p := i, path
		pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				models[idx], errs[idx] = l.Load(p)
				return nil, nil
			},
		})
	}
	wg.Wait()

	return models, errors.Join(errs...)
}

func (l *loader) Get(name string) model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.modelCache[name]
}

func (l *loader) Models() map[string]model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]model.Model, len(l.modelCache))
	for k, v := range l.modelCache {
		result[k] = v
	}
	return result
}

func (l *loader) Release(name string) bool {
	l.mu.Lock()
	m, ok := l.modelCache[name]
	delete(l.modelCache, name)
	l.mu.Unlock()

	if ok {
		m.Release()
	}
	return ok
}

// load imports a scene, builds its skeleton, and caches the model under key.
// A failed load is not cached and yields an unloaded model carrying the key and path.
//
// Parameters:
//   - key: the cache key, also the model name if the scene has none
//   - path: the source path recorded on the model, empty for streams
//   - importFn: performs the format-specific import
//
// Returns:
//   - model.Model: the loaded model or an unloaded placeholder
//   - error: error if import or skeleton construction fails
func (l *loader) load(key, path string, importFn func(ImportOptions) (*model.ImportedScene, error)) (model.Model, error) {
	unloaded := model.NewModel(model.WithName(key), model.WithPath(path))

	scene, err := importFn(l.importOptions)
	if err != nil {
		return unloaded, err
	}

	h, err := model.BuildHierarchy(scene, model.WithNodeLog(l.logNodes))
	if err != nil {
		return unloaded, err
	}

	name := scene.Name
	if name == "" {
		name = key
	}
	m := model.NewModel(
		model.WithName(name),
		model.WithPath(path),
		model.WithHierarchy(h),
	)

	l.mu.Lock()
	defer l.mu.Unlock()
	if cached, ok := l.modelCache[key]; ok {
		// A concurrent load of the same key finished first.
		return cached, nil
	}
	l.modelCache[key] = m
	return m, nil
}
