package loader

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-rig/engine/model"
)

// ErrUnsupportedFormat is returned when no backend handles a file's extension.
var ErrUnsupportedFormat = errors.New("unsupported model format")

// LoaderBackendType identifies the scene file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota

	// BackendTypeYAML selects the YAML rig description backend.
	BackendTypeYAML
)

func (t LoaderBackendType) String() string {
	switch t {
	case BackendTypeGLTF:
		return "gltf"
	case BackendTypeYAML:
		return "yaml"
	default:
		return fmt.Sprintf("LoaderBackendType(%d)", int(t))
	}
}

// loaderBackend defines the generic interface for importing scenes from files or streams.
// Concrete implementations (gltfLoaderBackendImpl, yamlLoaderBackendImpl) handle format-specific
// parsing and produce the neutral model.ImportedScene.
type loaderBackend interface {
	// Import reads the scene at path.
	//
	// Parameters:
	//   - path: the file path to load
	//   - opts: the import post-processing options
	//
	// Returns:
	//   - *model.ImportedScene: the imported scene
	//   - error: error if the file is missing, unreadable, or malformed
	Import(path string, opts ImportOptions) (*model.ImportedScene, error)

	// ImportReader reads a scene from a stream.
	//
	// Parameters:
	//   - name: the scene name to record
	//   - r: the reader providing the scene data
	//   - opts: the import post-processing options
	//
	// Returns:
	//   - *model.ImportedScene: the imported scene
	//   - error: error if the data is malformed
	ImportReader(name string, r io.Reader, opts ImportOptions) (*model.ImportedScene, error)
}

// backendTypeForPath selects a backend from the file extension.
//
// Parameters:
//   - path: the file path
//
// Returns:
//   - LoaderBackendType: the backend for the extension
//   - error: ErrUnsupportedFormat if the extension is unknown
func backendTypeForPath(path string) (LoaderBackendType, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".gltf", ".glb":
		return BackendTypeGLTF, nil
	case ".yaml", ".yml":
		return BackendTypeYAML, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// sceneName derives a scene name from a file path: the base name without any extensions.
func sceneName(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '.'); i > 0 {
		return base[:i]
	}
	return base
}
