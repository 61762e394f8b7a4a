package loader

import "github.com/Carmen-Shannon/oxy-rig/engine/model"

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithModel is an option builder that pre-populates the model cache with a model.
//
// Parameters:
//   - key: the cache key for the model
//   - model: the model to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the model option to a loader
func WithModel(key string, model model.Model) LoaderBuilderOption {
	return func(l *loader) {
		l.modelCache[key] = model
	}
}

// WithImportOptions is an option builder that sets the post-processing applied by every backend.
//
// Parameters:
//   - opts: the import options
//
// Returns:
//   - LoaderBuilderOption: a function that applies the import options to a loader
func WithImportOptions(opts ImportOptions) LoaderBuilderOption {
	return func(l *loader) {
		l.importOptions = opts
	}
}

// WithWorkers sets the number of workers LoadAll uses. Values below 1 are ignored.
func WithWorkers(n int) LoaderBuilderOption {
	return func(l *loader) {
		if n > 0 {
			l.workers = n
		}
	}
}

// WithNodeLog enables the per-node hierarchy dump while skeletons are built.
func WithNodeLog(enabled bool) LoaderBuilderOption {
	return func(l *loader) {
		l.logNodes = enabled
	}
}
