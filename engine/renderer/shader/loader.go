package shader

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// Default file names of the three program stages inside a shader directory.
const (
	ComputeFile  = "compute.wgsl"
	VertexFile   = "vertex.wgsl"
	FragmentFile = "fragment.wgsl"
)

// DefaultDir is the shader directory used when none is configured.
const DefaultDir = "assets/shaders"

// StagePaths names the WGSL files of one tracer program.
type StagePaths struct {
	Compute  string
	Vertex   string
	Fragment string
}

// StagePathsIn returns the default stage file paths inside dir.
//
// Parameters:
//   - dir: the shader directory
//
// Returns:
//   - StagePaths: compute.wgsl, vertex.wgsl and fragment.wgsl joined onto dir
func StagePathsIn(dir string) StagePaths {
	return StagePaths{
		Compute:  filepath.Join(dir, ComputeFile),
		Vertex:   filepath.Join(dir, VertexFile),
		Fragment: filepath.Join(dir, FragmentFile),
	}
}

// Files lists the stage paths in compute, vertex, fragment order.
func (p StagePaths) Files() []string {
	return []string{p.Compute, p.Vertex, p.Fragment}
}

// Stages is a fully parsed and validated set of program stages.
type Stages struct {
	Compute  Shader
	Vertex   Shader
	Fragment Shader
}

// Loader reads and validates the three stages of a program concurrently on a worker pool.
type Loader struct {
	mu       *sync.Mutex
	pool     worker.DynamicWorkerPool
	validate bool
	taskID   int
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLoaderValidation toggles the naga validation pass for every stage the loader builds.
//
// Parameters:
//   - enabled: false skips front-end validation
//
// Returns:
//   - LoaderOption: a function that applies the setting to a loader
func WithLoaderValidation(enabled bool) LoaderOption {
	return func(l *Loader) {
		l.validate = enabled
	}
}

// NewLoader creates a Loader backed by a pool of three workers, one per stage.
//
// Parameters:
//   - options: optional settings such as WithLoaderValidation
//
// Returns:
//   - *Loader: the loader; call Close when done with it
func NewLoader(options ...LoaderOption) *Loader {
	l := &Loader{
		mu:       &sync.Mutex{},
		validate: true,
	}
	for _, opt := range options {
		opt(l)
	}
	l.pool = worker.NewDynamicWorkerPool(3, 8, 1*time.Second)
	return l
}

// Load reads and parses the three stage files. Either all three stages are returned or none;
// the returned error joins the failure of every stage that was rejected.
//
// Parameters:
//   - paths: the stage files to load
//
// Returns:
//   - *Stages: the parsed stages
//   - error: the joined ErrSourceRead / ErrCompile failures
func (l *Loader) Load(paths StagePaths) (*Stages, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	jobs := []struct {
		key        string
		shaderType ShaderType
		path       string
	}{
		{"compute", ShaderTypeCompute, paths.Compute},
		{"vertex", ShaderTypeVertex, paths.Vertex},
		{"fragment", ShaderTypeFragment, paths.Fragment},
	}
	shaders := make([]Shader, len(jobs))
	errs := make([]error, len(jobs))

	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		idx := i
		j := job
		l.taskID++
		l.pool.SubmitTask(worker.Task{
			ID:      l.taskID,
			Payload: j.path,
			Do: func() (any, error) {
				defer wg.Done()
				s, err := NewShader(j.key, j.shaderType, j.path, WithValidation(l.validate))
				shaders[idx], errs[idx] = s, err
				return s, err
			},
		})
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &Stages{
		Compute:  shaders[0],
		Vertex:   shaders[1],
		Fragment: shaders[2],
	}, nil
}

// Close stops the loader's worker pool.
func (l *Loader) Close() {
	l.pool.Stop()
}
