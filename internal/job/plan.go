package job

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/mvkit/mvkit/internal/discovery"
	"github.com/mvkit/mvkit/internal/errors"
	"github.com/mvkit/mvkit/internal/ffmpeg"
	"github.com/mvkit/mvkit/internal/logging"
	"github.com/mvkit/mvkit/internal/runner"
	"github.com/mvkit/mvkit/internal/validation"
)

// ListPrefix starts the name of every concat manifest generated in a work
// directory.
const ListPrefix = ".mvkit_concat_"

// PlannedStep is a step whose command has been built and validated.
type PlannedStep struct {
	Index   int
	Name    string
	Kind    ffmpeg.Kind
	Spec    ffmpeg.MediaSpec
	Command runner.Command
	Strict  bool
	// Verify selects the checks run against the output; zero skips them.
	Verify validation.Options

	// ListPath is set for concat steps that need a generated manifest
	// written just before they run, from ListFiles or from the video files
	// found in ListDir at that time.
	ListPath  string
	ListFiles []string
	ListDir   string
}

// Plan is a fully built job. No process has been spawned to create it
// beyond path translation.
type Plan struct {
	RunID   string
	Name    string
	WorkDir string
	Workers int
	Steps   []PlannedStep
}

// Defaults carries configuration applied to every step.
type Defaults struct {
	Hardware     bool
	SegmentCodec string
	ConcatCodec  string
	Workers      int
}

// Build validates every step of m and builds its command. Any invalid step
// fails the whole plan.
func Build(ctx context.Context, b *ffmpeg.Builder, m *Manifest, d Defaults) (*Plan, error) {
	runID := uuid.NewString()

	workers := m.Workers
	if workers == 0 {
		workers = d.Workers
	}
	if workers <= 0 {
		workers = 1
	}

	plan := &Plan{
		RunID:   runID,
		Name:    m.Name,
		WorkDir: m.WorkDir,
		Workers: workers,
	}
	if plan.Name == "" {
		plan.Name = filepath.Base(m.WorkDir)
	}

	for i, step := range m.Steps {
		ps, err := planStep(ctx, b, m.WorkDir, runID, i, step, d)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.DisplayName(i), err)
		}
		plan.Steps = append(plan.Steps, ps)
	}
	return plan, nil
}

func planStep(ctx context.Context, b *ffmpeg.Builder, workDir, runID string, i int, step Step, d Defaults) (PlannedStep, error) {
	kind, err := step.kind()
	if err != nil {
		return PlannedStep{}, err
	}

	codec := ""
	switch kind {
	case ffmpeg.KindSegment:
		codec = d.SegmentCodec
	case ffmpeg.KindConcat:
		codec = d.ConcatCodec
	}
	spec, err := step.mediaSpec(kind, workDir, d.Hardware, codec)
	if err != nil {
		return PlannedStep{}, err
	}

	ps := PlannedStep{
		Index:  i,
		Name:   step.DisplayName(i),
		Kind:   kind,
		Strict: step.Strict,
	}

	if kind == ffmpeg.KindConcat && len(spec.Sources) == 0 {
		files, dir, err := concatInputs(workDir, step)
		if err != nil {
			return PlannedStep{}, err
		}
		ps.ListFiles = files
		ps.ListDir = dir
		ps.ListPath = filepath.Join(workDir, fmt.Sprintf("%s%s_%d.txt", ListPrefix, runID[:8], i+1))
		spec.Sources = []string{ps.ListPath}
	}

	cmd, err := b.Build(ctx, spec)
	if err != nil {
		return PlannedStep{}, err
	}
	if step.Verify {
		if ps.Verify, err = verifyOptions(spec); err != nil {
			return PlannedStep{}, err
		}
	}
	ps.Spec = spec
	ps.Command = cmd
	return ps, nil
}

// verifyOptions derives the output checks implied by spec.
func verifyOptions(spec ffmpeg.MediaSpec) (validation.Options, error) {
	var opts validation.Options
	switch spec.Kind {
	case ffmpeg.KindExtractAudio, ffmpeg.KindConvertAudio:
		opts.RequireAudio = true
	case ffmpeg.KindSegment:
		opts.RequireVideo = true
		opts.RequireAudio = true
		length := spec.Length
		opts.ExpectedDuration = &length
	case ffmpeg.KindConcat:
		opts.RequireVideo = true
	case ffmpeg.KindMux:
		opts.RequireVideo = true
		opts.RequireAudio = true
	default:
		return opts, errors.NewConfigErrorf("%s: verify applies only to steps that write an output", spec.Kind)
	}
	if w, h := spec.Visual.Width, spec.Visual.Height; w > 0 && h > 0 {
		opts.ExpectedDimensions = &[2]int{w, h}
	}
	return opts, nil
}

// concatInputs returns the explicit segment list of a concat step, or the
// directory to collect segments from when the step runs.
func concatInputs(workDir string, step Step) ([]string, string, error) {
	switch {
	case len(step.Inputs) > 0 && step.InputDir != "":
		return nil, "", errors.NewConfigError("concat: inputs and input_dir are mutually exclusive")
	case len(step.Inputs) > 0:
		files := make([]string, len(step.Inputs))
		for i, in := range step.Inputs {
			files[i] = resolve(workDir, in)
		}
		return files, "", nil
	case step.InputDir != "":
		return nil, resolve(workDir, step.InputDir), nil
	default:
		return nil, "", errors.NewConfigError("concat: one of input, inputs or input_dir is required")
	}
}

// listFiles resolves the segments of a generated concat manifest.
func (ps PlannedStep) listFiles(logger *logging.Logger) ([]string, error) {
	if ps.ListDir == "" {
		return ps.ListFiles, nil
	}
	result, err := discovery.FindFilesWithLogging(ps.ListDir, discovery.Video, logger)
	if err != nil {
		return nil, errors.NewConfigErrorf("concat: %v", err)
	}
	return result.Files, nil
}
