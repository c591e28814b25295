package codegen

import (
	"errors"
	"fmt"
)

// ============================================================
// Errors
// ============================================================

var (
	ErrMissingEmitter     = errors.New("missing emitter")
	ErrEmitterConfig      = errors.New("wrong emitter configuration")
	ErrBlockAlreadyExists = errors.New("block already exists")
	ErrNameAlreadyExists  = errors.New("name already exists")
)

// BlockError reports a failure to build or insert a named block.
type BlockError struct {
	Block   string
	Factory string
	Err     error
}

func (e *BlockError) Error() string {
	switch {
	case errors.Is(e.Err, ErrMissingEmitter):
		return fmt.Sprintf("block '%s' missing in factory '%s'", e.Block, e.Factory)
	case errors.Is(e.Err, ErrBlockAlreadyExists):
		return fmt.Sprintf("block '%s' already exists", e.Block)
	case errors.Is(e.Err, ErrNameAlreadyExists):
		return fmt.Sprintf("name '%s' already exists", e.Block)
	}
	return fmt.Sprintf("block '%s': %v", e.Block, e.Err)
}

func (e *BlockError) Unwrap() error { return e.Err }

// Generation stages reported by GenerateError.
const (
	StageValidation = "validation"
	StagePipeline   = "pipeline"
	StageBlocks     = "blocks"
	StageTemplate   = "template"
)

var (
	ErrMissingBoundary   = errors.New("missing boundary condition")
	ErrMissingDerivative = errors.New("missing derivative conditions")
	ErrUnknownUnknown    = errors.New("unknown missing from the schema")
	ErrMatrixFree        = errors.New("matrix free generation is not supported")
)

// GenerateError tags a generation failure with the stage that produced it.
type GenerateError struct {
	Stage string
	Err   error
}

func (e *GenerateError) Error() string {
	return fmt.Sprintf("code generation failed at %s: %v", e.Stage, e.Err)
}

func (e *GenerateError) Unwrap() error { return e.Err }
