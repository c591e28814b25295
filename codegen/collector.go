package codegen

import (
	"fmt"
	"slices"
)

// ============================================================
// Collector
// ============================================================

type namedBlock struct {
	name  string
	block *Block
}

// Collector gathers named blocks in insertion order.
type Collector struct {
	factory *Factory
	blocks  []namedBlock
	// names reserved by the AdditionalNames of the blocks added so far.
	names []string
}

func NewCollector(f *Factory) *Collector { return &Collector{factory: f} }

func (c *Collector) Factory() *Factory { return c.factory }

// Has reports whether a block called name was added.
func (c *Collector) Has(name string) bool {
	return slices.ContainsFunc(c.blocks, func(nb namedBlock) bool { return nb.name == name })
}

// Len returns the number of blocks added.
func (c *Collector) Len() int { return len(c.blocks) }

// Add appends b under name and returns name.
func (c *Collector) Add(name string, b *Block) (string, error) {
	if c.Has(name) {
		return "", &BlockError{Block: name, Factory: c.factory.Name(), Err: ErrBlockAlreadyExists}
	}
	if slices.Contains(c.names, name) {
		return "", &BlockError{Block: name, Factory: c.factory.Name(), Err: ErrNameAlreadyExists}
	}
	c.blocks = append(c.blocks, namedBlock{name: name, block: b})
	c.names = addUnique(c.names, b.AdditionalNames...)
	return name, nil
}

// Create emits a block of the given kind and adds it under name.
func Create[C any](c *Collector, kind, name string, cfg C) (string, error) {
	b, err := Emit(c.factory, kind, name, cfg)
	if err != nil {
		return "", err
	}
	return c.Add(name, b)
}

func (c *Collector) autoName(kind string) string { return fmt.Sprintf("%s#%d", kind, len(c.blocks)) }

// Call adds a call of the function name in the time loop.
func (c *Collector) Call(name string, args ...string) (string, error) {
	return Create(c, KindCall, c.autoName(KindCall), append([]string{name}, args...))
}

// Comment adds a comment line in the time loop.
func (c *Collector) Comment(text string) (string, error) {
	return Create(c, KindComment, c.autoName(KindComment), text)
}

// Newline adds an empty line in the time loop.
func (c *Collector) Newline() (string, error) {
	return Create(c, KindNewline, c.autoName(KindNewline), struct{}{})
}

// AddVectorOutput writes vector v with the simulation results.
func (c *Collector) AddVectorOutput(v string) (string, error) {
	return Create(c, KindAddVectorOutput, "add_vector_output_"+v, v)
}

// Collect declares every temporary vector and matrix required by the
// blocks, once each, and merges everything into one block in order.
func (c *Collector) Collect(dofHandler, sparsityPattern string) (*Block, error) {
	var vectors, matrixes []string
	for _, nb := range c.blocks {
		vectors = addUnique(vectors, nb.block.AdditionalVectors...)
		matrixes = addUnique(matrixes, nb.block.AdditionalMatrixes...)
	}
	for _, v := range vectors {
		if c.Has(v) {
			continue
		}
		if _, err := Create(c, KindVector, v, VectorConfig{DofHandler: dofHandler}); err != nil {
			return nil, err
		}
	}
	for _, m := range matrixes {
		if c.Has(m) {
			continue
		}
		if _, err := Create(c, KindMatrix, m, MatrixConfig{SparsityPattern: sparsityPattern}); err != nil {
			return nil, err
		}
	}

	out := NewBlock()
	for _, nb := range c.blocks {
		out.Merge(nb.block)
	}
	return out, nil
}
