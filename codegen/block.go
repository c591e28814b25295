// Package codegen assembles generated simulation sources from building
// blocks. A backend registers one emitter per construct kind in a Factory;
// a Collector gathers the emitted blocks in order and merges them into the
// translation unit handed to the backend renderer.
package codegen

import "slices"

// ============================================================
// Block
// ============================================================

// Block is a bundle of code fragments produced by one emitter call.
//
// Includes, AdditionalNames, AdditionalVectors and AdditionalMatrixes are
// ordered sets; use the Add helpers to keep them duplicate free.
type Block struct {
	Includes []string
	// Data holds member declarations of the simulation class.
	Data []string
	// Setup runs once, before time stepping.
	Setup []string
	// AdditionalNames are identifiers a block declares implicitly.
	AdditionalNames []string
	// Constructor holds member initializers.
	Constructor []string
	MethodDefs  []string
	MethodImpls []string
	// Main runs once per time step.
	Main []string
	// MainSetup runs once, right before time stepping.
	MainSetup []string
	// AdditionalVectors and AdditionalMatrixes name temporaries that must be
	// declared once by the collector.
	AdditionalVectors  []string
	AdditionalMatrixes []string
	Global             []string
	Output             []string
}

func NewBlock() *Block { return &Block{} }

func addUnique(set []string, items ...string) []string {
	for _, it := range items {
		if !slices.Contains(set, it) {
			set = append(set, it)
		}
	}
	return set
}

func (b *Block) AddIncludes(includes ...string) { b.Includes = addUnique(b.Includes, includes...) }
func (b *Block) AddName(names ...string)        { b.AdditionalNames = addUnique(b.AdditionalNames, names...) }
func (b *Block) AddVector(names ...string)      { b.AdditionalVectors = addUnique(b.AdditionalVectors, names...) }
func (b *Block) AddMatrix(names ...string)      { b.AdditionalMatrixes = addUnique(b.AdditionalMatrixes, names...) }

// Merge appends every fragment of o to b.
func (b *Block) Merge(o *Block) {
	b.AddIncludes(o.Includes...)
	b.AddName(o.AdditionalNames...)
	b.AddVector(o.AdditionalVectors...)
	b.AddMatrix(o.AdditionalMatrixes...)
	b.Data = append(b.Data, o.Data...)
	b.Setup = append(b.Setup, o.Setup...)
	b.Constructor = append(b.Constructor, o.Constructor...)
	b.MethodDefs = append(b.MethodDefs, o.MethodDefs...)
	b.MethodImpls = append(b.MethodImpls, o.MethodImpls...)
	b.Main = append(b.Main, o.Main...)
	b.MainSetup = append(b.MainSetup, o.MainSetup...)
	b.Global = append(b.Global, o.Global...)
	b.Output = append(b.Output, o.Output...)
}
