/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

// Package packageindex is the VM-facing, read-only cache over external
// function package metadata. The package registry's own query protocol is
// an out-of-scope external collaborator; this is the cache of its answers
// that a VM actually calls into when a FunctionExt's descriptor needs
// resolving against a package kind it wasn't compiled with.
package packageindex

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/stackedboxes/pararuna/pkg/errs"
)

// Source is how an Index fills a cache miss: a call out to whatever backs
// the real package registry. Index never talks to a registry directly.
type Source interface {
	Resolve(kind string) (descriptor string, err error)
}

// Index is a bounded, read-only (from the VM's perspective) cache mapping a
// package kind to its resolved job descriptor.
type Index struct {
	cache  *lru.Cache[string, string]
	source Source
}

// DefaultSize is the cache's default entry capacity.
const DefaultSize = 256

// New creates an Index of the given size, backed by source. A non-positive
// size falls back to DefaultSize.
func New(source Source, size int) (*Index, errs.Error) {
	if size <= 0 {
		size = DefaultSize
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, errs.NewTool("creating package index cache: %v", err)
	}
	return &Index{cache: cache, source: source}, nil
}

// Lookup resolves kind to a job descriptor, consulting the cache first and
// falling back to source on a miss. Fulfills vm.PackageIndex.
func (idx *Index) Lookup(kind string) (string, error) {
	if descriptor, ok := idx.cache.Get(kind); ok {
		return descriptor, nil
	}

	descriptor, err := idx.source.Resolve(kind)
	if err != nil {
		return "", errs.NewTool("resolving package kind %q: %v", kind, err)
	}

	idx.cache.Add(kind, descriptor)
	return descriptor, nil
}

// Preload seeds the cache directly, bypassing Source, for kinds whose
// descriptor is already known and need no registry query (tests use it this
// way).
func (idx *Index) Preload(kind, descriptor string) {
	idx.cache.Add(kind, descriptor)
}

// Len reports how many entries are currently cached.
func (idx *Index) Len() int {
	return idx.cache.Len()
}
