/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package packageindex

import (
	"fmt"
	"testing"
)

type countingSource struct {
	calls int
	table map[string]string
}

func (s *countingSource) Resolve(kind string) (string, error) {
	s.calls++
	descriptor, ok := s.table[kind]
	if !ok {
		return "", fmt.Errorf("unknown package kind: %v", kind)
	}
	return descriptor, nil
}

func TestLookupCachesAfterFirstResolve(t *testing.T) {
	src := &countingSource{table: map[string]string{"render": "svc://render/v1"}}
	idx, err := New(src, 0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		descriptor, lookupErr := idx.Lookup("render")
		if lookupErr != nil {
			t.Fatalf("Lookup failed: %v", lookupErr)
		}
		if descriptor != "svc://render/v1" {
			t.Errorf("expected resolved descriptor, got %v", descriptor)
		}
	}

	if src.calls != 1 {
		t.Errorf("expected exactly one Resolve call, got %v", src.calls)
	}
	if idx.Len() != 1 {
		t.Errorf("expected one cached entry, got %v", idx.Len())
	}
}

func TestLookupPropagatesSourceError(t *testing.T) {
	src := &countingSource{table: map[string]string{}}
	idx, err := New(src, 4)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, lookupErr := idx.Lookup("unknown"); lookupErr == nil {
		t.Fatalf("expected an error for an unresolvable kind")
	}
}

func TestPreloadSkipsSource(t *testing.T) {
	src := &countingSource{table: map[string]string{}}
	idx, err := New(src, 4)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	idx.Preload("render", "svc://render/v1")
	descriptor, lookupErr := idx.Lookup("render")
	if lookupErr != nil {
		t.Fatalf("Lookup failed: %v", lookupErr)
	}
	if descriptor != "svc://render/v1" {
		t.Errorf("expected preloaded descriptor, got %v", descriptor)
	}
	if src.calls != 0 {
		t.Errorf("expected Source never consulted, got %v calls", src.calls)
	}
}
