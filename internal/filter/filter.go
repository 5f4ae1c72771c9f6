// Package filter implements the selective-tracing predicate: wildcard
// include/exclude lists for function names and source files, plus a
// max-depth cap. Applied once per candidate event at record time.
package filter // import "github.com/tracescope/scopetrace/internal/filter"

import (
	"sync"

	"github.com/tracescope/scopetrace/internal/wildcard"
)

// Set holds the four ordered pattern lists and the depth cap. Mutators
// take a write lock and ShouldTrace a read lock, so concurrent calls do
// not race; a mutation made while tracing is in progress applies only to
// events recorded after it, so mutate before tracing starts or at
// quiescent points (spec §4.4).
type Set struct {
	mu sync.RWMutex

	includeFunc []string
	excludeFunc []string
	includeFile []string
	excludeFile []string
	maxDepth    int
}

// New returns a Set with no restrictions: everything is traced, max-depth
// unlimited.
func New() *Set {
	return &Set{maxDepth: -1}
}

// AddIncludeFunction adds a wildcard pattern to the function-include list.
func (s *Set) AddIncludeFunction(pattern string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.includeFunc = append(s.includeFunc, pattern)
}

// AddExcludeFunction adds a wildcard pattern to the function-exclude list.
func (s *Set) AddExcludeFunction(pattern string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.excludeFunc = append(s.excludeFunc, pattern)
}

// AddIncludeFile adds a wildcard pattern to the file-include list.
func (s *Set) AddIncludeFile(pattern string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.includeFile = append(s.includeFile, pattern)
}

// AddExcludeFile adds a wildcard pattern to the file-exclude list.
func (s *Set) AddExcludeFile(pattern string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.excludeFile = append(s.excludeFile, pattern)
}

// SetMaxDepth sets the depth cap. A negative value means unlimited.
func (s *Set) SetMaxDepth(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxDepth = n
}

// Clear resets the Set to its New() state.
func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.includeFunc = nil
	s.excludeFunc = nil
	s.includeFile = nil
	s.excludeFile = nil
	s.maxDepth = -1
}

// ShouldTrace decides whether a candidate event at the given function,
// file and depth should be recorded. Exclude beats include by
// construction; empty include lists mean "accept all not excluded"; a
// null (empty) function or file never rejects on that dimension.
func (s *Set) ShouldTrace(function, file string, depth int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.maxDepth >= 0 && depth > s.maxDepth {
		return false
	}

	if function != "" {
		if wildcard.MatchAny(s.excludeFunc, function) {
			return false
		}
		if len(s.includeFunc) > 0 && !wildcard.MatchAny(s.includeFunc, function) {
			return false
		}
	}

	if file != "" {
		if wildcard.MatchAny(s.excludeFile, file) {
			return false
		}
		if len(s.includeFile) > 0 && !wildcard.MatchAny(s.includeFile, file) {
			return false
		}
	}

	return true
}
