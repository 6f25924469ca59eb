// Package notifications is the observer registry repositories raise their
// lifecycle notifications through. A registry is created by the owner of the
// repositories and passed to their constructors; nothing is global.
package notifications

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// SavingArgs is raised before entities are saved. Handlers may cancel.
type SavingArgs[T any] struct {
	Entities  []T
	cancelled bool
	messages  []string
}

// Cancel vetoes the save. The optional reason is kept for the caller.
func (a *SavingArgs[T]) Cancel(reason ...string) {
	a.cancelled = true
	a.messages = append(a.messages, reason...)
}

func (a *SavingArgs[T]) Cancelled() bool { return a.cancelled }

func (a *SavingArgs[T]) Messages() []string { return append([]string(nil), a.messages...) }

// SavedArgs is raised after entities were saved.
type SavedArgs[T any] struct {
	Entities []T
}

// EntityArgs is raised for a single entity, after a write has refreshed it or
// before it is removed.
type EntityArgs[T any] struct {
	Entity T
}

// VersionArgs is raised before a content version is removed.
type VersionArgs struct {
	EntityID  int
	VersionID uuid.UUID
}

// Registry holds the subscribers for one entity type.
type Registry[T any] struct {
	mu              sync.RWMutex
	saving          []func(context.Context, *SavingArgs[T])
	saved           []func(context.Context, SavedArgs[T])
	refreshed       []func(context.Context, EntityArgs[T])
	removing        []func(context.Context, EntityArgs[T])
	removingVersion []func(context.Context, VersionArgs)
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{}
}

func (r *Registry[T]) OnSaving(fn func(context.Context, *SavingArgs[T])) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saving = append(r.saving, fn)
}

func (r *Registry[T]) OnSaved(fn func(context.Context, SavedArgs[T])) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, fn)
}

func (r *Registry[T]) OnRefreshed(fn func(context.Context, EntityArgs[T])) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshed = append(r.refreshed, fn)
}

func (r *Registry[T]) OnRemoving(fn func(context.Context, EntityArgs[T])) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removing = append(r.removing, fn)
}

func (r *Registry[T]) OnRemovingVersion(fn func(context.Context, VersionArgs)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removingVersion = append(r.removingVersion, fn)
}

// RaiseSaving runs the saving handlers in registration order and reports
// whether any of them cancelled. Every handler runs even after a cancel.
func (r *Registry[T]) RaiseSaving(ctx context.Context, args *SavingArgs[T]) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	handlers := append([]func(context.Context, *SavingArgs[T]){}, r.saving...)
	r.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, args)
	}
	return args.Cancelled()
}

func (r *Registry[T]) RaiseSaved(ctx context.Context, args SavedArgs[T]) {
	if r == nil {
		return
	}
	r.mu.RLock()
	handlers := append([]func(context.Context, SavedArgs[T]){}, r.saved...)
	r.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, args)
	}
}

func (r *Registry[T]) RaiseRefreshed(ctx context.Context, entity T) {
	if r == nil {
		return
	}
	r.mu.RLock()
	handlers := append([]func(context.Context, EntityArgs[T]){}, r.refreshed...)
	r.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, EntityArgs[T]{Entity: entity})
	}
}

func (r *Registry[T]) RaiseRemoving(ctx context.Context, entity T) {
	if r == nil {
		return
	}
	r.mu.RLock()
	handlers := append([]func(context.Context, EntityArgs[T]){}, r.removing...)
	r.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, EntityArgs[T]{Entity: entity})
	}
}

func (r *Registry[T]) RaiseRemovingVersion(ctx context.Context, args VersionArgs) {
	if r == nil {
		return
	}
	r.mu.RLock()
	handlers := append([]func(context.Context, VersionArgs){}, r.removingVersion...)
	r.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, args)
	}
}
