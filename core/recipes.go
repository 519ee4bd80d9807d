package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/goliatone/go-supertokens/ingredients/emaildelivery"
)

// Capability names an extension point a recipe may take over.
type Capability string

const CapabilityEmailDelivery Capability = "email_delivery"

type capabilityBinding struct {
	implements func(recipe Recipe) bool
	invoke     func(ctx context.Context, recipe Recipe, request any) error
}

var capabilityBindings = map[Capability]capabilityBinding{
	CapabilityEmailDelivery: {
		implements: func(recipe Recipe) bool {
			_, ok := recipe.(emaildelivery.EmailDelivery)
			return ok
		},
		invoke: invokeEmailDelivery,
	},
}

// KnownCapabilities lists every capability the registry can dispatch.
func KnownCapabilities() []Capability {
	return []Capability{CapabilityEmailDelivery}
}

// RecipeHandle references one registered recipe together with the
// capabilities detected when it was registered.
type RecipeHandle struct {
	recipe       Recipe
	position     int
	capabilities []Capability
}

func (h RecipeHandle) Recipe() Recipe { return h.recipe }

func (h RecipeHandle) RecipeID() string {
	if h.recipe == nil {
		return ""
	}
	return strings.TrimSpace(h.recipe.RecipeID())
}

// Position is the zero based registration order.
func (h RecipeHandle) Position() int { return h.position }

func (h RecipeHandle) Capabilities() []Capability {
	return append([]Capability(nil), h.capabilities...)
}

func (h RecipeHandle) Implements(capability Capability) bool {
	for _, declared := range h.capabilities {
		if declared == capability {
			return true
		}
	}
	return false
}

// RecipeRegistry keeps recipes in registration order. It accepts
// registrations until sealed and is read only afterwards.
type RecipeRegistry struct {
	mu      sync.RWMutex
	handles []RecipeHandle
	sealed  atomic.Bool
}

func NewRecipeRegistry(recipes ...Recipe) (*RecipeRegistry, error) {
	registry := &RecipeRegistry{}
	for _, recipe := range recipes {
		if _, err := registry.Register(recipe); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register appends recipe. Several recipes may share an id; the last one
// registered for a capability handles it.
func (r *RecipeRegistry) Register(recipe Recipe) (RecipeHandle, error) {
	if r == nil {
		return RecipeHandle{}, internalError("core: recipe registry is nil")
	}
	if recipe == nil {
		return RecipeHandle{}, badInputError("core: recipe is nil", nil)
	}
	id := strings.TrimSpace(recipe.RecipeID())
	if id == "" {
		return RecipeHandle{}, badInputError("core: recipe id is required", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed.Load() {
		return RecipeHandle{}, badInputError(
			fmt.Sprintf("core: recipe registry is sealed, cannot register %s", id),
			map[string]any{"recipe_id": id},
		)
	}
	handle := RecipeHandle{
		recipe:       recipe,
		position:     len(r.handles),
		capabilities: detectCapabilities(recipe),
	}
	r.handles = append(r.handles, handle)
	return handle, nil
}

// Seal ends the registration phase.
func (r *RecipeRegistry) Seal() {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.sealed.Store(true)
	r.mu.Unlock()
}

func (r *RecipeRegistry) Sealed() bool {
	return r != nil && r.sealed.Load()
}

// Recipes returns the handles in registration order.
func (r *RecipeRegistry) Recipes() []RecipeHandle {
	handles := r.snapshot()
	return append([]RecipeHandle(nil), handles...)
}

// Lookup returns the last registered recipe implementing capability.
func (r *RecipeRegistry) Lookup(capability Capability) (RecipeHandle, bool) {
	handles := r.snapshot()
	for index := len(handles) - 1; index >= 0; index-- {
		if handles[index].Implements(capability) {
			return handles[index], true
		}
	}
	return RecipeHandle{}, false
}

// Invoke hands request to the recipe that currently owns capability.
func (r *RecipeRegistry) Invoke(ctx context.Context, capability Capability, request any) error {
	binding, ok := capabilityBindings[capability]
	if !ok {
		return capabilityNotImplementedError(capability)
	}
	handle, ok := r.Lookup(capability)
	if !ok {
		return capabilityNotImplementedError(capability)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return binding.invoke(ctx, handle.recipe, request)
}

// ResolveCapability returns the last registered recipe implementing C. It
// serves capability interfaces defined outside this package.
func ResolveCapability[C any](r *RecipeRegistry) (C, bool) {
	var zero C
	handles := r.snapshot()
	for index := len(handles) - 1; index >= 0; index-- {
		if typed, ok := handles[index].recipe.(C); ok {
			return typed, true
		}
	}
	return zero, false
}

func (r *RecipeRegistry) snapshot() []RecipeHandle {
	if r == nil {
		return nil
	}
	// sealed registries never change, so readers skip the lock
	if r.sealed.Load() {
		return r.handles
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handles[:len(r.handles):len(r.handles)]
}

func detectCapabilities(recipe Recipe) []Capability {
	var capabilities []Capability
	for _, capability := range KnownCapabilities() {
		if capabilityBindings[capability].implements(recipe) {
			capabilities = append(capabilities, capability)
		}
	}
	return capabilities
}

func invokeEmailDelivery(ctx context.Context, recipe Recipe, request any) error {
	var input emaildelivery.Input
	switch typed := request.(type) {
	case emaildelivery.Input:
		input = typed
	case *emaildelivery.Input:
		if typed != nil {
			input = *typed
		}
	case emaildelivery.Request:
		input = emaildelivery.Input{Request: typed}
	default:
		return badInputError(
			fmt.Sprintf("core: email delivery expects emaildelivery.Input, got %T", request),
			map[string]any{"capability": string(CapabilityEmailDelivery)},
		)
	}
	if err := input.Validate(); err != nil {
		return err
	}
	delivery, ok := recipe.(emaildelivery.EmailDelivery)
	if !ok {
		return capabilityNotImplementedError(CapabilityEmailDelivery)
	}
	return delivery.SendEmail(ctx, input)
}
