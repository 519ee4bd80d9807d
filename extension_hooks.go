package supertokens

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-supertokens/core"
)

// RecipePack is a named group of recipes shipped by a downstream module.
type RecipePack struct {
	Name    string
	Recipes []core.Recipe
}

type CommandQueryBundleFactory func(client CommandQueryClient) (any, error)

// ExtensionHooks collects recipe packs and command/query bundles before a
// client is built. Packs apply in name order.
type ExtensionHooks struct {
	mu sync.RWMutex

	recipePacks map[string]RecipePack
	bundles     map[string]CommandQueryBundleFactory
}

func NewExtensionHooks() *ExtensionHooks {
	return &ExtensionHooks{
		recipePacks: map[string]RecipePack{},
		bundles:     map[string]CommandQueryBundleFactory{},
	}
}

func (h *ExtensionHooks) RegisterRecipePack(pack RecipePack) error {
	if h == nil {
		return fmt.Errorf("supertokens: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("supertokens: recipe pack name is required")
	}
	if len(pack.Recipes) == 0 {
		return fmt.Errorf("supertokens: recipe pack %q has no recipes", name)
	}
	for _, recipe := range pack.Recipes {
		if recipe == nil {
			return fmt.Errorf("supertokens: recipe pack %q contains nil recipe", name)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.recipePacks[name]; exists {
		return fmt.Errorf("supertokens: recipe pack %q already registered", name)
	}
	h.recipePacks[name] = RecipePack{
		Name:    name,
		Recipes: append([]core.Recipe(nil), pack.Recipes...),
	}
	return nil
}

func (h *ExtensionHooks) RegisterCommandQueryBundle(name string, factory CommandQueryBundleFactory) error {
	if h == nil {
		return fmt.Errorf("supertokens: extension hooks are nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("supertokens: command/query bundle name is required")
	}
	if factory == nil {
		return fmt.Errorf("supertokens: command/query bundle %q factory is required", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.bundles[name]; exists {
		return fmt.Errorf("supertokens: command/query bundle %q already registered", name)
	}
	h.bundles[name] = factory
	return nil
}

// RecipeOption registers every pack's recipes with the client, packs in name
// order and recipes in pack order. Recipes passed through later options
// still override them.
func (h *ExtensionHooks) RecipeOption() Option {
	var recipes []core.Recipe
	for _, pack := range h.RecipePacks() {
		recipes = append(recipes, pack.Recipes...)
	}
	return core.WithRecipes(recipes...)
}

func (h *ExtensionHooks) RecipePacks() []RecipePack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]RecipePack, 0, len(h.recipePacks))
	for _, name := range sortedNames(h.recipePacks) {
		pack := h.recipePacks[name]
		out = append(out, RecipePack{
			Name:    pack.Name,
			Recipes: append([]core.Recipe(nil), pack.Recipes...),
		})
	}
	return out
}

func (h *ExtensionHooks) BuildCommandQueryBundles(client CommandQueryClient) (map[string]any, error) {
	if h == nil {
		return map[string]any{}, nil
	}
	if client == nil {
		return nil, fmt.Errorf("supertokens: command/query client is required")
	}

	h.mu.RLock()
	names := sortedNames(h.bundles)
	factories := make(map[string]CommandQueryBundleFactory, len(h.bundles))
	for name, factory := range h.bundles {
		factories[name] = factory
	}
	h.mu.RUnlock()

	result := make(map[string]any, len(names))
	for _, name := range names {
		bundle, err := factories[name](client)
		if err != nil {
			return nil, fmt.Errorf("supertokens: build bundle %q: %w", name, err)
		}
		result[name] = bundle
	}
	return result, nil
}

func (h *ExtensionHooks) BundleNames() []string {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return sortedNames(h.bundles)
}

func sortedNames[V any](values map[string]V) []string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
