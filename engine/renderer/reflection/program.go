package reflection

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/lumen/engine/core"
)

/**
 * @brief The merged resource interface of one shader program.
 *
 * Stages may be added in any order; merging is commutative except for which
 * insertion reports a conflict first. The zero value is not usable, call New.
 */
type ProgramReflection struct {
	resources  map[string]PipelineResource
	activeSets map[uint32]struct{}
}

func New() *ProgramReflection {
	return &ProgramReflection{
		resources:  make(map[string]PipelineResource),
		activeSets: make(map[uint32]struct{}),
	}
}

// AddResource inserts a resource or merges it into an existing entry with the
// same name by widening the stage mask. A declaration that differs in type,
// set, binding or array size is a hard error; the reflection is left
// unchanged in that case.
func (pr *ProgramReflection) AddResource(res PipelineResource) error {
	existing, ok := pr.resources[res.Name]
	if ok {
		if !existing.compatibleWith(res) {
			return fmt.Errorf("%w: %q declared as %s(set=%d, binding=%d, count=%d) and %s(set=%d, binding=%d, count=%d)",
				core.ErrReflectionConflict, res.Name,
				existing.Type, existing.Set, existing.Binding, existing.ArraySize,
				res.Type, res.Set, res.Binding, res.ArraySize)
		}
		existing.Stages |= res.Stages
		// Stages may declare the same block with a different number of
		// trailing members; the widest declaration wins.
		if res.Size > existing.Size {
			existing.Size = res.Size
		}
		pr.resources[res.Name] = existing
		return nil
	}

	pr.resources[res.Name] = res
	if res.Type != ResourceTypePushConstantBuffer {
		pr.activeSets[res.Set] = struct{}{}
	}
	return nil
}

// AddResources applies AddResource in sequence order. The first conflict
// aborts the whole batch.
func (pr *ProgramReflection) AddResources(resources []PipelineResource) error {
	for _, res := range resources {
		if err := pr.AddResource(res); err != nil {
			return err
		}
	}
	return nil
}

// Resources returns all resources ordered by (set, binding, name) so that
// generated layouts are reproducible across runs.
func (pr *ProgramReflection) Resources() []PipelineResource {
	out := maps.Values(pr.resources)
	sortResources(out)
	return out
}

// Resource resolves a resource name to its descriptor.
func (pr *ProgramReflection) Resource(name string) (PipelineResource, bool) {
	res, ok := pr.resources[name]
	return res, ok
}

// ResourcesByType returns the resources of the given kind, in layout order.
func (pr *ProgramReflection) ResourcesByType(t ResourceType) []PipelineResource {
	out := []PipelineResource{}
	for _, res := range pr.resources {
		if res.Type == t {
			out = append(out, res)
		}
	}
	sortResources(out)
	return out
}

// ResourcesBySet returns the descriptor resources of one set, in layout
// order. Push constant blocks never appear here.
func (pr *ProgramReflection) ResourcesBySet(set uint32) []PipelineResource {
	out := []PipelineResource{}
	for _, res := range pr.resources {
		if res.Type != ResourceTypePushConstantBuffer && res.Set == set {
			out = append(out, res)
		}
	}
	sortResources(out)
	return out
}

// ActiveSets returns the distinct set indices referenced by at least one
// descriptor resource, ascending.
func (pr *ProgramReflection) ActiveSets() []uint32 {
	sets := maps.Keys(pr.activeSets)
	slices.Sort(sets)
	return sets
}

// DumpInfo logs the current merged state. Debugging aid only.
func (pr *ProgramReflection) DumpInfo() {
	core.LogDebug("program reflection: %d resources, active sets %v", len(pr.resources), pr.ActiveSets())
	for _, res := range pr.Resources() {
		if res.Type == ResourceTypePushConstantBuffer {
			core.LogDebug("  %-24s %-20s offset=%d size=%d stages=%s",
				res.Name, res.Type, res.Offset, res.Size, res.Stages)
			continue
		}
		core.LogDebug("  %-24s %-20s set=%d binding=%d count=%d size=%d stages=%s",
			res.Name, res.Type, res.Set, res.Binding, res.ArraySize, res.Size, res.Stages)
	}
}

func sortResources(resources []PipelineResource) {
	slices.SortFunc(resources, func(a, b PipelineResource) int {
		if a.Set != b.Set {
			return int(a.Set) - int(b.Set)
		}
		if a.Binding != b.Binding {
			return int(a.Binding) - int(b.Binding)
		}
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
}
