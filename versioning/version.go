package versioning

import (
	"fmt"
	"iter"

	"github.com/Masterminds/semver/v3"
)

// ToolVersion is the version of this build. It is stamped on every container the tool
// creates so that later builds can decide whether they understand it.
// Set at build time via ldflags.
var ToolVersion = "0.1.1"

const (
	// DefaultToolConstraint accepts containers created by builds this one can read.
	DefaultToolConstraint = "^0.1"

	// DefaultWorkloadConstraint accepts application images this build knows how to configure.
	DefaultWorkloadConstraint = "^0.3"
)

// Contract holds the two compatibility predicates: one for the tool version stamped on a
// container, one for the workload image tags.
type Contract struct {
	tool     *semver.Constraints
	workload *semver.Constraints
}

// NewContract parses both caret-style constraints.
func NewContract(tool, workload string) (Contract, error) {
	toolConstraint, err := semver.NewConstraint(tool)
	if err != nil {
		return Contract{}, fmt.Errorf("invalid tool constraint %q: %w", tool, err)
	}

	workloadConstraint, err := semver.NewConstraint(workload)
	if err != nil {
		return Contract{}, fmt.Errorf("invalid workload constraint %q: %w", workload, err)
	}

	return Contract{
		tool:     toolConstraint,
		workload: workloadConstraint,
	}, nil
}

// DefaultContract returns the contract compiled into this build.
func DefaultContract() Contract {
	contract, err := NewContract(DefaultToolConstraint, DefaultWorkloadConstraint)
	if err != nil {
		panic(err)
	}
	return contract
}

// CurrentToolVersion returns ToolVersion parsed as a semantic version.
func CurrentToolVersion() (*semver.Version, error) {
	v, err := semver.StrictNewVersion(ToolVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid tool version %q: %w", ToolVersion, err)
	}
	return v, nil
}

// ParseTag parses a tag as a strict semantic version. Tags such as "latest",
// "sha-abc" or "v1.2" are rejected.
func ParseTag(tag string) (*semver.Version, bool) {
	v, err := semver.StrictNewVersion(tag)
	if err != nil {
		return nil, false
	}
	return v, true
}

// ToolCompatible reports whether a container stamped with version v can be managed.
func (c Contract) ToolCompatible(v *semver.Version) bool {
	return v != nil && c.tool != nil && c.tool.Check(v)
}

// WorkloadCompatible reports whether workload version v can be run and configured.
// Pre-releases never match unless the constraint names one.
func (c Contract) WorkloadCompatible(v *semver.Version) bool {
	return v != nil && c.workload != nil && c.workload.Check(v)
}

// ToolCompatibleLabel parses a tool version label value and checks it.
// Missing or unparsable values are incompatible.
func (c Contract) ToolCompatibleLabel(value string) bool {
	v, ok := ParseTag(value)
	if !ok {
		return false
	}
	return c.ToolCompatible(v)
}

// CompatibleWorkloadVersions lazily yields the tags that parse as versions and satisfy the
// workload constraint, in input order. Unparsable tags are dropped.
func (c Contract) CompatibleWorkloadVersions(tags []string) iter.Seq[*semver.Version] {
	return func(yield func(*semver.Version) bool) {
		for _, tag := range tags {
			v, ok := ParseTag(tag)
			if !ok {
				continue
			}
			if !c.WorkloadCompatible(v) {
				continue
			}
			if !yield(v) {
				return
			}
		}
	}
}

// HasCompatibleWorkloadVersion reports whether at least one tag is compatible.
func (c Contract) HasCompatibleWorkloadVersion(tags []string) bool {
	for range c.CompatibleWorkloadVersions(tags) {
		return true
	}
	return false
}

// String renders the contract for diagnostics.
func (c Contract) String() string {
	tool, workload := "<none>", "<none>"
	if c.tool != nil {
		tool = c.tool.String()
	}
	if c.workload != nil {
		workload = c.workload.String()
	}
	return fmt.Sprintf("tool %s, workload %s", tool, workload)
}
