package profile

import "github.com/gofhir/conformance/definitions"

// State is the outcome of resolving the profile for a resource type.
type State int

const (
	// NotApplicable means the resource type is outside the profile layer.
	NotApplicable State = iota
	// BaseOnly means the type is covered but has no profile of its own.
	BaseOnly
	// NotLoaded means a profile is assigned but the provider does not have it.
	NotLoaded
	// Resolved means the profile is available.
	Resolved
)

func (s State) String() string {
	switch s {
	case NotApplicable:
		return "not-applicable"
	case BaseOnly:
		return "base-only"
	case NotLoaded:
		return "not-loaded"
	case Resolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Lookup is the explicit result of profile resolution.
type Lookup struct {
	State State

	// ProfileID is the mapped id, or the requested URL when one was given
	ProfileID string

	// Profile is set only when State is Resolved
	Profile *definitions.Profile
}

// Lookup resolves the profile for resourceType. A non-empty profileURL
// overrides the mapping.
func (c *Checker) Lookup(resourceType, profileURL string) Lookup {
	if profileURL != "" {
		return c.resolve(profileURL)
	}

	id, mapped := c.cfg.Profiles[resourceType]
	switch {
	case !mapped:
		return Lookup{State: NotApplicable}
	case id == "":
		return Lookup{State: BaseOnly}
	}

	l := c.resolve(id)
	if l.State == NotLoaded && c.provider != nil {
		if url := c.cfg.ProfileURL(resourceType); url != "" {
			if p := c.provider.Profile(url); p != nil {
				return Lookup{State: Resolved, ProfileID: id, Profile: p}
			}
		}
	}
	return l
}

func (c *Checker) resolve(idOrURL string) Lookup {
	if c.provider == nil {
		return Lookup{State: NotLoaded, ProfileID: idOrURL}
	}
	p := c.provider.Profile(idOrURL)
	if p == nil {
		return Lookup{State: NotLoaded, ProfileID: idOrURL}
	}
	return Lookup{State: Resolved, ProfileID: idOrURL, Profile: p}
}
