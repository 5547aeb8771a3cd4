package conformance

// ValidationOptions configures a single validation call.
// It is passed per call and never stored as global state.
type ValidationOptions struct {
	// ProfileURL selects a profile by canonical URL instead of the resource-type mapping
	ProfileURL string `json:"profile,omitempty" yaml:"profile_url"`

	// ValidateCodeSystems enables the soft coding-pair pass (warnings)
	ValidateCodeSystems bool `json:"validate_code_systems" yaml:"validate_code_systems"`

	// ValidateValueSets enables value-set membership checks for profile bindings
	ValidateValueSets bool `json:"validate_value_sets" yaml:"validate_value_sets"`

	// UseProfileLayer runs the profile conformance checker
	UseProfileLayer bool `json:"use_profile_layer" yaml:"use_profile_layer"`

	// StrictProfileLayer makes profile-layer errors block validity
	StrictProfileLayer bool `json:"strict_profile_layer" yaml:"strict_profile_layer"`
}

// Option mutates ValidationOptions.
type Option func(*ValidationOptions)

// DefaultOptions returns the default per-call configuration: base
// specification only, with code-system and value-set checks enabled.
func DefaultOptions() ValidationOptions {
	return ValidationOptions{
		ValidateCodeSystems: true,
		ValidateValueSets:   true,
		UseProfileLayer:     false,
		StrictProfileLayer:  true,
	}
}

// NewOptions applies opts on top of DefaultOptions.
func NewOptions(opts ...Option) ValidationOptions {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithProfileURL selects the profile to validate against.
func WithProfileURL(url string) Option {
	return func(o *ValidationOptions) {
		o.ProfileURL = url
	}
}

// WithCodeSystems toggles the coding-system pass.
func WithCodeSystems(enable bool) Option {
	return func(o *ValidationOptions) {
		o.ValidateCodeSystems = enable
	}
}

// WithValueSets toggles value-set membership checks.
func WithValueSets(enable bool) Option {
	return func(o *ValidationOptions) {
		o.ValidateValueSets = enable
	}
}

// WithProfileLayer enables the profile layer; strict makes its errors blocking.
func WithProfileLayer(enable, strict bool) Option {
	return func(o *ValidationOptions) {
		o.UseProfileLayer = enable
		o.StrictProfileLayer = strict
	}
}

// BaseOptions returns options for base-specification-only validation.
func BaseOptions() []Option {
	return []Option{
		WithProfileLayer(false, false),
	}
}

// StrictProfileOptions returns options enforcing the profile layer.
func StrictProfileOptions() []Option {
	return []Option{
		WithProfileLayer(true, true),
	}
}
