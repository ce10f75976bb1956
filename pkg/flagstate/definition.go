package flagstate

// Rule computes a flag's declared value from caller-supplied arguments.
// Rules must be pure: same arguments, same result.
type Rule func(args ...any) bool

// Definition declares a single feature flag: either a fixed boolean default
// or a rule evaluated against caller-supplied arguments. Definitions are
// immutable once handed to a registry.
type Definition struct {
	name string
	rule Rule
	def  bool
}

// Bool declares a flag with a fixed boolean default.
func Bool(name string, def bool) Definition {
	return Definition{name: name, def: def}
}

// Computed declares a flag whose declared value comes from a rule.
func Computed(name string, rule Rule) Definition {
	return Definition{name: name, rule: rule}
}

// Name returns the declared flag name.
func (d Definition) Name() string { return d.name }

// IsRule reports whether the flag is backed by a rule rather than a fixed default.
func (d Definition) IsRule() bool { return d.rule != nil }

// Evaluate computes the declared value: the fixed default for plain flags,
// or the rule applied to args for rule-backed flags.
func (d Definition) Evaluate(args ...any) bool {
	if d.rule != nil {
		return d.rule(args...)
	}
	return d.def
}
