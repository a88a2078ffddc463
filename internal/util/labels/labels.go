package labels

import "strings"

// Label keys.
const (
	// KeyEnvironment identifies the environment file a resource belongs to.
	KeyEnvironment = "vnfstack.io/environment"

	// KeyRunID identifies the deploy run that created the resource.
	KeyRunID = "vnfstack.io/run-id"

	// KeyInstance names the instance a port or floating IP was created for.
	KeyInstance = "vnfstack.io/instance"

	// KeyManagedBy identifies the management system.
	KeyManagedBy = "vnfstack.io/managed-by"
)

// ManagedByVNFStack is the KeyManagedBy value for resources created here.
const ManagedByVNFStack = "vnfstack"

// LabelBuilder builds resource labels.
type LabelBuilder struct {
	labels map[string]string
}

// NewLabelBuilder creates a builder with the environment and manager set.
func NewLabelBuilder(environment string) *LabelBuilder {
	return &LabelBuilder{
		labels: map[string]string{
			KeyEnvironment: Sanitize(environment),
			KeyManagedBy:   ManagedByVNFStack,
		},
	}
}

// WithRunID adds the run ID label when id is non-empty.
func (lb *LabelBuilder) WithRunID(id string) *LabelBuilder {
	if id != "" {
		lb.labels[KeyRunID] = id
	}
	return lb
}

// WithInstance adds the instance label.
func (lb *LabelBuilder) WithInstance(name string) *LabelBuilder {
	lb.labels[KeyInstance] = Sanitize(name)
	return lb
}

// Merge adds all labels from the provided map.
func (lb *LabelBuilder) Merge(extra map[string]string) *LabelBuilder {
	for k, v := range extra {
		lb.labels[k] = v
	}
	return lb
}

// Build returns a copy of the labels map.
func (lb *LabelBuilder) Build() map[string]string {
	result := make(map[string]string, len(lb.labels))
	for k, v := range lb.labels {
		result[k] = v
	}
	return result
}

// SelectorForEnvironment returns a label selector for every resource of an environment.
func SelectorForEnvironment(environment string) string {
	return KeyEnvironment + "=" + Sanitize(environment)
}

// Sanitize maps a value onto the label value alphabet accepted by Hetzner
// Cloud: alphanumerics, '-', '_' and '.', at most 63 characters, starting
// and ending with an alphanumeric.
func Sanitize(v string) string {
	var b strings.Builder
	for _, r := range v {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	out := b.String()
	if len(out) > 63 {
		out = out[:63]
	}
	return strings.Trim(out, "-_.")
}
