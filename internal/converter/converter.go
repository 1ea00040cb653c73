// Package converter turns a raw record plus a tool-specific mapping
// specification into the canonical execution record.
package converter

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/ppiankov/hdfhub/internal/mapping"
	"github.com/ppiankov/hdfhub/internal/models"
	"github.com/ppiankov/hdfhub/internal/record"
)

// PlatformName is reported in every record's platform block
const PlatformName = "Heimdall Tools"

// Release is the platform release stamped into converted records. The CLI
// sets it from the build version before any conversion runs.
var Release = "dev"

// MalformedInputError reports raw input that is missing structurally
// required sections or could not be parsed at all. Retrying with the same
// input yields the same error.
type MalformedInputError struct {
	Format string
	Reason string
	Err    error
}

func (e *MalformedInputError) Error() string {
	msg := fmt.Sprintf("malformed %s input: %s", e.Format, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedInputError) Unwrap() error {
	return e.Err
}

type options struct {
	post     []func(*models.ExecJSON) error
	collapse bool
}

// Option customizes a BaseConverter
type Option func(*options)

// WithPostProcess runs fn on the decoded record before profile hashes are
// computed. Post-processors run in the order given.
func WithPostProcess(fn func(*models.ExecJSON) error) Option {
	return func(o *options) {
		o.post = append(o.post, fn)
	}
}

// WithCollapseDuplicates merges controls that share an id within a profile
func WithCollapseDuplicates() Option {
	return func(o *options) {
		o.collapse = true
	}
}

// BaseConverter walks a mapping specification over one raw input
type BaseConverter struct {
	raw  record.Value
	spec mapping.Node
	opts options
}

// New creates a converter for raw using spec
func New(raw record.Value, spec mapping.Node, opts ...Option) *BaseConverter {
	c := &BaseConverter{raw: raw, spec: spec}
	for _, opt := range opts {
		opt(&c.opts)
	}
	return c
}

// Map walks the specification and returns the untyped output tree
func (c *BaseConverter) Map() (any, error) {
	return mapping.Walk(c.spec, c.raw)
}

// ToHDF produces the canonical execution record. Profile hashes are the last
// thing computed, after every post-processing step.
func (c *BaseConverter) ToHDF() (*models.ExecJSON, error) {
	out, err := c.Map()
	if err != nil {
		return nil, err
	}

	exec := &models.ExecJSON{}
	if err := Decode(out, exec); err != nil {
		return nil, fmt.Errorf("failed to decode mapped record: %w", err)
	}
	normalize(exec)

	if c.opts.collapse {
		for i := range exec.Profiles {
			exec.Profiles[i].Controls = CollapseDuplicates(exec.Profiles[i].Controls)
		}
	}

	for _, fn := range c.opts.post {
		if err := fn(exec); err != nil {
			return nil, err
		}
	}

	if err := Rehash(exec); err != nil {
		return nil, err
	}
	return exec, nil
}

// Decode copies a mapped output tree into a typed value using its json tags.
// Scalars are coerced where the target type differs (number to string etc).
func Decode(src any, dst any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           dst,
	})
	if err != nil {
		return err
	}
	return dec.Decode(src)
}

// normalize replaces nil collections with empty ones so the serialized
// record always carries the schema's required arrays.
func normalize(exec *models.ExecJSON) {
	if exec.Platform.Name == "" {
		exec.Platform.Name = PlatformName
	}
	if exec.Platform.Release == "" {
		exec.Platform.Release = Release
	}
	if exec.Version == "" {
		exec.Version = Release
	}
	if exec.Profiles == nil {
		exec.Profiles = []models.Profile{}
	}
	for i := range exec.Profiles {
		p := &exec.Profiles[i]
		if p.Supports == nil {
			p.Supports = []map[string]any{}
		}
		if p.Attributes == nil {
			p.Attributes = []map[string]any{}
		}
		if p.Groups == nil {
			p.Groups = []models.Group{}
		}
		if p.Controls == nil {
			p.Controls = []models.Control{}
		}
		for j := range p.Controls {
			ctl := &p.Controls[j]
			if ctl.Descriptions == nil {
				ctl.Descriptions = []models.ControlDescription{}
			}
			if ctl.Tags == nil {
				ctl.Tags = map[string]any{}
			}
			if ctl.Refs == nil {
				ctl.Refs = []map[string]any{}
			}
			if ctl.Results == nil {
				ctl.Results = []models.Result{}
			}
		}
	}
}

// HashControls returns the hex sha256 of the JSON encoding of controls
func HashControls(controls []models.Control) (string, error) {
	if controls == nil {
		controls = []models.Control{}
	}
	data, err := json.Marshal(controls)
	if err != nil {
		return "", fmt.Errorf("failed to serialize controls: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Rehash recomputes every profile's sha256 from its current controls
func Rehash(exec *models.ExecJSON) error {
	for i := range exec.Profiles {
		sum, err := HashControls(exec.Profiles[i].Controls)
		if err != nil {
			return fmt.Errorf("profile %q: %w", exec.Profiles[i].Name, err)
		}
		exec.Profiles[i].SHA256 = sum
	}
	return nil
}

// CollapseDuplicates merges controls with the same id, keeping the first
// occurrence's fields and position and appending later results to it.
func CollapseDuplicates(controls []models.Control) []models.Control {
	if len(controls) < 2 {
		return controls
	}

	out := make([]models.Control, 0, len(controls))
	seen := make(map[string]int, len(controls))
	for _, ctl := range controls {
		if idx, ok := seen[ctl.ID]; ok {
			merged := make([]models.Result, 0, len(out[idx].Results)+len(ctl.Results))
			merged = append(merged, out[idx].Results...)
			merged = append(merged, ctl.Results...)
			out[idx].Results = merged
			continue
		}
		seen[ctl.ID] = len(out)
		out = append(out, ctl)
	}
	return out
}
