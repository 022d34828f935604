package tool

import (
	"context"
	"fmt"
	"strings"
	"time"

	contractx "github.com/KohJunJie/tour-agent-planner/agent/contract"
)

type ParamType string

const (
	ParamString ParamType = "string"
	ParamBool   ParamType = "bool"
)

type Param struct {
	Name     string
	Type     ParamType
	Desc     string
	Required bool
	Default  any
}

// Descriptor is a statically declared capability: a name, an argument schema,
// and a pure function. The registry is a closed set built at construction
// time, not a plugin surface.
type Descriptor struct {
	Name   string
	Desc   string
	Params []Param
	Fn     func(ctx context.Context, args map[string]any) (string, error)
}

type Config struct {
	// InvokeTimeout bounds a single tool invocation; zero disables the bound.
	InvokeTimeout time.Duration `envconfig:"INVOKE_TIMEOUT" split_words:"true" default:"0s"`
}

type Registry struct {
	tools   map[string]Descriptor
	order   []string
	timeout time.Duration
}

// NewRegistry builds the registry with the travel-search tool set.
func NewRegistry(cfg Config) *Registry {
	return newRegistry(cfg, FlightSearchDescriptor(), HotelSearchDescriptor())
}

func newRegistry(cfg Config, descriptors ...Descriptor) *Registry {
	r := &Registry{
		tools:   make(map[string]Descriptor, len(descriptors)),
		timeout: cfg.InvokeTimeout,
	}
	for _, d := range descriptors {
		if _, ok := r.tools[d.Name]; ok {
			continue
		}
		r.tools[d.Name] = d
		r.order = append(r.order, d.Name)
	}
	return r
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Invoke looks the tool up, validates the raw arguments against its schema
// and runs the body. Unknown extra arguments are ignored; missing required or
// mistyped fields fail with ErrValidation listing every offending field.
func (r *Registry) Invoke(ctx context.Context, req contractx.ToolRequest) (contractx.ToolResult, error) {
	desc, ok := r.tools[req.Tool]
	if !ok {
		return contractx.ToolResult{}, fmt.Errorf("%w: %q", contractx.ErrUnknownTool, req.Tool)
	}

	args, err := validateArgs(desc, req.Args)
	if err != nil {
		return contractx.ToolResult{}, err
	}

	output, err := r.run(ctx, desc, args)
	if err != nil {
		return contractx.ToolResult{}, err
	}
	return contractx.ToolResult{Tool: desc.Name, Output: output}, nil
}

func (r *Registry) run(ctx context.Context, desc Descriptor, args map[string]any) (string, error) {
	if r.timeout <= 0 {
		return desc.Fn(ctx, args)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type result struct {
		output string
		err    error
	}
	done := make(chan result, 1)
	go func() {
		output, err := desc.Fn(ctx, args)
		done <- result{output: output, err: err}
	}()

	select {
	case res := <-done:
		return res.output, res.err
	case <-ctx.Done():
		return "", fmt.Errorf("tool %s: %w", desc.Name, ctx.Err())
	}
}

func validateArgs(desc Descriptor, raw map[string]any) (map[string]any, error) {
	args := make(map[string]any, len(desc.Params))
	var bad []string

	for _, p := range desc.Params {
		value, ok := raw[p.Name]
		if !ok || value == nil {
			if p.Required {
				bad = append(bad, p.Name+" (missing)")
				continue
			}
			if p.Default != nil {
				args[p.Name] = p.Default
			}
			continue
		}

		switch p.Type {
		case ParamString:
			s, isString := value.(string)
			if !isString {
				bad = append(bad, p.Name+" (must be a string)")
				continue
			}
			if p.Required && strings.TrimSpace(s) == "" {
				bad = append(bad, p.Name+" (missing)")
				continue
			}
			args[p.Name] = s
		case ParamBool:
			b, isBool := value.(bool)
			if !isBool {
				bad = append(bad, p.Name+" (must be a bool)")
				continue
			}
			args[p.Name] = b
		default:
			bad = append(bad, p.Name+" (unsupported schema type)")
		}
	}

	if len(bad) > 0 {
		return nil, fmt.Errorf("%w: tool %s arguments: %s", contractx.ErrValidation, desc.Name, strings.Join(bad, ", "))
	}
	return args, nil
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}
