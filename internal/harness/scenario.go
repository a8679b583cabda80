package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/graphlite/internal/compiler"
)

// Scenario seeds a graph and checks assertions against it.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Specs lists directories of CUE schema declarations. Relative paths
	// are resolved against the scenario file.
	Specs []string `yaml:"specs,omitempty"`

	// Schemas are declared inline, in the same shape the CUE compiler
	// produces.
	Schemas []compiler.Declaration `yaml:"schemas,omitempty"`

	Nodes      []NodeStep  `yaml:"nodes,omitempty"`
	Edges      []EdgeStep  `yaml:"edges,omitempty"`
	Assertions []Assertion `yaml:"assertions"`
}

// NodeStep creates a node.
type NodeStep struct {
	Handle string         `yaml:"handle"`
	Schema string         `yaml:"schema"`
	Fields map[string]any `yaml:"fields,omitempty"`
}

// EdgeStep creates an edge and, when Source and Target are set, connects
// it. Directed defaults to true.
type EdgeStep struct {
	Handle   string         `yaml:"handle"`
	Schema   string         `yaml:"schema"`
	Source   string         `yaml:"source,omitempty"`
	Target   string         `yaml:"target,omitempty"`
	Directed *bool          `yaml:"directed,omitempty"`
	Fields   map[string]any `yaml:"fields,omitempty"`
}

func (e EdgeStep) directed() bool { return e.Directed == nil || *e.Directed }

// Assertion checks the seeded graph.
type Assertion struct {
	Type string `yaml:"type"`

	// Name labels a query in the trace and in failures.
	Name string `yaml:"name,omitempty"`

	// Match selects elements (query).
	Match *MatchSpec `yaml:"match,omitempty"`

	// Handle is the element whose connections are listed (connections).
	Handle string `yaml:"handle,omitempty"`

	// Schema is the schema handle whose elements are counted (count).
	Schema string `yaml:"schema,omitempty"`

	// Expect lists handles (query) or rendered connections such as
	// "a -> ab" (connections).
	Expect []string `yaml:"expect,omitempty"`

	// Unordered compares Expect as a set.
	Unordered bool `yaml:"unordered,omitempty"`

	// Error is the error code a query must fail with.
	Error string `yaml:"error,omitempty"`

	Count *int `yaml:"count,omitempty"`
}

// Assertion types.
const (
	AssertQuery       = "query"
	AssertConnections = "connections"
	AssertCount       = "count"
)

// LoadScenario reads a scenario file. Unknown keys are rejected, and spec
// paths are resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads a scenario file, resolving relative spec
// paths against basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i, spec := range scenario.Specs {
		if !filepath.IsAbs(spec) && basePath != "" {
			scenario.Specs[i] = filepath.Join(basePath, spec)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Specs) == 0 && len(s.Schemas) == 0 {
		return fmt.Errorf("specs or schemas is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for _, spec := range s.Specs {
		if _, err := os.Stat(spec); os.IsNotExist(err) {
			return fmt.Errorf("spec directory not found: %s", spec)
		}
	}

	for i, n := range s.Nodes {
		if n.Handle == "" || n.Schema == "" {
			return fmt.Errorf("nodes[%d]: handle and schema are required", i)
		}
	}
	for i, e := range s.Edges {
		if e.Handle == "" || e.Schema == "" {
			return fmt.Errorf("edges[%d]: handle and schema are required", i)
		}
		if (e.Source == "") != (e.Target == "") {
			return fmt.Errorf("edges[%d]: source and target must be set together", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertQuery:
		if a.Match == nil {
			return fmt.Errorf("assertions[%d]: match is required for query", index)
		}
		if a.Error != "" && len(a.Expect) > 0 {
			return fmt.Errorf("assertions[%d]: expect and error are exclusive", index)
		}
	case AssertConnections:
		if a.Handle == "" {
			return fmt.Errorf("assertions[%d]: handle is required for connections", index)
		}
	case AssertCount:
		if a.Schema == "" || a.Count == nil {
			return fmt.Errorf("assertions[%d]: schema and count are required for count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
