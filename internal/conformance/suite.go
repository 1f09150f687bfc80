package conformance

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/agnosticeng/anonymize/client"
	"gopkg.in/yaml.v3"
)

//go:embed default_suite.yaml
var defaultSuite []byte

// Case is one query and its expected outcome. A nil Expect only checks that
// the query succeeds; an empty Expect requires zero rows. Error is one of
// "execution", "handle_closed" or "session_closed".
type Case struct {
	Name   string           `yaml:"name"`
	Query  string           `yaml:"query"`
	Expect []map[string]any `yaml:"expect,omitempty"`
	Error  string           `yaml:"error,omitempty"`
	Skip   []string         `yaml:"skip,omitempty"`
}

type Suite struct {
	Name  string `yaml:"name"`
	Cases []Case `yaml:"cases"`
}

var expectedErrors = map[string]error{
	"execution":      client.ErrExecution,
	"handle_closed":  client.ErrHandleClosed,
	"session_closed": client.ErrSessionClosed,
}

func ParseSuite(data []byte) (*Suite, error) {
	var suite Suite

	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("failed to parse suite: %w", err)
	}

	if err := suite.Validate(); err != nil {
		return nil, err
	}

	return &suite, nil
}

func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)

	if err != nil {
		return nil, err
	}

	return ParseSuite(data)
}

func DefaultSuite() *Suite {
	suite, err := ParseSuite(defaultSuite)

	if err != nil {
		panic(err)
	}

	return suite
}

func (suite *Suite) Validate() error {
	if len(suite.Cases) == 0 {
		return errors.New("suite has no cases")
	}

	var names = make(map[string]bool, len(suite.Cases))

	for i, c := range suite.Cases {
		if len(c.Name) == 0 {
			return fmt.Errorf("case %d has no name", i)
		}

		if names[c.Name] {
			return fmt.Errorf("duplicate case name: %s", c.Name)
		}

		names[c.Name] = true

		if len(c.Error) > 0 {
			if _, ok := expectedErrors[c.Error]; !ok {
				return fmt.Errorf("case %s: unknown error kind %q", c.Name, c.Error)
			}

			if c.Expect != nil {
				return fmt.Errorf("case %s: expect and error are exclusive", c.Name)
			}
		}
	}

	return nil
}

// CasesFor returns the cases that are not skipped for the given target kind.
func (suite *Suite) CasesFor(kind client.TargetKind) []Case {
	var res []Case

	for _, c := range suite.Cases {
		if !c.skipped(kind) {
			res = append(res, c)
		}
	}

	return res
}

func (c Case) skipped(kind client.TargetKind) bool {
	for _, s := range c.Skip {
		if s == kind.String() {
			return true
		}
	}

	return false
}
