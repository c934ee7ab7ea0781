package completion

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Users can extend or correct the schema table with a YAML file. Entries
// are merged over both the builtin table and server-fetched schemas, so a
// file like
//
//	commands:
//	  JSON.SET:
//	    summary: Set a JSON value
//	    min_args: 3
//	    max_args: -1
//	    roles: [key, value, value]
//	  FLUSHALL:
//	    literals:
//	      0: [ASYNC, SYNC]
//
// teaches completion about commands the builtin table never heard of.

type overrideFile struct {
	Commands map[string]overrideEntry `yaml:"commands"`
}

type overrideEntry struct {
	Summary  string           `yaml:"summary"`
	MinArgs  int              `yaml:"min_args"`
	MaxArgs  int              `yaml:"max_args"`
	Roles    []string         `yaml:"roles"`
	Literals map[int][]string `yaml:"literals"`
}

var roleNames = map[string]ArgRole{
	"key":     RoleKey,
	"field":   RoleField,
	"value":   RoleValue,
	"numeric": RoleNumeric,
	"enum":    RoleEnum,
	"pattern": RolePattern,
}

// LoadOverrides reads user schema overrides from path. A missing file is
// not an error; a malformed file is, so typos surface instead of silently
// dropping the user's configuration.
func LoadOverrides(path string) (map[string]*CommandSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading completion overrides: %w", err)
	}

	var file overrideFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing completion overrides: %w", err)
	}

	overrides := make(map[string]*CommandSchema, len(file.Commands))
	for name, entry := range file.Commands {
		roles := make([]ArgRole, 0, len(entry.Roles))
		for _, roleName := range entry.Roles {
			role, ok := roleNames[strings.ToLower(roleName)]
			if !ok {
				return nil, fmt.Errorf("completion overrides: command %s has unknown role %q", name, roleName)
			}
			roles = append(roles, role)
		}

		overrides[strings.ToUpper(name)] = &CommandSchema{
			Name:     strings.ToUpper(name),
			Summary:  entry.Summary,
			MinArgs:  entry.MinArgs,
			MaxArgs:  entry.MaxArgs,
			Roles:    roles,
			Literals: entry.Literals,
		}
	}
	return overrides, nil
}
