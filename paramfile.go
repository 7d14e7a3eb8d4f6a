package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// applyParamFile reads a YAML mapping of flag names to values and sets
// every flag that was not given on the command line. Lists set list
// flags element by element.
//
//	in_cm: merged.consensusXML
//	in_raw: [a.mzML, b.mzML]
//	force_no_fdr: true
func applyParamFile(fs *flag.FlagSet, path string) error {
	if path == `` {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var values map[string]yaml.Node
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidParameter, path, err)
	}

	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if fs.Lookup(name) == nil {
			return fmt.Errorf("%w: %s: unknown parameter %s", ErrInvalidParameter, path, name)
		}
		if explicit[name] {
			logger.Debug("parameter file value overridden by command line", zap.String("parameter", name))
			continue
		}
		node := values[name]
		items, err := scalarValues(&node)
		if err != nil {
			return fmt.Errorf("%w: %s: %s: %v", ErrInvalidParameter, path, name, err)
		}
		for _, v := range items {
			if err := fs.Set(name, v); err != nil {
				return fmt.Errorf("%w: %s: %s: %v", ErrInvalidParameter, path, name, err)
			}
		}
	}
	return nil
}

// scalarValues returns the value of a scalar node, or the values of a
// sequence of scalars
func scalarValues(node *yaml.Node) ([]string, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return []string{node.Value}, nil
	case yaml.SequenceNode:
		items := make([]string, 0, len(node.Content))
		for _, n := range node.Content {
			if n.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: nested lists are not supported", n.Line)
			}
			items = append(items, n.Value)
		}
		return items, nil
	}
	return nil, fmt.Errorf("line %d: expected a value or a list", node.Line)
}
