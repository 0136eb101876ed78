package input

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/liamashdown/batchplanner/internal/config"
	"github.com/liamashdown/batchplanner/internal/wager"
	"gopkg.in/yaml.v3"
)

// Load reads the wager collection at path. An empty format is resolved from
// the file extension.
func Load(path string, format config.InputFormat) ([]wager.RawWager, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input %s: %w", path, err)
	}

	raws, err := Decode(data, ResolveFormat(path, format))
	if err != nil {
		return nil, fmt.Errorf("decode input %s: %w", path, err)
	}
	return raws, nil
}

// ResolveFormat picks YAML for .yaml/.yml files and JSON otherwise
func ResolveFormat(path string, format config.InputFormat) config.InputFormat {
	if format != config.InputFormatAuto {
		return format
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return config.InputFormatYAML
	default:
		return config.InputFormatJSON
	}
}

// Decode parses a JSON array or YAML sequence of wager records
func Decode(data []byte, format config.InputFormat) ([]wager.RawWager, error) {
	switch format {
	case config.InputFormatYAML:
		return decodeYAML(data)
	case config.InputFormatJSON, config.InputFormatAuto:
		return decodeJSON(data)
	default:
		return nil, fmt.Errorf("unsupported input format %q", format)
	}
}

func decodeJSON(data []byte) ([]wager.RawWager, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	raws := make([]wager.RawWager, len(elems))
	for i, elem := range elems {
		dec := json.NewDecoder(bytes.NewReader(elem))
		dec.UseNumber()

		var rec map[string]any
		if err := dec.Decode(&rec); err != nil || rec == nil {
			return nil, &wager.InputFormatError{Index: i, Err: wager.ErrNotRecord}
		}

		raws[i] = wager.RawWager{
			Index:           i,
			TargetTimestamp: jsonText(rec[wager.FieldTargetTimestamp]),
			PriceMin:        jsonText(rec[wager.FieldPriceMin]),
			PriceMax:        jsonText(rec[wager.FieldPriceMax]),
			Stake:           jsonText(rec[wager.FieldStake]),
			DayOffset:       jsonText(rec[wager.FieldDayOffset]),
		}
	}
	return raws, nil
}

// jsonText keeps numbers as written; anything that is not a number or a
// string is passed through as text so the converter reports it
func jsonText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case json.Number:
		return val.String()
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

func decodeYAML(data []byte) ([]wager.RawWager, error) {
	var nodes []yaml.Node
	if err := yaml.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	raws := make([]wager.RawWager, len(nodes))
	for i := range nodes {
		var rec map[string]yaml.Node
		if nodes[i].Kind != yaml.MappingNode {
			return nil, &wager.InputFormatError{Index: i, Err: wager.ErrNotRecord}
		}
		if err := nodes[i].Decode(&rec); err != nil {
			return nil, &wager.InputFormatError{Index: i, Err: fmt.Errorf("%w: %v", wager.ErrNotRecord, err)}
		}

		raws[i] = wager.RawWager{
			Index:           i,
			TargetTimestamp: yamlText(rec, wager.FieldTargetTimestamp),
			PriceMin:        yamlText(rec, wager.FieldPriceMin),
			PriceMax:        yamlText(rec, wager.FieldPriceMax),
			Stake:           yamlText(rec, wager.FieldStake),
			DayOffset:       yamlText(rec, wager.FieldDayOffset),
		}
	}
	return raws, nil
}

func yamlText(rec map[string]yaml.Node, field string) string {
	node, ok := rec[field]
	if !ok {
		return ""
	}
	if node.Kind != yaml.ScalarNode {
		return "<" + kindName(node.Kind) + ">"
	}
	if node.Tag == "!!null" {
		return ""
	}
	return node.Value
}

func kindName(kind yaml.Kind) string {
	switch kind {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.AliasNode:
		return "alias"
	default:
		return "node"
	}
}
