package conflict

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"
)

// apply combines one contribution with the current content. It returns
// the new content, the path of any backup it wrote, and a
// ResolutionError when the declared strategy could not be honored and
// the backup fallback was taken instead.
func apply(target string, strategy Strategy, current []byte, exists bool, c Contribution, now func() time.Time) ([]byte, string, *ResolutionError) {
	// Nothing on disk yet: every non-skip strategy reduces to taking
	// the payload as-is.
	if !exists {
		if strategy == StrategySkip {
			return current, "", nil
		}
		return c.Payload, "", nil
	}

	switch strategy {
	case StrategySkip:
		return current, "", nil
	case StrategyOverwrite:
		return c.Payload, "", nil
	case StrategyAppend:
		return joinBlocks(current, c.Payload, c.Separator), "", nil
	case StrategyPrepend:
		return joinBlocks(c.Payload, current, c.Separator), "", nil
	case StrategyMergeJSON:
		merged, err := mergeJSON(current, c.Payload)
		if err == nil {
			return merged, "", nil
		}
		return fallbackToBackup(target, strategy, current, c, err, now)
	case StrategyMergeYAML:
		merged, err := mergeYAML(current, c.Payload)
		if err == nil {
			return merged, "", nil
		}
		return fallbackToBackup(target, strategy, current, c, err, now)
	case StrategyBackup:
		backup, err := writeBackup(target, current, now)
		if err != nil {
			return current, "", &ResolutionError{Target: target, Extension: c.Extension, Strategy: strategy, Err: err}
		}
		return c.Payload, backup, nil
	default:
		return current, "", &ResolutionError{
			Target: target, Extension: c.Extension, Strategy: strategy,
			Err: fmt.Errorf("unknown strategy"),
		}
	}
}

// fallbackToBackup preserves the unmergeable file and proceeds with the
// contribution's payload.
func fallbackToBackup(target string, declared Strategy, current []byte, c Contribution, cause error, now func() time.Time) ([]byte, string, *ResolutionError) {
	rerr := &ResolutionError{Target: target, Extension: c.Extension, Strategy: declared, Err: cause}
	backup, err := writeBackup(target, current, now)
	if err != nil {
		rerr.Err = fmt.Errorf("%v; backup fallback failed: %w", cause, err)
		return current, "", rerr
	}
	return c.Payload, backup, rerr
}

func writeBackup(target string, content []byte, now func() time.Time) (string, error) {
	backup := fmt.Sprintf("%s.backup.%s", target, now().Format("20060102-150405"))
	if err := os.WriteFile(backup, content, 0o644); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	return backup, nil
}

func joinBlocks(first, second []byte, separator string) []byte {
	if separator == "" {
		separator = DefaultSeparator
	}
	out := make([]byte, 0, len(first)+len(separator)+len(second))
	out = append(out, first...)
	out = append(out, separator...)
	return append(out, second...)
}

func mergeJSON(existing, payload []byte) ([]byte, error) {
	var base, overlay map[string]any
	if err := json.Unmarshal(existing, &base); err != nil {
		return nil, fmt.Errorf("target is not JSON: %w", err)
	}
	if err := json.Unmarshal(payload, &overlay); err != nil {
		return nil, fmt.Errorf("contribution is not JSON: %w", err)
	}
	merged, err := json.MarshalIndent(deepMerge(base, overlay), "", "  ")
	if err != nil {
		return nil, err
	}
	return append(merged, '\n'), nil
}

func mergeYAML(existing, payload []byte) ([]byte, error) {
	var base, overlay map[string]any
	if err := yaml.Unmarshal(existing, &base); err != nil {
		return nil, fmt.Errorf("target is not YAML: %w", err)
	}
	if base == nil {
		base = map[string]any{}
	}
	if err := yaml.Unmarshal(payload, &overlay); err != nil {
		return nil, fmt.Errorf("contribution is not YAML: %w", err)
	}
	return yaml.Marshal(deepMerge(base, overlay))
}

// deepMerge overlays src onto dst. Nested maps merge recursively;
// everything else, lists included, is replaced by the overlay.
func deepMerge(dst, src map[string]any) map[string]any {
	for k, v := range src {
		if sv, ok := v.(map[string]any); ok {
			if dv, ok := dst[k].(map[string]any); ok {
				dst[k] = deepMerge(dv, sv)
				continue
			}
		}
		dst[k] = v
	}
	return dst
}
