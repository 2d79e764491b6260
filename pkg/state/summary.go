package state

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// NoItemsSummary is the summary rendered for an empty document.
const NoItemsSummary = "(no items)"

// UnavailableSummary is what the prompt shows when an item cannot be summarized.
const UnavailableSummary = "(unable to summarize items)"

// ErrMalformedItem is the skip reason returned when an item's data payload
// does not have the shape its type requires.
var ErrMalformedItem = errors.New("malformed item data")

// SummarizeItems renders one human-readable line per item for the prompt.
func SummarizeItems(items []Item) (string, error) {
	if len(items) == 0 {
		return NoItemsSummary, nil
	}
	lines := make([]string, 0, len(items))
	for _, it := range items {
		summary, err := summarizeItem(it)
		if err != nil {
			return "", errors.Wrapf(err, "item %q", it.ID)
		}
		lines = append(lines, fmt.Sprintf("id=%s · name=%s · type=%s · %s", it.ID, it.Name, it.Type, summary))
	}
	return strings.Join(lines, "\n"), nil
}

func summarizeItem(it Item) (string, error) {
	d := it.Data
	switch it.Type {
	case ItemTypeProject:
		checklist, err := listOf(d, "field4")
		if err != nil {
			return "", err
		}
		texts := make([]string, 0, len(checklist))
		for _, c := range checklist {
			entry, ok := c.(map[string]any)
			if !ok {
				return "", errors.Wrap(ErrMalformedItem, "field4 entry is not an object")
			}
			texts = append(texts, scalar(entry["text"]))
		}
		return fmt.Sprintf("subtitle=%s · field1=%s · field2=%s · field3=%s · field4=[%s]",
			it.Subtitle, scalar(d["field1"]), scalar(d["field2"]), scalar(d["field3"]), strings.Join(texts, ", ")), nil
	case ItemTypeEntity:
		tags, err := stringsOf(d, "field3")
		if err != nil {
			return "", err
		}
		opts, err := stringsOf(d, "field3_options")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("subtitle=%s · field1=%s · field2=%s · field3(tags)=[%s] · field3_options=[%s]",
			it.Subtitle, scalar(d["field1"]), scalar(d["field2"]), strings.Join(tags, ", "), strings.Join(opts, ", ")), nil
	case ItemTypeNote:
		return fmt.Sprintf("subtitle=%s · noteContent=%q", it.Subtitle, scalar(d["field1"])), nil
	case ItemTypeChart:
		metrics, err := listOf(d, "field1")
		if err != nil {
			return "", err
		}
		parts := make([]string, 0, len(metrics))
		for _, m := range metrics {
			entry, ok := m.(map[string]any)
			if !ok {
				return "", errors.Wrap(ErrMalformedItem, "field1 metric is not an object")
			}
			value := "0"
			if v, ok := entry["value"]; ok && v != nil {
				value = scalar(v)
			}
			parts = append(parts, fmt.Sprintf("%s:%s%%", scalar(entry["label"]), value))
		}
		return fmt.Sprintf("subtitle=%s · field1(metrics)=[%s]", it.Subtitle, strings.Join(parts, ", ")), nil
	default:
		return fmt.Sprintf("subtitle=%s", it.Subtitle), nil
	}
}

func listOf(d map[string]any, key string) ([]any, error) {
	v, ok := d[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch l := v.(type) {
	case []any:
		return l, nil
	case []map[string]any:
		out := make([]any, len(l))
		for i := range l {
			out[i] = l[i]
		}
		return out, nil
	}
	return nil, errors.Wrapf(ErrMalformedItem, "%s is not a list", key)
}

func stringsOf(d map[string]any, key string) ([]string, error) {
	v, ok := d[key]
	if !ok || v == nil {
		return nil, nil
	}
	if ss, ok := v.([]string); ok {
		return ss, nil
	}
	l, err := listOf(d, key)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(l))
	for _, e := range l {
		out = append(out, scalar(e))
	}
	return out, nil
}

func scalar(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
