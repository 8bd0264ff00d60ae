// Package answer encodes and decodes candidate responses per question format.
// The codec validates structure only; grading a structurally valid but wrong
// answer is the scoring engine's job.
package answer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/khangtgr/assessly/internal/model"
)

// TrueFalseOptions is the fixed domain for true_false items.
var TrueFalseOptions = []string{"True", "False"}

// Response is the normalized in-memory value of one answer. Exactly the
// variant field matching Format is populated.
type Response struct {
	Format model.ItemFormat
	// Choice holds the selected option for mcq and true_false.
	Choice string
	// Choices holds the selected option set for multi_select, kept sorted so
	// set equality is plain slice equality.
	Choices []string
	// Scale holds the 1-5 value for likert.
	Scale int
	// Text holds free text for short_answer. Never auto-graded.
	Text string
	// Ranking holds the full option sequence in the candidate's chosen order
	// for sjt_rank.
	Ranking []string
}

// InvalidFormatError reports a wire value whose shape does not match the
// item's format.
type InvalidFormatError struct {
	Format model.ItemFormat
	Reason string
}

func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("invalid %s response: %s", e.Format, e.Reason)
}

func invalid(format model.ItemFormat, reason string, args ...interface{}) error {
	return &InvalidFormatError{Format: format, Reason: fmt.Sprintf(reason, args...)}
}

// Decode parses a wire value into a normalized Response for the given format.
// options is the item's option list; true_false may pass nil to use the fixed
// domain.
func Decode(format model.ItemFormat, raw json.RawMessage, options []string) (Response, error) {
	switch format {
	case model.FormatMCQ:
		choice, err := decodeChoice(format, raw, options)
		if err != nil {
			return Response{}, err
		}
		return Response{Format: format, Choice: choice}, nil

	case model.FormatTrueFalse:
		domain := options
		if len(domain) == 0 {
			domain = TrueFalseOptions
		}
		choice, err := decodeChoice(format, raw, domain)
		if err != nil {
			return Response{}, err
		}
		return Response{Format: format, Choice: choice}, nil

	case model.FormatMultiSelect:
		var picks []string
		if err := json.Unmarshal(raw, &picks); err != nil {
			return Response{}, invalid(format, "expected a string array")
		}
		seen := make(map[string]bool, len(picks))
		for _, p := range picks {
			if !contains(options, p) {
				return Response{}, invalid(format, "%q is not one of the item's options", p)
			}
			if seen[p] {
				return Response{}, invalid(format, "option %q selected more than once", p)
			}
			seen[p] = true
		}
		// Empty set is a valid (if ungraded) response.
		normalized := append([]string(nil), picks...)
		sort.Strings(normalized)
		return Response{Format: format, Choices: normalized}, nil

	case model.FormatLikert:
		var scale int
		if err := json.Unmarshal(raw, &scale); err != nil {
			return Response{}, invalid(format, "expected an integer")
		}
		if scale < 1 || scale > 5 {
			return Response{}, invalid(format, "value %d outside [1,5]", scale)
		}
		return Response{Format: format, Scale: scale}, nil

	case model.FormatShortAnswer:
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return Response{}, invalid(format, "expected a string")
		}
		return Response{Format: format, Text: text}, nil

	case model.FormatSJTRank:
		var ranking []string
		if err := json.Unmarshal(raw, &ranking); err != nil {
			return Response{}, invalid(format, "expected a string array")
		}
		// A ranking is a total order: its multiset must exactly match the
		// item's option set.
		if !sameMultiset(ranking, options) {
			return Response{}, invalid(format, "ranking elements do not match the item's options")
		}
		return Response{Format: format, Ranking: append([]string(nil), ranking...)}, nil
	}
	return Response{}, invalid(format, "unknown format")
}

// Encode serializes a Response back to its wire value. Encode then Decode is
// an identity for any normalized Response.
func Encode(r Response) (json.RawMessage, error) {
	switch r.Format {
	case model.FormatMCQ, model.FormatTrueFalse:
		return json.Marshal(r.Choice)
	case model.FormatMultiSelect:
		if r.Choices == nil {
			return json.Marshal([]string{})
		}
		return json.Marshal(r.Choices)
	case model.FormatLikert:
		return json.Marshal(r.Scale)
	case model.FormatShortAnswer:
		return json.Marshal(r.Text)
	case model.FormatSJTRank:
		return json.Marshal(r.Ranking)
	}
	return nil, invalid(r.Format, "unknown format")
}

// Equal compares two normalized responses of the same format.
func Equal(a, b Response) bool {
	if a.Format != b.Format {
		return false
	}
	switch a.Format {
	case model.FormatMCQ, model.FormatTrueFalse:
		return a.Choice == b.Choice
	case model.FormatMultiSelect:
		return equalSlices(a.Choices, b.Choices)
	case model.FormatLikert:
		return a.Scale == b.Scale
	case model.FormatShortAnswer:
		return a.Text == b.Text
	case model.FormatSJTRank:
		return equalSlices(a.Ranking, b.Ranking)
	}
	return false
}

func decodeChoice(format model.ItemFormat, raw json.RawMessage, options []string) (string, error) {
	var choice string
	if err := json.Unmarshal(raw, &choice); err != nil {
		return "", invalid(format, "expected a string")
	}
	if !contains(options, choice) {
		return "", invalid(format, "%q is not one of the item's options", choice)
	}
	return choice, nil
}

func contains(options []string, value string) bool {
	for _, o := range options {
		if o == value {
			return true
		}
	}
	return false
}

func equalSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameMultiset(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(b))
	for _, v := range b {
		counts[strings.TrimSpace(v)]++
	}
	for _, v := range a {
		key := strings.TrimSpace(v)
		counts[key]--
		if counts[key] < 0 {
			return false
		}
	}
	return true
}
