package generation

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode"

	"github.com/jonathan/content-pipeline/internal/prompts"
	"github.com/jonathan/content-pipeline/internal/types"
)

// DefaultTone is used when the client has no tone preference.
const DefaultTone = "professional"

// BuildSystemPrompt renders the system prompt for a client profile.
func BuildSystemPrompt(profile *types.ClientProfile) string {
	tone := strings.TrimSpace(profile.ContentPreferences.Tone)
	if tone == "" {
		tone = DefaultTone
	}

	platforms := make([]string, len(profile.ContentPreferences.Platforms))
	for i, p := range profile.ContentPreferences.Platforms {
		platforms[i] = string(p)
	}
	contentTypes := make([]string, len(profile.ContentPreferences.ContentTypes))
	for i, ct := range profile.ContentPreferences.ContentTypes {
		contentTypes[i] = string(ct)
	}

	tmpl := prompts.MustGet(prompts.GenerationFile, prompts.SystemPromptKey)
	return prompts.Format(tmpl, map[string]string{
		"Industry":     profile.ICPProfile.Industry,
		"Services":     strings.Join(profile.ServiceOffering.Services, ", "),
		"Positioning":  profile.PositioningStatement,
		"Platforms":    strings.Join(platforms, ", "),
		"ContentTypes": strings.Join(contentTypes, ", "),
		"Tone":         tone,
	})
}

// BuildUserPrompt appends non-empty context entries to prompt, one
// "Key Name: value" line each, in key order. With nothing to append the
// prompt is returned unchanged.
func BuildUserPrompt(prompt string, context map[string]any) string {
	if len(context) == 0 {
		return prompt
	}

	keys := make([]string, 0, len(context))
	for k := range context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		v := context[k]
		if isEmptyValue(v) {
			continue
		}
		lines = append(lines, titleKey(k)+": "+fmt.Sprint(v))
	}
	if len(lines) == 0 {
		return prompt
	}

	header := prompts.MustGet(prompts.GenerationFile, prompts.AdditionalContextHeader)
	return prompt + "\n\n" + header + "\n" + strings.Join(lines, "\n")
}

// isEmptyValue reports whether a context value carries nothing worth
// rendering: nil, false, zero numbers and empty strings, slices or maps.
func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	default:
		return rv.IsZero()
	}
}

// titleKey turns "target_audience" into "Target Audience". A letter is
// upper-cased when it follows a non-letter and lower-cased otherwise.
func titleKey(key string) string {
	key = strings.ReplaceAll(key, "_", " ")
	var b strings.Builder
	b.Grow(len(key))
	prevLetter := false
	for _, r := range key {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToTitle(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}
