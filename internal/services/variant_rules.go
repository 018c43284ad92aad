package services

import (
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"

	"gorm.io/datatypes"

	"github.com/onegreenvn/green-insights-backend/internal/models"
)

// Rule keys identify each mutation across regenerations
const (
	RuleHookStatement = "hook_statement"
	RuleHookQuestion  = "hook_question"
	RuleTimeMorning   = "time_morning"
	RuleTimeEvening   = "time_evening"
	RuleHashtagFocus  = "hashtag_focus"
)

const maxFocusHashtags = 8

// VariantMutation rewrites one dimension of a recipe. The set of
// implementations is closed: HookMutation, TimeMutation and HashtagMutation.
type VariantMutation interface {
	Key() string
	Type() models.VariantType
	Name() string
	Description() string
	Apply(recipe models.Recipe) models.Recipe
	mutation()
}

// HookMutation rewrites every hook
type HookMutation struct {
	key         string
	name        string
	description string
	rewrite     func(string) string
}

func (m HookMutation) Key() string              { return m.key }
func (m HookMutation) Type() models.VariantType { return models.VariantTypeHook }
func (m HookMutation) Name() string             { return m.name }
func (m HookMutation) Description() string      { return m.description }
func (HookMutation) mutation()                  {}

func (m HookMutation) Apply(recipe models.Recipe) models.Recipe {
	out := recipe.Clone()
	for i, hook := range out.Hooks {
		out.Hooks[i] = m.rewrite(hook)
	}
	return out
}

// TimeMutation moves publishing to a fixed band of hours
type TimeMutation struct {
	key         string
	name        string
	description string
	hours       []int
}

func (m TimeMutation) Key() string              { return m.key }
func (m TimeMutation) Type() models.VariantType { return models.VariantTypeTime }
func (m TimeMutation) Name() string             { return m.name }
func (m TimeMutation) Description() string      { return m.description }
func (TimeMutation) mutation()                  {}

func (m TimeMutation) Apply(recipe models.Recipe) models.Recipe {
	out := recipe.Clone()
	out.BestHours = append([]int(nil), m.hours...)
	return out
}

// HashtagMutation keeps the leading half of the hashtag bucket
type HashtagMutation struct {
	key         string
	name        string
	description string
	limit       int
}

func (m HashtagMutation) Key() string              { return m.key }
func (m HashtagMutation) Type() models.VariantType { return models.VariantTypeHashtag }
func (m HashtagMutation) Name() string             { return m.name }
func (m HashtagMutation) Description() string      { return m.description }
func (HashtagMutation) mutation()                  {}

func (m HashtagMutation) Apply(recipe models.Recipe) models.Recipe {
	out := recipe.Clone()
	n := len(out.Hashtags) / 2
	if n == 0 && len(out.Hashtags) > 0 {
		n = 1
	}
	if n > m.limit {
		n = m.limit
	}
	out.Hashtags = out.Hashtags[:n]
	return out
}

// VariantMutations returns the mutation rules in generation order
func VariantMutations() []VariantMutation {
	return []VariantMutation{
		HookMutation{
			key:         RuleHookStatement,
			name:        "Statement hooks",
			description: "Opens with a direct declarative statement instead of the original hook phrasing",
			rewrite:     statementHook,
		},
		HookMutation{
			key:         RuleHookQuestion,
			name:        "Question hooks",
			description: "Opens with a question to invite comments",
			rewrite:     questionHook,
		},
		TimeMutation{
			key:         RuleTimeMorning,
			name:        "Morning slot",
			description: "Publishes between 6:00 and 8:59",
			hours:       []int{6, 7, 8},
		},
		TimeMutation{
			key:         RuleTimeEvening,
			name:        "Evening slot",
			description: "Publishes between 18:00 and 20:59",
			hours:       []int{18, 19, 20},
		},
		HashtagMutation{
			key:         RuleHashtagFocus,
			name:        "Focused hashtags",
			description: "Uses only the leading half of the hashtag bucket",
			limit:       maxFocusHashtags,
		},
	}
}

func trimHook(hook string) string {
	return strings.TrimRight(strings.TrimSpace(hook), "?!.,;: ")
}

func statementHook(hook string) string {
	h := trimHook(hook)
	if lower := strings.ToLower(h); strings.HasPrefix(lower, "did you know ") {
		h = upperFirst(strings.TrimSpace(h[len("did you know "):]))
	}
	if h == "" {
		return h
	}
	return h + "."
}

func questionHook(hook string) string {
	if strings.HasSuffix(strings.TrimSpace(hook), "?") {
		return strings.TrimSpace(hook)
	}
	h := trimHook(hook)
	if h == "" {
		return h
	}
	return "Did you know " + lowerFirst(h) + "?"
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	// Keep acronyms such as "AI" and the pronoun "I" intact
	next, _ := utf8.DecodeRuneInString(s[size:])
	if unicode.IsUpper(next) || (r == 'I' && (next == ' ' || next == '\'' || next == utf8.RuneError)) {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

// BuildVariants derives one variant per mutation rule from a playbook recipe
func BuildVariants(playbookID string, recipe models.Recipe) []models.PlaybookVariant {
	mutations := VariantMutations()
	variants := make([]models.PlaybookVariant, len(mutations))
	for i, m := range mutations {
		variants[i] = models.PlaybookVariant{
			PlaybookID:  playbookID,
			Key:         m.Key(),
			Name:        m.Name(),
			Type:        m.Type(),
			Description: m.Description(),
		}
		variants[i].Recipe = datatypes.NewJSONType(m.Apply(recipe))
	}
	return variants
}

// sameRecipe compares recipes by their normalised JSON form
func sameRecipe(a, b models.Recipe) bool {
	ja, errA := json.Marshal(a.Clone())
	jb, errB := json.Marshal(b.Clone())
	return errA == nil && errB == nil && string(ja) == string(jb)
}
