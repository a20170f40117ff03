package wizard

import (
	"fmt"
	"regexp"
	"strconv"
	"unicode/utf8"

	"github.com/mbolis/quick-wizard/model"
)

const (
	MsgRequired      = "required"
	MsgInvalidEmail  = "invalid email address"
	MsgNotANumber    = "must be a number"
	MsgInvalidOption = "invalid option"
	MsgPattern       = "does not match the expected format"
)

// ValidationErrors maps a field name to a message. An empty map means the
// step is valid.
type ValidationErrors map[string]string

var reEmail = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateStep checks answers against fields, which should be the visible
// fields of a single step. Failures are returned as data.
func ValidateStep(fields []model.Field, answers model.Answers) ValidationErrors {
	errs := ValidationErrors{}
	for _, f := range fields {
		value := answers[f.Name]
		if isEmpty(value) {
			if f.IsRequired {
				errs[f.Name] = MsgRequired
			}
			continue
		}
		if msg := validateValue(f, value); msg != "" {
			errs[f.Name] = msg
		}
	}
	return errs
}

func validateValue(f model.Field, value any) string {
	traits := Traits(f.Type)
	rules := f.Validation
	if rules == nil {
		rules = &model.Validation{}
	}

	if traits.Format == FormatEmail && !reEmail.MatchString(stringify(value)) {
		return MsgInvalidEmail
	}

	if traits.NumericBounds {
		n, ok := toFloat(value)
		if !ok {
			return MsgNotANumber
		}
		if rules.Min != nil && n < *rules.Min {
			return fmt.Sprintf("must be at least %s", formatNumber(*rules.Min))
		}
		if rules.Max != nil && n > *rules.Max {
			return fmt.Sprintf("must be at most %s", formatNumber(*rules.Max))
		}
	}

	if traits.LengthBounds {
		s := stringify(value)
		length := utf8.RuneCountInString(s)
		if rules.MinLength != nil && length < *rules.MinLength {
			return fmt.Sprintf("must be at least %d characters", *rules.MinLength)
		}
		if rules.MaxLength != nil && length > *rules.MaxLength {
			return fmt.Sprintf("must be at most %d characters", *rules.MaxLength)
		}
		if rules.Pattern != nil && *rules.Pattern != "" {
			// a pattern that does not compile is an authoring error, not the respondent's
			if re, err := regexp.Compile(`^(?:` + *rules.Pattern + `)$`); err == nil && !re.MatchString(s) {
				return MsgPattern
			}
		}
	}

	if traits.NeedsOptions {
		if traits.MultiValue {
			for _, v := range toList(value) {
				if !hasOption(f.Options, v) {
					return MsgInvalidOption
				}
			}
		} else if !hasOption(f.Options, stringify(value)) {
			return MsgInvalidOption
		}
	}

	return ""
}

func hasOption(options []model.Option, value string) bool {
	for _, o := range options {
		if o.Value == value {
			return true
		}
	}
	return false
}

func toList(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		list := make([]string, len(v))
		for i, e := range v {
			list[i] = stringify(e)
		}
		return list
	}
	return []string{stringify(value)}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
