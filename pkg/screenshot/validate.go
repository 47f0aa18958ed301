package screenshot

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// ValidationError is a single field-path violation, rendered as
// "loc: msg" for the JSON-RPC error.data.details list.
type ValidationError struct {
	Loc string
	Msg string
}

func (v ValidationError) String() string {
	return fmt.Sprintf("%s: %s", v.Loc, v.Msg)
}

// Validate checks p against the screenshot parameter schema, returning
// the list of "loc: msg" violations (empty when valid). html is
// checked for non-emptiness after whitespace trim separately, since the
// validator package's "required" tag does not trim.
func Validate(p *ScreenshotParams) []string {
	var details []string

	if strings.TrimSpace(p.HTML) == "" {
		details = append(details, "html: must not be empty")
	}

	if err := getValidator().Struct(p); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				loc := fieldLocation(fe.Namespace())
				if loc == "html" {
					// already reported above with a clearer message
					continue
				}
				details = append(details, fmt.Sprintf("%s: %s", loc, describeTag(fe)))
			}
		} else {
			details = append(details, "params: "+err.Error())
		}
	}

	return details
}

// fieldLocation strips the leading "ScreenshotParams." struct-namespace
// prefix validator produces. The remaining segments are already the JSON
// field names, since getValidator registers a json-tag name function
// (e.g. "ScreenshotParams.viewport.width" -> "viewport.width",
// "ScreenshotParams.timeout_ms" -> "timeout_ms"); a field without a json
// tag falls back to its Go name with the first letter lowercased.
func fieldLocation(namespace string) string {
	parts := strings.SplitN(namespace, ".", 2)
	if len(parts) == 2 {
		return jsonTagOrLower(parts[1])
	}
	return jsonTagOrLower(namespace)
}

func jsonTagOrLower(field string) string {
	segs := strings.Split(field, ".")
	for i, s := range segs {
		segs[i] = strings.ToLower(s[:1]) + s[1:]
	}
	return strings.Join(segs, ".")
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "gte":
		return "greater than or equal to " + fe.Param()
	case "lte":
		return "less than or equal to " + fe.Param()
	case "gt":
		return "greater than " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "invalid value"
	}
}
