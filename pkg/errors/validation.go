package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateName validates an entry, chunk or cache-group name.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters or null bytes
//   - No path separators (names are substituted into output file names)
//   - Maximum length of 256 characters
func ValidateName(kind, name string) error {
	if name == "" {
		return New(ErrCodeInvalidConfig, "%s name cannot be empty", kind)
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidConfig, "%s name too long (max 256 characters)", kind)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidConfig, "%s name %q contains invalid control characters", kind, name)
		}
	}

	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidConfig, "%s name %q cannot contain path separators", kind, name)
	}

	return nil
}

// ValidateModuleID validates a module identifier from the module table.
// Module ids are resolved paths, so separators are allowed but control
// characters are not.
func ValidateModuleID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidConfig, "module id cannot be empty")
	}
	for _, r := range id {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidConfig, "module id %q contains invalid characters", id)
		}
	}
	return nil
}

// ValidatePath validates an output file name produced from a template.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative to the output directory)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// placeholderRegex matches {name} and {name:arg} template placeholders.
var placeholderRegex = regexp.MustCompile(`\{([A-Za-z]+)(?::([0-9]+))?\}`)

// ValidateTemplate checks that every placeholder in an output-name template
// is one of allowed.
func ValidateTemplate(tmpl string, allowed ...string) error {
	if tmpl == "" {
		return New(ErrCodeInvalidTemplate, "template cannot be empty")
	}
	if strings.Count(tmpl, "{") != strings.Count(tmpl, "}") {
		return New(ErrCodeInvalidTemplate, "template %q has unbalanced braces", tmpl)
	}
	for _, m := range placeholderRegex.FindAllStringSubmatch(tmpl, -1) {
		ok := false
		for _, a := range allowed {
			if m[1] == a {
				ok = true
				break
			}
		}
		if !ok {
			return New(ErrCodeInvalidTemplate, "template %q uses unknown placeholder {%s}", tmpl, m[1])
		}
	}
	return nil
}
