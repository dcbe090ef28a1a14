package templates

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Template names
const (
	FrontMatter = "frontmatter"
)

// builtin holds the fallback content for every known template.
var builtin = map[string]string{
	FrontMatter: "+++\n" +
		"title = \"{{TITLE}}\"\n" +
		"date = {{DATE}}\n" +
		"draft = {{DRAFT}}\n" +
		"tags = {{TAGS}}\n" +
		"+++\n\n",
}

// TemplateData holds variables for template rendering.
type TemplateData map[string]string

// GetTemplatePaths returns the override search paths for a template,
// relative to baseDir.
func GetTemplatePaths(baseDir, templateName string) []string {
	filename := templateName + ".template"
	return []string{
		filepath.Join(baseDir, "templates", filename),
		filepath.Join(baseDir, "config", "templates", filename),
	}
}

// GetTemplate returns the raw template content by name.
// Templates are loaded in the following order:
// 1. <baseDir>/templates/<name>.template
// 2. <baseDir>/config/templates/<name>.template
// 3. the built-in template
func GetTemplate(baseDir, name string) (string, error) {
	if !ValidateTemplate(name) {
		return "", fmt.Errorf("unknown template: %s", name)
	}

	for _, path := range GetTemplatePaths(baseDir, name) {
		content, err := os.ReadFile(path)
		if err == nil {
			return string(content), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to read template %s: %w", path, err)
		}
	}

	return builtin[name], nil
}

// Render renders a template with the given data.
// Uses {{PLACEHOLDER}} syntax for variable substitution.
//
// Example:
//
//	data := TemplateData{
//	    "TITLE": "my first post",
//	    "DATE":  "2024-01-02T15:04:05+01:00",
//	}
//	rendered, err := Render(".", FrontMatter, data)
func Render(baseDir, templateName string, data TemplateData) (string, error) {
	tmplContent, err := GetTemplate(baseDir, templateName)
	if err != nil {
		return "", err
	}

	pairs := make([]string, 0, len(data)*2)
	for key, value := range data {
		pairs = append(pairs, fmt.Sprintf("{{%s}}", key), value)
	}

	// One pass, so a value containing a placeholder is never expanded again
	return strings.NewReplacer(pairs...).Replace(tmplContent), nil
}

// ValidateTemplate checks if a template name is valid.
func ValidateTemplate(name string) bool {
	_, ok := builtin[name]
	return ok
}
