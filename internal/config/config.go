package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by LoadOptions.
const EnvPrefix = "SUPERVISOR_"

var durationType = reflect.TypeOf(time.Duration(0))

// LoadOptions fills the struct pointed to by opts with precedence
// CLI flags > environment > configuration file.
//
// Fields are bound by tags: `toml:"section.key"` names the file value and
// `env:"KEY"` the SUPERVISOR_KEY variable. A string field named Config holds
// the file path. If cmd is non-nil, flags the user set explicitly are left
// untouched.
func LoadOptions(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()

	changed := make(map[string]bool)
	if cmd != nil {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if f.Changed {
				changed[f.Name] = true
			}
		})
	}

	var path string
	if f := v.FieldByName("Config"); f.IsValid() && f.Kind() == reflect.String {
		path = f.String()
	}

	if path != "" {
		raw, err := readRaw(path)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		for i := range t.NumField() {
			field, ft := v.Field(i), t.Field(i)
			if changed[fieldNameToFlag(ft.Name)] {
				continue
			}
			if key := ft.Tag.Get("toml"); key != "" {
				if value := getNestedValue(raw, key); value != nil {
					setFieldValue(field, value)
				}
			}
		}
	}

	for i := range t.NumField() {
		field, ft := v.Field(i), t.Field(i)
		if changed[fieldNameToFlag(ft.Name)] {
			continue
		}
		if key := ft.Tag.Get("env"); key != "" {
			if value, ok := os.LookupEnv(EnvPrefix + key); ok && value != "" {
				setFieldValueFromString(field, value)
			}
		}
	}

	return nil
}

// readRaw decodes a TOML or YAML file into a generic map.
func readRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw := make(map[string]any)
	if isYAML(path) {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
		return raw, nil
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}
	return raw, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// fieldNameToFlag converts a field name to its flag name: "LogLevel" -> "log-level".
func fieldNameToFlag(fieldName string) string {
	var result []rune
	for i, r := range fieldName {
		if i > 0 && unicode.IsUpper(r) {
			result = append(result, '-')
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}

// getNestedValue looks up a dot separated path in nested maps.
func getNestedValue(data map[string]any, path string) any {
	parts := strings.Split(path, ".")
	current := data
	for i, part := range parts {
		if i == len(parts)-1 {
			return current[part]
		}
		next, ok := current[part].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return nil
}

// setFieldValue assigns a decoded file value to field, ignoring type mismatches.
func setFieldValue(field reflect.Value, value any) {
	if !field.CanSet() {
		return
	}

	if field.Type() == durationType {
		switch d := value.(type) {
		case string:
			if parsed, err := time.ParseDuration(d); err == nil {
				field.SetInt(int64(parsed))
			}
		case int64:
			field.SetInt(d * int64(time.Second))
		case int:
			field.SetInt(int64(d) * int64(time.Second))
		}
		return
	}

	switch field.Kind() {
	case reflect.String:
		if s, ok := value.(string); ok {
			field.SetString(s)
		}
	case reflect.Bool:
		if b, ok := value.(bool); ok {
			field.SetBool(b)
		}
	case reflect.Int, reflect.Int64:
		switch i := value.(type) {
		case int64:
			field.SetInt(i)
		case int:
			field.SetInt(int64(i))
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return
		}
		if arr, ok := value.([]any); ok {
			slice := make([]string, 0, len(arr))
			for _, item := range arr {
				if s, ok := item.(string); ok {
					slice = append(slice, s)
				}
			}
			field.Set(reflect.ValueOf(slice))
		}
	}
}

// setFieldValueFromString assigns an environment value to field.
func setFieldValueFromString(field reflect.Value, value string) {
	if !field.CanSet() {
		return
	}

	if field.Type() == durationType {
		if d, err := time.ParseDuration(value); err == nil {
			field.SetInt(int64(d))
		}
		return
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		if b, err := strconv.ParseBool(value); err == nil {
			field.SetBool(b)
		}
	case reflect.Int, reflect.Int64:
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			field.SetInt(i)
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			slice := make([]string, len(parts))
			for i, part := range parts {
				slice[i] = strings.TrimSpace(part)
			}
			field.Set(reflect.ValueOf(slice))
		}
	}
}
