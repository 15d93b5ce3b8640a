package config

import (
	"encoding"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
)

// loadConfigFromEnv overrides every field tagged with `env:"NAME"` when NAME
// is set. Nested structs are walked recursively.
func loadConfigFromEnv(intf interface{}) error {
	t := reflect.TypeOf(intf).Elem()
	v := reflect.ValueOf(intf).Elem()

	for i := 0; i < v.NumField(); i++ {
		fieldT := t.Field(i)
		fieldV := v.Field(i)
		if !fieldV.CanSet() {
			continue
		}

		key, hasEnv := fieldT.Tag.Lookup("env")
		if !hasEnv {
			if fieldV.Kind() == reflect.Struct {
				if err := loadConfigFromEnv(fieldV.Addr().Interface()); err != nil {
					return err
				}
			}
			continue
		}

		confV, ok := os.LookupEnv(key)
		if !ok {
			continue
		}

		if u, ok := fieldV.Addr().Interface().(encoding.TextUnmarshaler); ok {
			if err := u.UnmarshalText([]byte(confV)); err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			continue
		}

		switch fieldV.Kind() {
		case reflect.String:
			fieldV.SetString(confV)
		case reflect.Bool:
			value, err := strconv.ParseBool(confV)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			fieldV.SetBool(value)
		case reflect.Int, reflect.Int32, reflect.Int64:
			value, err := strconv.ParseInt(confV, 10, fieldT.Type.Bits())
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			fieldV.SetInt(value)
		case reflect.Slice:
			if fieldT.Type.Elem().Kind() != reflect.String {
				return fmt.Errorf("unsupported slice type for %s", key)
			}
			var values []string
			for _, s := range strings.Split(confV, ",") {
				if s = strings.TrimSpace(s); s != "" {
					values = append(values, s)
				}
			}
			fieldV.Set(reflect.ValueOf(values))
		default:
			return fmt.Errorf("unsupported type for %s", key)
		}
	}
	return nil
}
