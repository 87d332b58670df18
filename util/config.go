package util

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"
	"unicode"
)

// LoadConfig fills the exported fields of the struct c points to from the environment.
// Field CacheMaxAge is read from PREFIX_CACHE_MAX_AGE. Strings are taken as is,
// durations are parsed with time.ParseDuration and everything else is JSON.
// Unset variables leave the field untouched.
func LoadConfig(prefix string, c any) error {
	rv := reflect.ValueOf(c)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("config must be a pointer to a struct, got %T", c)
	}
	rt, rc := rv.Elem().Type(), rv.Elem()
	for i := 0; i < rt.NumField(); i++ {
		rft := rt.Field(i)
		if !rft.IsExported() {
			continue
		}
		k := EnvName(prefix, rft.Name)
		s, ok := os.LookupEnv(k)
		if !ok {
			continue
		}
		f := rc.Field(i)
		switch {
		case rft.Type == reflect.TypeOf(time.Duration(0)):
			d, err := time.ParseDuration(s)
			if err != nil {
				return fmt.Errorf("failed to parse %s=%q: %w", k, s, err)
			}
			f.SetInt(int64(d))
		case rft.Type.Kind() == reflect.String:
			f.SetString(s)
		default:
			if err := json.Unmarshal([]byte(s), f.Addr().Interface()); err != nil {
				return fmt.Errorf("failed to unmarshal %s=%q into %s: %w", k, s, rft.Type, err)
			}
		}
	}
	return nil
}

// EnvName returns the environment variable name of a field, e.g. ("CSSQ", "CacheMaxAge") -> CSSQ_CACHE_MAX_AGE.
func EnvName(prefix, field string) string {
	var b strings.Builder
	rs := []rune(field)
	for i, r := range rs {
		if i > 0 && unicode.IsUpper(r) && (unicode.IsLower(rs[i-1]) || i+1 < len(rs) && unicode.IsLower(rs[i+1])) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	if prefix == "" {
		return b.String()
	}
	return prefix + "_" + b.String()
}
