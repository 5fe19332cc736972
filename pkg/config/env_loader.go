/*
 * Copyright 2025 The Jumpstarter Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jumpstarter-dev/jumpstarter/pkg/logger"
)

var (
	// ErrDstMustBeNonNilPointer indicates that the destination must be a non-nil pointer.
	ErrDstMustBeNonNilPointer = errors.New("dst must be a non-nil pointer")
	// ErrDstMustBePointerToStruct indicates that the destination must be a pointer to a struct.
	ErrDstMustBePointerToStruct = errors.New("dst must be a pointer to a struct")
)

// EnvConfigLoader loads configuration from environment variables.
// Nested struct fields are joined with underscores, so with prefix
// JUMPSTARTER_ the variable JUMPSTARTER_LISTEN_ADDRESS sets
// config.Listen.Address. Maps and non-string slices are read as JSON.
//
// A whole document can be supplied instead in <prefix>CONFIG_YAML or
// <prefix>CONFIG_JSON.
type EnvConfigLoader struct {
	logger logger.Logger
	prefix string
}

// NewEnvConfigLoader creates a new environment variable config loader.
func NewEnvConfigLoader(log logger.Logger, prefix string) *EnvConfigLoader {
	return &EnvConfigLoader{
		logger: log,
		prefix: prefix,
	}
}

// Load implements ConfigLoader.
func (e *EnvConfigLoader) Load(_ context.Context, _ string, dst interface{}) error {
	if doc := os.Getenv(e.prefix + "CONFIG_YAML"); doc != "" {
		if err := yaml.Unmarshal([]byte(doc), dst); err != nil {
			return fmt.Errorf("failed to unmarshal %sCONFIG_YAML: %w", e.prefix, err)
		}

		return nil
	}

	if doc := os.Getenv(e.prefix + "CONFIG_JSON"); doc != "" {
		if err := json.Unmarshal([]byte(doc), dst); err != nil {
			return fmt.Errorf("failed to unmarshal %sCONFIG_JSON: %w", e.prefix, err)
		}

		return nil
	}

	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return ErrDstMustBeNonNilPointer
	}

	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return ErrDstMustBePointerToStruct
	}

	return e.loadStruct(v, e.prefix)
}

// fieldName returns the config key of a struct field from its json tag,
// falling back to its yaml tag.
func fieldName(field *reflect.StructField) string {
	for _, key := range []string{"json", "yaml"} {
		tag := field.Tag.Get(key)
		if tag == "-" {
			return ""
		}

		if name, _, _ := strings.Cut(tag, ","); name != "" {
			return name
		}
	}

	return ""
}

func (e *EnvConfigLoader) loadStruct(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.CanSet() {
			continue
		}

		name := fieldName(&fieldType)
		if name == "" {
			continue
		}

		envName := prefix + strings.ToUpper(strings.ReplaceAll(name, ".", "_"))

		if err := e.setFieldValue(field, envName); err != nil {
			return err
		}
	}

	return nil
}

func (e *EnvConfigLoader) setFieldValue(field reflect.Value, envName string) error {
	envValue, set := os.LookupEnv(envName)

	if !set || envValue == "" {
		return e.handleNestedStruct(field, envName)
	}

	if err := setFieldByKind(field, envName, envValue); err != nil {
		return err
	}

	if e.logger != nil {
		e.logger.Debug().Str("env", envName).Msg("Loaded value from environment variable")
	}

	return nil
}

func (e *EnvConfigLoader) handleNestedStruct(field reflect.Value, envName string) error {
	switch {
	case field.Kind() == reflect.Struct:
		return e.loadStruct(field, envName+"_")
	case field.Kind() == reflect.Ptr && field.Type().Elem().Kind() == reflect.Struct:
		if !e.hasPrefixedEnv(envName + "_") {
			return nil
		}

		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}

		return e.loadStruct(field.Elem(), envName+"_")
	}

	return nil
}

func (*EnvConfigLoader) hasPrefixedEnv(prefix string) bool {
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, prefix) {
			return true
		}
	}

	return false
}

var durationType = reflect.TypeOf(time.Duration(0))

func setFieldByKind(field reflect.Value, envName, envValue string) error {
	if u, ok := field.Addr().Interface().(json.Unmarshaler); ok {
		if err := u.UnmarshalJSON([]byte(strconv.Quote(envValue))); err != nil {
			return fmt.Errorf("invalid value for %s: %w", envName, err)
		}

		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(envValue)

	case reflect.Bool:
		b, err := strconv.ParseBool(envValue)
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %w", envName, err)
		}

		field.SetBool(b)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == durationType {
			d, err := time.ParseDuration(envValue)
			if err != nil {
				return fmt.Errorf("invalid duration value for %s: %w", envName, err)
			}

			field.SetInt(int64(d))

			return nil
		}

		i, err := strconv.ParseInt(envValue, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %w", envName, err)
		}

		field.SetInt(i)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(envValue, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid unsigned integer value for %s: %w", envName, err)
		}

		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(envValue, 64)
		if err != nil {
			return fmt.Errorf("invalid float value for %s: %w", envName, err)
		}

		field.SetFloat(f)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			values := strings.Split(envValue, ",")
			slice := reflect.MakeSlice(field.Type(), len(values), len(values))

			for i, v := range values {
				slice.Index(i).SetString(strings.TrimSpace(v))
			}

			field.Set(slice)

			return nil
		}

		return setJSONField(field, envName, envValue)

	case reflect.Ptr:
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}

		return setFieldByKind(field.Elem(), envName, envValue)

	default:
		return setJSONField(field, envName, envValue)
	}

	return nil
}

func setJSONField(field reflect.Value, envName, envValue string) error {
	if err := json.Unmarshal([]byte(envValue), field.Addr().Interface()); err != nil {
		return fmt.Errorf("invalid %s value for %s: %w", field.Kind(), envName, err)
	}

	return nil
}
