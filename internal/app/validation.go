package app

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerTagNames sync.Once

// useJSONFieldNames makes binding errors report the json name of a field
// instead of its Go name
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// fieldPath is the dotted path below the request struct, e.g. items[0].quality_id
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// fieldLabel turns party_id into "Party"
func fieldLabel(field string) string {
	label := strings.ReplaceAll(strings.TrimSuffix(field, "_id"), "_", " ")
	if label == "" {
		return field
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

func fieldMessage(fe validator.FieldError) string {
	label := fieldLabel(fe.Field())
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "email":
		return label + " must be a valid email address"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s needs at least %s entry", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s cannot exceed %s characters", label, fe.Param())
	default:
		return label + " is invalid"
	}
}
