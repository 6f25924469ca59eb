package cache

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
)

// DataTypePreValuesCacheKey prefixes every cached pre-value string.
const DataTypePreValuesCacheKey = "UmbracoPreVal"

// EntityKeyPrefix prefixes the keys of the isolated entity caches.
const EntityKeyPrefix = "uRepo_"

// EntityKey is the isolated cache key of one entity.
func EntityKey(namespace string, id any) string {
	return EntityKeyPrefix + namespace + "_" + fmt.Sprint(id)
}

// EntityPrefix is the prefix shared by every key of a namespace.
func EntityPrefix(namespace string) string {
	return EntityKeyPrefix + namespace + "_"
}

// TypeFullName returns the package qualified name of v's type, dereferencing
// pointers.
func TypeFullName(v any) string {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "nil"
	}
	return t.PkgPath() + "." + t.Name()
}

// TypeNameKey is the runtime key of a by-name lookup: {TypeFullName}.{name}.
func TypeNameKey(typeFullName, name string) string {
	return typeFullName + "." + name
}

// PreValueKey is the runtime key of one pre-value string.
func PreValueKey(dataTypeID, preValueID int) string {
	return DataTypePreValuesCacheKey + strconv.Itoa(dataTypeID) + "-" + strconv.Itoa(preValueID)
}

// PreValuePattern matches every pre-value key of a data type.
func PreValuePattern(dataTypeID int) *regexp.Regexp {
	return regexp.MustCompile("^" + regexp.QuoteMeta(DataTypePreValuesCacheKey+strconv.Itoa(dataTypeID)+"-") + `\d+$`)
}
