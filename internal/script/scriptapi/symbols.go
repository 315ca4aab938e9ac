package scriptapi

import (
	"reflect"

	"github.com/traefik/yaegi/interp"
)

// Symbols registers this package's exported types with a yaegi
// interpreter, following the same convention yaegi's own generated
// stdlib symbol tables use: a type's zero value is exposed as
// reflect.ValueOf((*T)(nil)). A script imports this package by its
// real Go import path and uses it like any other Go package.
var Symbols = interp.Exports{
	"github.com/mockforge/mockforge/internal/script/scriptapi/scriptapi": {
		"Context":      reflect.ValueOf((*Context)(nil)),
		"Response":     reflect.ValueOf((*Response)(nil)),
		"NewResponse":  reflect.ValueOf(NewResponse),
		"Logger":       reflect.ValueOf((*Logger)(nil)),
		"StoresHandle": reflect.ValueOf((*StoresHandle)(nil)),
		"StoreProxy":   reflect.ValueOf((*StoreProxy)(nil)),
	},
}
