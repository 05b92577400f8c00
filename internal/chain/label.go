package chain

import (
	"fmt"
	"reflect"
)

// Key is the comparable identity of a Label: its name plus the reified type of its value.
// Two keys are equal only when both the name and the type match.
type Key struct {
	Name string
	Type reflect.Type
}

func (k Key) String() string {
	if k.Type == nil {
		return fmt.Sprintf("Label[name=%s]", k.Name)
	}
	return fmt.Sprintf("Label[name=%s, type=%s]", k.Name, k.Type)
}

func (k Key) Key() Key { return k }

// Keyed is anything that identifies a named result (a Label or a bare Key).
type Keyed interface {
	Key() Key
}

// Label is a typed key used to store and read named results. Labels are plain values;
// build them next to the chain that uses them.
type Label[T any] struct {
	key Key
}

func NewLabel[T any](name string) Label[T] {
	return Label[T]{key: Key{Name: name, Type: reflect.TypeFor[T]()}}
}

func (l Label[T]) Name() string       { return l.key.Name }
func (l Label[T]) Type() reflect.Type { return l.key.Type }
func (l Label[T]) Key() Key           { return l.key }
func (l Label[T]) String() string     { return l.key.String() }
