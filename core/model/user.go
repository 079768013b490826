package model

import "fmt"

// User is one record of the managed collection. ID is assigned by the store
// on creation and never changes afterwards.
type User struct {
	ID   int64  `json:"id" yaml:"id" xml:"id"`
	Name string `json:"name" yaml:"name" xml:"name"`
	Age  int    `json:"age" yaml:"age" xml:"age"`
}

// Columns lists the exported field names in their canonical order.
var Columns = []string{"id", "name", "age"}

// Values returns the field values in the order given by Columns.
func (u User) Values() []any {
	return []any{u.ID, u.Name, u.Age}
}

func (u User) String() string {
	return fmt.Sprintf("{%d %q %d}", u.ID, u.Name, u.Age)
}
