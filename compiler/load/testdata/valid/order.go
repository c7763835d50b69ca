package valid

import (
	"strings"
	"time"
)

// Order is the result of the builder.
type Order struct {
	Customer string
	Items    []string
	Note     string
	Due      time.Time
}

// Draft collects the parts of an order.
//
//stepgen:builder
type Draft struct {
	order Order
}

// NewDraft returns a draft due at the given time.
func NewDraft(due time.Time) *Draft {
	return &Draft{order: Order{Due: due}}
}

// Note sets a free-form note.
//
//stepgen:unordered
func (d *Draft) Note(note string) {
	d.order.Note = strings.TrimSpace(note)
}

//stepgen:ordered 1
func (d *Draft) Customer(id string) {
	d.order.Customer = id
}

//stepgen:ordered 2
func (d *Draft) Items(skus ...string) {
	d.order.Items = append(d.order.Items, skus...)
}

//stepgen:build
func (d *Draft) Build() Order {
	return d.order
}
