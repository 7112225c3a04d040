package logic

import "github.com/flowsim/flowsim/model"

// Order tracks a quantity-to-produce target attached to a node's enter port
// (spec.md §5, grounded on order.h): entities are only admitted while
// Remaining > 0, and each admission decrements it.
type Order struct {
	Variant  *model.Variant
	Quantity int

	remaining int
}

func NewOrder(v *model.Variant, quantity int) *Order {
	return &Order{Variant: v, Quantity: quantity, remaining: quantity}
}

func (o *Order) Allow(e *model.Entity) bool {
	if o.Variant != nil && (e.Variant == nil || e.Variant.ID != o.Variant.ID) {
		return false
	}
	return o.remaining > 0
}

func (o *Order) Consume() {
	if o.remaining > 0 {
		o.remaining--
	}
}

func (o *Order) Remaining() int { return o.remaining }
func (o *Order) Complete() bool { return o.remaining <= 0 }

// intervalGenerator is the minimal surface Demand needs from a
// numgen.Generator, kept local so logic doesn't have to import numgen just
// for this one method (spec.md §9's "accept interfaces" idiom).
type intervalGenerator interface {
	Next() float64
}

// Demand periodically requests entity creation at a Source (spec.md §5,
// grounded on demand.h): a CreateDemand event fires every Interval.Next()
// seconds, each one creating up to BatchSize entities, until an optional
// Order is satisfied.
type Demand struct {
	Interval  intervalGenerator
	BatchSize int
	Order     *Order
}

func NewDemand(interval intervalGenerator, batchSize int, order *Order) *Demand {
	return &Demand{Interval: interval, BatchSize: batchSize, Order: order}
}

// NextInterval draws the time until the next CreateDemand event.
func (d *Demand) NextInterval() float64 { return d.Interval.Next() }

// BatchQuantity returns how many entities this demand pulse should create,
// clamped to whatever quantity remains on the attached Order (if any).
func (d *Demand) BatchQuantity() int {
	n := d.BatchSize
	if d.Order != nil && d.Order.Remaining() < n {
		n = d.Order.Remaining()
	}
	if n < 0 {
		return 0
	}
	return n
}

// Satisfied reports whether this demand's order (if any) is complete.
func (d *Demand) Satisfied() bool {
	return d.Order != nil && d.Order.Complete()
}
