// Package ledger holds the shopper's cart for one device session.
package ledger

import (
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

// MaxQuantity caps every line.
const MaxQuantity = 5

// Sizes accepted as variants for apparel.
var Sizes = []string{"XS", "S", "M", "L", "XL"}

// DefaultApparel lists the categories that require a size.
var DefaultApparel = []string{"men's clothing", "women's clothing"}

// Key identifies a line.
type Key struct {
	ProductID int64
	Variant   string
}

func (k Key) String() string {
	if k.Variant == "" {
		return fmt.Sprintf("%d", k.ProductID)
	}
	return fmt.Sprintf("%d/%s", k.ProductID, k.Variant)
}

// Line is one cart entry with its product snapshot.
type Line struct {
	Product  domain.Product
	Variant  string
	Quantity int
}

func (l Line) Key() Key { return Key{ProductID: l.Product.ID, Variant: l.Variant} }

// Subtotal is price × quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Ledger is safe for concurrent use, although a session normally drives it
// from a single goroutine.
type Ledger struct {
	mu       sync.Mutex
	lines    []Line
	apparel  map[string]struct{}
	notifier Notifier
}

// New builds an empty ledger. apparel lists the categories that require a
// size; nil selects DefaultApparel.
func New(notifier Notifier, apparel []string) *Ledger {
	if notifier == nil {
		notifier = discard{}
	}
	if apparel == nil {
		apparel = DefaultApparel
	}
	set := make(map[string]struct{}, len(apparel))
	for _, c := range apparel {
		set[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
	}
	return &Ledger{apparel: set, notifier: notifier}
}

// AddItem merges qty units of product/variant into the cart. The resulting
// quantity never exceeds MaxQuantity; the rejected excess is reported
// through the notifier.
func (l *Ledger) AddItem(p domain.Product, variant string, qty int) (Line, error) {
	if qty < 1 {
		return Line{}, domain.Invalid("quantity", "must be at least 1")
	}
	variant, err := l.normalizeVariant(p, variant)
	if err != nil {
		return Line{}, err
	}

	l.mu.Lock()
	line, notice := l.addLocked(p, variant, qty)
	l.mu.Unlock()
	l.notify(notice)
	return line, nil
}

func (l *Ledger) addLocked(p domain.Product, variant string, qty int) (Line, *Notice) {
	key := Key{ProductID: p.ID, Variant: variant}
	idx := l.indexOf(key)
	if idx < 0 {
		accepted := min(qty, MaxQuantity)
		l.lines = append(l.lines, Line{Product: p, Variant: variant, Quantity: accepted})
		var notice *Notice
		if accepted < qty {
			notice = overLimit(key, qty, accepted)
		}
		return l.lines[len(l.lines)-1], notice
	}

	line := &l.lines[idx]
	want := line.Quantity + qty
	var notice *Notice
	if want > MaxQuantity {
		notice = overLimit(key, qty, MaxQuantity-line.Quantity)
		want = MaxQuantity
	}
	line.Quantity = want
	return *line, notice
}

// Increment adds one unit to an existing line.
func (l *Ledger) Increment(key Key) (Line, error) {
	l.mu.Lock()
	idx := l.indexOf(key)
	if idx < 0 {
		l.mu.Unlock()
		return Line{}, domain.ErrNotFound
	}
	line := &l.lines[idx]
	var notice *Notice
	if line.Quantity >= MaxQuantity {
		notice = overLimit(key, 1, 0)
	} else {
		line.Quantity++
	}
	out := *line
	l.mu.Unlock()

	l.notify(notice)
	return out, nil
}

// Decrement removes one unit but never drops a line below 1.
func (l *Ledger) Decrement(key Key) (Line, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.indexOf(key)
	if idx < 0 {
		return Line{}, domain.ErrNotFound
	}
	line := &l.lines[idx]
	if line.Quantity > 1 {
		line.Quantity--
	}
	return *line, nil
}

// SetQuantity replaces a line's quantity, clamping at MaxQuantity.
func (l *Ledger) SetQuantity(key Key, qty int) (Line, error) {
	if qty < 1 {
		return Line{}, domain.Invalid("quantity", "must be at least 1")
	}
	l.mu.Lock()
	idx := l.indexOf(key)
	if idx < 0 {
		l.mu.Unlock()
		return Line{}, domain.ErrNotFound
	}
	line := &l.lines[idx]
	var notice *Notice
	if qty > MaxQuantity {
		notice = overLimit(key, qty, MaxQuantity)
		qty = MaxQuantity
	}
	line.Quantity = qty
	out := *line
	l.mu.Unlock()

	l.notify(notice)
	return out, nil
}

// RemoveItem drops the line if present.
func (l *Ledger) RemoveItem(key Key) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if idx := l.indexOf(key); idx >= 0 {
		l.lines = append(l.lines[:idx], l.lines[idx+1:]...)
	}
}

// RemoveLines drops exactly the given lines. A line whose quantity changed
// since the snapshot keeps the difference.
func (l *Ledger) RemoveLines(lines []Line) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, sold := range lines {
		idx := l.indexOf(sold.Key())
		if idx < 0 {
			continue
		}
		if left := l.lines[idx].Quantity - sold.Quantity; left > 0 {
			l.lines[idx].Quantity = left
			continue
		}
		l.lines = append(l.lines[:idx], l.lines[idx+1:]...)
	}
}

func (l *Ledger) Clear() {
	l.mu.Lock()
	l.lines = nil
	l.mu.Unlock()
}

// Total is the sum of line subtotals rounded to 2 decimals.
func (l *Ledger) Total() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := decimal.Zero
	for _, line := range l.lines {
		total = total.Add(line.Subtotal())
	}
	return total.Round(2)
}

// Lines returns a copy of the cart in insertion order.
func (l *Ledger) Lines() []Line {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Line, len(l.lines))
	copy(out, l.lines)
	return out
}

// Len is the number of distinct lines.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lines)
}

// Quantity reports the quantity for key, 0 if absent.
func (l *Ledger) Quantity(key Key) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if idx := l.indexOf(key); idx >= 0 {
		return l.lines[idx].Quantity
	}
	return 0
}

// RequiresVariant reports whether products in category need a size.
func (l *Ledger) RequiresVariant(category string) bool {
	_, ok := l.apparel[strings.ToLower(strings.TrimSpace(category))]
	return ok
}

func (l *Ledger) normalizeVariant(p domain.Product, variant string) (string, error) {
	if !l.RequiresVariant(p.Category) {
		return "", nil
	}
	v := strings.ToUpper(strings.TrimSpace(variant))
	if v == "" {
		return "", domain.Invalid("size", "required for %s", p.Category)
	}
	for _, s := range Sizes {
		if s == v {
			return v, nil
		}
	}
	return "", domain.Invalid("size", "unknown size %q", variant)
}

func (l *Ledger) indexOf(key Key) int {
	for i, line := range l.lines {
		if line.Key() == key {
			return i
		}
	}
	return -1
}

// notify runs outside l.mu so notifiers may read the ledger.
func (l *Ledger) notify(n *Notice) {
	if n != nil {
		l.notifier.Notify(*n)
	}
}

func overLimit(key Key, requested, accepted int) *Notice {
	return &Notice{
		Kind:      NoticeOverLimit,
		Key:       key,
		Requested: requested,
		Accepted:  accepted,
		Message:   fmt.Sprintf("You can buy at most %d of this product.", MaxQuantity),
	}
}
