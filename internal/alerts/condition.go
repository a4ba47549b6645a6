package alerts

import "strings"

// Condition is an alert category that fires at most once per state run.
type Condition uint8

const (
	LowStock Condition = iota
	CriticalStock
	OutOfStock
	PurchaseOrderSent
	PendingTooLong
	UrgentPending
	ReadyTooLong
	Cancelled
)

var conditionNames = map[Condition]string{
	LowStock:          "lowStock",
	CriticalStock:     "criticalStock",
	OutOfStock:        "outOfStock",
	PurchaseOrderSent: "purchaseOrderSent",
	PendingTooLong:    "pendingTooLong",
	UrgentPending:     "urgentPending",
	ReadyTooLong:      "readyTooLong",
	Cancelled:         "cancelled",
}

func (c Condition) String() string {
	if name, ok := conditionNames[c]; ok {
		return name
	}
	return "unknown"
}

// ConditionSet records which conditions already notified for an entity.
type ConditionSet uint16

func (s ConditionSet) Has(c Condition) bool {
	return s&(1<<c) != 0
}

func (s *ConditionSet) Set(c Condition) {
	*s |= 1 << c
}

func (s *ConditionSet) Clear(c Condition) {
	*s &^= 1 << c
}

// Reset clears every condition except the ones listed in keep.
func (s *ConditionSet) Reset(keep ...Condition) {
	var kept ConditionSet
	for _, c := range keep {
		if s.Has(c) {
			kept.Set(c)
		}
	}
	*s = kept
}

func (s ConditionSet) String() string {
	var names []string
	for c := LowStock; c <= Cancelled; c++ {
		if s.Has(c) {
			names = append(names, c.String())
		}
	}
	return "[" + strings.Join(names, ",") + "]"
}
