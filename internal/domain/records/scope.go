package records

import "fmt"

// Scope is an ordered set of record categories granted by a token or a
// provider authorization. Order is preserved from the grantor's input;
// duplicates are dropped on Normalize.
type Scope []Category

// FullScope grants every category.
func FullScope() Scope {
	s := make(Scope, len(AllCategories))
	copy(s, AllCategories)
	return s
}

// ParseScope validates a list of category strings into a normalized scope.
func ParseScope(raw []string) (Scope, error) {
	s := make(Scope, 0, len(raw))
	for _, r := range raw {
		c, err := ParseCategory(r)
		if err != nil {
			return nil, err
		}
		s = append(s, c)
	}
	return s.Normalize(), nil
}

// ScopeFromStrings converts stored category strings without validation.
// Storage is trusted; unknown values would have been rejected on write.
func ScopeFromStrings(raw []string) Scope {
	s := make(Scope, len(raw))
	for i, r := range raw {
		s[i] = Category(r)
	}
	return s
}

// Normalize drops duplicate categories, keeping first-occurrence order.
func (s Scope) Normalize() Scope {
	seen := make(map[Category]bool, len(s))
	out := make(Scope, 0, len(s))
	for _, c := range s {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// Contains reports whether the scope grants the category.
func (s Scope) Contains(c Category) bool {
	for _, sc := range s {
		if sc == c {
			return true
		}
	}
	return false
}

// HasFullAccess reports whether the scope covers every category, regardless
// of order or duplicates.
func (s Scope) HasFullAccess() bool {
	for _, c := range AllCategories {
		if !s.Contains(c) {
			return false
		}
	}
	return true
}

// Strings converts the scope for storage and JSON responses.
func (s Scope) Strings() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = string(c)
	}
	return out
}

// Validate rejects empty or unknown-category scopes.
func (s Scope) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("scope must include at least one category")
	}
	for _, c := range s {
		if _, err := ParseCategory(string(c)); err != nil {
			return err
		}
	}
	return nil
}
