package script

import (
	"fmt"
	"strconv"
	"strings"
)

// WeightedKey is one entry of a weights literal.
type WeightedKey struct {
	Key    string
	Weight float64
}

// Weights is an ordered dict literal such as {'w':2,'a':1}.
type Weights []WeightedKey

// Total returns the sum of positive weights.
func (w Weights) Total() float64 {
	var sum float64
	for _, k := range w {
		if k.Weight > 0 {
			sum += k.Weight
		}
	}
	return sum
}

// Pick selects a key with probability proportional to its weight.
// u must be in [0, 1). An empty or all-zero table returns "".
func (w Weights) Pick(u float64) string {
	total := w.Total()
	if total <= 0 {
		return ""
	}
	target := u * total
	var acc float64
	last := ""
	for _, k := range w {
		if k.Weight <= 0 {
			continue
		}
		acc += k.Weight
		last = k.Key
		if target < acc {
			return k.Key
		}
	}
	return last
}

func (w Weights) String() string {
	parts := make([]string, len(w))
	for i, k := range w {
		parts[i] = fmt.Sprintf("'%s':%s", k.Key, strconv.FormatFloat(k.Weight, 'f', -1, 64))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// ParseValue resolves one argument token.
//
// Resolution order:
//   - int ("3", "-2")
//   - float64 ("0.5")
//   - quoted string ('w' or "w"), unquoted
//   - weights literal ({'w':2,'a':1})
//   - the bare token as a string
func ParseValue(token string) any {
	if i, err := strconv.Atoi(token); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(token, 64); err == nil && !strings.ContainsAny(token, "xXnN") {
		return f
	}
	if s, ok := unquote(token); ok {
		return s
	}
	if w, ok := parseWeights(token); ok {
		return w
	}
	return token
}

func unquote(token string) (string, bool) {
	if len(token) < 2 {
		return "", false
	}
	q := token[0]
	if (q != '\'' && q != '"') || token[len(token)-1] != q {
		return "", false
	}
	return token[1 : len(token)-1], true
}

func parseWeights(token string) (Weights, bool) {
	body, ok := strings.CutPrefix(token, "{")
	if !ok {
		return nil, false
	}
	body, ok = strings.CutSuffix(body, "}")
	if !ok {
		return nil, false
	}
	if strings.TrimSpace(body) == "" {
		return Weights{}, true
	}

	var out Weights
	for _, pair := range strings.Split(body, ",") {
		k, v, found := strings.Cut(pair, ":")
		if !found {
			return nil, false
		}
		key, ok := unquote(strings.TrimSpace(k))
		if !ok {
			return nil, false
		}
		weight, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, false
		}
		out = append(out, WeightedKey{Key: key, Weight: weight})
	}
	return out, true
}

// seconds converts a numeric argument.
func seconds(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, fmt.Errorf("%w: %v is not a number", ErrBadArgument, v)
	}
}

func str(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case int:
		return strconv.Itoa(s), nil
	default:
		return "", fmt.Errorf("%w: %v is not a name", ErrBadArgument, v)
	}
}
