package rabota

import (
	"encoding/json"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Params is an ordered set of request parameters.
// Keys keep the order of their first insertion, which is also the order
// used when a request is signed.
type Params struct {
	keys   []string
	values map[string]string
}

// NewParams builds Params from alternating key/value pairs.
// A trailing key without a value is ignored.
func NewParams(kv ...string) Params {
	var p Params
	for i := 0; i+1 < len(kv); i += 2 {
		p.Set(kv[i], kv[i+1])
	}
	return p
}

// Set assigns value to key. An existing key keeps its position.
func (p *Params) Set(key, value string) {
	if p.values == nil {
		p.values = make(map[string]string)
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Get returns the value for key and whether it is present.
func (p Params) Get(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Has reports whether key is present.
func (p Params) Has(key string) bool {
	_, ok := p.values[key]
	return ok
}

// Del removes key.
func (p *Params) Del(key string) {
	if _, ok := p.values[key]; !ok {
		return
	}
	delete(p.values, key)
	p.keys = slices.DeleteFunc(p.keys, func(k string) bool { return k == key })
}

// Len returns the number of parameters.
func (p Params) Len() int {
	return len(p.keys)
}

// Keys returns the parameter names in insertion order.
func (p Params) Keys() []string {
	return slices.Clone(p.keys)
}

// Clone returns an independent copy of p.
func (p Params) Clone() Params {
	c := Params{keys: slices.Clone(p.keys)}
	if p.values != nil {
		c.values = make(map[string]string, len(p.values))
		for k, v := range p.values {
			c.values[k] = v
		}
	}
	return c
}

// Encode returns p in URL-encoded form ("a=1&b=2") for a query string or
// form body. Unlike url.Values.Encode it keeps insertion order, which the
// signature is computed over.
func (p Params) Encode() string {
	var b strings.Builder
	for i, k := range p.keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.values[k]))
	}
	return b.String()
}

// mergeParams returns a copy of first followed by the keys of second that
// first does not have. Values in first win.
func mergeParams(first, second Params) Params {
	merged := first.Clone()
	for _, k := range second.keys {
		if !merged.Has(k) {
			merged.Set(k, second.values[k])
		}
	}
	return merged
}

// MarshalJSON encodes p as a JSON object in insertion order.
func (p Params) MarshalJSON() ([]byte, error) {
	return p.appendJSON(make([]byte, 0, 64)), nil
}

// appendJSON writes the canonical form used for signatures.
func (p Params) appendJSON(buf []byte) []byte {
	buf = append(buf, '{')
	for i, k := range p.keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = appendPHPString(buf, k)
		buf = append(buf, ':')
		buf = appendPHPString(buf, p.values[k])
	}
	return append(buf, '}')
}

// parseQuery decodes a raw query string into Params, keeping the order of
// first appearance. Repeated keys keep their first value.
func parseQuery(raw string) (Params, error) {
	var p Params
	for part := range strings.SplitSeq(raw, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return Params{}, err
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return Params{}, err
		}
		if !p.Has(key) {
			p.Set(key, value)
		}
	}
	return p, nil
}

// stringify renders a decoded JSON value the way it appears in form data.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
