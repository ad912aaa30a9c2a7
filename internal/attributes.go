package internal

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// New agent attributes must be added in the following places:
// * Constants in the public package attributes.go.
// * Default destinations in defaultAttributeDests below.
// * Capture sites in the handler wrapper or transaction.

// Destination is a bit set of the streams an attribute may appear on.
type Destination int

const (
	// DestTxnEvent is the transaction event attribute stream.
	DestTxnEvent Destination = 1 << iota
	// DestTxnTrace is the transaction trace attribute stream.
	DestTxnTrace
	// DestError is the error event and traced error attribute stream.
	DestError
)

const (
	// DestNone is no destinations.
	DestNone Destination = 0
	// DestAll is all destinations: the broad default.
	DestAll Destination = DestTxnEvent | DestTxnTrace | DestError
	// DestLimited omits transaction events: the limited default used for
	// bulkier identity attributes.
	DestLimited Destination = DestTxnTrace | DestError
)

func (d Destination) String() string {
	s := ""
	for _, x := range []struct {
		name string
		dest Destination
	}{
		{"event", DestTxnEvent},
		{"trace", DestTxnTrace},
		{"error", DestError},
	} {
		if DestNone != d&x.dest {
			if "" != s {
				s += "+"
			}
			s += x.name
		}
	}
	if "" == s {
		s = "none"
	}
	return s
}

// AttributeDestinationConfig matches the public attribute configuration
// structure.
type AttributeDestinationConfig struct {
	Enabled bool
	Include []string
	Exclude []string
}

// AttributeConfig carries the attribute policy for each destination plus the
// policy shared by all destinations.
type AttributeConfig struct {
	All               AttributeDestinationConfig
	TransactionEvents AttributeDestinationConfig
	TransactionTracer AttributeDestinationConfig
	ErrorCollector    AttributeDestinationConfig
}

// DefaultAttributeConfig enables every destination with no include or
// exclude patterns.
func DefaultAttributeConfig() AttributeConfig {
	return AttributeConfig{
		All:               AttributeDestinationConfig{Enabled: true},
		TransactionEvents: AttributeDestinationConfig{Enabled: true},
		TransactionTracer: AttributeDestinationConfig{Enabled: true},
		ErrorCollector:    AttributeDestinationConfig{Enabled: true},
	}
}

type attributeModifier struct {
	match          string // This will not contain a trailing '*'.
	wildcardSuffix bool
	include        Destination
	exclude        Destination
}

func (m *attributeModifier) isMatch(key string) bool {
	if !m.wildcardSuffix {
		return m.match == key
	}
	// Note: match does NOT include '*'.
	return strings.HasPrefix(key, m.match)
}

func (m *attributeModifier) apply(key string, d Destination) Destination {
	if m.isMatch(key) {
		// Include before exclude, since exclude has priority.
		d |= m.include
		d &^= m.exclude
	}
	return d
}

type attributeModifiers []*attributeModifier

func (m attributeModifiers) Len() int      { return len(m) }
func (m attributeModifiers) Swap(i, j int) { m[i], m[j] = m[j], m[i] }
func (m attributeModifiers) Less(i, j int) bool {
	if m[i].match == m[j].match {
		return m[i].wildcardSuffix
	}
	return m[i].match < m[j].match
}

// AttributeFilter projects candidate attributes onto the three destinations
// according to the include and exclude policy.  Filters are cheap to build:
// policy changes take effect by constructing a new filter, never by mutating
// one already attached to a transaction.
type AttributeFilter struct {
	disabledDestinations Destination

	exactMatchModifiers map[string]*attributeModifier
	// The wildcard modifiers are applied before the exact match modifiers
	// and must be iterated in sorted order.
	wildcardModifiers attributeModifiers
}

func makeModifier(match string, include, exclude Destination) *attributeModifier {
	if "" == match {
		return nil
	}
	wildcardSuffix := false
	if match[len(match)-1] == '*' {
		wildcardSuffix = true
		match = match[0 : len(match)-1]
	}
	return &attributeModifier{
		wildcardSuffix: wildcardSuffix,
		match:          match,
		include:        include,
		exclude:        exclude,
	}
}

func (f *AttributeFilter) addModifier(match string, include, exclude Destination) {
	modifier := makeModifier(match, include, exclude)
	if nil == modifier {
		return
	}

	if !modifier.wildcardSuffix {
		if m, ok := f.exactMatchModifiers[modifier.match]; ok {
			m.include |= modifier.include
			m.exclude |= modifier.exclude
		} else {
			f.exactMatchModifiers[modifier.match] = modifier
		}
		return
	}

	for _, m := range f.wildcardModifiers {
		// Duplicate entries for the same match string would not work
		// because exclude needs precedence over include.
		if m.match == modifier.match {
			m.include |= modifier.include
			m.exclude |= modifier.exclude
			return
		}
	}

	f.wildcardModifiers = append(f.wildcardModifiers, modifier)
}

func (f *AttributeFilter) processDestination(dc *AttributeDestinationConfig, d Destination) {
	if !dc.Enabled {
		f.disabledDestinations |= d
	}
	for _, s := range dc.Include {
		f.addModifier(s, d, 0)
	}
	for _, s := range dc.Exclude {
		f.addModifier(s, 0, d)
	}
}

// NewAttributeFilter compiles the attribute configuration into a filter.
func NewAttributeFilter(cfg AttributeConfig) *AttributeFilter {
	f := &AttributeFilter{
		exactMatchModifiers: make(map[string]*attributeModifier),
		wildcardModifiers:   make(attributeModifiers, 0, 8),
	}

	f.processDestination(&cfg.All, DestAll)
	f.processDestination(&cfg.TransactionEvents, DestTxnEvent)
	f.processDestination(&cfg.TransactionTracer, DestTxnTrace)
	f.processDestination(&cfg.ErrorCollector, DestError)

	sort.Sort(f.wildcardModifiers)

	return f
}

// Apply returns the destinations the key belongs to, starting from its
// default destinations.
func (f *AttributeFilter) Apply(key string, d Destination) Destination {
	if f.disabledDestinations == DestAll {
		return DestNone
	}

	// The wildcard modifiers must be applied before the exact match
	// modifiers, and the slice must be iterated in a forward direction.
	for _, m := range f.wildcardModifiers {
		d = m.apply(key, d)
	}

	if m, ok := f.exactMatchModifiers[key]; ok {
		d = m.apply(key, d)
	}

	d &^= f.disabledDestinations

	return d
}

// CanonicalAttributeKey collapses dash-case, snake_case, camelCase, and
// PascalCase header names into a single lowerCamel form so that one filter
// rule matches every spelling: "X-Forwarded-For", "xForwardedFor", and
// "XForwardedFor" all become "xForwardedFor".
func CanonicalAttributeKey(name string) string {
	if "" == name {
		return name
	}

	var parts []string
	for _, p := range strings.FieldsFunc(name, func(r rune) bool {
		return r == '-' || r == '_' || r == ' '
	}) {
		parts = append(parts, p)
	}
	if 0 == len(parts) {
		return ""
	}

	var b strings.Builder
	b.Grow(len(name))
	for i, p := range parts {
		r := []rune(p)
		if 0 == i {
			r[0] = unicode.ToLower(r[0])
		} else {
			r[0] = unicode.ToUpper(r[0])
			for j := 1; j < len(r); j++ {
				r[j] = unicode.ToLower(r[j])
			}
		}
		b.WriteString(string(r))
	}
	return b.String()
}

type attributeValue struct {
	value        interface{}
	destinations Destination
}

// Attributes is the set of candidate attributes for a single transaction:
// agent supplied and user supplied, each key carrying the destinations it
// survived filtering for.
type Attributes struct {
	filter *AttributeFilter
	agent  map[string]*attributeValue
	user   map[string]*attributeValue
}

// NewAttributes creates an empty attribute set governed by the given filter.
func NewAttributes(filter *AttributeFilter) *Attributes {
	return &Attributes{
		filter: filter,
		agent:  make(map[string]*attributeValue),
		user:   make(map[string]*attributeValue),
	}
}

type invalidAttributeError struct{ typeString string }

func (e invalidAttributeError) Error() string {
	return fmt.Sprintf("attribute value type %s is invalid", e.typeString)
}

func valueIsValid(val interface{}) error {
	switch val.(type) {
	case string, bool, nil,
		uint8, uint16, uint32, uint64,
		int8, int16, int32, int64,
		float32, float64,
		uint, int, uintptr:
		return nil
	default:
		return invalidAttributeError{typeString: fmt.Sprintf("%T", val)}
	}
}

type invalidAttributeKeyErr struct{ key string }

func (e invalidAttributeKeyErr) Error() string {
	return fmt.Sprintf("attribute key '%.32s...' exceeds length limit %d",
		e.key, attributeKeyLengthLimit)
}

func truncateLongStringValue(val interface{}) interface{} {
	if str, ok := val.(string); ok && len(str) > attributeValueLengthLimit {
		return str[0:attributeValueLengthLimit]
	}
	return val
}

func (a *Attributes) add(key string, val interface{},
	defaultDests Destination, ats map[string]*attributeValue, limit int) error {

	// Keys which are excessively long are dropped rather than truncated to
	// avoid worrying about the application of filter rules to truncated
	// keys.
	if len(key) > attributeKeyLengthLimit {
		return invalidAttributeKeyErr{key: key}
	}

	val = truncateLongStringValue(val)

	if err := valueIsValid(val); nil != err {
		return err
	}

	if _, ok := ats[key]; !ok && len(ats) >= limit {
		return fmt.Errorf("attribute '%.128s' discarded: limit of %d reached", key, limit)
	}

	// The last attribute in wins: if the key already exists, the existing
	// value is replaced.
	ats[key] = &attributeValue{
		value:        val,
		destinations: a.filter.Apply(key, defaultDests),
	}

	return nil
}

// AddAgent adds an agent supplied attribute.
func (a *Attributes) AddAgent(key string, val interface{}, defaultDests Destination) error {
	return a.add(key, val, defaultDests, a.agent, attributeAgentLimit)
}

// AddUser adds a user supplied attribute.
func (a *Attributes) AddUser(key string, val interface{}, defaultDests Destination) error {
	return a.add(key, val, defaultDests, a.user, attributeUserLimit)
}

func project(d Destination, ats map[string]*attributeValue) map[string]interface{} {
	out := make(map[string]interface{})
	for key, attr := range ats {
		if DestNone != d&attr.destinations {
			out[key] = attr.value
		}
	}
	return out
}

// GetAgent returns the agent attributes visible on the given destination.
func (a *Attributes) GetAgent(d Destination) map[string]interface{} {
	return project(d, a.agent)
}

// GetUser returns the user attributes visible on the given destination.
func (a *Attributes) GetUser(d Destination) map[string]interface{} {
	return project(d, a.user)
}

// AttributeSets holds the per destination projections computed when a
// transaction is frozen.  Once built, the projections never change.
type AttributeSets struct {
	AgentTxnEvent map[string]interface{}
	UserTxnEvent  map[string]interface{}
	AgentTxnTrace map[string]interface{}
	UserTxnTrace  map[string]interface{}
	AgentError    map[string]interface{}
	UserError     map[string]interface{}
}

// Freeze computes the projection for every destination.
func (a *Attributes) Freeze() *AttributeSets {
	return &AttributeSets{
		AgentTxnEvent: a.GetAgent(DestTxnEvent),
		UserTxnEvent:  a.GetUser(DestTxnEvent),
		AgentTxnTrace: a.GetAgent(DestTxnTrace),
		UserTxnTrace:  a.GetUser(DestTxnTrace),
		AgentError:    a.GetAgent(DestError),
		UserError:     a.GetUser(DestError),
	}
}
