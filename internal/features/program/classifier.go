package program

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// FieldSource exposes a record's attributes by name.
type FieldSource interface {
	Field(name string) string
}

type compiledRule struct {
	programID string
	field     string
	priority  int
	match     func(value string) bool
}

// Classifier holds the rules of one mapping run with patterns compiled up front.
// Rules are evaluated in the order given; a later match only wins with a strictly higher priority.
type Classifier struct {
	rules []compiledRule
}

func NewClassifier(programs []Program, logger *zap.Logger) *Classifier {
	c := &Classifier{}
	for _, p := range programs {
		for _, r := range p.Rules {
			if !r.Enabled {
				continue
			}
			c.rules = append(c.rules, compiledRule{
				programID: p.ID,
				field:     r.Field,
				priority:  r.Priority,
				match:     compileMatcher(r, logger),
			})
		}
	}
	return c
}

// Len is the number of enabled rules.
func (c *Classifier) Len() int {
	return len(c.rules)
}

// Classify returns the winning program for the record, if any rule matches.
func (c *Classifier) Classify(rec FieldSource) (string, bool) {
	var (
		best  string
		prio  int
		found bool
	)
	for _, r := range c.rules {
		if !r.match(rec.Field(r.field)) {
			continue
		}
		if !found || r.priority > prio {
			best, prio, found = r.programID, r.priority, true
		}
	}
	return best, found
}

func compileMatcher(rule ProgramRule, logger *zap.Logger) func(string) bool {
	pattern := strings.ToLower(rule.Pattern)

	switch rule.MatchType {
	case MatchEquals:
		return func(v string) bool { return strings.ToLower(v) == pattern }
	case MatchContains:
		return func(v string) bool { return strings.Contains(strings.ToLower(v), pattern) }
	case MatchStartsWith:
		return func(v string) bool { return strings.HasPrefix(strings.ToLower(v), pattern) }
	case MatchEndsWith:
		return func(v string) bool { return strings.HasSuffix(strings.ToLower(v), pattern) }
	case MatchRegex:
		re, err := regexp.Compile("(?i)" + rule.Pattern)
		if err != nil {
			logger.Warn("invalid rule pattern, rule will not match",
				zap.String("rule_id", rule.ID),
				zap.String("pattern", rule.Pattern),
				zap.Error(err),
			)
			return never
		}
		return re.MatchString
	}

	logger.Warn("unknown match type, rule will not match",
		zap.String("rule_id", rule.ID),
		zap.String("match_type", string(rule.MatchType)),
	)
	return never
}

func never(string) bool { return false }
