// Package rules evaluates predicate rules against inbound messages and
// returns the handlers to fire. Evaluation is pure; handlers run later,
// in declaration order, from the watcher's poll loop.
package rules

import (
	"context"
	"strings"

	"github.com/nvkha/mailplane/internal/model"
)

// Handler is invoked for every message a rule matches. A handler error
// is reported but never retried: the message has already been recorded
// as seen by the time handlers run.
type Handler func(ctx context.Context, msg model.Message) error

// Condition is a single predicate over a message. Conditions within a
// rule are ANDed.
type Condition interface {
	Match(msg model.Message) bool
}

type subjectCond string

func (c subjectCond) Match(msg model.Message) bool {
	return containsFold(msg.Subject, string(c))
}

type fromCond string

func (c fromCond) Match(msg model.Message) bool {
	return containsFold(msg.From, string(c))
}

type toCond string

func (c toCond) Match(msg model.Message) bool {
	for _, rcpt := range msg.To {
		if containsFold(rcpt, string(c)) {
			return true
		}
	}
	return false
}

type bodyCond string

func (c bodyCond) Match(msg model.Message) bool {
	return containsFold(msg.TextBody, string(c))
}

type allCond bool

func (c allCond) Match(model.Message) bool { return bool(c) }

type customCond func(model.Message) bool

func (c customCond) Match(msg model.Message) bool { return c(msg) }

// Subject matches when the message subject contains s, case-insensitive.
func Subject(s string) Condition { return subjectCond(s) }

// From matches when the sender address contains s, case-insensitive.
func From(s string) Condition { return fromCond(s) }

// To matches when any recipient address contains s, case-insensitive.
func To(s string) Condition { return toCond(s) }

// Body matches when the plain-text body contains s, case-insensitive.
func Body(s string) Condition { return bodyCond(s) }

// All is a boolean literal, used as a catch-all.
func All(v bool) Condition { return allCond(v) }

// Custom wraps an arbitrary predicate function.
func Custom(fn func(model.Message) bool) Condition { return customCond(fn) }

// Rule pairs a set of ANDed conditions with a handler. A rule with no
// conditions matches every message.
type Rule struct {
	Name       string
	Conditions []Condition
	Handler    Handler
}

// Match reports whether every condition of the rule holds for msg.
func Match(rule Rule, msg model.Message) bool {
	for _, cond := range rule.Conditions {
		if !cond.Match(msg) {
			return false
		}
	}
	return true
}

// Apply returns every rule that matches msg, preserving declaration
// order. A message may trigger multiple independent handlers.
func Apply(ruleSet []Rule, msg model.Message) []Rule {
	var matched []Rule
	for _, rule := range ruleSet {
		if Match(rule, msg) {
			matched = append(matched, rule)
		}
	}
	return matched
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(
		strings.ToLower(haystack), strings.ToLower(needle),
	)
}
