package id

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// Strategy identifies the identifier generation algorithm to use.
type Strategy int

const (
	// StrategyKSUID generates lexicographically sortable identifiers using KSUID.
	StrategyKSUID Strategy = iota
	// StrategyUUIDv7 generates time-ordered identifiers using UUID version 7.
	StrategyUUIDv7
)

var defaultGenerator = &Generator{strategy: StrategyKSUID}

// Generator produces identifiers for sessions, requests, and confirmations.
type Generator struct {
	mu       sync.RWMutex
	strategy Strategy
}

// SetStrategy configures the generation strategy for the default generator.
func SetStrategy(strategy Strategy) {
	defaultGenerator.mu.Lock()
	defaultGenerator.strategy = strategy
	defaultGenerator.mu.Unlock()
}

// NewSessionID generates a new session identifier with a stable prefix.
func NewSessionID() string {
	return defaultGenerator.newIdentifier("session")
}

// NewConfirmationID generates a single-use confirmation identifier.
func NewConfirmationID() string {
	return defaultGenerator.newIdentifier("confirm")
}

// NewRequestID generates a per-round request identifier for log correlation.
func NewRequestID() string {
	return defaultGenerator.newIdentifier("req")
}

// NewMemoryID generates an identifier for long-term memory entries.
func NewMemoryID() string {
	return defaultGenerator.newIdentifier("mem")
}

func (g *Generator) newIdentifier(prefix string) string {
	g.mu.RLock()
	strategy := g.strategy
	g.mu.RUnlock()

	var body string
	switch strategy {
	case StrategyUUIDv7:
		uuidv7, err := uuid.NewV7()
		if err == nil {
			body = uuidv7.String()
			break
		}
		fallthrough
	case StrategyKSUID:
		body = ksuid.New().String()
	default:
		body = ksuid.New().String()
	}

	return fmt.Sprintf("%s-%s", prefix, body)
}
