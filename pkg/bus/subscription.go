package bus

import (
	"log/slog"
	"sync"
)

// subscriberWarnThreshold is the per-key subscriber count above which a
// one-shot warning is logged, surfacing likely subscription leaks.
const subscriberWarnThreshold = 100

// SubscriptionManager tracks which windows are watching which keys.
type SubscriptionManager struct {
	mu      sync.Mutex
	byKey   map[string]map[string]struct{} // key -> set of windowIDs
	warned  map[string]struct{}            // keys that already triggered the threshold warning
	logger  *slog.Logger
}

// NewSubscriptionManager constructs an empty manager.
func NewSubscriptionManager(logger *slog.Logger) *SubscriptionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubscriptionManager{
		byKey:  make(map[string]map[string]struct{}),
		warned: make(map[string]struct{}),
		logger: logger.With("component", "bus_subscriptions"),
	}
}

// Subscribe registers windowID as a watcher of key.
func (s *SubscriptionManager) Subscribe(key, windowID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.byKey[key]
	if !ok {
		set = make(map[string]struct{})
		s.byKey[key] = set
	}
	set[windowID] = struct{}{}

	if len(set) > subscriberWarnThreshold {
		if _, already := s.warned[key]; !already {
			s.warned[key] = struct{}{}
			s.logger.Warn("key has an unusually large number of subscribers", "key", key, "count", len(set))
		}
	}
}

// Unsubscribe removes windowID as a watcher of key, garbage-collecting the
// key's set once it's empty.
func (s *SubscriptionManager) Unsubscribe(key, windowID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.byKey[key]
	if !ok {
		return
	}
	delete(set, windowID)
	if len(set) == 0 {
		delete(s.byKey, key)
		delete(s.warned, key)
	}
}

// RemoveWindow removes windowID from every key it was subscribed to.
func (s *SubscriptionManager) RemoveWindow(windowID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, set := range s.byKey {
		if _, ok := set[windowID]; !ok {
			continue
		}
		delete(set, windowID)
		if len(set) == 0 {
			delete(s.byKey, key)
			delete(s.warned, key)
		}
	}
}

// SubscribersOf returns the windows currently subscribed to key.
func (s *SubscriptionManager) SubscribersOf(key string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.byKey[key]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for w := range set {
		out = append(out, w)
	}
	return out
}

// HasSubscribers reports whether key has at least one watcher.
func (s *SubscriptionManager) HasSubscribers(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byKey[key]) > 0
}
