package processing

import (
	"sort"
	"sync"
)

// TopicInfo holds delivery statistics for a topic
type TopicInfo struct {
	Topic        string `json:"topic"`
	ContentType  string `json:"content_type"`
	Count        int64  `json:"count"`
	LastReceived int64  `json:"last_received_ns"`
}

// TopicRegistry keeps per-topic statistics of delivered messages
type TopicRegistry struct {
	topics map[string]*TopicInfo
	mu     sync.RWMutex
}

// NewTopicRegistry creates a new topic registry
func NewTopicRegistry() *TopicRegistry {
	return &TopicRegistry{topics: make(map[string]*TopicInfo)}
}

// UpdateTopicStats records one message on topic.
func (r *TopicRegistry) UpdateTopicStats(topic, contentType string, timestamp int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, exists := r.topics[topic]
	if !exists {
		info = &TopicInfo{Topic: topic}
		r.topics[topic] = info
	}
	info.ContentType = contentType
	info.Count++
	info.LastReceived = timestamp
}

// GetTopicInfo gets information for a topic
func (r *TopicRegistry) GetTopicInfo(topic string) (TopicInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, exists := r.topics[topic]
	if !exists {
		return TopicInfo{}, false
	}
	return *info, true
}

// GetTopicStats returns a copy of every topic's statistics, sorted by name.
func (r *TopicRegistry) GetTopicStats() []TopicInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make([]TopicInfo, 0, len(r.topics))
	for _, info := range r.topics {
		stats = append(stats, *info)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Topic < stats[j].Topic })
	return stats
}
