// Package cache provides a generic, thread-safe LRU cache.
//
//	c := cache.NewLRUCache[string, useragent.UserAgent](1024)
//	c.Put(raw, ua)
//	if ua, ok := c.Get(raw); ok {
//		...
//	}
//
// Get, Put and Remove are O(1). When the cache is full, Put evicts the least
// recently used entry and calls the eviction callback, if one is set, outside
// the lock.
package cache
