package learning

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 64

// keyLock serializes read-modify-write cycles per key. Keys hash onto a fixed
// set of mutexes, so unrelated keys rarely contend.
type keyLock struct {
	stripes [lockStripes]sync.Mutex
}

func (k *keyLock) lock(key string) func() {
	h := fnv.New32a()
	h.Write([]byte(key))
	m := &k.stripes[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}
