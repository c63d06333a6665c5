package scanner

import (
	"runtime"
	"sync"

	"sigmem/memory"
)

// ScanParallel runs every scanner over region, at most maxdop at a time.
// The result only holds the keys of scanners that found a match.
func ScanParallel(region memory.Region, maxdop uint, scanners map[string]Scanner) map[string]memory.Address {
	results := make(map[string]memory.Address, len(scanners))

	// If maxdop is 0 or 1, scan sequentially
	if maxdop <= 1 {
		for name, s := range scanners {
			if addr, ok := s.Scan(region); ok {
				results[name] = addr
			}
		}
		return results
	}

	if numCPU := uint(runtime.NumCPU()); maxdop > numCPU {
		maxdop = numCPU
	}

	sem := make(chan struct{}, maxdop)
	var wg sync.WaitGroup
	var resultsMutex sync.Mutex

	for name, s := range scanners {
		wg.Add(1)
		sem <- struct{}{}

		go func(name string, s Scanner) {
			defer func() {
				<-sem
				wg.Done()
			}()

			addr, ok := s.Scan(region)
			if !ok {
				return
			}

			resultsMutex.Lock()
			results[name] = addr
			resultsMutex.Unlock()
		}(name, s)
	}

	wg.Wait()
	return results
}
