package arena_test

import (
	"fmt"

	"github.com/joshuapare/arenakit/arena"
)

func ExampleCoalescingAllocator() {
	al, err := arena.NewCoalescing(64 * 1024)
	if err != nil {
		panic(err)
	}
	defer al.Close()

	ref, buf, err := al.Allocate(128)
	if err != nil {
		panic(err)
	}
	copy(buf, "payload")
	fmt.Println(len(buf))

	al.Deallocate(ref)

	st := al.Stats()
	fmt.Println(st.AllocCalls, st.FreeCalls, st.CurrentUsedBytes)
	// Output:
	// 128
	// 1 1 0
}

func ExamplePerThreadAllocator() {
	p, err := arena.NewPerThread(arena.Config{ArenaSize: 1 << 20})
	if err != nil {
		panic(err)
	}
	defer p.Close()

	// Small requests come from the goroutine's size-class cache,
	// larger ones from its arena.
	small, _, _ := p.Allocate(64)
	large, _, _ := p.Allocate(4096)

	p.Deallocate(small)
	p.Deallocate(large)

	fmt.Println(p.Stats().CurrentUsedBytes)
	// Output:
	// 0
}
